package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leefowlercu/memorizer/internal/metrics"
	"github.com/leefowlercu/memorizer/pkg/types"
)

const (
	toolIndexDirectory = "index_directory"
	toolQueryContext   = "query_context"
	toolGetNodeContext = "get_node_context"
	toolListDomains    = "list_domains"

	defaultQueryMaxResults = 20
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			toolIndexDirectory,
			mcp.WithTitleAnnotation("Index Directory"),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithDescription("Walk a folder on disk and fold it into the knowledge tree as Document/Project nodes. Runs in the background; progress and completion are delivered as notifications/index/progress notifications."),
			mcp.WithString(
				"path",
				mcp.Required(),
				mcp.MinLength(1),
				mcp.Description("Absolute path to the folder to index."),
			),
		),
		s.handleIndexDirectory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			toolQueryContext,
			mcp.WithTitleAnnotation("Query Context"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDescription("Search the knowledge tree by keyword and return matching nodes ranked by relevance."),
			mcp.WithString(
				"query",
				mcp.Required(),
				mcp.MinLength(1),
				mcp.Description("Natural language or keyword query."),
			),
			mcp.WithNumber(
				"max_results",
				mcp.Min(1),
				mcp.DefaultNumber(defaultQueryMaxResults),
				mcp.Description("Maximum number of nodes to return."),
			),
		),
		s.handleQueryContext,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			toolGetNodeContext,
			mcp.WithTitleAnnotation("Get Node Context"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDescription("Fetch a single node's full detail plus its ancestry chain and related nodes."),
			mcp.WithString(
				"node_id",
				mcp.Required(),
				mcp.MinLength(1),
				mcp.Description("ID of the node to fetch."),
			),
		),
		s.handleGetNodeContext,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			toolListDomains,
			mcp.WithTitleAnnotation("List Domains"),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDescription("List the top-level domains currently known to the knowledge tree."),
		),
		s.handleListDomains,
	)
}

// handleIndexDirectory starts a folder ingestion: it responds
// immediately with {started, path} and runs the fold in the background,
// streaming progress/complete notifications.
func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics.RecordMCPRequest(toolIndexDirectory)

	path, err := request.RequireString("path")
	if err != nil || path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	s.notifyProgress(path, "starting", nil)

	go func() {
		bg := context.Background()
		result, err := s.orchestrator.ProcessFolder(bg, path)
		if err != nil {
			s.notifyProgress(path, "error", map[string]any{"message": err.Error()})
			return
		}

		if s.store != nil {
			if err := s.store.Save(s.tree); err != nil {
				s.logger.Error("saving tree after index_directory", "path", path, "error", err)
				s.notifyProgress(path, "error", map[string]any{"message": fmt.Sprintf("saving tree; %v", err)})
				return
			}
		}

		s.notifyProgress(path, "complete", map[string]any{
			"nodes_created":           result.NodesCreated,
			"entities_extracted":      result.EntitiesExtracted,
			"relationships_extracted": result.RelationshipsExtracted,
			"domain":                  result.Domain,
			"cross_links_created":     result.CrossLinksCreated,
			"files_processed":         result.FilesProcessed,
			"errors":                  len(result.Errors),
			"processing_time_ms":      result.ProcessingTimeMs,
		})
	}()

	return textResult(map[string]any{
		"started": true,
		"path":    path,
	})
}

// handleQueryContext runs keyword retrieval over the tree.
func (s *Server) handleQueryContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics.RecordMCPRequest(toolQueryContext)

	q, err := request.RequireString("query")
	if err != nil || q == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	resp := s.engine.Query(q)

	maxResults := clampInt(request.GetInt("max_results", defaultQueryMaxResults), 1, 0)
	if maxResults > 0 && len(resp.Nodes) > maxResults {
		resp.Nodes = resp.Nodes[:maxResults]
		resp.Truncated = true
	}

	return textResult(map[string]any{
		"nodes":              resp.Nodes,
		"processing_time_ms": resp.ProcessingTimeMs,
		"truncated":          resp.Truncated,
	})
}

// handleGetNodeContext fetches one node with its ancestry and related nodes.
func (s *Server) handleGetNodeContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics.RecordMCPRequest(toolGetNodeContext)

	id, err := request.RequireString("node_id")
	if err != nil || id == "" {
		return mcp.NewToolResultError("node_id is required"), nil
	}

	node, ok := s.tree.Get(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("node %s not found", id)), nil
	}

	ancestry, err := s.tree.GetAncestry(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolving ancestry for %s; %v", id, err)), nil
	}

	related := make([]types.NodeSummary, 0, len(node.RelatedNodes))
	for _, r := range node.RelatedNodes {
		if target, ok := s.tree.Get(r.NodeID); ok {
			related = append(related, nodeSummary(target))
		}
	}

	ancestrySummaries := make([]types.NodeSummary, 0, len(ancestry))
	for _, a := range ancestry {
		ancestrySummaries = append(ancestrySummaries, nodeSummary(a))
	}

	return textResult(map[string]any{
		"node":     node,
		"ancestry": ancestrySummaries,
		"related":  related,
	})
}

// handleListDomains lists the Domain nodes directly under the root.
func (s *Server) handleListDomains(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics.RecordMCPRequest(toolListDomains)

	var domains []string
	for _, n := range s.tree.NodesAtDepth(1) {
		if n.Type == types.NodeTypeDomain {
			domains = append(domains, n.Name)
		}
	}
	sort.Strings(domains)

	return textResult(map[string]any{
		"domains": domains,
	})
}

func nodeSummary(n types.ContextNode) types.NodeSummary {
	return types.NodeSummary{
		ID:            n.ID,
		Name:          n.Name,
		NodeTypeLabel: string(n.Type),
		Path:          n.Path,
		Summary:       n.Summary,
		Depth:         n.Depth,
		Keywords:      n.Keywords,
	}
}

// textResult returns both a structured result (for clients that parse
// tool output as JSON) and a plain-text fallback.
func textResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling tool result; %w", err)
	}
	return mcp.NewToolResultStructured(v, string(b)), nil
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
