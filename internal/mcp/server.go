// Package mcp exposes the Operational API as Model Context Protocol
// tools, so an external collaborator (an editor, an agent runtime) can
// drive the knowledge tree over a standard MCP transport instead of a
// bespoke RPC surface.
package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/leefowlercu/memorizer/internal/agent"
	"github.com/leefowlercu/memorizer/internal/query"
	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/internal/treestore"
	"github.com/leefowlercu/memorizer/internal/version"
)

// Config contains MCP server configuration.
type Config struct {
	// Name is the server name advertised to clients.
	Name string
	// Version is the server version.
	Version string
	// BasePath is the URL base path for the MCP endpoint.
	BasePath string
}

// DefaultConfig returns default MCP server configuration.
func DefaultConfig() Config {
	return Config{
		Name:     "memorizer",
		Version:  version.Get().Version,
		BasePath: "/mcp",
	}
}

// Server wraps the MCP server and binds it to a ContextTree, the
// orchestrator that indexes folders into it, and the query engine that
// reads from it.
type Server struct {
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer

	tree         *tree.ContextTree
	store        *treestore.TreeStore
	orchestrator *agent.Orchestrator
	engine       *query.Engine
	logger       *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewServer creates an MCP server exposing t, store, orchestrator, and
// engine as tools.
func NewServer(t *tree.ContextTree, store *treestore.TreeStore, orchestrator *agent.Orchestrator, engine *query.Engine, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		tree:         t,
		store:        store,
		orchestrator: orchestrator,
		engine:       engine,
		logger:       logger,
	}

	s.mcpServer = server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	s.httpServer = server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithStateful(true),
		server.WithHeartbeatInterval(30*time.Second),
		server.WithEndpointPath(cfg.BasePath),
	)

	logger.Info("mcp server created", "name", cfg.Name, "version", cfg.Version, "base_path", cfg.BasePath)

	return s
}

// Start marks the server running. The StreamableHTTP transport is served
// by mounting Handler() on an http.Server; Start/Stop track lifecycle for
// callers (e.g. the daemon) that coordinate multiple long-running loops.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.logger.Info("mcp server started")
	return nil
}

// Stop shuts down the underlying HTTP transport.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("mcp server shutdown error", "error", err)
			return err
		}
	}

	s.running = false
	s.logger.Info("mcp server stopped")
	return nil
}

// Handler returns the HTTP handler serving the MCP StreamableHTTP
// transport, for mounting on an http.ServeMux alongside other endpoints.
func (s *Server) Handler() http.Handler {
	return s.httpServer
}

// notifyProgress sends an indexing progress notification to all connected
// clients, carrying the progress/complete stream for
// IndexDirectory.
func (s *Server) notifyProgress(path, status string, extra map[string]any) {
	params := map[string]any{
		"path":   path,
		"status": status,
	}
	for k, v := range extra {
		params[k] = v
	}
	s.mcpServer.SendNotificationToAllClients("notifications/index/progress", params)
}
