// Package optimizer implements the three-phase tree maintenance pass:
// pruning stale FileReference leaves, merging
// similar sibling groups into summary Document nodes, and compressing
// branches that exceed a configured depth threshold.
package optimizer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// Config controls which phases run and their thresholds.
type Config struct {
	EnablePruneStale   bool
	EnableMergeSimilar bool
	EnableCompressDeep bool

	// MaxIdleDays and MinAccessCount gate the prune-stale phase: a
	// FileReference leaf is pruned when it has been idle longer than
	// MaxIdleDays AND has fewer than MinAccessCount accesses.
	MaxIdleDays    int
	MinAccessCount uint64

	// MinSiblingsForMerge is both the minimum number of children a
	// parent must have to be considered, and the minimum size of a
	// same-type FileReference group eligible for merging.
	MinSiblingsForMerge int

	// MaxDepthThreshold bounds branch depth for the compress phase.
	MaxDepthThreshold int
}

// DefaultConfig returns the suggested defaults.
func DefaultConfig() Config {
	return Config{
		EnablePruneStale:    true,
		EnableMergeSimilar:  true,
		EnableCompressDeep:  true,
		MaxIdleDays:         90,
		MinAccessCount:      2,
		MinSiblingsForMerge: 5,
		MaxDepthThreshold:   6,
	}
}

// OptimizationResult reports what a single Optimize pass changed.
type OptimizationResult struct {
	NodesMerged       int
	NodesPruned       int
	DepthReducedBy    int
	RemovedNodeIDs    []string
	CreatedNodeIDs    []string
	StorageSavedBytes int64
}

// OptimizationAnalysis is the read-only recommendation returned by
// Analyze.
type OptimizationAnalysis struct {
	StaleLeafCount    int
	ExcessiveDepth    bool
	MaxDepth          int
	MaxDepthThreshold int
	MergeableGroups   int
}

// Optimize runs the enabled phases, in order, against t.
func Optimize(t *tree.ContextTree, cfg Config) OptimizationResult {
	var result OptimizationResult

	if cfg.EnablePruneStale {
		pruneStale(t, cfg, &result)
	}
	if cfg.EnableMergeSimilar {
		mergeSimilarSiblings(t, cfg, &result)
	}
	if cfg.EnableCompressDeep {
		compressDeepBranches(t, cfg, &result)
	}

	return result
}

// Analyze reports what Optimize would do without mutating the tree.
func Analyze(t *tree.ContextTree, cfg Config) OptimizationAnalysis {
	now := time.Now()
	staleCount := 0
	for _, leaf := range t.GetLeaves() {
		if isStale(leaf, cfg, now) {
			staleCount++
		}
	}

	maxDepth := t.MaxDepth()

	mergeable := 0
	for _, n := range allNodes(t) {
		if len(n.Children) < cfg.MinSiblingsForMerge {
			continue
		}
		groups := groupChildrenByType(t, n.Children)
		for typ, ids := range groups {
			if typ == types.NodeTypeFileReference && len(ids) >= cfg.MinSiblingsForMerge {
				mergeable++
			}
		}
	}

	return OptimizationAnalysis{
		StaleLeafCount:    staleCount,
		ExcessiveDepth:    maxDepth > cfg.MaxDepthThreshold,
		MaxDepth:          maxDepth,
		MaxDepthThreshold: cfg.MaxDepthThreshold,
		MergeableGroups:   mergeable,
	}
}

func isStale(n types.ContextNode, cfg Config, now time.Time) bool {
	if n.Type != types.NodeTypeFileReference {
		return false
	}
	idleDays := now.Sub(n.LastUpdated).Hours() / 24
	return idleDays > float64(cfg.MaxIdleDays) && n.AccessCount < cfg.MinAccessCount
}

// pruneStale removes stale FileReference leaves, operating on a snapshot
// of leaf ids captured before the phase begins.
func pruneStale(t *tree.ContextTree, cfg Config, result *OptimizationResult) {
	now := time.Now()
	snapshot := t.GetLeaves()

	for _, leaf := range snapshot {
		if !isStale(leaf, cfg, now) {
			continue
		}
		if _, err := t.Remove(leaf.ID); err != nil {
			continue
		}
		result.NodesPruned++
		result.RemovedNodeIDs = append(result.RemovedNodeIDs, leaf.ID)
		result.StorageSavedBytes += estimateSize(leaf)
	}
}

// mergeSimilarSiblings collapses large same-type FileReference sibling
// groups into a single summary Document node, operating on a snapshot of
// parent ids captured before the phase begins.
func mergeSimilarSiblings(t *tree.ContextTree, cfg Config, result *OptimizationResult) {
	parents := allNodes(t)

	for _, parent := range parents {
		if len(parent.Children) < cfg.MinSiblingsForMerge {
			continue
		}

		groups := groupChildrenByType(t, parent.Children)
		for typ, ids := range groups {
			if typ != types.NodeTypeFileReference || len(ids) < cfg.MinSiblingsForMerge {
				continue
			}

			children := make([]types.ContextNode, 0, len(ids))
			for _, id := range ids {
				if n, ok := t.Get(id); ok {
					children = append(children, n)
				}
			}
			if len(children) == 0 {
				continue
			}

			merged := types.ContextNode{
				Type:        types.NodeTypeDocument,
				Name:        fmt.Sprintf("%s (merged)", parent.Name),
				Summary:     summarizeChildren(children),
				Keywords:    unionKeywords(children),
				Entities:    concatEntities(children),
				Confidence:  1,
				LastUpdated: time.Now(),
			}

			newID, err := t.AddChild(parent.ID, merged)
			if err != nil {
				continue
			}
			result.CreatedNodeIDs = append(result.CreatedNodeIDs, newID)

			for _, c := range children {
				if _, err := t.Remove(c.ID); err != nil {
					continue
				}
				result.NodesMerged++
				result.RemovedNodeIDs = append(result.RemovedNodeIDs, c.ID)
				result.StorageSavedBytes += estimateSize(c)
			}
		}
	}
}

// compressDeepBranches folds descendants of every node at
// MaxDepthThreshold into that node's summary, keywords, and entities,
// then removes the descendants, when the tree exceeds the threshold.
func compressDeepBranches(t *tree.ContextTree, cfg Config, result *OptimizationResult) {
	before := t.MaxDepth()
	if before <= cfg.MaxDepthThreshold {
		return
	}

	roots := t.NodesAtDepth(cfg.MaxDepthThreshold)
	for _, root := range roots {
		descendants := t.GetDescendants(root.ID)
		if len(descendants) == 0 {
			continue
		}

		keywords := unionKeywords(append([]types.ContextNode{root}, descendants...))
		entities := append(append([]types.Entity{}, root.Entities...), concatEntities(descendants)...)
		summary := root.Summary + "\n\nCompressed: " + summarizeChildren(descendants)

		if err := t.Mutate(root.ID, func(n *types.ContextNode) {
			n.Summary = summary
			n.Keywords = keywords
			n.Entities = entities
			n.Children = nil
		}); err != nil {
			continue
		}

		for _, d := range descendants {
			if _, err := t.Remove(d.ID); err != nil {
				continue
			}
			result.RemovedNodeIDs = append(result.RemovedNodeIDs, d.ID)
			result.StorageSavedBytes += estimateSize(d)
		}
	}

	after := t.MaxDepth()
	if after < before {
		result.DepthReducedBy += before - after
	}
}

func allNodes(t *tree.ContextTree) []types.ContextNode {
	max := t.MaxDepth()
	var out []types.ContextNode
	for d := 0; d <= max; d++ {
		out = append(out, t.NodesAtDepth(d)...)
	}
	return out
}

func groupChildrenByType(t *tree.ContextTree, childIDs []string) map[types.NodeType][]string {
	groups := make(map[types.NodeType][]string)
	for _, id := range childIDs {
		n, ok := t.Get(id)
		if !ok {
			continue
		}
		groups[n.Type] = append(groups[n.Type], id)
	}
	return groups
}

func unionKeywords(nodes []types.ContextNode) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range nodes {
		for _, k := range n.Keywords {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

func concatEntities(nodes []types.ContextNode) []types.Entity {
	var out []types.Entity
	for _, n := range nodes {
		out = append(out, n.Entities...)
	}
	return out
}

// summarizeChildren is the heuristic default summarize_children
// implementation: a textual roll-up counting node types
// and the most common keywords.
func summarizeChildren(nodes []types.ContextNode) string {
	typeCounts := make(map[types.NodeType]int)
	keywordCounts := make(map[string]int)

	for _, n := range nodes {
		typeCounts[n.Type]++
		for _, k := range n.Keywords {
			keywordCounts[k]++
		}
	}

	typeParts := make([]string, 0, len(typeCounts))
	for typ, count := range typeCounts {
		typeParts = append(typeParts, fmt.Sprintf("%d %s", count, typ))
	}
	sort.Strings(typeParts)

	topKeywords := topN(keywordCounts, 5)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d nodes (%s)", len(nodes), strings.Join(typeParts, ", ")))
	if len(topKeywords) > 0 {
		b.WriteString("; top keywords: ")
		b.WriteString(strings.Join(topKeywords, ", "))
	}
	return b.String()
}

func topN(counts map[string]int, n int) []string {
	type kv struct {
		key   string
		count int
	}
	kvs := make([]kv, 0, len(counts))
	for k, c := range counts {
		kvs = append(kvs, kv{k, c})
	}
	sort.Slice(kvs, func(i, j int) bool {
		if kvs[i].count != kvs[j].count {
			return kvs[i].count > kvs[j].count
		}
		return kvs[i].key < kvs[j].key
	})
	if len(kvs) > n {
		kvs = kvs[:n]
	}
	out := make([]string, 0, len(kvs))
	for _, e := range kvs {
		out = append(out, e.key)
	}
	return out
}

// estimateSize gives a rough byte-size estimate for a removed node, used
// to report storage_saved_bytes. This is a heuristic, not an accounting
// of actual on-disk encoding size.
func estimateSize(n types.ContextNode) int64 {
	size := len(n.ID) + len(n.Name) + len(n.Summary) + len(n.Path)
	for _, k := range n.Keywords {
		size += len(k)
	}
	for _, e := range n.Entities {
		size += len(e.ID) + len(e.Name)
	}
	return int64(size)
}
