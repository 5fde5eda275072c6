package optimizer

import (
	"testing"
	"time"

	"github.com/leefowlercu/memorizer/internal/tree"
	"github.com/leefowlercu/memorizer/pkg/types"
)

func addFileRef(t *tree.ContextTree, parentID, name string, lastUpdated time.Time, accessCount uint64) string {
	id, _ := t.AddChild(parentID, types.ContextNode{
		Type:        types.NodeTypeFileReference,
		Name:        name,
		LastUpdated: lastUpdated,
		AccessCount: accessCount,
		Keywords:    []string{"go", name},
	})
	return id
}

func TestOptimize_PruneStale(t *testing.T) {
	tr := tree.New()
	domainID := tr.EnsureDomain("coding")

	oldTime := time.Now().Add(-200 * 24 * time.Hour)
	recentTime := time.Now()

	staleID := addFileRef(tr, domainID, "stale.go", oldTime, 0)
	freshID := addFileRef(tr, domainID, "fresh.go", recentTime, 10)

	cfg := DefaultConfig()
	result := Optimize(tr, cfg)

	if result.NodesPruned != 1 {
		t.Fatalf("expected 1 pruned node, got %d", result.NodesPruned)
	}
	if _, ok := tr.Get(staleID); ok {
		t.Errorf("expected stale node to be removed")
	}
	if _, ok := tr.Get(freshID); !ok {
		t.Errorf("expected fresh node to survive")
	}
}

func TestOptimize_MergeSimilarSiblings(t *testing.T) {
	tr := tree.New()
	domainID := tr.EnsureDomain("coding")

	cfg := DefaultConfig()
	cfg.EnablePruneStale = false
	cfg.EnableCompressDeep = false
	cfg.MinSiblingsForMerge = 3

	var ids []string
	for i := 0; i < 4; i++ {
		id := addFileRef(tr, domainID, "file.go", time.Now(), 5)
		ids = append(ids, id)
	}

	result := Optimize(tr, cfg)

	if result.NodesMerged != 4 {
		t.Fatalf("expected 4 nodes merged, got %d", result.NodesMerged)
	}
	if len(result.CreatedNodeIDs) != 1 {
		t.Fatalf("expected 1 created node, got %d", len(result.CreatedNodeIDs))
	}

	for _, id := range ids {
		if _, ok := tr.Get(id); ok {
			t.Errorf("expected original node %s to be removed after merge", id)
		}
	}

	merged, ok := tr.Get(result.CreatedNodeIDs[0])
	if !ok {
		t.Fatalf("expected merged node to exist")
	}
	if merged.Type != types.NodeTypeDocument {
		t.Errorf("expected merged node type Document, got %s", merged.Type)
	}
	if len(merged.Keywords) == 0 {
		t.Errorf("expected merged node to carry union keywords")
	}
}

func TestOptimize_CompressDeepBranches(t *testing.T) {
	tr := tree.New()

	cfg := DefaultConfig()
	cfg.EnablePruneStale = false
	cfg.EnableMergeSimilar = false
	cfg.MaxDepthThreshold = 1

	domainID := tr.EnsureDomain("coding")
	catID, _ := tr.EnsureCategory(domainID, "go-projects")

	projID, _ := tr.AddChild(catID, types.ContextNode{Type: types.NodeTypeProject, Name: "proj"})
	_ = projID

	result := Optimize(tr, cfg)

	if tr.MaxDepth() > cfg.MaxDepthThreshold {
		t.Errorf("expected max depth <= %d after compression, got %d", cfg.MaxDepthThreshold, tr.MaxDepth())
	}
	_ = result
}

func TestAnalyze(t *testing.T) {
	tr := tree.New()
	domainID := tr.EnsureDomain("coding")
	addFileRef(tr, domainID, "stale.go", time.Now().Add(-200*24*time.Hour), 0)

	cfg := DefaultConfig()
	analysis := Analyze(tr, cfg)

	if analysis.StaleLeafCount != 1 {
		t.Errorf("expected 1 stale leaf, got %d", analysis.StaleLeafCount)
	}
	if analysis.ExcessiveDepth {
		t.Errorf("did not expect excessive depth for a shallow tree")
	}
}

func TestIsStale(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()

	stale := types.ContextNode{Type: types.NodeTypeFileReference, LastUpdated: now.Add(-200 * 24 * time.Hour), AccessCount: 0}
	if !isStale(stale, cfg, now) {
		t.Errorf("expected node to be stale")
	}

	fresh := types.ContextNode{Type: types.NodeTypeFileReference, LastUpdated: now, AccessCount: 10}
	if isStale(fresh, cfg, now) {
		t.Errorf("expected node to not be stale")
	}

	nonLeaf := types.ContextNode{Type: types.NodeTypeDocument, LastUpdated: now.Add(-200 * 24 * time.Hour), AccessCount: 0}
	if isStale(nonLeaf, cfg, now) {
		t.Errorf("expected non-FileReference node to never be stale")
	}
}
