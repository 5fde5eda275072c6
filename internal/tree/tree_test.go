package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/memorizer/pkg/types"
)

func TestNew_HasSingleRoot(t *testing.T) {
	tr := New()
	assert.Equal(t, 1, tr.NodeCount())
	root, ok := tr.Get(tr.RootID())
	require.True(t, ok)
	assert.Equal(t, types.NodeTypeRoot, root.Type)
	assert.Equal(t, 0, root.Depth)
}

func TestEnsureDomain_CaseInsensitiveIdempotent(t *testing.T) {
	tr := New()
	id1 := tr.EnsureDomain("Coding")
	id2 := tr.EnsureDomain("coding")
	assert.Equal(t, id1, id2)

	n, ok := tr.Get(id1)
	require.True(t, ok)
	assert.Equal(t, types.NodeTypeDomain, n.Type)
	assert.Equal(t, 1, n.Depth)
}

func TestAddChild_DepthAndLinkage(t *testing.T) {
	tr := New()
	domainID := tr.EnsureDomain("coding")
	childID, err := tr.AddChild(domainID, types.ContextNode{Type: types.NodeTypeProject, Name: "proj"})
	require.NoError(t, err)

	child, ok := tr.Get(childID)
	require.True(t, ok)
	assert.Equal(t, 2, child.Depth)
	assert.Equal(t, domainID, child.ParentID)

	domain, _ := tr.Get(domainID)
	assert.Contains(t, domain.Children, childID)
}

func TestAddChild_MissingParent(t *testing.T) {
	tr := New()
	_, err := tr.AddChild("nonexistent", types.ContextNode{Type: types.NodeTypeProject})
	assert.Error(t, err)
}

func TestGetAncestry_RootToLeaf(t *testing.T) {
	tr := New()
	domainID := tr.EnsureDomain("coding")
	projID, _ := tr.AddChild(domainID, types.ContextNode{Type: types.NodeTypeProject, Name: "proj"})

	chain, err := tr.GetAncestry(projID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, types.NodeTypeRoot, chain[0].Type)
	assert.Equal(t, types.NodeTypeDomain, chain[1].Type)
	assert.Equal(t, types.NodeTypeProject, chain[2].Type)
	assert.Equal(t, len(chain)-1, chain[len(chain)-1].Depth)
}

func TestBuildCrossLinks_SkipsSameBranch(t *testing.T) {
	tr := New()
	domainID := tr.EnsureDomain("coding")
	proj1, _ := tr.AddChild(domainID, types.ContextNode{
		Type: types.NodeTypeProject, Name: "proj1",
		Entities: []types.Entity{{Type: types.EntityTechnology, NormalizedName: "rust"}},
	})
	proj2, _ := tr.AddChild(domainID, types.ContextNode{
		Type: types.NodeTypeProject, Name: "proj2",
		Entities: []types.Entity{{Type: types.EntityTechnology, NormalizedName: "rust"}},
	})

	created := tr.BuildCrossLinks()
	assert.Equal(t, 1, created) // one cross-branch pair, linked reciprocally
	n1, _ := tr.Get(proj1)
	n2, _ := tr.Get(proj2)
	require.Len(t, n1.RelatedNodes, 1)
	require.Len(t, n2.RelatedNodes, 1)
	assert.Equal(t, proj2, n1.RelatedNodes[0].NodeID)
	assert.Equal(t, proj1, n2.RelatedNodes[0].NodeID)
	assert.Equal(t, types.CrossLinkSameTechnology, n1.RelatedNodes[0].LinkType)
	assert.Equal(t, 0.7, n1.RelatedNodes[0].Strength)

	// no self-links, no ancestry links
	ancestry1, _ := tr.GetAncestry(proj1)
	for _, anc := range ancestry1 {
		for _, r := range n1.RelatedNodes {
			assert.NotEqual(t, anc.ID, r.NodeID)
		}
	}
}

func TestBuildCrossLinks_NoLinkAcrossAncestry(t *testing.T) {
	tr := New()
	domainID := tr.EnsureDomain("coding")
	// domain and its own project both happen to carry the same tech entity;
	// they are on the same branch (domain is an ancestor of project) so no link.
	_ = tr.Mutate(domainID, func(n *types.ContextNode) {
		n.Entities = []types.Entity{{Type: types.EntityTechnology, NormalizedName: "go"}}
	})
	projID, _ := tr.AddChild(domainID, types.ContextNode{
		Type: types.NodeTypeProject, Name: "proj",
		Entities: []types.Entity{{Type: types.EntityTechnology, NormalizedName: "go"}},
	})

	tr.BuildCrossLinks()
	proj, _ := tr.Get(projID)
	assert.Empty(t, proj.RelatedNodes)
}

func TestSearch_TokenScoring(t *testing.T) {
	tr := New()
	domainID := tr.EnsureDomain("coding")
	_, _ = tr.AddChild(domainID, types.ContextNode{
		Type: types.NodeTypeProject, Name: "pasta project", Summary: "a pasta carbonara recipe tracker",
	})
	_, _ = tr.AddChild(domainID, types.ContextNode{
		Type: types.NodeTypeProject, Name: "cake project", Summary: "chocolate cake instructions",
	})

	results := tr.Search("pasta")
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Name, "pasta")
}

func TestSearch_NoTokensFallsBackToTop10(t *testing.T) {
	tr := New()
	domainID := tr.EnsureDomain("coding")
	_, _ = tr.AddChild(domainID, types.ContextNode{Type: types.NodeTypeProject, Name: "p"})

	results := tr.Search("a") // 1-char token dropped -> no tokens
	assert.NotEmpty(t, results)
}

func TestRemove_UnlinksFromParentAndIndices(t *testing.T) {
	tr := New()
	domainID := tr.EnsureDomain("coding")
	projID, _ := tr.AddChild(domainID, types.ContextNode{
		Type: types.NodeTypeProject, Name: "proj", Path: "/tmp/proj",
	})

	_, err := tr.Remove(projID)
	require.NoError(t, err)

	domain, _ := tr.Get(domainID)
	assert.NotContains(t, domain.Children, projID)
	_, ok := tr.GetByPath("/tmp/proj")
	assert.False(t, ok)
}

func TestLoadFrom_MissingRootRecoversOnEnsureRoot(t *testing.T) {
	tr := New()
	tr.LoadFrom("missing-id", nil)
	tr.EnsureRoot()
	root, ok := tr.Get(tr.RootID())
	require.True(t, ok)
	assert.Equal(t, types.NodeTypeRoot, root.Type)
}
