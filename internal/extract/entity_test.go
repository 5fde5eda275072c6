package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/memorizer/pkg/types"
)

func chunk(id, content string) types.Chunk {
	return types.Chunk{ID: id, Content: content, Type: types.ChunkParagraph}
}

func TestExtractEntities_TechnologyMergeAcrossChunks(t *testing.T) {
	chunks := []types.Chunk{
		chunk("c1", "Using Rust for performance."),
		chunk("c2", "Rust provides memory safety."),
	}
	entities := ExtractEntities(chunks, DefaultEntityConfig())

	var rust *types.Entity
	for i := range entities {
		if entities[i].Type == types.EntityTechnology && entities[i].NormalizedName == "rust" {
			rust = &entities[i]
		}
	}
	require.NotNil(t, rust)
	assert.GreaterOrEqual(t, len(rust.Mentions), 2)
	assert.Equal(t, 0.9, rust.Confidence)
}

func TestExtractEntities_TechnologyPreservesMatchedCasing(t *testing.T) {
	chunks := []types.Chunk{chunk("c1", "We deployed to kubernetes last week.")}
	entities := ExtractEntities(chunks, DefaultEntityConfig())

	var k8s *types.Entity
	for i := range entities {
		if entities[i].Type == types.EntityTechnology && entities[i].NormalizedName == "kubernetes" {
			k8s = &entities[i]
		}
	}
	require.NotNil(t, k8s)
	assert.Equal(t, "kubernetes", k8s.Name)
}

func TestExtractEntities_TechnologyTolerantOfFoldedUnicode(t *testing.T) {
	// Case-folding 'İ' grows the lowered copy, shifting every later offset;
	// extraction must not slice past the original content.
	content := strings.Repeat("İ", 8) + " uses Rust"
	chunks := []types.Chunk{chunk("c1", content+" Rust")}

	entities := ExtractEntities(chunks, DefaultEntityConfig())
	for _, e := range entities {
		assert.NotEmpty(t, e.Name)
	}
}

func TestExtractEntities_URLAndEmail(t *testing.T) {
	chunks := []types.Chunk{chunk("c1", "Contact me@example.com or visit https://example.com/docs.")}
	entities := ExtractEntities(chunks, DefaultEntityConfig())

	var foundEmail, foundURL bool
	for _, e := range entities {
		if e.Type == types.EntityEmail {
			foundEmail = true
			assert.Equal(t, 1.0, e.Confidence)
		}
		if e.Type == types.EntityURL {
			foundURL = true
			assert.Equal(t, 1.0, e.Confidence)
		}
	}
	assert.True(t, foundEmail)
	assert.True(t, foundURL)
}

func TestExtractEntities_CodeElement(t *testing.T) {
	chunks := []types.Chunk{chunk("c1", "func ProcessFolder(path string) error {")}
	entities := ExtractEntities(chunks, DefaultEntityConfig())

	var found bool
	for _, e := range entities {
		if e.Type == types.EntityCodeElement && e.NormalizedName == "processfolder" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractEntities_MinConfidenceFilters(t *testing.T) {
	cfg := DefaultEntityConfig()
	cfg.MinConfidence = 0.95
	chunks := []types.Chunk{chunk("c1", "Built with Rust and some CustomThing.")}
	entities := ExtractEntities(chunks, cfg)
	for _, e := range entities {
		assert.GreaterOrEqual(t, e.Confidence, 0.95)
	}
}
