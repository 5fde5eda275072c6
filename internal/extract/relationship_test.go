package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/memorizer/pkg/types"
)

func TestExtractRelationships_TypeInferenceProjectUsesTechnology(t *testing.T) {
	chunks := []types.Chunk{chunk("c1", "project: acme-service uses Rust and PostgreSQL.")}
	entities := ExtractEntities(chunks, DefaultEntityConfig())
	rels := ExtractRelationships(entities, chunks, DefaultRelationshipConfig())

	var found bool
	for _, r := range rels {
		if r.Type != types.RelUses || r.SourceName != "acme-service" {
			continue
		}
		for _, ev := range r.Evidence {
			if ev.Type == types.EvidenceTypeInference {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestExtractRelationships_DedupMergesEvidence(t *testing.T) {
	chunks := []types.Chunk{
		chunk("c1", "service depends on Redis."),
		chunk("c2", "service depends on Redis."),
	}
	entities := ExtractEntities(chunks, DefaultEntityConfig())
	rels := ExtractRelationships(entities, chunks, DefaultRelationshipConfig())

	var depRel *types.Relationship
	for i := range rels {
		if rels[i].Type == types.RelDependsOn {
			depRel = &rels[i]
		}
	}
	require.NotNil(t, depRel)
	assert.GreaterOrEqual(t, len(depRel.Evidence), 1)
}

func TestExtractRelationships_CoOccurrenceRelatedTo(t *testing.T) {
	chunks := []types.Chunk{chunk("c1", "Built with Rust and PostgreSQL for the backend, by Jane Doe.")}
	entities := ExtractEntities(chunks, DefaultEntityConfig())
	cfg := DefaultRelationshipConfig()
	cfg.CoOccurrenceThreshold = 0.1
	rels := ExtractRelationships(entities, chunks, cfg)
	assert.NotEmpty(t, rels)
}
