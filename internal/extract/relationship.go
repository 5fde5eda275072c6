package extract

import (
	"math"
	"regexp"
	"sort"

	"github.com/google/uuid"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// RelationshipConfig enumerates which extraction strategies run.
type RelationshipConfig struct {
	EnablePatterns        bool
	EnableCoOccurrence    bool
	EnableTypeInference   bool
	CoOccurrenceThreshold float64
	MinConfidence         float64
}

// DefaultRelationshipConfig enables every strategy with the standard
// default co-occurrence threshold.
func DefaultRelationshipConfig() RelationshipConfig {
	return RelationshipConfig{
		EnablePatterns: true, EnableCoOccurrence: true, EnableTypeInference: true,
		CoOccurrenceThreshold: 0.5,
		MinConfidence:         0.0,
	}
}

// patternTemplate is one entry of the fixed regex table.
type patternTemplate struct {
	re   *regexp.Regexp
	kind types.RelationshipType
}

var patternTable = []patternTemplate{
	{regexp.MustCompile(`(?i)\bdepends on\s+([A-Za-z0-9_.+#\-]+)`), types.RelDependsOn},
	{regexp.MustCompile(`(?i)\buses\s+([A-Za-z0-9_.+#\-]+)`), types.RelUses},
	{regexp.MustCompile(`(?i)\brequires\s+([A-Za-z0-9_.+#\-]+)`), types.RelDependsOn},
	{regexp.MustCompile(`(?i)\bbuilt with\s+([A-Za-z0-9_.+#\-]+)`), types.RelUses},
	{regexp.MustCompile(`(?i)\b(?:created|wrote|authored)\s+by\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`), types.RelCreatedBy},
	{regexp.MustCompile(`(?i)\bmaintains?\s+([A-Za-z0-9_.+#\-]+)`), types.RelMaintains},
	{regexp.MustCompile(`(?i)\b(?:contains|includes)\s+([A-Za-z0-9_.+#\-]+)`), types.RelContains},
	{regexp.MustCompile(`(?i)\bimplements\s+([A-Za-z0-9_.+#\-]+)`), types.RelImplements},
	{regexp.MustCompile(`(?i)\bextends\s+([A-Za-z0-9_.+#\-]+)`), types.RelExtends},
}

type relCandidate struct {
	sourceID, sourceName string
	targetID, targetName string
	kind                 types.RelationshipType
	evidence             types.Evidence
}

// ExtractRelationships runs every enabled strategy over entities and
// chunks and returns a deduplicated relationship list.
func ExtractRelationships(entities []types.Entity, chunks []types.Chunk, cfg RelationshipConfig) []types.Relationship {
	byChunk := make(map[string][]types.Entity)
	for _, e := range entities {
		for _, m := range e.Mentions {
			byChunk[m.ChunkID] = append(byChunk[m.ChunkID], e)
		}
	}
	// dedupe entities per chunk (an entity may have multiple mentions in
	// the same chunk)
	for cid, es := range byChunk {
		seen := make(map[string]struct{})
		var uniq []types.Entity
		for _, e := range es {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			uniq = append(uniq, e)
		}
		byChunk[cid] = uniq
	}

	byNormName := make(map[string]types.Entity)
	for _, e := range entities {
		byNormName[e.NormalizedName] = e
	}

	var candidates []relCandidate

	if cfg.EnablePatterns {
		candidates = append(candidates, matchPatterns(chunks, byChunk, byNormName)...)
	}
	if cfg.EnableCoOccurrence {
		candidates = append(candidates, matchCoOccurrence(byChunk, cfg.CoOccurrenceThreshold)...)
	}
	if cfg.EnableTypeInference {
		candidates = append(candidates, matchTypeInference(byChunk)...)
	}

	return mergeRelationships(candidates, cfg.MinConfidence)
}

// matchPatterns resolves the pattern's target word to an entity via
// normalized_name; every other entity mentioned in the same chunk
// becomes a candidate source.
func matchPatterns(chunks []types.Chunk, byChunk map[string][]types.Entity, byNormName map[string]types.Entity) []relCandidate {
	var out []relCandidate
	for _, c := range chunks {
		others := byChunk[c.ID]
		for _, pt := range patternTable {
			for _, m := range pt.re.FindAllStringSubmatch(c.Content, -1) {
				targetWord := types.NormalizeEntityName(m[1])
				target, ok := byNormName[targetWord]
				if !ok {
					continue
				}
				for _, source := range others {
					if source.ID == target.ID {
						continue
					}
					out = append(out, relCandidate{
						sourceID: source.ID, sourceName: source.Name,
						targetID: target.ID, targetName: target.Name,
						kind: pt.kind,
						evidence: types.Evidence{
							Type: types.EvidencePatternMatch, Text: m[0], ChunkID: c.ID,
							ConfidenceContribution: 0.8,
						},
					})
				}
			}
		}
	}
	return out
}

// matchCoOccurrence emits RelatedTo edges for every unordered pair of
// differently-typed entities sharing a chunk with ≥2 entities, scored by
// 1/(1+ln(n)) accumulation.
func matchCoOccurrence(byChunk map[string][]types.Entity, threshold float64) []relCandidate {
	pairScore := make(map[[2]string]float64)
	pairEntities := make(map[[2]string][2]types.Entity)
	pairChunks := make(map[[2]string][]string)

	for chunkID, es := range byChunk {
		n := len(es)
		if n < 2 {
			continue
		}
		contribution := 1.0 / (1.0 + math.Log(float64(n)))
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				a, b := es[i], es[j]
				if a.Type == b.Type {
					continue
				}
				key := pairKey(a.ID, b.ID)
				pairScore[key] += contribution
				if _, ok := pairEntities[key]; !ok {
					pairEntities[key] = [2]types.Entity{a, b}
				}
				pairChunks[key] = append(pairChunks[key], chunkID)
			}
		}
	}

	var out []relCandidate
	for key, score := range pairScore {
		if score < threshold {
			continue
		}
		pair := pairEntities[key]
		contribution := score / 2
		if contribution > 1 {
			contribution = 1
		}
		chunkID := ""
		if cs := pairChunks[key]; len(cs) > 0 {
			chunkID = cs[0]
		}
		out = append(out, relCandidate{
			sourceID: pair[0].ID, sourceName: pair[0].Name,
			targetID: pair[1].ID, targetName: pair[1].Name,
			kind: types.RelRelatedTo,
			evidence: types.Evidence{
				Type: types.EvidenceCoOccurrence, Text: "co-occurrence", ChunkID: chunkID,
				ConfidenceContribution: contribution,
			},
		})
	}
	return out
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// matchTypeInference applies fixed type-pair rules within each shared
// chunk.
func matchTypeInference(byChunk map[string][]types.Entity) []relCandidate {
	var out []relCandidate
	for chunkID, es := range byChunk {
		n := len(es)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				a, b := es[i], es[j]
				switch {
				case a.Type == types.EntityPerson && b.Type == types.EntityProject:
					out = append(out, typeInferenceCandidate(a, b, types.RelMaintains, 0.5, chunkID))
				case a.Type == types.EntityProject && b.Type == types.EntityTechnology:
					out = append(out, typeInferenceCandidate(a, b, types.RelUses, 0.6, chunkID))
				case a.Type == types.EntityTechnology && b.Type == types.EntityTechnology && i < j:
					out = append(out, typeInferenceCandidate(a, b, types.RelRelatedTo, 0.4, chunkID))
				}
			}
		}
	}
	return out
}

func typeInferenceCandidate(a, b types.Entity, kind types.RelationshipType, contribution float64, chunkID string) relCandidate {
	return relCandidate{
		sourceID: a.ID, sourceName: a.Name,
		targetID: b.ID, targetName: b.Name,
		kind: kind,
		evidence: types.Evidence{
			Type: types.EvidenceTypeInference, Text: string(kind), ChunkID: chunkID,
			ConfidenceContribution: contribution,
		},
	}
}

// mergeRelationships dedupes by (source_id, target_id, type), extending
// evidence and combining confidence as min(1, existing + new*0.5).
func mergeRelationships(candidates []relCandidate, minConfidence float64) []types.Relationship {
	merged := make(map[[3]string]*types.Relationship)
	var order [][3]string

	for _, c := range candidates {
		key := [3]string{c.sourceID, c.targetID, string(c.kind)}
		r, ok := merged[key]
		if !ok {
			r = &types.Relationship{
				ID: uuid.NewString(), SourceID: c.sourceID, SourceName: c.sourceName,
				TargetID: c.targetID, TargetName: c.targetName, Type: c.kind,
			}
			merged[key] = r
			order = append(order, key)
		}
		if len(r.Evidence) == 0 {
			r.Confidence = c.evidence.ConfidenceContribution
		} else {
			r.Confidence = math.Min(1, r.Confidence+c.evidence.ConfidenceContribution*0.5)
		}
		r.Evidence = append(r.Evidence, c.evidence)
	}

	out := make([]types.Relationship, 0, len(order))
	for _, key := range order {
		r := *merged[key]
		if r.Confidence < minConfidence {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}
