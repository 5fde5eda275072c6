// Package extract implements pure pattern-based entity and relationship
// extraction over chunks. Extraction never touches
// the tree directly; callers (internal/agent) integrate the results.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// EntityConfig enumerates which matchers run and the final confidence
// floor.
type EntityConfig struct {
	EnablePerson      bool
	EnableProject     bool
	EnableTechnology  bool
	EnableDate        bool
	EnableURL         bool
	EnableEmail       bool
	EnableFile        bool
	EnableCodeElement bool
	MinConfidence     float64
}

// DefaultEntityConfig enables every matcher with no confidence floor.
func DefaultEntityConfig() EntityConfig {
	return EntityConfig{
		EnablePerson: true, EnableProject: true, EnableTechnology: true,
		EnableDate: true, EnableURL: true, EnableEmail: true,
		EnableFile: true, EnableCodeElement: true,
		MinConfidence: 0.0,
	}
}

var (
	personCueRe = regexp.MustCompile(`(?i)\b(?:by|author|created by|maintained by|written by|contributors?:)\s+([A-Z][a-z]+(?:\s+[A-Z]\.?)?(?:\s+[A-Z][a-z]+)+)`)
	handleRe    = regexp.MustCompile(`@([A-Za-z0-9_]{2,39})`)

	projectPrefixRe = regexp.MustCompile(`(?i)\b(?:project|repo)\s*:\s*([A-Za-z0-9_.\-/]+)`)
	githubRepoRe    = regexp.MustCompile(`\bgithub\.com/([A-Za-z0-9_.\-]+/[A-Za-z0-9_.\-]+)`)
	manifestNameRe  = regexp.MustCompile(`(?m)^\s*name\s*=\s*"([^"]+)"`)

	techCueRe = regexp.MustCompile(`(?i)\b(?:using|built with|powered by|requires|depends on)\s+([A-Z][A-Za-z0-9_.+#\-]{1,30})`)

	isoDateRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	usDateRe   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	longDateRe = regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\s+\d{4}\b`)
	cueDateRe  = regexp.MustCompile(`(?i)\b(?:deadline|due|by|on)\s+((?:\d{4}-\d{2}-\d{2})|(?:\d{1,2}/\d{1,2}/\d{4}))`)

	urlRe   = regexp.MustCompile(`https?://[^\s<>\)\]"']+`)
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	backtickFileRe = regexp.MustCompile("`([A-Za-z0-9_./\\-]+\\.[A-Za-z0-9]+)`")
	barePathRe     = regexp.MustCompile(`\b(?:src|lib|bin|tests?)/[A-Za-z0-9_./\-]+\.[A-Za-z0-9]+\b`)

	codeDefRe = regexp.MustCompile(`\b(?:fn|func|function|def|struct|class|type|interface|const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// candidate is an interim entity before cross-chunk merging.
type candidate struct {
	name       string
	entityType types.EntityType
	confidence float64
	mention    types.Mention
}

// ExtractEntities runs every enabled matcher over chunks and returns a
// deduplicated, confidence-floored entity set.
func ExtractEntities(chunks []types.Chunk, cfg EntityConfig) []types.Entity {
	var candidates []candidate

	for _, c := range chunks {
		if cfg.EnablePerson {
			candidates = append(candidates, matchPerson(c)...)
		}
		if cfg.EnableProject {
			candidates = append(candidates, matchProject(c)...)
		}
		if cfg.EnableTechnology {
			candidates = append(candidates, matchTechnology(c)...)
		}
		if cfg.EnableDate {
			candidates = append(candidates, matchDate(c)...)
		}
		if cfg.EnableURL {
			candidates = append(candidates, matchURL(c)...)
		}
		if cfg.EnableEmail {
			candidates = append(candidates, matchEmail(c)...)
		}
		if cfg.EnableFile {
			candidates = append(candidates, matchFile(c)...)
		}
		if cfg.EnableCodeElement {
			candidates = append(candidates, matchCodeElement(c)...)
		}
	}

	return mergeCandidates(candidates, cfg.MinConfidence)
}

// mergeCandidates merges entities sharing (type, normalized_name):
// mentions concatenate and confidence takes the max. Attributes are not
// set; the matchers produce none.
func mergeCandidates(candidates []candidate, minConfidence float64) []types.Entity {
	type key struct {
		t    types.EntityType
		norm string
	}
	merged := make(map[key]*types.Entity)
	var order []key

	for _, c := range candidates {
		norm := types.NormalizeEntityName(c.name)
		if norm == "" {
			continue
		}
		k := key{t: c.entityType, norm: norm}
		e, ok := merged[k]
		if !ok {
			e = &types.Entity{
				ID:             uuid.NewString(),
				Name:           c.name,
				NormalizedName: norm,
				Type:           c.entityType,
				Confidence:     c.confidence,
			}
			merged[k] = e
			order = append(order, k)
		}
		e.Mentions = append(e.Mentions, c.mention)
		if c.confidence > e.Confidence {
			e.Confidence = c.confidence
		}
	}

	out := make([]types.Entity, 0, len(order))
	for _, k := range order {
		e := merged[k]
		if e.Confidence < minConfidence {
			continue
		}
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	return out
}

func matchPerson(c types.Chunk) []candidate {
	var out []candidate
	for _, m := range personCueRe.FindAllStringSubmatchIndex(c.Content, -1) {
		name := c.Content[m[2]:m[3]]
		out = append(out, candidate{
			name: name, entityType: types.EntityPerson, confidence: 0.8,
			mention: types.Mention{ChunkID: c.ID, Position: m[2], MatchedText: name},
		})
	}
	for _, m := range handleRe.FindAllStringSubmatchIndex(c.Content, -1) {
		name := c.Content[m[2]:m[3]]
		out = append(out, candidate{
			name: name, entityType: types.EntityPerson, confidence: 0.8,
			mention: types.Mention{ChunkID: c.ID, Position: m[2], MatchedText: "@" + name},
		})
	}
	return out
}

func matchProject(c types.Chunk) []candidate {
	var out []candidate
	for _, re := range []*regexp.Regexp{projectPrefixRe, githubRepoRe, manifestNameRe} {
		for _, m := range re.FindAllStringSubmatchIndex(c.Content, -1) {
			name := c.Content[m[2]:m[3]]
			out = append(out, candidate{
				name: name, entityType: types.EntityProject, confidence: 0.9,
				mention: types.Mention{ChunkID: c.ID, Position: m[2], MatchedText: name},
			})
		}
	}
	return out
}

func matchTechnology(c types.Chunk) []candidate {
	var out []candidate
	// Case-folding can change byte length for some Unicode input (e.g. İ),
	// so offsets into the lowered copy are only trusted while they stay in
	// bounds of the original; the dictionary itself is ASCII.
	lower := strings.ToLower(c.Content)
	for _, tech := range defaultTechnologies {
		techLower := strings.ToLower(tech)
		idx := 0
		for {
			pos := strings.Index(lower[idx:], techLower)
			if pos < 0 {
				break
			}
			abs := idx + pos
			end := abs + len(techLower)
			if end <= len(c.Content) && wordBounded(lower, abs, len(techLower)) {
				matched := c.Content[abs:end]
				out = append(out, candidate{
					name: matched, entityType: types.EntityTechnology, confidence: 0.9,
					mention: types.Mention{ChunkID: c.ID, Position: abs, MatchedText: matched},
				})
			}
			idx = end
		}
	}

	for _, m := range techCueRe.FindAllStringSubmatchIndex(c.Content, -1) {
		name := c.Content[m[2]:m[3]]
		if containsFold(defaultTechnologies, name) {
			continue
		}
		out = append(out, candidate{
			name: name, entityType: types.EntityTechnology, confidence: 0.7,
			mention: types.Mention{ChunkID: c.ID, Position: m[2], MatchedText: name},
		})
	}
	return out
}

func wordBounded(s string, pos, length int) bool {
	if pos > 0 && isWordByte(s[pos-1]) {
		return false
	}
	end := pos + length
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}

func matchDate(c types.Chunk) []candidate {
	var out []candidate
	for _, re := range []*regexp.Regexp{isoDateRe, usDateRe, longDateRe} {
		for _, m := range re.FindAllStringIndex(c.Content, -1) {
			text := c.Content[m[0]:m[1]]
			out = append(out, candidate{
				name: text, entityType: types.EntityDate, confidence: 0.95,
				mention: types.Mention{ChunkID: c.ID, Position: m[0], MatchedText: text},
			})
		}
	}
	for _, m := range cueDateRe.FindAllStringSubmatchIndex(c.Content, -1) {
		text := c.Content[m[2]:m[3]]
		out = append(out, candidate{
			name: text, entityType: types.EntityDate, confidence: 0.95,
			mention: types.Mention{ChunkID: c.ID, Position: m[2], MatchedText: text},
		})
	}
	return out
}

func matchURL(c types.Chunk) []candidate {
	var out []candidate
	for _, m := range urlRe.FindAllStringIndex(c.Content, -1) {
		text := strings.TrimRight(c.Content[m[0]:m[1]], ".,;:!?")
		out = append(out, candidate{
			name: text, entityType: types.EntityURL, confidence: 1.0,
			mention: types.Mention{ChunkID: c.ID, Position: m[0], MatchedText: text},
		})
	}
	return out
}

func matchEmail(c types.Chunk) []candidate {
	var out []candidate
	for _, m := range emailRe.FindAllStringIndex(c.Content, -1) {
		text := c.Content[m[0]:m[1]]
		out = append(out, candidate{
			name: text, entityType: types.EntityEmail, confidence: 1.0,
			mention: types.Mention{ChunkID: c.ID, Position: m[0], MatchedText: text},
		})
	}
	return out
}

func matchFile(c types.Chunk) []candidate {
	var out []candidate
	for _, m := range backtickFileRe.FindAllStringSubmatchIndex(c.Content, -1) {
		text := c.Content[m[2]:m[3]]
		out = append(out, candidate{
			name: text, entityType: types.EntityFile, confidence: 0.85,
			mention: types.Mention{ChunkID: c.ID, Position: m[2], MatchedText: text},
		})
	}
	for _, m := range barePathRe.FindAllStringIndex(c.Content, -1) {
		text := c.Content[m[0]:m[1]]
		out = append(out, candidate{
			name: text, entityType: types.EntityFile, confidence: 0.85,
			mention: types.Mention{ChunkID: c.ID, Position: m[0], MatchedText: text},
		})
	}
	return out
}

func matchCodeElement(c types.Chunk) []candidate {
	var out []candidate
	for _, m := range codeDefRe.FindAllStringSubmatchIndex(c.Content, -1) {
		name := c.Content[m[2]:m[3]]
		out = append(out, candidate{
			name: name, entityType: types.EntityCodeElement, confidence: 0.9,
			mention: types.Mention{ChunkID: c.ID, Position: m[2], MatchedText: name},
		})
	}
	return out
}
