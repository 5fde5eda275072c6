package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/leefowlercu/memorizer/internal/agent"
	"github.com/leefowlercu/memorizer/internal/cache"
	"github.com/leefowlercu/memorizer/internal/providers"
	"github.com/leefowlercu/memorizer/pkg/types"
)

// Analyzer adapts a SemanticProvider to the orchestrator's DocumentAnalyzer
// interface, with an optional on-disk cache so re-indexing unchanged files
// never repeats an API call.
type Analyzer struct {
	provider providers.SemanticProvider
	cache    *cache.SemanticCache
	logger   *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithCache attaches a semantic result cache.
func WithCache(c *cache.SemanticCache) AnalyzerOption {
	return func(a *Analyzer) { a.cache = c }
}

// WithLogger sets the analyzer's logger.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer wraps provider as a DocumentAnalyzer.
func NewAnalyzer(provider providers.SemanticProvider, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze implements agent.DocumentAnalyzer. Errors propagate so the
// orchestrator can fall back to its heuristic.
func (a *Analyzer) Analyze(ctx context.Context, actx agent.AnalysisContext, content []byte) (agent.DocumentAnalysis, error) {
	contentHash := hashContent(content)

	if a.cache != nil {
		if cached, err := a.cache.Get(contentHash); err == nil && cached != nil && cached.Version == analysisVersion {
			return toDocumentAnalysis(cached), nil
		}
	}

	text := string(content)
	truncated := false
	if budget := a.provider.MaxInputTokens() * 4; budget > 0 && len(text) > budget {
		text = text[:budget]
		truncated = true
	}

	result, err := a.provider.Analyze(ctx, providers.SemanticInput{
		Path:            actx.FilePath,
		Extension:       actx.FileExtension,
		ParentFolder:    actx.ParentFolder,
		ExistingDomains: actx.ExistingDomains,
		Text:            text,
		TokenEstimate:   len(text) / 4,
		Truncated:       truncated,
	})
	if err != nil {
		return agent.DocumentAnalysis{}, err
	}

	if a.cache != nil {
		if err := a.cache.Set(contentHash, result); err != nil {
			a.logger.Warn("semantic cache write failed", "path", actx.FilePath, "error", err)
		}
	}

	return toDocumentAnalysis(result), nil
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// toDocumentAnalysis maps a provider result onto the orchestrator's shape.
func toDocumentAnalysis(r *providers.SemanticResult) agent.DocumentAnalysis {
	entities := make([]types.Entity, 0, len(r.Entities))
	for _, e := range r.Entities {
		if e.Name == "" {
			continue
		}
		entities = append(entities, types.Entity{
			ID:             uuid.NewString(),
			Name:           e.Name,
			NormalizedName: types.NormalizeEntityName(e.Name),
			Type:           entityTypeFor(e.Type),
			Confidence:     r.Confidence,
		})
	}

	topics := append([]string(nil), r.Topics...)
	for _, kw := range r.Keywords {
		topics = append(topics, strings.ToLower(kw))
	}

	return agent.DocumentAnalysis{
		Summary:         r.Summary,
		Entities:        entities,
		Topics:          topics,
		SuggestedDomain: r.SuggestedDomain,
		Confidence:      r.Confidence,
	}
}

// entityTypeFor maps the provider's lowercase type labels onto the closed
// EntityType set, defaulting to Concept.
func entityTypeFor(label string) types.EntityType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "person":
		return types.EntityPerson
	case "project":
		return types.EntityProject
	case "technology":
		return types.EntityTechnology
	case "date":
		return types.EntityDate
	case "location":
		return types.EntityLocation
	case "organization":
		return types.EntityOrganization
	case "version":
		return types.EntityVersion
	case "url":
		return types.EntityURL
	case "email":
		return types.EntityEmail
	case "file":
		return types.EntityFile
	case "codeelement", "code_element", "code":
		return types.EntityCodeElement
	default:
		return types.EntityConcept
	}
}
