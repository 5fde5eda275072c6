// Package providers defines the pluggable AI backends the core pipeline can
// call out to: semantic providers produce LLM-backed document analyses that
// stand in for the built-in heuristic, and embeddings providers produce the
// vectors behind semantic retrieval. The core never requires either; both
// interfaces degrade to heuristics when no provider is configured.
package providers

import (
	"context"
	"time"
)

// ProviderType represents the type of provider.
type ProviderType string

const (
	ProviderTypeSemantic   ProviderType = "semantic"
	ProviderTypeEmbeddings ProviderType = "embeddings"
)

// Provider is the base interface for all providers.
type Provider interface {
	// Name returns the provider's unique identifier.
	Name() string

	// Type returns the provider type.
	Type() ProviderType

	// Available returns true if the provider is configured and ready.
	Available() bool

	// RateLimit returns the rate limit configuration for this provider.
	RateLimit() RateLimitConfig
}

// RateLimitConfig defines rate limiting parameters for a provider.
type RateLimitConfig struct {
	RequestsPerMinute int
	TokensPerMinute   int
	BurstSize         int
}

// SemanticInput is one document handed to a semantic provider for analysis,
// mirroring the orchestrator's AnalysisContext plus the file content itself.
type SemanticInput struct {
	// Path is the file being analyzed.
	Path string

	// Extension is the file's extension without the leading dot.
	Extension string

	// ParentFolder is the containing folder's path.
	ParentFolder string

	// ExistingDomains lists domain names already present in the tree, so
	// the provider can prefer one of them over inventing a near-duplicate.
	ExistingDomains []string

	// Text is the document content, possibly truncated to the provider's
	// input budget.
	Text string

	// TokenEstimate is the estimated token count of Text.
	TokenEstimate int

	// Truncated indicates Text was cut down before submission.
	Truncated bool
}

// SemanticResult is a provider-produced document analysis. Its fields map
// one-to-one onto the orchestrator's DocumentAnalysis.
type SemanticResult struct {
	// Summary is a concise description of the document.
	Summary string `json:"summary"`

	// Topics are normalized topic labels, used as node keywords.
	Topics []string `json:"topics"`

	// Entities are named entities the provider recognized.
	Entities []Entity `json:"entities"`

	// Keywords are additional important terms from the content.
	Keywords []string `json:"keywords,omitempty"`

	// SuggestedDomain is the provider's domain vote, empty when it has no
	// opinion.
	SuggestedDomain string `json:"suggested_domain,omitempty"`

	// Confidence is the provider's overall confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// ProviderName is the name of the provider that generated this result.
	ProviderName string `json:"provider_name"`

	// ModelName is the specific model used.
	ModelName string `json:"model_name"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// TokensUsed is the number of tokens consumed.
	TokensUsed int `json:"tokens_used"`

	// Version is the analysis version for cache invalidation.
	Version int `json:"version"`
}

// Entity is a named entity recognized by a semantic provider. Type uses the
// same labels as the pattern extractor (person, project, technology, ...).
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SemanticProvider analyzes a document and extracts its summary, topics,
// entities, and domain vote.
type SemanticProvider interface {
	Provider

	// Analyze performs semantic analysis on one document.
	Analyze(ctx context.Context, input SemanticInput) (*SemanticResult, error)

	// ModelName returns the model identifier used by this provider.
	ModelName() string

	// MaxInputTokens returns the largest input the model accepts; callers
	// truncate Text beyond this.
	MaxInputTokens() int
}

// EmbeddingsProvider generates vector embeddings from content.
type EmbeddingsProvider interface {
	Provider

	// Embed generates an embedding for the given content.
	Embed(ctx context.Context, req EmbeddingsRequest) (*EmbeddingsResult, error)

	// EmbedBatch generates embeddings for multiple texts in a single API
	// call, cheaper than repeated Embed calls for multi-chunk documents.
	EmbedBatch(ctx context.Context, texts []string) ([]EmbeddingsBatchResult, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the dimensionality of the embedding vectors.
	Dimensions() int

	// MaxTokens returns the maximum number of tokens per request.
	MaxTokens() int
}

// EmbeddingsRequest represents a request for embeddings generation.
type EmbeddingsRequest struct {
	// Content is the text to embed.
	Content string

	// ChunkID identifies this chunk for caching.
	ChunkID string

	// ContentHash is the hash of the content for cache lookup.
	ContentHash string
}

// EmbeddingsResult contains the results of embeddings generation.
type EmbeddingsResult struct {
	// Embedding is the vector representation.
	Embedding []float32 `json:"embedding"`

	// ProviderName is the name of the provider.
	ProviderName string `json:"provider_name"`

	// ModelName is the specific model used.
	ModelName string `json:"model_name"`

	// Dimensions is the dimensionality of the embedding.
	Dimensions int `json:"dimensions"`

	// TokensUsed is the number of tokens consumed.
	TokensUsed int `json:"tokens_used"`

	// GeneratedAt is when the embedding was generated.
	GeneratedAt time.Time `json:"generated_at"`

	// Version is the embedding version for cache invalidation.
	Version int `json:"version"`
}

// EmbeddingsBatchResult contains the result for a single item in a batch.
type EmbeddingsBatchResult struct {
	// Index is the position in the original input array.
	Index int `json:"index"`

	// Embedding is the vector representation.
	Embedding []float32 `json:"embedding"`

	// TokensUsed is the number of tokens consumed for this item.
	TokensUsed int `json:"tokens_used"`
}
