// Package embeddings provides EmbeddingsProvider implementations (OpenAI,
// Google) behind the pluggable interface the query engine's semantic
// scoring uses. Providers are registered by cmd/providers and wired into
// retrieval when embeddings are enabled in configuration.
package embeddings

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/leefowlercu/memorizer/internal/providers"
)

const (
	openaiDefaultEmbModel = "text-embedding-3-small"
	embeddingsVersion     = 1
)

// OpenAIEmbeddingsProvider implements EmbeddingsProvider on the OpenAI
// embeddings API.
type OpenAIEmbeddingsProvider struct {
	apiKey      string
	model       string
	dimensions  int
	client      *openai.Client
	rateLimiter *providers.RateLimiter
}

// OpenAIEmbeddingsOption configures the OpenAIEmbeddingsProvider.
type OpenAIEmbeddingsOption func(*OpenAIEmbeddingsProvider)

// WithEmbeddingsModel sets the model to use.
func WithEmbeddingsModel(model string) OpenAIEmbeddingsOption {
	return func(p *OpenAIEmbeddingsProvider) {
		p.model = model
	}
}

// WithEmbeddingsDimensions sets the embedding dimensions.
func WithEmbeddingsDimensions(dims int) OpenAIEmbeddingsOption {
	return func(p *OpenAIEmbeddingsProvider) {
		p.dimensions = dims
	}
}

// WithEmbeddingsAPIKey overrides the OPENAI_API_KEY environment lookup.
func WithEmbeddingsAPIKey(key string) OpenAIEmbeddingsOption {
	return func(p *OpenAIEmbeddingsProvider) {
		p.apiKey = key
	}
}

// NewOpenAIEmbeddingsProvider creates a new OpenAI embeddings provider.
func NewOpenAIEmbeddingsProvider(opts ...OpenAIEmbeddingsOption) *OpenAIEmbeddingsProvider {
	p := &OpenAIEmbeddingsProvider{
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		model:      openaiDefaultEmbModel,
		dimensions: 1536, // text-embedding-3-small default
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.apiKey != "" {
		p.client = openai.NewClient(p.apiKey)
	}
	p.rateLimiter = providers.NewRateLimiter(p.RateLimit())

	return p
}

// Name returns the provider's unique identifier.
func (p *OpenAIEmbeddingsProvider) Name() string {
	return "openai-embeddings"
}

// Type returns the provider type.
func (p *OpenAIEmbeddingsProvider) Type() providers.ProviderType {
	return providers.ProviderTypeEmbeddings
}

// Available returns true if the provider is configured and ready.
func (p *OpenAIEmbeddingsProvider) Available() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit configuration.
func (p *OpenAIEmbeddingsProvider) RateLimit() providers.RateLimitConfig {
	return providers.RateLimitConfig{
		RequestsPerMinute: 500,
		TokensPerMinute:   1000000,
		BurstSize:         50,
	}
}

// ModelName returns the name of the embedding model.
func (p *OpenAIEmbeddingsProvider) ModelName() string {
	return p.model
}

// Dimensions returns the dimensionality of the embedding vectors.
func (p *OpenAIEmbeddingsProvider) Dimensions() int {
	return p.dimensions
}

// MaxTokens returns the maximum number of tokens per request.
func (p *OpenAIEmbeddingsProvider) MaxTokens() int {
	return 8191 // text-embedding-3-small limit
}

// supportsDimensions reports whether the model accepts a dimensions
// override.
func (p *OpenAIEmbeddingsProvider) supportsDimensions() bool {
	return p.model == "text-embedding-3-small" || p.model == "text-embedding-3-large"
}

// Embed generates an embedding for the given content.
func (p *OpenAIEmbeddingsProvider) Embed(ctx context.Context, req providers.EmbeddingsRequest) (*providers.EmbeddingsResult, error) {
	batch, err := p.embed(ctx, []string{req.Content})
	if err != nil {
		return nil, err
	}
	if len(batch.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return &providers.EmbeddingsResult{
		Embedding:    batch.Data[0].Embedding,
		ProviderName: p.Name(),
		ModelName:    p.model,
		Dimensions:   len(batch.Data[0].Embedding),
		TokensUsed:   batch.Usage.TotalTokens,
		GeneratedAt:  time.Now(),
		Version:      embeddingsVersion,
	}, nil
}

// EmbedBatch generates embeddings for multiple texts in a single API call.
func (p *OpenAIEmbeddingsProvider) EmbedBatch(ctx context.Context, texts []string) ([]providers.EmbeddingsBatchResult, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings count mismatch; got %d, want %d", len(resp.Data), len(texts))
	}

	results := make([]providers.EmbeddingsBatchResult, len(resp.Data))
	for i, d := range resp.Data {
		results[i] = providers.EmbeddingsBatchResult{
			Index:     i,
			Embedding: d.Embedding,
		}
	}
	// The API reports usage for the whole batch; attribute it to the first
	// item rather than inventing a split.
	if len(results) > 0 {
		results[0].TokensUsed = resp.Usage.TotalTokens
	}

	return results, nil
}

func (p *OpenAIEmbeddingsProvider) embed(ctx context.Context, texts []string) (*openai.EmbeddingResponse, error) {
	if !p.Available() {
		return nil, fmt.Errorf("openai embeddings provider not available; OPENAI_API_KEY not set")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	}
	if p.supportsDimensions() {
		req.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed; %w", err)
	}

	return &resp, nil
}
