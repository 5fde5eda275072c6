package embeddings

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/leefowlercu/memorizer/internal/providers"
)

const googleDefaultEmbModel = "text-embedding-004"

// GoogleEmbeddingsProvider implements EmbeddingsProvider on the Gemini API
// via the official generative-ai-go client.
type GoogleEmbeddingsProvider struct {
	apiKey      string
	model       string
	rateLimiter *providers.RateLimiter

	mu     sync.Mutex
	client *genai.Client
}

// GoogleEmbeddingsOption configures the GoogleEmbeddingsProvider.
type GoogleEmbeddingsOption func(*GoogleEmbeddingsProvider)

// WithGoogleEmbeddingsModel sets the model to use.
func WithGoogleEmbeddingsModel(model string) GoogleEmbeddingsOption {
	return func(p *GoogleEmbeddingsProvider) {
		p.model = model
	}
}

// WithGoogleEmbeddingsAPIKey overrides the GOOGLE_API_KEY environment lookup.
func WithGoogleEmbeddingsAPIKey(key string) GoogleEmbeddingsOption {
	return func(p *GoogleEmbeddingsProvider) {
		p.apiKey = key
	}
}

// NewGoogleEmbeddingsProvider creates a new Google embeddings provider.
func NewGoogleEmbeddingsProvider(opts ...GoogleEmbeddingsOption) *GoogleEmbeddingsProvider {
	p := &GoogleEmbeddingsProvider{
		apiKey: os.Getenv("GOOGLE_API_KEY"),
		model:  googleDefaultEmbModel,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.rateLimiter = providers.NewRateLimiter(p.RateLimit())

	return p
}

func (p *GoogleEmbeddingsProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client; %w", err)
	}
	p.client = client
	return client, nil
}

// Close releases the underlying API client.
func (p *GoogleEmbeddingsProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// Name returns the provider's unique identifier.
func (p *GoogleEmbeddingsProvider) Name() string {
	return "google-embeddings"
}

// Type returns the provider type.
func (p *GoogleEmbeddingsProvider) Type() providers.ProviderType {
	return providers.ProviderTypeEmbeddings
}

// Available returns true if the provider is configured and ready.
func (p *GoogleEmbeddingsProvider) Available() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit configuration.
func (p *GoogleEmbeddingsProvider) RateLimit() providers.RateLimitConfig {
	return providers.RateLimitConfig{
		RequestsPerMinute: 300,
		TokensPerMinute:   1000000,
		BurstSize:         30,
	}
}

// ModelName returns the name of the embedding model.
func (p *GoogleEmbeddingsProvider) ModelName() string {
	return p.model
}

// Dimensions returns the dimensionality of the embedding vectors.
func (p *GoogleEmbeddingsProvider) Dimensions() int {
	return 768 // text-embedding-004 output size
}

// MaxTokens returns the maximum number of tokens per request.
func (p *GoogleEmbeddingsProvider) MaxTokens() int {
	return 2048
}

// Embed generates an embedding for the given content.
func (p *GoogleEmbeddingsProvider) Embed(ctx context.Context, req providers.EmbeddingsRequest) (*providers.EmbeddingsResult, error) {
	if !p.Available() {
		return nil, fmt.Errorf("google embeddings provider not available; GOOGLE_API_KEY not set")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	res, err := client.EmbeddingModel(p.model).EmbedContent(ctx, genai.Text(req.Content))
	if err != nil {
		return nil, fmt.Errorf("embed content failed; %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return &providers.EmbeddingsResult{
		Embedding:    res.Embedding.Values,
		ProviderName: p.Name(),
		ModelName:    p.model,
		Dimensions:   len(res.Embedding.Values),
		TokensUsed:   0, // the API does not report token usage for embeddings
		GeneratedAt:  time.Now(),
		Version:      embeddingsVersion,
	}, nil
}

// EmbedBatch generates embeddings for multiple texts in a single API call.
func (p *GoogleEmbeddingsProvider) EmbedBatch(ctx context.Context, texts []string) ([]providers.EmbeddingsBatchResult, error) {
	if !p.Available() {
		return nil, fmt.Errorf("google embeddings provider not available; GOOGLE_API_KEY not set")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	em := client.EmbeddingModel(p.model)
	batch := em.NewBatch()
	for _, text := range texts {
		batch = batch.AddContent(genai.Text(text))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("batch embed failed; %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embeddings count mismatch; got %d, want %d", len(res.Embeddings), len(texts))
	}

	results := make([]providers.EmbeddingsBatchResult, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		results[i] = providers.EmbeddingsBatchResult{
			Index:     i,
			Embedding: emb.Values,
		}
	}

	return results, nil
}
