package semantic

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

const googleDefaultModel = "gemini-1.5-flash"

// GoogleSemanticProvider implements SemanticProvider on the Gemini API via
// the official generative-ai-go client.
type GoogleSemanticProvider struct {
	apiKey      string
	model       string
	rateLimiter *providers.RateLimiter

	mu     sync.Mutex
	client *genai.Client
}

// GoogleSemanticOption configures the GoogleSemanticProvider.
type GoogleSemanticOption func(*GoogleSemanticProvider)

// WithGoogleModel sets the model to use.
func WithGoogleModel(model string) GoogleSemanticOption {
	return func(p *GoogleSemanticProvider) {
		p.model = model
	}
}

// WithGoogleAPIKey overrides the GOOGLE_API_KEY environment lookup.
func WithGoogleAPIKey(key string) GoogleSemanticOption {
	return func(p *GoogleSemanticProvider) {
		p.apiKey = key
	}
}

// NewGoogleSemanticProvider creates a new Google semantic provider.
func NewGoogleSemanticProvider(opts ...GoogleSemanticOption) *GoogleSemanticProvider {
	p := &GoogleSemanticProvider{
		apiKey: os.Getenv("GOOGLE_API_KEY"),
		model:  googleDefaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.rateLimiter = providers.NewRateLimiter(p.RateLimit())

	return p
}

// ensureClient lazily dials the Gemini API; the client is reused across
// calls once created.
func (p *GoogleSemanticProvider) ensureClient(ctx context.Context) (*genai.Client, error) {
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
func (p *GoogleSemanticProvider) Close() error {
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
func (p *GoogleSemanticProvider) Name() string {
	return "google"
}

// Type returns the provider type.
func (p *GoogleSemanticProvider) Type() providers.ProviderType {
	return providers.ProviderTypeSemantic
}

// Available returns true if the provider is configured and ready.
func (p *GoogleSemanticProvider) Available() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit configuration.
func (p *GoogleSemanticProvider) RateLimit() providers.RateLimitConfig {
	return providers.RateLimitConfig{
		RequestsPerMinute: 60,
		TokensPerMinute:   100000,
		BurstSize:         10,
	}
}

// ModelName returns the configured model name.
func (p *GoogleSemanticProvider) ModelName() string {
	return p.model
}

// MaxInputTokens returns the largest input the model accepts.
func (p *GoogleSemanticProvider) MaxInputTokens() int {
	return 200000
}

// Analyze performs semantic analysis on one document.
func (p *GoogleSemanticProvider) Analyze(ctx context.Context, input providers.SemanticInput) (*providers.SemanticResult, error) {
	if !p.Available() {
		return nil, fmt.Errorf("google provider not available; GOOGLE_API_KEY not set")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.ResponseMIMEType = "application/json"
	temp := float32(0.1)
	model.Temperature = &temp

	resp, err := model.GenerateContent(ctx, genai.Text(buildUserPrompt(input)))
	if err != nil {
		return nil, fmt.Errorf("generate content failed; %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	result, err := parseAnalysisResponse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis; %w", err)
	}

	result.ProviderName = p.Name()
	result.ModelName = p.model
	result.AnalyzedAt = time.Now()
	if resp.UsageMetadata != nil {
		result.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	result.Version = analysisVersion

	return result, nil
}

// firstText extracts the first text part of the first candidate.
func firstText(resp *genai.GenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok && t != "" {
				return string(t)
			}
		}
	}
	return ""
}
