package semantic

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/leefowlercu/memorizer/internal/providers"
)

const openaiDefaultModel = "gpt-4o-mini"

// OpenAISemanticProvider implements SemanticProvider on the OpenAI chat
// completions API with a JSON response format.
type OpenAISemanticProvider struct {
	apiKey      string
	model       string
	client      *openai.Client
	rateLimiter *providers.RateLimiter
}

// OpenAISemanticOption configures the OpenAISemanticProvider.
type OpenAISemanticOption func(*OpenAISemanticProvider)

// WithOpenAIModel sets the model to use.
func WithOpenAIModel(model string) OpenAISemanticOption {
	return func(p *OpenAISemanticProvider) {
		p.model = model
	}
}

// WithOpenAIAPIKey overrides the OPENAI_API_KEY environment lookup.
func WithOpenAIAPIKey(key string) OpenAISemanticOption {
	return func(p *OpenAISemanticProvider) {
		p.apiKey = key
	}
}

// NewOpenAISemanticProvider creates a new OpenAI semantic provider.
func NewOpenAISemanticProvider(opts ...OpenAISemanticOption) *OpenAISemanticProvider {
	p := &OpenAISemanticProvider{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		model:  openaiDefaultModel,
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
func (p *OpenAISemanticProvider) Name() string {
	return "openai"
}

// Type returns the provider type.
func (p *OpenAISemanticProvider) Type() providers.ProviderType {
	return providers.ProviderTypeSemantic
}

// Available returns true if the provider is configured and ready.
func (p *OpenAISemanticProvider) Available() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit configuration.
func (p *OpenAISemanticProvider) RateLimit() providers.RateLimitConfig {
	return providers.RateLimitConfig{
		RequestsPerMinute: 500,
		TokensPerMinute:   200000,
		BurstSize:         50,
	}
}

// ModelName returns the configured model name.
func (p *OpenAISemanticProvider) ModelName() string {
	return p.model
}

// MaxInputTokens returns the largest input the model accepts.
func (p *OpenAISemanticProvider) MaxInputTokens() int {
	return 120000
}

// Analyze performs semantic analysis on one document.
func (p *OpenAISemanticProvider) Analyze(ctx context.Context, input providers.SemanticInput) (*providers.SemanticResult, error) {
	if !p.Available() {
		return nil, fmt.Errorf("openai provider not available; OPENAI_API_KEY not set")
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed; %w", err)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(input)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed; %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	result, err := parseAnalysisResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis; %w", err)
	}

	result.ProviderName = p.Name()
	result.ModelName = p.model
	result.AnalyzedAt = time.Now()
	result.TokensUsed = resp.Usage.TotalTokens
	result.Version = analysisVersion

	return result, nil
}
