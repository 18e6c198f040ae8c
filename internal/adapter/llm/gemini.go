package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/xiaot623/gogo/chat/internal/prompt"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator generates replies with the Gemini API. It sends the prompt
// as a single transcript text.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini API client. An empty baseURL uses the
// public endpoint.
func NewGeminiGenerator(ctx context.Context, apiKey, baseURL, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Ensure GeminiGenerator implements Generator interface.
var _ Generator = (*GeminiGenerator)(nil)

// Generate sends one generate-content request and returns its text.
func (g *GeminiGenerator) Generate(ctx context.Context, p *prompt.Prompt, opts Options) (string, error) {
	model := g.model
	if opts.Model != "" {
		model = opts.Model
	}

	res, err := g.client.Models.GenerateContent(ctx, model, genai.Text(p.Text()), generateConfig(opts))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := res.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// generateConfig maps options onto the request config, leaving unset values nil.
func generateConfig(opts Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		temp := opts.Temperature
		cfg.Temperature = &temp
	}
	if opts.TopP > 0 {
		topP := opts.TopP
		cfg.TopP = &topP
	}
	if opts.TopK > 0 {
		topK := float32(opts.TopK)
		cfg.TopK = &topK
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}
	return cfg
}
