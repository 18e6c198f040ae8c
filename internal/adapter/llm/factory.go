package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/xiaot623/gogo/chat/internal/config"
)

const (
	// EnvChatMode is the environment variable name for mode selection.
	EnvChatMode = "CHAT_MODE"
	// ModeMock forces the mock generator regardless of the configured provider.
	ModeMock = "MOCK"
)

// NewGenerator creates the generator for the configured provider.
// It returns ErrMissingCredential when the provider needs an API key and
// none is set.
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	provider := cfg.LLMProvider
	if os.Getenv(EnvChatMode) == ModeMock {
		provider = config.ProviderMock
	}

	switch provider {
	case config.ProviderMock:
		return NewMockGenerator(), nil
	case config.ProviderOpenAI, config.ProviderGemini, "":
		apiKey := cfg.APIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("%w: set %s", ErrMissingCredential, cfg.CredentialEnv())
		}
		if provider == config.ProviderOpenAI {
			return NewOpenAIGenerator(apiKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
		}
		return NewGeminiGenerator(ctx, apiKey, cfg.GeminiBaseURL, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// OptionsFromConfig returns the sampling options for the configured provider.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens(),
		TopP:            cfg.TopP,
		TopK:            cfg.TopK,
	}
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		opts.Model = cfg.OpenAIModel
	case config.ProviderGemini:
		opts.Model = cfg.GeminiModel
	}
	return opts
}
