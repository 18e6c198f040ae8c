// Package llm provides the language-model providers used to generate replies.
package llm

import (
	"context"
	"errors"

	"github.com/xiaot623/gogo/chat/internal/prompt"
)

var (
	// ErrMissingCredential is returned when the selected provider has no API key.
	ErrMissingCredential = errors.New("llm: missing api credential")
	// ErrEmptyResponse is returned when the provider answers without text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Options are the sampling settings passed to a provider. Zero values are
// left to the provider's defaults.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int
	TopP            float32
	TopK            int
}

// Generator produces a single reply for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, p *prompt.Prompt, opts Options) (string, error)
}
