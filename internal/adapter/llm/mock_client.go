package llm

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/chat/internal/prompt"
)

// MockGenerator is a deterministic Generator for local runs and tests.
type MockGenerator struct{}

// NewMockGenerator creates a new mock generator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Ensure MockGenerator implements Generator interface.
var _ Generator = (*MockGenerator)(nil)

// Generate echoes the user turn back.
func (m *MockGenerator) Generate(ctx context.Context, p *prompt.Prompt, opts Options) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if p.Turn == "" {
		return "[MOCK] This is a mock response.", nil
	}
	return fmt.Sprintf("[MOCK] Received your message: %q (%d messages of context). This is a mock response.",
		truncate(p.Turn, 100), len(p.Context)), nil
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
