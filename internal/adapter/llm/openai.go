package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/xiaot623/gogo/chat/internal/prompt"
)

// OpenAIGenerator generates replies with the chat completions API. It sends
// the prompt as a role-tagged message list.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator. An empty baseURL uses the public API.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Ensure OpenAIGenerator implements Generator interface.
var _ Generator = (*OpenAIGenerator)(nil)

// Generate sends one chat completion request and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, p *prompt.Prompt, opts Options) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.chatRequest(p, opts))
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *OpenAIGenerator) chatRequest(p *prompt.Prompt, opts Options) openai.ChatCompletionRequest {
	model := g.model
	if opts.Model != "" {
		model = opts.Model
	}

	msgs := p.Messages()
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(msgs)),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
		TopP:        opts.TopP,
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}
	return req
}

func openAIRole(r prompt.PromptRole) string {
	switch r {
	case prompt.RoleSystem:
		return openai.ChatMessageRoleSystem
	case prompt.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
