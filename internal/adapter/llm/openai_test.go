package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chat/internal/domain"
	"github.com/xiaot623/gogo/chat/internal/prompt"
)

func testPrompt() *prompt.Prompt {
	log := []domain.Message{
		domain.NewMessage(domain.RoleUser, "hi", time.Time{}),
		domain.NewMessage(domain.RoleAssistant, "hello!", time.Time{}),
		domain.NewMessage(domain.RoleUser, "how are you?", time.Time{}),
	}
	return prompt.NewAssembler("sys", 10).Build(log)
}

func newOpenAIServer(t *testing.T, status int, reply string, got *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  "gpt-3.5-turbo",
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := newOpenAIServer(t, http.StatusOK, "I'm fine", &got)
	gen := NewOpenAIGenerator("test-key", srv.URL+"/v1", "gpt-3.5-turbo")

	text, err := gen.Generate(context.Background(), testPrompt(), Options{Temperature: 0.7, MaxOutputTokens: 500})
	require.NoError(t, err)
	assert.Equal(t, "I'm fine", text)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, got.Messages[2].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[3].Role)
	assert.Equal(t, "how are you?", got.Messages[3].Content)
}

func TestOpenAIGeneratorUpstreamError(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusInternalServerError, "", nil)
	gen := NewOpenAIGenerator("test-key", srv.URL+"/v1", "")

	_, err := gen.Generate(context.Background(), testPrompt(), Options{})
	assert.Error(t, err)
}

func TestOpenAIGeneratorEmptyReply(t *testing.T) {
	srv := newOpenAIServer(t, http.StatusOK, "  ", nil)
	gen := NewOpenAIGenerator("test-key", srv.URL+"/v1", "")

	_, err := gen.Generate(context.Background(), testPrompt(), Options{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIGeneratorModelOverride(t *testing.T) {
	gen := NewOpenAIGenerator("k", "", "")
	assert.Equal(t, openai.GPT3Dot5Turbo, gen.model)

	req := gen.chatRequest(testPrompt(), Options{Model: "gpt-4o"})
	assert.Equal(t, "gpt-4o", req.Model)
}
