package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		TopP            float64 `json:"topP"`
		TopK            float64 `json:"topK"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func newGeminiServer(t *testing.T, status int, body string, got *geminiRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGemini(t *testing.T, baseURL string) *GeminiGenerator {
	t.Helper()
	gen, err := NewGeminiGenerator(context.Background(), "test-key", baseURL, "")
	require.NoError(t, err)
	return gen
}

func TestGeminiGeneratorGenerate(t *testing.T) {
	var got geminiRequest
	srv := newGeminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"namaste"}]},"finishReason":"STOP"}]}`, &got)
	gen := newTestGemini(t, srv.URL)

	text, err := gen.Generate(context.Background(), testPrompt(),
		Options{Temperature: 0.7, MaxOutputTokens: 5000, TopP: 0.95, TopK: 40})
	require.NoError(t, err)
	assert.Equal(t, "namaste", text)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "sys\n\nUser: hi\nAssistant: hello!\nUser: how are you?\nAssistant: ", got.Contents[0].Parts[0].Text)

	assert.InDelta(t, 0.7, got.GenerationConfig.Temperature, 0.001)
	assert.InDelta(t, 0.95, got.GenerationConfig.TopP, 0.001)
	assert.InDelta(t, 40, got.GenerationConfig.TopK, 0.001)
	assert.Equal(t, 5000, got.GenerationConfig.MaxOutputTokens)
}

func TestGeminiGeneratorNoCandidates(t *testing.T) {
	srv := newGeminiServer(t, http.StatusOK, `{"candidates":[]}`, nil)
	gen := newTestGemini(t, srv.URL)

	_, err := gen.Generate(context.Background(), testPrompt(), Options{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiGeneratorUpstreamError(t *testing.T) {
	srv := newGeminiServer(t, http.StatusBadRequest,
		`{"error":{"code":400,"message":"boom","status":"INVALID_ARGUMENT"}}`, nil)
	gen := newTestGemini(t, srv.URL)

	_, err := gen.Generate(context.Background(), testPrompt(), Options{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateConfig(t *testing.T) {
	cfg := generateConfig(Options{Temperature: 0.7, MaxOutputTokens: 5000, TopP: 0.95, TopK: 40})

	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 0.001)
	require.NotNil(t, cfg.TopP)
	assert.InDelta(t, 0.95, *cfg.TopP, 0.001)
	require.NotNil(t, cfg.TopK)
	assert.Equal(t, float32(40), *cfg.TopK)
	assert.Equal(t, int32(5000), cfg.MaxOutputTokens)
}

func TestGenerateConfigZeroOptions(t *testing.T) {
	cfg := generateConfig(Options{})

	assert.Nil(t, cfg.Temperature)
	assert.Nil(t, cfg.TopP)
	assert.Nil(t, cfg.TopK)
	assert.Zero(t, cfg.MaxOutputTokens)
}
