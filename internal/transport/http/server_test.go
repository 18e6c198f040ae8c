package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/chat/internal/adapter/llm"
	"github.com/xiaot623/gogo/chat/internal/config"
	"github.com/xiaot623/gogo/chat/internal/domain"
	"github.com/xiaot623/gogo/chat/internal/hub"
	"github.com/xiaot623/gogo/chat/internal/logging"
	"github.com/xiaot623/gogo/chat/internal/service"
	"github.com/xiaot623/gogo/chat/tests/helpers"
)

func newTestServer(t *testing.T, logger zerolog.Logger) *echo.Echo {
	t.Helper()
	cfg := &config.Config{
		LLMProvider:    config.ProviderMock,
		RoutePrefix:    "/api/chat",
		AllowedOrigins: []string{"http://localhost:5173"},
		WindowSize:     10,
	}
	svc := service.New(helpers.NewTestSQLiteStore(t), llm.NewMockGenerator(), cfg, nil, logger)
	return NewServer(cfg, svc, hub.NewHub(logger), logger)
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChatScenario(t *testing.T) {
	e := newTestServer(t, zerolog.Nop())

	rec := do(e, http.MethodGet, "/api/chat/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var session domain.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.SessionID)

	rec = do(e, http.MethodPost, "/api/chat/message", `{"sessionId":"`+session.SessionID+`","message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var reply domain.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.NotEmpty(t, reply.Message)

	rec = do(e, http.MethodGet, "/api/chat/history/"+session.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history domain.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Messages, 2)
	assert.Equal(t, domain.RoleUser, history.Messages[0].Role)
	assert.Equal(t, "hello", history.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, history.Messages[1].Role)

	rec = do(e, http.MethodDelete, "/api/chat/history/"+session.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/api/chat/history/"+session.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessionId":"`+session.SessionID+`","messages":[]}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	e := newTestServer(t, zerolog.Nop())

	req := httptest.NewRequest(http.MethodOptions, "/api/chat/message", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

func TestRequestIDAndLogging(t *testing.T) {
	var buf bytes.Buffer
	e := newTestServer(t, logging.NewWithWriter(&buf, "info"))

	rec := do(e, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	requestID := rec.Header().Get(echo.HeaderXRequestID)
	assert.NotEmpty(t, requestID)
	assert.Contains(t, buf.String(), requestID)
	assert.Contains(t, buf.String(), `"uri":"/"`)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	e := newTestServer(t, zerolog.Nop())

	rec := do(e, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
