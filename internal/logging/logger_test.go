package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "v", entry["k"])
}

func TestNewWithWriterUnknownLevel(t *testing.T) {
	logger := NewWithWriter(&bytes.Buffer{}, "loud")
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(NewWithWriter(&buf, "info")))
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/ping", entry["uri"])
	assert.EqualValues(t, 200, entry["status"])
}
