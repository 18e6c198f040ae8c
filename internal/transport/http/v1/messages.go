package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

// CreateSession issues a new session id.
// GET /session
func (h *Handler) CreateSession(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.SessionResponse{
		SessionID: h.service.CreateSession(),
	})
}

// GetHistory returns the session log. Unknown sessions return an empty list.
// GET /history/:session_id
func (h *Handler) GetHistory(c echo.Context) error {
	sessionID := c.Param("session_id")
	return c.JSON(http.StatusOK, domain.HistoryResponse{
		SessionID: sessionID,
		Messages:  h.service.GetHistory(c.Request().Context(), sessionID),
	})
}

// SendMessage runs one chat turn. Turn failures are reported in the reply
// body with a code, not with an error status.
// POST /message
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "sessionId is required"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	reply := h.service.SendMessage(c.Request().Context(), req.SessionID, req.Message)
	return c.JSON(http.StatusOK, reply)
}

// DeleteHistory clears the session log.
// DELETE /history/:session_id
func (h *Handler) DeleteHistory(c echo.Context) error {
	if err := h.service.DeleteHistory(c.Request().Context(), c.Param("session_id")); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, domain.StatusResponse{Message: "Chat history cleared"})
}
