// Package v1 provides the chat HTTP handlers.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/chat/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the chat routes under prefix, plus the status
// and health routes at the root.
func (h *Handler) RegisterRoutes(e *echo.Echo, prefix string) {
	g := e.Group(prefix)
	g.GET("/session", h.CreateSession)
	g.GET("/history/:session_id", h.GetHistory)
	g.POST("/message", h.SendMessage)
	g.DELETE("/history/:session_id", h.DeleteHistory)

	e.GET("/", h.Status)
	e.GET("/health", h.Health)
}

// Status returns a banner naming the active provider.
// GET /
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "running",
		"provider": h.service.Provider(),
		"ready":    h.service.Ready(),
	})
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	if err := h.service.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
