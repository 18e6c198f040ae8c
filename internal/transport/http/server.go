// Package http provides the HTTP server implementation for the chat backend.
package http

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/chat/internal/config"
	"github.com/xiaot623/gogo/chat/internal/hub"
	"github.com/xiaot623/gogo/chat/internal/logging"
	"github.com/xiaot623/gogo/chat/internal/service"
	v1 "github.com/xiaot623/gogo/chat/internal/transport/http/v1"
	"github.com/xiaot623/gogo/chat/internal/transport/ws"
)

// NewServer creates and configures the HTTP server with the REST routes and
// the WebSocket endpoint. A nil hub leaves the WebSocket endpoint out.
func NewServer(cfg *config.Config, svc *service.Service, h *hub.Hub, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logging.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
	}))

	// Handlers
	v1Handler := v1.NewHandler(svc)
	v1Handler.RegisterRoutes(e, cfg.RoutePrefix)

	if h != nil {
		wsServer := ws.NewServer(cfg, h, svc, logger)
		wsServer.RegisterRoutes(e, cfg.RoutePrefix)
	}

	return e
}
