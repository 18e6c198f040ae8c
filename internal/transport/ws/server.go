// Package ws provides the WebSocket chat transport.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/chat/internal/config"
	"github.com/xiaot623/gogo/chat/internal/hub"
	"github.com/xiaot623/gogo/chat/internal/protocol"
	"github.com/xiaot623/gogo/chat/internal/service"
)

// turnTimeout bounds a single turn started from a WebSocket message.
const turnTimeout = 2 * time.Minute

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		logger:  logger.With().Str("component", "ws").Logger(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// RegisterRoutes registers the WebSocket endpoint and its stats under prefix.
func (s *Server) RegisterRoutes(e *echo.Echo, prefix string) {
	e.GET(prefix+"/ws", s.HandleWebSocket)
	e.GET(prefix+"/ws/stats", s.HandleStats)
}

// HandleStats returns connection statistics.
// GET {prefix}/ws/stats
func (s *Server) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"connections": s.hub.GetConnectionCount(),
		"sessions":    s.hub.GetSessionCount(),
	})
}

// checkOrigin accepts requests without an Origin header and origins listed
// in the config. "*" allows any origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return nil
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	if s.cfg.WSMaxMessageSize > 0 {
		ws.SetReadLimit(s.cfg.WSMaxMessageSize)
	}

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	s.extendReadDeadline(conn)
	conn.Conn.SetPongHandler(func(string) error {
		s.extendReadDeadline(conn)
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn().Err(err).Str("conn_id", conn.ID).Msg("websocket read error")
			}
			break
		}

		s.extendReadDeadline(conn)
		s.handleMessage(conn, message)
	}
}

func (s *Server) extendReadDeadline(conn *hub.Connection) {
	if s.cfg.WSReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	interval := s.cfg.WSPingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			s.setWriteDeadline(conn)
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn().Err(err).Str("conn_id", conn.ID).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			s.setWriteDeadline(conn)
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) setWriteDeadline(conn *hub.Connection) {
	if s.cfg.WSWriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch baseMsg.Type {
	case protocol.TypeHello:
		s.handleHello(conn, data)
	case protocol.TypeMessage:
		s.handleChat(conn, data)
	case protocol.TypeHistory:
		s.handleHistory(conn, baseMsg)
	case protocol.TypeClear:
		s.handleClear(conn, baseMsg)
	default:
		s.sendError(conn, baseMsg.RequestID, protocol.ErrorCodeInvalidMessage, "unknown message type: "+baseMsg.Type)
	}
}

// handleHello binds the connection to a session and returns its log.
func (s *Server) handleHello(conn *hub.Connection, data []byte) {
	var msg protocol.HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	sessionID := strings.TrimSpace(msg.SessionID)
	if sessionID == "" {
		sessionID = s.service.CreateSession()
	}
	s.hub.BindSession(conn, sessionID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = s.hub.SendJSONToConnection(conn, protocol.HelloAckMessage{
		BaseMessage: protocol.NewBase(protocol.TypeHelloAck, sessionID, msg.RequestID),
		Messages:    s.service.GetHistory(ctx, sessionID),
	})

	s.logger.Debug().Str("conn_id", conn.ID).Str("session_id", sessionID).Msg("hello handshake completed")
}

// handleChat runs a turn without blocking the read loop. The reply goes to
// every connection bound to the session.
func (s *Server) handleChat(conn *hub.Connection, data []byte) {
	var msg protocol.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, "", protocol.ErrorCodeInvalidMessage, "invalid message")
		return
	}

	sessionID := s.hub.SessionOf(conn)
	if sessionID == "" {
		s.sendError(conn, msg.RequestID, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}
	if strings.TrimSpace(msg.Content) == "" {
		s.sendError(conn, msg.RequestID, protocol.ErrorCodeInvalidMessage, "content is required")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()

		reply := s.service.SendMessage(ctx, sessionID, msg.Content)
		if !s.hub.HasActiveConnections(sessionID) {
			s.logger.Debug().Str("session_id", sessionID).Msg("no connections left for session, reply stored only")
			return
		}
		err := s.hub.BroadcastJSON(sessionID, protocol.ReplyMessage{
			BaseMessage: protocol.NewBase(protocol.TypeReply, sessionID, msg.RequestID),
			Message:     reply.Message,
			Timestamp:   reply.Timestamp,
			Code:        reply.Code,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to broadcast reply")
		}
	}()
}

func (s *Server) handleHistory(conn *hub.Connection, msg protocol.BaseMessage) {
	sessionID := s.hub.SessionOf(conn)
	if sessionID == "" {
		s.sendError(conn, msg.RequestID, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = s.hub.SendJSONToConnection(conn, protocol.HistoryMessage{
		BaseMessage: protocol.NewBase(protocol.TypeHistory, sessionID, msg.RequestID),
		Messages:    s.service.GetHistory(ctx, sessionID),
	})
}

func (s *Server) handleClear(conn *hub.Connection, msg protocol.BaseMessage) {
	sessionID := s.hub.SessionOf(conn)
	if sessionID == "" {
		s.sendError(conn, msg.RequestID, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.service.DeleteHistory(ctx, sessionID); err != nil {
		s.sendError(conn, msg.RequestID, protocol.ErrorCodeInternalError, err.Error())
		return
	}
	_ = s.hub.BroadcastJSON(sessionID, protocol.ClearedMessage{
		BaseMessage: protocol.NewBase(protocol.TypeCleared, sessionID, msg.RequestID),
	})
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, requestID, code, message string) {
	_ = s.hub.SendJSONToConnection(conn, protocol.ErrorMessage{
		BaseMessage: protocol.NewBase(protocol.TypeError, s.hub.SessionOf(conn), requestID),
		Code:        code,
		Message:     message,
	})
}
