// Package hub provides connection management for WebSocket clients.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex
}

// Hub tracks connections and the sessions they are bound to, and fans
// messages out to every connection of a session.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to set of connection IDs
	sessions map[string]map[string]bool

	unregister chan *Connection
	broadcast  chan *SessionMessage
	done       chan struct{}
	closed     bool

	logger zerolog.Logger
	mu     sync.RWMutex
}

// SessionMessage is used to broadcast a message to a session.
type SessionMessage struct {
	SessionID string
	Data      []byte
}

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// ErrClosed is returned when sending to a connection that is gone.
var ErrClosed = errors.New("connection closed")

// NewHub creates a new Hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *SessionMessage, 256),
		done:        make(chan struct{}),
		logger:      logger.With().Str("component", "hub").Logger(),
	}
}

// Run processes unregistrations and broadcasts until ctx is done. Remaining
// connections have their send channels closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(conn)
			h.mu.Unlock()
			h.logger.Debug().Str("conn_id", conn.ID).Msg("connection unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Connection
			for connID := range h.sessions[msg.SessionID] {
				conn, ok := h.connections[connID]
				if !ok {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					slow = append(slow, conn)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, conn := range slow {
					h.logger.Warn().Str("conn_id", conn.ID).Msg("send buffer full, dropping connection")
					h.removeLocked(conn)
				}
				h.mu.Unlock()
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conn := range h.connections {
		h.removeLocked(conn)
	}
	h.closed = true
	close(h.done)
}

// removeLocked drops conn and closes its send channel. h.mu must be held.
func (h *Hub) removeLocked(conn *Connection) {
	if existing, ok := h.connections[conn.ID]; !ok || existing != conn {
		return
	}
	delete(h.connections, conn.ID)
	h.unbindLocked(conn)
	close(conn.Send)
}

func (h *Hub) bindLocked(conn *Connection, sessionID string) {
	conn.SessionID = sessionID
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]bool)
	}
	h.sessions[sessionID][conn.ID] = true
}

func (h *Hub) unbindLocked(conn *Connection) {
	if conn.SessionID == "" || h.sessions[conn.SessionID] == nil {
		return
	}
	delete(h.sessions[conn.SessionID], conn.ID)
	if len(h.sessions[conn.SessionID]) == 0 {
		delete(h.sessions, conn.SessionID)
	}
}

// NewConnection wraps ws in a Connection with a fresh ID.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.NewString(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register adds a connection to the hub. It is visible to sends as soon as
// Register returns. After the hub has stopped, the send channel is closed
// immediately.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(conn.Send)
		return
	}
	h.connections[conn.ID] = conn
	if conn.SessionID != "" {
		h.bindLocked(conn, conn.SessionID)
	}
	h.logger.Debug().Str("conn_id", conn.ID).Msg("connection registered")
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BindSession binds a connection to a session, leaving any previous one.
func (h *Hub) BindSession(conn *Connection, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.unbindLocked(conn)
	h.bindLocked(conn, sessionID)
}

// SessionOf returns the session a connection is bound to.
func (h *Hub) SessionOf(conn *Connection) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return conn.SessionID
}

// Broadcast sends a message to all connections of a session.
func (h *Hub) Broadcast(sessionID string, data []byte) {
	select {
	case h.broadcast <- &SessionMessage{SessionID: sessionID, Data: data}:
	case <-h.done:
	}
}

// BroadcastJSON sends a JSON message to all connections of a session.
func (h *Hub) BroadcastJSON(sessionID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(sessionID, data)
	return nil
}

// SendToConnection sends a message to a specific connection.
func (h *Hub) SendToConnection(conn *Connection, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if existing, ok := h.connections[conn.ID]; !ok || existing != conn {
		return ErrClosed
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSONToConnection sends a JSON message to a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(conn, data)
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GetSessionCount returns the number of sessions with a bound connection.
func (h *Hub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HasActiveConnections checks if a session has any active connections.
func (h *Hub) HasActiveConnections(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
