// Package protocol defines the WebSocket message protocol between chat
// clients and the server.
package protocol

import (
	"time"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

// Message types from client to server
const (
	TypeHello   = "hello"
	TypeMessage = "message"
	TypeHistory = "history"
	TypeClear   = "clear"
)

// Message types from server to client. History answers use TypeHistory.
const (
	TypeHelloAck = "hello_ack"
	TypeReply    = "reply"
	TypeCleared  = "cleared"
	TypeError    = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// NewBase returns a BaseMessage stamped with the current time.
func NewBase(typ, sessionID, requestID string) BaseMessage {
	return BaseMessage{
		Type:      typ,
		Ts:        time.Now().UnixMilli(),
		RequestID: requestID,
		SessionID: sessionID,
	}
}

// HelloMessage is sent by client to bind the connection to a session.
// An empty session_id asks the server to issue one.
type HelloMessage struct {
	BaseMessage
}

// HelloAckMessage is sent after a successful hello with the current log.
type HelloAckMessage struct {
	BaseMessage
	Messages []domain.Message `json:"messages"`
}

// ChatMessage is sent by client to run a turn.
type ChatMessage struct {
	BaseMessage
	Content string `json:"content"`
}

// ReplyMessage carries the outcome of a turn to every connection bound to
// the session.
type ReplyMessage struct {
	BaseMessage
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Code      domain.ReplyCode `json:"code,omitempty"`
}

// HistoryMessage answers a history request.
type HistoryMessage struct {
	BaseMessage
	Messages []domain.Message `json:"messages"`
}

// ClearedMessage is broadcast after a session's history is deleted.
type ClearedMessage struct {
	BaseMessage
}

// ErrorMessage is sent when a client message cannot be handled.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeInternalError   = "internal_error"
)
