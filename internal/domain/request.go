package domain

import "time"

// SendMessageRequest is the body of POST /message.
type SendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// Reply is the outcome of one turn. Every turn produces a reply, including
// failed ones, so callers never have to special-case a broken turn.
type Reply struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Code      ReplyCode `json:"code,omitempty"`
}

// Failed reports whether the reply is a fallback rather than a model answer.
func (r *Reply) Failed() bool {
	return r.Code != ""
}

// SessionResponse is returned when a new session id is issued.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

// HistoryResponse is returned for a history lookup.
type HistoryResponse struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
}

// StatusResponse carries a human-readable confirmation.
type StatusResponse struct {
	Message string `json:"message"`
}
