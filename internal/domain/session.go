package domain

import "time"

// Session is a conversation document: one per session id, holding the
// ordered message log. It is the only definition of the stored shape.
type Session struct {
	SessionID string    `json:"sessionId" bson:"sessionId"`
	Messages  []Message `json:"messages" bson:"messages"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Message represents a single message in a session log.
// Messages are immutable once appended.
type Message struct {
	Role      Role      `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// NewSession returns an empty session bound to sessionID.
func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMessage creates a message, defaulting the timestamp to the current time.
func NewMessage(role Role, content string, ts time.Time) Message {
	if ts.IsZero() {
		ts = time.Now()
	}
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
}

// Append adds messages to the end of the log.
func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
	if n := len(msgs); n > 0 {
		s.UpdatedAt = msgs[n-1].Timestamp
	}
}

// Len returns the number of messages in the log.
func (s *Session) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Messages)
}
