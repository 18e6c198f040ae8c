package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

// CreateSession issues a fresh session id. Nothing is stored until the
// first message.
func (s *Service) CreateSession() string {
	id := s.newID()
	s.logger.Debug().Str("session_id", id).Msg("session created")
	return id
}

// GetHistory returns the session log in order. Unknown sessions and storage
// failures both yield an empty, non-nil slice.
func (s *Service) GetHistory(ctx context.Context, sessionID string) []domain.Message {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load history")
		return []domain.Message{}
	}
	if session == nil || session.Messages == nil {
		return []domain.Message{}
	}
	return session.Messages
}

// AppendMessage appends one message to the session log, creating the
// session if needed.
func (s *Service) AppendMessage(ctx context.Context, sessionID string, msg domain.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("invalid message role %q", msg.Role)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	if err := s.store.AppendMessages(ctx, sessionID, msg); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// DeleteHistory removes the session. Deleting an unknown session is not an error.
func (s *Service) DeleteHistory(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info().Str("session_id", sessionID).Msg("history cleared")
	return nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
