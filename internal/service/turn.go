package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/chat/internal/domain"
	"github.com/xiaot623/gogo/chat/internal/policy"
)

// Messages returned instead of a model reply.
const (
	FallbackMessage = "AI service is temporarily unavailable, please try again later."
	NoModelMessage  = "No language model is configured on the server."
)

// SendMessage runs one turn: the user message is appended, a windowed
// prompt is sent to the generator and the reply is appended. Both messages
// are persisted together. It always returns a reply; failures produce a
// fallback text with a code.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) *domain.Reply {
	logger := s.logger.With().Str("session_id", sessionID).Logger()

	if reply := s.checkPolicy(ctx, sessionID, text); reply != nil {
		return reply
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load session, continuing with empty log")
		session = nil
	}
	if session == nil {
		session = domain.NewSession(sessionID, s.now())
	}

	userMsg := domain.NewMessage(domain.RoleUser, text, s.now())
	session.Append(userMsg)

	content, code := s.generate(ctx, session)
	if code != "" {
		logger.Warn().Str("code", string(code)).Msg("turn answered with fallback")
	}

	assistantMsg := domain.NewMessage(domain.RoleAssistant, content, s.now())
	if err := s.store.AppendMessages(ctx, sessionID, userMsg, assistantMsg); err != nil {
		logger.Error().Err(err).Msg("failed to persist turn")
	}

	return &domain.Reply{
		Message:   content,
		Timestamp: assistantMsg.Timestamp,
		Code:      code,
	}
}

// generate returns the assistant text for the session log and, when no
// model reply was obtained, the reason code.
func (s *Service) generate(ctx context.Context, session *domain.Session) (string, domain.ReplyCode) {
	if s.generator == nil {
		return s.missingCredentialMessage(), domain.ReplyCodeConfigError
	}

	p := s.assembler.Build(session.Messages)

	if s.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LLMTimeout)
		defer cancel()
	}

	start := s.now()
	text, err := s.generator.Generate(ctx, p, s.options)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", session.SessionID).Msg("generation failed")
		return FallbackMessage, domain.ReplyCodeUpstreamError
	}
	if strings.TrimSpace(text) == "" {
		s.logger.Error().Str("session_id", session.SessionID).Msg("generation returned empty text")
		return FallbackMessage, domain.ReplyCodeUpstreamError
	}

	s.logger.Debug().
		Str("session_id", session.SessionID).
		Int("log_messages", session.Len()).
		Int("context_messages", len(p.Context)).
		Dur("latency", s.now().Sub(start)).
		Msg("reply generated")
	return text, ""
}

func (s *Service) missingCredentialMessage() string {
	env := s.config.CredentialEnv()
	if env == "" {
		return NoModelMessage
	}
	return fmt.Sprintf("%s is not configured. Set it in the environment or config file and restart the server.", env)
}

// checkPolicy returns a rejection reply when the message is blocked.
// Evaluation errors let the message through.
func (s *Service) checkPolicy(ctx context.Context, sessionID, text string) *domain.Reply {
	if s.policyEngine == nil {
		return nil
	}

	res, err := s.policyEngine.Evaluate(ctx, policy.NewInput(sessionID, text, s.config.MaxMessageLength))
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("policy evaluation failed")
		return nil
	}
	if res.Allowed() {
		return nil
	}

	s.logger.Info().Str("session_id", sessionID).Str("reason", res.Reason()).Msg("message rejected")
	return &domain.Reply{
		Message:   "Message rejected: " + res.Reason(),
		Timestamp: s.now(),
		Code:      domain.ReplyCodeRejected,
	}
}
