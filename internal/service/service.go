// Package service implements session management and the chat turn.
package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xiaot623/gogo/chat/internal/adapter/llm"
	"github.com/xiaot623/gogo/chat/internal/config"
	"github.com/xiaot623/gogo/chat/internal/policy"
	"github.com/xiaot623/gogo/chat/internal/prompt"
	"github.com/xiaot623/gogo/chat/internal/repository"
)

// Service runs chat turns against a store and a generator.
// A nil generator means no credential is configured; a nil policy engine
// disables message checks.
type Service struct {
	store        repository.Store
	generator    llm.Generator
	policyEngine *policy.Engine
	assembler    *prompt.Assembler
	options      llm.Options
	config       *config.Config
	logger       zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a new service instance.
func New(store repository.Store, generator llm.Generator, cfg *config.Config, policyEngine *policy.Engine, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		generator:    generator,
		policyEngine: policyEngine,
		assembler:    prompt.NewAssembler(cfg.SystemPrompt, cfg.WindowSize),
		options:      llm.OptionsFromConfig(cfg),
		config:       cfg,
		logger:       logger.With().Str("component", "service").Logger(),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// Provider returns the configured provider name.
func (s *Service) Provider() string {
	return s.config.LLMProvider
}

// Ready reports whether a generator is configured.
func (s *Service) Ready() bool {
	return s.generator != nil
}
