// Package repository defines the session store and its implementations.
package repository

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/chat/internal/config"
	"github.com/xiaot623/gogo/chat/internal/domain"
)

// Store persists session documents. Each session id maps to at most one
// document holding the ordered message log.
type Store interface {
	// GetSession returns the session document, or nil when none exists.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// AppendMessages appends msgs to the end of the session log, creating the
	// document when absent. All msgs of one call are persisted together.
	AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error

	// DeleteSession removes the document. Deleting an absent session is not an error.
	DeleteSession(ctx context.Context, sessionID string) error

	Ping(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite, "":
		return NewSQLiteStore(cfg.DatabaseURL)
	case config.StoreMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
