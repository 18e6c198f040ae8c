package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// SQLiteStore implements Store using SQLite. Each session is one row whose
// messages column holds the JSON-encoded log, so a row is the document.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store and applies migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs the embedded goose migrations.
func (s *SQLiteStore) migrate() error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(s.db, "migrations")
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return getSession(ctx, s.db, sessionID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSession(ctx context.Context, q queryer, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var messages string
	err := q.QueryRowContext(ctx,
		`SELECT session_id, messages, created_at, updated_at FROM chats WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &messages, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messages), &session.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages for session %s: %w", sessionID, err)
	}
	if session.Messages == nil {
		session.Messages = []domain.Message{}
	}
	return &session, nil
}

// AppendMessages loads the document, appends msgs and writes it back inside
// one IMMEDIATE transaction, whatever locking mode the DSN selects.
func (s *SQLiteStore) AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	now := time.Now()
	session, err := getSession(ctx, conn, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		session = domain.NewSession(sessionID, now)
	}
	session.Append(msgs...)

	data, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO chats (session_id, messages, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at`,
		sessionID, string(data), session.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	committed = true
	return nil
}

// DeleteSession deletes a session document.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE session_id = ?`, sessionID)
	return err
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
