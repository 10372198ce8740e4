package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteStore is the durable backend. State survives restarts; the
// retention sweep deletes conversations idle past the TTL.
type sqliteStore struct {
	db  *sql.DB
	ttl time.Duration
}

func newSQLiteStore(path string, ttl time.Duration) (*sqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// Single shared connection avoids writer lock contention with
	// SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &sqliteStore{db: db, ttl: ttl}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *sqliteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS conversations (
			session_id TEXT PRIMARY KEY,
			state_json TEXT NOT NULL,
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS conversations_updated_idx ON conversations(updated_at_ms);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init session db: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, sessionID string) (*ConversationState, error) {
	var raw string
	var updatedAtMS int64
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json, updated_at_ms FROM conversations WHERE session_id = ?`,
		sessionID,
	).Scan(&raw, &updatedAtMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	if s.ttl > 0 && time.Since(time.UnixMilli(updatedAtMS)) > s.ttl {
		return nil, nil
	}

	var state ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

func (s *sqliteStore) Put(ctx context.Context, state *ConversationState) error {
	state.UpdatedAt = time.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", state.SessionID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (session_id, state_json, updated_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET state_json = excluded.state_json, updated_at_ms = excluded.updated_at_ms`,
		state.SessionID, string(raw), state.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put session %s: %w", state.SessionID, err)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// SweepExpired removes conversations idle beyond the TTL. Returns the
// number of rows reclaimed.
func (s *sqliteStore) SweepExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-s.ttl).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE updated_at_ms < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
