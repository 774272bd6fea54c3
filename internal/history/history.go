// Package history persists flattened user/assistant exchanges per session.
// The session store reads it back when restoring an evicted conversation.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"
)

// maxStoredReplyLen truncates very long assistant replies before storage.
const maxStoredReplyLen = 2000

// Entry is one persisted exchange.
type Entry struct {
	SessionID     string
	Role          string
	UserText      string
	AssistantText string
	CreatedAt     time.Time
}

// Store is a SQLite-backed prompt history log.
type Store struct {
	db *sql.DB
}

// New creates the store on an existing database handle and runs migration.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompt_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		user_prompt TEXT NOT NULL,
		assistant_response TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_prompt_history_session ON prompt_history(session_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one exchange for a session.
func (s *Store) Append(ctx context.Context, sessionID, role, userText, assistantText string) error {
	if len(assistantText) > maxStoredReplyLen {
		cut := maxStoredReplyLen
		// Back up to a rune boundary so the stored reply stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(assistantText[cut]) {
			cut--
		}
		assistantText = assistantText[:cut]
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompt_history (session_id, role, user_prompt, assistant_response) VALUES (?, ?, ?, ?)`,
		sessionID, role, userText, assistantText)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// LoadAll returns every exchange for a session in insertion order.
func (s *Store) LoadAll(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, role, user_prompt, assistant_response, created_at
		 FROM prompt_history WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.SessionID, &e.Role, &e.UserText, &e.AssistantText, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
