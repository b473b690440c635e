// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/nyl-tui/internal/model"
)

// =============================================================================
// STORE
// =============================================================================

// Store caches session listings and message logs in a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("cache: set pragma: %w", err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_listings (
		status        TEXT    NOT NULL,
		list_scope    TEXT    NOT NULL,
		position      INTEGER NOT NULL,
		id            TEXT    NOT NULL,
		title         TEXT    NOT NULL,
		model         TEXT    NOT NULL DEFAULT '',
		system_prompt TEXT    NOT NULL DEFAULT '',
		scope         TEXT    NOT NULL DEFAULT '',
		created_at    TEXT    NOT NULL,
		updated_at    TEXT    NOT NULL,
		PRIMARY KEY (status, list_scope, position)
	);

	CREATE TABLE IF NOT EXISTS session_messages (
		session_id TEXT    NOT NULL,
		position   INTEGER NOT NULL,
		role       TEXT    NOT NULL,
		content    TEXT    NOT NULL,
		created_at TEXT    NOT NULL,
		PRIMARY KEY (session_id, position)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("cache: create schema: %w", err)
	}
	return nil
}

// =============================================================================
// SESSION LISTINGS
// =============================================================================

// PutSessions replaces the cached listing for a status filter and scope.
func (s *Store) PutSessions(status model.SessionStatus, scope string, sessions []model.ChatSession) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM session_listings WHERE status = ? AND list_scope = ?`,
		string(status), scope,
	); err != nil {
		return fmt.Errorf("cache: clear listing: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO session_listings
			(status, list_scope, position, id, title, model, system_prompt, scope, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cache: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, sess := range sessions {
		_, err := stmt.Exec(
			string(status), scope, i,
			sess.ID, sess.Title, sess.Model, sess.SystemPrompt, sess.Scope,
			sess.CreatedAt.Format(time.RFC3339Nano),
			sess.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("cache: insert session %s: %w", sess.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: commit: %w", err)
	}
	return nil
}

// Sessions returns the cached listing for a status filter and scope, in the
// order the server originally returned it.
func (s *Store) Sessions(status model.SessionStatus, scope string) ([]model.ChatSession, error) {
	rows, err := s.db.Query(`
		SELECT id, title, model, system_prompt, scope, created_at, updated_at
		FROM session_listings
		WHERE status = ? AND list_scope = ?
		ORDER BY position
	`, string(status), scope)
	if err != nil {
		return nil, fmt.Errorf("cache: query listing: %w", err)
	}
	defer rows.Close()

	var sessions []model.ChatSession
	for rows.Next() {
		var sess model.ChatSession
		var createdAt, updatedAt string
		err := rows.Scan(&sess.ID, &sess.Title, &sess.Model, &sess.SystemPrompt,
			&sess.Scope, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("cache: scan session: %w", err)
		}
		sess.Status = status
		sess.CreatedAt = parseTime(createdAt)
		sess.UpdatedAt = parseTime(updatedAt)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: iterate listing: %w", err)
	}
	return sessions, nil
}

// =============================================================================
// MESSAGE LOGS
// =============================================================================

// PutMessages replaces the cached message log for a session.
func (s *Store) PutMessages(sessionID string, messages []model.ChatMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM session_messages WHERE session_id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("cache: clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO session_messages (session_id, position, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("cache: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range messages {
		_, err := stmt.Exec(sessionID, i, string(msg.Role), msg.Content,
			msg.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("cache: insert message: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: commit: %w", err)
	}
	return nil
}

// Messages returns the cached message log for a session in log order.
func (s *Store) Messages(sessionID string) ([]model.ChatMessage, error) {
	rows, err := s.db.Query(`
		SELECT role, content, created_at
		FROM session_messages
		WHERE session_id = ?
		ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("cache: query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		var role, createdAt string
		if err := rows.Scan(&role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("cache: scan message: %w", err)
		}
		msg.SessionID = sessionID
		msg.Role = model.Role(role)
		msg.CreatedAt = parseTime(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: iterate messages: %w", err)
	}
	return messages, nil
}

// parseTime tolerates malformed timestamps; a zero time is better than a
// failed offline read.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
