// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/nyl-tui/internal/util"
)

// PlaceholderTitle is the title the server assigns to freshly created
// sessions. Auto-naming only ever replaces a placeholder title.
const PlaceholderTitle = "New chat"

// TitlePrefixLen is the maximum length, in runes, of an auto-generated
// session title taken from the first user message.
const TitlePrefixLen = 80

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// SessionStatus is the lifecycle state of a chat session. Archive and
// soft-delete are independent axes on the server; the client only ever sees
// one of these three values and switches between them via explicit endpoint
// calls (archive/unarchive, delete/restore).
type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusArchived SessionStatus = "archived"
	StatusDeleted  SessionStatus = "deleted" // the trash view
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// =============================================================================
// PERSISTED TYPES (server-owned)
// =============================================================================

// ChatSession mirrors a persisted chat session row.
type ChatSession struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Model        string        `json:"model,omitempty"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	Scope        string        `json:"scope,omitempty"`
	Status       SessionStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ChatMessage mirrors a persisted chat message row. Messages are append-only
// from the client's perspective and immutable once written.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// TURN (client-side projection)
// =============================================================================

// Turn is one user/assistant exchange as the UI renders it. The assistant
// side is mutable while a response streams in; AssistantAt is stamped when
// assistant content is finalized.
type Turn struct {
	ID          string
	User        string
	Assistant   string
	CreatedAt   time.Time
	AssistantAt *time.Time
}

// NewTurn creates a fresh turn for a just-submitted user prompt.
func NewTurn(user string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: time.Now(),
	}
}

// Open reports whether the turn is still waiting for assistant content.
func (t *Turn) Open() bool {
	return t.AssistantAt == nil
}

/// TitleFromMessage derives a session title from the first user message: a
// trimmed prefix capped at TitlePrefixLen runes. Returns "" when the message
// is blank, in which case the placeholder title is kept.
func TitleFromMessage(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	return util.TruncateRunesNoEllipsis(trimmed, TitlePrefixLen)
}

// IsPlaceholderTitle reports whether a title still counts as the server's
// placeholder. The server compares trimmed and case-insensitively, so the
// local auto-naming mirror must match the same set of titles.
func IsPlaceholderTitle(title string) bool {
	return strings.EqualFold(strings.TrimSpace(title), PlaceholderTitle)
}
