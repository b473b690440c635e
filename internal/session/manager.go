// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/nyl-tui/internal/api"
	"github.com/jeranaias/nyl-tui/internal/model"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// API is the server surface the manager depends on. Implemented by
// *api.Client.
type API interface {
	CreateSession(ctx context.Context, params api.CreateSessionParams) (*model.ChatSession, error)
	ListSessions(ctx context.Context, status model.SessionStatus, scope string) ([]model.ChatSession, error)
	GetSession(ctx context.Context, id string) (*api.SessionDetail, error)
	AppendMessages(ctx context.Context, sessionID string, messages []api.Message, modelName, systemPrompt string) ([]model.ChatMessage, error)
	ArchiveSession(ctx context.Context, id string) error
	UnarchiveSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	RestoreSession(ctx context.Context, id string) error
}

// Cache is an optional local store kept write-through on successful server
// reads. When the server is unreachable, list and detail reads fall back to
// it. Implemented by *cache.Store.
type Cache interface {
	PutSessions(status model.SessionStatus, scope string, sessions []model.ChatSession) error
	Sessions(status model.SessionStatus, scope string) ([]model.ChatSession, error)
	PutMessages(sessionID string, messages []model.ChatMessage) error
	Messages(sessionID string) ([]model.ChatMessage, error)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the session list under the current status filter plus the
// selected conversation. Methods taking a context perform server calls and
// may block; accessors return snapshots and never block on the network.
type Manager struct {
	mu sync.Mutex

	api   API
	cache Cache

	// Scope restricts listings server-side ("daily", "project:<slug>").
	// Empty means all scopes.
	scope string

	filter   model.SessionStatus
	sessions []model.ChatSession

	selected      *model.ChatSession
	selectedTurns []*model.Turn

	// autoCreated latches after the one allowed first-run auto-creation.
	// It resets when the filter changes so returning to an emptied active
	// view does not silently spawn sessions.
	autoCreated bool

	// offline flags that the last list read was served from cache.
	offline bool
}

// NewManager creates a Manager over the given server client. cache may be
// nil to disable local fallback.
func NewManager(client API, cache Cache, scope string) *Manager {
	return &Manager{
		api:    client,
		cache:  cache,
		scope:  scope,
		filter: model.StatusActive,
	}
}

// =============================================================================
// FILTER & LISTING
// =============================================================================

// SetFilter switches the status filter and refetches the list. Switching
// always clears the selection: the selected session belongs to the previous
// view. The auto-create latch re-arms so a later return to an empty active
// view stays a deliberate choice, not an implicit one.
func (m *Manager) SetFilter(ctx context.Context, status model.SessionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("session: invalid status filter %q", status)
	}

	m.mu.Lock()
	m.filter = status
	m.selected = nil
	m.selectedTurns = nil
	m.autoCreated = false
	m.mu.Unlock()

	return m.Refresh(ctx)
}

// Refresh refetches the session list under the current filter. On a server
// failure the cached list (if any) is served instead and the manager is
// flagged offline; the error is still returned so callers can surface it.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	filter, scope := m.filter, m.scope
	m.mu.Unlock()

	sessions, err := m.api.ListSessions(ctx, filter, scope)
	if err != nil {
		cached, ok := m.cachedSessions(filter, scope)
		m.mu.Lock()
		if ok {
			m.sessions = cached
		}
		m.offline = true
		m.mu.Unlock()
		return fmt.Errorf("session: list %s sessions: %w", filter, err)
	}

	m.mu.Lock()
	m.sessions = sessions
	m.offline = false
	m.mu.Unlock()

	if m.cache != nil {
		if cerr := m.cache.PutSessions(filter, scope, sessions); cerr != nil {
			log.Printf("session: cache write failed (continuing): %v", cerr)
		}
	}
	return nil
}

func (m *Manager) cachedSessions(status model.SessionStatus, scope string) ([]model.ChatSession, bool) {
	if m.cache == nil {
		return nil, false
	}
	cached, err := m.cache.Sessions(status, scope)
	if err != nil {
		log.Printf("session: cache read failed: %v", err)
		return nil, false
	}
	return cached, true
}

// =============================================================================
// SELECTION
// =============================================================================

// Select fetches a session's message log and makes it the selected
// conversation, with the flat log folded into turns. Falls back to cached
// messages when the server is unreachable and the session is known locally.
func (m *Manager) Select(ctx context.Context, id string) (*model.ChatSession, []*model.Turn, error) {
	detail, err := m.api.GetSession(ctx, id)
	if err != nil {
		return m.selectFromCache(id, err)
	}

	session := detail.Session
	turns := model.TurnsFromMessages(detail.Messages)

	m.mu.Lock()
	m.selected = &session
	m.selectedTurns = turns
	m.updateListEntryLocked(session)
	m.mu.Unlock()

	if m.cache != nil {
		if cerr := m.cache.PutMessages(id, detail.Messages); cerr != nil {
			log.Printf("session: cache write failed (continuing): %v", cerr)
		}
	}
	return &session, turns, nil
}

func (m *Manager) selectFromCache(id string, cause error) (*model.ChatSession, []*model.Turn, error) {
	m.mu.Lock()
	var found *model.ChatSession
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			s := m.sessions[i]
			found = &s
			break
		}
	}
	m.mu.Unlock()

	if found == nil || m.cache == nil {
		return nil, nil, fmt.Errorf("session: load session %s: %w", id, cause)
	}
	messages, err := m.cache.Messages(id)
	if err != nil {
		return nil, nil, fmt.Errorf("session: load session %s: %w", id, cause)
	}
	turns := model.TurnsFromMessages(messages)

	m.mu.Lock()
	m.selected = found
	m.selectedTurns = turns
	m.offline = true
	m.mu.Unlock()
	return found, turns, nil
}

// ClearSelection drops the selected conversation.
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	m.selected = nil
	m.selectedTurns = nil
	m.mu.Unlock()
}

// =============================================================================
// CREATION
// =============================================================================

// Create makes a new session, prepends it to the active list, and selects
// it. The new session carries the placeholder title until the first user
// message names it.
func (m *Manager) Create(ctx context.Context, params api.CreateSessionParams) (*model.ChatSession, error) {
	created, err := m.api.CreateSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("session: create session: %w", err)
	}

	m.mu.Lock()
	if m.filter == model.StatusActive {
		m.sessions = append([]model.ChatSession{*created}, m.sessions...)
	}
	m.selected = created
	m.selectedTurns = nil
	// Any creation satisfies the first-run guarantee.
	m.autoCreated = true
	m.mu.Unlock()

	return created, nil
}

// MaybeAutoCreate creates a session when the active view is empty and a
// model is selected, at most once per filter period. Returns the created
// session, or nil when the conditions do not hold.
func (m *Manager) MaybeAutoCreate(ctx context.Context, params api.CreateSessionParams) (*model.ChatSession, error) {
	if params.Model == "" {
		// A session without a model cannot accept a submission; wait until
		// one is selected rather than creating an unusable session.
		return nil, nil
	}

	m.mu.Lock()
	eligible := m.filter == model.StatusActive && len(m.sessions) == 0 && !m.autoCreated
	m.mu.Unlock()

	if !eligible {
		return nil, nil
	}
	return m.Create(ctx, params)
}

// =============================================================================
// MESSAGE PERSISTENCE
// =============================================================================

// AppendMessage persists one message to a session's server-side log. For the
// selected session the current model and system prompt ride along so the
// server keeps its metadata current. The local mirrors update the same way
// the server does: a user message names a placeholder-titled session and
// bumps it to the top of the recency ordering.
func (m *Manager) AppendMessage(ctx context.Context, sessionID string, role model.Role, content string) error {
	m.mu.Lock()
	var modelName, systemPrompt string
	if m.selected != nil && m.selected.ID == sessionID {
		modelName = m.selected.Model
		systemPrompt = m.selected.SystemPrompt
	}
	m.mu.Unlock()

	msg := api.Message{Role: role, Content: content}
	if _, err := m.api.AppendMessages(ctx, sessionID, []api.Message{msg}, modelName, systemPrompt); err != nil {
		return fmt.Errorf("session: append %s message: %w", role, err)
	}

	m.mu.Lock()
	m.applyAppendLocked(sessionID, role, content)
	m.mu.Unlock()
	return nil
}

// applyAppendLocked mirrors the server's append side effects onto local
// state: auto-naming, updated-at bump, and recency resort.
func (m *Manager) applyAppendLocked(sessionID string, role model.Role, content string) {
	now := time.Now()

	rename := func(s *model.ChatSession) {
		if role == model.RoleUser && model.IsPlaceholderTitle(s.Title) {
			if title := model.TitleFromMessage(content); title != "" {
				s.Title = title
			}
		}
		s.UpdatedAt = now
	}

	if m.selected != nil && m.selected.ID == sessionID {
		rename(m.selected)
	}
	for i := range m.sessions {
		if m.sessions[i].ID != sessionID {
			continue
		}
		rename(&m.sessions[i])
		// Most recently touched session moves to the front.
		if i > 0 {
			touched := m.sessions[i]
			copy(m.sessions[1:i+1], m.sessions[:i])
			m.sessions[0] = touched
		}
		break
	}
}

// updateListEntryLocked refreshes the list's copy of a session after a
// detail fetch.
func (m *Manager) updateListEntryLocked(session model.ChatSession) {
	for i := range m.sessions {
		if m.sessions[i].ID == session.ID {
			m.sessions[i] = session
			return
		}
	}
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// Archive moves a session to the archive. Unarchive, Delete, and Restore
// follow the same shape: apply the transition server-side, refetch the list
// under the current filter, and drop the selection when the session left the
// view.
func (m *Manager) Archive(ctx context.Context, id string) error {
	return m.transition(ctx, id, "archive", m.api.ArchiveSession)
}

// Unarchive moves an archived session back to active.
func (m *Manager) Unarchive(ctx context.Context, id string) error {
	return m.transition(ctx, id, "unarchive", m.api.UnarchiveSession)
}

// Delete soft-deletes a session. The record survives server-side and shows
// under the deleted filter until restored.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.transition(ctx, id, "delete", m.api.DeleteSession)
}

// Restore moves a soft-deleted session back to active.
func (m *Manager) Restore(ctx context.Context, id string) error {
	return m.transition(ctx, id, "restore", m.api.RestoreSession)
}

func (m *Manager) transition(ctx context.Context, id, verb string, call func(context.Context, string) error) error {
	if err := call(ctx, id); err != nil {
		return fmt.Errorf("session: %s session %s: %w", verb, id, err)
	}

	// Refetch rather than guessing the new list membership.
	refreshErr := m.Refresh(ctx)

	m.mu.Lock()
	if m.selected != nil && m.selected.ID == id && !m.inListLocked(id) {
		m.selected = nil
		m.selectedTurns = nil
	}
	m.mu.Unlock()

	return refreshErr
}

func (m *Manager) inListLocked(id string) bool {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// SNAPSHOT ACCESSORS
// =============================================================================

// Sessions returns a copy of the session list under the current filter.
func (m *Manager) Sessions() []model.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChatSession, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// Selected returns a copy of the selected session, or nil.
func (m *Manager) Selected() *model.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return nil
	}
	s := *m.selected
	return &s
}

// SelectedTurns returns the selected conversation's turns.
func (m *Manager) SelectedTurns() []*model.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedTurns
}

// Filter returns the current status filter.
func (m *Manager) Filter() model.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter
}

// Offline reports whether the last read was served from the local cache.
func (m *Manager) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// Scope returns the scope restriction applied to listings.
func (m *Manager) Scope() string {
	return m.scope
}
