// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeranaias/nyl-tui/internal/model"
)

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// CreateSessionParams are the optional fields for a new chat session. Zero
// values are omitted; the server fills in its defaults (placeholder title).
type CreateSessionParams struct {
	Title        string `json:"title,omitempty"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// SessionDetail is a session together with its full ordered message log.
type SessionDetail struct {
	Session  model.ChatSession   `json:"session"`
	Messages []model.ChatMessage `json:"messages"`
}

// CreateSession creates a new chat session.
func (c *Client) CreateSession(ctx context.Context, params CreateSessionParams) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat/sessions", nil, params, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions fetches sessions filtered by status and, when non-empty, by
// scope. Results arrive ordered by recency (most recently updated first).
func (c *Client) ListSessions(ctx context.Context, status model.SessionStatus, scope string) ([]model.ChatSession, error) {
	query := url.Values{}
	query.Set("status", string(status))
	if scope != "" {
		query.Set("scope", scope)
	}

	var sessions []model.ChatSession
	if err := c.doJSON(ctx, http.MethodGet, "/v1/chat/sessions", query, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession fetches one session with its message log.
func (c *Client) GetSession(ctx context.Context, id string) (*SessionDetail, error) {
	var detail SessionDetail
	if err := c.doJSON(ctx, http.MethodGet, "/v1/chat/sessions/"+id, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// AppendMessages appends messages to a session's log. Model and system
// prompt ride along as query parameters for server-side bookkeeping (the
// server updates session metadata and applies auto-naming).
func (c *Client) AppendMessages(ctx context.Context, sessionID string, messages []Message, modelName, systemPrompt string) ([]model.ChatMessage, error) {
	query := url.Values{}
	if modelName != "" {
		query.Set("model", modelName)
	}
	if systemPrompt != "" {
		query.Set("system_prompt", systemPrompt)
	}

	var created []model.ChatMessage
	path := "/v1/chat/sessions/" + sessionID + "/messages"
	if err := c.doJSON(ctx, http.MethodPost, path, query, messages, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// ArchiveSession moves an active session to the archive.
func (c *Client) ArchiveSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/chat/sessions/"+id+"/archive", nil, nil, nil)
}

// UnarchiveSession moves an archived session back to active.
func (c *Client) UnarchiveSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/chat/sessions/"+id+"/unarchive", nil, nil, nil)
}

// DeleteSession soft-deletes a session (moves it to the trash view). The
// server never hard-deletes through this endpoint.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/chat/sessions/"+id, nil, nil, nil)
}

// RestoreSession moves a trashed session back to active.
func (c *Client) RestoreSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/chat/sessions/"+id+"/restore", nil, nil, nil)
}

// =============================================================================
// MODELS ENDPOINT
// =============================================================================

// ModelInfo describes one model the server can chat with.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListModels fetches the chat models the server exposes.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var payload struct {
		Models []ModelInfo `json:"models"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/models", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Models, nil
}
