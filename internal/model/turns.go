// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TURN RECONSTRUCTION
// =============================================================================

// TurnsFromMessages rebuilds the turn list from a session's stored messages,
// which arrive ordered by creation time.
//
// Pairing rule:
//   - a user message opens a new turn
//   - an assistant message closes the currently open turn
//   - an assistant message with no open turn (or whose turn already has
//     assistant content) opens its own turn with an empty user side
//   - system messages never appear as turns
//
// The defensive assistant branch tolerates orphaned or doubled rows without
// failing reconstruction; such rows render as assistant-only turns.
func TurnsFromMessages(messages []ChatMessage) []*Turn {
	turns := make([]*Turn, 0, len(messages)/2+1)
	var open *Turn

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			open = &Turn{
				ID:        msg.ID,
				User:      msg.Content,
				CreatedAt: msg.CreatedAt,
			}
			turns = append(turns, open)

		case RoleAssistant:
			if open == nil || open.AssistantAt != nil {
				// Orphaned assistant row: give it its own turn.
				open = &Turn{
					ID:        msg.ID,
					CreatedAt: msg.CreatedAt,
				}
				turns = append(turns, open)
			}
			at := msg.CreatedAt
			open.Assistant = msg.Content
			open.AssistantAt = &at

		case RoleSystem:
			// System prompts are session metadata, not conversation turns.
		}
	}

	return turns
}
