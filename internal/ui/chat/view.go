// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nyl-tui/internal/model"
	"github.com/jeranaias/nyl-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.showPicker {
		b.WriteString(m.picker.View())
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	if errText := m.engine.LastError(); errText != "" {
		b.WriteString(m.theme.ErrorBox.Render(errText))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(m.theme.Notice.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	title := "nyl"
	var meta []string

	if sess := m.manager.Selected(); sess != nil {
		title = util.TruncateRunes(sess.Title, 60)
		if sess.Scope != "" {
			meta = append(meta, sess.Scope)
		}
	}
	if name := m.engine.Model(); name != "" {
		meta = append(meta, name)
	}

	parts := []string{m.theme.HeaderTitle.Render(title)}
	if len(meta) > 0 {
		parts = append(parts, m.theme.HeaderMeta.Render(strings.Join(meta, " | ")))
	}
	if m.manager.Offline() {
		parts = append(parts, m.theme.Offline.Render("offline"))
	}
	return m.theme.Header.Width(m.width).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, "  ")),
	)
}

func (m Model) renderStatusBar() string {
	type hint struct{ key, desc string }
	var hints []hint
	if m.showPicker {
		hints = []hint{
			{"enter", "open"}, {"tab", "filter"}, {"n", "new"},
			{"a", "archive"}, {"d", "delete"}, {"r", "restore"}, {"esc", "close"},
		}
	} else {
		hints = []hint{
			{"enter", "send"}, {"esc", "stop"}, {"ctrl+s", "sessions"},
			{"ctrl+n", "new"}, {"ctrl+e", "export"}, {"ctrl+c", "quit"},
		}
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, m.theme.ShortcutKey.Render(h.key)+" "+m.theme.ShortcutDesc.Render(h.desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// syncViewport rewrites the viewport with the current conversation and
// pins it to the bottom.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m *Model) renderConversation() string {
	turns := m.engine.Turns()
	if len(turns) == 0 {
		return m.theme.Thinking.Render("Start the conversation below.")
	}

	streamingID := m.engine.StreamingTurnID()
	var b strings.Builder
	for i := range turns {
		turn := &turns[i]
		b.WriteString(m.theme.UserLabel.Render("You"))
		b.WriteString("\n")
		b.WriteString(m.theme.UserBubble.Render(turn.User))
		b.WriteString("\n\n")

		streaming := turn.ID == streamingID
		if turn.Assistant != "" || streaming {
			b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(m.renderAssistant(turn, streaming))
			b.WriteString("\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderAssistant renders completed responses through glamour and the
// in-flight response as plain text with a spinner, since partial markdown
// renders badly.
func (m *Model) renderAssistant(turn *model.Turn, streaming bool) string {
	if streaming {
		text := turn.Assistant
		if text == "" {
			return m.spin.View() + m.theme.Thinking.Render(" thinking")
		}
		return m.theme.Assistant.Render(text) + " " + m.spin.View()
	}

	if m.cfg.UI.Markdown && m.renderer != nil {
		if rendered, err := m.renderer.Render(turn.Assistant); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	return m.theme.Assistant.Render(turn.Assistant)
}
