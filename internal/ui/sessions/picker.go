// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sessions provides the session picker overlay for the TUI.
//
// The picker renders the session list under the current status filter and
// tracks a cursor. It holds no network state of its own; the chat view
// feeds it the list and runs lifecycle commands against the manager.
package sessions

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nyl-tui/internal/model"
	"github.com/jeranaias/nyl-tui/internal/ui/styles"
	"github.com/jeranaias/nyl-tui/internal/util"
)

// =============================================================================
// FILTER CYCLING
// =============================================================================

// filterOrder is the tab cycle: active, archived, deleted.
var filterOrder = []model.SessionStatus{
	model.StatusActive,
	model.StatusArchived,
	model.StatusDeleted,
}

// NextFilter returns the status after s in the tab cycle.
func NextFilter(s model.SessionStatus) model.SessionStatus {
	for i, status := range filterOrder {
		if status == s {
			return filterOrder[(i+1)%len(filterOrder)]
		}
	}
	return model.StatusActive
}

// =============================================================================
// PICKER
// =============================================================================

// Picker is the session list overlay.
type Picker struct {
	theme  *styles.Theme
	width  int
	height int

	filter   model.SessionStatus
	sessions []model.ChatSession
	cursor   int
}

// New creates a picker.
func New(theme *styles.Theme) *Picker {
	return &Picker{
		theme:  theme,
		filter: model.StatusActive,
	}
}

// SetSize updates the picker's render dimensions.
func (p *Picker) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSessions replaces the listed sessions, clamping the cursor.
func (p *Picker) SetSessions(filter model.SessionStatus, sessions []model.ChatSession) {
	p.filter = filter
	p.sessions = sessions
	p.clampCursor()
}

// MoveUp moves the cursor toward the top of the list.
func (p *Picker) MoveUp() {
	p.cursor--
	p.clampCursor()
}

// MoveDown moves the cursor toward the bottom of the list.
func (p *Picker) MoveDown() {
	p.cursor++
	p.clampCursor()
}

func (p *Picker) clampCursor() {
	if p.cursor >= len(p.sessions) {
		p.cursor = len(p.sessions) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// Current returns the session under the cursor, or nil for an empty list.
func (p *Picker) Current() *model.ChatSession {
	if len(p.sessions) == 0 {
		return nil
	}
	s := p.sessions[p.cursor]
	return &s
}

// Filter returns the status filter the listed sessions were fetched under.
func (p *Picker) Filter() model.SessionStatus {
	return p.filter
}

// Len returns the number of listed sessions.
func (p *Picker) Len() int {
	return len(p.sessions)
}

// =============================================================================
// RENDERING
// =============================================================================

// View renders the picker overlay.
func (p *Picker) View() string {
	var b strings.Builder

	b.WriteString(p.theme.PickerTitle.Render("Sessions"))
	b.WriteString("  ")
	b.WriteString(p.renderTabs())
	b.WriteString("\n\n")

	if len(p.sessions) == 0 {
		b.WriteString(p.theme.SessionMeta.Render("no " + string(p.filter) + " sessions"))
	} else {
		titleWidth := p.width - 24
		if titleWidth < 16 {
			titleWidth = 16
		}
		for i, sess := range p.sessions {
			line := util.TruncateWidth(sess.Title, titleWidth)
			meta := sess.UpdatedAt.Format("Jan 02 15:04")
			if sess.Model != "" {
				meta += "  " + sess.Model
			}
			if i == p.cursor {
				b.WriteString(p.theme.SessionSelected.Render("> " + line))
			} else {
				b.WriteString(p.theme.SessionItem.Render("  " + line))
			}
			b.WriteString("  ")
			b.WriteString(p.theme.SessionMeta.Render(meta))
			if i < len(p.sessions)-1 {
				b.WriteString("\n")
			}
		}
	}

	box := p.theme.PickerBox
	if p.width > 4 {
		box = box.Width(p.width - 4)
	}
	return box.Render(b.String())
}

func (p *Picker) renderTabs() string {
	parts := make([]string, 0, len(filterOrder))
	for _, status := range filterOrder {
		label := string(status)
		if status == p.filter {
			parts = append(parts, p.theme.FilterActiveTab.Render(label))
		} else {
			parts = append(parts, p.theme.FilterInactiveTab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, " | "))
}
