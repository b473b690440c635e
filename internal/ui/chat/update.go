// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/nyl-tui/internal/engine"
	"github.com/jeranaias/nyl-tui/internal/ui/sessions"
)

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		if m.showPicker {
			return m.handlePickerKey(msg)
		}
		return m.handleChatKey(msg)

	case EngineUpdateMsg:
		m.syncViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.engine.Status() == engine.StateStreaming {
			// The streaming turn's trailing spinner needs redraws.
			m.syncViewport()
		}
		return m, cmd

	case ConfigReloadedMsg:
		m.cfg = msg.Config
		if msg.Config.Chat.DefaultModel != "" {
			m.engine.SetModel(msg.Config.Chat.DefaultModel)
		}
		m.notice = "configuration reloaded"
		return m, nil

	case bootDoneMsg:
		m.picker.SetSessions(m.manager.Filter(), m.manager.Sessions())
		if msg.err != nil {
			m.notice = offlineNotice(m, msg.err)
		}
		m.syncViewport()
		return m, nil

	case sessionsRefreshedMsg:
		m.picker.SetSessions(m.manager.Filter(), m.manager.Sessions())
		if msg.err != nil {
			m.notice = offlineNotice(m, msg.err)
		}
		return m, nil

	case sessionOpenedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.showPicker = false
		m.notice = ""
		m.syncViewport()
		return m, nil

	case sessionCreatedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.showPicker = false
		m.notice = ""
		m.picker.SetSessions(m.manager.Filter(), m.manager.Sessions())
		m.syncViewport()
		return m, nil

	case lifecycleDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else {
			m.notice = msg.verb + "d"
		}
		m.picker.SetSessions(m.manager.Filter(), m.manager.Sessions())
		m.syncViewport()
		return m, nil

	case modelsLoadedMsg:
		if msg.err == nil {
			m.models = msg.models
			// Adopt the first server model when nothing is configured.
			if m.engine.Model() == "" && len(msg.models) > 0 {
				m.engine.SetModel(msg.models[0].ID)
			}
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else {
			m.notice = "exported to " + msg.path
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// offlineNotice prefers the cache-fallback hint over a raw error when the
// manager is serving local data.
func offlineNotice(m Model, err error) string {
	if m.manager.Offline() {
		return "server unreachable, showing cached sessions"
	}
	return err.Error()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Send):
		if m.engine.Submit(m.input.Value()) {
			m.input.Reset()
			m.syncViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.Abort):
		if m.engine.Status() == engine.StateStreaming {
			m.engine.Abort()
		} else {
			m.notice = ""
		}
		return m, nil

	case key.Matches(msg, m.keys.Sessions):
		m.showPicker = true
		m.picker.SetSessions(m.manager.Filter(), m.manager.Sessions())
		return m, m.refreshSessionsCmd()

	case key.Matches(msg, m.keys.NewChat):
		return m, m.createSessionCmd()

	case key.Matches(msg, m.keys.ExportMD):
		return m, m.exportCmd("markdown")

	case key.Matches(msg, m.keys.ExportJS):
		return m, m.exportCmd("json")
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Close):
		m.showPicker = false
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.picker.MoveUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.picker.MoveDown()
		return m, nil

	case key.Matches(msg, m.keys.CycleTab):
		return m, m.setFilterCmd(sessions.NextFilter(m.picker.Filter()))

	case key.Matches(msg, m.keys.Open):
		if current := m.picker.Current(); current != nil {
			return m, m.openSessionCmd(current.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, m.createSessionCmd()

	case key.Matches(msg, m.keys.Archive):
		if current := m.picker.Current(); current != nil {
			return m, m.lifecycleCmd("archive", current.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Unarchive):
		if current := m.picker.Current(); current != nil {
			return m, m.lifecycleCmd("unarchive", current.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if current := m.picker.Current(); current != nil {
			return m, m.lifecycleCmd("delete", current.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Restore):
		if current := m.picker.Current(); current != nil {
			return m, m.lifecycleCmd("restore", current.ID)
		}
		return m, nil
	}
	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 1
	footerHeight := 4 // input box and status bar
	viewportHeight := msg.Height - headerHeight - footerHeight
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	m.input.Width = msg.Width - 6
	m.picker.SetSize(msg.Width, viewportHeight)

	// Rebuild the markdown renderer to wrap at the new width.
	if m.cfg.UI.Markdown {
		wrap := msg.Width - 4
		if wrap < 20 {
			wrap = 20
		}
		if renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		); err == nil {
			m.renderer = renderer
		}
	}

	m.syncViewport()
	return m, nil
}
