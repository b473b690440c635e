// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view for the TUI.
//
// The view is a thin shell over the completion engine and the session
// manager: key presses become engine submissions or manager commands, and
// engine progress re-enters the update loop as EngineUpdateMsg. All
// network work runs inside tea commands so the update loop never blocks.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/nyl-tui/internal/api"
	"github.com/jeranaias/nyl-tui/internal/config"
	"github.com/jeranaias/nyl-tui/internal/engine"
	"github.com/jeranaias/nyl-tui/internal/export"
	"github.com/jeranaias/nyl-tui/internal/model"
	"github.com/jeranaias/nyl-tui/internal/session"
	"github.com/jeranaias/nyl-tui/internal/ui/sessions"
	"github.com/jeranaias/nyl-tui/internal/ui/styles"
)

// commandTimeout bounds each manager call issued from the update loop.
const commandTimeout = 15 * time.Second

// ModelLister fetches the chat models the server offers. Implemented by
// *api.Client.
type ModelLister interface {
	ListModels(ctx context.Context) ([]api.ModelInfo, error)
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat view.
type Model struct {
	theme *styles.Theme
	cfg   *config.Config

	engine  *engine.Engine
	manager *session.Manager
	lister  ModelLister

	keys     KeyMap
	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model
	picker   *sessions.Picker
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	showPicker bool
	notice     string
	models     []api.ModelInfo
}

// New creates the chat view.
func New(cfg *config.Config, eng *engine.Engine, mgr *session.Manager, lister ModelLister, theme *styles.Theme) Model {
	input := textinput.New()
	input.Placeholder = "Message your assistant..."
	input.CharLimit = 0
	input.Focus()

	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(theme.Thinking),
	)

	return Model{
		theme:   theme,
		cfg:     cfg,
		engine:  eng,
		manager: mgr,
		lister:  lister,
		keys:    DefaultKeyMap(),
		input:   input,
		spin:    spin,
		picker:  sessions.New(theme),
	}
}

// Init starts the boot sequence.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		m.bootCmd(),
		m.loadModelsCmd(),
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func (m Model) newSessionParams() api.CreateSessionParams {
	return api.CreateSessionParams{
		Model:        m.cfg.Chat.DefaultModel,
		SystemPrompt: m.cfg.Chat.SystemPrompt,
		Scope:        m.cfg.Chat.Scope,
	}
}

// bootCmd loads the active list, auto-creates a session for an empty first
// run, and opens the most recent session.
func (m Model) bootCmd() tea.Cmd {
	mgr, eng, params := m.manager, m.engine, m.newSessionParams()
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()

		if err := mgr.Refresh(ctx); err != nil {
			return bootDoneMsg{err: err}
		}
		if _, err := mgr.MaybeAutoCreate(ctx, params); err != nil {
			return bootDoneMsg{err: err}
		}

		list := mgr.Sessions()
		if len(list) == 0 {
			return bootDoneMsg{}
		}
		sess, turns, err := mgr.Select(ctx, list[0].ID)
		if err != nil {
			return bootDoneMsg{err: err}
		}
		eng.Bind(sess, turns)
		return bootDoneMsg{}
	}
}

func (m Model) loadModelsCmd() tea.Cmd {
	lister := m.lister
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		models, err := lister.ListModels(ctx)
		return modelsLoadedMsg{models: models, err: err}
	}
}

func (m Model) refreshSessionsCmd() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		return sessionsRefreshedMsg{err: mgr.Refresh(ctx)}
	}
}

func (m Model) setFilterCmd(status model.SessionStatus) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		return sessionsRefreshedMsg{err: mgr.SetFilter(ctx, status)}
	}
}

func (m Model) openSessionCmd(id string) tea.Cmd {
	mgr, eng := m.manager, m.engine
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		sess, turns, err := mgr.Select(ctx, id)
		if err != nil {
			return sessionOpenedMsg{err: err}
		}
		eng.Bind(sess, turns)
		return sessionOpenedMsg{session: sess}
	}
}

func (m Model) createSessionCmd() tea.Cmd {
	mgr, eng, params := m.manager, m.engine, m.newSessionParams()
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		created, err := mgr.Create(ctx, params)
		if err != nil {
			return sessionCreatedMsg{err: err}
		}
		eng.Bind(created, nil)
		return sessionCreatedMsg{session: created}
	}
}

func (m Model) lifecycleCmd(verb, id string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()

		var err error
		switch verb {
		case "archive":
			err = mgr.Archive(ctx, id)
		case "unarchive":
			err = mgr.Unarchive(ctx, id)
		case "delete":
			err = mgr.Delete(ctx, id)
		case "restore":
			err = mgr.Restore(ctx, id)
		}
		return lifecycleDoneMsg{verb: verb, err: err}
	}
}

func (m Model) exportCmd(format string) tea.Cmd {
	sess := m.manager.Selected()
	if sess == nil {
		return nil
	}
	turns := m.engine.Turns()
	transcript := &export.Transcript{Session: *sess}
	for i := range turns {
		t := turns[i]
		transcript.Turns = append(transcript.Turns, &t)
	}

	return func() tea.Msg {
		var path string
		var err error
		if format == "json" {
			path, err = export.ExportJSON(transcript, nil)
		} else {
			path, err = export.ExportMarkdown(transcript, nil)
		}
		return exportDoneMsg{path: path, err: err}
	}
}
