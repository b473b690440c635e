// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/nyl-tui/internal/api"
	"github.com/jeranaias/nyl-tui/internal/config"
	"github.com/jeranaias/nyl-tui/internal/model"
)

// =============================================================================
// EXTERNAL MESSAGES
// =============================================================================

// EngineUpdateMsg signals that engine state changed. The engine's notify
// callback sends it through program.Send from stream goroutines, which is
// how background progress re-enters the update loop.
type EngineUpdateMsg struct{}

// ConfigReloadedMsg carries a hot-reloaded configuration.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// INTERNAL COMMAND RESULTS
// =============================================================================

// bootDoneMsg reports the startup sequence: list fetch, first-run
// auto-create, initial selection.
type bootDoneMsg struct {
	err error
}

// sessionsRefreshedMsg reports a session list refetch.
type sessionsRefreshedMsg struct {
	err error
}

// sessionOpenedMsg reports opening a session into the engine.
type sessionOpenedMsg struct {
	session *model.ChatSession
	err     error
}

// sessionCreatedMsg reports creating a new session.
type sessionCreatedMsg struct {
	session *model.ChatSession
	err     error
}

// lifecycleDoneMsg reports an archive/unarchive/delete/restore call.
type lifecycleDoneMsg struct {
	verb string
	err  error
}

// modelsLoadedMsg reports the server's model list.
type modelsLoadedMsg struct {
	models []api.ModelInfo
	err    error
}

// exportDoneMsg reports a transcript export.
type exportDoneMsg struct {
	path string
	err  error
}
