// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER & STATUS
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style
	Offline     lipgloss.Style

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantLabel lipgloss.Style
	Assistant      lipgloss.Style
	Thinking       lipgloss.Style

	// ==========================================================================
	// INPUT & ERRORS
	// ==========================================================================

	InputContainer lipgloss.Style
	ErrorBox       lipgloss.Style
	Notice         lipgloss.Style

	// ==========================================================================
	// SESSION PICKER
	// ==========================================================================

	PickerBox         lipgloss.Style
	PickerTitle       lipgloss.Style
	SessionItem       lipgloss.Style
	SessionSelected   lipgloss.Style
	SessionMeta       lipgloss.Style
	FilterActiveTab   lipgloss.Style
	FilterInactiveTab lipgloss.Style
}

// NewTheme builds a theme using the terminal's detected background. forceDark
// overrides detection when the user configured a theme explicitly.
func NewTheme(forceDark *bool) *Theme {
	isDark := termenv.HasDarkBackground()
	if forceDark != nil {
		isDark = *forceDark
		lipgloss.SetHasDarkBackground(isDark)
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Offline = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1).
		MarginLeft(2)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Assistant = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.Thinking = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.ErrorBox = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald)

	t.PickerBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.PickerTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.SessionItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.SessionSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(Overlay).
		Padding(0, 1)

	t.SessionMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.FilterActiveTab = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald).
		Underline(true)

	t.FilterInactiveTab = lipgloss.NewStyle().
		Foreground(TextMuted)
}
