// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the parley TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the chat view.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	ColorProfile termenv.Profile
	HasTrueColor bool

	// Message styles
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemText     lipgloss.Style
	ErrorText      lipgloss.Style
	PartialNote    lipgloss.Style

	// Chrome
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	InputBox  lipgloss.Style
	Shortcut  lipgloss.Style
	Spinner   lipgloss.Style
}

// NewTheme builds a theme for the given terminal color profile. An Ascii
// profile (colors disabled, NO_COLOR) yields uncolored styles.
func NewTheme(profile termenv.Profile) *Theme {
	t := &Theme{
		ColorProfile: profile,
		HasTrueColor: profile == termenv.TrueColor,
	}

	if profile == termenv.Ascii {
		t.UserLabel = lipgloss.NewStyle().Bold(true)
		t.AssistantLabel = lipgloss.NewStyle().Bold(true)
		t.SystemText = lipgloss.NewStyle().Italic(true)
		t.ErrorText = lipgloss.NewStyle()
		t.PartialNote = lipgloss.NewStyle().Italic(true)

		t.Header = lipgloss.NewStyle().Padding(0, 1).Bold(true)
		t.StatusBar = lipgloss.NewStyle().Padding(0, 1)
		t.InputBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
		t.Shortcut = lipgloss.NewStyle()
		t.Spinner = lipgloss.NewStyle()
		return t
	}

	t.UserLabel = lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true)
	t.SystemText = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)
	t.ErrorText = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9"))
	t.PartialNote = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11")).
		Italic(true)

	t.Header = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("57")).
		Padding(0, 1).
		Bold(true)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(lipgloss.Color("7")).
		Background(lipgloss.Color("236")).
		Padding(0, 1)
	t.InputBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	t.Shortcut = lipgloss.NewStyle().
		Foreground(lipgloss.Color("13"))
	t.Spinner = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205"))

	return t
}
