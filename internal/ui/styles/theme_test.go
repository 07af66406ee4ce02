// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestNewThemeCarriesProfile(t *testing.T) {
	theme := NewTheme(termenv.TrueColor)
	if theme.ColorProfile != termenv.TrueColor {
		t.Errorf("profile = %v", theme.ColorProfile)
	}
	if !theme.HasTrueColor {
		t.Error("true color not detected")
	}

	if NewTheme(termenv.ANSI256).HasTrueColor {
		t.Error("ansi256 profile must not report true color")
	}
}

func TestNewThemeAsciiIsUncolored(t *testing.T) {
	theme := NewTheme(termenv.Ascii)
	if theme.HasTrueColor {
		t.Error("ascii profile must not report true color")
	}

	unset := lipgloss.NoColor{}
	labels := map[string]lipgloss.Style{
		"user label":      theme.UserLabel,
		"assistant label": theme.AssistantLabel,
		"system text":     theme.SystemText,
		"error text":      theme.ErrorText,
		"shortcut":        theme.Shortcut,
	}
	for name, style := range labels {
		if style.GetForeground() != unset {
			t.Errorf("%s carries a foreground color", name)
		}
	}
	if theme.Header.GetBackground() != unset {
		t.Error("header carries a background color")
	}
	if theme.StatusBar.GetBackground() != unset {
		t.Error("status bar carries a background color")
	}
}

func TestNewThemeColoredProfileKeepsChrome(t *testing.T) {
	theme := NewTheme(termenv.ANSI)
	unset := lipgloss.NoColor{}
	if theme.UserLabel.GetForeground() == unset {
		t.Error("colored profile lost the user label color")
	}
	if theme.Header.GetBackground() == unset {
		t.Error("colored profile lost the header background")
	}
}
