// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// Shortcut is one key hint shown on the right of the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// DefaultShortcuts are the chat view key hints.
var DefaultShortcuts = []Shortcut{
	{"enter", "send/run"},
	{"tab", "cards"},
	{"ctrl+b", "sidebar"},
	{"/help", "commands"},
	{"ctrl+c", "quit"},
}

// StatusBar is the bottom line of the chat view: session state on the
// left, card counts in the middle, key hints on the right.
type StatusBar struct {
	State     string
	Spinner   string
	Backend   string
	Cards     int
	Executing int
	Notice    string
	Width     int
	Shortcuts []Shortcut
	theme     *styles.Theme
}

// NewStatusBar creates a status bar with the default shortcuts.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		State:     "Idle",
		Width:     80,
		Shortcuts: DefaultShortcuts,
		theme:     theme,
	}
}

// SetWidth sets the available width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar. Shortcuts are dropped from the right until
// the bar fits.
func (s *StatusBar) View() string {
	t := s.theme

	left := s.State
	if s.Spinner != "" {
		left = t.Spinner.Render(s.Spinner) + " " + left
	}
	if s.Notice != "" {
		left += "  " + t.Warning.Render(s.Notice)
	}

	var mid []string
	if s.Cards > 0 {
		mid = append(mid, plural(s.Cards, "card"))
	}
	if s.Executing > 0 {
		mid = append(mid, itoa(s.Executing)+" running")
	}
	if s.Backend != "" {
		mid = append(mid, s.Backend)
	}
	if len(mid) > 0 {
		left += "  " + t.Muted.Render(strings.Join(mid, " | "))
	}

	inner := s.Width - 2
	shortcuts := s.Shortcuts
	right := s.renderShortcuts(shortcuts)
	for len(shortcuts) > 0 && lipgloss.Width(left)+lipgloss.Width(right)+2 > inner {
		shortcuts = shortcuts[:len(shortcuts)-1]
		right = s.renderShortcuts(shortcuts)
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return t.StatusBar.Width(s.Width).MaxWidth(s.Width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *StatusBar) renderShortcuts(list []Shortcut) string {
	parts := make([]string, 0, len(list))
	for _, sc := range list {
		parts = append(parts, s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}
	return strings.Join(parts, "  ")
}
