// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colors and lipgloss styles for the datachat TUI.

# Color System (colors.go)

All colors are lipgloss.AdaptiveColor values so they follow the terminal's
light or dark background:

  - Purple: assistant messages, selections
  - Cyan: user messages, commands, dataset keys
  - Emerald: completed command cards
  - Amber: warnings, executing cards
  - Rose: errors, failed cards

# Themes (theme.go)

NewTheme builds every style for one of three modes:

	styles.NewTheme("auto")  // detect via termenv
	styles.NewTheme("dark")
	styles.NewTheme("light")

The theme is rebuilt when the config file changes, so components take a
*Theme rather than reading package globals.
*/
package styles
