// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
	"github.com/jeranaias/datachat-tui/internal/util"
)

// =============================================================================
// COMPLETION POPUP COMPONENT
// =============================================================================

// CompletionPopup displays the tab completion candidates above the input.
type CompletionPopup struct {
	MaxVisible int
	Width      int
	theme      *styles.Theme
}

// NewCompletionPopup creates a popup showing up to eight candidates.
func NewCompletionPopup(theme *styles.Theme) *CompletionPopup {
	return &CompletionPopup{MaxVisible: 8, Width: 50, theme: theme}
}

// View renders state. It returns "" when nothing is visible.
func (c *CompletionPopup) View(state commands.CompletionState) string {
	if !state.Visible || len(state.Completions) == 0 {
		return ""
	}

	// Scrolling window centered on the selection.
	start, end := 0, len(state.Completions)
	if c.MaxVisible > 0 && end > c.MaxVisible {
		start = state.Selected - c.MaxVisible/2
		if start < 0 {
			start = 0
		}
		end = start + c.MaxVisible
		if end > len(state.Completions) {
			end = len(state.Completions)
			start = end - c.MaxVisible
		}
	}

	inner := c.Width - 4
	valueWidth := 20
	if valueWidth > inner/2 {
		valueWidth = inner / 2
	}

	items := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		comp := state.Completions[i]
		value := comp.Display
		if value == "" {
			value = comp.Value
		}
		line := util.PadRight(value, valueWidth) + " " +
			util.TruncateWidth(comp.Description, inner-valueWidth-1)
		if i == state.Selected {
			items = append(items, c.theme.CompletionSelected.Render(line))
		} else {
			items = append(items, c.theme.CompletionItem.Render(line))
		}
	}

	return c.theme.CompletionPopup.Width(c.Width - 2).Render(strings.Join(items, "\n"))
}
