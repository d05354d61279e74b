// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/datachat-tui/internal/cards"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
	"github.com/jeranaias/datachat-tui/internal/util"
)

// maxJSONLines clips non-tabular results inside a card.
const maxJSONLines = 30

// =============================================================================
// COMMAND CARD VIEW
// =============================================================================

// CardView renders one command card: its label, parameters, state badge
// and, once executed, the result or error.
type CardView struct {
	Card     *cards.Card
	Index    int
	Selected bool
	Width    int
	Spinner  string
	theme    *styles.Theme
}

// NewCardView creates a view for card. Index is the 1-based position shown
// in the title and accepted by /run.
func NewCardView(theme *styles.Theme, card *cards.Card, index int) *CardView {
	return &CardView{Card: card, Index: index, Width: 80, theme: theme}
}

// StateBadge renders the card state with its color.
func StateBadge(theme *styles.Theme, state cards.State) string {
	switch state {
	case cards.StateExecuting:
		return theme.CardExecuting.Render("~ " + state.String())
	case cards.StateDone:
		return theme.CardDone.Render(styles.StatusIndicators.Success + " " + state.String())
	case cards.StateFailed:
		return theme.CardFailed.Render(styles.StatusIndicators.Error + " " + state.String())
	default:
		return theme.CardPending.Render(styles.StatusIndicators.Pending + " " + state.String())
	}
}

// View renders the card.
func (v *CardView) View() string {
	t := v.theme
	c := v.Card
	inner := v.Width - 4
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder

	title := t.CardTitle.Render("[" + itoa(v.Index) + "] " + c.Label())
	badge := StateBadge(t, c.State())
	if c.State() == cards.StateExecuting && v.Spinner != "" {
		badge = t.Spinner.Render(v.Spinner) + " " + badge
	}
	gap := inner - lipgloss.Width(title) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(title + strings.Repeat(" ", gap) + badge)

	query := c.Invocation.Query
	if len(c.Invocation.Structured) > 0 {
		query = string(c.Invocation.Structured)
	}
	b.WriteString("\n" + v.field("Query", query, inner))
	if c.Invocation.Dataset != "" {
		b.WriteString("\n" + v.field("Dataset", c.Invocation.Dataset, inner))
	}

	if body := v.body(inner); body != "" {
		b.WriteString("\n\n" + body)
	}

	if d := fmtDuration(c.Duration()); d != "" && c.State().Idle() {
		b.WriteString("\n" + t.Muted.Render("took "+d))
	} else if v.Selected && c.State() == cards.StatePending {
		b.WriteString("\n" + t.Muted.Render("enter to run"))
	}

	frame := t.Card
	if v.Selected {
		frame = t.CardSelected
	}
	return frame.Width(inner + 2).Render(b.String())
}

func (v *CardView) field(name, value string, width int) string {
	label := name + ": "
	return v.theme.CardField.Render(label) +
		v.theme.CardValue.Render(util.TruncateWidth(value, width-len(label)))
}

func (v *CardView) body(width int) string {
	c := v.Card
	switch c.State() {
	case cards.StateFailed:
		if err := c.Err(); err != nil {
			return v.theme.ErrorTurn.Render("Error: " + err.Error())
		}
	case cards.StateDone:
		res := c.Result()
		if res == nil {
			return ""
		}
		if res.IsTabular() {
			tbl := NewResultTable(v.theme, res.Rows)
			tbl.Width = 0
			return lipgloss.NewStyle().MaxWidth(width).Render(tbl.View())
		}
		block := NewCodeBlock(v.theme, res.Pretty(), "json")
		block.MaxLines = maxJSONLines
		block.Width = width
		return block.View()
	}
	return ""
}
