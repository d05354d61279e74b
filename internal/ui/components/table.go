// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jeranaias/datachat-tui/internal/model"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
	"github.com/jeranaias/datachat-tui/internal/util"
)

// DefaultMaxRows caps how many result rows a card shows inline.
const DefaultMaxRows = 20

// maxCellWidth keeps a single long value from blowing out the table.
const maxCellWidth = 40

// =============================================================================
// RESULT TABLE
// =============================================================================

// ResultTable renders a tabular query result. Columns keep the order they
// had in the response.
type ResultTable struct {
	Result  *model.QueryResult
	Width   int
	MaxRows int
	theme   *styles.Theme
}

// NewResultTable creates a table view for res.
func NewResultTable(theme *styles.Theme, res *model.QueryResult) *ResultTable {
	return &ResultTable{Result: res, MaxRows: DefaultMaxRows, theme: theme}
}

// View renders the table. An empty result renders as a muted note.
func (t *ResultTable) View() string {
	if t.Result == nil || t.Result.IsEmpty() {
		return t.theme.Muted.Render("(no rows)")
	}

	cells := t.Result.Cells()
	hidden := 0
	if t.MaxRows > 0 && len(cells) > t.MaxRows {
		hidden = len(cells) - t.MaxRows
		cells = cells[:t.MaxRows]
	}

	rows := make([][]string, len(cells))
	for i, row := range cells {
		out := make([]string, len(row))
		for j, cell := range row {
			out[j] = util.TruncateWidth(cell, maxCellWidth)
		}
		rows[i] = out
	}

	headerStyle := t.theme.TableHeader
	cellStyle := t.theme.TableCell

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(t.theme.TableBorder).
		Headers(t.Result.Columns()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if t.Width > 0 {
		tbl = tbl.Width(t.Width)
	}

	view := tbl.String()
	if hidden > 0 {
		view += "\n" + t.theme.Muted.Render("... "+plural(hidden, "more row"))
	}
	return view
}
