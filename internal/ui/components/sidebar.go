// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/datachat-tui/internal/model"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
	"github.com/jeranaias/datachat-tui/internal/util"
)

// DefaultSidebarWidth is used when SidebarOptions.Width is not set.
const DefaultSidebarWidth = 32

// =============================================================================
// SIDEBAR
// =============================================================================

// SidebarOptions controls sidebar rendering.
type SidebarOptions struct {
	// Width is the total width in columns, border included
	Width int

	// Selected is the "org/slug" key of the dataset to expand
	Selected string

	// ExpandAll shows measures and dimensions for every dataset
	ExpandAll bool

	// Theme styles the output. Required by RenderSidebar only.
	Theme *styles.Theme
}

func (o SidebarOptions) width() int {
	if o.Width <= 0 {
		return DefaultSidebarWidth
	}
	return o.Width
}

// RenderSidebar renders the catalog panel. The output depends only on its
// arguments, so rendering the same lists twice gives identical text.
func RenderSidebar(datasets []model.DatasetSummary, datacards []model.DatacardSummary, opts SidebarOptions) string {
	t := opts.Theme
	if t == nil {
		return RenderSidebarPlain(datasets, datacards, opts)
	}
	// The left border and padding take two columns.
	inner := opts.width() - 2
	if inner < 8 {
		inner = 8
	}

	var lines []string

	lines = append(lines, t.SidebarSection.Render(util.TruncateWidth(sectionTitle("Datasets", len(datasets)), inner)))
	if len(datasets) == 0 {
		lines = append(lines, t.Muted.Render("  none yet"))
	}
	for _, d := range datasets {
		selected := d.Key() == opts.Selected
		marker := "  "
		style := t.SidebarItem
		if selected {
			marker = "> "
			style = t.SidebarSelected
		}
		lines = append(lines, style.Render(util.TruncateWidth(marker+d.Title(), inner)))
		lines = append(lines, t.SidebarKey.Render(util.TruncateWidth("  "+d.Key(), inner)))
		if selected || opts.ExpandAll {
			for _, detail := range datasetDetails(d) {
				// SidebarDetail adds two columns of padding.
				lines = append(lines, t.SidebarDetail.Render(util.TruncateWidth(detail, inner-2)))
			}
		}
	}

	lines = append(lines, "")
	lines = append(lines, t.SidebarSection.Render(util.TruncateWidth(sectionTitle("Datacards", len(datacards)), inner)))
	if len(datacards) == 0 {
		lines = append(lines, t.Muted.Render("  none yet"))
	}
	for _, d := range datacards {
		lines = append(lines, t.SidebarItem.Render(util.TruncateWidth("  "+d.Title(), inner)))
		lines = append(lines, t.SidebarKey.Render(util.TruncateWidth("  "+d.Key(), inner)))
	}

	return t.Sidebar.Width(inner + 1).Render(strings.Join(lines, "\n"))
}

// RenderSidebarPlain renders the catalog as unstyled text for the line
// REPL. Like RenderSidebar it is a pure function of its arguments.
func RenderSidebarPlain(datasets []model.DatasetSummary, datacards []model.DatacardSummary, opts SidebarOptions) string {
	width := opts.width()
	var b strings.Builder

	b.WriteString(sectionTitle("Datasets", len(datasets)) + "\n")
	if len(datasets) == 0 {
		b.WriteString("  none yet\n")
	}
	for _, d := range datasets {
		marker := "  - "
		if d.Key() == opts.Selected {
			marker = "  > "
		}
		b.WriteString(util.TruncateWidth(marker+d.Title()+" ("+d.Key()+")", width) + "\n")
		if d.Key() == opts.Selected || opts.ExpandAll {
			for _, detail := range datasetDetails(d) {
				b.WriteString(util.TruncateWidth("      "+detail, width) + "\n")
			}
		}
	}

	b.WriteString(sectionTitle("Datacards", len(datacards)) + "\n")
	if len(datacards) == 0 {
		b.WriteString("  none yet\n")
	}
	for _, d := range datacards {
		b.WriteString(util.TruncateWidth("  - "+d.Title()+" ("+d.Key()+")", width) + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func sectionTitle(name string, n int) string {
	return name + " (" + itoa(n) + ")"
}

// datasetDetails returns the expanded lines for a dataset.
func datasetDetails(d model.DatasetSummary) []string {
	var out []string
	if len(d.Measures) > 0 {
		out = append(out, "Measures: "+strings.Join(d.Measures, ", "))
	}
	if len(d.Dimensions) > 0 {
		out = append(out, "Dimensions: "+strings.Join(d.Dimensions, ", "))
	}
	if len(out) == 0 {
		out = append(out, "No measures or dimensions")
	}
	return out
}
