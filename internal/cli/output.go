// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Result rendering for --output table|json|yaml.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/model"
)

// OutputFormat selects how results are printed.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// OutputFormats lists the accepted --output values.
var OutputFormats = []string{string(FormatTable), string(FormatJSON), string(FormatYAML)}

// ParseOutputFormat validates an --output value. Empty means table.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", &ValidationError{
			Field:   "output",
			Value:   s,
			Reason:  "must be one of " + strings.Join(OutputFormats, ", "),
			Example: "datachat search dataset jobs --output yaml",
		}
	}
}

// =============================================================================
// PRINTER
// =============================================================================

// Printer writes command results in one output format.
type Printer struct {
	Format OutputFormat
	Out    io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(format OutputFormat, w io.Writer) *Printer {
	return &Printer{Format: format, Out: w}
}

// PrintResult prints a command result. In table format, row lists become
// a table and anything else is shown as YAML.
func (p *Printer) PrintResult(command string, res *commands.Result) error {
	switch p.Format {
	case FormatJSON:
		var data any
		if res != nil && len(res.Raw) > 0 {
			data = res.Raw
		}
		return NewJSONResponse(command, data).Print(p.Out)
	case FormatYAML:
		return writeYAML(p.Out, res.Raw)
	default:
		if res.IsTabular() {
			return renderTable(p.Out, res.Rows)
		}
		return writeYAML(p.Out, res.Raw)
	}
}

// PrintError prints a failed command. Only JSON output carries errors on
// stdout; other formats leave them to Execute.
func (p *Printer) PrintError(command string, err error) {
	if p.Format == FormatJSON {
		_ = NewJSONErrorResponse(command, err).Print(p.Out)
	}
}

// PrintData prints a structured value. text renders the table format.
func (p *Printer) PrintData(command string, data any, text func(io.Writer) error) error {
	switch p.Format {
	case FormatJSON:
		return NewJSONResponse(command, data).Print(p.Out)
	case FormatYAML:
		enc := yaml.NewEncoder(p.Out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		return text(p.Out)
	}
}

// =============================================================================
// RENDERERS
// =============================================================================

func renderTable(w io.Writer, rows *model.QueryResult) error {
	if rows.IsEmpty() {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	cols := rows.Columns()
	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, cells := range rows.Cells() {
		row := make(table.Row, len(cells))
		for i, cell := range cells {
			row[i] = cell
		}
		t.AppendRow(row)
	}

	t.Render()
	if rows.Len() == 1 {
		_, _ = fmt.Fprintln(w, "(1 row)")
	} else {
		_, _ = fmt.Fprintf(w, "(%d rows)\n", rows.Len())
	}
	return nil
}

// writeYAML converts a JSON body to block-style YAML, keeping key order.
func writeYAML(w io.Writer, raw []byte) error {
	if len(raw) == 0 {
		_, _ = fmt.Fprintln(w, "null")
		return nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		_, _ = fmt.Fprintln(w, string(raw))
		return nil
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles JSON input decodes with.
// The encoder still quotes strings that would otherwise read as numbers.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
