// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// Highlight applies syntax highlighting to code with the named chroma
// style. Unknown languages are detected from the code itself. On any
// failure the code is returned unchanged.
func Highlight(code, language, style string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	s := chromaStyles.Get(style)
	if s == nil {
		s = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, s, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// HighlightJSON highlights a JSON document.
func HighlightJSON(code, style string) string {
	return Highlight(code, "json", style)
}

// =============================================================================
// CODE BLOCK
// =============================================================================

// CodeBlock renders a highlighted block with a language label, clipped to
// MaxLines when that is positive.
type CodeBlock struct {
	Code     string
	Language string
	MaxLines int
	Width    int
	theme    *styles.Theme
}

// NewCodeBlock creates a code block using theme's code style.
func NewCodeBlock(theme *styles.Theme, code, language string) *CodeBlock {
	return &CodeBlock{Code: code, Language: language, theme: theme}
}

// View renders the block.
func (c *CodeBlock) View() string {
	code := strings.TrimRight(c.Code, "\n")
	hidden := 0
	if c.MaxLines > 0 {
		lines := strings.Split(code, "\n")
		if len(lines) > c.MaxLines {
			hidden = len(lines) - c.MaxLines
			code = strings.Join(lines[:c.MaxLines], "\n")
		}
	}

	style := "monokai"
	if c.theme != nil {
		style = c.theme.CodeStyle
	}
	body := Highlight(code, c.Language, style)

	if hidden > 0 {
		more := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
		body += "\n" + more.Render("... "+itoa(hidden)+" more lines")
	}
	if c.Width > 0 {
		body = lipgloss.NewStyle().MaxWidth(c.Width).Render(body)
	}
	return body
}
