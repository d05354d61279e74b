// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// Markdown renders assistant text through glamour. Renderers are built
// lazily and reused while style and width stay the same.
type Markdown struct {
	mu       sync.Mutex
	style    string
	width    int
	renderer *glamour.TermRenderer
	disabled bool
}

// NewMarkdown creates a renderer for the named glamour style ("dark",
// "light", "auto", ...). Width is the wrap column; zero disables wrapping.
func NewMarkdown(style string, width int) *Markdown {
	return &Markdown{style: style, width: width}
}

// SetWidth changes the wrap column. The renderer is rebuilt on next use.
func (m *Markdown) SetWidth(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width != m.width {
		m.width = width
		m.renderer = nil
	}
}

// SetStyle changes the glamour style. The renderer is rebuilt on next use.
func (m *Markdown) SetStyle(style string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if style != m.style {
		m.style = style
		m.renderer = nil
	}
}

// SetEnabled turns markdown rendering on or off. When off, Render returns
// its input unchanged.
func (m *Markdown) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.disabled = !enabled
	m.mu.Unlock()
}

// Render formats text as terminal markdown, falling back to the plain text
// when glamour cannot render it.
func (m *Markdown) Render(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disabled {
		return text
	}
	if m.renderer == nil {
		r, err := m.build()
		if err != nil {
			return text
		}
		m.renderer = r
	}

	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (m *Markdown) build() (*glamour.TermRenderer, error) {
	opts := []glamour.TermRendererOption{}
	switch m.style {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	default:
		opts = append(opts, glamour.WithStandardStyle(m.style))
	}
	if m.width > 0 {
		opts = append(opts, glamour.WithWordWrap(m.width))
	}
	return glamour.NewTermRenderer(opts...)
}
