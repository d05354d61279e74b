// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/datachat-tui/internal/model"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one entry of the conversation: a user turn, an
// assistant turn or an error turn.
type MessageBubble struct {
	Role      model.Role
	Content   string
	Timestamp time.Time

	// Err marks an error turn; Content is ignored
	Err error

	// Warnings are non-fatal notes shown under an assistant turn
	Warnings []string

	Width         int
	ShowTimestamp bool

	theme    *styles.Theme
	markdown *Markdown
}

// NewMessageBubble creates a bubble for a history turn. Assistant content
// is passed through md when it is not nil.
func NewMessageBubble(theme *styles.Theme, md *Markdown, role model.Role, content string) *MessageBubble {
	return &MessageBubble{
		Role:     role,
		Content:  content,
		Width:    80,
		theme:    theme,
		markdown: md,
	}
}

// NewErrorBubble creates an error turn.
func NewErrorBubble(theme *styles.Theme, err error) *MessageBubble {
	return &MessageBubble{Err: err, Width: 80, theme: theme}
}

// SetWidth sets the available width.
func (b *MessageBubble) SetWidth(width int) {
	b.Width = width
}

// View renders the bubble.
func (b *MessageBubble) View() string {
	if b.Err != nil {
		return b.renderError()
	}
	switch b.Role {
	case model.RoleUser:
		return b.renderUser()
	default:
		return b.renderAssistant()
	}
}

func (b *MessageBubble) contentWidth() int {
	w := b.Width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (b *MessageBubble) header(label lipgloss.Style, name string) string {
	h := label.Render(name)
	if b.ShowTimestamp && !b.Timestamp.IsZero() {
		h += " " + b.theme.Muted.Render(b.Timestamp.Format("15:04"))
	}
	return h
}

func (b *MessageBubble) renderUser() string {
	body := b.theme.UserBubble.Width(b.contentWidth()).Render(b.Content)
	return lipgloss.JoinVertical(lipgloss.Left, b.header(b.theme.UserLabel, model.RoleUser.DisplayName()), body)
}

func (b *MessageBubble) renderAssistant() string {
	content := strings.TrimSpace(b.Content)
	if content == "" {
		content = "..."
	} else if b.markdown != nil {
		content = b.markdown.Render(content)
	}

	parts := []string{
		b.header(b.theme.AssistantLabel, model.RoleAssistant.DisplayName()),
		b.theme.AssistantBody.Width(b.contentWidth()).Render(content),
	}
	for _, w := range b.Warnings {
		parts = append(parts, b.theme.Warning.Render(styles.StatusIndicators.Warning+" "+w))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *MessageBubble) renderError() string {
	return b.theme.ErrorTurn.Width(b.contentWidth()).Render("Error: " + errorText(b.Err))
}

// errorText strips a leading "Error: " so error turns never double it.
func errorText(err error) string {
	return strings.TrimPrefix(err.Error(), "Error: ")
}
