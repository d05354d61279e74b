// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/datachat-tui/internal/model"
	"github.com/jeranaias/datachat-tui/internal/session"
	"github.com/jeranaias/datachat-tui/internal/ui/components"
)

const welcomeText = "Ask about datasets and datacards. Replies that mention commands " +
	"show up as cards you can run with Enter. Type /help for commands."

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat view.
func (m Model) View() string {
	popup := m.popup.View(m.completion)

	vp := m.viewport
	if popup != "" {
		vp.Height = max(vp.Height-lipgloss.Height(popup), 1)
	}
	main := vp.View()
	if m.sidebarVisible() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.renderSidebar())
	}

	parts := []string{m.renderHeader(), main}
	if popup != "" {
		parts = append(parts, popup)
	}
	parts = append(parts, m.renderInput(), m.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("datachat")
	if m.backend != "" {
		title += "  " + m.theme.HeaderSubtitle.Render(m.backend)
	}
	title += "  " + m.theme.Muted.Render("session "+m.ctrl.ID()[:8])
	return m.theme.Header.Width(m.width).MaxWidth(m.width).Render(title)
}

func (m Model) renderSidebar() string {
	view := components.RenderSidebar(m.ctrl.Datasets(), m.ctrl.Datacards(), components.SidebarOptions{
		Width:    m.sidebarWidth(),
		Selected: m.hoveredKey(),
		Theme:    m.theme,
	})
	return lipgloss.NewStyle().MaxHeight(m.viewport.Height).Render(view)
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	bar := m.statusBar
	bar.State = stateLabel(m.displayState())
	bar.Spinner = ""
	if m.busy() {
		bar.Spinner = m.spinner.View()
	}
	bar.Cards = len(m.ctrl.Cards())
	bar.Executing = m.executing
	bar.Notice = m.notice
	return bar.View()
}

// displayState is the controller state as the view sees it. Requests are
// dispatched asynchronously, so the view's own flags lead the controller's.
func (m Model) displayState() session.State {
	switch {
	case m.waiting:
		return session.StateAwaitingResponse
	case m.executing > 0:
		return session.StateAwaitingCommandResult
	default:
		return m.ctrl.State()
	}
}

func stateLabel(s session.State) string {
	switch s {
	case session.StateAwaitingResponse:
		return "Waiting for reply"
	case session.StateAwaitingCommandResult:
		return "Running commands"
	default:
		return "Ready"
	}
}

// =============================================================================
// CONVERSATION
// =============================================================================

func (m Model) renderConversation(width int) string {
	if len(m.entries) == 0 {
		return m.theme.Muted.Width(max(width-2, 10)).Render(welcomeText)
	}

	numbers := make(map[string]int)
	for i, c := range m.ctrl.Cards() {
		numbers[c.ID] = i + 1
	}
	spin := ""
	if m.busy() {
		spin = m.spinner.View()
	}

	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		var parts []string

		switch e.kind {
		case entryUser:
			b := components.NewMessageBubble(m.theme, nil, model.RoleUser, e.text)
			b.SetWidth(width)
			parts = append(parts, b.View())

		case entryAssistant:
			if e.renderedWidth != width {
				e.rendered = m.markdown.Render(e.text)
				e.renderedWidth = width
			}
			b := components.NewMessageBubble(m.theme, nil, model.RoleAssistant, e.rendered)
			b.Warnings = e.warnings
			b.SetWidth(width)
			parts = append(parts, b.View())

		case entryError:
			b := components.NewErrorBubble(m.theme, e.err)
			b.SetWidth(width)
			parts = append(parts, b.View())

		case entryNotice:
			parts = append(parts, m.theme.Muted.Width(max(width-2, 10)).Render(e.text))

		case entryBlock:
			block := components.NewCodeBlock(m.theme, e.text, "json")
			block.Width = width - 2
			parts = append(parts, m.theme.CardTitle.Render(e.title), block.View())
		}

		for _, id := range e.cardIDs {
			n := numbers[id]
			card := m.ctrl.CardAt(n)
			if card == nil {
				continue
			}
			v := components.NewCardView(m.theme, card, n)
			v.Width = width - 2
			v.Selected = n == m.selected
			v.Spinner = spin
			parts = append(parts, v.View())
		}

		blocks = append(blocks, strings.Join(parts, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}
