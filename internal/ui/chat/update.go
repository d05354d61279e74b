// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/datachat-tui/internal/cards"
	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/session"
	"github.com/jeranaias/datachat-tui/internal/ui/components"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Submit):
		return m.handleEnter()

	case key.Matches(msg, m.keys.Tab):
		return m.handleTab()

	case key.Matches(msg, m.keys.PrevCard):
		m.cycleCard(-1)
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.completion.Visible {
			m.completion.Reset()
		} else {
			m.selected = 0
		}
		m.notice = ""
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.NextDataset):
		m.moveHover(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevDataset):
		m.moveHover(-1)
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.completion.Visible {
		m.updateCompletions()
	}
	return m, cmd
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.completion.Visible {
		m.acceptCompletion()
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		if card := m.ctrl.CardAt(m.selected); card != nil {
			return m.runCard(card)
		}
		return m, nil
	}

	m.input.Reset()
	if commands.IsCommand(text) {
		return m.handleSlash(text)
	}
	return m.submit(text)
}

// handleTab completes slash commands, or cycles the card selection when
// the input is not a command.
func (m Model) handleTab() (tea.Model, tea.Cmd) {
	if commands.IsCommand(m.input.Value()) {
		if m.completion.Visible {
			m.completion.Next()
			return m, nil
		}
		m.updateCompletions()
		if len(m.completion.Completions) == 1 {
			m.acceptCompletion()
		}
		return m, nil
	}
	m.cycleCard(1)
	return m, nil
}

func (m *Model) updateCompletions() {
	m.completion.Update(m.completer.Complete(m.input.Value(), -1))
}

// acceptCompletion replaces the last word of the input with the selected
// candidate.
func (m *Model) acceptCompletion() {
	value := m.completion.Accept()
	m.completion.Reset()
	if value == "" {
		return
	}
	m.input.SetValue(replaceLastWord(m.input.Value(), value))
	m.input.CursorEnd()
}

func replaceLastWord(line, value string) string {
	head := ""
	if i := strings.LastIndexAny(line, " \t"); i >= 0 {
		head = line[:i+1]
	}
	if strings.HasPrefix(value, "/") {
		value += " "
	}
	return head + value
}

func (m *Model) cycleCard(delta int) {
	n := len(m.ctrl.Cards())
	if n == 0 {
		m.notice = "No command cards yet"
		return
	}
	switch {
	case m.selected == 0 && delta > 0:
		m.selected = 1
	case m.selected == 0:
		m.selected = n
	default:
		m.selected = ((m.selected-1+delta)%n+n)%n + 1
	}
	m.notice = ""
	m.refresh(false)
}

func (m *Model) moveHover(delta int) {
	n := len(m.ctrl.Datasets())
	if n == 0 {
		m.hovered = -1
		m.notice = "No datasets yet"
		return
	}
	if !m.showSidebar {
		m.showSidebar = true
		m.layout()
	}
	switch {
	case m.hovered < 0 && delta > 0:
		m.hovered = 0
	case m.hovered < 0:
		m.hovered = n - 1
	default:
		m.hovered = ((m.hovered+delta)%n + n) % n
	}
}

// =============================================================================
// CHAT AND CARDS
// =============================================================================

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if m.waiting {
		m.notice = "Waiting for the assistant to reply"
		m.input.SetValue(text)
		return m, nil
	}

	m.entries = append(m.entries, &entry{kind: entryUser, text: text, at: time.Now()})
	m.waiting = true
	m.notice = ""
	m.refresh(true)
	return m, tea.Batch(SubmitCmd(m.ctx, m.ctrl, text), m.startSpinner())
}

func (m Model) runCard(card *cards.Card) (tea.Model, tea.Cmd) {
	if !card.State().Idle() {
		m.notice = "Card " + card.Short() + " is already executing"
		return m, nil
	}
	m.executing++
	m.notice = ""
	m.refresh(false)
	return m, tea.Batch(ExecuteCardCmd(m.ctx, m.ctrl, card.ID), m.startSpinner())
}

func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	if msg.SessionID != m.ctrl.ID() {
		return m, nil
	}
	m.waiting = false

	if msg.Err != nil {
		m.logger.Warn("chat request failed", zap.Error(msg.Err))
		m.pushError(msg.Err)
		return m, nil
	}

	res := msg.Result
	e := &entry{kind: entryAssistant, text: res.Reply.Text, at: res.Assistant.Timestamp}
	for _, w := range res.Warnings {
		e.warnings = append(e.warnings, w.Error())
	}
	for _, c := range res.Cards {
		e.cardIDs = append(e.cardIDs, c.ID)
	}
	m.entries = append(m.entries, e)

	if len(res.Cards) > 0 {
		m.selected = m.cardNumber(res.Cards[0].ID)
	}
	if m.hovered >= len(m.ctrl.Datasets()) {
		m.hovered = -1
	}
	m.refresh(true)
	return m, nil
}

func (m Model) handleOutcome(msg CardOutcomeMsg) (tea.Model, tea.Cmd) {
	if msg.SessionID != m.ctrl.ID() {
		return m, nil
	}
	if m.executing > 0 {
		m.executing--
	}

	switch err := msg.Outcome.Err; {
	case errors.Is(err, cards.ErrExecuting):
		m.notice = "Card is already executing"
	case errors.Is(err, session.ErrCardNotFound):
		m.pushError(err)
	}
	m.refresh(false)
	return m, nil
}

func (m Model) handleDatacard(msg DatacardMsg) (tea.Model, tea.Cmd) {
	if msg.SessionID != m.ctrl.ID() {
		return m, nil
	}
	if m.executing > 0 {
		m.executing--
	}
	if msg.Err != nil {
		m.pushError(fmt.Errorf("datacard %s: %w", msg.Key, msg.Err))
		return m, nil
	}

	var buf bytes.Buffer
	text := string(msg.Body)
	if err := json.Indent(&buf, msg.Body, "", "  "); err == nil {
		text = buf.String()
	}
	m.entries = append(m.entries, &entry{kind: entryBlock, title: "Datacard " + msg.Key, text: text, at: time.Now()})
	m.refresh(true)
	return m, nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m Model) handleSlash(text string) (tea.Model, tea.Cmd) {
	m.completion.Reset()
	res := m.slash.Parse(text)
	if res.Command == nil {
		m.pushError(fmt.Errorf("unknown command %s (try /help)", res.CommandName))
		return m, nil
	}
	if err := commands.ValidateArgs(res.Command, res.Args); err != nil {
		m.pushError(err)
		return m, nil
	}

	switch res.Command.Name {
	case commands.SlashHelp:
		m.pushNotice(m.helpText())

	case commands.SlashQuit:
		return m.quit()

	case commands.SlashNew:
		m.reset()

	case commands.SlashSidebar:
		m.showSidebar = !m.showSidebar
		m.layout()

	case commands.SlashCards:
		m.pushNotice(m.cardsText())

	case commands.SlashRun:
		n, err := strconv.Atoi(res.Args[0])
		card := m.ctrl.CardAt(n)
		if err != nil || card == nil {
			m.pushError(fmt.Errorf("no card %q (see /cards)", res.Args[0]))
			return m, nil
		}
		m.selected = n
		return m.runCard(card)

	case commands.SlashDatacard:
		m.executing++
		m.pushNotice("Fetching datacard " + res.Args[0])
		return m, tea.Batch(DatacardCmd(m.ctx, m.ctrl, res.Args[0]), m.startSpinner())

	default:
		inv, err := res.Invocation()
		if err != nil {
			m.pushError(err)
			return m, nil
		}
		card := m.ctrl.AddCard(inv)
		m.entries = append(m.entries, &entry{kind: entryNotice, text: text, at: time.Now(), cardIDs: []string{card.ID}})
		m.selected = m.cardNumber(card.ID)
		return m.runCard(card)
	}
	return m, nil
}

func (m Model) helpText() string {
	var b strings.Builder
	groups := m.slash.ByCategory()
	for _, category := range commands.Categories {
		list := groups[category]
		if len(list) == 0 {
			continue
		}
		b.WriteString(category + "\n")
		for _, cmd := range list {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&b, "  %-42s %s\n", usage, cmd.Description)
		}
	}
	b.WriteString("Keys\n")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-42s %s\n", h.Key, h.Desc)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) cardsText() string {
	list := m.ctrl.Cards()
	if len(list) == 0 {
		return "No command cards yet"
	}
	lines := make([]string, len(list))
	for i, c := range list {
		lines[i] = fmt.Sprintf("%d. %s", i+1, c.Summary())
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (m Model) handleReload(msg ConfigReloadMsg) (tea.Model, tea.Cmd) {
	next := WaitForReloadCmd(m.reloads)
	if msg.Err != nil {
		m.logger.Warn("config reload failed", zap.Error(msg.Err))
		m.notice = "Config reload failed: " + msg.Err.Error()
		return m, next
	}
	if msg.Config != nil {
		m.applyConfig(msg.Config)
		m.notice = "Config reloaded"
	}
	return m, next
}

// applyConfig applies the settings that can change while running: theme,
// sidebar, markdown and card timeout.
func (m *Model) applyConfig(cfg *config.Config) {
	m.theme = styles.NewTheme(cfg.UI.Theme)
	m.input.PromptStyle = m.theme.InputPrompt
	m.spinner.Style = m.theme.Spinner
	m.popup = components.NewCompletionPopup(m.theme)
	m.statusBar = components.NewStatusBar(m.theme)
	m.markdown.SetStyle(m.theme.MarkdownStyle)
	m.markdown.SetEnabled(cfg.UI.Markdown)
	m.showSidebar = cfg.UI.ShowSidebar
	m.ctrl.SetCardTimeout(cfg.Timeout())

	for _, e := range m.entries {
		e.renderedWidth = 0
	}
	m.layout()
}
