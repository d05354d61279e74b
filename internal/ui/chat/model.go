// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/logging"
	"github.com/jeranaias/datachat-tui/internal/session"
	"github.com/jeranaias/datachat-tui/internal/ui/components"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

// Fixed heights of the chrome around the viewport.
const (
	headerHeight = 1
	inputHeight  = 2 // top border + input line
	statusHeight = 1

	// sidebarMinTotal is the narrowest terminal that still shows the sidebar.
	sidebarMinTotal = 70
)

// =============================================================================
// CONVERSATION ENTRIES
// =============================================================================

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryError
	entryNotice
	entryBlock
)

// entry is one block of the conversation view. Entries are append-only and
// shared between model copies.
type entry struct {
	kind     entryKind
	text     string
	title    string
	at       time.Time
	err      error
	warnings []string
	cardIDs  []string

	// rendered caches the markdown output for renderedWidth
	rendered      string
	renderedWidth int
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures the chat view.
type Options struct {
	// Backend is shown in the header
	Backend string

	// ShowSidebar shows the catalog panel on start
	ShowSidebar bool

	// Markdown renders assistant text with glamour
	Markdown bool

	// NewSession creates the controller for /new. When nil, /new only
	// clears the screen.
	NewSession func() *session.Controller

	// Reloads delivers config file changes
	Reloads <-chan ConfigReloadMsg

	Logger *zap.Logger
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// ctx is canceled when the session is replaced or the program quits
	ctx    context.Context
	cancel context.CancelFunc

	theme *styles.Theme
	keys  KeyMap

	ctrl       *session.Controller
	newSession func() *session.Controller
	slash      *commands.SlashSet
	completer  *commands.Completer
	completion commands.CompletionState

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	spinning bool

	markdown  *components.Markdown
	popup     *components.CompletionPopup
	statusBar *components.StatusBar

	entries   []*entry
	selected  int // 1-based card number, 0 when none
	hovered   int // sidebar dataset index, -1 when none
	waiting   bool
	executing int
	notice    string

	showSidebar bool
	width       int
	height      int

	backend string
	reloads <-chan ConfigReloadMsg
	logger  *zap.Logger
}

// New creates the chat view over ctrl.
func New(theme *styles.Theme, ctrl *session.Controller, slash *commands.SlashSet, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about datasets, or type /help"
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	md := components.NewMarkdown(theme.MarkdownStyle, 76)
	md.SetEnabled(opts.Markdown)

	m := Model{
		theme:       theme,
		keys:        DefaultKeyMap(),
		newSession:  opts.NewSession,
		slash:       slash,
		completer:   commands.NewCompleter(slash),
		viewport:    vp,
		input:       ti,
		spinner:     sp,
		markdown:    md,
		popup:       components.NewCompletionPopup(theme),
		statusBar:   components.NewStatusBar(theme),
		hovered:     -1,
		showSidebar: opts.ShowSidebar,
		width:       80,
		height:      24,
		backend:     opts.Backend,
		reloads:     opts.Reloads,
		logger:      logging.OrNop(opts.Logger),
	}
	m.setController(ctrl)
	m.layout()
	return m
}

// setController switches the view to ctrl and cancels work started for the
// previous session.
func (m *Model) setController(ctrl *session.Controller) {
	if m.cancel != nil {
		m.cancel()
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.ctrl = ctrl
	m.completer.DatasetsFn = ctrl.DatasetKeys
	m.completer.DatacardsFn = ctrl.DatacardKeys
}

// Controller returns the session the view is showing.
func (m Model) Controller() *session.Controller {
	return m.ctrl
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the config reload listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, WaitForReloadCmd(m.reloads))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return m, cmd

	case ReplyMsg:
		return m.handleReply(msg)

	case CardOutcomeMsg:
		return m.handleOutcome(msg)

	case DatacardMsg:
		return m.handleDatacard(msg)

	case ConfigReloadMsg:
		return m.handleReload(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT AND STATE HELPERS
// =============================================================================

func (m *Model) layout() {
	width := m.width
	if m.sidebarVisible() {
		width -= m.sidebarWidth()
	}
	m.viewport.Width = max(width, 1)
	m.viewport.Height = max(m.height-headerHeight-inputHeight-statusHeight, 1)

	m.input.Width = max(m.width-len(m.input.Prompt)-2, 10)
	m.popup.Width = min(m.width, 64)
	m.statusBar.SetWidth(m.width)
	m.markdown.SetWidth(max(m.viewport.Width-6, 20))
	m.refresh(false)
}

func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.width >= sidebarMinTotal
}

func (m Model) sidebarWidth() int {
	return min(max(m.width/3, 24), 40)
}

// refresh re-renders the conversation into the viewport, keeping the
// scroll position unless follow is set or the view was already at the end.
func (m *Model) refresh(follow bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation(m.viewport.Width))
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m Model) busy() bool {
	return m.waiting || m.executing > 0
}

// startSpinner returns the first tick unless the spinner is already running.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *Model) pushError(err error) {
	m.entries = append(m.entries, &entry{kind: entryError, err: err, at: time.Now()})
	m.refresh(true)
}

func (m *Model) pushNotice(text string) {
	m.entries = append(m.entries, &entry{kind: entryNotice, text: text, at: time.Now()})
	m.refresh(true)
}

// cardNumber returns the 1-based position of the card with id, or 0.
func (m Model) cardNumber(id string) int {
	for i, c := range m.ctrl.Cards() {
		if c.ID == id {
			return i + 1
		}
	}
	return 0
}

func (m Model) hoveredKey() string {
	ds := m.ctrl.Datasets()
	if m.hovered < 0 || m.hovered >= len(ds) {
		return ""
	}
	return ds[m.hovered].Key()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return *m, tea.Quit
}

// reset replaces the session with a fresh one.
func (m *Model) reset() {
	if m.newSession != nil {
		m.setController(m.newSession())
	}
	m.entries = nil
	m.selected = 0
	m.hovered = -1
	m.waiting = false
	m.executing = 0
	m.notice = "New session started"
	m.completion.Reset()
	m.refresh(true)
}
