// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/datachat-tui/internal/backend"
	"github.com/jeranaias/datachat-tui/internal/cards"
	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/session"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type fakeBackend struct {
	mu      sync.Mutex
	replies []string
	status  int

	searches atomic.Int32
	queries  atomic.Int32
}

func newFakeBackend(t *testing.T, replies ...string) (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{replies: replies, status: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc(backend.PathChat, func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		status := fb.status
		body := `{"error":"no reply queued"}`
		if len(fb.replies) > 0 {
			body, fb.replies = fb.replies[0], fb.replies[1:]
		}
		fb.mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
	mux.HandleFunc(backend.PathSearchDataset, func(w http.ResponseWriter, r *http.Request) {
		fb.searches.Add(1)
		w.Write([]byte(`[{"organization":"us_lbs","dataset_slug":"jobs","description":"Jobs"}]`))
	})
	mux.HandleFunc(backend.PathQueryDataset, func(w http.ResponseWriter, r *http.Request) {
		fb.queries.Add(1)
		w.Write([]byte(`[{"year":2020,"jobs":10}]`))
	})
	mux.HandleFunc(backend.PathDatacard+"/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Trend"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return fb, server
}

func chatReply(t *testing.T, message, retrieved string) string {
	body := map[string]string{"message": message}
	if retrieved != "" {
		body["retrieved_information"] = retrieved
	}
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return string(data)
}

const retrievedJSON = `{"datasets":[{"organization":"us_lbs","dataset_slug":"jobs","description":"Jobs by state","measures":["jobs"],"dimensions":["state"]}],"datacards":[]}`

func newTestModel(t *testing.T, server *httptest.Server) Model {
	client := backend.NewClient(server.URL)
	reg := commands.NewRegistry(client)
	newCtrl := func() *session.Controller {
		return session.New(client, reg, nil, session.Options{})
	}

	m := New(styles.NewTheme("dark"), newCtrl(), commands.NewSlashSet(reg), Options{
		Backend:     server.URL,
		ShowSidebar: true,
		NewSession:  newCtrl,
	})
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// drain runs cmd and every command it batches, returning their messages.
func drain(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, drain(t, c)...)
			}
			return out
		}
		return []tea.Msg{msg}
	case <-time.After(5 * time.Second):
		t.Fatal("command did not finish")
		return nil
	}
}

// run feeds the session messages produced by cmd back into the model until
// no more work is pending.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range drain(t, cmd) {
		switch msg.(type) {
		case ReplyMsg, CardOutcomeMsg, DatacardMsg:
			var next tea.Cmd
			m, next = update(m, msg)
			m = run(t, m, next)
		}
	}
	return m
}

// enter types text into the input and presses Enter.
func enter(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	return run(t, m, cmd)
}

func press(m Model, k tea.KeyType) Model {
	m, _ = update(m, tea.KeyMsg{Type: k})
	return m
}

func conversation(m Model) string {
	return m.renderConversation(m.viewport.Width)
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestSubmit_ShowsReplyCardsAndSidebar(t *testing.T) {
	_, server := newFakeBackend(t, chatReply(t, `Here. <$search_dataset query="jobs"/>`, retrievedJSON))
	m := newTestModel(t, server)

	m = enter(t, m, "find jobs data")

	require.Len(t, m.entries, 2)
	assert.Equal(t, entryUser, m.entries[0].kind)
	assert.Equal(t, entryAssistant, m.entries[1].kind)
	assert.NotContains(t, m.entries[1].text, "<$search_dataset")
	assert.False(t, m.waiting)
	assert.Equal(t, 1, m.selected, "first new card is selected")

	conv := conversation(m)
	assert.Contains(t, conv, "find jobs data")
	assert.Contains(t, conv, "[1] Search Dataset")
	assert.Contains(t, conv, "Query: jobs")

	view := m.View()
	assert.Contains(t, view, "Datasets (1)")
	assert.Contains(t, view, "us_lbs/jobs")
	assert.Equal(t, "", m.input.Value())
}

func TestEnter_RunsSelectedCard(t *testing.T) {
	fb, server := newFakeBackend(t, chatReply(t, `<$search_dataset query="jobs"/>`, ""))
	m := newTestModel(t, server)
	m = enter(t, m, "jobs")

	m = enter(t, m, "")

	card := m.ctrl.CardAt(1)
	require.NotNil(t, card)
	assert.Equal(t, cards.StateDone, card.State())
	assert.Equal(t, int32(1), fb.searches.Load())
	assert.Equal(t, 0, m.executing)
	assert.Contains(t, conversation(m), "Done")
}

func TestTab_CyclesCards(t *testing.T) {
	_, server := newFakeBackend(t, chatReply(t, `<$search_dataset query="a"/> and <$search_datacard query="b"/>`, ""))
	m := newTestModel(t, server)
	m = enter(t, m, "two things")
	require.Equal(t, 1, m.selected)

	m = press(m, tea.KeyTab)
	assert.Equal(t, 2, m.selected)
	m = press(m, tea.KeyTab)
	assert.Equal(t, 1, m.selected)
	m = press(m, tea.KeyShiftTab)
	assert.Equal(t, 2, m.selected)
	m = press(m, tea.KeyEsc)
	assert.Equal(t, 0, m.selected)
}

func TestTab_NoCardsSetsNotice(t *testing.T) {
	_, server := newFakeBackend(t)
	m := press(newTestModel(t, server), tea.KeyTab)
	assert.Equal(t, 0, m.selected)
	assert.Equal(t, "No command cards yet", m.notice)
}

func TestTab_CompletesSlashCommands(t *testing.T) {
	_, server := newFakeBackend(t)
	m := newTestModel(t, server)

	m.input.SetValue("/sid")
	m = press(m, tea.KeyTab)
	assert.Equal(t, "/sidebar ", m.input.Value(), "a single candidate is applied directly")
	assert.False(t, m.completion.Visible)

	m.input.SetValue("/search_data")
	m = press(m, tea.KeyTab)
	require.True(t, m.completion.Visible)
	assert.Len(t, m.completion.Completions, 2)
	assert.Contains(t, m.View(), "/search_dataset")

	m = press(m, tea.KeyEnter)
	assert.False(t, m.completion.Visible)
	assert.True(t, strings.HasPrefix(m.input.Value(), "/search_data"))
}

func TestChatError_ShowsErrorTurn(t *testing.T) {
	fb, server := newFakeBackend(t, `{"error":"Chat service is not available."}`)
	fb.status = http.StatusServiceUnavailable
	m := newTestModel(t, server)

	m = enter(t, m, "hello")

	require.Len(t, m.entries, 2)
	assert.Equal(t, entryError, m.entries[1].kind)
	assert.Contains(t, conversation(m), "Error:")
	assert.Len(t, m.ctrl.History(), 1, "only the user turn is kept")
	assert.False(t, m.waiting)
}

func TestStaleReplyIsIgnored(t *testing.T) {
	_, server := newFakeBackend(t)
	m := newTestModel(t, server)

	m, _ = update(m, ReplyMsg{SessionID: "other", Err: assert.AnError})
	assert.Empty(t, m.entries)
}

// =============================================================================
// SLASH COMMAND TESTS
// =============================================================================

func TestSlash_Help(t *testing.T) {
	_, server := newFakeBackend(t)
	m := enter(t, newTestModel(t, server), "/help")

	require.Len(t, m.entries, 1)
	help := m.entries[0].text
	assert.Contains(t, help, "/search_dataset")
	assert.Contains(t, help, "/run <n>")
	assert.Contains(t, help, "ctrl+b")
}

func TestSlash_Unknown(t *testing.T) {
	_, server := newFakeBackend(t)
	m := enter(t, newTestModel(t, server), "/bogus")

	require.Len(t, m.entries, 1)
	assert.Equal(t, entryError, m.entries[0].kind)
	assert.Contains(t, m.entries[0].err.Error(), "unknown command /bogus")
}

func TestSlash_DataCommandRunsCard(t *testing.T) {
	fb, server := newFakeBackend(t)
	m := enter(t, newTestModel(t, server), "/search_dataset unemployment rate")

	card := m.ctrl.CardAt(1)
	require.NotNil(t, card)
	assert.Equal(t, "unemployment rate", card.Invocation.Query)
	assert.Equal(t, cards.StateDone, card.State())
	assert.Equal(t, int32(1), fb.searches.Load())
	assert.Equal(t, 1, m.selected)
}

func TestSlash_InvalidDatasetMakesNoCall(t *testing.T) {
	fb, server := newFakeBackend(t)
	m := enter(t, newTestModel(t, server), "/query_dataset jobs rate by year")

	card := m.ctrl.CardAt(1)
	require.NotNil(t, card)
	assert.Equal(t, cards.StateFailed, card.State())
	assert.Equal(t, int32(0), fb.queries.Load())
	assert.Contains(t, conversation(m), "Error:")
}

func TestSlash_MissingArgument(t *testing.T) {
	_, server := newFakeBackend(t)
	m := enter(t, newTestModel(t, server), "/run")

	require.Len(t, m.entries, 1)
	assert.Equal(t, entryError, m.entries[0].kind)
	assert.Empty(t, m.ctrl.Cards())
}

func TestSlash_RunAndCards(t *testing.T) {
	fb, server := newFakeBackend(t, chatReply(t, `<$search_dataset query="jobs"/>`, ""))
	m := newTestModel(t, server)
	m = enter(t, m, "jobs")

	m = enter(t, m, "/run 1")
	assert.Equal(t, int32(1), fb.searches.Load())

	m = enter(t, m, "/run 9")
	assert.Equal(t, entryError, m.entries[len(m.entries)-1].kind)

	m = enter(t, m, "/cards")
	last := m.entries[len(m.entries)-1]
	assert.Equal(t, entryNotice, last.kind)
	assert.Contains(t, last.text, "1. [")
	assert.Contains(t, last.text, "Search Dataset - Done")
}

func TestSlash_Datacard(t *testing.T) {
	_, server := newFakeBackend(t)
	m := enter(t, newTestModel(t, server), "/datacard us_lbs/trend")

	last := m.entries[len(m.entries)-1]
	assert.Equal(t, entryBlock, last.kind)
	assert.Equal(t, "Datacard us_lbs/trend", last.title)
	assert.Contains(t, last.text, `"title": "Trend"`)
	assert.Equal(t, 0, m.executing)
}

func TestSlash_SidebarAndKey(t *testing.T) {
	_, server := newFakeBackend(t)
	m := newTestModel(t, server)
	require.True(t, m.sidebarVisible())

	m = enter(t, m, "/sidebar")
	assert.False(t, m.showSidebar)
	assert.Equal(t, 120, m.viewport.Width)

	m = press(m, tea.KeyCtrlB)
	assert.True(t, m.showSidebar)
	assert.Less(t, m.viewport.Width, 120)
}

func TestSlash_NewStartsFreshSession(t *testing.T) {
	_, server := newFakeBackend(t, chatReply(t, `<$search_dataset query="jobs"/>`, retrievedJSON))
	m := newTestModel(t, server)
	m = enter(t, m, "jobs")
	oldID := m.ctrl.ID()

	m = enter(t, m, "/new")

	assert.NotEqual(t, oldID, m.ctrl.ID())
	assert.Empty(t, m.entries)
	assert.Empty(t, m.ctrl.Cards())
	assert.Empty(t, m.ctrl.Datasets())
	assert.Equal(t, 0, m.selected)
}

func TestSlash_Quit(t *testing.T) {
	_, server := newFakeBackend(t)
	m := newTestModel(t, server)
	m.input.SetValue("/quit")

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := drain(t, cmd)
	require.Len(t, msgs, 1)
	assert.IsType(t, tea.QuitMsg{}, msgs[0])
	assert.Error(t, m.ctx.Err(), "session context is canceled")
}

// =============================================================================
// SIDEBAR AND CONFIG TESTS
// =============================================================================

func TestSidebarHover_ExpandsDataset(t *testing.T) {
	_, server := newFakeBackend(t, chatReply(t, "ok", retrievedJSON))
	m := newTestModel(t, server)
	m = enter(t, m, "jobs")
	assert.NotContains(t, m.View(), "Measures: jobs")

	m = press(m, tea.KeyCtrlN)
	assert.Equal(t, 0, m.hovered)
	assert.Contains(t, m.View(), "Measures: jobs")
}

func TestConfigReload_AppliesSettings(t *testing.T) {
	_, server := newFakeBackend(t)
	m := newTestModel(t, server)

	cfg := config.Default()
	cfg.UI.Theme = "light"
	cfg.UI.ShowSidebar = false
	cfg.Backend.TimeoutSecs = 5

	m, _ = update(m, ConfigReloadMsg{Config: cfg})

	assert.Equal(t, styles.ModeLight, m.theme.Mode)
	assert.False(t, m.showSidebar)
	assert.Equal(t, 5*time.Second, m.ctrl.CardTimeout())
	assert.Equal(t, "Config reloaded", m.notice)
}

func TestConfigReload_ErrorKeepsSettings(t *testing.T) {
	_, server := newFakeBackend(t)
	m := newTestModel(t, server)

	m, _ = update(m, ConfigReloadMsg{Err: assert.AnError})
	assert.True(t, m.showSidebar)
	assert.Contains(t, m.notice, "Config reload failed")
}
