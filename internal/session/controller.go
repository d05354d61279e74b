// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/datachat-tui/internal/backend"
	"github.com/jeranaias/datachat-tui/internal/cards"
	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/logging"
	"github.com/jeranaias/datachat-tui/internal/model"
	"github.com/jeranaias/datachat-tui/internal/reply"
)

var (
	// ErrEmptyMessage is returned when Submit is called with blank text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned when Submit is called while a reply is pending.
	ErrBusy = errors.New("waiting for the previous reply")

	// ErrCardNotFound is delivered when a card ID is unknown.
	ErrCardNotFound = errors.New("command card not found")
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in the chat cycle.
type State int

const (
	// StateIdle accepts new messages
	StateIdle State = iota

	// StateAwaitingResponse means a chat request is in flight
	StateAwaitingResponse

	// StateAwaitingCommandResult means at least one card is executing
	StateAwaitingCommandResult
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAwaitingResponse:
		return "AwaitingResponse"
	case StateAwaitingCommandResult:
		return "AwaitingCommandResult"
	default:
		return "Unknown"
	}
}

// =============================================================================
// RESULTS
// =============================================================================

// API is the backend surface the controller needs. *backend.Client
// satisfies it.
type API interface {
	Chat(ctx context.Context, message string, history []model.WireTurn) (*backend.ChatReply, error)
	Datacard(ctx context.Context, ref model.DatasetRef) (json.RawMessage, error)
}

// TurnResult is everything produced by one successful exchange.
type TurnResult struct {
	// User is the user turn as stored (after merging)
	User model.Turn

	// Assistant is the assistant turn as stored
	Assistant model.Turn

	// Reply is the parsed assistant message
	Reply reply.Reply

	// Cards are the command cards created for this reply, in order.
	// A suggested-query card, if any, is last.
	Cards []*cards.Card

	// Outcomes is set when the cards were executed automatically
	Outcomes []cards.Outcome

	// CatalogChanged reports whether the sidebar lists changed
	CatalogChanged bool

	// Warnings are non-fatal problems with the reply's auxiliary fields
	Warnings []error
}

// ErrorTurn is the error returned when an exchange fails. Front ends render
// it inline in the conversation.
type ErrorTurn struct {
	Err error
	At  time.Time
}

func (e *ErrorTurn) Error() string {
	return "Error: " + e.Err.Error()
}

func (e *ErrorTurn) Unwrap() error {
	return e.Err
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	// AutoExecute runs every card of a reply and waits for them before
	// Submit returns
	AutoExecute bool

	// CardTimeout bounds each card execution
	CardTimeout time.Duration

	// Concurrency limits parallel card executions during auto-execute
	Concurrency int

	// Logger receives structured events; nil disables logging
	Logger *zap.Logger
}

// Controller owns one chat session.
type Controller struct {
	id       string
	api      API
	registry *commands.Registry
	parser   reply.Parser
	opts     Options
	logger   *zap.Logger

	mu      sync.Mutex
	state   State
	history *model.History
	catalog *model.Catalog
	deck    *cards.Deck

	// running counts executing cards; idle is closed whenever it is zero.
	running int
	idle    chan struct{}
}

// New creates a controller for a fresh session.
func New(api API, registry *commands.Registry, parser reply.Parser, opts Options) *Controller {
	if parser == nil {
		parser = reply.NewChain(reply.NewInlineTagParser(registry.Known), reply.NewFencedQueryParser(), reply.NewRetrievedInfoParser())
	}
	if opts.CardTimeout <= 0 {
		opts.CardTimeout = cards.DefaultTimeout
	}

	idle := make(chan struct{})
	close(idle)

	id := uuid.New().String()
	return &Controller{
		id:       id,
		api:      api,
		registry: registry,
		parser:   parser,
		opts:     opts,
		logger:   logging.OrNop(opts.Logger).With(zap.String("session", id[:8])),
		history:  model.NewHistory(),
		catalog:  model.NewCatalog(),
		deck:     cards.NewDeck(),
		idle:     idle,
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetAutoExecute changes the auto-execute option for later turns.
func (c *Controller) SetAutoExecute(on bool) {
	c.mu.Lock()
	c.opts.AutoExecute = on
	c.mu.Unlock()
}

// SetCardTimeout changes the timeout applied to cards created afterwards.
// Non-positive values restore the default.
func (c *Controller) SetCardTimeout(d time.Duration) {
	if d <= 0 {
		d = cards.DefaultTimeout
	}
	c.mu.Lock()
	c.opts.CardTimeout = d
	c.mu.Unlock()
}

// CardTimeout returns the timeout applied to new cards.
func (c *Controller) CardTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.CardTimeout
}

// Submit sends text to the assistant and processes the reply.
//
// The user turn is appended before the request and stays in history when the
// request fails; the failure is returned as an *ErrorTurn.
func (c *Controller) Submit(ctx context.Context, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state == StateAwaitingResponse {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	// The backend appends message to the history itself, so the history
	// sent is the one before this turn.
	wire := c.history.Wire()
	userTurn := *c.history.Append(model.RoleUser, text)
	c.state = StateAwaitingResponse
	autoExecute := c.opts.AutoExecute
	c.mu.Unlock()

	c.logger.Debug("submitting message",
		zap.Int("length", len(text)),
		zap.Int("history_turns", len(wire)))

	start := time.Now()
	resp, err := c.api.Chat(ctx, text, wire)
	if err != nil {
		c.mu.Lock()
		c.settleLocked()
		c.mu.Unlock()
		c.logger.Warn("chat request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, &ErrorTurn{Err: err, At: time.Now()}
	}

	result := c.applyReply(resp)
	result.User = userTurn

	c.logger.Info("reply received",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("cards", len(result.Cards)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Bool("catalog_changed", result.CatalogChanged))

	if autoExecute && len(result.Cards) > 0 {
		outcomes, err := c.ExecuteAll(ctx, result.Cards)
		result.Outcomes = outcomes
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// applyReply updates history, catalog, and cards from a chat reply.
func (c *Controller) applyReply(resp *backend.ChatReply) *TurnResult {
	result := &TurnResult{}
	retrieved := resp.RetrievedInformation.String()
	suggested := resp.SuggestedQuery.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if retrieved != "" {
		info, err := model.ParseRetrievedInfo(retrieved)
		if err != nil {
			result.Warnings = append(result.Warnings, err)
			c.logger.Warn("ignoring retrieved_information", zap.Error(err))
		} else {
			result.CatalogChanged = c.catalog.Merge(info)
		}
	}

	var suggestedInv *model.Invocation
	if suggested != "" {
		q, err := model.ParseSuggestedQuery(suggested)
		if err != nil {
			result.Warnings = append(result.Warnings, err)
			c.logger.Warn("ignoring suggested_query", zap.Error(err))
		} else if inv, ok := q.Invocation(); ok {
			suggestedInv = &inv
		}
	}

	result.Reply = c.parser.Parse(resp.Message)
	if retrieved == "" && result.Reply.Entities != nil {
		if c.catalog.Merge(*result.Reply.Entities) {
			result.CatalogChanged = true
		}
	}
	for _, err := range result.Reply.Errors() {
		result.Warnings = append(result.Warnings, err)
		c.logger.Warn("unusable directive in reply", zap.Error(err))
	}

	result.Assistant = *c.history.AppendAssistant(resp.Message, retrieved, suggested)

	invocations := result.Reply.Invocations
	if suggestedInv != nil {
		invocations = append(invocations[:len(invocations):len(invocations)], *suggestedInv)
	}
	for _, inv := range invocations {
		card := c.newCardLocked(inv)
		result.Cards = append(result.Cards, card)
	}

	c.settleLocked()
	return result
}

func (c *Controller) newCardLocked(inv model.Invocation) *cards.Card {
	card := cards.New(inv, c.registry).WithTimeout(c.opts.CardTimeout)
	card.OnExecuted(func(o cards.Outcome) {
		if o.Err != nil {
			c.logger.Warn("command failed",
				zap.String("card", card.Short()),
				zap.String("command", o.Command),
				zap.Duration("elapsed", o.Duration),
				zap.Error(o.Err))
			return
		}
		c.logger.Info("command executed",
			zap.String("card", card.Short()),
			zap.String("command", o.Command),
			zap.Duration("elapsed", o.Duration))
	})
	c.deck.Add(card)
	return card
}

// AddCard creates a card for a user-typed command (for example a slash
// command) and appends it to the session.
func (c *Controller) AddCard(inv model.Invocation) *cards.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newCardLocked(inv)
}

// =============================================================================
// CARD EXECUTION
// =============================================================================

// ExecuteCard executes the card with the given ID. The channel receives
// exactly one outcome.
func (c *Controller) ExecuteCard(ctx context.Context, id string) <-chan cards.Outcome {
	card := c.deck.Get(id)
	if card == nil {
		ch := make(chan cards.Outcome, 1)
		ch <- cards.Outcome{CardID: id, Err: fmt.Errorf("%w: %s", ErrCardNotFound, id)}
		close(ch)
		return ch
	}

	c.track(1)
	inner := card.Execute(ctx)
	out := make(chan cards.Outcome, 1)
	go func() {
		defer close(out)
		o := <-inner
		c.track(-1)
		out <- o
	}()
	return out
}

// ExecuteAll executes cards concurrently and waits for every outcome. It
// returns ctx's error if ctx ends first.
func (c *Controller) ExecuteAll(ctx context.Context, list []*cards.Card) ([]cards.Outcome, error) {
	if len(list) == 0 {
		return nil, nil
	}

	c.track(len(list))
	defer c.track(-len(list))

	grp := cards.NewGroup(ctx, c.opts.Concurrency)
	for _, card := range list {
		grp.Go(card)
	}
	err := grp.Wait(ctx)
	return grp.Outcomes(), err
}

// WaitPending blocks until no card is executing or ctx is done.
func (c *Controller) WaitPending(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) track(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.running
	c.running += delta
	switch {
	case before == 0 && c.running > 0:
		c.idle = make(chan struct{})
	case before > 0 && c.running == 0:
		close(c.idle)
	}
	if c.state != StateAwaitingResponse {
		c.settleLocked()
	}
}

// settleLocked picks the resting state once no chat request is in flight.
func (c *Controller) settleLocked() {
	if c.running > 0 {
		c.state = StateAwaitingCommandResult
		return
	}
	c.state = StateIdle
}

// =============================================================================
// ACCESSORS
// =============================================================================

// History returns copies of the turns.
func (c *Controller) History() []model.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Turns()
}

// Datasets returns the datasets seen this session.
func (c *Controller) Datasets() []model.DatasetSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Datasets()
}

// Datacards returns the datacards seen this session.
func (c *Controller) Datacards() []model.DatacardSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Datacards()
}

// DatasetKeys returns "organization/slug" for every known dataset.
func (c *Controller) DatasetKeys() []string {
	datasets := c.Datasets()
	keys := make([]string, len(datasets))
	for i, d := range datasets {
		keys[i] = d.Key()
	}
	return keys
}

// DatacardKeys returns "organization/slug" for every known datacard.
func (c *Controller) DatacardKeys() []string {
	datacards := c.Datacards()
	keys := make([]string, len(datacards))
	for i, d := range datacards {
		keys[i] = d.Key()
	}
	return keys
}

// Cards returns every card of the session in creation order.
func (c *Controller) Cards() []*cards.Card {
	return c.deck.All()
}

// CardAt returns the card at 1-based position n, or nil.
func (c *Controller) CardAt(n int) *cards.Card {
	return c.deck.At(n)
}

// Datacard fetches a datacard definition by "organization/slug".
func (c *Controller) Datacard(ctx context.Context, key string) (json.RawMessage, error) {
	ref, err := model.ParseDatasetRef(key)
	if err != nil {
		return nil, err
	}
	return c.api.Datacard(ctx, ref)
}
