// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cards

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/model"
)

// DefaultTimeout bounds one card execution.
const DefaultTimeout = 60 * time.Second

var (
	// ErrExecuting is delivered when Execute is called on a card that is
	// already executing.
	ErrExecuting = errors.New("command is already executing")

	// ErrTimeout is delivered when an execution exceeds the card timeout.
	ErrTimeout = errors.New("command timed out")
)

// =============================================================================
// CARD STATE
// =============================================================================

// State is the lifecycle state of a card.
type State string

const (
	// StatePending means the card has never been executed
	StatePending State = "Pending"

	// StateExecuting means a request is in flight
	StateExecuting State = "Executing"

	// StateDone means the last execution returned a result
	StateDone State = "Done"

	// StateFailed means the last execution returned an error
	StateFailed State = "Failed"
)

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// Idle reports whether the card can be executed.
func (s State) Idle() bool {
	return s != StateExecuting
}

// =============================================================================
// OUTCOME
// =============================================================================

// Runner executes an invocation. *commands.Registry satisfies it.
type Runner interface {
	Execute(ctx context.Context, inv model.Invocation) (*commands.Result, error)
}

// Outcome is delivered once per execution.
type Outcome struct {
	CardID   string
	Command  string
	Result   *commands.Result
	Err      error
	Duration time.Duration
}

// Message is the text shown in the card's result area.
func (o Outcome) Message() string {
	if o.Err != nil {
		return "Error: " + o.Err.Error()
	}
	return o.Result.Pretty()
}

// =============================================================================
// CARD
// =============================================================================

// Card is one executable command invocation shown in the conversation.
type Card struct {
	// ID is a unique identifier for this card
	ID string

	// Invocation is the command the card runs
	Invocation model.Invocation

	runner     Runner
	timeout    time.Duration
	onExecuted func(Outcome)

	mu       sync.RWMutex
	state    State
	result   *commands.Result
	err      error
	runs     int
	started  time.Time
	finished time.Time

	// settled is closed when the in-flight execution ends; last is its
	// outcome.
	settled chan struct{}
	last    Outcome
}

// New creates a pending card for inv.
func New(inv model.Invocation, runner Runner) *Card {
	return &Card{
		ID:         uuid.New().String(),
		Invocation: inv,
		runner:     runner,
		timeout:    DefaultTimeout,
		state:      StatePending,
	}
}

// WithTimeout sets the per-execution timeout. Non-positive values keep the
// default.
func (c *Card) WithTimeout(d time.Duration) *Card {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// OnExecuted sets a callback that fires after every execution, before the
// outcome is delivered on the channel.
func (c *Card) OnExecuted(fn func(Outcome)) *Card {
	c.onExecuted = fn
	return c
}

// Label is the display title, e.g. "Search Dataset".
func (c *Card) Label() string {
	return commands.Label(c.Invocation.Command)
}

// Short returns the first 8 characters of the card ID.
func (c *Card) Short() string {
	if len(c.ID) < 8 {
		return c.ID
	}
	return c.ID[:8]
}

// State returns the current state.
func (c *Card) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Result returns the last successful result, or nil.
func (c *Card) Result() *commands.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// Err returns the last execution error, or nil.
func (c *Card) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Runs returns how many executions have finished.
func (c *Card) Runs() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runs
}

// Duration returns how long the current or last execution took.
func (c *Card) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.started.IsZero() {
		return 0
	}
	if c.state == StateExecuting {
		return time.Since(c.started)
	}
	return c.finished.Sub(c.started)
}

// Execute runs the card's command in the background. The returned channel
// receives exactly one Outcome and is then closed. Executing a card that is
// already executing delivers ErrExecuting without starting a second request.
func (c *Card) Execute(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)

	c.mu.Lock()
	if c.state == StateExecuting {
		c.mu.Unlock()
		ch <- Outcome{CardID: c.ID, Command: c.Invocation.Command, Err: ErrExecuting}
		close(ch)
		return ch
	}
	c.state = StateExecuting
	c.started = time.Now()
	c.settled = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx, ch)
	return ch
}

func (c *Card) run(ctx context.Context, ch chan<- Outcome) {
	defer close(ch)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.runner.Execute(runCtx, c.Invocation)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}

	c.mu.Lock()
	c.finished = time.Now()
	c.runs++
	if err != nil {
		c.state = StateFailed
		c.err = err
		c.result = nil
	} else {
		c.state = StateDone
		c.err = nil
		c.result = res
	}
	out := Outcome{
		CardID:   c.ID,
		Command:  c.Invocation.Command,
		Result:   res,
		Err:      err,
		Duration: c.finished.Sub(c.started),
	}
	c.last = out
	close(c.settled)
	c.mu.Unlock()

	if c.onExecuted != nil {
		c.onExecuted(out)
	}
	ch <- out
}

// Wait blocks until the card is not executing and returns the outcome of its
// last execution. A card that never ran returns a zero Outcome.
func (c *Card) Wait(ctx context.Context) (Outcome, error) {
	c.mu.RLock()
	if c.state != StateExecuting {
		defer c.mu.RUnlock()
		return c.last, nil
	}
	settled := c.settled
	c.mu.RUnlock()

	select {
	case <-settled:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.last, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Summary returns a one-line summary of the card.
func (c *Card) Summary() string {
	summary := fmt.Sprintf("[%s] %s - %s", c.Short(), c.Label(), c.State())
	if c.Invocation.Dataset != "" {
		summary += " on " + c.Invocation.Dataset
	}
	if d := c.Duration(); d > 0 && c.State() != StateExecuting {
		summary += fmt.Sprintf(" (%.1fs)", d.Seconds())
	}
	return summary
}
