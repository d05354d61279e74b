// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cards

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency limits how many cards of one group execute at once.
const DefaultConcurrency = 4

// =============================================================================
// GROUP
// =============================================================================

// Group executes a set of cards and waits for all of them. A failing card
// does not cancel the others; its error is kept in its Outcome.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      errgroup.Group

	mu       sync.Mutex
	outcomes []Outcome
}

// NewGroup creates a group whose executions are bound to ctx.
func NewGroup(ctx context.Context, limit int) *Group {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	gctx, cancel := context.WithCancel(ctx)
	grp := &Group{ctx: gctx, cancel: cancel}
	grp.g.SetLimit(limit)
	return grp
}

// Go starts executing card. It blocks while the concurrency limit is reached.
// A card that is already executing is not started again; the group waits for
// the execution in flight and records its outcome.
func (grp *Group) Go(card *Card) {
	grp.g.Go(func() error {
		out := <-card.Execute(grp.ctx)
		if errors.Is(out.Err, ErrExecuting) {
			last, err := card.Wait(grp.ctx)
			if err != nil {
				out.Err = err
			} else {
				out = last
			}
		}
		grp.mu.Lock()
		grp.outcomes = append(grp.outcomes, out)
		grp.mu.Unlock()
		return nil
	})
}

// Wait blocks until every started card has delivered its outcome. If ctx is
// done first, the remaining executions are canceled and Wait returns ctx's
// error once they have stopped.
func (grp *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = grp.g.Wait()
		close(done)
	}()

	select {
	case <-done:
		grp.cancel()
		return nil
	case <-ctx.Done():
		grp.cancel()
		<-done
		return ctx.Err()
	}
}

// Outcomes returns the delivered outcomes in completion order.
func (grp *Group) Outcomes() []Outcome {
	grp.mu.Lock()
	defer grp.mu.Unlock()
	return append([]Outcome(nil), grp.outcomes...)
}

// =============================================================================
// DECK
// =============================================================================

// Deck is the ordered set of cards in a session.
type Deck struct {
	mu    sync.RWMutex
	cards []*Card
	byID  map[string]*Card
}

// NewDeck creates an empty deck.
func NewDeck() *Deck {
	return &Deck{byID: make(map[string]*Card)}
}

// Add appends cards.
func (d *Deck) Add(cards ...*Card) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range cards {
		d.cards = append(d.cards, c)
		d.byID[c.ID] = c
	}
}

// Get returns the card with the given ID, or nil.
func (d *Deck) Get(id string) *Card {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byID[id]
}

// At returns the card at 1-based position n, or nil.
func (d *Deck) At(n int) *Card {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n < 1 || n > len(d.cards) {
		return nil
	}
	return d.cards[n-1]
}

// All returns the cards in insertion order.
func (d *Deck) All() []*Card {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Card(nil), d.cards...)
}

// Len returns the number of cards.
func (d *Deck) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cards)
}

// Executing returns how many cards are currently executing.
func (d *Deck) Executing() int {
	n := 0
	for _, c := range d.All() {
		if c.State() == StateExecuting {
			n++
		}
	}
	return n
}
