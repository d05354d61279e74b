// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cards

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, inv model.Invocation) (*commands.Result, error)

func (f runnerFunc) Execute(ctx context.Context, inv model.Invocation) (*commands.Result, error) {
	return f(ctx, inv)
}

func okRunner(body string) runnerFunc {
	return func(ctx context.Context, inv model.Invocation) (*commands.Result, error) {
		return commands.NewResult(inv.Command, json.RawMessage(body)), nil
	}
}

// blockingRunner waits until release is closed or ctx is done.
func blockingRunner(release <-chan struct{}) runnerFunc {
	return func(ctx context.Context, inv model.Invocation) (*commands.Result, error) {
		select {
		case <-release:
			return commands.NewResult(inv.Command, json.RawMessage(`[]`)), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

var searchInv = model.Invocation{Command: commands.SearchDataset, Query: "jobs"}

// =============================================================================
// CARD TESTS
// =============================================================================

func TestCard_ExecuteSuccess(t *testing.T) {
	var callbacks atomic.Int32
	card := New(searchInv, okRunner(`[{"a":1}]`)).OnExecuted(func(o Outcome) {
		callbacks.Add(1)
	})

	assert.Equal(t, StatePending, card.State())
	assert.Equal(t, "Search Dataset", card.Label())

	out := <-card.Execute(context.Background())

	require.NoError(t, out.Err)
	assert.Equal(t, card.ID, out.CardID)
	assert.Equal(t, commands.SearchDataset, out.Command)
	assert.True(t, out.Result.IsTabular())
	assert.Equal(t, StateDone, card.State())
	assert.Equal(t, 1, card.Runs())
	assert.Equal(t, int32(1), callbacks.Load())
	assert.NotNil(t, card.Result())
}

func TestCard_ChannelDeliversExactlyOnce(t *testing.T) {
	card := New(searchInv, okRunner(`[]`))
	ch := card.Execute(context.Background())

	_, ok := <-ch
	assert.True(t, ok)
	_, ok = <-ch
	assert.False(t, ok, "channel is closed after one outcome")
}

func TestCard_ExecuteFailureRendersError(t *testing.T) {
	card := New(searchInv, runnerFunc(func(ctx context.Context, inv model.Invocation) (*commands.Result, error) {
		return nil, errors.New("Chat service is not available. (HTTP 503)")
	}))

	out := <-card.Execute(context.Background())

	require.Error(t, out.Err)
	assert.Equal(t, "Error: Chat service is not available. (HTTP 503)", out.Message())
	assert.Equal(t, StateFailed, card.State())
	assert.Nil(t, card.Result())
	assert.Error(t, card.Err())
}

func TestCard_ReExecute(t *testing.T) {
	var calls atomic.Int32
	card := New(searchInv, runnerFunc(func(ctx context.Context, inv model.Invocation) (*commands.Result, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("first fails")
		}
		return commands.NewResult(inv.Command, json.RawMessage(`{"ok":true}`)), nil
	}))

	first := <-card.Execute(context.Background())
	assert.Error(t, first.Err)
	assert.Equal(t, StateFailed, card.State())

	second := <-card.Execute(context.Background())
	assert.NoError(t, second.Err)
	assert.Equal(t, StateDone, card.State())
	assert.Nil(t, card.Err())
	assert.Equal(t, 2, card.Runs())
}

func TestCard_ExecuteWhileExecuting(t *testing.T) {
	release := make(chan struct{})
	card := New(searchInv, blockingRunner(release))

	first := card.Execute(context.Background())
	assert.Equal(t, StateExecuting, card.State())
	assert.False(t, card.State().Idle())

	second := <-card.Execute(context.Background())
	assert.ErrorIs(t, second.Err, ErrExecuting)

	close(release)
	out := <-first
	assert.NoError(t, out.Err)
	assert.Equal(t, 1, card.Runs())
}

func TestCard_Timeout(t *testing.T) {
	card := New(searchInv, blockingRunner(make(chan struct{}))).WithTimeout(20 * time.Millisecond)

	out := <-card.Execute(context.Background())

	assert.ErrorIs(t, out.Err, ErrTimeout)
	assert.Equal(t, StateFailed, card.State())
}

func TestCard_CanceledContextIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := <-New(searchInv, blockingRunner(make(chan struct{}))).Execute(ctx)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.NotErrorIs(t, out.Err, ErrTimeout)
}

func TestCard_Summary(t *testing.T) {
	inv := model.Invocation{Command: commands.QueryDataset, Query: "q", Dataset: "us_lbs/jobs"}
	card := New(inv, okRunner(`[]`))
	assert.Contains(t, card.Summary(), "Query Dataset - Pending on us_lbs/jobs")
	assert.Len(t, card.Short(), 8)
}

// =============================================================================
// GROUP TESTS
// =============================================================================

func TestGroup_WaitsForAll(t *testing.T) {
	grp := NewGroup(context.Background(), 2)
	cards := []*Card{
		New(searchInv, okRunner(`[]`)),
		New(searchInv, runnerFunc(func(ctx context.Context, inv model.Invocation) (*commands.Result, error) {
			return nil, errors.New("boom")
		})),
		New(searchInv, okRunner(`{}`)),
	}
	for _, c := range cards {
		grp.Go(c)
	}

	require.NoError(t, grp.Wait(context.Background()))
	assert.Len(t, grp.Outcomes(), 3)
	for _, c := range cards {
		assert.True(t, c.State().Idle())
	}
	assert.Equal(t, StateFailed, cards[1].State())
}

func TestGroup_WaitCanceledStopsExecutions(t *testing.T) {
	grp := NewGroup(context.Background(), 0)
	card := New(searchInv, blockingRunner(make(chan struct{})))
	grp.Go(card)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := grp.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, card.State())
}

func TestGroup_WaitsForCardAlreadyExecuting(t *testing.T) {
	release := make(chan struct{})
	card := New(searchInv, blockingRunner(release))
	first := card.Execute(context.Background())

	grp := NewGroup(context.Background(), 1)
	grp.Go(card)

	waited := make(chan error, 1)
	go func() { waited <- grp.Wait(context.Background()) }()

	select {
	case <-waited:
		t.Fatal("Wait returned while the card was still executing")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-waited)
	<-first

	assert.Equal(t, StateDone, card.State())
	assert.Equal(t, 1, card.Runs())
	outcomes := grp.Outcomes()
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, card.ID, outcomes[0].CardID)
}

func TestCard_WaitWithoutExecution(t *testing.T) {
	card := New(searchInv, okRunner(`[]`))
	out, err := card.Wait(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.CardID)
}

func TestGroup_Empty(t *testing.T) {
	grp := NewGroup(context.Background(), 1)
	assert.NoError(t, grp.Wait(context.Background()))
	assert.Empty(t, grp.Outcomes())
}

// =============================================================================
// DECK TESTS
// =============================================================================

func TestDeck(t *testing.T) {
	deck := NewDeck()
	a := New(searchInv, okRunner(`[]`))
	b := New(searchInv, okRunner(`[]`))
	deck.Add(a, b)

	assert.Equal(t, 2, deck.Len())
	assert.Same(t, a, deck.At(1))
	assert.Same(t, b, deck.At(2))
	assert.Nil(t, deck.At(0))
	assert.Nil(t, deck.At(3))
	assert.Same(t, b, deck.Get(b.ID))
	assert.Nil(t, deck.Get("missing"))
	assert.Equal(t, []*Card{a, b}, deck.All())
	assert.Equal(t, 0, deck.Executing())
}
