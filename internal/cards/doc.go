// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cards provides executable command cards.
//
// A Card wraps one model.Invocation. Execute runs it in the background under
// a timeout and delivers a single Outcome on the returned channel; the card
// moves Pending -> Executing -> Done or Failed and can be executed again.
//
// Group waits for a set of executions (the "wait for pending cards"
// barrier). Deck keeps the cards of a session in order.
package cards
