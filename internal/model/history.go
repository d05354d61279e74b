// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// History is the ordered, append-only sequence of chat turns for one session.
//
// Consecutive turns from the same role are coalesced: the new content is
// appended to the last turn after a newline instead of creating a new turn.
// Turns are never removed. History is not safe for concurrent use; the
// session controller serializes access.
type History struct {
	turns []*Turn
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds content for role, applying the merge rule, and returns the
// turn that now holds it.
func (h *History) Append(role Role, content string) *Turn {
	if last := h.Last(); last != nil && last.Role == role {
		last.Content += "\n" + content
		return last
	}
	turn := NewTurn(role, content)
	h.turns = append(h.turns, turn)
	return turn
}

// AppendAssistant records an assistant reply together with its auxiliary
// fields. When merged into a previous assistant turn, non-empty auxiliary
// fields replace the earlier ones.
func (h *History) AppendAssistant(content, retrieved, suggested string) *Turn {
	turn := h.Append(RoleAssistant, content)
	if retrieved != "" {
		turn.RetrievedInformation = retrieved
	}
	if suggested != "" {
		turn.SuggestedQuery = suggested
	}
	return turn
}

// Last returns the most recent turn, or nil if empty.
func (h *History) Last() *Turn {
	if len(h.turns) == 0 {
		return nil
	}
	return h.turns[len(h.turns)-1]
}

// Len returns the number of turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns copies of all turns in order.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	for i, t := range h.turns {
		out[i] = *t
	}
	return out
}

// Wire returns the chat_history payload for the backend.
func (h *History) Wire() []WireTurn {
	out := make([]WireTurn, len(h.turns))
	for i, t := range h.turns {
		out[i] = t.Wire()
	}
	return out
}
