// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/datachat-tui/internal/session"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// SubmitCmd sends text through the controller and reports the reply.
func SubmitCmd(ctx context.Context, ctrl *session.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.Submit(ctx, text)
		return ReplyMsg{SessionID: ctrl.ID(), Result: res, Err: err}
	}
}

// ExecuteCardCmd runs one card and reports its outcome.
func ExecuteCardCmd(ctx context.Context, ctrl *session.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		outcome := <-ctrl.ExecuteCard(ctx, id)
		return CardOutcomeMsg{SessionID: ctrl.ID(), Outcome: outcome}
	}
}

// DatacardCmd fetches a datacard definition by "organization/slug".
func DatacardCmd(ctx context.Context, ctrl *session.Controller, key string) tea.Cmd {
	return func() tea.Msg {
		body, err := ctrl.Datacard(ctx, key)
		return DatacardMsg{SessionID: ctrl.ID(), Key: key, Body: body, Err: err}
	}
}

// WaitForReloadCmd blocks until the next config reload arrives. The model
// re-issues it after every reload.
func WaitForReloadCmd(reloads <-chan ConfigReloadMsg) tea.Cmd {
	if reloads == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-reloads
		if !ok {
			return nil
		}
		return msg
	}
}
