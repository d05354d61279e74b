// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"

	"github.com/jeranaias/datachat-tui/internal/cards"
	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/session"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// ReplyMsg delivers the result of a Submit call.
type ReplyMsg struct {
	SessionID string
	Result    *session.TurnResult
	Err       error
}

// CardOutcomeMsg delivers the outcome of one card execution.
type CardOutcomeMsg struct {
	SessionID string
	Outcome   cards.Outcome
}

// DatacardMsg delivers a fetched datacard definition.
type DatacardMsg struct {
	SessionID string
	Key       string
	Body      json.RawMessage
	Err       error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadMsg is sent when the config file changed on disk. Err is set
// when the new file could not be loaded; the old settings stay in effect.
type ConfigReloadMsg struct {
	Config *config.Config
	Err    error
}
