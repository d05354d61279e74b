// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one entry of the chat history.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// RetrievedInformation and SuggestedQuery hold the backend's auxiliary
	// fields verbatim (JSON text) so they round-trip in chat_history.
	RetrievedInformation string `json:"retrieved_information,omitempty"`
	SuggestedQuery       string `json:"suggested_query,omitempty"`
}

// NewTurn creates a turn with a generated ID.
func NewTurn(role Role, content string) *Turn {
	return &Turn{
		ID:        "turn_" + uuid.NewString()[:8],
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Preview returns the first line of the turn, truncated to maxLen runes.
func (t *Turn) Preview(maxLen int) string {
	content := t.Content
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	runes := []rune(content)
	if maxLen > 3 && len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return content
}

// WireTurn is the chat_history element sent to /api/chat.
type WireTurn struct {
	Role                 Role   `json:"role"`
	Content              string `json:"content"`
	RetrievedInformation string `json:"retrieved_information,omitempty"`
	SuggestedQuery       string `json:"suggested_query,omitempty"`
}

// Wire converts the turn to its chat_history form.
func (t *Turn) Wire() WireTurn {
	return WireTurn{
		Role:                 t.Role,
		Content:              t.Content,
		RetrievedInformation: t.RetrievedInformation,
		SuggestedQuery:       t.SuggestedQuery,
	}
}

// MarshalWire encodes turns as the chat_history JSON text.
func MarshalWire(turns []WireTurn) (string, error) {
	if turns == nil {
		turns = []WireTurn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
