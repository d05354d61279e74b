// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/datachat-tui/internal/cards"
)

// formatDurationShort formats a short duration string.
func formatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}

// cardData converts a card to its JSON/YAML shape.
func cardData(n int, c *cards.Card) CardData {
	data := CardData{
		Number:  n,
		Command: c.Invocation.Command,
		Query:   c.Invocation.Query,
		Dataset: c.Invocation.Dataset,
		State:   c.State().String(),
	}
	if res := c.Result(); res != nil {
		data.Result = res.Raw
		if v, err := res.Value(); err == nil {
			data.Value = v
		}
	}
	if err := c.Err(); err != nil {
		data.Error = err.Error()
	}
	if d := c.Duration(); d > 0 && c.State() != cards.StateExecuting {
		data.Duration = formatDurationShort(d)
	}
	return data
}
