// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reply extracts command invocations from assistant text.
//
// Three parsers share the Parser interface:
//
//   - InlineTagParser: <$name attr="value"/> directives
//   - FencedQueryParser: ```data-query-json blocks
//   - RetrievedInfoParser: a prose "Retrieved Information:" block
//
// A Chain runs them in order over whatever text the previous parsers left,
// so the resulting segments keep source order. Text outside a recognized
// directive is passed through unchanged.
package reply
