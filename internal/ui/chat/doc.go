// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the Bubble Tea chat view.

The view is a thin layer over session.Controller: user input becomes
Submit calls, assistant replies become conversation entries with their
command cards underneath, and cards run when the user selects one and
presses Enter (or types /run n). Blocking work happens in tea.Cmd
functions that report back with the messages in messages.go.

# Layout

	+--------------------------------------------+----------+
	| header                                     |          |
	| conversation viewport                      | sidebar  |
	|   user / assistant turns, cards, errors    |          |
	+--------------------------------------------+----------+
	| completion popup (when visible)                       |
	| > input                                               |
	| status bar                                            |
	+-------------------------------------------------------+

# Keys

Enter submits the input, or runs the selected card when the input is
empty. Tab completes slash commands and otherwise cycles through cards.
Ctrl+B toggles the sidebar; Ctrl+N and Ctrl+P move the sidebar
highlight, which expands the dataset's measures and dimensions.
*/
package chat
