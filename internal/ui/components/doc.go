// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the rendering pieces of the datachat TUI.

Components are plain structs with a View method (or pure render
functions); none of them own Bubble Tea state, so the chat model and the
line REPL can share them.

# Display Components

MessageBubble (message.go) - User, assistant and error turns.
CardView (card.go) - A command card with state badge and result.
ResultTable (table.go) - Tabular query results via lipgloss/table.
CodeBlock (codeblock.go) - JSON and code highlighted with chroma.
Markdown (markdown.go) - Assistant text rendered with glamour.
RenderSidebar (sidebar.go) - The dataset and datacard catalog panel.
StatusBar (statusbar.go) - Session state and key hints.
CompletionPopup (completion.go) - Slash command completion candidates.

All components take a *styles.Theme and never write to the terminal.
*/
package components
