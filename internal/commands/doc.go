// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands holds the command registry and the slash command layer.
//
// The Registry maps directive names emitted by the assistant
// (search_dataset, search_datacard, query_dataset) to handlers bound to the
// backend client. A name that is not registered is never executed; reply
// parsers use Registry.Known to decide which directives become command cards.
//
// # Key Types
//
//   - Registry: named backend operations and their handlers
//   - Result: the JSON a command returned, with decoded rows when tabular
//   - SlashSet: the slash commands typed into the chat input
//   - Completer: tab completion for slash commands and dataset arguments
//
// # Usage
//
//	reg := commands.NewRegistry(client)
//	slash := commands.NewSlashSet(reg)
//	if parsed := slash.Parse(input); parsed.IsCommand {
//	    inv, err := parsed.Invocation()
//	    ...
//	    res, err := reg.Execute(ctx, inv)
//	}
package commands
