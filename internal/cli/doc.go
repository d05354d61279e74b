// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the datachat command tree.
//
// The root command opens the full-screen chat on a terminal and the
// line-mode chat otherwise. Subcommands expose the same session and
// command registry without a UI:
//
//	datachat                       TUI, or line mode when piped
//	datachat chat                  line-mode chat
//	datachat ask <message>         one message, one reply
//	datachat search dataset <q>    search_dataset
//	datachat search datacard <q>   search_datacard
//	datachat query <org/slug> <q>  query_dataset
//	datachat datacard <org/slug>   fetch a datacard
//	datachat config show|path|init
//	datachat version
//
// Global flags --config, --backend, --timeout, --verbose, and --output
// (table, json, yaml) apply to every command. JSON output is wrapped in
// a JSONResponse envelope. Errors map to exit codes through ExitCode.
package cli
