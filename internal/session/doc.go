// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the chat controller.
//
// A Controller owns one conversation: the history sent to the backend, the
// catalog of datasets and datacards shown in the sidebar, and the command
// cards created from assistant replies. It moves between three states:
//
//	Idle -> AwaitingResponse -> Idle
//	                         -> AwaitingCommandResult -> Idle
//
// A failed chat request returns an *ErrorTurn and leaves earlier history
// untouched. Problems with a reply's auxiliary JSON fields are reported as
// warnings and never fail the turn.
package session
