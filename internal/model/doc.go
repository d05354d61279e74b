// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the chat session,
// the reply parsers, and the renderers.
//
// # Key Types
//
//   - Turn, History: role-tagged chat turns with the same-role merge rule
//   - DatasetSummary, DatacardSummary, Catalog: entities retrieved by the
//     backend, accumulated as a union across turns
//   - Invocation: a request to run one registry command
//   - SuggestedQuery: the backend's structured query suggestion
//   - QueryResult: ordered rows that keep their JSON column order
//
// # Usage
//
//	h := model.NewHistory()
//	h.Append(model.RoleUser, "unemployment by state")
//	h.Append(model.RoleUser, "since 2010") // merged into the previous turn
//
//	res, err := model.DecodeQueryResult(body)
//	header, rows := res.Columns(), res.Cells()
package model
