// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the dataset assistant API.
//
// Endpoints:
//   - POST /api/chat (multipart: message, chat_history)
//   - GET  /api/search_dataset?query=
//   - GET  /api/search_datacard?query=
//   - POST /api/query_dataset {query, dataset}
//   - GET  /api/datacard/{organization}/{definition}
//
// Every call makes exactly one request bounded by the client timeout.
// Non-2xx responses become *APIError carrying the backend's "error" or
// "detail" message.
//
// # Usage
//
//	client := backend.NewClient("http://localhost:8000").
//	    WithTimeout(30 * time.Second).
//	    WithLogger(logger)
//	reply, err := client.Chat(ctx, "unemployment by state", history.Wire())
package backend
