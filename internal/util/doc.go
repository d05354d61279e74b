// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the datachat packages:
// atomic file writes for the config file and width-aware text truncation
// for the sidebar and command cards.
package util
