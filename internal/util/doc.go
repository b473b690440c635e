// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across nyl-tui: UTF-8 safe
// string truncation (rune- and display-width based) and crash-safe file
// writing for local state.
package util
