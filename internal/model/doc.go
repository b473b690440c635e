// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across nyl-tui: persisted
// chat sessions and messages as served by the nyl API, and the client-side
// Turn projection the UI renders.
//
// Sessions and messages are owned by the server; this package only mirrors
// their wire shape. Turns are ephemeral: they are reconstructed from stored
// messages when a session is opened (see TurnsFromMessages) or created fresh
// when the user submits a prompt.
package model
