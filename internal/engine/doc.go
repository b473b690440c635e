// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine drives one streaming chat completion at a time: it
// validates submissions, builds the bounded outbound message window, opens
// and cancels network streams, coalesces token deltas into bounded UI
// updates, and fires best-effort persistence calls for both sides of a turn.
//
// The Engine is a small state machine (idle -> streaming -> idle, with an
// error substate left on the next accepted submit). There is exactly one
// in-flight stream per Engine; a session switch or explicit abort cancels it
// before anything else happens, and a cancelled stream's partial output is
// always discarded rather than shown as final.
package engine
