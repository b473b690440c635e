// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides a local SQLite mirror of server-side chat data.
//
// The Store is written through on every successful server read: session
// listings are kept per status filter and scope, message logs per session.
// When the server is unreachable, the session manager serves reads from
// here instead, so previously seen conversations stay browsable offline.
// The cache is never authoritative; it holds whatever the last successful
// fetch returned.
package cache
