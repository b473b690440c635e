// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the chat session list and the selected
// conversation.
//
// The Manager is the single owner of session lifecycle state:
//
//   - the current status filter (active, archived, deleted) and the session
//     list fetched under it
//   - the selected session and its turn list, reconstructed from the
//     server's flat message log
//   - lifecycle transitions (archive, unarchive, soft delete, restore) with
//     list refetch and selection hygiene
//   - first-run auto-creation of a session when the active list is empty,
//     latched so it happens at most once per run
//   - client-side auto-naming, mirroring the server: a placeholder-titled
//     session takes its title from the first user message
//
// All remote calls go through the api client; when a local cache is
// attached, reads fall back to it so previously seen sessions stay
// browsable while the server is unreachable.
package session
