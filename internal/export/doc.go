// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat session transcripts to files.
//
// Two formats are supported: Markdown for reading and sharing, JSON for a
// faithful dump of the session and its turns. Exporters work from the
// in-memory session and turn list, so the current conversation exports
// even while the server is unreachable.
package export
