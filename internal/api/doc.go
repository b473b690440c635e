// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the nyl personal-assistant
// server: the streaming chat completion endpoint (OpenAI-style server-sent
// events) and the chat session CRUD/lifecycle endpoints.
//
// Streaming is split into three layers:
//   - ParseFrames splits a growing byte tail into complete SSE frames,
//     invariant to how the network fragments the stream into chunks
//   - DecodeFrame turns one frame payload into a content delta, absorbing
//     the [DONE] sentinel and malformed payloads
//   - Client.ChatStream drives the network read loop and feeds decoded
//     deltas to a callback, honoring context cancellation
package api
