// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/nyl-tui/internal/model"
)

// doneSentinel is the literal payload the server emits before closing the
// stream. It signals intent only; termination is driven by the read loop.
const doneSentinel = "[DONE]"

// dataPrefix marks SSE lines that carry payload. Other field lines (event:,
// id:, retry:) and comment lines are ignored at this layer.
const dataPrefix = "data:"

// readChunkSize is the network read granularity for streaming responses.
const readChunkSize = 4096

// =============================================================================
// WIRE TYPES
// =============================================================================

// Message is one entry of the outbound completion message window.
type Message struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// RagConfig is passed through to the server's retrieval-augmentation layer
// untouched; the client attaches it from configuration and never interprets
// it.
type RagConfig struct {
	Enabled        bool   `json:"enabled"`
	Source         string `json:"source,omitempty"`
	TopK           int    `json:"top_k,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// ChatRequest is the body of a streaming completion call.
type ChatRequest struct {
	Model    string     `json:"model"`
	Messages []Message  `json:"messages"`
	Stream   bool       `json:"stream"`
	Rag      *RagConfig `json:"rag,omitempty"`
}

// =============================================================================
// FRAME PARSER
// =============================================================================

// ParseFrames splits the cumulative undecoded tail of an SSE stream into
// complete frame payloads plus the unfinished remainder.
//
// Frames are delimited by a blank line. Carriage returns are stripped before
// splitting, so the function never has to worry about a \r\n pair straddling
// a chunk boundary. Within a frame only data: lines contribute; multiple
// data: lines join with \n, which is how the server splits multi-line JSON
// payloads.
//
// The final split element is never emitted as a frame - it may be incomplete
// and must be prefixed onto the next chunk. This makes the parser invariant
// to how the network fragments the stream: feeding bytes in any chunk sizes
// yields the same frame sequence as feeding the whole buffer at once.
func ParseFrames(buffer string) (frames []string, remainder string) {
	normalized := strings.ReplaceAll(buffer, "\r", "")

	parts := strings.Split(normalized, "\n\n")
	remainder = parts[len(parts)-1]

	for _, part := range parts[:len(parts)-1] {
		payload := framePayload(part)
		if payload == "" {
			// Heartbeat or comment-only frame.
			continue
		}
		frames = append(frames, payload)
	}
	return frames, remainder
}

// framePayload joins the data: lines of one raw frame into a payload.
func framePayload(frame string) string {
	var dataLines []string
	for _, line := range strings.Split(frame, "\n") {
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		data := strings.TrimPrefix(line, dataPrefix)
		data = strings.TrimPrefix(data, " ")
		dataLines = append(dataLines, data)
	}
	payload := strings.Join(dataLines, "\n")
	if strings.TrimSpace(payload) == "" {
		return ""
	}
	return payload
}

// =============================================================================
// STREAM DECODER
// =============================================================================

// streamChunk is the wire shape of one completion frame payload.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
	} `json:"choices"`
}

// DecodeFrame turns one frame payload into a content delta.
//
// Returns ok=false for the [DONE] sentinel, for payloads that fail to parse,
// and for parsed payloads carrying no content (role-only or metadata
// frames). A malformed frame is deliberately absorbed here: one bad frame
// must never cost the rest of the response.
func DecodeFrame(payload string) (delta string, ok bool) {
	if payload == doneSentinel {
		return "", false
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}

	content := chunk.Choices[0].Delta.Content
	if content == "" {
		return "", false
	}
	return content, true
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream performs a streaming chat completion request, invoking callback
// for every decoded content delta in arrival order.
//
// Returns nil on normal stream end, ctx.Err() when cancelled, and a
// transport error otherwise. Deltas already delivered are not retracted on
// failure; the caller decides what to do with partial output.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, callback func(delta string)) error {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return newStatusError(resp.StatusCode, data)
	}

	return c.processStream(ctx, resp.Body, callback)
}

// processStream drives the chunk read loop: every network chunk is appended
// to the undecoded tail, complete frames are decoded, and deltas go to the
// callback. The tail left at EOF is an unterminated frame and is dropped.
func (c *Client) processStream(ctx context.Context, body io.Reader, callback func(delta string)) error {
	var tail string
	buf := make([]byte, readChunkSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			var frames []string
			frames, tail = ParseFrames(tail + string(buf[:n]))
			for _, frame := range frames {
				if delta, ok := DecodeFrame(frame); ok {
					callback(delta)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			// Reads unblocked by cancellation surface as generic errors;
			// report the cancellation instead.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream read failed: %w", err)
		}
	}
}
