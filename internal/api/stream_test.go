// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/jeranaias/nyl-tui/internal/model"
)

func deltaFrame(content string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
}

// =============================================================================
// FRAME PARSER TESTS
// =============================================================================

func TestParseFramesBasic(t *testing.T) {
	buffer := "data: one\n\ndata: two\n\n"
	frames, rest := ParseFrames(buffer)

	if !reflect.DeepEqual(frames, []string{"one", "two"}) {
		t.Errorf("unexpected frames: %v", frames)
	}
	if rest != "" {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}

func TestParseFramesHoldsIncompleteTail(t *testing.T) {
	frames, rest := ParseFrames("data: one\n\ndata: tw")
	if len(frames) != 1 || frames[0] != "one" {
		t.Errorf("unexpected frames: %v", frames)
	}
	if rest != "data: tw" {
		t.Errorf("expected incomplete frame as remainder, got %q", rest)
	}

	// Completing the tail on the next call yields the held frame.
	frames, rest = ParseFrames(rest + "o\n\n")
	if len(frames) != 1 || frames[0] != "two" {
		t.Errorf("unexpected frames after completion: %v", frames)
	}
	if rest != "" {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}

func TestParseFramesCarriageReturns(t *testing.T) {
	frames, rest := ParseFrames("data: one\r\n\r\ndata: two\r\n\r\n")
	if !reflect.DeepEqual(frames, []string{"one", "two"}) {
		t.Errorf("CRLF frames not normalized: %v", frames)
	}
	if rest != "" {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}

func TestParseFramesMultiLineData(t *testing.T) {
	// Multi-line JSON split over data: lines joins with \n.
	frames, _ := ParseFrames("data: {\"a\":\ndata: 1}\n\n")
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0] != "{\"a\":\n1}" {
		t.Errorf("data lines not joined: %q", frames[0])
	}
}

func TestParseFramesDropsHeartbeats(t *testing.T) {
	frames, rest := ParseFrames(": keepalive\n\n\n\ndata: real\n\n")
	if !reflect.DeepEqual(frames, []string{"real"}) {
		t.Errorf("heartbeat frames should be dropped: %v", frames)
	}
	if rest != "" {
		t.Errorf("expected empty remainder, got %q", rest)
	}
}

func TestParseFramesIgnoresNonDataFields(t *testing.T) {
	frames, _ := ParseFrames("event: message\nid: 7\ndata: payload\n\n")
	if !reflect.DeepEqual(frames, []string{"payload"}) {
		t.Errorf("non-data fields should not contribute: %v", frames)
	}
}

// TestParseFramesChunkInvariance verifies the core property: the frame
// sequence is identical no matter how the buffer is fragmented.
func TestParseFramesChunkInvariance(t *testing.T) {
	buffer := deltaFrame("Hello") +
		": heartbeat\n\n" +
		deltaFrame(" wor") +
		deltaFrame("ld") +
		"data: [DONE]\n\n"

	whole, rest := ParseFrames(buffer)
	if rest != "" {
		t.Fatalf("expected empty remainder for whole buffer, got %q", rest)
	}

	for chunkSize := 1; chunkSize <= len(buffer); chunkSize++ {
		var frames []string
		tail := ""
		for start := 0; start < len(buffer); start += chunkSize {
			end := start + chunkSize
			if end > len(buffer) {
				end = len(buffer)
			}
			var got []string
			got, tail = ParseFrames(tail + buffer[start:end])
			frames = append(frames, got...)
		}
		if tail != "" {
			t.Errorf("chunk size %d: leftover remainder %q", chunkSize, tail)
		}
		if !reflect.DeepEqual(frames, whole) {
			t.Errorf("chunk size %d: frames %v != %v", chunkSize, frames, whole)
		}
	}
}

// =============================================================================
// STREAM DECODER TESTS
// =============================================================================

func TestDecodeFrameContent(t *testing.T) {
	delta, ok := DecodeFrame(`{"choices":[{"delta":{"content":"Hi"}}]}`)
	if !ok || delta != "Hi" {
		t.Errorf("expected (Hi, true), got (%q, %v)", delta, ok)
	}
}

func TestDecodeFrameSentinel(t *testing.T) {
	if _, ok := DecodeFrame("[DONE]"); ok {
		t.Error("sentinel must not produce a delta")
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	if _, ok := DecodeFrame("{not json"); ok {
		t.Error("malformed payload must not produce a delta")
	}
}

func TestDecodeFrameNoContent(t *testing.T) {
	// Role-only frame
	if _, ok := DecodeFrame(`{"choices":[{"delta":{"role":"assistant"}}]}`); ok {
		t.Error("role-only frame must not produce a delta")
	}
	// Metadata-only frame
	if _, ok := DecodeFrame(`{"id":"chunk-1","choices":[]}`); ok {
		t.Error("empty choices must not produce a delta")
	}
}

func TestDecodeMalformedFrameResilience(t *testing.T) {
	// Three frames, second unparsable: exactly two deltas, in order.
	buffer := deltaFrame("first") +
		"data: {broken\n\n" +
		deltaFrame("third")

	frames, _ := ParseFrames(buffer)
	var deltas []string
	for _, frame := range frames {
		if delta, ok := DecodeFrame(frame); ok {
			deltas = append(deltas, delta)
		}
	}
	if !reflect.DeepEqual(deltas, []string{"first", "third"}) {
		t.Errorf("expected [first third], got %v", deltas)
	}
}

func TestSentinelOnlyStreamYieldsNoDeltas(t *testing.T) {
	frames, _ := ParseFrames("data: [DONE]\n\n")
	for _, frame := range frames {
		if _, ok := DecodeFrame(frame); ok {
			t.Error("sentinel-only stream must yield zero deltas")
		}
	}
}

// =============================================================================
// CHAT STREAM TESTS
// =============================================================================

func TestChatStream(t *testing.T) {
	var gotBody ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		decodeJSONBody(t, r, &gotBody)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range []string{
			deltaFrame("Sure"),
			deltaFrame(", let's"),
			deltaFrame(" start."),
			"data: [DONE]\n\n",
		} {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	var deltas []string
	err := client.ChatStream(context.Background(), ChatRequest{
		Model: "m1",
		Messages: []Message{
			{Role: model.RoleUser, Content: "Plan my day"},
		},
		Rag: &RagConfig{Enabled: true, Source: "journal", TopK: 4},
	}, func(delta string) {
		deltas = append(deltas, delta)
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if strings.Join(deltas, "") != "Sure, let's start." {
		t.Errorf("unexpected deltas: %v", deltas)
	}
	if !gotBody.Stream {
		t.Error("stream flag must be forced on")
	}
	if gotBody.Rag == nil || gotBody.Rag.Source != "journal" {
		t.Errorf("rag config not passed through: %+v", gotBody.Rag)
	}
}

func TestChatStreamCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, deltaFrame("partial"))
		flusher.Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(server.URL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.ChatStream(ctx, ChatRequest{Model: "m1"}, func(string) {})
	}()

	<-started
	cancel()

	if err := <-errCh; err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestChatStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Model is not allowed for chat"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.ChatStream(context.Background(), ChatRequest{Model: "bad"}, func(string) {})
	if err == nil {
		t.Fatal("expected an error")
	}
	var se *StatusError
	if !asStatusError(err, &se) || se.Code != http.StatusBadRequest {
		t.Errorf("expected 400 StatusError, got %v", err)
	}
}
