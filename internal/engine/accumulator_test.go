// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"sync"
	"testing"
	"time"
)

// collector records emitted snapshots for assertions.
type collector struct {
	mu    sync.Mutex
	emits []string
}

func (c *collector) emit(full string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emits = append(c.emits, full)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.emits))
	copy(out, c.emits)
	return out
}

func TestAccumulatorCoalescesDeltas(t *testing.T) {
	var c collector
	acc := NewAccumulator(20*time.Millisecond, c.emit)

	// Deltas arriving inside one coalescing window produce a single emit
	// with the full concatenation.
	acc.Append("Hello")
	acc.Append(" world")

	deadline := time.Now().Add(time.Second)
	for len(c.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	emits := c.snapshot()
	if len(emits) != 1 {
		t.Fatalf("emit count = %d, want 1 (%v)", len(emits), emits)
	}
	if emits[0] != "Hello world" {
		t.Errorf("emit = %q, want %q", emits[0], "Hello world")
	}
}

func TestAccumulatorEmitsMonotonePrefixes(t *testing.T) {
	var c collector
	acc := NewAccumulator(10*time.Millisecond, c.emit)

	acc.Append("one")
	time.Sleep(30 * time.Millisecond)
	acc.Append(" two")
	time.Sleep(30 * time.Millisecond)

	emits := c.snapshot()
	if len(emits) < 2 {
		t.Fatalf("emit count = %d, want >= 2", len(emits))
	}
	prev := ""
	for _, e := range emits {
		if len(e) < len(prev) || e[:len(prev)] != prev {
			t.Fatalf("emit %q is not an extension of %q", e, prev)
		}
		prev = e
	}
	if prev != "one two" {
		t.Errorf("final emit = %q, want %q", prev, "one two")
	}
}

func TestAccumulatorFlushNow(t *testing.T) {
	var c collector
	acc := NewAccumulator(time.Hour, c.emit)

	acc.Append("partial")
	acc.FlushNow()

	emits := c.snapshot()
	if len(emits) != 1 || emits[0] != "partial" {
		t.Fatalf("emits = %v, want [partial]", emits)
	}
	if acc.Pending() {
		t.Error("timer still pending after FlushNow")
	}

	// The stopped timer must not fire a duplicate emit later.
	time.Sleep(30 * time.Millisecond)
	if got := len(c.snapshot()); got != 1 {
		t.Errorf("emit count after wait = %d, want 1", got)
	}
}

func TestAccumulatorDiscardDropsContent(t *testing.T) {
	var c collector
	acc := NewAccumulator(10*time.Millisecond, c.emit)

	acc.Append("doomed")
	acc.Discard()

	time.Sleep(40 * time.Millisecond)
	if emits := c.snapshot(); len(emits) != 0 {
		t.Fatalf("emits = %v, want none after Discard", emits)
	}
	if acc.Len() != 0 {
		t.Errorf("Len = %d, want 0", acc.Len())
	}

	// The accumulator is reusable after a discard.
	acc.Append("fresh")
	acc.FlushNow()
	emits := c.snapshot()
	if len(emits) != 1 || emits[0] != "fresh" {
		t.Errorf("emits = %v, want [fresh]", emits)
	}
}
