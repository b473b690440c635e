// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"strings"
	"sync"
	"time"
)

// DefaultFlushInterval is the coalescing window for outward turn updates.
// Token deltas arrive far faster than a terminal should re-render; one flush
// per interval bounds update frequency without dropping content, since every
// flush carries the full accumulated text.
const DefaultFlushInterval = 33 * time.Millisecond

// =============================================================================
// TURN ACCUMULATOR
// =============================================================================

// Accumulator buffers the streaming assistant content of a single turn and
// coalesces outward updates behind one pending timer.
//
// Appends between timer ticks collapse into a single emit; emitted updates
// are always monotonically growing prefixes of the final content because the
// buffer is cumulative and never rewinds.
//
// Thread-safety: deltas arrive from the stream goroutine while the timer
// fires on its own goroutine, so all state is mutex-guarded. One Accumulator
// serves exactly one turn; create a fresh one (or Reset) per turn so state
// never leaks across turns or session switches.
type Accumulator struct {
	mu       sync.Mutex
	buf      strings.Builder
	timer    *time.Timer
	interval time.Duration
	emit     func(full string)
}

// NewAccumulator creates an accumulator that calls emit with the full
// accumulated text on every flush. A non-positive interval selects
// DefaultFlushInterval.
func NewAccumulator(interval time.Duration, emit func(full string)) *Accumulator {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Accumulator{
		interval: interval,
		emit:     emit,
	}
}

// Append concatenates delta to the running buffer. If no flush is pending,
// one is scheduled; if one is already pending, the enlarged total simply
// rides along on the next tick.
func (a *Accumulator) Append(delta string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf.WriteString(delta)
	if a.timer == nil {
		a.timer = time.AfterFunc(a.interval, a.flushTick)
	}
}

// flushTick is the pending timer's callback. A nil timer field means the
// flush was cancelled (FlushNow or Discard won the race) and this tick must
// not emit a duplicate.
func (a *Accumulator) flushTick() {
	a.mu.Lock()
	if a.timer == nil {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	text := a.buf.String()
	emit := a.emit
	a.mu.Unlock()

	if emit != nil {
		emit(text)
	}
}

// FlushNow cancels any pending timer and immediately emits the current
// buffer. Called at stream completion so no trailing delta is lost to timer
// delay.
func (a *Accumulator) FlushNow() {
	a.mu.Lock()
	a.stopTimerLocked()
	text := a.buf.String()
	emit := a.emit
	a.mu.Unlock()

	if emit != nil {
		emit(text)
	}
}

// Discard cancels any pending timer and clears the buffer without emitting.
// Used on abort: a cancelled turn must never surface partial content as if
// it were final.
func (a *Accumulator) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimerLocked()
	a.buf.Reset()
}

// Reset returns the accumulator to its initial empty state. Equivalent to
// Discard; named separately so per-turn initialization reads as intent.
func (a *Accumulator) Reset() {
	a.Discard()
}

// Pending reports whether a flush is currently scheduled.
func (a *Accumulator) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Len returns the accumulated content length in bytes.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Len()
}

func (a *Accumulator) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
