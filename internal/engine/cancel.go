// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"sync"
)

// cancelManager guards the single in-flight stream's cancel function. The
// engine has exactly one active network controller at a time; any new submit
// or session switch cancels it before a replacement is created. Mutex
// protection is required because cancellation can come from the UI loop
// while the stream goroutine clears its own controller on completion.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// set stores the cancel function for a newly opened stream, cancelling any
// leftover controller first so contexts never leak.
func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = fn
}

// cancel invokes and clears the stored cancel function. Safe to call
// multiple times or with nothing in flight.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}
