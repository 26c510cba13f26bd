// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package event provides manual-reset and auto-reset events.
//
// Events are the blocking primitives consumed by the work queue: workers
// sleep on auto-reset wake events, drain waiters sleep on a manual-reset
// done event, and item waiters sleep on lazily created per-item events.
//
// Timed waits go through a [clockz.Clock] so timeout behavior is
// deterministic under a fake clock in tests. A negative timeout waits
// forever; a zero timeout polls.
package event

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Manual is a manual-reset event.
//
// Once Set, the event stays signalled and releases every waiter until
// Reset is called. Set and Reset are idempotent.
type Manual struct {
	clock clockz.Clock
	mu    sync.Mutex
	ch    chan struct{} // closed while signalled
	set   bool
}

// NewManual creates a manual-reset event.
func NewManual(clock clockz.Clock, signalled bool) *Manual {
	e := &Manual{clock: clock, ch: make(chan struct{})}
	if signalled {
		e.set = true
		close(e.ch)
	}
	return e
}

// Set signals the event, releasing all current and future waiters.
func (e *Manual) Set() {
	e.mu.Lock()
	if !e.set {
		e.set = true
		close(e.ch)
	}
	e.mu.Unlock()
}

// Reset returns the event to the non-signalled state.
func (e *Manual) Reset() {
	e.mu.Lock()
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
	e.mu.Unlock()
}

// Wait blocks until the event is signalled or the timeout expires.
// Returns true if the event was signalled.
func (e *Manual) Wait(timeout time.Duration) bool {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()

	select {
	case <-ch:
		return true
	default:
	}
	if timeout == 0 {
		return false
	}
	if timeout < 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-e.clock.After(timeout):
		// The signal may have raced the timer.
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
}

// Auto is an auto-reset event.
//
// Set releases exactly one waiter (or the next Wait, if none is blocked)
// and the event resets itself. Multiple Sets while signalled coalesce
// into one.
type Auto struct {
	clock clockz.Clock
	ch    chan struct{}
}

// NewAuto creates a non-signalled auto-reset event.
func NewAuto(clock clockz.Clock) *Auto {
	return &Auto{clock: clock, ch: make(chan struct{}, 1)}
}

// Set signals the event. A no-op if the event is already signalled.
func (e *Auto) Set() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the event is signalled or the timeout expires,
// consuming the signal. Returns true if the event was signalled.
func (e *Auto) Wait(timeout time.Duration) bool {
	select {
	case <-e.ch:
		return true
	default:
	}
	if timeout == 0 {
		return false
	}
	if timeout < 0 {
		<-e.ch
		return true
	}
	select {
	case <-e.ch:
		return true
	case <-e.clock.After(timeout):
		select {
		case <-e.ch:
			return true
		default:
			return false
		}
	}
}
