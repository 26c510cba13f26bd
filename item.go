// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workq

import (
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/workq/internal/event"
)

// Callback is the work function executed for an item. It receives the
// item's parameter and its return value becomes the item's result.
type Callback[P, R any] func(param P) R

// ItemFlag configures per-item behavior on submission.
type ItemFlag uint32

// AutoRelease recycles the item onto the queue's free list as soon as its
// callback completes, instead of holding it for the client. Submissions
// with AutoRelease return no item handle.
const AutoRelease ItemFlag = 1 << 0

// releaseTimeout bounds how long Release waits for an in-flight callback
// before recycling the item.
const releaseTimeout = 100 * time.Second

// Item is one scheduled unit of work: a callback plus its parameter,
// tracked until completion.
//
// An item handle is valid from the Submit call that returned it until
// Release. Result may be read once a Wait or TryResult has reported
// completion.
type Item[P, R any] struct {
	queue    *Queue[P, R]
	next     *Item[P, R]
	callback Callback[P, R]
	param    P
	result   R
	flags    ItemFlag
	done     atomix.Bool
	// Completion event, created on the first Wait. Most items are never
	// waited on individually, so the allocation is deferred.
	event atomic.Pointer[event.Manual]
}

// Wait blocks until the item's callback has completed or the timeout
// expires. A negative timeout waits forever; zero polls. Returns true if
// the item is done.
func (i *Item[P, R]) Wait(timeout time.Duration) bool {
	if i.done.Load() {
		return true
	}

	ev := i.event.Load()
	if ev == nil {
		n := event.NewManual(i.queue.clock, false)
		if i.event.CompareAndSwap(nil, n) {
			ev = n
		} else {
			ev = i.event.Load()
		}
	} else {
		ev.Reset()
	}

	// Completion may have raced the install or the reset. The executing
	// worker stores done before it loads the event pointer, so one side
	// always observes the other.
	if i.done.Load() {
		return true
	}
	ev.Wait(timeout)
	return i.done.Load()
}

// Result returns the value produced by the item's callback. The caller is
// responsible for knowing the item is done; Result does not wait.
func (i *Item[P, R]) Result() R {
	return i.result
}

// TryResult returns the callback's value if the item has completed, or
// ErrWouldBlock while it is still pending or executing.
func (i *Item[P, R]) TryResult() (R, error) {
	if !i.done.Load() {
		var zero R
		return zero, ErrWouldBlock
	}
	return i.result, nil
}

// Release waits up to releaseTimeout for the item to complete, then
// recycles it onto the queue's free list, whether or not the wait saw
// completion. The handle must not be used afterwards.
func (i *Item[P, R]) Release() {
	i.Wait(releaseTimeout)
	i.queue.freePush(i)
}
