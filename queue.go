// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workq

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/workq/internal/event"
)

// Forever waits without a deadline when passed as a timeout.
const Forever time.Duration = -1

// Metric keys registered on every queue's registry.
const (
	ItemsSubmittedTotal = metricz.Key("workq.items.submitted.total")
	ItemsCompletedTotal = metricz.Key("workq.items.completed.total")
	WorkerWakeupsTotal  = metricz.Key("workq.workers.wakeups.total")
	SpinYieldsTotal     = metricz.Key("workq.workers.spinyields.total")
	CallerAssistsTotal  = metricz.Key("workq.caller.assists.total")
)

// Queue multiplexes submitted callbacks across a fixed pool of workers.
//
// Items are executed in FIFO dequeue order across the queue as a whole;
// no ordering holds between items running on different workers. Create
// with [Build], destroy with Close.
type Queue[P, R any] struct {
	_     pad
	items atomix.Int32 // submitted items whose callback has not returned
	_     pad
	liveWorkers atomix.Int32 // workers currently draining
	_           pad
	freeHead atomic.Pointer[Item[P, R]] // recycled items, LIFO
	_        pad
	lock scalableLock

	// Pending FIFO. listTail points at the next link of the last node,
	// or at listHead itself when empty, so enqueue is O(1). Both fields
	// are guarded by lock.
	listHead *Item[P, R]
	listTail **Item[P, R]

	exiting atomix.Bool // workers must shut down
	waiting atomix.Bool // a drain waiter wants the done event

	multi   bool
	io      bool
	workers int // thread record workers+1 is reserved for the caller

	clock   clockz.Clock
	done    *event.Manual // manual-reset, initially signalled
	threads []*workThread
	wg      sync.WaitGroup
	metrics *metricz.Registry
}

// Items returns the number of submitted items whose callback has not yet
// completed.
func (q *Queue[P, R]) Items() int {
	return int(q.items.Load())
}

// Metrics returns the queue's metrics registry.
func (q *Queue[P, R]) Metrics() *metricz.Registry {
	return q.metrics
}

// Submit schedules a single callback invocation with the given parameter.
// Returns the item handle, or nil when flags includes AutoRelease.
func (q *Queue[P, R]) Submit(cb Callback[P, R], param P, flags ItemFlag) *Item[P, R] {
	return q.SubmitMany(cb, []P{param}, flags)
}

// SubmitMany schedules one callback invocation per parameter. The items
// are enqueued in slice order as a single splice, so their dequeue order
// matches the slice. Returns the first item handle, or nil when flags
// includes AutoRelease or params is empty.
func (q *Queue[P, R]) SubmitMany(cb Callback[P, R], params []P, flags ItemFlag) *Item[P, R] {
	if len(params) == 0 {
		return nil
	}

	// Build the chain locally before touching the queue.
	var first, last *Item[P, R]
	for _, p := range params {
		it := q.freePop()
		if it == nil {
			it = &Item[P, R]{queue: q}
		}
		it.callback = cb
		it.param = p
		var zero R
		it.result = zero
		it.flags = flags
		it.done.Store(false)
		it.next = nil
		if first == nil {
			first = it
		} else {
			last.next = it
		}
		last = it
	}

	slot := q.lock.acquire()
	*q.listTail = first
	q.listTail = &last.next
	q.lock.release(slot)

	q.items.Add(int32(len(params)))
	q.metrics.Counter(ItemsSubmittedTotal).Add(float64(len(params)))

	// Wake at most min(count, idle) workers. Excess wakeups would only
	// burn event round trips; sleepers left behind stay asleep until a
	// later submission or Close wakes them, while the ones that run
	// drain the whole list.
	wakes := len(params)
	for _, t := range q.threads[:q.workers] {
		if wakes == 0 {
			break
		}
		if !t.active.Load() {
			t.wake.Set()
			wakes--
		}
	}

	// With no workers the submitter drains its own queue.
	if q.workers == 0 {
		q.metrics.Counter(CallerAssistsTotal).Inc()
		q.process(q.callerThread())
	}

	if flags&AutoRelease != 0 {
		return nil
	}
	return first
}

// Wait blocks until the queue has drained or the timeout expires. Returns
// true if the queue is empty.
//
// On Multi queues the caller never blocks: it joins the drain on its own
// thread and returns once the queue is empty.
func (q *Queue[P, R]) Wait(timeout time.Duration) bool {
	// A zero-worker queue drained inline during submission.
	if q.workers == 0 {
		return true
	}
	if q.items.Load() == 0 {
		return true
	}

	if q.multi {
		q.metrics.Counter(CallerAssistsTotal).Inc()
		q.drainLoop(q.callerThread())
		return true
	}

	q.done.Reset()
	q.waiting.Store(true)
	// Recheck: the last completion may have landed between the first
	// check and the reset, with no further signal coming.
	if q.items.Load() != 0 {
		q.done.Wait(timeout)
	}
	q.waiting.Store(false)
	return q.items.Load() == 0
}

// Close shuts the worker pool down and releases the queue. Workers observe
// the shutdown only between drains: a worker that is draining when Close
// is called keeps executing pending items until the list is empty, and
// Close waits for it. Pending items that no worker is draining are dropped
// silently; callers wanting completion must Wait first. Outstanding item
// handles become invalid.
func (q *Queue[P, R]) Close() {
	q.exiting.Store(true)
	for _, t := range q.threads[:q.workers] {
		t.wake.Set()
	}
	q.wg.Wait()
}

// callerThread returns the thread record reserved for the calling
// thread's bookkeeping. Workers never touch it.
func (q *Queue[P, R]) callerThread() *workThread {
	return q.threads[q.workers]
}

// freePop takes a recycled item off the free list, or returns nil.
//
// The list is a CAS-only LIFO. The ABA window of the classic pop is
// bounded by item ownership: a popped item is filled and enqueued
// immediately, and is not pushed back until after its callback completes.
func (q *Queue[P, R]) freePop() *Item[P, R] {
	sw := spin.Wait{}
	for {
		head := q.freeHead.Load()
		if head == nil {
			return nil
		}
		if q.freeHead.CompareAndSwap(head, head.next) {
			head.next = nil
			return head
		}
		sw.Once()
	}
}

// freePush recycles a completed item onto the free list.
func (q *Queue[P, R]) freePush(it *Item[P, R]) {
	sw := spin.Wait{}
	for {
		head := q.freeHead.Load()
		it.next = head
		if q.freeHead.CompareAndSwap(head, it) {
			return
		}
		sw.Once()
	}
}
