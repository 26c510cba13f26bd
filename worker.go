// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workq

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/workq/internal/event"
)

// spinLoopTime bounds the post-drain spin that absorbs bursty
// submissions without a round trip through the wake event. The yield cap
// bounds the window by iterations as well, so a virtual clock cannot pin
// a worker in the spin.
const (
	spinLoopTime = time.Millisecond
	spinYieldCap = 4096
)

// workThread is the per-worker record. One extra record exists per queue
// for the calling thread's bookkeeping; it has no wake event and never
// runs the worker loop.
type workThread struct {
	wake      *event.Auto // auto-reset; nil on the caller record
	active    atomix.Bool // draining right now; submitters skip the wake
	itemsDone atomix.Int64
	spinYield atomix.Int64
	wakeups   atomix.Int64
	// Requested scheduling level. IO workers would be candidates for a
	// raised level, but goroutines expose none; the field stays at the
	// default.
	priority int32
	_         pad
}

// workerLoop is the body of one worker goroutine.
//
// The outer wait is infinite; the only wakeups are submissions and exit.
// Once awake, the worker drains until the queue stays empty through a
// full spin window, then goes back to sleep.
func (q *Queue[P, R]) workerLoop(t *workThread) {
	defer q.wg.Done()
	for {
		if !q.exiting.Load() && q.items.Load() == 0 {
			t.wake.Wait(Forever)
			t.wakeups.Add(1)
			q.metrics.Counter(WorkerWakeupsTotal).Inc()
		}
		if q.exiting.Load() {
			break
		}

		t.active.Store(true)
		q.liveWorkers.Add(1)
		q.drainLoop(t)
		t.active.Store(false)
		q.liveWorkers.Add(-1)
	}
}

// drainLoop drains the queue and spins briefly on empty to catch bursts,
// repeating until the queue stays empty through a whole spin window.
// Multi-queue waiters run this on the calling thread to help out.
func (q *Queue[P, R]) drainLoop(t *workThread) {
	retry := spin.Wait{}
	for {
		q.process(t)

		var spins int64
		start := q.clock.Now()
		sw := spin.Wait{}
		for q.items.Load() == 0 && spins < spinYieldCap && q.clock.Since(start) < spinLoopTime {
			spins++
			sw.Once()
		}
		if spins != 0 {
			t.spinYield.Add(spins)
			q.metrics.Counter(SpinYieldsTotal).Add(float64(spins))
		}

		if q.items.Load() == 0 {
			return
		}
		// Remaining items are either fresh submissions or in flight on
		// other threads; pause before going back for them.
		retry.Once()
	}
}

// process pulls pending items one at a time and executes them until the
// list is empty, then signals the done event if a drain waiter is
// registered.
//
// Completion order per item: store result, decrement items, set done,
// then recycle or signal. Waiters that observe done see a valid result.
func (q *Queue[P, R]) process(t *workThread) {
	var ran int64
	for {
		slot := q.lock.acquire()
		it := q.listHead
		if it != nil {
			q.listHead = it.next
			if q.listHead == nil {
				q.listTail = &q.listHead
			}
		}
		q.lock.release(slot)
		if it == nil {
			break
		}
		it.next = nil

		it.result = it.callback(it.param)
		// Count before the decrement: a waiter released by the final
		// item must see this thread's tally already updated.
		t.itemsDone.Add(1)
		q.items.Add(-1)
		it.done.Store(true)

		if it.flags&AutoRelease != 0 {
			q.freePush(it)
		} else if ev := it.event.Load(); ev != nil {
			ev.Set()
		}
		ran++
	}

	if ran != 0 {
		q.metrics.Counter(ItemsCompletedTotal).Add(float64(ran))
	}

	// Unblock a drain waiter only once the count reaches zero; items
	// still in flight on other threads signal from their own drain.
	if q.items.Load() == 0 && q.waiting.Load() {
		q.done.Set()
	}
}
