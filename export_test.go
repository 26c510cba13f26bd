// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workq

// Probes for tests. Not part of the public API.

// LockSlots is the baton ring size.
const LockSlots = lockSlots

// LockHarness drives a bare scalable lock from tests.
type LockHarness struct {
	l scalableLock
}

// NewLockHarness returns an initialized lock with the baton on slot 0.
func NewLockHarness() *LockHarness {
	h := &LockHarness{}
	h.l.init()
	return h
}

// Acquire claims the baton and returns the slot ticket.
func (h *LockHarness) Acquire() int { return h.l.acquire() }

// Release passes the baton onward.
func (h *LockHarness) Release(slot int) { h.l.release(slot) }

// SlotAcquires reports how many acquisitions each ring slot admitted.
func (h *LockHarness) SlotAcquires() [LockSlots]uint64 {
	var out [LockSlots]uint64
	for i := range h.l.slots {
		out[i] = h.l.slots[i].acquires.Load()
	}
	return out
}

// FreeListLen walks the free list. Only meaningful while the queue is
// quiescent.
func (q *Queue[P, R]) FreeListLen() int {
	n := 0
	for it := q.freeHead.Load(); it != nil; it = it.next {
		n++
	}
	return n
}

// WorkerCount reports the number of worker threads.
func (q *Queue[P, R]) WorkerCount() int { return q.workers }

// LiveWorkers reports how many workers are draining right now.
func (q *Queue[P, R]) LiveWorkers() int { return int(q.liveWorkers.Load()) }

// ItemsDoneByWorker reports how many items worker i has completed.
func (q *Queue[P, R]) ItemsDoneByWorker(i int) int64 {
	return q.threads[i].itemsDone.Load()
}

// ItemsDoneByCaller reports how many items ran on calling threads via
// inline drain or Multi-wait assistance.
func (q *Queue[P, R]) ItemsDoneByCaller() int64 {
	return q.callerThread().itemsDone.Load()
}
