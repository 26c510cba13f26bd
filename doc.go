// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package workq multiplexes user-submitted callbacks across a small pool
// of worker threads.
//
// A queue accepts work items carrying a callback and a per-item parameter,
// executes them FIFO across its workers, and lets clients wait on single
// items or on full drain. Hosts use it to offload CPU-bound or I/O-bound
// tasks (audio mixing, video post-processing, file loading) without
// managing threads themselves.
//
// # Quick Start
//
//	q := workq.Build[int, int](workq.New().Multi())
//	defer q.Close()
//
//	item := q.Submit(func(x int) int { return x * x }, 7, 0)
//	q.Wait(workq.Forever)
//	fmt.Println(item.Result()) // 49
//	item.Release()
//
// # Queue Flavors
//
// Two independent flavor bits chosen at build time:
//
//	Multi - drain waiters help execute items on their own thread instead
//	        of sleeping; N-processor hosts get N-1 workers. Suited to
//	        fan-out/fan-in bursts where wait latency matters.
//	IO    - a worker exists even on single-processor hosts, so I/O-bound
//	        callbacks overlap with the submitter.
//
// A default queue gets one worker on multi-processor hosts and none on
// single-processor hosts, where submissions drain inline on the caller.
//
// The effective processor count comes from the OSDPROCESSORS environment
// variable when set to a positive integer, the WithProcessors builder
// override otherwise, and the runtime probe as the fallback.
//
// # Work Items
//
// Submissions build items from a per-queue free list and splice them onto
// the pending FIFO in one short critical section:
//
//	// hold-and-retrieve: the handle stays valid until Release
//	item := q.Submit(decode, frame, 0)
//	if item.Wait(time.Millisecond * 5) {
//	    consume(item.Result())
//	}
//	item.Release()
//
//	// fire-and-forget: items recycle themselves on completion
//	q.SubmitMany(mix, samples, workq.AutoRelease)
//	q.Wait(workq.Forever)
//
// SubmitMany preserves slice order in the pending FIFO. Items that run on
// different workers complete in no particular order.
//
// # Waiting
//
// Queue.Wait and Item.Wait take a timeout; Forever waits without a
// deadline and a zero timeout polls. Expiry is reported as a false
// return, never as an error, and cancels nothing: in-flight callbacks
// always run to completion.
//
// Item.TryResult is the non-blocking probe, returning ErrWouldBlock while
// the callback has not completed:
//
//	if out, err := item.TryResult(); err == nil {
//	    consume(out)
//	}
//
// # Shutdown
//
// Close stops the workers and invalidates the queue. A worker that is
// already draining finishes the pending list before it stops; pending
// work that no worker is draining is dropped silently. Callers wanting
// completion must Wait first. Submitting to a closed queue is a client
// error.
//
// # Scheduling Internals
//
// The pending FIFO is guarded by a rotating-baton lock: a ring of 16
// cache-line-padded slots through which a single baton circulates, so
// contenders spin on distinct lines and heavy acquirers cannot starve
// late arrivals. The free list is a CAS-only LIFO. Workers sleep on
// auto-reset wake events, and after each drain they spin for up to a
// millisecond to absorb bursts without an event round trip.
//
// Per-queue counters (submissions, completions, wakeups, spin yields,
// caller assists) are exposed through a metricz registry:
//
//	q.Metrics().Counter(workq.ItemsCompletedTotal).Value()
//
// # Race Detection
//
// The pending list hands items between threads through the baton lock's
// acquire/release atomics, which the race detector cannot observe as
// synchronization. The algorithms are correct, but concurrent tests
// report false positives under the race detector and are skipped via
// RaceEnabled.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions, [code.hybscloud.com/iox] for semantic errors,
// [github.com/zoobzio/clockz] for the tick source, and
// [github.com/zoobzio/metricz] for the stats registry.
package workq
