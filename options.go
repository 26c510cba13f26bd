// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workq

import (
	"os"
	"runtime"
	"strconv"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"

	"code.hybscloud.com/workq/internal/event"
)

// EnvProcessors is the environment variable that, when set to a positive
// integer, overrides the detected processor count during queue creation.
const EnvProcessors = "OSDPROCESSORS"

// maxWorkers caps the worker pool of a single queue.
const maxWorkers = 16

// Options configures queue creation.
type Options struct {
	// Queue flavor
	multi bool // waiters help drain instead of sleeping
	io    bool // workers exist even on single-processor hosts

	// Overrides
	processors int          // effective processor count, 0 = detect
	clock      clockz.Clock // nil = clockz.RealClock
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Compute queue: waiters drain on their own thread
//	q := workq.Build[int, int](workq.New().Multi())
//
//	// I/O queue: a worker exists even on a single-processor host
//	q := workq.Build[string, []byte](workq.New().IO())
type Builder struct {
	opts Options
}

// New creates a queue builder with default configuration: a single worker
// on multi-processor hosts, none on single-processor hosts, real clock.
func New() *Builder {
	return &Builder{}
}

// Multi declares that drain waiters should help execute items on their own
// thread instead of blocking. Multi-processor hosts get one worker per
// remaining processor.
func (b *Builder) Multi() *Builder {
	b.opts.multi = true
	return b
}

// IO declares that the queue carries I/O-bound callbacks. A worker is
// created even on single-processor hosts, where a compute queue would
// drain inline on the submitter.
func (b *Builder) IO() *Builder {
	b.opts.io = true
	return b
}

// WithProcessors overrides the detected processor count. The EnvProcessors
// environment variable still takes precedence. Panics if n is not positive.
func (b *Builder) WithProcessors(n int) *Builder {
	if n <= 0 {
		panic("workq: processors must be positive")
	}
	b.opts.processors = n
	return b
}

// WithClock sets the clock used for spin-window timing and timed waits.
// Intended for tests; defaults to clockz.RealClock.
func (b *Builder) WithClock(clock clockz.Clock) *Builder {
	b.opts.clock = clock
	return b
}

// Build creates a work queue from the builder configuration.
//
// The worker count derives from the effective processor count:
//
//	1 processor  → 1 worker for IO queues, 0 otherwise
//	N processors → N-1 workers for Multi queues, 1 otherwise
//
// clamped to 16. One extra thread record is reserved for the calling
// thread's bookkeeping; it never runs a worker.
func Build[P, R any](b *Builder) *Queue[P, R] {
	procs := effectiveProcessors(b.opts.processors)
	workers := workerCount(procs, b.opts.multi, b.opts.io)

	clock := b.opts.clock
	if clock == nil {
		clock = clockz.RealClock
	}

	q := &Queue[P, R]{
		multi:   b.opts.multi,
		io:      b.opts.io,
		workers: workers,
		clock:   clock,
		done:    event.NewManual(clock, true),
		metrics: metricz.New(),
	}
	q.lock.init()
	q.listTail = &q.listHead

	q.metrics.Counter(ItemsSubmittedTotal)
	q.metrics.Counter(ItemsCompletedTotal)
	q.metrics.Counter(WorkerWakeupsTotal)
	q.metrics.Counter(SpinYieldsTotal)
	q.metrics.Counter(CallerAssistsTotal)

	q.threads = make([]*workThread, workers+1)
	for i := range q.threads {
		t := &workThread{}
		if i < workers {
			t.wake = event.NewAuto(clock)
		}
		q.threads[i] = t
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.workerLoop(q.threads[i])
	}
	return q
}

// effectiveProcessors resolves the processor count: environment override
// first, then the builder override, then the runtime probe.
func effectiveProcessors(override int) int {
	if s := os.Getenv(EnvProcessors); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	if override > 0 {
		return override
	}
	return runtime.NumCPU()
}

// workerCount applies the flavor rules to the processor count.
func workerCount(procs int, multi, io bool) int {
	var n int
	switch {
	case procs <= 1:
		if io {
			n = 1
		}
	case multi:
		n = procs - 1
	default:
		n = 1
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
