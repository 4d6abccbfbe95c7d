// Package sim is a single-threaded discrete-event clock. Processes are
// resumed one at a time in virtual-time order; each resume returns how long
// the process wants to wait before its next resume. Optionally the clock is
// paced against the wall clock.
package sim

import (
	"container/heap"
	"context"
	"log/slog"
	"time"
)

// Process is a cooperative task. Resume is called at the virtual time the
// process asked to be woken and returns the delay until the next resume, or
// alive=false when it is finished.
type Process interface {
	Resume(ctx context.Context, now float64) (wait float64, alive bool)
}

// ProcessFunc adapts a function to Process.
type ProcessFunc func(ctx context.Context, now float64) (float64, bool)

func (f ProcessFunc) Resume(ctx context.Context, now float64) (float64, bool) {
	return f(ctx, now)
}

// Once wraps fn in a process that runs a single time.
func Once(fn func(ctx context.Context, now float64)) Process {
	return ProcessFunc(func(ctx context.Context, now float64) (float64, bool) {
		fn(ctx, now)
		return 0, false
	})
}

type Option func(*Env)

// WithRealtime paces the clock at factor wall seconds per virtual unit.
// With strict set, falling more than one unit behind is reported.
func WithRealtime(factor float64, strict bool) Option {
	return func(e *Env) {
		e.factor = factor
		e.strict = strict
	}
}

// WithWallClock replaces time.Now and the sleep used for real-time pacing.
func WithWallClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Env) {
		e.wallNow = now
		e.sleep = sleep
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Env) {
		e.logger = logger
	}
}

// Env owns the virtual clock and the queue of waiting processes.
type Env struct {
	now    float64
	seq    uint64
	queue  waitQueue
	factor float64
	strict bool
	lags   int

	wallNow func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

func New(opts ...Option) *Env {
	e := &Env{
		wallNow: time.Now,
		sleep:   sleepCtx,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the current virtual time.
func (e *Env) Now() float64 { return e.now }

// Lags returns how many times strict pacing fell behind.
func (e *Env) Lags() int { return e.lags }

// Go schedules p to start at the current time.
func (e *Env) Go(p Process) { e.At(e.now, p) }

// After schedules p to start delay units from now.
func (e *Env) After(delay float64, p Process) { e.At(e.now+max(delay, 0), p) }

// At schedules p to start at absolute virtual time t. Times in the past run
// at the current time.
func (e *Env) At(t float64, p Process) {
	if t < e.now {
		t = e.now
	}
	e.seq++
	heap.Push(&e.queue, &waiter{at: t, seq: e.seq, proc: p})
}

// Run resumes processes in time order until the queue is empty, the next
// wake-up lies beyond until, or ctx is done. The clock ends at until unless
// ctx stopped it early.
func (e *Env) Run(ctx context.Context, until float64) error {
	start := e.wallNow().Add(-e.wallOffset(e.now))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.queue.Len() == 0 || e.queue[0].at > until {
			if err := e.pace(ctx, start, until); err != nil {
				return err
			}
			e.now = until
			return nil
		}
		w := heap.Pop(&e.queue).(*waiter)
		if err := e.pace(ctx, start, w.at); err != nil {
			return err
		}
		e.now = w.at
		wait, alive := w.proc.Resume(ctx, e.now)
		if alive {
			e.At(e.now+max(wait, 0), w.proc)
		}
	}
}

func (e *Env) wallOffset(t float64) time.Duration {
	return time.Duration(t * e.factor * float64(time.Second))
}

// pace blocks until the wall clock reaches virtual time t.
func (e *Env) pace(ctx context.Context, start time.Time, t float64) error {
	if e.factor <= 0 {
		return nil
	}
	target := start.Add(e.wallOffset(t))
	d := target.Sub(e.wallNow())
	if d > 0 {
		return e.sleep(ctx, d)
	}
	if e.strict && -d > e.wallOffset(1) {
		e.lags++
		e.logger.Warn("virtual clock behind real time", "now", t, "behind", -d)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type waiter struct {
	at   float64
	seq  uint64
	proc Process
}

// waitQueue orders by time, then by scheduling order.
type waitQueue []*waiter

func (q waitQueue) Len() int { return len(q) }
func (q waitQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q waitQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *waitQueue) Push(x interface{}) { *q = append(*q, x.(*waiter)) }
func (q *waitQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
