package poller

import (
	"context"
	"sync"
	"time"
)

// Task is one unit of scheduled work. It receives the context passed to
// [Schedule.Start].
type Task func(ctx context.Context)

// Schedule runs a [Task] once immediately and then on every tick of a fixed
// period.
//
// Every run is dispatched on its own goroutine, so a slow run never delays
// or suppresses the next tick: runs may overlap. There is no jitter, no
// backoff and no pause after failures.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Schedule struct {
	interval time.Duration
	task     Task

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}

	loop     sync.WaitGroup
	inflight sync.WaitGroup
}

// NewSchedule creates a [Schedule] that runs task every interval.
//
// The schedule must be started with [Schedule.Start] and stopped with
// [Schedule.Stop]. A non-positive interval panics, as it would for
// [time.NewTicker].
func NewSchedule(interval time.Duration, task Task) *Schedule {
	if interval <= 0 {
		panic("poller: non-positive schedule interval")
	}
	return &Schedule{
		interval: interval,
		task:     task,
		done:     make(chan struct{}),
	}
}

// Interval returns the fixed period between runs.
func (s *Schedule) Interval() time.Duration {
	return s.interval
}

// Start runs the task once without waiting for a tick, then starts the
// periodic loop in a background goroutine.
//
// Start is non-blocking. The loop ends when [Schedule.Stop] is called or ctx
// is cancelled. If ctx is nil, context.Background() is used.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Schedule) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	if ctx == nil {
		ctx = context.Background()
	}
	s.loop.Add(1)
	s.mu.Unlock()

	// first run is outside the tick cycle so the first paint is not delayed
	s.run(ctx)

	go func() {
		defer s.loop.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
}

// Stop ends the periodic loop so no further runs start.
//
// Stop does not cancel runs already in flight; it blocks until the loop has
// exited and those runs have returned.
//
// Stop is idempotent and safe to call multiple times. Calling Stop before
// Start is a safe no-op.
func (s *Schedule) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	s.mu.Unlock()

	s.loop.Wait()
	s.inflight.Wait()
}

// run dispatches one task run on its own goroutine.
func (s *Schedule) run(ctx context.Context) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.task(ctx)
	}()
}
