package scheduler

import (
	"context"
	"sync"
	"time"
)

// Runner is one periodically ticked unit of work. Tick errors are the
// runner's own problem to surface (log, metrics); the scheduler keeps
// ticking regardless so one bad cycle never stops a strategy.
type Runner interface {
	Name() string
	Interval() time.Duration
	Tick(ctx context.Context) error
}

// ErrorHandler receives tick errors for logging and metrics
type ErrorHandler func(runner string, err error)

// Scheduler drives each runner on its own goroutine and ticker. Ticks of a
// single runner never overlap because they run sequentially on that
// goroutine; a slow tick delays the next one rather than racing it.
// Runners are isolated from each other: a panic-free failure in one never
// touches the others' cadence.
type Scheduler struct {
	runners []Runner
	onError ErrorHandler

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a scheduler over the given runners
func New(onError ErrorHandler, runners ...Runner) *Scheduler {
	if onError == nil {
		onError = func(string, error) {}
	}
	return &Scheduler{
		runners: runners,
		onError: onError,
	}
}

// Start launches every runner loop. Each runner ticks once immediately, then
// on its interval. Cancellation is honored at tick boundaries: an in-flight
// tick finishes before its loop exits.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, r := range s.runners {
		s.wg.Add(1)
		go s.run(ctx, r)
	}
}

func (s *Scheduler) run(ctx context.Context, r Runner) {
	defer s.wg.Done()

	if err := r.Tick(ctx); err != nil {
		s.onError(r.Name(), err)
	}

	ticker := time.NewTicker(r.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				s.onError(r.Name(), err)
			}
		}
	}
}

// Stop cancels all runner loops and waits for in-flight ticks to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
