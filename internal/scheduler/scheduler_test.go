package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	name     string
	interval time.Duration
	ticks    atomic.Int64
	err      error
	block    time.Duration
}

func (r *countingRunner) Name() string            { return r.name }
func (r *countingRunner) Interval() time.Duration { return r.interval }

func (r *countingRunner) Tick(ctx context.Context) error {
	r.ticks.Add(1)
	if r.block > 0 {
		time.Sleep(r.block)
	}
	return r.err
}

func TestScheduler_TicksImmediatelyThenOnInterval(t *testing.T) {
	r := &countingRunner{name: "a", interval: 20 * time.Millisecond}
	s := New(nil, r)

	s.Start(context.Background())
	time.Sleep(70 * time.Millisecond)
	s.Stop()

	// Immediate tick plus at least two interval ticks
	assert.GreaterOrEqual(t, r.ticks.Load(), int64(3))
}

func TestScheduler_StopWaitsForInflightTick(t *testing.T) {
	r := &countingRunner{name: "slow", interval: 10 * time.Millisecond, block: 50 * time.Millisecond}
	s := New(nil, r)

	s.Start(context.Background())
	time.Sleep(5 * time.Millisecond) // first tick is in flight

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Stop did not return")
	}
	assert.GreaterOrEqual(t, r.ticks.Load(), int64(1))
}

func TestScheduler_RunnerFailureIsIsolated(t *testing.T) {
	failing := &countingRunner{name: "bad", interval: 10 * time.Millisecond, err: errors.New("boom")}
	healthy := &countingRunner{name: "good", interval: 10 * time.Millisecond}

	var mu sync.Mutex
	errored := make(map[string]int)
	s := New(func(runner string, err error) {
		mu.Lock()
		errored[runner]++
		mu.Unlock()
	}, failing, healthy)

	s.Start(context.Background())
	time.Sleep(60 * time.Millisecond)
	s.Stop()

	// The failing runner kept getting ticked and the healthy one kept running
	assert.GreaterOrEqual(t, failing.ticks.Load(), int64(3))
	assert.GreaterOrEqual(t, healthy.ticks.Load(), int64(3))

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, errored["bad"], 3)
	assert.Zero(t, errored["good"])
}

func TestScheduler_ContextCancellationStopsRunners(t *testing.T) {
	r := &countingRunner{name: "a", interval: 10 * time.Millisecond}
	s := New(nil, r)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(25 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	before := r.ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, r.ticks.Load())

	s.Stop()
}
