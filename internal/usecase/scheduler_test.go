package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingCycle struct {
	name string
	runs atomic.Int32
	err  error
	slow time.Duration
}

func (c *countingCycle) Name() string { return c.name }

func (c *countingCycle) Run(ctx context.Context) error {
	c.runs.Add(1)
	if c.slow > 0 {
		select {
		case <-time.After(c.slow):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.err
}

func TestSchedulerImmediateWarmup(t *testing.T) {
	s := NewScheduler(nil)
	c := &countingCycle{name: "a"}
	s.Add(c, time.Hour)

	s.Start(context.Background())
	defer s.Stop(time.Second)

	deadline := time.Now().Add(time.Second)
	for c.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.runs.Load() != 1 {
		t.Errorf("runs = %d, want 1 immediate warm-up run", c.runs.Load())
	}
}

func TestSchedulerTicksAtInterval(t *testing.T) {
	s := NewScheduler(nil)
	c := &countingCycle{name: "a"}
	s.Add(c, 20*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(70 * time.Millisecond)
	s.Stop(time.Second)

	if runs := c.runs.Load(); runs < 3 {
		t.Errorf("runs = %d, want at least 3 (warm-up + ticks)", runs)
	}
}

func TestSchedulerFailureIsolation(t *testing.T) {
	s := NewScheduler(nil)
	failing := &countingCycle{name: "bad", err: errors.New("provider down"), slow: 15 * time.Millisecond}
	healthy := &countingCycle{name: "good"}
	s.Add(failing, 10*time.Millisecond)
	s.Add(healthy, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	s.Stop(time.Second)

	if healthy.runs.Load() < 5 {
		t.Errorf("healthy runs = %d, failing entry must not delay it", healthy.runs.Load())
	}

	var badState EntryState
	for _, st := range s.Entries() {
		if st.Name == "bad" {
			badState = st
		}
	}
	if badState.LastOutcome != "failure" {
		t.Errorf("bad outcome = %q, want failure", badState.LastOutcome)
	}
	if badState.ConsecutiveFailures < 2 {
		t.Errorf("consecutive failures = %d, want accumulation", badState.ConsecutiveFailures)
	}
}

func TestSchedulerFailureCounterResets(t *testing.T) {
	e := &scheduleEntry{cycle: &countingCycle{name: "x"}, interval: time.Second}

	e.record(time.Now(), errors.New("boom"))
	e.record(time.Now(), errors.New("boom"))
	if e.state().ConsecutiveFailures != 2 {
		t.Fatalf("failures = %d, want 2", e.state().ConsecutiveFailures)
	}

	e.record(time.Now(), nil)
	st := e.state()
	if st.ConsecutiveFailures != 0 || st.LastOutcome != "success" || st.LastError != "" {
		t.Errorf("success must reset failure state, got %+v", st)
	}
}

func TestSchedulerStopWaitsForInflight(t *testing.T) {
	s := NewScheduler(nil)
	c := &countingCycle{name: "slow", slow: 30 * time.Millisecond}
	s.Add(c, time.Hour)

	s.Start(context.Background())
	time.Sleep(5 * time.Millisecond)

	start := time.Now()
	s.Stop(time.Second)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Stop took %v, in-flight cycle should abort on cancel", elapsed)
	}
}
