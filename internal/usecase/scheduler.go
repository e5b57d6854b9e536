package usecase

import (
	"context"
	"sync"
	"time"

	"CoinPulse/pkg/logger"
)

// Cycle is one repeatable unit of scheduled work.
type Cycle interface {
	Name() string
	Run(ctx context.Context) error
}

// EntryState is the last observed outcome of a schedule entry.
type EntryState struct {
	Name                string    `json:"name"`
	Interval            string    `json:"interval"`
	LastRun             time.Time `json:"last_run"`
	LastOutcome         string    `json:"last_outcome"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// scheduleEntry owns one cycle's timer loop. Entries are created at
// startup and never removed while the process lives.
type scheduleEntry struct {
	cycle    Cycle
	interval time.Duration

	mu                  sync.Mutex
	lastRun             time.Time
	lastOutcome         string
	lastError           string
	consecutiveFailures int
}

func (e *scheduleEntry) record(at time.Time, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastRun = at
	if err != nil {
		e.lastOutcome = "failure"
		e.lastError = err.Error()
		e.consecutiveFailures++
		return
	}
	e.lastOutcome = "success"
	e.lastError = ""
	e.consecutiveFailures = 0
}

func (e *scheduleEntry) state() EntryState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return EntryState{
		Name:                e.cycle.Name(),
		Interval:            e.interval.String(),
		LastRun:             e.lastRun,
		LastOutcome:         e.lastOutcome,
		LastError:           e.lastError,
		ConsecutiveFailures: e.consecutiveFailures,
	}
}

// Scheduler runs one independent goroutine per entry. A failing entry
// logs and waits for its next tick; it never delays or aborts another
// entry's loop, and never crashes the process.
type Scheduler struct {
	entries []*scheduleEntry
	log     *logger.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewScheduler creates an empty scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// Add registers a cycle. Must be called before Start.
func (s *Scheduler) Add(cycle Cycle, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &scheduleEntry{cycle: cycle, interval: interval})
}

// Start launches every entry's loop. Each entry fires one immediate
// warm-up cycle, then settles into its configured interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	for _, entry := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, entry)
	}

	if s.log != nil {
		s.log.Info("scheduler started", logger.Int("entries", len(s.entries)))
	}
}

func (s *Scheduler) loop(ctx context.Context, entry *scheduleEntry) {
	defer s.wg.Done()

	s.runOnce(ctx, entry)

	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, entry)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, entry *scheduleEntry) {
	if ctx.Err() != nil {
		return
	}

	at := time.Now()
	err := entry.cycle.Run(ctx)
	entry.record(at, err)

	if err != nil && s.log != nil {
		state := entry.state()
		s.log.Warn("cycle failed",
			logger.String("entry", entry.cycle.Name()),
			logger.Int("consecutive_failures", state.ConsecutiveFailures),
			logger.Error(err),
		)
	}
}

// Stop cancels all loops and waits up to grace for in-flight cycles
// to finish.
func (s *Scheduler) Stop(grace time.Duration) {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		if s.log != nil {
			s.log.Warn("scheduler stop grace period elapsed")
		}
	}
}

// Entries reports the current state of every schedule entry.
func (s *Scheduler) Entries() []EntryState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]EntryState, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.state())
	}
	return out
}
