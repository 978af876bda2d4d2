// Package scheduler implements the client's idle/backoff ticker (C9): it
// drives the Exchange Client's cycle on a timer, woken early by the
// Notification Bus, while the cycle's own Analysing flag guards against an
// overlapping run (spec.md §4.8).
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// idleInterval is the scheduler's baseline tick (spec default: 10s).
// Grounded literally on original_source's client/src/main.rs loop: every
// iteration sleeps this long regardless of whether a cycle ran.
const idleInterval = 10 * time.Second

// backoffInterval is the extra sleep added after a cycle actually runs
// (spec default: 100s). Grounded on the same loop: `if !analysing {
// analyse_logs().await; sleep(100s) }` runs before the unconditional 10s
// sleep — the 100s backoff follows a cycle that *did* run, not one that
// was skipped, despite spec.md's prose reading the other way round.
const backoffInterval = 100 * time.Second

// Cycle is the unit of work the scheduler drives once per tick.
// Satisfied by (*pipeline.Pipeline).RunCycle.
type Cycle func(ctx context.Context) error

// AnalysingFlag reports whether a cycle is currently running, so the
// scheduler can skip starting an overlapping one. Satisfied by
// (*pipeline.Pipeline).Analysing (a *atomic.Bool via its Load method).
type AnalysingFlag interface {
	Load() bool
}

// Scheduler ticks a Cycle on a fixed idle interval, adding a backoff sleep
// after any tick that actually ran, and can be woken early by pushes on an
// update channel (wsnotify.Client.Updates()).
type Scheduler struct {
	cycle     Cycle
	analysing AnalysingFlag
	updates   <-chan struct{}
	logger    *slog.Logger

	idleInterval    time.Duration
	backoffInterval time.Duration
}

// New returns a Scheduler. updates may be nil, in which case the
// scheduler relies solely on its idle tick.
func New(cycle Cycle, analysing AnalysingFlag, updates <-chan struct{}, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycle:           cycle,
		analysing:       analysing,
		updates:         updates,
		logger:          logger,
		idleInterval:    idleInterval,
		backoffInterval: backoffInterval,
	}
}

// SetIntervals overrides the idle and backoff durations, letting
// `filesync run` apply the configured poll_interval/backoff_interval
// instead of the package defaults.
func (s *Scheduler) SetIntervals(idle, backoff time.Duration) {
	s.idleInterval = idle
	s.backoffInterval = backoff
}

// Run blocks, ticking the cycle until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(s.idleInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.updates:
			// An early wake still goes through the same tick logic below,
			// collapsing any further pending wakes that arrive while this
			// one runs.
			s.drainPendingUpdates()
			s.tick(ctx)
			resetTimer(timer, s.idleInterval)

		case <-timer.C:
			s.tick(ctx)
			resetTimer(timer, s.idleInterval)
		}
	}
}

// tick runs one cycle if no cycle is already in flight, then sleeps the
// backoff interval before returning control to Run's select loop — Run's
// own idleInterval reset happens after tick returns, so a cycle that ran
// contributes idleInterval+backoffInterval total delay, matching
// original_source's unconditional trailing 10s sleep stacked after the
// conditional 100s one.
func (s *Scheduler) tick(ctx context.Context) {
	if s.analysing.Load() {
		s.logger.Debug("skipping tick: cycle already in progress")
		return
	}

	if err := s.cycle(ctx); err != nil {
		s.logger.Warn("cycle failed", slog.Any("err", err))
	}

	select {
	case <-ctx.Done():
	case <-time.After(s.backoffInterval):
	}
}

// drainPendingUpdates discards any additional updates queued alongside the
// one that woke Run, so a burst of server broadcasts triggers one cycle
// rather than one per message.
func (s *Scheduler) drainPendingUpdates() {
	for {
		select {
		case <-s.updates:
		default:
			return
		}
	}
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}

	timer.Reset(d)
}
