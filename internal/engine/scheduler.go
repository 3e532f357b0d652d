package engine

import (
	"context"
	"time"

	"github.com/openwilds/forage-colony/internal/platform/logger"
	"github.com/openwilds/forage-colony/internal/platform/metrics"
)

// TickTarget receives tick deliveries from the scheduler. OnTick must
// not block; actors satisfy this with their non-blocking mailbox.
type TickTarget interface {
	OnTick()
}

// TargetSource enumerates the live tick targets at fan-out time, so
// actors created or terminated between ticks are picked up naturally.
type TargetSource interface {
	Targets() []TickTarget
}

// Scheduler fires ticks to every live target and to the pool's regrowth
// clock. The fan-out never waits on a target; the timer re-arms only
// after the fan-out is issued, so a slow enumeration stretches the
// cadence instead of stacking deliveries.
type Scheduler struct {
	interval time.Duration
	source   TargetSource
	pool     *Pool
	logger   *logger.Logger
	stopChan chan struct{}
}

// NewScheduler creates a scheduler over the given target source.
func NewScheduler(interval time.Duration, source TargetSource, pool *Pool, log *logger.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		source:   source,
		pool:     pool,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the tick loop. Call in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	if s.logger != nil {
		s.logger.Info("Scheduler started, tick interval %v", s.interval)
	}

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Info("Scheduler stopped by context.")
			}
			return
		case <-s.stopChan:
			if s.logger != nil {
				s.logger.Info("Scheduler stopped manually.")
			}
			return
		case <-timer.C:
			s.fanOut()
			timer.Reset(s.interval)
		}
	}
}

// Stop halts the tick loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
	}
	close(s.stopChan)
}

// fanOut delivers one tick to every live target and the pool. Each
// OnTick is a non-blocking enqueue, so the loop's latency is the cost
// of the enumeration, not of any actor's work.
func (s *Scheduler) fanOut() {
	start := time.Now()

	for _, t := range s.source.Targets() {
		t.OnTick()
	}
	if s.pool != nil {
		s.pool.RegrowthTick()
	}

	metrics.Get().RecordTick(time.Since(start))
}
