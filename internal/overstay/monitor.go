// Package overstay runs the background sweep that flags visitors who have
// exceeded their declared visit duration.
package overstay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/requestcontext"
)

// VisitorSource lists checked_in visitors past their expected duration.
type VisitorSource interface {
	ListOverdue(ctx context.Context, now time.Time) ([]*models.Visitor, error)
}

// Lifecycle applies the overstay transition with all its side effects.
type Lifecycle interface {
	MarkOverstayed(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error)
}

// Monitor periodically sweeps for overdue visitors. Sweeps are
// single-flight: a tick that fires while the previous sweep is still
// running is skipped, not queued.
type Monitor struct {
	source    VisitorSource
	lifecycle Lifecycle
	interval  time.Duration
	logger    *slog.Logger

	sweepMu sync.Mutex
}

// Option configures the Monitor.
type Option func(*Monitor)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

func New(source VisitorSource, lifecycle Lifecycle, interval time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		source:    source,
		lifecycle: lifecycle,
		interval:  interval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run sweeps on every tick until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.InfoContext(ctx, "overstay monitor started", "interval", m.interval)
	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "overstay monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.ErrorContext(ctx, "overstay sweep failed", "error", err)
			}
		}
	}
}

// Sweep flags every overdue visitor once and reports how many transitioned.
// A failure on one visitor does not abort the rest. Safe to call while a
// previous sweep is running: the overlapping call returns immediately.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	if !m.sweepMu.TryLock() {
		m.logger.DebugContext(ctx, "overstay sweep already running, skipping")
		return 0, nil
	}
	defer m.sweepMu.Unlock()

	now := requestcontext.Now(ctx)
	overdue, err := m.source.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, v := range overdue {
		if _, err := m.lifecycle.MarkOverstayed(ctx, v.ID); err != nil {
			// Likely lost a race with a concurrent check-out; the next
			// sweep sees the final state either way.
			m.logger.WarnContext(ctx, "overstay transition failed",
				"visitor_id", v.ID,
				"error", err,
			)
			continue
		}
		flagged++
	}
	if flagged > 0 {
		m.logger.InfoContext(ctx, "overstay sweep complete",
			"overdue", len(overdue),
			"flagged", flagged,
		)
	}
	return flagged, nil
}
