package occupancy

import (
	"context"
	"log/slog"
	"time"
)

// Reconciler runs Tracker.Reconcile on a fixed interval. One sweep at a
// time; a tick that arrives mid-sweep is skipped rather than queued.
type Reconciler struct {
	tracker  *Tracker
	interval time.Duration
	logger   *slog.Logger
}

func NewReconciler(tracker *Tracker, interval time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{tracker: tracker, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.tracker.Reconcile(ctx); err != nil {
				r.logger.WarnContext(ctx, "occupancy reconcile sweep failed", "error", err)
			}
		}
	}
}
