// Package occupancy owns every write to access point occupancy counters.
//
// The lifecycle service is the only caller of Apply, and Apply is always
// invoked inside the same unit of work as the visitor status write it
// accompanies. A periodic reconciler recomputes counters from the visitor
// store as ground truth, which makes the system self-healing if a
// non-transactional deployment ever drifts.
package occupancy

import (
	"context"
	"log/slog"

	"gatehouse/internal/platform/metrics"
	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

// Store is the access point store facet the tracker drives.
type Store interface {
	ApplyDelta(ctx context.Context, apID id.AccessPointID, delta int) (*models.AccessPoint, error)
	SetOccupancy(ctx context.Context, apID id.AccessPointID, n int) error
	Get(ctx context.Context, apID id.AccessPointID) (*models.AccessPoint, error)
	List(ctx context.Context, siteID id.SiteID) ([]*models.AccessPoint, error)
}

// GroundTruth counts visitors physically present at an access point.
type GroundTruth interface {
	CountOnSite(ctx context.Context, apID id.AccessPointID) (int, error)
}

// Tracker maintains live occupancy per access point and per site.
type Tracker struct {
	store   Store
	truth   GroundTruth
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Tracker.
type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func New(store Store, truth GroundTruth, opts ...Option) *Tracker {
	t := &Tracker{store: store, truth: truth, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply adjusts an access point's occupancy by delta (+1 on check-in, -1 on
// check-out) and returns the updated access point. Must run in the same
// unit of work as the visitor transition that caused it.
func (t *Tracker) Apply(ctx context.Context, apID id.AccessPointID, delta int) (*models.AccessPoint, error) {
	ap, err := t.store.ApplyDelta(ctx, apID, delta)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update occupancy")
	}
	if t.metrics != nil {
		t.metrics.CurrentOccupancy.WithLabelValues(ap.ID.String()).Set(float64(ap.CurrentOccupancy))
	}
	return ap, nil
}

// AccessPoint returns the access point with its live occupancy.
func (t *Tracker) AccessPoint(ctx context.Context, apID id.AccessPointID) (*models.AccessPoint, error) {
	ap, err := t.store.Get(ctx, apID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "access point not found")
	}
	return ap, nil
}

// SiteOccupancy derives a site's live occupancy by summing its access
// points at read time.
func (t *Tracker) SiteOccupancy(ctx context.Context, siteID id.SiteID) (int, error) {
	points, err := t.store.List(ctx, siteID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access points")
	}
	total := 0
	for _, ap := range points {
		total += ap.CurrentOccupancy
	}
	return total, nil
}

// Reconcile recomputes every counter from the visitor store. Failures on
// one access point do not abort the rest.
func (t *Tracker) Reconcile(ctx context.Context) error {
	points, err := t.store.List(ctx, id.SiteID{})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access points")
	}

	for _, ap := range points {
		actual, err := t.truth.CountOnSite(ctx, ap.ID)
		if err != nil {
			t.logger.WarnContext(ctx, "occupancy recount failed",
				"access_point_id", ap.ID,
				"error", err,
			)
			continue
		}
		if actual == ap.CurrentOccupancy {
			continue
		}

		t.logger.WarnContext(ctx, "occupancy drift corrected",
			"access_point_id", ap.ID,
			"recorded", ap.CurrentOccupancy,
			"actual", actual,
		)
		if err := t.store.SetOccupancy(ctx, ap.ID, actual); err != nil {
			t.logger.WarnContext(ctx, "occupancy correction failed",
				"access_point_id", ap.ID,
				"error", err,
			)
			continue
		}
		if t.metrics != nil {
			t.metrics.OccupancyDrift.Inc()
			t.metrics.CurrentOccupancy.WithLabelValues(ap.ID.String()).Set(float64(actual))
		}
	}
	return nil
}
