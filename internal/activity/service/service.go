// Package service implements the activity event bus: the single writer of
// history consumed by the live dashboard feed and after-the-fact reporting.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"gatehouse/internal/activity/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/requestcontext"
)

// Store is the append-only activity log.
type Store interface {
	Append(ctx context.Context, a *models.Activity) error
	List(ctx context.Context, f models.Filter) ([]*models.Activity, error)
}

// Mirror receives a copy of every record for downstream consumers (Kafka).
// Delivery is best-effort and must never fail the recording path.
type Mirror interface {
	Publish(ctx context.Context, key string, value []byte)
}

// Service records and lists activities.
type Service struct {
	store  Store
	mirror Mirror
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMirror attaches the durable activity mirror.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func New(store Store, opts ...Option) *Service {
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Record appends an immutable activity. The ID and timestamp are assigned
// here if unset so callers only describe what happened.
func (s *Service) Record(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	if a.ID.IsNil() {
		a.ID = id.NewActivityID()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = requestcontext.Now(ctx)
	}
	if a.Priority == "" {
		a.Priority = models.PriorityNormal
	}

	if err := s.store.Append(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record activity")
	}

	if s.mirror != nil {
		payload, err := json.Marshal(a)
		if err != nil {
			s.logger.WarnContext(ctx, "activity mirror encode failed",
				"activity_id", a.ID,
				"error", err,
			)
		} else {
			s.mirror.Publish(ctx, a.ID.String(), payload)
		}
	}
	return a, nil
}

// List returns activities matching the filter, newest first. Limit defaults
// to 50 and caps at 200.
func (s *Service) List(ctx context.Context, f models.Filter) ([]*models.Activity, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	activities, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activities")
	}
	return activities, nil
}
