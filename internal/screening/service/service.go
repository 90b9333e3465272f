// Package service implements the banned-visitor screener and the registry
// management around it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gatehouse/internal/screening/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/requestcontext"
)

// Store is the banned-entry registry.
type Store interface {
	Create(ctx context.Context, e *models.BannedEntry) error
	Deactivate(ctx context.Context, entryID id.BannedEntryID) error
	List(ctx context.Context) ([]*models.BannedEntry, error)
	FindMatch(ctx context.Context, name, email, company string, now time.Time) (*models.BannedEntry, error)
}

// Service screens check-in attempts against the registry.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) *Service {
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Screen returns the matching active entry when the identity is banned, or
// nil when clear. A pure read: no entry is ever mutated here.
func (s *Service) Screen(ctx context.Context, name, email, company string) (*models.BannedEntry, error) {
	entry, err := s.store.FindMatch(ctx, name, email, company, requestcontext.Now(ctx))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "banned-visitor screening failed")
	}
	return entry, nil
}

// AddEntry registers a new denial record. At least one of name, email, or
// company must be present or the entry could never match anything.
func (s *Service) AddEntry(ctx context.Context, e *models.BannedEntry) (*models.BannedEntry, error) {
	e.FullName = strings.TrimSpace(e.FullName)
	e.Email = strings.TrimSpace(e.Email)
	e.Company = strings.TrimSpace(e.Company)
	if e.FullName == "" && e.Email == "" && e.Company == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one of full_name, email, company is required")
	}

	e.ID = id.NewBannedEntryID()
	e.IsActive = true
	e.CreatedAt = requestcontext.Now(ctx)
	if err := s.store.Create(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create banned entry")
	}

	s.logger.InfoContext(ctx, "banned entry added",
		"entry_id", e.ID,
		"actor_id", requestcontext.ActorID(ctx),
	)
	return e, nil
}

// DeactivateEntry clears an entry's active flag.
func (s *Service) DeactivateEntry(ctx context.Context, entryID id.BannedEntryID) error {
	if err := s.store.Deactivate(ctx, entryID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "banned entry not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate banned entry")
	}
	return nil
}

// ListEntries returns the full registry, newest first.
func (s *Service) ListEntries(ctx context.Context) ([]*models.BannedEntry, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list banned entries")
	}
	return entries, nil
}
