// Package store provides the banned-entry registry stores.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"gatehouse/internal/screening/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// InMemory is the single-instance banned-entry store. The registry is
// read-mostly; a plain RWMutex is sufficient.
type InMemory struct {
	mu      sync.RWMutex
	entries map[id.BannedEntryID]*models.BannedEntry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[id.BannedEntryID]*models.BannedEntry)}
}

func (s *InMemory) Create(ctx context.Context, e *models.BannedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

func (s *InMemory) Deactivate(ctx context.Context, entryID id.BannedEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.IsActive = false
	return nil
}

func (s *InMemory) List(ctx context.Context) ([]*models.BannedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.BannedEntry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// FindMatch returns the first active entry matching the identity, or
// sentinel.ErrNotFound. Screening is a pure read: expired entries are
// skipped, never mutated.
func (s *InMemory) FindMatch(ctx context.Context, name, email, company string, now time.Time) (*models.BannedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ActiveAt(now) && e.Matches(name, email, company) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
