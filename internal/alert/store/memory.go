// Package store provides the alert stores.
package store

import (
	"context"
	"sort"
	"sync"

	"gatehouse/internal/alert/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// InMemory is the single-instance alert store. Receipt appends run under
// the store lock so concurrent reads by different users never lose entries.
type InMemory struct {
	mu     sync.RWMutex
	alerts map[id.AlertID]*models.Alert
}

func NewInMemory() *InMemory {
	return &InMemory{alerts: make(map[id.AlertID]*models.Alert)}
}

func (s *InMemory) Create(ctx context.Context, a *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.alerts[a.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

func (s *InMemory) Get(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[alertID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Update applies fn to the stored alert under the write lock and returns the
// updated copy. fn mutates in place; returning an error abandons the change.
func (s *InMemory) Update(ctx context.Context, alertID id.AlertID, fn func(*models.Alert) error) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[alertID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

func (s *InMemory) List(ctx context.Context, f models.Filter) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Alert
	for _, a := range s.alerts {
		if f.Matches(a) {
			cp := *a
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}
