// Package store provides the append-only activity stores.
package store

import (
	"context"
	"sort"
	"sync"

	"gatehouse/internal/activity/models"
)

// InMemory is the single-instance activity store. Append-only: there is no
// update or delete surface at all.
type InMemory struct {
	mu         sync.RWMutex
	activities []*models.Activity
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

// Append records an activity. The stored copy is private so later caller
// mutations cannot rewrite history.
func (s *InMemory) Append(ctx context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.activities = append(s.activities, &cp)
	return nil
}

// List returns matching activities, newest first.
func (s *InMemory) List(ctx context.Context, f models.Filter) ([]*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Activity
	for _, a := range s.activities {
		if f.Matches(a) {
			cp := *a
			matched = append(matched, &cp)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}
