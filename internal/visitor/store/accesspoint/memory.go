// Package accesspoint provides the access point store implementations.
//
// The occupancy counter update is always a single atomic operation: a
// conditional add under the store lock (memory) or one conditional UPDATE
// (postgres). Nothing ever increments a value fetched in an earlier call.
package accesspoint

import (
	"context"
	"sort"
	"sync"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// InMemory is the single-instance access point store.
type InMemory struct {
	mu     sync.RWMutex
	points map[id.AccessPointID]*models.AccessPoint
}

func NewInMemory() *InMemory {
	return &InMemory{points: make(map[id.AccessPointID]*models.AccessPoint)}
}

// Create registers an access point.
func (s *InMemory) Create(ctx context.Context, ap *models.AccessPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.points[ap.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *ap
	s.points[ap.ID] = &cp
	return nil
}

// ApplyDelta adjusts the live occupancy counter by delta (+1 or -1) as one
// atomic operation and returns the updated access point. The counter floors
// at zero; a decrement below zero indicates drift and is clamped (the
// reconciler repairs the counter from ground truth).
func (s *InMemory) ApplyDelta(ctx context.Context, apID id.AccessPointID, delta int) (*models.AccessPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ap, ok := s.points[apID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	ap.CurrentOccupancy += delta
	if ap.CurrentOccupancy < 0 {
		ap.CurrentOccupancy = 0
	}
	cp := *ap
	return &cp, nil
}

// SetOccupancy overwrites the counter. Reserved for the reconciler, which is
// the only caller allowed to write an absolute value.
func (s *InMemory) SetOccupancy(ctx context.Context, apID id.AccessPointID, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ap, ok := s.points[apID]
	if !ok {
		return sentinel.ErrNotFound
	}
	ap.CurrentOccupancy = n
	return nil
}

// Get returns a copy of the access point.
func (s *InMemory) Get(ctx context.Context, apID id.AccessPointID) (*models.AccessPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ap, ok := s.points[apID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *ap
	return &cp, nil
}

// List returns all access points, optionally filtered by site.
func (s *InMemory) List(ctx context.Context, siteID id.SiteID) ([]*models.AccessPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AccessPoint
	for _, ap := range s.points {
		if !siteID.IsNil() && ap.SiteID != siteID {
			continue
		}
		cp := *ap
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
