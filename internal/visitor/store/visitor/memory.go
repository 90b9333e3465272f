// Package visitor provides the visitor store implementations.
//
// The store owns the badge uniqueness index and serializes lifecycle
// transitions per record: conditional updates happen under the store lock
// (memory) or as a single conditional UPDATE (postgres), never as a
// read-modify-write across two calls.
package visitor

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

// Filter narrows visitor listings.
type Filter struct {
	SiteID        id.SiteID
	AccessPointID id.AccessPointID
	Statuses      []models.Status
}

func (f Filter) matches(v *models.Visitor) bool {
	if !f.SiteID.IsNil() && v.SiteID != f.SiteID {
		return false
	}
	if !f.AccessPointID.IsNil() && v.AccessPointID != f.AccessPointID {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if v.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// InMemory is the single-instance visitor store.
type InMemory struct {
	mu       sync.RWMutex
	visitors map[id.VisitorID]*models.Visitor
	badges   map[string]id.VisitorID
}

func NewInMemory() *InMemory {
	return &InMemory{
		visitors: make(map[id.VisitorID]*models.Visitor),
		badges:   make(map[string]id.VisitorID),
	}
}

// CreateCheckedIn inserts a new visitor record. Returns
// sentinel.ErrAlreadyUsed when the badge number is already taken, which the
// lifecycle service answers by regenerating the badge.
func (s *InMemory) CreateCheckedIn(ctx context.Context, v *models.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	badgeKey := strings.ToUpper(v.BadgeNumber)
	if _, taken := s.badges[badgeKey]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, exists := s.visitors[v.ID]; exists {
		return sentinel.ErrConflict
	}

	cp := *v
	s.visitors[v.ID] = &cp
	s.badges[badgeKey] = v.ID
	return nil
}

// FindByID returns a copy of the visitor.
func (s *InMemory) FindByID(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.visitors[visitorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// CompleteCheckOut validates and applies the checked_out transition under
// the store lock, so two concurrent check-outs cannot both succeed.
func (s *InMemory) CompleteCheckOut(ctx context.Context, visitorID id.VisitorID, at time.Time, actor id.UserID, notes string) (*models.Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[visitorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := v.CanCheckOut(); err != nil {
		return nil, err
	}
	v.ApplyCheckOut(at, actor, notes)
	cp := *v
	return &cp, nil
}

// MarkOverstayed applies the overstayed transition. The bool reports whether
// the transition happened: false with a nil error means the visitor was
// already overstayed (idempotent sweep re-scan).
func (s *InMemory) MarkOverstayed(ctx context.Context, visitorID id.VisitorID, now time.Time) (*models.Visitor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[visitorID]
	if !ok {
		return nil, false, sentinel.ErrNotFound
	}
	if v.Status == models.StatusOverstayed {
		cp := *v
		return &cp, false, nil
	}
	if err := v.CanMarkOverstayed(now); err != nil {
		return nil, false, err
	}
	v.ApplyOverstay()
	cp := *v
	return &cp, true, nil
}

// List returns visitors matching the filter, newest check-in first.
func (s *InMemory) List(ctx context.Context, f Filter) ([]*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Visitor
	for _, v := range s.visitors {
		if f.matches(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckInTime.After(out[j].CheckInTime)
	})
	return out, nil
}

// ListOverdue returns checked_in visitors whose expected duration has
// elapsed at now. Already-overstayed visitors are excluded so sweeps only
// see fresh work.
func (s *InMemory) ListOverdue(ctx context.Context, now time.Time) ([]*models.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Visitor
	for _, v := range s.visitors {
		if v.Status == models.StatusCheckedIn && v.OverdueAt(now) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckInTime.Before(out[j].CheckInTime)
	})
	return out, nil
}

// CountOnSite counts visitors physically present at an access point. This is
// the ground truth the occupancy reconciler converges counters toward.
func (s *InMemory) CountOnSite(ctx context.Context, accessPointID id.AccessPointID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, v := range s.visitors {
		if v.AccessPointID == accessPointID && v.Status.OnSite() {
			n++
		}
	}
	return n, nil
}
