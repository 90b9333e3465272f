// Package models holds the immutable activity record types.
package models

import (
	"time"

	id "gatehouse/pkg/domain"
)

// Type classifies an activity record.
type Type string

const (
	TypeCheckIn       Type = "checkin"
	TypeCheckOut      Type = "checkout"
	TypeOverstay      Type = "overstay"
	TypeBannedAttempt Type = "banned_attempt"
	TypeIncident      Type = "incident"
	TypeEmergency     Type = "emergency"
)

// Priority orders activities for dashboard surfacing.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Activity is an immutable record of a lifecycle event. Once recorded it is
// never updated or deleted; the bus is the single writer of history.
type Activity struct {
	ID          id.ActivityID `json:"id"`
	Type        Type          `json:"type"`
	Description string        `json:"description"`
	Priority    Priority      `json:"priority"`

	SiteID        id.SiteID        `json:"site_id"`
	AccessPointID id.AccessPointID `json:"access_point_id,omitempty"`
	VisitorID     id.VisitorID     `json:"visitor_id,omitempty"`
	ActorID       id.UserID        `json:"actor_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Filter narrows activity listings. Zero fields are ignored.
type Filter struct {
	SiteID id.SiteID
	Types  []Type
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Matches applies the filter in memory (the postgres store pushes the same
// predicate into SQL).
func (f Filter) Matches(a *Activity) bool {
	if !f.SiteID.IsNil() && a.SiteID != f.SiteID {
		return false
	}
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if a.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.From.IsZero() && a.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && a.OccurredAt.After(f.To) {
		return false
	}
	return true
}
