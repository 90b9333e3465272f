// Package models holds the alert aggregate.
//
// Read and acknowledge tracking is an append-only set of per-user receipts,
// not a boolean: several targeted users independently read the same alert
// and the system must answer "has user U read this" for each of them.
package models

import (
	"time"

	id "gatehouse/pkg/domain"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// Status is the alert lifecycle state. Dismissed is terminal.
type Status string

const (
	StatusUnread       Status = "unread"
	StatusRead         Status = "read"
	StatusAcknowledged Status = "acknowledged"
	StatusDismissed    Status = "dismissed"
)

// Receipt records who read or acknowledged an alert, and when.
type Receipt struct {
	UserID    id.UserID `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Audience scopes who an alert targets: a role set and/or explicit users.
// Empty audience means everyone with dashboard access.
type Audience struct {
	Roles   []string    `json:"roles,omitempty"`
	UserIDs []id.UserID `json:"user_ids,omitempty"`
}

// Alert is a human-facing notification derived from one or more activities.
type Alert struct {
	ID       id.AlertID `json:"id"`
	Severity Severity   `json:"severity"`
	Status   Status     `json:"status"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`

	SiteID     id.SiteID     `json:"site_id"`
	VisitorID  id.VisitorID  `json:"visitor_id,omitempty"`
	ActivityID id.ActivityID `json:"activity_id,omitempty"`

	Audience Audience  `json:"audience"`
	Reads    []Receipt `json:"reads"`
	Acks     []Receipt `json:"acks"`

	// ExpiresAt past is treated as dismissed at read time (auto-expiry).
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// EffectiveStatus folds auto-expiry into the stored status.
func (a *Alert) EffectiveStatus(now time.Time) Status {
	if a.Status != StatusDismissed && a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return StatusDismissed
	}
	return a.Status
}

// RecordRead appends a read receipt for the user. Idempotent: a second read
// by the same user leaves exactly one receipt and reports false.
func (a *Alert) RecordRead(user id.UserID, at time.Time) bool {
	if hasReceipt(a.Reads, user) {
		return false
	}
	a.Reads = append(a.Reads, Receipt{UserID: user, Timestamp: at})
	if a.Status == StatusUnread {
		a.Status = StatusRead
	}
	return true
}

// RecordAck appends an acknowledge receipt for the user. Idempotent per
// user; the first acknowledgement advances the alert to acknowledged.
func (a *Alert) RecordAck(user id.UserID, at time.Time, note string) bool {
	if hasReceipt(a.Acks, user) {
		return false
	}
	a.Acks = append(a.Acks, Receipt{UserID: user, Timestamp: at, Note: note})
	if a.Status == StatusUnread || a.Status == StatusRead {
		a.Status = StatusAcknowledged
	}
	return true
}

// Dismiss marks the alert dismissed. Terminal and idempotent.
func (a *Alert) Dismiss() {
	a.Status = StatusDismissed
}

// Filter narrows alert listings. Zero fields are ignored. Status is not a
// store-level filter because the effective status is derived (auto-expiry);
// callers filter on it after folding expiry in.
type Filter struct {
	SiteID     id.SiteID
	Severities []Severity
	Limit      int
}

func (f Filter) Matches(a *Alert) bool {
	if !f.SiteID.IsNil() && a.SiteID != f.SiteID {
		return false
	}
	if len(f.Severities) > 0 {
		ok := false
		for _, sev := range f.Severities {
			if a.Severity == sev {
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

func hasReceipt(receipts []Receipt, user id.UserID) bool {
	for _, r := range receipts {
		if r.UserID == user {
			return true
		}
	}
	return false
}
