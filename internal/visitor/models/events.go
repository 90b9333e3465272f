package models

import (
	"time"

	id "gatehouse/pkg/domain"
)

// Real-time event names published to site rooms (or globally for
// emergencies). Payloads carry enough fields for dashboards to update
// derived state incrementally without a follow-up fetch.
const (
	EventVisitorCheckedIn  = "visitor_checked_in"
	EventVisitorCheckedOut = "visitor_checked_out"
	EventVisitorActivity   = "visitor_activity"
	EventBannedVisitor     = "banned_visitor_alert"
	EventSecurityAlert     = "security_alert"
	EventEmergencyAlert    = "emergency_alert"
	EventEmergencyCleared  = "emergency_deactivated"
)

// CheckedInEvent is the visitor_checked_in payload.
type CheckedInEvent struct {
	ID            id.VisitorID     `json:"id"`
	FullName      string           `json:"fullName"`
	Company       string           `json:"company"`
	AccessPointID id.AccessPointID `json:"accessPointId"`
	Timestamp     time.Time        `json:"timestamp"`
}

// CheckedOutEvent is the visitor_checked_out payload.
type CheckedOutEvent struct {
	ID        id.VisitorID `json:"id"`
	FullName  string       `json:"fullName"`
	Timestamp time.Time    `json:"timestamp"`
}

// ActivityEvent is the generic visitor_activity notice dashboards consume
// for incremental refresh.
type ActivityEvent struct {
	Type          string           `json:"type"`
	VisitorID     id.VisitorID     `json:"visitorId"`
	FullName      string           `json:"fullName"`
	AccessPointID id.AccessPointID `json:"accessPointId"`
	Occupancy     int              `json:"occupancy"`
	Timestamp     time.Time        `json:"timestamp"`
}

// BannedVisitorEvent is published when the screener refuses a check-in.
type BannedVisitorEvent struct {
	Visitor     BannedVisitorIdentity `json:"visitor"`
	BannedEntry BannedEntryRef        `json:"bannedEntry"`
}

// BannedVisitorIdentity describes who was refused; no visitor record exists.
type BannedVisitorIdentity struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Company  string `json:"company"`
}

// BannedEntryRef carries the matched entry's reason.
type BannedEntryRef struct {
	Reason string `json:"reason"`
}

// SecurityAlertEvent is the security_alert payload: a free-form
// security/incident signal scoped to the site it was reported at.
type SecurityAlertEvent struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// EmergencyAlertEvent is the global emergency_alert payload.
type EmergencyAlertEvent struct {
	EmergencyType string    `json:"emergencyType"`
	Message       string    `json:"message"`
	Location      string    `json:"location"`
	ActivatedBy   id.UserID `json:"activatedBy"`
	Timestamp     time.Time `json:"timestamp"`
}
