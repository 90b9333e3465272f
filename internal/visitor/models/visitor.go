// Package models holds the visitor aggregate and its lifecycle rules.
//
// A Visitor is one visit record, not a person: a returning person gets a new
// record (and a new badge) per visit. Lifecycle transitions are monotonic;
// there is no path back from checked_out.
package models

import (
	"strings"
	"time"

	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/platform/sentinel"
)

// Status is the visitor lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusOverstayed Status = "overstayed"
)

// IsValid reports whether s is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCheckedIn, StatusCheckedOut, StatusOverstayed:
		return true
	}
	return false
}

// OnSite reports whether a visitor in this state is physically present.
// Overstayed visitors are still on site, which is why marking an overstay
// never decrements occupancy.
func (s Status) OnSite() bool {
	return s == StatusCheckedIn || s == StatusOverstayed
}

// SpecialAccess is the visitor's access tier.
type SpecialAccess string

const (
	AccessNone       SpecialAccess = "none"
	AccessVIP        SpecialAccess = "vip"
	AccessAuditor    SpecialAccess = "auditor"
	AccessInspector  SpecialAccess = "inspector"
	AccessContractor SpecialAccess = "contractor"
)

func (a SpecialAccess) IsValid() bool {
	switch a {
	case AccessNone, AccessVIP, AccessAuditor, AccessInspector, AccessContractor:
		return true
	}
	return false
}

// EmergencyContact is who to reach if something happens to the visitor on site.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Visitor is one visit record.
type Visitor struct {
	ID            id.VisitorID     `json:"id"`
	SiteID        id.SiteID        `json:"site_id"`
	AccessPointID id.AccessPointID `json:"access_point_id"`

	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company"`
	Purpose  string `json:"purpose"`

	BadgeNumber string `json:"badge_number"`
	QRPayload   string `json:"qr_payload"`

	Status           Status           `json:"status"`
	SpecialAccess    SpecialAccess    `json:"special_access"`
	EmergencyContact EmergencyContact `json:"emergency_contact"`

	// ExpectedDurationHours is the declared visit length; the overstay
	// threshold is CheckInTime + ExpectedDurationHours.
	ExpectedDurationHours float64 `json:"expected_duration_hours"`

	CheckInTime   time.Time  `json:"check_in_time"`
	CheckOutTime  *time.Time `json:"check_out_time,omitempty"`
	CheckOutNotes string     `json:"check_out_notes,omitempty"`

	CheckedInBy  id.UserID `json:"checked_in_by,omitempty"`
	CheckedOutBy id.UserID `json:"checked_out_by,omitempty"`
}

// CanCheckOut enforces the transition rule: check-out is only legal from
// checked_in or overstayed.
func (v *Visitor) CanCheckOut() error {
	if !v.Status.OnSite() {
		return sentinel.ErrInvalidState
	}
	return nil
}

// ApplyCheckOut transitions to checked_out. Callers validate first.
func (v *Visitor) ApplyCheckOut(at time.Time, actor id.UserID, notes string) {
	v.Status = StatusCheckedOut
	v.CheckOutTime = &at
	v.CheckOutNotes = notes
	v.CheckedOutBy = actor
}

// CanMarkOverstayed enforces that only checked_in visitors past their
// expected duration transition to overstayed. An already-overstayed visitor
// is not an error at this level; stores treat it as a no-op so sweeps stay
// idempotent.
func (v *Visitor) CanMarkOverstayed(now time.Time) error {
	if v.Status != StatusCheckedIn {
		return sentinel.ErrInvalidState
	}
	if !v.OverdueAt(now) {
		return sentinel.ErrInvalidState
	}
	return nil
}

// ApplyOverstay transitions to overstayed. Occupancy is untouched: the
// visitor is still physically present.
func (v *Visitor) ApplyOverstay() {
	v.Status = StatusOverstayed
}

// OverdueAt reports whether the visitor's elapsed on-site time exceeds the
// declared expected duration. Zero or negative declared durations never
// become overdue.
func (v *Visitor) OverdueAt(now time.Time) bool {
	if v.ExpectedDurationHours <= 0 || v.CheckInTime.IsZero() {
		return false
	}
	deadline := v.CheckInTime.Add(time.Duration(v.ExpectedDurationHours * float64(time.Hour)))
	return now.After(deadline)
}

// AccessPoint is a physical entry/exit point belonging to exactly one site.
// CurrentOccupancy is owned exclusively by the occupancy tracker's update
// path; nothing else writes it.
type AccessPoint struct {
	ID               id.AccessPointID `json:"id"`
	SiteID           id.SiteID        `json:"site_id"`
	Name             string           `json:"name"`
	Capacity         int              `json:"capacity"`
	CurrentOccupancy int              `json:"current_occupancy"`
	CreatedAt        time.Time        `json:"created_at"`
}

// CheckInInput carries the fields a check-in request must supply.
type CheckInInput struct {
	SiteID        id.SiteID
	AccessPointID id.AccessPointID

	FullName string
	Email    string
	Phone    string
	Company  string
	Purpose  string

	SpecialAccess         SpecialAccess
	EmergencyContact      EmergencyContact
	ExpectedDurationHours float64
}

// Validate rejects missing required fields with per-field detail.
func (in *CheckInInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(in.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(in.Purpose) == "" {
		missing = append(missing, "purpose")
	}
	if len(missing) > 0 {
		return dErrors.Newf(dErrors.CodeValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if in.SiteID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "site_id is required")
	}
	if in.AccessPointID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "access_point_id is required")
	}
	if in.SpecialAccess == "" {
		in.SpecialAccess = AccessNone
	}
	if !in.SpecialAccess.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown special access tier %q", in.SpecialAccess)
	}
	return nil
}
