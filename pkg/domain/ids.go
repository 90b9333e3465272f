// Package domain holds typed identifiers shared across features.
//
// Every aggregate gets its own UUID-backed type so the compiler rejects
// cross-type assignment (passing a SiteID where a VisitorID is expected).
// Parse functions enforce the trust-boundary invariant: IDs must be valid,
// non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "gatehouse/pkg/domain-errors"
)

type (
	// VisitorID identifies a single visit record (not a person).
	VisitorID uuid.UUID
	// SiteID identifies a site, the broadcast scoping boundary.
	SiteID uuid.UUID
	// AccessPointID identifies a physical entry/exit point within a site.
	AccessPointID uuid.UUID
	// UserID identifies a staff user (guard, receptionist, admin) acting on
	// the system. Authentication happens upstream; the core only records it.
	UserID uuid.UUID
	// ActivityID identifies an immutable activity record.
	ActivityID uuid.UUID
	// AlertID identifies an alert derived from one or more activities.
	AlertID uuid.UUID
	// BannedEntryID identifies a standing denial record.
	BannedEntryID uuid.UUID
)

func (id VisitorID) String() string     { return uuid.UUID(id).String() }
func (id SiteID) String() string        { return uuid.UUID(id).String() }
func (id AccessPointID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id ActivityID) String() string    { return uuid.UUID(id).String() }
func (id AlertID) String() string       { return uuid.UUID(id).String() }
func (id BannedEntryID) String() string { return uuid.UUID(id).String() }

func (id VisitorID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SiteID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AccessPointID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ActivityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id BannedEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps IDs as canonical UUID strings in JSON and query
// params. Defined types do not inherit uuid.UUID's methods, so each type
// spells it out.

func (id VisitorID) MarshalText() ([]byte, error)     { return marshalID(uuid.UUID(id)) }
func (id SiteID) MarshalText() ([]byte, error)        { return marshalID(uuid.UUID(id)) }
func (id AccessPointID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }
func (id UserID) MarshalText() ([]byte, error)        { return marshalID(uuid.UUID(id)) }
func (id ActivityID) MarshalText() ([]byte, error)    { return marshalID(uuid.UUID(id)) }
func (id AlertID) MarshalText() ([]byte, error)       { return marshalID(uuid.UUID(id)) }
func (id BannedEntryID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }

func (id *VisitorID) UnmarshalText(b []byte) error     { return unmarshalID((*uuid.UUID)(id), b) }
func (id *SiteID) UnmarshalText(b []byte) error        { return unmarshalID((*uuid.UUID)(id), b) }
func (id *AccessPointID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(id), b) }
func (id *UserID) UnmarshalText(b []byte) error        { return unmarshalID((*uuid.UUID)(id), b) }
func (id *ActivityID) UnmarshalText(b []byte) error    { return unmarshalID((*uuid.UUID)(id), b) }
func (id *AlertID) UnmarshalText(b []byte) error       { return unmarshalID((*uuid.UUID)(id), b) }
func (id *BannedEntryID) UnmarshalText(b []byte) error { return unmarshalID((*uuid.UUID)(id), b) }

func marshalID(u uuid.UUID) ([]byte, error) {
	return []byte(u.String()), nil
}

func unmarshalID(dst *uuid.UUID, b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*dst = u
	return nil
}

// parseUUID rejects empty strings, malformed UUIDs, and the nil UUID.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be nil")
	}
	return u, nil
}

func ParseVisitorID(raw string) (VisitorID, error) {
	u, err := parseUUID(raw, "visitor id")
	return VisitorID(u), err
}

func ParseSiteID(raw string) (SiteID, error) {
	u, err := parseUUID(raw, "site id")
	return SiteID(u), err
}

func ParseAccessPointID(raw string) (AccessPointID, error) {
	u, err := parseUUID(raw, "access point id")
	return AccessPointID(u), err
}

func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID(raw, "user id")
	return UserID(u), err
}

func ParseAlertID(raw string) (AlertID, error) {
	u, err := parseUUID(raw, "alert id")
	return AlertID(u), err
}

func ParseBannedEntryID(raw string) (BannedEntryID, error) {
	u, err := parseUUID(raw, "banned entry id")
	return BannedEntryID(u), err
}

// NewVisitorID allocates a fresh visitor ID.
func NewVisitorID() VisitorID { return VisitorID(uuid.New()) }

// NewActivityID allocates a fresh activity ID.
func NewActivityID() ActivityID { return ActivityID(uuid.New()) }

// NewAlertID allocates a fresh alert ID.
func NewAlertID() AlertID { return AlertID(uuid.New()) }

// NewBannedEntryID allocates a fresh banned entry ID.
func NewBannedEntryID() BannedEntryID { return BannedEntryID(uuid.New()) }
