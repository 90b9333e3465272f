// Package badge issues human-readable badge numbers and QR payloads.
//
// Badge format: "V" + 6 time-derived digits + 3 random digits. The space is
// small enough that collisions happen; uniqueness lives in the visitor
// store's badge index, and the lifecycle service regenerates on duplicate.
package badge

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	id "gatehouse/pkg/domain"
)

// Badge pairs the printed number with its QR payload.
type Badge struct {
	Number    string `json:"number"`
	QRPayload string `json:"qr_payload"`
}

// Issuer generates badges. The zero value is ready to use; now is
// overridable for tests.
type Issuer struct {
	now func() time.Time
}

// New creates an Issuer using the wall clock.
func New() *Issuer {
	return &Issuer{now: time.Now}
}

// NewAt creates an Issuer with an injected clock.
func NewAt(now func() time.Time) *Issuer {
	return &Issuer{now: now}
}

// Issue generates a badge for the visitor. The QR payload is opaque to this
// system: base64-encoded JSON consumed by the external badge printer.
func (i *Issuer) Issue(visitorID id.VisitorID) (Badge, error) {
	suffix, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return Badge{}, fmt.Errorf("badge random suffix: %w", err)
	}

	number := fmt.Sprintf("V%06d%03d", i.now().Unix()%1_000_000, suffix.Int64())

	payload, err := json.Marshal(struct {
		VisitorID   id.VisitorID `json:"visitor_id"`
		BadgeNumber string       `json:"badge_number"`
	}{VisitorID: visitorID, BadgeNumber: number})
	if err != nil {
		return Badge{}, fmt.Errorf("encode qr payload: %w", err)
	}

	return Badge{
		Number:    number,
		QRPayload: base64.StdEncoding.EncodeToString(payload),
	}, nil
}
