// Package broadcast fans real-time events out to dashboard connections.
//
// Connections join per-site rooms; an event published to a site reaches
// every member of that room and nobody else. Emergency traffic goes through
// PublishGlobal and reaches every connection regardless of room.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	id "gatehouse/pkg/domain"
)

// ErrClosed is returned by operations on a shut-down broadcaster.
var ErrClosed = errors.New("broadcaster is closed")

// Event is the wire envelope for one real-time notification.
type Event struct {
	Name    string          `json:"event"`
	SiteID  id.SiteID       `json:"site_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// Broadcaster delivers events to joined connections. Delivery is best
// effort: a slow consumer loses events rather than stalling the publisher.
type Broadcaster interface {
	// Join subscribes a connection to a site room. The returned channel is
	// closed on Leave or when the broadcaster shuts down.
	Join(ctx context.Context, connID string, siteID id.SiteID) (<-chan Event, error)
	Leave(connID string, siteID id.SiteID)
	Publish(ctx context.Context, siteID id.SiteID, name string, payload any) error
	PublishGlobal(ctx context.Context, name string, payload any) error
	Close() error
}

func newEvent(siteID id.SiteID, name string, payload any, at time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, SiteID: siteID, Payload: raw, At: at}, nil
}
