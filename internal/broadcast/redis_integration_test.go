//go:build integration

package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "gatehouse/pkg/domain"
	"gatehouse/pkg/testutil/containers"
)

func recvRedisEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestRedisBroadcaster_Integration(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	t.Run("events reach a second instance", func(t *testing.T) {
		publisher := NewRedis(rc.Client)
		defer publisher.Close()
		subscriber := NewRedis(rc.Client)
		defer subscriber.Close()

		siteID := id.SiteID(uuid.New())
		events, err := subscriber.Join(ctx, "dash-1", siteID)
		require.NoError(t, err)

		// The site subscription is established asynchronously; publish until
		// the first event lands.
		require.Eventually(t, func() bool {
			if err := publisher.Publish(ctx, siteID, "visitor_activity", map[string]string{"k": "v"}); err != nil {
				return false
			}
			select {
			case <-events:
				return true
			default:
				return false
			}
		}, 10*time.Second, 100*time.Millisecond)
	})

	t.Run("site channels do not cross", func(t *testing.T) {
		b := NewRedis(rc.Client)
		defer b.Close()

		siteA := id.SiteID(uuid.New())
		siteB := id.SiteID(uuid.New())
		eventsA, err := b.Join(ctx, "dash-a", siteA)
		require.NoError(t, err)
		eventsB, err := b.Join(ctx, "dash-b", siteB)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			if err := b.Publish(ctx, siteA, "visitor_checked_in", nil); err != nil {
				return false
			}
			select {
			case <-eventsA:
				return true
			default:
				return false
			}
		}, 10*time.Second, 100*time.Millisecond)

		select {
		case ev := <-eventsB:
			t.Fatalf("site B heard site A's event: %s", ev.Name)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("global events reach every room", func(t *testing.T) {
		b := NewRedis(rc.Client)
		defer b.Close()

		events, err := b.Join(ctx, "dash", id.SiteID(uuid.New()))
		require.NoError(t, err)

		// The global subscription starts with the broadcaster, so a short
		// settle is enough.
		time.Sleep(200 * time.Millisecond)
		require.NoError(t, b.PublishGlobal(ctx, "emergency_alert", map[string]string{"type": "fire"}))

		ev := recvRedisEvent(t, events)
		assert.Equal(t, "emergency_alert", ev.Name)
		assert.True(t, ev.SiteID.IsNil())
	})

	t.Run("leave tears down the site subscription", func(t *testing.T) {
		b := NewRedis(rc.Client)
		defer b.Close()

		siteID := id.SiteID(uuid.New())
		_, err := b.Join(ctx, "dash", siteID)
		require.NoError(t, err)
		b.Leave("dash", siteID)

		b.mu.Lock()
		_, stillSubscribed := b.subs[siteID]
		b.mu.Unlock()
		assert.False(t, stillSubscribed)
	})
}
