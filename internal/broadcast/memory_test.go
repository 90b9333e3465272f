package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "gatehouse/pkg/domain"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q", ev.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesOnlySiteRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	siteA := id.SiteID(uuid.New())
	siteB := id.SiteID(uuid.New())

	chA, err := m.Join(ctx, "conn-a", siteA)
	require.NoError(t, err)
	chB, err := m.Join(ctx, "conn-b", siteB)
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, siteA, "visitor_checked_in", map[string]string{"fullName": "Dana"}))

	ev := recvEvent(t, chA)
	assert.Equal(t, "visitor_checked_in", ev.Name)
	assert.Equal(t, siteA, ev.SiteID)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "Dana", payload["fullName"])

	assertNoEvent(t, chB)
}

func TestPublishGlobalReachesEveryRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	chA, err := m.Join(ctx, "conn-a", id.SiteID(uuid.New()))
	require.NoError(t, err)
	chB, err := m.Join(ctx, "conn-b", id.SiteID(uuid.New()))
	require.NoError(t, err)

	require.NoError(t, m.PublishGlobal(ctx, "emergency_alert", map[string]string{"type": "fire"}))

	assert.Equal(t, "emergency_alert", recvEvent(t, chA).Name)
	assert.Equal(t, "emergency_alert", recvEvent(t, chB).Name)
}

func TestRoomMembersSeeSameOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	siteID := id.SiteID(uuid.New())
	ch1, err := m.Join(ctx, "conn-1", siteID)
	require.NoError(t, err)
	ch2, err := m.Join(ctx, "conn-2", siteID)
	require.NoError(t, err)

	const n = 10
	for i := range n {
		require.NoError(t, m.Publish(ctx, siteID, fmt.Sprintf("event-%d", i), nil))
	}

	for _, ch := range []<-chan Event{ch1, ch2} {
		for i := range n {
			assert.Equal(t, fmt.Sprintf("event-%d", i), recvEvent(t, ch).Name)
		}
	}
}

func TestSlowConnectionDropsInsteadOfBlocking(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	siteID := id.SiteID(uuid.New())
	ch, err := m.Join(ctx, "slow-conn", siteID)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody reads ch; once the buffer fills, publishes must still return.
		for i := 0; i < connBuffer+10; i++ {
			_ = m.Publish(ctx, siteID, "flood", nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow connection")
	}
	assert.Len(t, ch, connBuffer, "buffer holds its capacity; the rest were dropped")
}

func TestLeaveClosesChannel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	siteID := id.SiteID(uuid.New())
	ch, err := m.Join(ctx, "conn", siteID)
	require.NoError(t, err)

	m.Leave("conn", siteID)

	_, open := <-ch
	assert.False(t, open)

	// Publishing to the now-empty room is still fine.
	assert.NoError(t, m.Publish(ctx, siteID, "after_leave", nil))
}

func TestCloseRefusesFurtherUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ch, err := m.Join(ctx, "conn", id.SiteID(uuid.New()))
	require.NoError(t, err)
	require.NoError(t, m.Close())

	_, open := <-ch
	assert.False(t, open)

	_, err = m.Join(ctx, "conn-2", id.SiteID(uuid.New()))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Publish(ctx, id.SiteID(uuid.New()), "x", nil), ErrClosed)
}
