package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/activity/models"
	"gatehouse/internal/activity/store"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/requestcontext"
)

// mirrorSpy captures best-effort mirror publishes.
type mirrorSpy struct {
	mu   sync.Mutex
	keys []string
}

func (m *mirrorSpy) Publish(ctx context.Context, key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
}

func TestRecordAssignsIdentityAndDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	svc := New(store.NewInMemory())

	a, err := svc.Record(ctx, &models.Activity{
		Type:        models.TypeCheckIn,
		Description: "Dana Osei checked in",
		SiteID:      id.SiteID(uuid.New()),
	})
	require.NoError(t, err)
	assert.False(t, a.ID.IsNil())
	assert.Equal(t, now, a.OccurredAt)
	assert.Equal(t, models.PriorityNormal, a.Priority)
}

func TestRecordMirrorsToKafka(t *testing.T) {
	spy := &mirrorSpy{}
	svc := New(store.NewInMemory(), WithMirror(spy))

	a, err := svc.Record(context.Background(), &models.Activity{
		Type:   models.TypeCheckOut,
		SiteID: id.SiteID(uuid.New()),
	})
	require.NoError(t, err)

	spy.mu.Lock()
	defer spy.mu.Unlock()
	require.Len(t, spy.keys, 1)
	assert.Equal(t, a.ID.String(), spy.keys[0], "mirror key is the activity ID")
}

func TestListDefaultsAndCapsLimit(t *testing.T) {
	ctx := context.Background()
	st := store.NewInMemory()
	svc := New(st)
	siteID := id.SiteID(uuid.New())

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := range 60 {
		_, err := svc.Record(requestcontext.WithTime(ctx, base.Add(time.Duration(i)*time.Minute)), &models.Activity{
			Type:   models.TypeCheckIn,
			SiteID: siteID,
		})
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, models.Filter{SiteID: siteID})
	require.NoError(t, err)
	assert.Len(t, got, 50, "default page size")
	assert.True(t, got[0].OccurredAt.After(got[1].OccurredAt), "newest first")

	got, err = svc.List(ctx, models.Filter{SiteID: siteID, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestListFiltersByTypeAndWindow(t *testing.T) {
	ctx := context.Background()
	svc := New(store.NewInMemory())
	siteID := id.SiteID(uuid.New())
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	record := func(typ models.Type, at time.Time) {
		_, err := svc.Record(requestcontext.WithTime(ctx, at), &models.Activity{Type: typ, SiteID: siteID})
		require.NoError(t, err)
	}
	record(models.TypeCheckIn, base)
	record(models.TypeCheckOut, base.Add(time.Hour))
	record(models.TypeOverstay, base.Add(2*time.Hour))

	got, err := svc.List(ctx, models.Filter{Types: []models.Type{models.TypeOverstay}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.TypeOverstay, got[0].Type)

	got, err = svc.List(ctx, models.Filter{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.TypeCheckOut, got[0].Type)
}
