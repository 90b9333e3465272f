package accesspoint

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

func seedPoint(t *testing.T, store *InMemory) *models.AccessPoint {
	t.Helper()
	ap := &models.AccessPoint{
		ID:     id.AccessPointID(uuid.New()),
		SiteID: id.SiteID(uuid.New()),
		Name:   "Main Gate",
	}
	require.NoError(t, store.Create(context.Background(), ap))
	return ap
}

func TestApplyDelta(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	ap := seedPoint(t, store)

	got, err := store.ApplyDelta(ctx, ap.ID, +1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentOccupancy)

	got, err = store.ApplyDelta(ctx, ap.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentOccupancy)
}

func TestApplyDeltaFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	ap := seedPoint(t, store)

	got, err := store.ApplyDelta(ctx, ap.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentOccupancy, "counter never goes negative")
}

func TestApplyDeltaUnknownPoint(t *testing.T) {
	store := NewInMemory()
	_, err := store.ApplyDelta(context.Background(), id.AccessPointID(uuid.New()), +1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestApplyDeltaConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	ap := seedPoint(t, store)

	const n = 100
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ApplyDelta(ctx, ap.ID, +1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, ap.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.CurrentOccupancy, "no lost increments under contention")
}

func TestListFiltersBySite(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	siteID := id.SiteID(uuid.New())

	require.NoError(t, store.Create(ctx, &models.AccessPoint{
		ID: id.AccessPointID(uuid.New()), SiteID: siteID, Name: "East Gate",
	}))
	require.NoError(t, store.Create(ctx, &models.AccessPoint{
		ID: id.AccessPointID(uuid.New()), SiteID: id.SiteID(uuid.New()), Name: "Other Site Gate",
	}))

	got, err := store.List(ctx, siteID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "East Gate", got[0].Name)

	all, err := store.List(ctx, id.SiteID{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
