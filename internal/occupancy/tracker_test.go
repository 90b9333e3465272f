package occupancy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/visitor/models"
	accesspointstore "gatehouse/internal/visitor/store/accesspoint"
	id "gatehouse/pkg/domain"
)

// countStub returns fixed on-site counts per access point.
type countStub map[id.AccessPointID]int

func (c countStub) CountOnSite(ctx context.Context, apID id.AccessPointID) (int, error) {
	return c[apID], nil
}

func seed(t *testing.T, store *accesspointstore.InMemory, siteID id.SiteID, name string, occupancy int) *models.AccessPoint {
	t.Helper()
	ap := &models.AccessPoint{
		ID:               id.AccessPointID(uuid.New()),
		SiteID:           siteID,
		Name:             name,
		CurrentOccupancy: occupancy,
	}
	require.NoError(t, store.Create(context.Background(), ap))
	return ap
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := accesspointstore.NewInMemory()
	siteID := id.SiteID(uuid.New())
	ap := seed(t, store, siteID, "Main Gate", 0)

	tracker := New(store, countStub{})

	got, err := tracker.Apply(ctx, ap.ID, +1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentOccupancy)
}

func TestSiteOccupancySumsAccessPoints(t *testing.T) {
	ctx := context.Background()
	store := accesspointstore.NewInMemory()
	siteID := id.SiteID(uuid.New())
	seed(t, store, siteID, "North Gate", 3)
	seed(t, store, siteID, "South Gate", 2)
	seed(t, store, id.SiteID(uuid.New()), "Elsewhere", 7)

	tracker := New(store, countStub{})

	total, err := tracker.SiteOccupancy(ctx, siteID)
	require.NoError(t, err)
	assert.Equal(t, 5, total, "other sites do not leak into the sum")
}

func TestReconcileCorrectsDrift(t *testing.T) {
	ctx := context.Background()
	store := accesspointstore.NewInMemory()
	siteID := id.SiteID(uuid.New())
	drifted := seed(t, store, siteID, "Main Gate", 9)
	healthy := seed(t, store, siteID, "Side Gate", 2)

	tracker := New(store, countStub{drifted.ID: 4, healthy.ID: 2})
	require.NoError(t, tracker.Reconcile(ctx))

	got, err := store.Get(ctx, drifted.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentOccupancy, "counter converges to ground truth")

	got, err = store.Get(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentOccupancy)
}
