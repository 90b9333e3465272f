package visitor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
)

func newVisitor(siteID id.SiteID, apID id.AccessPointID, badge string, checkIn time.Time) *models.Visitor {
	return &models.Visitor{
		ID:                    id.NewVisitorID(),
		SiteID:                siteID,
		AccessPointID:         apID,
		FullName:              "Dana Osei",
		Email:                 "dana@example.com",
		Company:               "Acme Logistics",
		Purpose:               "delivery",
		BadgeNumber:           badge,
		Status:                models.StatusCheckedIn,
		SpecialAccess:         models.AccessNone,
		ExpectedDurationHours: 2,
		CheckInTime:           checkIn,
	}
}

func TestCreateCheckedInDuplicateBadge(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	siteID := id.SiteID(uuid.New())
	apID := id.AccessPointID(uuid.New())
	now := time.Now().UTC()

	require.NoError(t, store.CreateCheckedIn(ctx, newVisitor(siteID, apID, "V123456001", now)))

	err := store.CreateCheckedIn(ctx, newVisitor(siteID, apID, "V123456001", now))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	// Badge comparison is case-insensitive.
	err = store.CreateCheckedIn(ctx, newVisitor(siteID, apID, "v123456001", now))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestCompleteCheckOut(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	siteID := id.SiteID(uuid.New())
	apID := id.AccessPointID(uuid.New())
	now := time.Now().UTC()
	actor := id.UserID(uuid.New())

	v := newVisitor(siteID, apID, "V123456001", now)
	require.NoError(t, store.CreateCheckedIn(ctx, v))

	out, err := store.CompleteCheckOut(ctx, v.ID, now.Add(time.Hour), actor, "done")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, out.Status)
	assert.Equal(t, actor, out.CheckedOutBy)

	// A second check-out is an invalid transition, not a silent success.
	_, err = store.CompleteCheckOut(ctx, v.ID, now.Add(2*time.Hour), actor, "")
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestCompleteCheckOutFromOverstayed(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now().UTC()

	v := newVisitor(id.SiteID(uuid.New()), id.AccessPointID(uuid.New()), "V123456002", now.Add(-3*time.Hour))
	require.NoError(t, store.CreateCheckedIn(ctx, v))

	_, changed, err := store.MarkOverstayed(ctx, v.ID, now)
	require.NoError(t, err)
	require.True(t, changed)

	out, err := store.CompleteCheckOut(ctx, v.ID, now, id.UserID{}, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, out.Status)
}

func TestCompleteCheckOutUnknownVisitor(t *testing.T) {
	store := NewInMemory()
	_, err := store.CompleteCheckOut(context.Background(), id.NewVisitorID(), time.Now(), id.UserID{}, "")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMarkOverstayedIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now().UTC()

	v := newVisitor(id.SiteID(uuid.New()), id.AccessPointID(uuid.New()), "V123456003", now.Add(-3*time.Hour))
	require.NoError(t, store.CreateCheckedIn(ctx, v))

	_, changed, err := store.MarkOverstayed(ctx, v.ID, now)
	require.NoError(t, err)
	assert.True(t, changed)

	out, changed, err := store.MarkOverstayed(ctx, v.ID, now)
	require.NoError(t, err)
	assert.False(t, changed, "second sweep sees the visitor already overstayed")
	assert.Equal(t, models.StatusOverstayed, out.Status)
}

func TestMarkOverstayedNotYetOverdue(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now().UTC()

	v := newVisitor(id.SiteID(uuid.New()), id.AccessPointID(uuid.New()), "V123456004", now)
	require.NoError(t, store.CreateCheckedIn(ctx, v))

	_, _, err := store.MarkOverstayed(ctx, v.ID, now.Add(time.Hour))
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	siteA := id.SiteID(uuid.New())
	siteB := id.SiteID(uuid.New())
	apA := id.AccessPointID(uuid.New())
	now := time.Now().UTC()

	older := newVisitor(siteA, apA, "V000000001", now.Add(-2*time.Hour))
	newer := newVisitor(siteA, apA, "V000000002", now.Add(-time.Hour))
	other := newVisitor(siteB, id.AccessPointID(uuid.New()), "V000000003", now)
	for _, v := range []*models.Visitor{older, newer, other} {
		require.NoError(t, store.CreateCheckedIn(ctx, v))
	}

	got, err := store.List(ctx, Filter{SiteID: siteA})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID, "newest check-in first")
	assert.Equal(t, older.ID, got[1].ID)

	got, err = store.List(ctx, Filter{Statuses: []models.Status{models.StatusCheckedOut}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListOverdueExcludesAlreadyOverstayed(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now().UTC()
	siteID := id.SiteID(uuid.New())
	apID := id.AccessPointID(uuid.New())

	overdue := newVisitor(siteID, apID, "V000000010", now.Add(-3*time.Hour))
	fresh := newVisitor(siteID, apID, "V000000011", now.Add(-time.Hour))
	flagged := newVisitor(siteID, apID, "V000000012", now.Add(-4*time.Hour))
	for _, v := range []*models.Visitor{overdue, fresh, flagged} {
		require.NoError(t, store.CreateCheckedIn(ctx, v))
	}
	_, _, err := store.MarkOverstayed(ctx, flagged.ID, now)
	require.NoError(t, err)

	got, err := store.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)
}

func TestCountOnSite(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Now().UTC()
	siteID := id.SiteID(uuid.New())
	apID := id.AccessPointID(uuid.New())

	in := newVisitor(siteID, apID, "V000000020", now.Add(-3*time.Hour))
	out := newVisitor(siteID, apID, "V000000021", now.Add(-2*time.Hour))
	over := newVisitor(siteID, apID, "V000000022", now.Add(-4*time.Hour))
	for _, v := range []*models.Visitor{in, out, over} {
		require.NoError(t, store.CreateCheckedIn(ctx, v))
	}
	_, err := store.CompleteCheckOut(ctx, out.ID, now, id.UserID{}, "")
	require.NoError(t, err)
	_, _, err = store.MarkOverstayed(ctx, over.ID, now)
	require.NoError(t, err)

	n, err := store.CountOnSite(ctx, apID)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "checked_in and overstayed both count; checked_out does not")
}
