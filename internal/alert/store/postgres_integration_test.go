//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/alert/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	store := NewPostgres(pc.DB)

	siteID := id.SiteID(uuid.New())
	newAlert := func() *models.Alert {
		return &models.Alert{
			ID:        id.NewAlertID(),
			Severity:  models.SeverityWarning,
			Status:    models.StatusUnread,
			Title:     "Visitor overstay",
			Message:   "Dana Osei exceeded the expected duration",
			SiteID:    siteID,
			Audience:  models.Audience{Roles: []string{"admin", "security"}},
			CreatedAt: time.Now().UTC(),
		}
	}

	truncate := func(t *testing.T) {
		t.Helper()
		require.NoError(t, pc.TruncateTables(ctx, "alerts"))
	}

	t.Run("round trip with receipts", func(t *testing.T) {
		truncate(t)
		a := newAlert()
		require.NoError(t, store.Create(ctx, a))

		user := id.UserID(uuid.New())
		updated, err := store.Update(ctx, a.ID, func(a *models.Alert) error {
			a.RecordRead(user, time.Now().UTC())
			a.RecordAck(user, time.Now().UTC(), "on it")
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusAcknowledged, updated.Status)

		got, err := store.Get(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, got.Reads, 1)
		require.Len(t, got.Acks, 1)
		assert.Equal(t, user, got.Acks[0].UserID)
		assert.Equal(t, "on it", got.Acks[0].Note)
		assert.Equal(t, []string{"admin", "security"}, got.Audience.Roles)
	})

	t.Run("concurrent receipts never lose entries", func(t *testing.T) {
		truncate(t)
		a := newAlert()
		require.NoError(t, store.Create(ctx, a))

		const readers = 8
		var wg sync.WaitGroup
		for range readers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				user := id.UserID(uuid.New())
				_, err := store.Update(ctx, a.ID, func(a *models.Alert) error {
					a.RecordRead(user, time.Now().UTC())
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := store.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, got.Reads, readers, "row lock serializes receipt appends")
	})

	t.Run("unknown alert", func(t *testing.T) {
		truncate(t)
		_, err := store.Get(ctx, id.NewAlertID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		_, err = store.Update(ctx, id.NewAlertID(), func(*models.Alert) error { return nil })
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list filters by site and severity", func(t *testing.T) {
		truncate(t)
		mine := newAlert()
		require.NoError(t, store.Create(ctx, mine))

		other := newAlert()
		other.ID = id.NewAlertID()
		other.SiteID = id.SiteID(uuid.New())
		other.Severity = models.SeverityCritical
		require.NoError(t, store.Create(ctx, other))

		got, err := store.List(ctx, models.Filter{SiteID: siteID})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, mine.ID, got[0].ID)

		got, err = store.List(ctx, models.Filter{Severities: []models.Severity{models.SeverityCritical}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, other.ID, got[0].ID)
	})
}
