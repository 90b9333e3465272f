//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/screening/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/platform/sentinel"
	"gatehouse/pkg/testutil/containers"
)

func TestPostgresStore_Integration(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	store := NewPostgres(pc.DB)

	newEntry := func(mutate func(*models.BannedEntry)) *models.BannedEntry {
		e := &models.BannedEntry{
			ID:        id.NewBannedEntryID(),
			FullName:  "John Smith",
			Email:     "john.smith@example.com",
			Company:   "Rival Corp",
			Reason:    "prior incident",
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}
		if mutate != nil {
			mutate(e)
		}
		return e
	}

	truncate := func(t *testing.T) {
		t.Helper()
		require.NoError(t, pc.TruncateTables(ctx, "banned_entries"))
	}

	t.Run("partial case-insensitive name match", func(t *testing.T) {
		truncate(t)
		e := newEntry(nil)
		require.NoError(t, store.Create(ctx, e))

		got, err := store.FindMatch(ctx, "dr. JOHN SMITH jr.", "", "", time.Now().UTC())
		require.NoError(t, err)
		assert.Equal(t, e.ID, got.ID)

		_, err = store.FindMatch(ctx, "Jane Doe", "", "", time.Now().UTC())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("email matches exactly after trim and fold", func(t *testing.T) {
		truncate(t)
		e := newEntry(nil)
		require.NoError(t, store.Create(ctx, e))

		_, err := store.FindMatch(ctx, "", "  JOHN.SMITH@example.com  ", "", time.Now().UTC())
		require.NoError(t, err)

		// Substrings of the address are not a match.
		_, err = store.FindMatch(ctx, "", "john.smith@example.co", "", time.Now().UTC())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("company partial match", func(t *testing.T) {
		truncate(t)
		require.NoError(t, store.Create(ctx, newEntry(nil)))

		_, err := store.FindMatch(ctx, "", "", "rival corp international", time.Now().UTC())
		require.NoError(t, err)
	})

	t.Run("blank fields never match", func(t *testing.T) {
		truncate(t)
		require.NoError(t, store.Create(ctx, newEntry(func(e *models.BannedEntry) {
			e.FullName = ""
			e.Email = ""
			e.Company = "Rival Corp"
		})))

		_, err := store.FindMatch(ctx, "", "", "", time.Now().UTC())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("expired and deactivated entries stop matching", func(t *testing.T) {
		truncate(t)
		past := time.Now().UTC().Add(-time.Hour)
		require.NoError(t, store.Create(ctx, newEntry(func(e *models.BannedEntry) {
			e.ExpiresAt = &past
		})))

		_, err := store.FindMatch(ctx, "John Smith", "", "", time.Now().UTC())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		active := newEntry(func(e *models.BannedEntry) { e.Email = "other@example.com" })
		require.NoError(t, store.Create(ctx, active))
		require.NoError(t, store.Deactivate(ctx, active.ID))

		_, err = store.FindMatch(ctx, "John Smith", "", "", time.Now().UTC())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("deactivate unknown entry", func(t *testing.T) {
		truncate(t)
		assert.ErrorIs(t, store.Deactivate(ctx, id.NewBannedEntryID()), sentinel.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		truncate(t)
		older := newEntry(func(e *models.BannedEntry) { e.CreatedAt = time.Now().UTC().Add(-time.Hour) })
		newer := newEntry(func(e *models.BannedEntry) { e.Email = "other@example.com" })
		require.NoError(t, store.Create(ctx, older))
		require.NoError(t, store.Create(ctx, newer))

		entries, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, newer.ID, entries[0].ID)
	})
}
