package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	activitymodels "gatehouse/internal/activity/models"
	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	"gatehouse/pkg/requestcontext"
	"gatehouse/pkg/testutil"
)

// Full lifecycle walked end to end against the in-memory deployment.
func TestVisitorLifecycleScenario(t *testing.T) {
	h := newHarness(t)
	var visitorID id.VisitorID

	checkInAt := time.Now().Add(-3 * time.Hour)

	testutil.Given(t, "a visitor checked in three hours ago for a two-hour visit", func(t *testing.T) {
		ctx := requestcontext.WithTime(context.Background(), checkInAt)
		v, err := h.svc.CheckIn(ctx, h.input())
		require.NoError(t, err)
		visitorID = v.ID
		assert.Equal(t, 1, h.occupancy(t))
	})

	testutil.When(t, "the overstay deadline passes and the visitor is flagged", func(t *testing.T) {
		v, err := h.svc.MarkOverstayed(context.Background(), visitorID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOverstayed, v.Status)
	})

	testutil.Then(t, "the visitor is still on site and can check out normally", func(t *testing.T) {
		assert.Equal(t, 1, h.occupancy(t), "flagging does not change occupancy")

		v, err := h.svc.CheckOut(context.Background(), visitorID, "late departure")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCheckedOut, v.Status)
		assert.Equal(t, 0, h.occupancy(t))

		acts := h.listActivities(t)
		var types []activitymodels.Type
		for _, act := range acts {
			types = append(types, act.Type)
		}
		assert.ElementsMatch(t,
			[]activitymodels.Type{activitymodels.TypeCheckIn, activitymodels.TypeOverstay, activitymodels.TypeCheckOut},
			types)
	})
}
