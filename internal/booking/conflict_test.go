package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportlink/backend/internal/db/store"
	"github.com/sportlink/backend/internal/testutil"
)

func TestCheckOverlap(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Ivy")
	courtID := testutil.SeedCourt(t, database, "Court A")
	ctx := context.Background()

	existing := seedBooking(t, database, userID, courtID, baseTime, baseTime.Add(time.Hour))

	checker := NewConflictChecker()

	cases := []struct {
		name     string
		start    time.Time
		end      time.Time
		conflict bool
	}{
		{"identical window", baseTime, baseTime.Add(time.Hour), true},
		{"overlapping tail", baseTime.Add(30 * time.Minute), baseTime.Add(90 * time.Minute), true},
		{"overlapping head", baseTime.Add(-30 * time.Minute), baseTime.Add(30 * time.Minute), true},
		{"containing", baseTime.Add(-time.Hour), baseTime.Add(2 * time.Hour), true},
		{"contained", baseTime.Add(15 * time.Minute), baseTime.Add(45 * time.Minute), true},
		{"adjacent after", baseTime.Add(time.Hour), baseTime.Add(2 * time.Hour), false},
		{"adjacent before", baseTime.Add(-time.Hour), baseTime, false},
		{"disjoint", baseTime.Add(3 * time.Hour), baseTime.Add(4 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := checker.Check(ctx, database.Queries, courtID, tc.start, tc.end, "")
			require.NoError(t, err)
			assert.Equal(t, tc.conflict, result.HasConflict)
			if tc.conflict {
				require.Len(t, result.Conflicts, 1)
				assert.Equal(t, existing, result.Conflicts[0].BookingID)
			}
		})
	}
}

func TestCheckIgnoresExcludedAndDeadBookings(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Jon")
	courtID := testutil.SeedCourt(t, database, "Court B")
	ctx := context.Background()

	own := seedBooking(t, database, userID, courtID, baseTime, baseTime.Add(time.Hour))

	cancelled := seedBooking(t, database, userID, courtID, baseTime, baseTime.Add(time.Hour))
	_, err := database.Queries.CancelBooking(ctx, store.CancelBookingParams{
		ID:          cancelled,
		Reason:      "changed plans",
		CancelledAt: baseTime,
	})
	require.NoError(t, err)

	checker := NewConflictChecker()
	result, err := checker.Check(ctx, database.Queries, courtID, baseTime, baseTime.Add(time.Hour), own)
	require.NoError(t, err)
	assert.False(t, result.HasConflict)
}

func TestCheckOtherCourtDoesNotConflict(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Kim")
	courtA := testutil.SeedCourt(t, database, "Court A")
	courtB := testutil.SeedCourt(t, database, "Court B")

	seedBooking(t, database, userID, courtA, baseTime, baseTime.Add(time.Hour))

	checker := NewConflictChecker()
	result, err := checker.Check(context.Background(), database.Queries, courtB, baseTime, baseTime.Add(time.Hour), "")
	require.NoError(t, err)
	assert.False(t, result.HasConflict)
}

func TestCheckBlockedSlot(t *testing.T) {
	database := testutil.NewTestDB(t)
	courtID := testutil.SeedCourt(t, database, "Court C")
	ctx := context.Background()

	_, err := database.Queries.CreateAvailabilitySlot(ctx, store.CreateAvailabilitySlotParams{
		CourtID:   courtID,
		StartTime: baseTime,
		EndTime:   baseTime.Add(2 * time.Hour),
		Status:    "blocked",
	})
	require.NoError(t, err)

	checker := NewConflictChecker()

	result, err := checker.Check(ctx, database.Queries, courtID, baseTime.Add(time.Hour), baseTime.Add(3*time.Hour), "")
	require.NoError(t, err)
	assert.True(t, result.HasConflict)
	assert.Empty(t, result.Conflicts)
	require.Len(t, result.Blocked, 1)

	// Adjacency to a blocked window is fine.
	result, err = checker.Check(ctx, database.Queries, courtID, baseTime.Add(2*time.Hour), baseTime.Add(3*time.Hour), "")
	require.NoError(t, err)
	assert.False(t, result.HasConflict)
}
