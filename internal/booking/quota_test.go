package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
	"github.com/sportlink/backend/internal/testutil"
)

type staticClock struct{ now time.Time }

func (c staticClock) Now() time.Time { return c.now }

// Wednesday 10:00 UTC. The containing calendar week runs Mon 2026-03-02
// through Mon 2026-03-09.
var baseTime = time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

func seedBooking(t *testing.T, database *db.DB, userID, courtID string, start, end time.Time) string {
	t.Helper()
	id := uuid.NewString()
	err := database.Queries.CreateBooking(context.Background(), store.CreateBookingParams{
		ID:              id,
		UserID:          userID,
		CourtID:         courtID,
		StartTime:       start,
		EndTime:         end,
		NumberOfPlayers: 2,
	})
	require.NoError(t, err)
	return id
}

func allCodes(issues []ValidationIssue) []string {
	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}
	return codes
}

func TestEvaluateNoSubscription(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Nora")

	eval := NewQuotaEvaluator(staticClock{baseTime})
	result, err := eval.Evaluate(context.Background(), database.Queries, userID, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeNoSubscription, result.Errors[0].Code)
	assert.Empty(t, result.Warnings)
}

func TestEvaluateFeatureNotAvailable(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Ben")
	planID := testutil.SeedPlan(t, database, "Social", testutil.PlanOpts{
		Features: map[string]bool{"opponent_matching": true},
	})
	testutil.SeedSubscription(t, database, userID, planID, baseTime)

	eval := NewQuotaEvaluator(staticClock{baseTime})
	result, err := eval.Evaluate(context.Background(), database.Queries, userID, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Contains(t, allCodes(result.Errors), CodeFeatureNotAvailable)
}

func TestEvaluateDayRestriction(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Dana")
	planID := testutil.SeedPlan(t, database, "Weekend", testutil.PlanOpts{
		Features:    map[string]bool{"court_booking": true},
		AllowedDays: []int{6, 7},
	})
	testutil.SeedSubscription(t, database, userID, planID, baseTime)

	eval := NewQuotaEvaluator(staticClock{baseTime})

	// Wednesday is not in {Saturday, Sunday}.
	result, err := eval.Evaluate(context.Background(), database.Queries, userID, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Contains(t, allCodes(result.Errors), CodeDayNotAllowed)
	assert.Equal(t, 3, result.DayOfWeek)

	// Saturday passes.
	saturday := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	result, err = eval.Evaluate(context.Background(), database.Queries, userID, saturday, saturday.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 6, result.DayOfWeek)
}

func TestEvaluateDurationLimit(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Elia")
	planID := testutil.SeedPlan(t, database, "Basic", testutil.PlanOpts{
		Features:       map[string]bool{"court_booking": true},
		MaxDurationHrs: 2,
	})
	testutil.SeedSubscription(t, database, userID, planID, baseTime)

	eval := NewQuotaEvaluator(staticClock{baseTime})

	// Exactly at the cap passes; anything over fails.
	result, err := eval.Evaluate(context.Background(), database.Queries, userID, baseTime, baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.InDelta(t, 2.0, result.DurationHours, 1e-9)

	result, err = eval.Evaluate(context.Background(), database.Queries, userID, baseTime, baseTime.Add(2*time.Hour+36*time.Second))
	require.NoError(t, err)
	assert.Contains(t, allCodes(result.Errors), CodeDurationExceeded)
	assert.InDelta(t, 2.01, result.DurationHours, 1e-9)
}

func TestEvaluateWeeklyLimit(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Finn")
	courtID := testutil.SeedCourt(t, database, "Court 1")
	planID := testutil.SeedPlan(t, database, "Standard", testutil.PlanOpts{
		Features:        map[string]bool{"court_booking": true},
		BookingsPerWeek: 2,
	})
	testutil.SeedSubscription(t, database, userID, planID, baseTime)

	eval := NewQuotaEvaluator(staticClock{baseTime})
	ctx := context.Background()

	// One booking this week: the next one is the last, warning only.
	seedBooking(t, database, userID, courtID,
		baseTime.AddDate(0, 0, -1), baseTime.AddDate(0, 0, -1).Add(time.Hour))

	result, err := eval.Evaluate(ctx, database.Queries, userID, baseTime, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, CodeWeeklyLimitNear, result.Warnings[0].Code)

	// Second booking fills the quota.
	seedBooking(t, database, userID, courtID, baseTime, baseTime.Add(time.Hour))

	result, err = eval.Evaluate(ctx, database.Queries, userID,
		baseTime.Add(3*time.Hour), baseTime.Add(4*time.Hour))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, CodeWeeklyLimitReached, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Meta, "next_available_date")

	// A slot in next week's window is unaffected by this week's count.
	nextMonday := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
	result, err = eval.Evaluate(ctx, database.Queries, userID, nextMonday, nextMonday.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestWeeklyInfo(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Gus")
	courtID := testutil.SeedCourt(t, database, "Court 2")
	planID := testutil.SeedPlan(t, database, "Standard", testutil.PlanOpts{
		Features:        map[string]bool{"court_booking": true},
		BookingsPerWeek: 3,
	})
	testutil.SeedSubscription(t, database, userID, planID, baseTime)

	seedBooking(t, database, userID, courtID, baseTime, baseTime.Add(time.Hour))

	eval := NewQuotaEvaluator(staticClock{baseTime})
	info, err := eval.WeeklyInfo(context.Background(), database.Queries, userID, baseTime)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.False(t, info.Unlimited)
	assert.Equal(t, int64(3), info.BookingsPerWeek)
	assert.Equal(t, int64(1), info.CurrentWeekCount)
	assert.Equal(t, int64(2), info.RemainingBookings)
	assert.False(t, info.LimitReached)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), info.WeekStart)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), info.WeekEnd)
}

func TestWeeklyInfoUnlimitedPlan(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Hana")
	planID := testutil.SeedPlan(t, database, "Pro", testutil.PlanOpts{
		Features: map[string]bool{"court_booking": true},
	})
	testutil.SeedSubscription(t, database, userID, planID, baseTime)

	eval := NewQuotaEvaluator(staticClock{baseTime})
	info, err := eval.WeeklyInfo(context.Background(), database.Queries, userID, baseTime)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.Unlimited)
}

func TestISOWeekday(t *testing.T) {
	// 2026-03-02 is a Monday, 2026-03-08 a Sunday.
	assert.Equal(t, 1, isoWeekday(time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 7, isoWeekday(time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC)))
}

func TestCalendarWeek(t *testing.T) {
	start, end := calendarWeek(baseTime)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), end)

	// A Monday booking anchors its own week.
	start, end = calendarWeek(time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), end)
}
