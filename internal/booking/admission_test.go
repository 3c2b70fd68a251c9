package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportlink/backend/internal/config"
	"github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
	"github.com/sportlink/backend/internal/matching"
	"github.com/sportlink/backend/internal/testutil"
)

var testBookingCfg = config.BookingConfig{CancellationLeadTime: 2 * time.Hour}

type engineFixture struct {
	db      *db.DB
	engine  *Engine
	userID  string
	courtID string
}

func newEngineFixture(t *testing.T, features map[string]bool, matcher OpponentMatcher) *engineFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Player")
	courtID := testutil.SeedCourt(t, database, "Center Court")
	planID := testutil.SeedPlan(t, database, "Standard", testutil.PlanOpts{Features: features})
	testutil.SeedSubscription(t, database, userID, planID, baseTime)
	testutil.SeedTariff(t, database, courtID, "12.50")

	return &engineFixture{
		db:      database,
		engine:  NewEngine(database, testBookingCfg, staticClock{baseTime}, matcher),
		userID:  userID,
		courtID: courtID,
	}
}

func (f *engineFixture) createRequest(start, end time.Time) CreateRequest {
	return CreateRequest{
		UserID:          f.userID,
		CourtID:         f.courtID,
		StartTime:       start,
		EndTime:         end,
		NumberOfPlayers: 2,
		PaymentMethod:   "card",
	}
}

func TestCreateBooking(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	start := baseTime.Add(24 * time.Hour)
	result, err := f.engine.Create(ctx, f.createRequest(start, start.Add(2*time.Hour)))
	require.NoError(t, err)

	b := result.Booking
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, "25.00", b.TotalPrice)
	assert.Equal(t, f.userID, b.UserID)

	snap, err := UnmarshalTariffSnapshot(b.TariffSnapshot)
	require.NoError(t, err)
	assert.Equal(t, "12.50", snap.BasePrice)
	assert.Equal(t, PricePerHour, snap.PriceType)

	// The booked window is held in the availability table.
	slots, err := f.db.Queries.ListSlotsForWindow(ctx, store.ListSlotsForWindowParams{
		CourtID:   f.courtID,
		EndTime:   start.Add(2 * time.Hour),
		StartTime: start,
	})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "booked", slots[0].Status)
	assert.Equal(t, b.ID, slots[0].BookingID.String)
}

func TestCreateSlotConflict(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	start := baseTime.Add(24 * time.Hour)
	_, err := f.engine.Create(ctx, f.createRequest(start, start.Add(time.Hour)))
	require.NoError(t, err)

	_, err = f.engine.Create(ctx, f.createRequest(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindSlotConflict, ae.Kind)
	require.Len(t, ae.Conflicts, 1)

	// Back to back is allowed.
	_, err = f.engine.Create(ctx, f.createRequest(start.Add(time.Hour), start.Add(2*time.Hour)))
	require.NoError(t, err)
}

func TestCreateQuotaRefused(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "NoSub")
	courtID := testutil.SeedCourt(t, database, "Court X")
	engine := NewEngine(database, testBookingCfg, staticClock{baseTime}, nil)

	start := baseTime.Add(24 * time.Hour)
	_, err := engine.Create(context.Background(), CreateRequest{
		UserID:          userID,
		CourtID:         courtID,
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		NumberOfPlayers: 2,
	})
	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindQuotaExceeded, ae.Kind)
	require.NotNil(t, ae.Validation)
	require.Len(t, ae.Validation.Errors, 1)
	assert.Equal(t, CodeNoSubscription, ae.Validation.Errors[0].Code)
}

func TestCreateFeatureGates(t *testing.T) {
	start := baseTime.Add(24 * time.Hour)

	t.Run("opponent matching not in plan", func(t *testing.T) {
		f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
		req := f.createRequest(start, start.Add(time.Hour))
		req.FindOpponents = true
		req.OpponentsNeeded = 1

		_, err := f.engine.Create(context.Background(), req)
		ae, ok := AsAdmissionError(err)
		require.True(t, ok)
		assert.Equal(t, KindFeatureNotAvailable, ae.Kind)
	})

	t.Run("equipment rental not in plan", func(t *testing.T) {
		f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
		req := f.createRequest(start, start.Add(time.Hour))
		req.EquipmentNeeded = true
		req.EquipmentDetails = map[string]int64{"racket": 2}

		_, err := f.engine.Create(context.Background(), req)
		ae, ok := AsAdmissionError(err)
		require.True(t, ok)
		assert.Equal(t, KindFeatureNotAvailable, ae.Kind)
	})

	t.Run("equipment quantities must be positive", func(t *testing.T) {
		f := newEngineFixture(t, map[string]bool{"court_booking": true, "equipment_rental": true}, nil)
		req := f.createRequest(start, start.Add(time.Hour))
		req.EquipmentNeeded = true
		req.EquipmentDetails = map[string]int64{"racket": 0}

		_, err := f.engine.Create(context.Background(), req)
		ae, ok := AsAdmissionError(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidEquipmentRequest, ae.Kind)

		req.EquipmentDetails = nil
		_, err = f.engine.Create(context.Background(), req)
		ae, ok = AsAdmissionError(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidEquipmentRequest, ae.Kind)
	})
}

func TestCreateRejectsBadWindows(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	_, err := f.engine.Create(ctx, f.createRequest(baseTime.Add(time.Hour), baseTime.Add(time.Hour)))
	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidDuration, ae.Kind)

	_, err = f.engine.Create(ctx, f.createRequest(baseTime.Add(-2*time.Hour), baseTime.Add(-time.Hour)))
	ae, ok = AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidDuration, ae.Kind)
}

func TestPriceSnapshotImmutable(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	start := baseTime.Add(24 * time.Hour)
	result, err := f.engine.Create(ctx, f.createRequest(start, start.Add(time.Hour)))
	require.NoError(t, err)

	// A new tariff added later never rewrites an admitted booking's price.
	testutil.SeedTariff(t, f.db, f.courtID, "99.00")

	reloaded, err := f.db.Queries.GetBookingByID(ctx, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Booking.TotalPrice, reloaded.TotalPrice)
	assert.Equal(t, result.Booking.TariffSnapshot, reloaded.TariffSnapshot)
}

func TestCancelLeadTime(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	// Starts 2h01m out: cancellable with a 2h lead time.
	farStart := baseTime.Add(2*time.Hour + time.Minute)
	far, err := f.engine.Create(ctx, f.createRequest(farStart, farStart.Add(time.Hour)))
	require.NoError(t, err)

	cancelled, err := f.engine.Cancel(ctx, far.Booking.ID, f.userID, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "changed plans", cancelled.CancellationReason)
	assert.True(t, cancelled.CancelledAt.Valid)

	// The slot is released for someone else.
	slots, err := f.db.Queries.ListSlotsForWindow(ctx, store.ListSlotsForWindowParams{
		CourtID:   f.courtID,
		EndTime:   farStart.Add(time.Hour),
		StartTime: farStart,
	})
	require.NoError(t, err)
	assert.Empty(t, slots)

	// Starts 1h59m out: too late.
	nearStart := baseTime.Add(2*time.Hour - time.Minute)
	near, err := f.engine.Create(ctx, f.createRequest(nearStart, nearStart.Add(time.Hour)))
	require.NoError(t, err)

	_, err = f.engine.Cancel(ctx, near.Booking.ID, f.userID, "too late")
	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindCannotCancel, ae.Kind)
}

func TestCreatePaymentMethod(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()
	start := baseTime.Add(24 * time.Hour)

	// An omitted method books as cash.
	req := f.createRequest(start, start.Add(time.Hour))
	req.PaymentMethod = ""
	result, err := f.engine.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, PaymentCash, result.Booking.PaymentMethod)

	req = f.createRequest(start.Add(2*time.Hour), start.Add(3*time.Hour))
	req.PaymentMethod = "barter"
	_, err = f.engine.Create(ctx, req)
	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidPaymentMethod, ae.Kind)
}

func TestCancelAtExactLeadTimeBoundary(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	start := baseTime.Add(2 * time.Hour)
	result, err := f.engine.Create(ctx, f.createRequest(start, start.Add(time.Hour)))
	require.NoError(t, err)

	// now + lead == start: the window is already closed.
	_, err = f.engine.Cancel(ctx, result.Booking.ID, f.userID, "at the wire")
	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindCannotCancel, ae.Kind)
}

func TestCheckConflictExclude(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	start := baseTime.Add(24 * time.Hour)
	result, err := f.engine.Create(ctx, f.createRequest(start, start.Add(time.Hour)))
	require.NoError(t, err)

	check, err := f.engine.CheckConflict(ctx, f.courtID, start, start.Add(time.Hour), "")
	require.NoError(t, err)
	assert.True(t, check.HasConflict)

	// A booking probing its own window for a reschedule sees it free.
	check, err = f.engine.CheckConflict(ctx, f.courtID, start, start.Add(time.Hour), result.Booking.ID)
	require.NoError(t, err)
	assert.False(t, check.HasConflict)
}

func TestCancelWrongUser(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	start := baseTime.Add(24 * time.Hour)
	result, err := f.engine.Create(ctx, f.createRequest(start, start.Add(time.Hour)))
	require.NoError(t, err)

	other := testutil.SeedUser(t, f.db, "Other")
	_, err = f.engine.Cancel(ctx, result.Booking.ID, other, "not mine")
	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindReservationNotFound, ae.Kind)
}

func TestCancelCascadesMatches(t *testing.T) {
	database := testutil.NewTestDB(t)
	courtID := testutil.SeedCourt(t, database, "Match Court")
	planID := testutil.SeedPlan(t, database, "Pro", testutil.PlanOpts{
		Features: map[string]bool{"court_booking": true, "opponent_matching": true},
	})

	seeker := testutil.SeedUser(t, database, "Seeker")
	opponent := testutil.SeedUser(t, database, "Opponent")
	testutil.SeedSubscription(t, database, seeker, planID, baseTime)
	testutil.SeedSubscription(t, database, opponent, planID, baseTime)

	matcher := matching.NewEngine(database)
	engine := NewEngine(database, testBookingCfg, staticClock{baseTime}, matcher)
	ctx := context.Background()

	// Matching needs two bookings sharing the exact window, which admission
	// would refuse as a slot conflict, so both are seeded at the store layer.
	start := baseTime.Add(24 * time.Hour)
	opponentBooking := seedBooking(t, database, opponent, courtID, start, start.Add(time.Hour))
	seekerBooking := seedBooking(t, database, seeker, courtID, start, start.Add(time.Hour))

	markSeeking(t, database, seekerBooking, 1)
	markSeeking(t, database, opponentBooking, 1)

	result, err := matcher.TryMatch(ctx, seekerBooking)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)

	cancelledBooking, err := engine.Cancel(ctx, seekerBooking, seeker, "injury")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelledBooking.Status)

	matches, err := database.Queries.ListMatchesForBooking(ctx, seekerBooking)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, matching.StatusCancelled, matches[0].Status)

	// Cross participant links are gone.
	participants, err := database.Queries.ListBookingParticipants(ctx, opponentBooking)
	require.NoError(t, err)
	assert.Empty(t, participants)
}

func TestConfirmAndComplete(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)
	ctx := context.Background()

	start := baseTime.Add(24 * time.Hour)
	result, err := f.engine.Create(ctx, f.createRequest(start, start.Add(time.Hour)))
	require.NoError(t, err)
	id := result.Booking.ID

	// Cannot complete a pending booking.
	_, err = f.engine.Complete(ctx, id)
	ae, ok := AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidTransition, ae.Kind)

	confirmed, err := f.engine.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	// Confirming twice fails.
	_, err = f.engine.Confirm(ctx, id)
	ae, ok = AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidTransition, ae.Kind)

	completed, err := f.engine.Complete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	_, err = f.engine.Confirm(ctx, "no-such-booking")
	ae, ok = AsAdmissionError(err)
	require.True(t, ok)
	assert.Equal(t, KindReservationNotFound, ae.Kind)
}

func TestConcurrentAdmissionSingleWinner(t *testing.T) {
	f := newEngineFixture(t, map[string]bool{"court_booking": true}, nil)

	start := baseTime.Add(24 * time.Hour)
	const attempts = 4

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Create(context.Background(), f.createRequest(start, start.Add(time.Hour)))
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		ae, ok := AsAdmissionError(err)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, KindSlotConflict, ae.Kind)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func markSeeking(t *testing.T, database *db.DB, bookingID string, needed int64) {
	t.Helper()
	_, err := database.ExecContext(context.Background(),
		"UPDATE bookings SET find_opponents = 1, opponents_needed = ? WHERE id = ?", needed, bookingID)
	require.NoError(t, err)
}
