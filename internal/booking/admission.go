package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/config"
	"github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
	"github.com/sportlink/backend/internal/matching"
	"github.com/sportlink/backend/internal/notify"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Payment methods accepted at admission. An omitted method defaults to cash.
const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentOnline = "online"
)

// OpponentMatcher runs a matching pass for one booking. Matching happens
// after the admission transaction commits; its outcome never affects the
// booking itself.
type OpponentMatcher interface {
	TryMatch(ctx context.Context, bookingID string) (*matching.Result, error)
}

// CreateRequest is a proposed booking.
type CreateRequest struct {
	UserID           string
	CourtID          string
	StartTime        time.Time
	EndTime          time.Time
	NumberOfPlayers  int64
	FindOpponents    bool
	OpponentsNeeded  int64
	EquipmentNeeded  bool
	EquipmentDetails map[string]int64
	PaymentMethod    string
}

// CreateResult is an admitted booking plus any quota warnings raised on the
// way in.
type CreateResult struct {
	Booking  store.Booking     `json:"booking"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Engine admits, confirms, cancels, and completes bookings. Admission runs
// quota evaluation, feature gates, conflict checking, and pricing inside a
// single write transaction so two requests for the same window cannot both
// pass the conflict check.
type Engine struct {
	db      *db.DB
	cfg     config.BookingConfig
	clock   Clock
	quota   *QuotaEvaluator
	checker *ConflictChecker
	matcher OpponentMatcher
}

func NewEngine(database *db.DB, cfg config.BookingConfig, clock Clock, matcher OpponentMatcher) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{
		db:      database,
		cfg:     cfg,
		clock:   clock,
		quota:   NewQuotaEvaluator(clock),
		checker: NewConflictChecker(),
		matcher: matcher,
	}
}

// Create admits a booking or returns an *AdmissionError describing why it
// was refused. On success the booking is committed before matching runs, so
// a matching failure can never lose an admitted booking.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	var result CreateResult
	err := e.db.RunInTx(ctx, func(txDB *db.DB) error {
		q := txDB.Queries

		if _, err := q.GetUserByID(ctx, req.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return newError(KindResourceNotFound, "user %s not found", req.UserID)
			}
			return fmt.Errorf("load user: %w", err)
		}

		court, err := q.GetCourtByID(ctx, req.CourtID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return newError(KindResourceNotFound, "court %s not found", req.CourtID)
			}
			return fmt.Errorf("load court: %w", err)
		}
		if !court.IsActive {
			return newError(KindResourceNotFound, "court %s is not available for booking", req.CourtID)
		}

		validation, err := e.quota.Evaluate(ctx, q, req.UserID, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}
		if !validation.Valid {
			return &AdmissionError{
				Kind:       KindQuotaExceeded,
				Message:    validation.Errors[0].Message,
				Validation: validation,
			}
		}
		result.Warnings = validation.Warnings

		if err := e.checkFeatureGates(req, validation.features); err != nil {
			return err
		}

		conflict, err := e.checker.Check(ctx, q, req.CourtID, req.StartTime, req.EndTime, "")
		if err != nil {
			return err
		}
		if conflict.HasConflict {
			return &AdmissionError{
				Kind:      KindSlotConflict,
				Message:   "the requested time slot is not available",
				Conflicts: conflict.Conflicts,
			}
		}

		snapshot, total, admErr, err := resolvePricing(ctx, q, req.CourtID, req.StartTime, req.EndTime, e.clock.Now())
		if err != nil {
			return err
		}
		if admErr != nil {
			return admErr
		}

		bookingID := uuid.NewString()
		if err := q.CreateBooking(ctx, store.CreateBookingParams{
			ID:               bookingID,
			UserID:           req.UserID,
			CourtID:          req.CourtID,
			StartTime:        req.StartTime,
			EndTime:          req.EndTime,
			NumberOfPlayers:  req.NumberOfPlayers,
			FindOpponents:    req.FindOpponents,
			OpponentsNeeded:  req.OpponentsNeeded,
			EquipmentNeeded:  req.EquipmentNeeded,
			EquipmentDetails: marshalEquipment(req.EquipmentDetails),
			TariffSnapshot:   snapshot,
			TotalPrice:       total,
			PaymentMethod:    req.PaymentMethod,
		}); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		if _, err := q.CreateAvailabilitySlot(ctx, store.CreateAvailabilitySlotParams{
			CourtID:   req.CourtID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Status:    "booked",
			BookingID: bookingID,
		}); err != nil {
			return fmt.Errorf("mark slot booked: %w", err)
		}

		result.Booking, err = q.GetBookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("reload booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("component", "booking").
		Str("booking_id", result.Booking.ID).
		Str("user_id", req.UserID).
		Str("court_id", req.CourtID).
		Time("start_time", req.StartTime).
		Str("total_price", result.Booking.TotalPrice).
		Msg("booking admitted")

	if req.FindOpponents && e.matcher != nil {
		e.runMatching(ctx, result.Booking.ID)
	}
	return &result, nil
}

func (e *Engine) validateRequest(req CreateRequest) error {
	if !req.StartTime.Before(req.EndTime) {
		return newError(KindInvalidDuration, "start time must be before end time")
	}
	if req.StartTime.Before(e.clock.Now()) {
		return newError(KindInvalidDuration, "booking cannot start in the past")
	}
	if req.NumberOfPlayers <= 0 {
		return newError(KindInvalidEquipmentRequest, "number of players must be positive")
	}
	if req.FindOpponents && req.OpponentsNeeded <= 0 {
		return newError(KindInvalidEquipmentRequest, "opponents needed must be positive when seeking opponents")
	}
	switch req.PaymentMethod {
	case "", PaymentCash, PaymentCard, PaymentOnline:
	default:
		return newError(KindInvalidPaymentMethod, "unsupported payment method %q", req.PaymentMethod)
	}
	return nil
}

func (e *Engine) checkFeatureGates(req CreateRequest, features FeatureSet) error {
	if req.FindOpponents && !features.Has(FeatureOpponentMatching) {
		return newError(KindFeatureNotAvailable, "your subscription does not include opponent matching")
	}
	if req.EquipmentNeeded {
		if !features.Has(FeatureEquipmentRental) {
			return newError(KindFeatureNotAvailable, "your subscription does not include equipment rental")
		}
		if len(req.EquipmentDetails) == 0 {
			return newError(KindInvalidEquipmentRequest, "equipment request must list at least one item")
		}
		for item, qty := range req.EquipmentDetails {
			if qty <= 0 {
				return newError(KindInvalidEquipmentRequest, "equipment item %q must have a positive quantity", item)
			}
		}
	}
	return nil
}

// runMatching runs the opponent matcher either inline or in the background
// per configuration. Errors are logged and swallowed.
func (e *Engine) runMatching(ctx context.Context, bookingID string) {
	run := func(ctx context.Context) {
		if _, err := e.matcher.TryMatch(ctx, bookingID); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("component", "booking").
				Str("booking_id", bookingID).
				Msg("opponent matching failed")
		}
	}
	if e.cfg.AsyncMatching {
		go run(context.WithoutCancel(ctx))
		return
	}
	run(ctx)
}

// Cancel cancels a booking owned by userID, frees its slot, and cancels any
// opponent matches built on it. The cancellation lead time is enforced
// against the booking's start.
func (e *Engine) Cancel(ctx context.Context, bookingID, userID, reason string) (store.Booking, error) {
	var cancelled store.Booking
	err := e.db.RunInTx(ctx, func(txDB *db.DB) error {
		q := txDB.Queries

		b, err := q.GetBookingByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return newError(KindReservationNotFound, "booking %s not found", bookingID)
			}
			return fmt.Errorf("load booking: %w", err)
		}
		if b.UserID != userID {
			return newError(KindReservationNotFound, "booking %s not found", bookingID)
		}
		if b.Status != StatusPending && b.Status != StatusConfirmed {
			return newError(KindCannotCancel, "booking is %s and cannot be cancelled", b.Status)
		}

		// Cancellation closes at exactly start - lead time.
		now := e.clock.Now()
		if !now.Add(e.cfg.CancellationLeadTime).Before(b.StartTime) {
			return newError(KindCannotCancel,
				"bookings must be cancelled at least %s before the start time", e.cfg.CancellationLeadTime)
		}

		affected, err := q.CancelBooking(ctx, store.CancelBookingParams{
			ID:          bookingID,
			Reason:      reason,
			CancelledAt: now.UTC(),
		})
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if affected == 0 {
			return newError(KindCannotCancel, "booking is no longer cancellable")
		}

		if err := q.DeleteSlotsForBooking(ctx, bookingID); err != nil {
			return fmt.Errorf("free booked slot: %w", err)
		}

		if err := e.cancelMatches(ctx, q, b); err != nil {
			return err
		}

		if err := notify.Queue(ctx, q, b.UserID, notify.EventBookingCancelled, map[string]interface{}{
			"booking_id": b.ID,
			"start_time": b.StartTime.Format(time.RFC3339),
			"reason":     reason,
		}); err != nil {
			return err
		}

		cancelled, err = q.GetBookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("reload booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.Booking{}, err
	}

	log.Ctx(ctx).Info().
		Str("component", "booking").
		Str("booking_id", bookingID).
		Str("user_id", userID).
		Msg("booking cancelled")
	return cancelled, nil
}

// cancelMatches tears down every live match touching b: the match is
// cancelled, the cross-participant links are removed, and the other party is
// notified.
func (e *Engine) cancelMatches(ctx context.Context, q *store.Queries, b store.Booking) error {
	matches, err := q.ListActiveMatchesForBooking(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("list matches for booking: %w", err)
	}
	for _, m := range matches {
		if _, err := q.CancelMatch(ctx, m.ID); err != nil {
			return fmt.Errorf("cancel match %s: %w", m.ID, err)
		}

		unlink := []store.RemoveBookingParticipantParams{
			{BookingID: m.BookingID, UserID: m.OpponentUserID},
			{BookingID: m.OpponentBookingID, UserID: m.SeekerUserID},
		}
		for _, p := range unlink {
			if err := q.RemoveBookingParticipant(ctx, p); err != nil {
				return fmt.Errorf("remove participant: %w", err)
			}
		}

		other := m.SeekerUserID
		if other == b.UserID {
			other = m.OpponentUserID
		}
		if err := notify.Queue(ctx, q, other, notify.EventMatchCancelled, map[string]interface{}{
			"match_id":   m.ID,
			"booking_id": b.ID,
			"start_time": b.StartTime.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	return nil
}

// Confirm moves a pending booking to confirmed and notifies the owner.
func (e *Engine) Confirm(ctx context.Context, bookingID string) (store.Booking, error) {
	return e.transition(ctx, bookingID, StatusPending, StatusConfirmed, notify.EventBookingConfirmed)
}

// Complete moves a confirmed booking to completed.
func (e *Engine) Complete(ctx context.Context, bookingID string) (store.Booking, error) {
	return e.transition(ctx, bookingID, StatusConfirmed, StatusCompleted, "")
}

func (e *Engine) transition(ctx context.Context, bookingID, from, to, event string) (store.Booking, error) {
	var updated store.Booking
	err := e.db.RunInTx(ctx, func(txDB *db.DB) error {
		q := txDB.Queries

		affected, err := q.UpdateBookingStatus(ctx, store.UpdateBookingStatusParams{
			ID:         bookingID,
			FromStatus: from,
			ToStatus:   to,
		})
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		if affected == 0 {
			b, err := q.GetBookingByID(ctx, bookingID)
			if errors.Is(err, sql.ErrNoRows) {
				return newError(KindReservationNotFound, "booking %s not found", bookingID)
			}
			if err != nil {
				return fmt.Errorf("load booking: %w", err)
			}
			return newError(KindInvalidTransition, "booking is %s, cannot move to %s", b.Status, to)
		}

		updated, err = q.GetBookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("reload booking: %w", err)
		}

		if event != "" {
			return notify.Queue(ctx, q, updated.UserID, event, map[string]interface{}{
				"booking_id": updated.ID,
				"start_time": updated.StartTime.Format(time.RFC3339),
			})
		}
		return nil
	})
	if err != nil {
		return store.Booking{}, err
	}

	log.Ctx(ctx).Info().
		Str("component", "booking").
		Str("booking_id", bookingID).
		Str("decision", to).
		Msg("booking transitioned")
	return updated, nil
}

// EvaluateQuota runs the quota checks without creating anything.
func (e *Engine) EvaluateQuota(ctx context.Context, userID string, start, end time.Time) (*ValidationResult, error) {
	return e.quota.Evaluate(ctx, e.db.Queries, userID, start, end)
}

// CheckConflict reports what occupies a court window, advisory only. A
// non-empty excludeID leaves that booking out, so a client can probe a
// reschedule window without its own reservation blocking it.
func (e *Engine) CheckConflict(ctx context.Context, courtID string, start, end time.Time, excludeID string) (*ConflictResult, error) {
	if !start.Before(end) {
		return nil, newError(KindInvalidDuration, "start time must be before end time")
	}
	if _, err := e.db.Queries.GetCourtByID(ctx, courtID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newError(KindResourceNotFound, "court %s not found", courtID)
		}
		return nil, fmt.Errorf("load court: %w", err)
	}
	return e.checker.Check(ctx, e.db.Queries, courtID, start, end, excludeID)
}

// WeeklyInfo reports the user's standing against their weekly quota.
func (e *Engine) WeeklyInfo(ctx context.Context, userID string, ref time.Time) (*WeeklyBookingInfo, error) {
	return e.quota.WeeklyInfo(ctx, e.db.Queries, userID, ref)
}

func marshalEquipment(details map[string]int64) string {
	if len(details) == 0 {
		return ""
	}
	data, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return string(data)
}
