package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/sportlink/backend/internal/db/store"
)

// ConflictingReservation is the caller-facing shape of a booking that blocks
// a requested window. Only scheduling fields are exposed; the owning user is
// identified but nothing else about them leaks.
type ConflictingReservation struct {
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

// BlockedWindow is a maintenance or admin hold on the court.
type BlockedWindow struct {
	SlotID    int64     `json:"slot_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// ConflictResult reports everything occupying the requested window.
type ConflictResult struct {
	HasConflict bool                     `json:"has_conflict"`
	Conflicts   []ConflictingReservation `json:"conflicts"`
	Blocked     []BlockedWindow          `json:"blocked"`
}

// ConflictChecker finds live bookings and blocked slots that overlap a
// requested window. Overlap is strict interval intersection: a booking
// ending exactly when another starts does not conflict.
type ConflictChecker struct{}

func NewConflictChecker() *ConflictChecker {
	return &ConflictChecker{}
}

// Check reports all pending or confirmed bookings and blocked slots on
// courtID intersecting [start, end). excludeID is ignored in the scan so a
// booking never conflicts with itself (pass "" when there is none).
//
// Run through a transaction-bound Queries when the result gates an insert;
// checked outside a write transaction it is advisory only.
func (c *ConflictChecker) Check(ctx context.Context, q *store.Queries, courtID string, start, end time.Time, excludeID string) (*ConflictResult, error) {
	bookings, err := q.ListConflictingBookings(ctx, store.ListConflictingBookingsParams{
		CourtID:   courtID,
		EndTime:   end,
		StartTime: start,
		ExcludeID: excludeID,
	})
	if err != nil {
		return nil, fmt.Errorf("list conflicting bookings: %w", err)
	}

	slots, err := q.ListBlockedSlotsOverlapping(ctx, store.ListBlockedSlotsOverlappingParams{
		CourtID:   courtID,
		EndTime:   end,
		StartTime: start,
	})
	if err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}

	result := &ConflictResult{}
	for _, b := range bookings {
		result.Conflicts = append(result.Conflicts, ConflictingReservation{
			BookingID: b.ID,
			UserID:    b.UserID,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Status:    b.Status,
		})
	}
	for _, s := range slots {
		result.Blocked = append(result.Blocked, BlockedWindow{
			SlotID:    s.ID,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		})
	}
	result.HasConflict = len(result.Conflicts) > 0 || len(result.Blocked) > 0
	return result, nil
}
