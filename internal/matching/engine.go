// Package matching pairs bookings that are looking for opponents on the
// same court and time slot.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
	"github.com/sportlink/backend/internal/notify"
)

// Match statuses.
const (
	StatusPending   = "pending"
	StatusMatched   = "matched"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
)

// Result reports what a matching pass produced for one booking.
type Result struct {
	BookingID      string                `json:"booking_id"`
	OpponentsFound int64                 `json:"opponents_found"`
	Matches        []store.OpponentMatch `json:"matches"`
}

// Engine runs greedy opponent matching. Candidates are other bookings on the
// same court with the identical time slot that are also seeking opponents,
// taken oldest first. A booking whose opponent slots are already filled is
// skipped on either side.
type Engine struct {
	db  *db.DB
	now func() time.Time
}

func NewEngine(database *db.DB) *Engine {
	return &Engine{db: database, now: time.Now}
}

// TryMatch attempts to fill the open opponent slots of bookingID. The whole
// pass runs in one transaction; matches, participant links, and
// notifications commit together. A booking that is not seeking, is no longer
// live, or has no open slots yields an empty result, not an error.
func (e *Engine) TryMatch(ctx context.Context, bookingID string) (*Result, error) {
	result := &Result{BookingID: bookingID}

	err := e.db.RunInTx(ctx, func(txDB *db.DB) error {
		q := txDB.Queries

		seeker, err := q.GetBookingByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("load booking %s: %w", bookingID, err)
		}
		if !seeker.FindOpponents || !isLive(seeker.Status) || !seeker.CourtID.Valid {
			return nil
		}

		open, err := e.openSlots(ctx, q, seeker.ID, seeker.OpponentsNeeded)
		if err != nil {
			return err
		}
		if open <= 0 {
			return nil
		}

		candidates, err := q.ListSeekingBookings(ctx, store.ListSeekingBookingsParams{
			CourtID:   seeker.CourtID.String,
			StartTime: seeker.StartTime,
			EndTime:   seeker.EndTime,
			ExcludeID: seeker.ID,
		})
		if err != nil {
			return fmt.Errorf("list seeking bookings: %w", err)
		}

		for _, candidate := range candidates {
			if open <= 0 {
				break
			}
			if candidate.UserID == seeker.UserID {
				continue
			}

			candidateOpen, err := e.openSlots(ctx, q, candidate.ID, candidate.OpponentsNeeded)
			if err != nil {
				return err
			}
			if candidateOpen <= 0 {
				continue
			}

			match, err := e.createMatch(ctx, q, seeker, candidate)
			if err != nil {
				return err
			}
			result.Matches = append(result.Matches, match)
			result.OpponentsFound++
			open--
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("component", "matching").
		Str("booking_id", bookingID).
		Int64("opponents_found", result.OpponentsFound).
		Msg("matching pass complete")
	return result, nil
}

// openSlots returns how many opponent slots remain on a booking, counting
// active matches on either side of the pairing.
func (e *Engine) openSlots(ctx context.Context, q *store.Queries, bookingID string, needed int64) (int64, error) {
	filled, err := q.CountActiveMatchesForBooking(ctx, bookingID)
	if err != nil {
		return 0, fmt.Errorf("count active matches for %s: %w", bookingID, err)
	}
	return needed - filled, nil
}

func (e *Engine) createMatch(ctx context.Context, q *store.Queries, seeker, candidate store.Booking) (store.OpponentMatch, error) {
	matchedAt := e.now().UTC()
	match := store.OpponentMatch{
		ID:                uuid.NewString(),
		BookingID:         seeker.ID,
		OpponentBookingID: candidate.ID,
		SeekerUserID:      seeker.UserID,
		OpponentUserID:    candidate.UserID,
		Status:            StatusMatched,
		OpponentsNeeded:   seeker.OpponentsNeeded,
		OpponentsFound:    1,
	}

	if err := q.CreateOpponentMatch(ctx, store.CreateOpponentMatchParams{
		ID:                match.ID,
		BookingID:         match.BookingID,
		OpponentBookingID: match.OpponentBookingID,
		SeekerUserID:      match.SeekerUserID,
		OpponentUserID:    match.OpponentUserID,
		Status:            match.Status,
		OpponentsNeeded:   match.OpponentsNeeded,
		OpponentsFound:    match.OpponentsFound,
		MatchedAt:         matchedAt,
	}); err != nil {
		return store.OpponentMatch{}, fmt.Errorf("create match: %w", err)
	}

	// Each player joins the other's booking.
	pairs := []store.AddBookingParticipantParams{
		{BookingID: seeker.ID, UserID: candidate.UserID},
		{BookingID: candidate.ID, UserID: seeker.UserID},
	}
	for _, p := range pairs {
		if err := q.AddBookingParticipant(ctx, p); err != nil {
			return store.OpponentMatch{}, fmt.Errorf("add participant: %w", err)
		}
	}

	seekerUser, err := q.GetUserByID(ctx, seeker.UserID)
	if err != nil {
		return store.OpponentMatch{}, fmt.Errorf("load seeker user: %w", err)
	}
	candidateUser, err := q.GetUserByID(ctx, candidate.UserID)
	if err != nil {
		return store.OpponentMatch{}, fmt.Errorf("load candidate user: %w", err)
	}
	court, err := q.GetCourtByID(ctx, seeker.CourtID.String)
	if err != nil {
		return store.OpponentMatch{}, fmt.Errorf("load court: %w", err)
	}

	// Each party's notification names the other party and the shared slot.
	payloadFor := func(bookingID string, opponent store.User) map[string]interface{} {
		return map[string]interface{}{
			"match_id":   match.ID,
			"booking_id": bookingID,
			"court_id":   court.ID,
			"court_name": court.Name,
			"start_time": seeker.StartTime.Format(time.RFC3339),
			"end_time":   seeker.EndTime.Format(time.RFC3339),
			"opponent": map[string]interface{}{
				"id":         opponent.ID,
				"nickname":   opponent.Nickname,
				"first_name": opponent.FirstName,
				"last_name":  opponent.LastName,
			},
		}
	}
	if err := notify.Queue(ctx, q, seeker.UserID, notify.EventOpponentMatched, payloadFor(seeker.ID, candidateUser)); err != nil {
		return store.OpponentMatch{}, err
	}
	if err := notify.Queue(ctx, q, candidate.UserID, notify.EventOpponentMatched, payloadFor(candidate.ID, seekerUser)); err != nil {
		return store.OpponentMatch{}, err
	}
	return match, nil
}

func isLive(status string) bool {
	return status == "pending" || status == "confirmed"
}
