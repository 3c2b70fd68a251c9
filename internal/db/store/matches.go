package store

import (
	"context"
	"database/sql"
	"time"
)

const matchColumns = `id, booking_id, opponent_booking_id, seeker_user_id, opponent_user_id, status, opponents_needed, opponents_found, created_at, matched_at, updated_at`

const createOpponentMatch = `
INSERT INTO opponent_matches (id, booking_id, opponent_booking_id, seeker_user_id, opponent_user_id, status, opponents_needed, opponents_found, matched_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateOpponentMatchParams struct {
	ID                string
	BookingID         string
	OpponentBookingID string
	SeekerUserID      string
	OpponentUserID    string
	Status            string
	OpponentsNeeded   int64
	OpponentsFound    int64
	MatchedAt         time.Time
}

func (q *Queries) CreateOpponentMatch(ctx context.Context, arg CreateOpponentMatchParams) error {
	_, err := q.db.ExecContext(ctx, createOpponentMatch,
		arg.ID, arg.BookingID, arg.OpponentBookingID, arg.SeekerUserID, arg.OpponentUserID,
		arg.Status, arg.OpponentsNeeded, arg.OpponentsFound, arg.MatchedAt)
	return err
}

const countActiveMatchesForBooking = `
SELECT COUNT(*)
FROM opponent_matches
WHERE (booking_id = ? OR opponent_booking_id = ?)
  AND status IN ('matched', 'accepted')
`

// CountActiveMatchesForBooking counts filled opponent slots on a booking,
// whether the booking was the seeker or the matched side.
func (q *Queries) CountActiveMatchesForBooking(ctx context.Context, bookingID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countActiveMatchesForBooking, bookingID, bookingID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listMatchesForBooking = `
SELECT ` + matchColumns + `
FROM opponent_matches
WHERE booking_id = ? OR opponent_booking_id = ?
ORDER BY created_at
`

func (q *Queries) ListMatchesForBooking(ctx context.Context, bookingID string) ([]OpponentMatch, error) {
	rows, err := q.db.QueryContext(ctx, listMatchesForBooking, bookingID, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOpponentMatches(rows)
}

const listActiveMatchesForBooking = `
SELECT ` + matchColumns + `
FROM opponent_matches
WHERE (booking_id = ? OR opponent_booking_id = ?)
  AND status IN ('pending', 'accepted', 'matched')
ORDER BY created_at
`

func (q *Queries) ListActiveMatchesForBooking(ctx context.Context, bookingID string) ([]OpponentMatch, error) {
	rows, err := q.db.QueryContext(ctx, listActiveMatchesForBooking, bookingID, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOpponentMatches(rows)
}

const cancelMatch = `
UPDATE opponent_matches
SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status IN ('pending', 'accepted', 'matched')
`

func (q *Queries) CancelMatch(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, cancelMatch, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MatchDetailRow is a match joined with both players' identities and the
// seeker booking's court and window, so listings can be rendered without
// follow-up lookups.
type MatchDetailRow struct {
	OpponentMatch
	SeekerFirstName   string
	SeekerLastName    string
	SeekerNickname    string
	OpponentFirstName string
	OpponentLastName  string
	OpponentNickname  string
	CourtID           sql.NullString
	CourtName         sql.NullString
	StartTime         time.Time
	EndTime           time.Time
}

const matchDetailColumns = `m.id, m.booking_id, m.opponent_booking_id, m.seeker_user_id, m.opponent_user_id, m.status, m.opponents_needed, m.opponents_found, m.created_at, m.matched_at, m.updated_at,
       su.first_name, su.last_name, su.nickname,
       ou.first_name, ou.last_name, ou.nickname,
       c.id, c.name, b.start_time, b.end_time`

const matchDetailJoins = `
FROM opponent_matches m
JOIN users su ON su.id = m.seeker_user_id
JOIN users ou ON ou.id = m.opponent_user_id
JOIN bookings b ON b.id = m.booking_id
LEFT JOIN courts c ON c.id = b.court_id
`

const listMatchDetailsForBooking = `
SELECT ` + matchDetailColumns + matchDetailJoins + `
WHERE m.booking_id = ? OR m.opponent_booking_id = ?
ORDER BY m.created_at
`

func (q *Queries) ListMatchDetailsForBooking(ctx context.Context, bookingID string) ([]MatchDetailRow, error) {
	rows, err := q.db.QueryContext(ctx, listMatchDetailsForBooking, bookingID, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatchDetails(rows)
}

const listMatchDetailsForUser = `
SELECT ` + matchDetailColumns + matchDetailJoins + `
WHERE (m.seeker_user_id = ? OR m.opponent_user_id = ?)
  AND m.status = 'matched'
ORDER BY m.matched_at DESC
`

func (q *Queries) ListMatchDetailsForUser(ctx context.Context, userID string) ([]MatchDetailRow, error) {
	rows, err := q.db.QueryContext(ctx, listMatchDetailsForUser, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatchDetails(rows)
}

func scanMatchDetails(rows *sql.Rows) ([]MatchDetailRow, error) {
	var details []MatchDetailRow
	for rows.Next() {
		var d MatchDetailRow
		if err := rows.Scan(&d.ID, &d.BookingID, &d.OpponentBookingID, &d.SeekerUserID,
			&d.OpponentUserID, &d.Status, &d.OpponentsNeeded, &d.OpponentsFound,
			&d.CreatedAt, &d.MatchedAt, &d.UpdatedAt,
			&d.SeekerFirstName, &d.SeekerLastName, &d.SeekerNickname,
			&d.OpponentFirstName, &d.OpponentLastName, &d.OpponentNickname,
			&d.CourtID, &d.CourtName, &d.StartTime, &d.EndTime); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func scanOpponentMatches(rows *sql.Rows) ([]OpponentMatch, error) {
	var matches []OpponentMatch
	for rows.Next() {
		var m OpponentMatch
		if err := rows.Scan(&m.ID, &m.BookingID, &m.OpponentBookingID, &m.SeekerUserID,
			&m.OpponentUserID, &m.Status, &m.OpponentsNeeded, &m.OpponentsFound,
			&m.CreatedAt, &m.MatchedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
