package store

import (
	"context"
	"database/sql"
	"time"
)

const bookingColumns = `id, user_id, court_id, start_time, end_time, status, number_of_players, find_opponents, opponents_needed, equipment_needed, equipment_details, tariff_snapshot, total_price, payment_method, payment_status, notes, cancellation_reason, cancelled_at, created_at, updated_at`

const createBooking = `
INSERT INTO bookings (id, user_id, court_id, start_time, end_time, status, number_of_players, find_opponents, opponents_needed, equipment_needed, equipment_details, tariff_snapshot, total_price, payment_method)
VALUES (?, ?, ?, ?, ?, 'pending', ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateBookingParams struct {
	ID               string
	UserID           string
	CourtID          string
	StartTime        time.Time
	EndTime          time.Time
	NumberOfPlayers  int64
	FindOpponents    bool
	OpponentsNeeded  int64
	EquipmentNeeded  bool
	EquipmentDetails string
	TariffSnapshot   string
	TotalPrice       string
	PaymentMethod    string
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) error {
	// An empty payment method takes the column default; binding "" would
	// trip the CHECK constraint.
	method := arg.PaymentMethod
	if method == "" {
		method = "cash"
	}
	_, err := q.db.ExecContext(ctx, createBooking,
		arg.ID, arg.UserID, arg.CourtID, arg.StartTime, arg.EndTime,
		arg.NumberOfPlayers, arg.FindOpponents, arg.OpponentsNeeded,
		arg.EquipmentNeeded, arg.EquipmentDetails, arg.TariffSnapshot,
		arg.TotalPrice, method)
	return err
}

const getBookingByID = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE id = ?
`

func (q *Queries) GetBookingByID(ctx context.Context, id string) (Booking, error) {
	row := q.db.QueryRowContext(ctx, getBookingByID, id)
	return scanBooking(row)
}

const listConflictingBookings = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE court_id = ?
  AND status IN ('pending', 'confirmed')
  AND start_time < ?
  AND end_time > ?
  AND id != ?
ORDER BY start_time
`

type ListConflictingBookingsParams struct {
	CourtID   string
	EndTime   time.Time
	StartTime time.Time
	ExcludeID string
}

func (q *Queries) ListConflictingBookings(ctx context.Context, arg ListConflictingBookingsParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listConflictingBookings,
		arg.CourtID, arg.EndTime, arg.StartTime, arg.ExcludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

const countUserBookingsInWindow = `
SELECT COUNT(*)
FROM bookings
WHERE user_id = ?
  AND status IN ('pending', 'confirmed')
  AND start_time >= ?
  AND start_time < ?
`

type CountUserBookingsInWindowParams struct {
	UserID      string
	WindowStart time.Time
	WindowEnd   time.Time
}

func (q *Queries) CountUserBookingsInWindow(ctx context.Context, arg CountUserBookingsInWindowParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUserBookingsInWindow, arg.UserID, arg.WindowStart, arg.WindowEnd)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getLatestUserBookingInWindow = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE user_id = ?
  AND status IN ('pending', 'confirmed')
  AND start_time >= ?
  AND start_time < ?
ORDER BY start_time DESC
LIMIT 1
`

type GetLatestUserBookingInWindowParams struct {
	UserID      string
	WindowStart time.Time
	WindowEnd   time.Time
}

func (q *Queries) GetLatestUserBookingInWindow(ctx context.Context, arg GetLatestUserBookingInWindowParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, getLatestUserBookingInWindow, arg.UserID, arg.WindowStart, arg.WindowEnd)
	return scanBooking(row)
}

const listUserBookingsInWindow = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE user_id = ?
  AND status IN ('pending', 'confirmed')
  AND start_time >= ?
  AND start_time < ?
ORDER BY start_time
`

type ListUserBookingsInWindowParams struct {
	UserID      string
	WindowStart time.Time
	WindowEnd   time.Time
}

func (q *Queries) ListUserBookingsInWindow(ctx context.Context, arg ListUserBookingsInWindowParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listUserBookingsInWindow, arg.UserID, arg.WindowStart, arg.WindowEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

const listUserBookings = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE user_id = ?
  AND (? = '' OR status = ?)
ORDER BY start_time DESC
LIMIT ?
`

type ListUserBookingsParams struct {
	UserID string
	Status string
	Limit  int64
}

func (q *Queries) ListUserBookings(ctx context.Context, arg ListUserBookingsParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listUserBookings, arg.UserID, arg.Status, arg.Status, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

const updateBookingStatus = `
UPDATE bookings
SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
`

type UpdateBookingStatusParams struct {
	ID         string
	FromStatus string
	ToStatus   string
}

// UpdateBookingStatus performs a guarded transition and reports whether the
// row was in FromStatus.
func (q *Queries) UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBookingStatus, arg.ToStatus, arg.ID, arg.FromStatus)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const cancelBooking = `
UPDATE bookings
SET status = 'cancelled', cancellation_reason = ?, cancelled_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status IN ('pending', 'confirmed')
`

type CancelBookingParams struct {
	ID          string
	Reason      string
	CancelledAt time.Time
}

func (q *Queries) CancelBooking(ctx context.Context, arg CancelBookingParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, cancelBooking, arg.Reason, arg.CancelledAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listSeekingBookings = `
SELECT ` + bookingColumns + `
FROM bookings
WHERE court_id = ?
  AND start_time = ?
  AND end_time = ?
  AND find_opponents = 1
  AND status IN ('pending', 'confirmed')
  AND id != ?
ORDER BY created_at
`

type ListSeekingBookingsParams struct {
	CourtID   string
	StartTime time.Time
	EndTime   time.Time
	ExcludeID string
}

func (q *Queries) ListSeekingBookings(ctx context.Context, arg ListSeekingBookingsParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listSeekingBookings,
		arg.CourtID, arg.StartTime, arg.EndTime, arg.ExcludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

const completeBookingsEndedBefore = `
UPDATE bookings
SET status = 'completed', updated_at = CURRENT_TIMESTAMP
WHERE status = 'confirmed' AND end_time <= ?
`

func (q *Queries) CompleteBookingsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, completeBookingsEndedBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const addBookingParticipant = `
INSERT OR IGNORE INTO booking_participants (booking_id, user_id)
VALUES (?, ?)
`

type AddBookingParticipantParams struct {
	BookingID string
	UserID    string
}

func (q *Queries) AddBookingParticipant(ctx context.Context, arg AddBookingParticipantParams) error {
	_, err := q.db.ExecContext(ctx, addBookingParticipant, arg.BookingID, arg.UserID)
	return err
}

const removeBookingParticipant = `
DELETE FROM booking_participants
WHERE booking_id = ? AND user_id = ?
`

type RemoveBookingParticipantParams struct {
	BookingID string
	UserID    string
}

func (q *Queries) RemoveBookingParticipant(ctx context.Context, arg RemoveBookingParticipantParams) error {
	_, err := q.db.ExecContext(ctx, removeBookingParticipant, arg.BookingID, arg.UserID)
	return err
}

const listBookingParticipants = `
SELECT u.id, u.first_name, u.last_name, u.nickname, u.created_at
FROM booking_participants bp
JOIN users u ON u.id = bp.user_id
WHERE bp.booking_id = ?
ORDER BY bp.added_at
`

func (q *Queries) ListBookingParticipants(ctx context.Context, bookingID string) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listBookingParticipants, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Nickname, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanBooking(row rowScanner) (Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.UserID, &b.CourtID, &b.StartTime, &b.EndTime, &b.Status,
		&b.NumberOfPlayers, &b.FindOpponents, &b.OpponentsNeeded,
		&b.EquipmentNeeded, &b.EquipmentDetails, &b.TariffSnapshot, &b.TotalPrice,
		&b.PaymentMethod, &b.PaymentStatus, &b.Notes, &b.CancellationReason,
		&b.CancelledAt, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func scanBookings(rows *sql.Rows) ([]Booking, error) {
	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
