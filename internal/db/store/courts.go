package store

import (
	"context"
	"database/sql"
	"time"
)

const createCourt = `
INSERT INTO courts (id, name, address, latitude, longitude, court_type, attributes, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?, 1)
`

type CreateCourtParams struct {
	ID         string
	Name       string
	Address    string
	Latitude   float64
	Longitude  float64
	CourtType  string
	Attributes string
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) error {
	_, err := q.db.ExecContext(ctx, createCourt,
		arg.ID, arg.Name, arg.Address, arg.Latitude, arg.Longitude, arg.CourtType, arg.Attributes)
	return err
}

const getCourtByID = `
SELECT id, name, address, latitude, longitude, court_type, attributes, is_active, created_at, updated_at
FROM courts
WHERE id = ?
`

func (q *Queries) GetCourtByID(ctx context.Context, id string) (Court, error) {
	row := q.db.QueryRowContext(ctx, getCourtByID, id)
	var c Court
	err := row.Scan(&c.ID, &c.Name, &c.Address, &c.Latitude, &c.Longitude,
		&c.CourtType, &c.Attributes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listActiveCourts = `
SELECT id, name, address, latitude, longitude, court_type, attributes, is_active, created_at, updated_at
FROM courts
WHERE is_active = 1 AND (? = '' OR court_type = ?)
ORDER BY name
`

func (q *Queries) ListActiveCourts(ctx context.Context, courtType string) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listActiveCourts, courtType, courtType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courts []Court
	for rows.Next() {
		var c Court
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Latitude, &c.Longitude,
			&c.CourtType, &c.Attributes, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

const setCourtActive = `
UPDATE courts
SET is_active = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type SetCourtActiveParams struct {
	ID       string
	IsActive bool
}

func (q *Queries) SetCourtActive(ctx context.Context, arg SetCourtActiveParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, setCourtActive, arg.IsActive, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createCourtTariff = `
INSERT INTO court_tariffs (court_id, name, base_price, price_type, min_booking_hours, max_booking_hours, active_from, active_to, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateCourtTariffParams struct {
	CourtID         string
	Name            string
	BasePrice       string
	PriceType       string
	MinBookingHours int64
	MaxBookingHours int64
	ActiveFrom      interface{}
	ActiveTo        interface{}
	Position        int64
}

func (q *Queries) CreateCourtTariff(ctx context.Context, arg CreateCourtTariffParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createCourtTariff,
		arg.CourtID, arg.Name, arg.BasePrice, arg.PriceType,
		arg.MinBookingHours, arg.MaxBookingHours, arg.ActiveFrom, arg.ActiveTo, arg.Position)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listCourtTariffs = `
SELECT id, court_id, name, base_price, price_type, min_booking_hours, max_booking_hours, active_from, active_to, position
FROM court_tariffs
WHERE court_id = ?
ORDER BY position, id
`

func (q *Queries) ListCourtTariffs(ctx context.Context, courtID string) ([]CourtTariff, error) {
	rows, err := q.db.QueryContext(ctx, listCourtTariffs, courtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tariffs []CourtTariff
	for rows.Next() {
		var t CourtTariff
		if err := rows.Scan(&t.ID, &t.CourtID, &t.Name, &t.BasePrice, &t.PriceType,
			&t.MinBookingHours, &t.MaxBookingHours, &t.ActiveFrom, &t.ActiveTo, &t.Position); err != nil {
			return nil, err
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, rows.Err()
}

const createAvailabilitySlot = `
INSERT INTO court_availability_slots (court_id, start_time, end_time, status, booking_id)
VALUES (?, ?, ?, ?, ?)
`

type CreateAvailabilitySlotParams struct {
	CourtID   string
	StartTime time.Time
	EndTime   time.Time
	Status    string
	BookingID interface{}
}

func (q *Queries) CreateAvailabilitySlot(ctx context.Context, arg CreateAvailabilitySlotParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createAvailabilitySlot,
		arg.CourtID, arg.StartTime, arg.EndTime, arg.Status, arg.BookingID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const listBlockedSlotsOverlapping = `
SELECT id, court_id, start_time, end_time, status, booking_id
FROM court_availability_slots
WHERE court_id = ?
  AND status = 'blocked'
  AND start_time < ?
  AND end_time > ?
ORDER BY start_time
`

type ListBlockedSlotsOverlappingParams struct {
	CourtID   string
	EndTime   time.Time
	StartTime time.Time
}

func (q *Queries) ListBlockedSlotsOverlapping(ctx context.Context, arg ListBlockedSlotsOverlappingParams) ([]AvailabilitySlot, error) {
	rows, err := q.db.QueryContext(ctx, listBlockedSlotsOverlapping, arg.CourtID, arg.EndTime, arg.StartTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAvailabilitySlots(rows)
}

const listSlotsForWindow = `
SELECT id, court_id, start_time, end_time, status, booking_id
FROM court_availability_slots
WHERE court_id = ?
  AND start_time < ?
  AND end_time > ?
ORDER BY start_time
`

type ListSlotsForWindowParams struct {
	CourtID   string
	EndTime   time.Time
	StartTime time.Time
}

func (q *Queries) ListSlotsForWindow(ctx context.Context, arg ListSlotsForWindowParams) ([]AvailabilitySlot, error) {
	rows, err := q.db.QueryContext(ctx, listSlotsForWindow, arg.CourtID, arg.EndTime, arg.StartTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAvailabilitySlots(rows)
}

const deleteSlotsForBooking = `
DELETE FROM court_availability_slots
WHERE booking_id = ?
`

func (q *Queries) DeleteSlotsForBooking(ctx context.Context, bookingID string) error {
	_, err := q.db.ExecContext(ctx, deleteSlotsForBooking, bookingID)
	return err
}

func scanAvailabilitySlots(rows *sql.Rows) ([]AvailabilitySlot, error) {
	var slots []AvailabilitySlot
	for rows.Next() {
		var s AvailabilitySlot
		if err := rows.Scan(&s.ID, &s.CourtID, &s.StartTime, &s.EndTime, &s.Status, &s.BookingID); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
