// Package store is the typed query layer over database/sql. It mirrors the
// Queries/Params/Row shape of generated query code so call sites read the
// same whether a query is one line or a multi-join.
package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type User struct {
	ID        string
	FirstName string
	LastName  string
	Nickname  string
	CreatedAt time.Time
}

type Court struct {
	ID         string
	Name       string
	Address    string
	Latitude   float64
	Longitude  float64
	CourtType  string
	Attributes string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CourtTariff struct {
	ID              int64
	CourtID         string
	Name            string
	BasePrice       string
	PriceType       string
	MinBookingHours int64
	MaxBookingHours int64
	ActiveFrom      sql.NullTime
	ActiveTo        sql.NullTime
	Position        int64
}

type AvailabilitySlot struct {
	ID        int64
	CourtID   string
	StartTime time.Time
	EndTime   time.Time
	Status    string
	BookingID sql.NullString
}

type SubscriptionPlan struct {
	ID              string
	Name            string
	Description     string
	MonthlyPrice    string
	YearlyPrice     string
	Currency        string
	Features        string
	BookingsPerWeek int64
	MaxDurationHrs  float64
	AllowedDays     string
	Position        int64
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type UserSubscription struct {
	ID            string
	UserID        string
	PlanID        string
	StartDate     time.Time
	EndDate       time.Time
	Status        string
	AmountPaid    string
	PaymentMethod string
	CancelledAt   sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Booking struct {
	ID                 string
	UserID             string
	CourtID            sql.NullString
	StartTime          time.Time
	EndTime            time.Time
	Status             string
	NumberOfPlayers    int64
	FindOpponents      bool
	OpponentsNeeded    int64
	EquipmentNeeded    bool
	EquipmentDetails   string
	TariffSnapshot     string
	TotalPrice         string
	PaymentMethod      string
	PaymentStatus      string
	Notes              string
	CancellationReason string
	CancelledAt        sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type OpponentMatch struct {
	ID                string
	BookingID         string
	OpponentBookingID string
	SeekerUserID      string
	OpponentUserID    string
	Status            string
	OpponentsNeeded   int64
	OpponentsFound    int64
	CreatedAt         time.Time
	MatchedAt         sql.NullTime
	UpdatedAt         time.Time
}

type Notification struct {
	ID           string
	RecipientID  string
	EventType    string
	Payload      string
	Status       string
	CreatedAt    time.Time
	DispatchedAt sql.NullTime
}
