package bookings

import (
	"time"

	"github.com/sportlink/backend/internal/db/store"
)

type participantView struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname,omitempty"`
}

type bookingView struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id"`
	CourtID            string            `json:"court_id,omitempty"`
	StartTime          time.Time         `json:"start_time"`
	EndTime            time.Time         `json:"end_time"`
	Status             string            `json:"status"`
	NumberOfPlayers    int64             `json:"number_of_players"`
	FindOpponents      bool              `json:"find_opponents"`
	OpponentsNeeded    int64             `json:"opponents_needed,omitempty"`
	EquipmentNeeded    bool              `json:"equipment_needed"`
	EquipmentDetails   string            `json:"equipment_details,omitempty"`
	TariffSnapshot     string            `json:"tariff_snapshot,omitempty"`
	TotalPrice         string            `json:"total_price"`
	PaymentMethod      string            `json:"payment_method,omitempty"`
	PaymentStatus      string            `json:"payment_status"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	Participants       []participantView `json:"participants,omitempty"`
}

func newBookingView(b store.Booking) bookingView {
	v := bookingView{
		ID:                 b.ID,
		UserID:             b.UserID,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		Status:             b.Status,
		NumberOfPlayers:    b.NumberOfPlayers,
		FindOpponents:      b.FindOpponents,
		OpponentsNeeded:    b.OpponentsNeeded,
		EquipmentNeeded:    b.EquipmentNeeded,
		EquipmentDetails:   b.EquipmentDetails,
		TariffSnapshot:     b.TariffSnapshot,
		TotalPrice:         b.TotalPrice,
		PaymentMethod:      b.PaymentMethod,
		PaymentStatus:      b.PaymentStatus,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
	}
	if b.CourtID.Valid {
		v.CourtID = b.CourtID.String
	}
	if b.CancelledAt.Valid {
		t := b.CancelledAt.Time
		v.CancelledAt = &t
	}
	return v
}
