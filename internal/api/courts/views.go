package courts

import (
	"encoding/json"
	"time"

	"github.com/sportlink/backend/internal/db/store"
)

type courtView struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Address    string                 `json:"address,omitempty"`
	Latitude   float64                `json:"latitude,omitempty"`
	Longitude  float64                `json:"longitude,omitempty"`
	CourtType  string                 `json:"court_type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	IsActive   bool                   `json:"is_active"`
	Tariffs    []tariffView           `json:"tariffs,omitempty"`
}

func newCourtView(c store.Court) courtView {
	v := courtView{
		ID:        c.ID,
		Name:      c.Name,
		Address:   c.Address,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		CourtType: c.CourtType,
		IsActive:  c.IsActive,
	}
	if c.Attributes != "" {
		var attrs map[string]interface{}
		if err := json.Unmarshal([]byte(c.Attributes), &attrs); err == nil {
			v.Attributes = attrs
		}
	}
	return v
}

type tariffView struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	BasePrice       string     `json:"base_price"`
	PriceType       string     `json:"price_type"`
	MinBookingHours int64      `json:"min_booking_hours,omitempty"`
	MaxBookingHours int64      `json:"max_booking_hours,omitempty"`
	ActiveFrom      *time.Time `json:"active_from,omitempty"`
	ActiveTo        *time.Time `json:"active_to,omitempty"`
	Position        int64      `json:"position"`
}

func newTariffView(t store.CourtTariff) tariffView {
	v := tariffView{
		ID:              t.ID,
		Name:            t.Name,
		BasePrice:       t.BasePrice,
		PriceType:       t.PriceType,
		MinBookingHours: t.MinBookingHours,
		MaxBookingHours: t.MaxBookingHours,
		Position:        t.Position,
	}
	if t.ActiveFrom.Valid {
		from := t.ActiveFrom.Time
		v.ActiveFrom = &from
	}
	if t.ActiveTo.Valid {
		to := t.ActiveTo.Time
		v.ActiveTo = &to
	}
	return v
}

type slotView struct {
	ID        int64     `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	BookingID string    `json:"booking_id,omitempty"`
}

func newSlotView(s store.AvailabilitySlot) slotView {
	v := slotView{
		ID:        s.ID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Status:    s.Status,
	}
	if s.BookingID.Valid {
		v.BookingID = s.BookingID.String
	}
	return v
}
