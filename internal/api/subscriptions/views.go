package subscriptions

import (
	"encoding/json"
	"time"

	"github.com/sportlink/backend/internal/db/store"
)

type planView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	MonthlyPrice    string          `json:"monthly_price"`
	YearlyPrice     string          `json:"yearly_price,omitempty"`
	Currency        string          `json:"currency"`
	Features        map[string]bool `json:"features"`
	BookingsPerWeek int64           `json:"bookings_per_week"`
	MaxDurationHrs  float64         `json:"max_duration_hours"`
	AllowedDays     []int           `json:"allowed_days,omitempty"`
	Position        int64           `json:"position"`
}

func newPlanView(p store.SubscriptionPlan) planView {
	v := planView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		MonthlyPrice:    p.MonthlyPrice,
		YearlyPrice:     p.YearlyPrice,
		Currency:        p.Currency,
		Features:        map[string]bool{},
		BookingsPerWeek: p.BookingsPerWeek,
		MaxDurationHrs:  p.MaxDurationHrs,
		Position:        p.Position,
	}
	if p.Features != "" {
		_ = json.Unmarshal([]byte(p.Features), &v.Features)
	}
	if p.AllowedDays != "" {
		_ = json.Unmarshal([]byte(p.AllowedDays), &v.AllowedDays)
	}
	return v
}

type subscriptionView struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	PlanID        string     `json:"plan_id"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	Status        string     `json:"status"`
	AmountPaid    string     `json:"amount_paid,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func newSubscriptionView(s store.UserSubscription) subscriptionView {
	v := subscriptionView{
		ID:            s.ID,
		UserID:        s.UserID,
		PlanID:        s.PlanID,
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		Status:        s.Status,
		AmountPaid:    s.AmountPaid,
		PaymentMethod: s.PaymentMethod,
	}
	if s.CancelledAt.Valid {
		t := s.CancelledAt.Time
		v.CancelledAt = &t
	}
	return v
}
