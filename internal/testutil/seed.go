package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
)

// PlanOpts shapes a seeded subscription plan. Zero values mean unlimited /
// unrestricted for the corresponding check.
type PlanOpts struct {
	Features        map[string]bool
	BookingsPerWeek int64
	MaxDurationHrs  float64
	AllowedDays     []int
}

// SeedUser inserts a user and returns its ID.
func SeedUser(t *testing.T, database *db.DB, firstName string) string {
	t.Helper()
	id := uuid.NewString()
	err := database.Queries.CreateUser(context.Background(), store.CreateUserParams{
		ID:        id,
		FirstName: firstName,
		LastName:  "Tester",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

// SeedCourt inserts an active court and returns its ID.
func SeedCourt(t *testing.T, database *db.DB, name string) string {
	t.Helper()
	id := uuid.NewString()
	err := database.Queries.CreateCourt(context.Background(), store.CreateCourtParams{
		ID:         id,
		Name:       name,
		Address:    "1 Test Lane",
		CourtType:  "tennis",
		Attributes: "{}",
	})
	if err != nil {
		t.Fatalf("seed court: %v", err)
	}
	return id
}

// SeedPlan inserts a subscription plan and returns its ID.
func SeedPlan(t *testing.T, database *db.DB, name string, opts PlanOpts) string {
	t.Helper()

	features := "{}"
	if opts.Features != nil {
		data, err := json.Marshal(opts.Features)
		if err != nil {
			t.Fatalf("marshal features: %v", err)
		}
		features = string(data)
	}

	allowedDays := ""
	if len(opts.AllowedDays) > 0 {
		data, err := json.Marshal(opts.AllowedDays)
		if err != nil {
			t.Fatalf("marshal allowed days: %v", err)
		}
		allowedDays = string(data)
	}

	id := uuid.NewString()
	err := database.Queries.CreateSubscriptionPlan(context.Background(), store.CreateSubscriptionPlanParams{
		ID:              id,
		Name:            name,
		MonthlyPrice:    "29.90",
		YearlyPrice:     "299.00",
		Currency:        "EUR",
		Features:        features,
		BookingsPerWeek: opts.BookingsPerWeek,
		MaxDurationHrs:  opts.MaxDurationHrs,
		AllowedDays:     allowedDays,
	})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return id
}

// SeedSubscription grants userID an active subscription on planID valid for
// a year around now.
func SeedSubscription(t *testing.T, database *db.DB, userID, planID string, now time.Time) string {
	t.Helper()
	id := uuid.NewString()
	err := database.Queries.CreateUserSubscription(context.Background(), store.CreateUserSubscriptionParams{
		ID:            id,
		UserID:        userID,
		PlanID:        planID,
		StartDate:     now.AddDate(0, -1, 0),
		EndDate:       now.AddDate(1, 0, 0),
		AmountPaid:    "29.90",
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return id
}

// SeedTariff attaches an hourly tariff to courtID and returns its row ID.
func SeedTariff(t *testing.T, database *db.DB, courtID, basePrice string) int64 {
	t.Helper()
	id, err := database.Queries.CreateCourtTariff(context.Background(), store.CreateCourtTariffParams{
		CourtID:   courtID,
		Name:      "Standard",
		BasePrice: basePrice,
		PriceType: "per_hour",
	})
	if err != nil {
		t.Fatalf("seed tariff: %v", err)
	}
	return id
}
