package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sportlink/backend/internal/db/store"
)

// Tariff price types.
const (
	PricePerHour = "per_hour"
	PricePerDay  = "per_day"
	PricePerSlot = "per_slot"
)

// TariffSnapshot is the pricing captured onto a booking at admission time.
// Later tariff edits never change what an existing booking was charged.
type TariffSnapshot struct {
	TariffID   int64  `json:"tariff_id"`
	Name       string `json:"name"`
	BasePrice  string `json:"base_price"`
	PriceType  string `json:"price_type"`
	CapturedAt string `json:"captured_at"`
}

func (s TariffSnapshot) Marshal() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal tariff snapshot: %w", err)
	}
	return string(data), nil
}

// UnmarshalTariffSnapshot decodes a stored snapshot; an empty document
// yields a zero snapshot.
func UnmarshalTariffSnapshot(raw string) (TariffSnapshot, error) {
	var s TariffSnapshot
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("unmarshal tariff snapshot: %w", err)
	}
	return s, nil
}

// selectTariff picks the governing tariff for a booking starting at start:
// the first tariff in position order whose validity window covers the start.
// A nil ActiveFrom/ActiveTo bound is open-ended.
func selectTariff(tariffs []store.CourtTariff, start time.Time) (store.CourtTariff, bool) {
	for _, t := range tariffs {
		if t.ActiveFrom.Valid && start.Before(t.ActiveFrom.Time) {
			continue
		}
		if t.ActiveTo.Valid && !start.Before(t.ActiveTo.Time) {
			continue
		}
		return t, true
	}
	return store.CourtTariff{}, false
}

// priceFor computes the charge for a window under a tariff. Hourly tariffs
// charge by exact fractional hours; day and slot tariffs charge the base
// price flat.
func priceFor(t store.CourtTariff, start, end time.Time) (decimal.Decimal, error) {
	base, err := decimal.NewFromString(t.BasePrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("tariff %d has invalid base price %q: %w", t.ID, t.BasePrice, err)
	}
	switch t.PriceType {
	case PricePerHour:
		hours := decimal.NewFromFloat(end.Sub(start).Hours())
		return base.Mul(hours).Round(2), nil
	case PricePerDay, PricePerSlot:
		return base, nil
	default:
		return decimal.Zero, fmt.Errorf("tariff %d has unknown price type %q", t.ID, t.PriceType)
	}
}

// validateTariffDuration enforces the tariff's booking-length bounds. Zero
// bounds are unenforced.
func validateTariffDuration(t store.CourtTariff, start, end time.Time) *AdmissionError {
	hours := end.Sub(start).Hours()
	if t.MinBookingHours > 0 && hours < float64(t.MinBookingHours) {
		return newError(KindInvalidDuration,
			"minimum booking duration for this court is %d hour(s)", t.MinBookingHours)
	}
	if t.MaxBookingHours > 0 && hours > float64(t.MaxBookingHours) {
		return newError(KindInvalidDuration,
			"maximum booking duration for this court is %d hour(s)", t.MaxBookingHours)
	}
	return nil
}

// resolvePricing loads the court's tariffs, selects the governing one, and
// returns the snapshot plus total price for the window. A court with no
// applicable tariff books free of charge with an empty snapshot.
func resolvePricing(ctx context.Context, q *store.Queries, courtID string, start, end time.Time, now time.Time) (snapshot string, total string, admErr *AdmissionError, err error) {
	tariffs, err := q.ListCourtTariffs(ctx, courtID)
	if err != nil {
		return "", "", nil, fmt.Errorf("list court tariffs: %w", err)
	}

	tariff, ok := selectTariff(tariffs, start)
	if !ok {
		return "", "0.00", nil, nil
	}

	if admErr := validateTariffDuration(tariff, start, end); admErr != nil {
		return "", "", admErr, nil
	}

	price, err := priceFor(tariff, start, end)
	if err != nil {
		return "", "", nil, err
	}

	snap := TariffSnapshot{
		TariffID:   tariff.ID,
		Name:       tariff.Name,
		BasePrice:  tariff.BasePrice,
		PriceType:  tariff.PriceType,
		CapturedAt: now.UTC().Format(time.RFC3339),
	}
	raw, err := snap.Marshal()
	if err != nil {
		return "", "", nil, err
	}
	// StringFixed keeps the trailing zeros String would trim.
	return raw, price.StringFixed(2), nil, nil
}
