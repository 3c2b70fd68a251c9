package booking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sportlink/backend/internal/db/store"
)

// Validation issue codes, stable across the API.
const (
	CodeNoSubscription      = "NO_SUBSCRIPTION"
	CodeFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
	CodeDayNotAllowed       = "DAY_NOT_ALLOWED"
	CodeDurationExceeded    = "DURATION_EXCEEDS_LIMIT"
	CodeWeeklyLimitReached  = "WEEKLY_LIMIT_REACHED"
	CodeWeeklyLimitNear     = "WEEKLY_LIMIT_NEAR"
)

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ValidationIssue is a single quota violation or warning.
type ValidationIssue struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// ValidationResult aggregates every violation for a proposed booking. All
// checks run (none short-circuit) so the client sees the full set — except
// when no active subscription exists, in which case the remaining checks are
// meaningless and are skipped entirely.
type ValidationResult struct {
	Valid         bool              `json:"valid"`
	Errors        []ValidationIssue `json:"errors"`
	Warnings      []ValidationIssue `json:"warnings"`
	DurationHours float64           `json:"duration_hours"`
	DayOfWeek     int               `json:"day_of_week"`

	// features carries the governing plan's capabilities to the admission
	// engine so later gates don't re-fetch the plan.
	features FeatureSet
}

func (r *ValidationResult) addError(issue ValidationIssue) {
	r.Errors = append(r.Errors, issue)
}

func (r *ValidationResult) addWarning(issue ValidationIssue) {
	r.Warnings = append(r.Warnings, issue)
}

// WeeklyBookingInfo describes a user's standing against their weekly quota.
type WeeklyBookingInfo struct {
	Unlimited         bool      `json:"unlimited"`
	BookingsPerWeek   int64     `json:"bookings_per_week"`
	CurrentWeekCount  int64     `json:"current_week_bookings"`
	RemainingBookings int64     `json:"remaining_bookings"`
	WeekStart         time.Time `json:"week_start"`
	WeekEnd           time.Time `json:"week_end"`
	LimitReached      bool      `json:"limit_reached"`
}

// QuotaEvaluator evaluates a proposed booking against the user's active
// subscription plan. The plan is re-fetched on every evaluation so
// administrator edits take effect immediately.
type QuotaEvaluator struct {
	clock Clock
}

func NewQuotaEvaluator(clock Clock) *QuotaEvaluator {
	if clock == nil {
		clock = realClock{}
	}
	return &QuotaEvaluator{clock: clock}
}

// Evaluate runs all quota checks for a proposed [start, end) booking. It
// never returns an error for business conditions — those land in the
// result. The error return is for storage failures only.
func (e *QuotaEvaluator) Evaluate(ctx context.Context, q *store.Queries, userID string, start, end time.Time) (*ValidationResult, error) {
	result := &ValidationResult{
		DurationHours: end.Sub(start).Seconds() / 3600,
		DayOfWeek:     isoWeekday(start),
	}

	now := e.clock.Now()
	sub, err := q.GetActiveSubscriptionForUser(ctx, store.GetActiveSubscriptionForUserParams{
		UserID: userID,
		Now:    now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result.addError(ValidationIssue{
				Code:    CodeNoSubscription,
				Message: "No active subscription found",
				Field:   "subscription",
			})
			result.Valid = false
			return result, nil
		}
		return nil, fmt.Errorf("load active subscription: %w", err)
	}

	// Re-fetch the governing plan live rather than trusting anything cached
	// on the grant.
	plan, err := q.GetSubscriptionPlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("load subscription plan %s: %w", sub.PlanID, err)
	}

	result.features = ParseFeatureSet(plan.Features)

	e.checkFeatureAccess(result, plan)
	e.checkDayRestriction(result, plan, start)
	e.checkDurationLimit(result, plan)
	if err := e.checkWeeklyLimit(ctx, q, result, plan, userID, start); err != nil {
		return nil, err
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (e *QuotaEvaluator) checkFeatureAccess(result *ValidationResult, plan store.SubscriptionPlan) {
	if !ParseFeatureSet(plan.Features).Has(FeatureCourtBooking) {
		result.addError(ValidationIssue{
			Code:    CodeFeatureNotAvailable,
			Message: "Your subscription does not include court booking",
			Field:   "subscription",
		})
	}
}

func (e *QuotaEvaluator) checkDayRestriction(result *ValidationResult, plan store.SubscriptionPlan, start time.Time) {
	allowed := parseAllowedDays(plan.AllowedDays)
	if len(allowed) == 0 {
		return
	}
	day := isoWeekday(start)
	for _, d := range allowed {
		if d == day {
			return
		}
	}

	names := make([]string, 0, len(allowed))
	for _, d := range allowed {
		if d >= 1 && d <= 7 {
			names = append(names, dayNames[d-1])
		}
	}
	result.addError(ValidationIssue{
		Code:    CodeDayNotAllowed,
		Message: fmt.Sprintf("Booking only allowed on: %s", strings.Join(names, ", ")),
		Field:   "start_time",
		Meta: map[string]interface{}{
			"allowed_days":       allowed,
			"requested_day":      day,
			"requested_day_name": dayNames[day-1],
		},
	})
}

func (e *QuotaEvaluator) checkDurationLimit(result *ValidationResult, plan store.SubscriptionPlan) {
	if plan.MaxDurationHrs <= 0 {
		return
	}
	if result.DurationHours > plan.MaxDurationHrs {
		result.addError(ValidationIssue{
			Code:    CodeDurationExceeded,
			Message: fmt.Sprintf("Maximum booking duration is %g hours. You requested %g hours", plan.MaxDurationHrs, result.DurationHours),
			Field:   "duration",
			Meta: map[string]interface{}{
				"max_duration_hours":       plan.MaxDurationHrs,
				"requested_duration_hours": result.DurationHours,
			},
		})
	}
}

func (e *QuotaEvaluator) checkWeeklyLimit(ctx context.Context, q *store.Queries, result *ValidationResult, plan store.SubscriptionPlan, userID string, start time.Time) error {
	if plan.BookingsPerWeek <= 0 {
		return nil
	}

	// The quota window is the calendar week containing the proposed start,
	// not the week the request is made in.
	weekStart, weekEnd := calendarWeek(start)

	count, err := q.CountUserBookingsInWindow(ctx, store.CountUserBookingsInWindowParams{
		UserID:      userID,
		WindowStart: weekStart,
		WindowEnd:   weekEnd,
	})
	if err != nil {
		return fmt.Errorf("count weekly bookings: %w", err)
	}

	if count >= plan.BookingsPerWeek {
		msg := fmt.Sprintf("Weekly booking limit (%d) reached. You have %d booking(s) this week",
			plan.BookingsPerWeek, count)

		meta := map[string]interface{}{
			"bookings_per_week":     plan.BookingsPerWeek,
			"current_week_bookings": count,
			"current_week_start":    weekStart.Format(time.RFC3339),
			"current_week_end":      weekEnd.Format(time.RFC3339),
			"next_available_date":   weekEnd.Format(time.RFC3339),
		}

		last, err := q.GetLatestUserBookingInWindow(ctx, store.GetLatestUserBookingInWindowParams{
			UserID:      userID,
			WindowStart: weekStart,
			WindowEnd:   weekEnd,
		})
		if err == nil {
			msg += fmt.Sprintf(". Last booking was on %s", last.StartTime.Format("Monday, January 2"))
			meta["last_booking_date"] = last.StartTime.Format(time.RFC3339)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load latest weekly booking: %w", err)
		}

		msg += fmt.Sprintf(". Next booking available from %s", weekEnd.Format("Monday, January 2"))

		result.addError(ValidationIssue{
			Code:    CodeWeeklyLimitReached,
			Message: msg,
			Field:   "weekly_limit",
			Meta:    meta,
		})
		return nil
	}

	if count == plan.BookingsPerWeek-1 {
		result.addWarning(ValidationIssue{
			Code: CodeWeeklyLimitNear,
			Message: fmt.Sprintf("This will be your last booking this week (%d/%d). Next booking available from %s",
				count+1, plan.BookingsPerWeek, weekEnd.Format("Monday, January 2")),
			Meta: map[string]interface{}{
				"next_available_date": weekEnd.Format(time.RFC3339),
			},
		})
	}
	return nil
}

// WeeklyInfo reports the user's standing against the weekly quota for the
// calendar week containing ref. Storage errors aside, a user without an
// active grant gets a nil info.
func (e *QuotaEvaluator) WeeklyInfo(ctx context.Context, q *store.Queries, userID string, ref time.Time) (*WeeklyBookingInfo, error) {
	sub, err := q.GetActiveSubscriptionForUser(ctx, store.GetActiveSubscriptionForUserParams{
		UserID: userID,
		Now:    e.clock.Now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load active subscription: %w", err)
	}

	plan, err := q.GetSubscriptionPlanByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("load subscription plan %s: %w", sub.PlanID, err)
	}

	if plan.BookingsPerWeek <= 0 {
		return &WeeklyBookingInfo{Unlimited: true}, nil
	}

	weekStart, weekEnd := calendarWeek(ref)
	count, err := q.CountUserBookingsInWindow(ctx, store.CountUserBookingsInWindowParams{
		UserID:      userID,
		WindowStart: weekStart,
		WindowEnd:   weekEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("count weekly bookings: %w", err)
	}

	remaining := plan.BookingsPerWeek - count
	if remaining < 0 {
		remaining = 0
	}
	return &WeeklyBookingInfo{
		BookingsPerWeek:   plan.BookingsPerWeek,
		CurrentWeekCount:  count,
		RemainingBookings: remaining,
		WeekStart:         weekStart,
		WeekEnd:           weekEnd,
		LimitReached:      count >= plan.BookingsPerWeek,
	}, nil
}

// isoWeekday returns the ISO-8601 weekday for t: Monday=1 .. Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// calendarWeek returns the [Monday 00:00, next Monday 00:00) window
// containing t, in t's own location.
func calendarWeek(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	weekStart := day.AddDate(0, 0, -(isoWeekday(t) - 1))
	return weekStart, weekStart.AddDate(0, 0, 7)
}

func parseAllowedDays(raw string) []int {
	if raw == "" {
		return nil
	}
	var days []int
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil
	}
	return days
}
