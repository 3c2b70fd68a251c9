package store

import (
	"context"
	"time"
)

const createSubscriptionPlan = `
INSERT INTO subscription_plans (id, name, description, monthly_price, yearly_price, currency, features, bookings_per_week, max_duration_hours, allowed_days, position, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
`

type CreateSubscriptionPlanParams struct {
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
}

func (q *Queries) CreateSubscriptionPlan(ctx context.Context, arg CreateSubscriptionPlanParams) error {
	_, err := q.db.ExecContext(ctx, createSubscriptionPlan,
		arg.ID, arg.Name, arg.Description, arg.MonthlyPrice, arg.YearlyPrice, arg.Currency,
		arg.Features, arg.BookingsPerWeek, arg.MaxDurationHrs, arg.AllowedDays, arg.Position)
	return err
}

const getSubscriptionPlanByID = `
SELECT id, name, description, monthly_price, yearly_price, currency, features, bookings_per_week, max_duration_hours, allowed_days, position, is_active, created_at, updated_at
FROM subscription_plans
WHERE id = ?
`

func (q *Queries) GetSubscriptionPlanByID(ctx context.Context, id string) (SubscriptionPlan, error) {
	row := q.db.QueryRowContext(ctx, getSubscriptionPlanByID, id)
	return scanSubscriptionPlan(row)
}

const listActiveSubscriptionPlans = `
SELECT id, name, description, monthly_price, yearly_price, currency, features, bookings_per_week, max_duration_hours, allowed_days, position, is_active, created_at, updated_at
FROM subscription_plans
WHERE is_active = 1
ORDER BY position, created_at
`

func (q *Queries) ListActiveSubscriptionPlans(ctx context.Context) ([]SubscriptionPlan, error) {
	rows, err := q.db.QueryContext(ctx, listActiveSubscriptionPlans)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []SubscriptionPlan
	for rows.Next() {
		var p SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.MonthlyPrice, &p.YearlyPrice,
			&p.Currency, &p.Features, &p.BookingsPerWeek, &p.MaxDurationHrs, &p.AllowedDays,
			&p.Position, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

const updateSubscriptionPlanLimits = `
UPDATE subscription_plans
SET features = ?, bookings_per_week = ?, max_duration_hours = ?, allowed_days = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdateSubscriptionPlanLimitsParams struct {
	ID              string
	Features        string
	BookingsPerWeek int64
	MaxDurationHrs  float64
	AllowedDays     string
}

func (q *Queries) UpdateSubscriptionPlanLimits(ctx context.Context, arg UpdateSubscriptionPlanLimitsParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateSubscriptionPlanLimits,
		arg.Features, arg.BookingsPerWeek, arg.MaxDurationHrs, arg.AllowedDays, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createUserSubscription = `
INSERT INTO user_subscriptions (id, user_id, plan_id, start_date, end_date, status, amount_paid, payment_method)
VALUES (?, ?, ?, ?, ?, 'active', ?, ?)
`

type CreateUserSubscriptionParams struct {
	ID            string
	UserID        string
	PlanID        string
	StartDate     time.Time
	EndDate       time.Time
	AmountPaid    string
	PaymentMethod string
}

func (q *Queries) CreateUserSubscription(ctx context.Context, arg CreateUserSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, createUserSubscription,
		arg.ID, arg.UserID, arg.PlanID, arg.StartDate, arg.EndDate, arg.AmountPaid, arg.PaymentMethod)
	return err
}

const getActiveSubscriptionForUser = `
SELECT id, user_id, plan_id, start_date, end_date, status, amount_paid, payment_method, cancelled_at, created_at, updated_at
FROM user_subscriptions
WHERE user_id = ?
  AND status = 'active'
  AND end_date >= ?
LIMIT 1
`

type GetActiveSubscriptionForUserParams struct {
	UserID string
	Now    time.Time
}

func (q *Queries) GetActiveSubscriptionForUser(ctx context.Context, arg GetActiveSubscriptionForUserParams) (UserSubscription, error) {
	row := q.db.QueryRowContext(ctx, getActiveSubscriptionForUser, arg.UserID, arg.Now)
	return scanUserSubscription(row)
}

const getUserSubscriptionByID = `
SELECT id, user_id, plan_id, start_date, end_date, status, amount_paid, payment_method, cancelled_at, created_at, updated_at
FROM user_subscriptions
WHERE id = ?
`

func (q *Queries) GetUserSubscriptionByID(ctx context.Context, id string) (UserSubscription, error) {
	row := q.db.QueryRowContext(ctx, getUserSubscriptionByID, id)
	return scanUserSubscription(row)
}

const cancelUserSubscription = `
UPDATE user_subscriptions
SET status = 'cancelled', cancelled_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'active'
`

type CancelUserSubscriptionParams struct {
	ID          string
	CancelledAt time.Time
}

func (q *Queries) CancelUserSubscription(ctx context.Context, arg CancelUserSubscriptionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, cancelUserSubscription, arg.CancelledAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const cancelActiveSubscriptionsForUser = `
UPDATE user_subscriptions
SET status = 'cancelled', cancelled_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE user_id = ? AND status = 'active'
`

type CancelActiveSubscriptionsForUserParams struct {
	UserID      string
	CancelledAt time.Time
}

func (q *Queries) CancelActiveSubscriptionsForUser(ctx context.Context, arg CancelActiveSubscriptionsForUserParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, cancelActiveSubscriptionsForUser, arg.CancelledAt, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const expireSubscriptionsBefore = `
UPDATE user_subscriptions
SET status = 'expired', updated_at = CURRENT_TIMESTAMP
WHERE status = 'active' AND end_date < ?
`

func (q *Queries) ExpireSubscriptionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, expireSubscriptionsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscriptionPlan(row rowScanner) (SubscriptionPlan, error) {
	var p SubscriptionPlan
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.MonthlyPrice, &p.YearlyPrice,
		&p.Currency, &p.Features, &p.BookingsPerWeek, &p.MaxDurationHrs, &p.AllowedDays,
		&p.Position, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanUserSubscription(row rowScanner) (UserSubscription, error) {
	var s UserSubscription
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &s.Status,
		&s.AmountPaid, &s.PaymentMethod, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
