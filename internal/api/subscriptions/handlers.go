// internal/api/subscriptions/handlers.go
package subscriptions

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/api"
	"github.com/sportlink/backend/internal/booking"
	appdb "github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
)

var (
	database *appdb.DB
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB) {
	if db == nil {
		return
	}
	initOnce.Do(func() {
		database = db
	})
}

type createPlanRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	MonthlyPrice    string          `json:"monthly_price"`
	YearlyPrice     string          `json:"yearly_price"`
	Currency        string          `json:"currency"`
	Features        map[string]bool `json:"features"`
	BookingsPerWeek int64           `json:"bookings_per_week"`
	MaxDurationHrs  float64         `json:"max_duration_hours"`
	AllowedDays     []int           `json:"allowed_days"`
	Position        int64           `json:"position"`
}

// POST /api/v1/subscription-plans
func HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.RespondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	features := booking.FeatureSet{}
	for f, on := range req.Features {
		features[booking.Feature(f)] = on
	}

	allowedDays := ""
	if len(req.AllowedDays) > 0 {
		for _, d := range req.AllowedDays {
			if d < 1 || d > 7 {
				api.RespondError(w, http.StatusBadRequest, "allowed_days entries must be 1-7")
				return
			}
		}
		data, _ := json.Marshal(req.AllowedDays)
		allowedDays = string(data)
	}

	id := uuid.NewString()
	if err := database.Queries.CreateSubscriptionPlan(r.Context(), store.CreateSubscriptionPlanParams{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		MonthlyPrice:    req.MonthlyPrice,
		YearlyPrice:     req.YearlyPrice,
		Currency:        req.Currency,
		Features:        booking.MarshalFeatureSet(features),
		BookingsPerWeek: req.BookingsPerWeek,
		MaxDurationHrs:  req.MaxDurationHrs,
		AllowedDays:     allowedDays,
		Position:        req.Position,
	}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create plan")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	plan, err := database.Queries.GetSubscriptionPlanByID(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("plan_id", id).Msg("Failed to reload plan")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	api.RespondJSON(w, http.StatusCreated, newPlanView(plan))
}

// GET /api/v1/subscription-plans
func HandleListPlans(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	plans, err := database.Queries.ListActiveSubscriptionPlans(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list plans")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		views = append(views, newPlanView(p))
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"plans": views})
}

type subscribeRequest struct {
	UserID        string `json:"user_id"`
	PlanID        string `json:"plan_id"`
	Months        int    `json:"months"`
	AmountPaid    string `json:"amount_paid"`
	PaymentMethod string `json:"payment_method"`
}

// POST /api/v1/subscriptions
//
// Subscribing replaces any existing active grant; the old one is cancelled
// in the same transaction so the single-active-grant index never trips.
func HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.PlanID == "" {
		api.RespondError(w, http.StatusBadRequest, "user_id and plan_id are required")
		return
	}
	if req.Months <= 0 {
		req.Months = 1
	}

	if _, err := database.Queries.GetUserByID(r.Context(), req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to load user")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if _, err := database.Queries.GetSubscriptionPlanByID(r.Context(), req.PlanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "plan not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to load plan")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	err := database.RunInTx(r.Context(), func(txDB *appdb.DB) error {
		if _, err := txDB.Queries.CancelActiveSubscriptionsForUser(r.Context(), store.CancelActiveSubscriptionsForUserParams{
			UserID:      req.UserID,
			CancelledAt: now,
		}); err != nil {
			return err
		}
		return txDB.Queries.CreateUserSubscription(r.Context(), store.CreateUserSubscriptionParams{
			ID:            id,
			UserID:        req.UserID,
			PlanID:        req.PlanID,
			StartDate:     now,
			EndDate:       now.AddDate(0, req.Months, 0),
			AmountPaid:    req.AmountPaid,
			PaymentMethod: req.PaymentMethod,
		})
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create subscription")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	sub, err := database.Queries.GetUserSubscriptionByID(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to reload subscription")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	api.RespondJSON(w, http.StatusCreated, newSubscriptionView(sub))
}

// POST /api/v1/subscriptions/{id}/cancel
func HandleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	id := r.PathValue("id")
	affected, err := database.Queries.CancelUserSubscription(r.Context(), store.CancelUserSubscriptionParams{
		ID:          id,
		CancelledAt: time.Now().UTC(),
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("subscription_id", id).Msg("Failed to cancel subscription")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if affected == 0 {
		api.RespondError(w, http.StatusConflict, "subscription is not active")
		return
	}

	sub, err := database.Queries.GetUserSubscriptionByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "subscription not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to reload subscription")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	api.RespondJSON(w, http.StatusOK, newSubscriptionView(sub))
}

// GET /api/v1/users/{id}/subscription
func HandleActiveSubscription(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	sub, err := database.Queries.GetActiveSubscriptionForUser(r.Context(), store.GetActiveSubscriptionForUserParams{
		UserID: r.PathValue("id"),
		Now:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "no active subscription")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to load subscription")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	api.RespondJSON(w, http.StatusOK, newSubscriptionView(sub))
}
