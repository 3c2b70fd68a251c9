// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sportlink/backend/internal/api"
	"github.com/sportlink/backend/internal/api/bookings"
	"github.com/sportlink/backend/internal/api/courts"
	"github.com/sportlink/backend/internal/api/matches"
	"github.com/sportlink/backend/internal/api/subscriptions"
	"github.com/sportlink/backend/internal/api/users"
	"github.com/sportlink/backend/internal/booking"
	"github.com/sportlink/backend/internal/config"
	"github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/matching"
)

func newServer(cfg *config.Config, database *db.DB) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	matcher := matching.NewEngine(database)
	engine := booking.NewEngine(database, cfg.Booking, booking.SystemClock(), matcher)

	bookings.InitHandlers(database, engine)
	courts.InitHandlers(database, engine)
	subscriptions.InitHandlers(database)
	matches.InitHandlers(database, matcher)
	users.InitHandlers(database)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Users
	mux.HandleFunc("POST /api/v1/users", users.HandleCreate)
	mux.HandleFunc("GET /api/v1/users/{id}", users.HandleGet)
	mux.HandleFunc("GET /api/v1/users/{id}/subscription", subscriptions.HandleActiveSubscription)
	mux.HandleFunc("GET /api/v1/users/{id}/weekly-quota", bookings.HandleWeeklyQuota)
	mux.HandleFunc("GET /api/v1/users/{id}/matches", matches.HandleListForUser)

	// Courts
	mux.HandleFunc("POST /api/v1/courts", courts.HandleCreate)
	mux.HandleFunc("GET /api/v1/courts", courts.HandleList)
	mux.HandleFunc("GET /api/v1/courts/{id}", courts.HandleGet)
	mux.HandleFunc("POST /api/v1/courts/{id}/tariffs", courts.HandleCreateTariff)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", courts.HandleAvailability)
	mux.HandleFunc("POST /api/v1/courts/{id}/block", courts.HandleBlockSlot)
	mux.HandleFunc("GET /api/v1/courts/{id}/conflicts", courts.HandleConflictCheck)

	// Subscription plans and grants
	mux.HandleFunc("POST /api/v1/subscription-plans", subscriptions.HandleCreatePlan)
	mux.HandleFunc("GET /api/v1/subscription-plans", subscriptions.HandleListPlans)
	mux.HandleFunc("POST /api/v1/subscriptions", subscriptions.HandleSubscribe)
	mux.HandleFunc("POST /api/v1/subscriptions/{id}/cancel", subscriptions.HandleCancelSubscription)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleCreate)
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleList)
	mux.HandleFunc("POST /api/v1/bookings/validate", bookings.HandleValidate)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleCancel)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", bookings.HandleConfirm)
	mux.HandleFunc("POST /api/v1/bookings/{id}/complete", bookings.HandleComplete)

	// Opponent matching
	mux.HandleFunc("POST /api/v1/bookings/{id}/match", matches.HandleTryMatch)
	mux.HandleFunc("GET /api/v1/bookings/{id}/matches", matches.HandleListForBooking)
}
