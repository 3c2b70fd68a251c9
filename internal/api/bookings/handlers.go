// internal/api/bookings/handlers.go
package bookings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/api"
	"github.com/sportlink/backend/internal/booking"
	appdb "github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
)

const maxListLimit = 50

var (
	database *appdb.DB
	engine   *booking.Engine
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB, eng *booking.Engine) {
	if db == nil || eng == nil {
		return
	}
	initOnce.Do(func() {
		database = db
		engine = eng
	})
}

type createRequest struct {
	UserID           string           `json:"user_id"`
	CourtID          string           `json:"court_id"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	NumberOfPlayers  int64            `json:"number_of_players"`
	FindOpponents    bool             `json:"find_opponents"`
	OpponentsNeeded  int64            `json:"opponents_needed"`
	EquipmentNeeded  bool             `json:"equipment_needed"`
	EquipmentDetails map[string]int64 `json:"equipment_details"`
	PaymentMethod    string           `json:"payment_method"`
}

// POST /api/v1/bookings
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.CourtID == "" {
		api.RespondError(w, http.StatusBadRequest, "user_id and court_id are required")
		return
	}
	if req.NumberOfPlayers == 0 {
		req.NumberOfPlayers = 2
	}

	result, err := engine.Create(r.Context(), booking.CreateRequest{
		UserID:           req.UserID,
		CourtID:          req.CourtID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		NumberOfPlayers:  req.NumberOfPlayers,
		FindOpponents:    req.FindOpponents,
		OpponentsNeeded:  req.OpponentsNeeded,
		EquipmentNeeded:  req.EquipmentNeeded,
		EquipmentDetails: req.EquipmentDetails,
		PaymentMethod:    req.PaymentMethod,
	})
	if err != nil {
		api.RespondEngineError(w, r, err)
		return
	}

	api.RespondJSON(w, http.StatusCreated, createResponse{
		Booking:  newBookingView(result.Booking),
		Warnings: result.Warnings,
	})
}

type createResponse struct {
	Booking  bookingView               `json:"booking"`
	Warnings []booking.ValidationIssue `json:"warnings,omitempty"`
}

// GET /api/v1/bookings/{id}
func HandleGet(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	id := r.PathValue("id")
	b, err := database.Queries.GetBookingByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "booking not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("booking_id", id).Msg("Failed to load booking")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	participants, err := database.Queries.ListBookingParticipants(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("booking_id", id).Msg("Failed to load participants")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	view := newBookingView(b)
	for _, p := range participants {
		view.Participants = append(view.Participants, participantView{
			UserID:    p.ID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Nickname:  p.Nickname,
		})
	}
	api.RespondJSON(w, http.StatusOK, view)
}

// GET /api/v1/bookings?user_id=&status=&limit=
func HandleList(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := int64(maxListLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			api.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	rows, err := database.Queries.ListUserBookings(r.Context(), store.ListUserBookingsParams{
		UserID: userID,
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("user_id", userID).Msg("Failed to list bookings")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	views := make([]bookingView, 0, len(rows))
	for _, b := range rows {
		views = append(views, newBookingView(b))
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"bookings": views})
}

type cancelRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// POST /api/v1/bookings/{id}/cancel
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		api.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	b, err := engine.Cancel(r.Context(), r.PathValue("id"), req.UserID, req.Reason)
	if err != nil {
		api.RespondEngineError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, newBookingView(b))
}

// POST /api/v1/bookings/{id}/confirm
func HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	b, err := engine.Confirm(r.Context(), r.PathValue("id"))
	if err != nil {
		api.RespondEngineError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, newBookingView(b))
}

// POST /api/v1/bookings/{id}/complete
func HandleComplete(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	b, err := engine.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		api.RespondEngineError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, newBookingView(b))
}

type validateRequest struct {
	UserID    string    `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// POST /api/v1/bookings/validate
//
// Dry-run quota evaluation: reports every violation and warning without
// creating anything.
func HandleValidate(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		api.RespondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !req.StartTime.Before(req.EndTime) {
		api.RespondError(w, http.StatusBadRequest, "start_time must be before end_time")
		return
	}

	result, err := engine.EvaluateQuota(r.Context(), req.UserID, req.StartTime, req.EndTime)
	if err != nil {
		api.RespondEngineError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, result)
}

// GET /api/v1/users/{id}/weekly-quota
func HandleWeeklyQuota(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ref := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			api.RespondError(w, http.StatusBadRequest, "at must be RFC3339")
			return
		}
		ref = t
	}

	info, err := engine.WeeklyInfo(r.Context(), r.PathValue("id"), ref)
	if err != nil {
		api.RespondEngineError(w, r, err)
		return
	}
	if info == nil {
		api.RespondError(w, http.StatusNotFound, "no active subscription")
		return
	}
	api.RespondJSON(w, http.StatusOK, info)
}
