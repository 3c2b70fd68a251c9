// internal/api/courts/handlers.go
package courts

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

type createCourtRequest struct {
	Name       string                 `json:"name"`
	Address    string                 `json:"address"`
	Latitude   float64                `json:"latitude"`
	Longitude  float64                `json:"longitude"`
	CourtType  string                 `json:"court_type"`
	Attributes map[string]interface{} `json:"attributes"`
}

// POST /api/v1/courts
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req createCourtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.CourtType == "" {
		api.RespondError(w, http.StatusBadRequest, "name and court_type are required")
		return
	}

	attributes := "{}"
	if len(req.Attributes) > 0 {
		data, err := json.Marshal(req.Attributes)
		if err != nil {
			api.RespondError(w, http.StatusBadRequest, "invalid attributes")
			return
		}
		attributes = string(data)
	}

	id := uuid.NewString()
	if err := database.Queries.CreateCourt(r.Context(), store.CreateCourtParams{
		ID:         id,
		Name:       req.Name,
		Address:    req.Address,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		CourtType:  req.CourtType,
		Attributes: attributes,
	}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create court")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	court, err := database.Queries.GetCourtByID(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", id).Msg("Failed to reload court")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	api.RespondJSON(w, http.StatusCreated, newCourtView(court))
}

// GET /api/v1/courts?type=
func HandleList(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	courts, err := database.Queries.ListActiveCourts(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to list courts")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	views := make([]courtView, 0, len(courts))
	for _, c := range courts {
		views = append(views, newCourtView(c))
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"courts": views})
}

// GET /api/v1/courts/{id}
func HandleGet(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	id := r.PathValue("id")
	court, err := database.Queries.GetCourtByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "court not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", id).Msg("Failed to load court")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	tariffs, err := database.Queries.ListCourtTariffs(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", id).Msg("Failed to load tariffs")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	view := newCourtView(court)
	for _, t := range tariffs {
		view.Tariffs = append(view.Tariffs, newTariffView(t))
	}
	api.RespondJSON(w, http.StatusOK, view)
}

type createTariffRequest struct {
	Name            string     `json:"name"`
	BasePrice       string     `json:"base_price"`
	PriceType       string     `json:"price_type"`
	MinBookingHours int64      `json:"min_booking_hours"`
	MaxBookingHours int64      `json:"max_booking_hours"`
	ActiveFrom      *time.Time `json:"active_from"`
	ActiveTo        *time.Time `json:"active_to"`
	Position        int64      `json:"position"`
}

// POST /api/v1/courts/{id}/tariffs
func HandleCreateTariff(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req createTariffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.BasePrice == "" {
		api.RespondError(w, http.StatusBadRequest, "name and base_price are required")
		return
	}
	switch req.PriceType {
	case booking.PricePerHour, booking.PricePerDay, booking.PricePerSlot:
	default:
		api.RespondError(w, http.StatusBadRequest, "price_type must be per_hour, per_day, or per_slot")
		return
	}

	courtID := r.PathValue("id")
	if _, err := database.Queries.GetCourtByID(r.Context(), courtID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "court not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", courtID).Msg("Failed to load court")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var activeFrom, activeTo interface{}
	if req.ActiveFrom != nil {
		activeFrom = *req.ActiveFrom
	}
	if req.ActiveTo != nil {
		activeTo = *req.ActiveTo
	}

	tariffID, err := database.Queries.CreateCourtTariff(r.Context(), store.CreateCourtTariffParams{
		CourtID:         courtID,
		Name:            req.Name,
		BasePrice:       req.BasePrice,
		PriceType:       req.PriceType,
		MinBookingHours: req.MinBookingHours,
		MaxBookingHours: req.MaxBookingHours,
		ActiveFrom:      activeFrom,
		ActiveTo:        activeTo,
		Position:        req.Position,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", courtID).Msg("Failed to create tariff")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	api.RespondJSON(w, http.StatusCreated, map[string]interface{}{"id": tariffID})
}

// GET /api/v1/courts/{id}/availability?from=&to=
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	courtID := r.PathValue("id")
	slots, err := database.Queries.ListSlotsForWindow(r.Context(), store.ListSlotsForWindowParams{
		CourtID:   courtID,
		EndTime:   to,
		StartTime: from,
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", courtID).Msg("Failed to list slots")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, newSlotView(s))
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"slots": views})
}

type blockSlotRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// POST /api/v1/courts/{id}/block
//
// Places a maintenance hold on a window; new bookings over it are refused.
func HandleBlockSlot(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req blockSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.StartTime.Before(req.EndTime) {
		api.RespondError(w, http.StatusBadRequest, "start_time must be before end_time")
		return
	}

	courtID := r.PathValue("id")
	if _, err := database.Queries.GetCourtByID(r.Context(), courtID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "court not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", courtID).Msg("Failed to load court")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	slotID, err := database.Queries.CreateAvailabilitySlot(r.Context(), store.CreateAvailabilitySlotParams{
		CourtID:   courtID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    "blocked",
	})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("court_id", courtID).Msg("Failed to block slot")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	api.RespondJSON(w, http.StatusCreated, map[string]interface{}{"id": slotID})
}

// GET /api/v1/courts/{id}/conflicts?from=&to=&exclude=
//
// Advisory conflict check; the authoritative check re-runs inside booking
// admission. The optional exclude parameter names a booking to leave out.
func HandleConflictCheck(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	result, err := engine.CheckConflict(r.Context(), r.PathValue("id"), from, to, r.URL.Query().Get("exclude"))
	if err != nil {
		api.RespondEngineError(w, r, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, result)
}

func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "from must be RFC3339")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "to must be RFC3339")
		return time.Time{}, time.Time{}, false
	}
	if !from.Before(to) {
		api.RespondError(w, http.StatusBadRequest, "from must be before to")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
