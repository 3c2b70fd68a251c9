// internal/api/matches/handlers.go
package matches

import (
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/api"
	appdb "github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
	"github.com/sportlink/backend/internal/matching"
)

var (
	database *appdb.DB
	engine   *matching.Engine
	initOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB, eng *matching.Engine) {
	if db == nil || eng == nil {
		return
	}
	initOnce.Do(func() {
		database = db
		engine = eng
	})
}

// POST /api/v1/bookings/{id}/match
//
// Triggers a matching pass for a booking that is still seeking opponents.
func HandleTryMatch(w http.ResponseWriter, r *http.Request) {
	if engine == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	id := r.PathValue("id")
	if _, err := database.Queries.GetBookingByID(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "booking not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("booking_id", id).Msg("Failed to load booking")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	result, err := engine.TryMatch(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("booking_id", id).Msg("Matching failed")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	created := make(map[string]bool, len(result.Matches))
	for _, m := range result.Matches {
		created[m.ID] = true
	}

	rows, err := database.Queries.ListMatchDetailsForBooking(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("booking_id", id).Msg("Failed to load match details")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	views := make([]matchView, 0, len(result.Matches))
	for _, m := range rows {
		if created[m.ID] {
			views = append(views, newMatchView(m, viewerForBooking(m, id)))
		}
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"booking_id":      result.BookingID,
		"opponents_found": result.OpponentsFound,
		"matches":         views,
	})
}

// GET /api/v1/bookings/{id}/matches
func HandleListForBooking(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	id := r.PathValue("id")
	rows, err := database.Queries.ListMatchDetailsForBooking(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("booking_id", id).Msg("Failed to list matches")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	views := make([]matchView, 0, len(rows))
	for _, m := range rows {
		views = append(views, newMatchView(m, viewerForBooking(m, id)))
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"matches": views})
}

// GET /api/v1/users/{id}/matches
func HandleListForUser(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	id := r.PathValue("id")
	rows, err := database.Queries.ListMatchDetailsForUser(r.Context(), id)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("user_id", id).Msg("Failed to list matches")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	views := make([]matchView, 0, len(rows))
	for _, m := range rows {
		views = append(views, newMatchView(m, id))
	}
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{"matches": views})
}

// matchOpponent is the other party's public identity, relative to whoever the
// listing is for.
type matchOpponent struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type matchView struct {
	ID                string        `json:"id"`
	BookingID         string        `json:"booking_id"`
	OpponentBookingID string        `json:"opponent_booking_id"`
	SeekerUserID      string        `json:"seeker_user_id"`
	OpponentUserID    string        `json:"opponent_user_id"`
	Status            string        `json:"status"`
	OpponentsNeeded   int64         `json:"opponents_needed"`
	OpponentsFound    int64         `json:"opponents_found"`
	Opponent          matchOpponent `json:"opponent"`
	CourtID           string        `json:"court_id,omitempty"`
	CourtName         string        `json:"court_name,omitempty"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	MatchedAt         *time.Time    `json:"matched_at,omitempty"`
}

// viewerForBooking picks which side of the match the listed booking is on.
func viewerForBooking(m store.MatchDetailRow, bookingID string) string {
	if m.OpponentBookingID == bookingID {
		return m.OpponentUserID
	}
	return m.SeekerUserID
}

func newMatchView(m store.MatchDetailRow, viewerUserID string) matchView {
	opponent := matchOpponent{
		ID:        m.OpponentUserID,
		Nickname:  m.OpponentNickname,
		FirstName: m.OpponentFirstName,
		LastName:  m.OpponentLastName,
	}
	if viewerUserID == m.OpponentUserID {
		opponent = matchOpponent{
			ID:        m.SeekerUserID,
			Nickname:  m.SeekerNickname,
			FirstName: m.SeekerFirstName,
			LastName:  m.SeekerLastName,
		}
	}

	v := matchView{
		ID:                m.ID,
		BookingID:         m.BookingID,
		OpponentBookingID: m.OpponentBookingID,
		SeekerUserID:      m.SeekerUserID,
		OpponentUserID:    m.OpponentUserID,
		Status:            m.Status,
		OpponentsNeeded:   m.OpponentsNeeded,
		OpponentsFound:    m.OpponentsFound,
		Opponent:          opponent,
		CourtID:           m.CourtID.String,
		CourtName:         m.CourtName.String,
		StartTime:         m.StartTime,
		EndTime:           m.EndTime,
	}
	if m.MatchedAt.Valid {
		t := m.MatchedAt.Time
		v.MatchedAt = &t
	}
	return v
}
