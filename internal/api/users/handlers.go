// internal/api/users/handlers.go
package users

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/api"
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

type createUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
}

type userView struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname,omitempty"`
}

// POST /api/v1/users
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		api.RespondError(w, http.StatusBadRequest, "first_name and last_name are required")
		return
	}

	id := uuid.NewString()
	if err := database.Queries.CreateUser(r.Context(), store.CreateUserParams{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Nickname:  req.Nickname,
	}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to create user")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	api.RespondJSON(w, http.StatusCreated, userView{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Nickname:  req.Nickname,
	})
}

// GET /api/v1/users/{id}
func HandleGet(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	id := r.PathValue("id")
	u, err := database.Queries.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.RespondError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("user_id", id).Msg("Failed to load user")
		api.RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	api.RespondJSON(w, http.StatusOK, userView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Nickname:  u.Nickname,
	})
}
