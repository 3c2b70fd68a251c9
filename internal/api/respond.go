package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sportlink/backend/internal/booking"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind       string                           `json:"kind"`
	Message    string                           `json:"message"`
	Validation *booking.ValidationResult        `json:"validation,omitempty"`
	Conflicts  []booking.ConflictingReservation `json:"conflicts,omitempty"`
}

// RespondJSON writes v as a JSON response.
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// RespondError writes a plain error envelope.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: "error", Message: message}})
}

// RespondEngineError maps a booking engine failure onto an HTTP status. Any
// error that is not a typed admission failure is a 500.
func RespondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := booking.AsAdmissionError(err)
	if !ok {
		log.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		RespondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	RespondJSON(w, statusForKind(ae.Kind), ErrorBody{Error: ErrorDetail{
		Kind:       string(ae.Kind),
		Message:    ae.Message,
		Validation: ae.Validation,
		Conflicts:  ae.Conflicts,
	}})
}

func statusForKind(kind booking.ErrorKind) int {
	switch kind {
	case booking.KindQuotaExceeded:
		return http.StatusUnprocessableEntity
	case booking.KindFeatureNotAvailable:
		return http.StatusForbidden
	case booking.KindSlotConflict, booking.KindInvalidTransition, booking.KindCannotCancel:
		return http.StatusConflict
	case booking.KindInvalidDuration, booking.KindInvalidEquipmentRequest, booking.KindInvalidPaymentMethod:
		return http.StatusBadRequest
	case booking.KindResourceNotFound, booking.KindReservationNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
