package booking

import (
	"errors"
	"fmt"
)

// ErrorKind classifies admission failures so the HTTP layer can map them to
// status codes and clients can retry appropriately.
type ErrorKind string

const (
	KindQuotaExceeded           ErrorKind = "quota_exceeded"
	KindFeatureNotAvailable     ErrorKind = "feature_not_available"
	KindInvalidEquipmentRequest ErrorKind = "invalid_equipment_request"
	KindInvalidPaymentMethod    ErrorKind = "invalid_payment_method"
	KindSlotConflict            ErrorKind = "slot_conflict"
	KindInvalidDuration         ErrorKind = "invalid_duration"
	KindInvalidTransition       ErrorKind = "invalid_transition"
	KindCannotCancel            ErrorKind = "cannot_cancel"
	KindResourceNotFound        ErrorKind = "resource_not_found"
	KindReservationNotFound     ErrorKind = "reservation_not_found"
)

// AdmissionError is a typed business failure from the admission engine.
// Quota failures carry the full validation result so callers can render
// every violation at once; slot conflicts carry the blocking reservations.
type AdmissionError struct {
	Kind       ErrorKind
	Message    string
	Validation *ValidationResult
	Conflicts  []ConflictingReservation
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsAdmissionError unwraps err into an *AdmissionError if it is one.
func AsAdmissionError(err error) (*AdmissionError, bool) {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func newError(kind ErrorKind, format string, args ...interface{}) *AdmissionError {
	return &AdmissionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
