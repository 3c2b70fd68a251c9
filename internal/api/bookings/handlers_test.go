package bookings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sportlink/backend/internal/booking"
	"github.com/sportlink/backend/internal/config"
	appdb "github.com/sportlink/backend/internal/db"
	"github.com/sportlink/backend/internal/db/store"
)

var testMux *http.ServeMux

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "bookings-api-test")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	db, err := appdb.New(filepath.Join(dir, "test.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := config.BookingConfig{CancellationLeadTime: 2 * time.Hour}
	engine := booking.NewEngine(db, cfg, booking.SystemClock(), nil)
	InitHandlers(db, engine)

	testMux = http.NewServeMux()
	testMux.HandleFunc("POST /api/v1/bookings", HandleCreate)
	testMux.HandleFunc("GET /api/v1/bookings", HandleList)
	testMux.HandleFunc("POST /api/v1/bookings/validate", HandleValidate)
	testMux.HandleFunc("GET /api/v1/bookings/{id}", HandleGet)
	testMux.HandleFunc("POST /api/v1/bookings/{id}/cancel", HandleCancel)
	testMux.HandleFunc("POST /api/v1/bookings/{id}/confirm", HandleConfirm)

	os.Exit(m.Run())
}

func seedAccount(t *testing.T, bookingsPerWeek int64) (userID, courtID string) {
	t.Helper()
	ctx := context.Background()

	userID = uuid.NewString()
	if err := database.Queries.CreateUser(ctx, store.CreateUserParams{
		ID: userID, FirstName: "Api", LastName: "Tester",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	courtID = uuid.NewString()
	if err := database.Queries.CreateCourt(ctx, store.CreateCourtParams{
		ID: courtID, Name: "API Court " + courtID[:8], CourtType: "tennis", Attributes: "{}",
	}); err != nil {
		t.Fatalf("seed court: %v", err)
	}

	planID := uuid.NewString()
	if err := database.Queries.CreateSubscriptionPlan(ctx, store.CreateSubscriptionPlanParams{
		ID:              planID,
		Name:            "API Plan " + planID[:8],
		MonthlyPrice:    "19.90",
		Currency:        "EUR",
		Features:        `{"court_booking": true}`,
		BookingsPerWeek: bookingsPerWeek,
	}); err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	now := time.Now().UTC()
	if err := database.Queries.CreateUserSubscription(ctx, store.CreateUserSubscriptionParams{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanID:    planID,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(1, 0, 0),
	}); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return userID, courtID
}

func doJSON(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	testMux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	userID, courtID := seedAccount(t, 0)
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)

	rec := doJSON(t, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
		"user_id":    userID,
		"court_id":   courtID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		Booking struct {
			ID            string `json:"id"`
			Status        string `json:"status"`
			PaymentMethod string `json:"payment_method"`
		} `json:"booking"`
	}
	decodeBody(t, rec, &created)
	if created.Booking.Status != "pending" {
		t.Fatalf("expected pending, got %s", created.Booking.Status)
	}
	// No payment method in the request: the booking defaults to cash.
	if created.Booking.PaymentMethod != "cash" {
		t.Fatalf("expected cash payment method, got %q", created.Booking.PaymentMethod)
	}

	rec = doJSON(t, http.MethodGet, "/api/v1/bookings/"+created.Booking.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: got %d", rec.Code)
	}

	rec = doJSON(t, http.MethodPost, "/api/v1/bookings/"+created.Booking.ID+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, http.MethodGet, "/api/v1/bookings?user_id="+userID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d", rec.Code)
	}
	var listed struct {
		Bookings []struct {
			ID string `json:"id"`
		} `json:"bookings"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(listed.Bookings))
	}

	rec = doJSON(t, http.MethodPost, "/api/v1/bookings/"+created.Booking.ID+"/cancel", map[string]interface{}{
		"user_id": userID,
		"reason":  "rain",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateConflictOverHTTP(t *testing.T) {
	userID, courtID := seedAccount(t, 0)
	otherUser, _ := seedAccount(t, 0)
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)

	payload := func(uid string) map[string]interface{} {
		return map[string]interface{}{
			"user_id":    uid,
			"court_id":   courtID,
			"start_time": start.Format(time.RFC3339),
			"end_time":   start.Add(time.Hour).Format(time.RFC3339),
		}
	}

	rec := doJSON(t, http.MethodPost, "/api/v1/bookings", payload(userID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, http.MethodPost, "/api/v1/bookings", payload(otherUser))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second create: got %d, want 409; body %s", rec.Code, rec.Body.String())
	}

	var errBody struct {
		Error struct {
			Kind      string `json:"kind"`
			Conflicts []struct {
				BookingID string `json:"booking_id"`
			} `json:"conflicts"`
		} `json:"error"`
	}
	decodeBody(t, rec, &errBody)
	if errBody.Error.Kind != "slot_conflict" {
		t.Fatalf("expected slot_conflict, got %s", errBody.Error.Kind)
	}
	if len(errBody.Error.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(errBody.Error.Conflicts))
	}
}

func TestValidateOverHTTP(t *testing.T) {
	userID, _ := seedAccount(t, 1)
	start := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Hour)

	rec := doJSON(t, http.MethodPost, "/api/v1/bookings/validate", map[string]interface{}{
		"user_id":    userID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: got %d, body %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Valid    bool `json:"valid"`
		Warnings []struct {
			Code string `json:"code"`
		} `json:"warnings"`
	}
	decodeBody(t, rec, &result)
	if !result.Valid {
		t.Fatalf("expected valid, body %s", rec.Body.String())
	}
	// Quota of one: the first booking is also the last this week.
	if len(result.Warnings) != 1 || result.Warnings[0].Code != "WEEKLY_LIMIT_NEAR" {
		t.Fatalf("expected WEEKLY_LIMIT_NEAR warning, body %s", rec.Body.String())
	}
}

func TestCreateMissingUserOverHTTP(t *testing.T) {
	_, courtID := seedAccount(t, 0)
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	rec := doJSON(t, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
		"user_id":    uuid.NewString(),
		"court_id":   courtID,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404; body %s", rec.Code, rec.Body.String())
	}
}
