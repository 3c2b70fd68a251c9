package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
app:
  name: sportlink
  environment: test
  port: 9090
database:
  driver: sqlite
  filename: data/test.db
booking:
  cancellation_lead_time: 4h
  async_matching: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.App.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.Port)
	}
	if cfg.Booking.CancellationLeadTime != 4*time.Hour {
		t.Errorf("cancellation lead time = %s, want 4h", cfg.Booking.CancellationLeadTime)
	}
	if !cfg.Booking.AsyncMatching {
		t.Error("async matching should be enabled")
	}
	// Unset scheduler crons fall back to defaults.
	if cfg.Scheduler.CompleteBookingsCron == "" {
		t.Error("complete bookings cron default missing")
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Booking.CancellationLeadTime != 2*time.Hour {
		t.Errorf("default lead time = %s, want 2h", cfg.Booking.CancellationLeadTime)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
