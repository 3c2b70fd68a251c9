// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type BookingConfig struct {
	// Minimum time before start_time a booking can still be cancelled.
	CancellationLeadTime time.Duration `yaml:"cancellation_lead_time"`
	// When true, opponent matching runs in a background goroutine after the
	// admission transaction commits instead of in the request path.
	AsyncMatching bool `yaml:"async_matching"`
}

// UnmarshalYAML parses cancellation_lead_time from a duration string like
// "2h" or "90m".
func (b *BookingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		CancellationLeadTime string `yaml:"cancellation_lead_time"`
		AsyncMatching        bool   `yaml:"async_matching"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.CancellationLeadTime != "" {
		d, err := time.ParseDuration(raw.CancellationLeadTime)
		if err != nil {
			return fmt.Errorf("invalid cancellation_lead_time: %w", err)
		}
		b.CancellationLeadTime = d
	}
	b.AsyncMatching = raw.AsyncMatching
	return nil
}

type SchedulerConfig struct {
	CompleteBookingsCron      string `yaml:"complete_bookings_cron"`
	ExpireSubscriptionsCron   string `yaml:"expire_subscriptions_cron"`
	DispatchNotificationsCron string `yaml:"dispatch_notifications_cron"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Booking   BookingConfig   `yaml:"booking"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")

	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with defaults applied, for tests and
// tooling that do not read a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.App.Name = "sportlink"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.Database.Driver = "sqlite"
	cfg.Database.Filename = "data/sportlink.db"
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Booking.CancellationLeadTime == 0 {
		c.Booking.CancellationLeadTime = 2 * time.Hour
	}
	if c.Scheduler.CompleteBookingsCron == "" {
		c.Scheduler.CompleteBookingsCron = "*/15 * * * *"
	}
	if c.Scheduler.ExpireSubscriptionsCron == "" {
		c.Scheduler.ExpireSubscriptionsCron = "0 * * * *"
	}
	if c.Scheduler.DispatchNotificationsCron == "" {
		c.Scheduler.DispatchNotificationsCron = "* * * * *"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Booking.CancellationLeadTime < 0 {
		return fmt.Errorf("cancellation lead time cannot be negative")
	}

	return nil
}
