package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the application.
type Config struct {
	HTTPPort      int    `json:"http_port" validate:"gte=0,lte=65535"`
	MetricsPort   int    `json:"metrics_port" validate:"gte=0,lte=65535"`
	LogLevel      string `json:"log_level" validate:"oneof=trace debug info warn error"`
	LogJSON       bool   `json:"log_json"`
	DBPath        string `json:"db_path" validate:"required"`
	EncryptionKey string `json:"encryption_key" validate:"required,len=32"`

	Scheduler struct {
		Workers   int `json:"workers" validate:"min=1"`
		QueueSize int `json:"queue_size" validate:"min=1"`
	} `json:"scheduler"`

	Maintenance struct {
		Disabled                     bool     `json:"disabled"`
		DisableTokenPruning          bool     `json:"disable_token_pruning"`
		DisableAuthorizationPruning  bool     `json:"disable_authorization_pruning"`
		MaximumRefireCount           int      `json:"maximum_refire_count" validate:"gte=0"`
		MinimumTokenLifespan         Duration `json:"minimum_token_lifespan" validate:"gte=0"`
		MinimumAuthorizationLifespan Duration `json:"minimum_authorization_lifespan" validate:"gte=0"`
	} `json:"maintenance"`
}

// Duration is a wrapper around time.Duration that implements JSON marshaling/unmarshaling
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("invalid duration")
	}
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Default returns the configuration used for fields a file leaves out.
// EncryptionKey has no default.
func Default() *Config {
	cfg := &Config{
		HTTPPort:    8080,
		MetricsPort: 9090,
		LogLevel:    "info",
		DBPath:      "tokenvault.db",
	}
	cfg.Scheduler.Workers = 4
	cfg.Scheduler.QueueSize = 32
	cfg.Maintenance.MaximumRefireCount = 2
	cfg.Maintenance.MinimumTokenLifespan = Duration{14 * 24 * time.Hour}
	cfg.Maintenance.MinimumAuthorizationLifespan = Duration{14 * 24 * time.Hour}
	return cfg
}

// LoadFromFile reads configuration from a file over the defaults and
// overrides it with environment variables.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides overrides config fields with environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("HTTP_PORT"); v != "" {
		var err error
		c.HTTPPort, err = parseInt(v)
		if err != nil {
			return fmt.Errorf("parsing HTTP_PORT: %w", err)
		}
	}

	if v := os.Getenv("METRICS_PORT"); v != "" {
		var err error
		c.MetricsPort, err = parseInt(v)
		if err != nil {
			return fmt.Errorf("parsing METRICS_PORT: %w", err)
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv("LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing LOG_JSON: %w", err)
		}
		c.LogJSON = b
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}

	// Keep the key out of config files where possible.
	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		c.EncryptionKey = v
	}

	if v := os.Getenv("SCHEDULER_WORKERS"); v != "" {
		var err error
		c.Scheduler.Workers, err = parseInt(v)
		if err != nil {
			return fmt.Errorf("parsing SCHEDULER_WORKERS: %w", err)
		}
	}

	if v := os.Getenv("MAINTENANCE_DISABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing MAINTENANCE_DISABLED: %w", err)
		}
		c.Maintenance.Disabled = b
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validate := validator.New()

	// Register custom validation for Duration
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if duration, ok := field.Interface().(Duration); ok {
			return duration.Duration
		}
		return nil
	}, Duration{})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
