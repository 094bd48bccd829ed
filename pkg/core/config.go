package core

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TimeoutConfig configures timeouts for the live runtime.
type TimeoutConfig struct {
	// Mount bounds component Mount calls.
	Mount time.Duration `yaml:"mount"`

	// Event bounds HandleEvent and HandleInfo calls.
	Event time.Duration `yaml:"event"`

	// WebSocketWrite is the write timeout for WebSocket frames.
	WebSocketWrite time.Duration `yaml:"websocket_write"`

	// Idle closes sessions that receive nothing for this long.
	Idle time.Duration `yaml:"idle"`

	// GracefulShutdown bounds server shutdown.
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// DefaultTimeoutConfig returns the production timeouts.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Mount:            5 * time.Second,
		Event:            3 * time.Second,
		WebSocketWrite:   10 * time.Second,
		Idle:             30 * time.Minute,
		GracefulShutdown: 30 * time.Second,
	}
}

// RelaxedTimeoutConfig returns more relaxed timeouts for development.
func RelaxedTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Mount:            30 * time.Second,
		Event:            30 * time.Second,
		WebSocketWrite:   30 * time.Second,
		Idle:             2 * time.Hour,
		GracefulShutdown: 5 * time.Second,
	}
}

// APIConfig locates and paces the admin backend.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`

	// RateLimit is the outgoing requests per second. Zero disables pacing.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// NotificationConfig configures the notification store.
type NotificationConfig struct {
	// DefaultDuration is the lifetime in seconds of notifications created
	// without one.
	DefaultDuration int `yaml:"default_duration"`
}

// DraftConfig configures wizard draft persistence.
type DraftConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// UploadConfig bounds browser uploads proxied to the backend.
type UploadConfig struct {
	MaxFileSize int64    `yaml:"max_file_size"`
	Accept      []string `yaml:"accept"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the console configuration.
type Config struct {
	// Address is the listen address of the console.
	Address string `yaml:"address"`

	// Timezone names the zone scheduling times are expressed in. Empty
	// means the server's local zone.
	Timezone string `yaml:"timezone"`

	// AllowedOrigins are WebSocket origin patterns besides the console's own host.
	AllowedOrigins []string `yaml:"allowed_origins"`

	API           APIConfig          `yaml:"api"`
	Notifications NotificationConfig `yaml:"notifications"`
	Drafts        DraftConfig        `yaml:"drafts"`
	Uploads       UploadConfig       `yaml:"uploads"`
	Log           LogConfig          `yaml:"log"`
	Timeouts      TimeoutConfig      `yaml:"timeouts"`

	// MaxMessageSize bounds inbound WebSocket messages.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Address: ":3000",
		API: APIConfig{
			BaseURL:   "http://localhost:8080",
			Timeout:   30 * time.Second,
			RateLimit: 20,
			Burst:     5,
		},
		Notifications: NotificationConfig{DefaultDuration: 5},
		Drafts:        DraftConfig{TTL: 24 * time.Hour},
		Uploads: UploadConfig{
			MaxFileSize: 2 << 30,
			Accept:      []string{"video/*", "audio/*", "image/*"},
		},
		Log:            LogConfig{Level: "info", JSON: true},
		Timeouts:       DefaultTimeoutConfig(),
		MaxMessageSize: 1 << 20,
	}
}

// DevelopmentConfig returns configuration for running against the
// development backend.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://localhost:8081"
	cfg.API.RateLimit = 0
	cfg.AllowedOrigins = []string{"localhost:*", "127.0.0.1:*"}
	cfg.Log = LogConfig{Level: "debug"}
	cfg.Timeouts = RelaxedTimeoutConfig()
	return cfg
}

// Configuration errors.
var (
	ErrMissingBaseURL        = errors.New("api.base_url is required")
	ErrInvalidMaxMessageSize = errors.New("max_message_size must be positive")
	ErrInvalidDuration       = errors.New("notifications.default_duration must be positive")
)

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api.base_url %q must be an http or https URL", c.API.BaseURL)
	}
	if c.MaxMessageSize <= 0 {
		return ErrInvalidMaxMessageSize
	}
	if c.Notifications.DefaultDuration <= 0 {
		return ErrInvalidDuration
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, cfg.Validate()
}
