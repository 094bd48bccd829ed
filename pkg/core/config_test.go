package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
	if err := DevelopmentConfig().Validate(); err != nil {
		t.Errorf("expected development config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, ErrMissingBaseURL},
		{"bad message size", func(c *Config) { c.MaxMessageSize = 0 }, ErrInvalidMaxMessageSize},
		{"bad duration", func(c *Config) { c.Notifications.DefaultDuration = 0 }, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.API.BaseURL = "ftp://backend"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-http base url")
	}

	cfg = DefaultConfig()
	cfg.Timezone = "Not/AZone"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("expected time.Local, got %v (%v)", loc, err)
	}

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("expected UTC, got %v (%v)", loc, err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventadmin.yaml")
	data := `
address: ":9000"
timezone: UTC
api:
  base_url: https://admin.example.org
  username: admin
  timeout: 10s
notifications:
  default_duration: 8
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Address != ":9000" {
		t.Errorf("expected address :9000, got %s", cfg.Address)
	}
	if cfg.API.BaseURL != "https://admin.example.org" || cfg.API.Username != "admin" {
		t.Errorf("unexpected api config %+v", cfg.API)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.API.Timeout)
	}
	if cfg.Notifications.DefaultDuration != 8 {
		t.Errorf("expected duration 8, got %d", cfg.Notifications.DefaultDuration)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Log.Level)
	}
	if cfg.MaxMessageSize != DefaultConfig().MaxMessageSize {
		t.Errorf("expected unset fields to keep defaults, got %d", cfg.MaxMessageSize)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("api: [unclosed"), 0o600)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}

	cfg, err := LoadConfig("")
	if err != nil || cfg.Address != DefaultConfig().Address {
		t.Errorf("expected defaults for empty path, got %+v (%v)", cfg, err)
	}
}
