package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/tank-controller/internal/gpio"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tank.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Pins.GPIO() != gpio.DefaultPins() {
		t.Errorf("default pins: got %+v, want %+v", cfg.Pins.GPIO(), gpio.DefaultPins())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
poll: 50ms
heartbeat: 1m
broker: tcp://10.0.0.5:1883
driver: rpio
pins:
  valve: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Poll != 50*time.Millisecond {
		t.Errorf("Poll: got %v, want 50ms", cfg.Poll)
	}
	if cfg.Heartbeat != time.Minute {
		t.Errorf("Heartbeat: got %v, want 1m", cfg.Heartbeat)
	}
	if cfg.Broker != "tcp://10.0.0.5:1883" {
		t.Errorf("Broker: got %q", cfg.Broker)
	}
	if cfg.Driver != gpio.DriverRPi {
		t.Errorf("Driver: got %q, want rpio", cfg.Driver)
	}
	if cfg.Pins.Valve != 5 {
		t.Errorf("Pins.Valve: got %d, want 5", cfg.Pins.Valve)
	}

	// Untouched keys keep their defaults
	def := Default()
	if cfg.Debounce != def.Debounce {
		t.Errorf("Debounce: got %v, want default %v", cfg.Debounce, def.Debounce)
	}
	if cfg.Pins.Low != def.Pins.Low {
		t.Errorf("Pins.Low: got %d, want default %d", cfg.Pins.Low, def.Pins.Low)
	}
	if cfg.HTTP != def.HTTP {
		t.Errorf("HTTP: got %q, want default %q", cfg.HTTP, def.HTTP)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty file should yield defaults, got %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, "pol: 10ms\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "poll: soon\n"))
	if err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestLoadValidates(t *testing.T) {
	_, err := Load(writeConfig(t, "driver: sysfs\n"))
	if err == nil || !strings.Contains(err.Error(), "driver") {
		t.Errorf("expected driver error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero poll", func(c *Config) { c.Poll = 0 }, "poll"},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Millisecond }, "debounce"},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }, "heartbeat"},
		{"heartbeat disabled", func(c *Config) { c.Heartbeat = 0 }, ""},
		{"http disabled", func(c *Config) { c.HTTP = "" }, ""},
		{"empty broker", func(c *Config) { c.Broker = "" }, "broker"},
		{"unknown driver", func(c *Config) { c.Driver = "sysfs" }, "driver"},
		{"pin out of range", func(c *Config) { c.Pins.Stop = 28 }, "pins.stop"},
		{"negative pin", func(c *Config) { c.Pins.Low = -1 }, "pins.low_level"},
		{"shared pin", func(c *Config) { c.Pins.Pump2 = c.Pins.Pump1 }, "line 23"},
		{"broker credentials", func(c *Config) { c.BrokerUser, c.BrokerPassword = "tank", "secret" }, ""},
		{"password without user", func(c *Config) { c.BrokerPassword = "secret" }, "broker_username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	path := writeConfig(t, `
auth_token: s3cret
broker_username: tank
broker_password: hunter2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthToken != "s3cret" {
		t.Errorf("AuthToken: got %q", cfg.AuthToken)
	}
	if cfg.BrokerUser != "tank" || cfg.BrokerPassword != "hunter2" {
		t.Errorf("broker credentials: got %q/%q", cfg.BrokerUser, cfg.BrokerPassword)
	}
	if Default().AuthToken != "" {
		t.Error("commands should be unauthenticated by default")
	}
}
