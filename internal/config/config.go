// Package config loads the tank-controller configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/tank-controller/internal/gpio"
)

// Highest BCM line number on the Raspberry Pi header.
const maxPin = 27

// Pins maps each input and output to a BCM line.
type Pins struct {
	Low   int `yaml:"low_level"`
	High  int `yaml:"high_level"`
	Stop  int `yaml:"stop"`
	Pump1 int `yaml:"pump_1"`
	Pump2 int `yaml:"pump_2"`
	Valve int `yaml:"valve"`
}

// GPIO converts p into the wiring used by gpio.Open.
func (p Pins) GPIO() gpio.Pins {
	return gpio.Pins{
		Low:   p.Low,
		High:  p.High,
		Stop:  p.Stop,
		Pump1: p.Pump1,
		Pump2: p.Pump2,
		Valve: p.Valve,
	}
}

// Config aggregates all daemon configuration.
type Config struct {
	Poll      time.Duration `yaml:"poll"`
	Debounce  time.Duration `yaml:"debounce"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
	Broker    string        `yaml:"broker"`
	HTTP      string        `yaml:"http"` // empty disables
	Driver    string        `yaml:"driver"`
	Pins      Pins          `yaml:"pins"`

	// AuthToken, when set, is required as a Bearer token on POST /command.
	AuthToken string `yaml:"auth_token"`

	// Broker credentials; sent only when BrokerUser is set.
	BrokerUser     string `yaml:"broker_username"`
	BrokerPassword string `yaml:"broker_password"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := gpio.DefaultPins()
	return Config{
		Poll:      100 * time.Millisecond,
		Debounce:  250 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		Broker:    "tcp://192.168.1.200:1883",
		HTTP:      ":80",
		Driver:    gpio.DriverCdev,
		Pins: Pins{
			Low:   p.Low,
			High:  p.High,
			Stop:  p.Stop,
			Pump1: p.Pump1,
			Pump2: p.Pump2,
			Valve: p.Valve,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("unmarshal yaml %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks intervals, driver and wiring.
func (c Config) Validate() error {
	if c.Poll <= 0 {
		return fmt.Errorf("poll must be > 0, got %v", c.Poll)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be > 0, got %v", c.Debounce)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must be >= 0, got %v", c.Heartbeat)
	}
	if c.Broker == "" {
		return errors.New("broker is required")
	}
	if c.BrokerPassword != "" && c.BrokerUser == "" {
		return errors.New("broker_password requires broker_username")
	}
	switch c.Driver {
	case gpio.DriverCdev, gpio.DriverRPi:
	default:
		return fmt.Errorf("driver must be %q or %q, got %q", gpio.DriverCdev, gpio.DriverRPi, c.Driver)
	}

	pins := []struct {
		name string
		pin  int
	}{
		{"low_level", c.Pins.Low},
		{"high_level", c.Pins.High},
		{"stop", c.Pins.Stop},
		{"pump_1", c.Pins.Pump1},
		{"pump_2", c.Pins.Pump2},
		{"valve", c.Pins.Valve},
	}
	used := make(map[int]string, len(pins))
	for _, p := range pins {
		if p.pin < 0 || p.pin > maxPin {
			return fmt.Errorf("pins.%s must be between 0 and %d, got %d", p.name, maxPin, p.pin)
		}
		if other, ok := used[p.pin]; ok {
			return fmt.Errorf("pins.%s and pins.%s both use line %d", other, p.name, p.pin)
		}
		used[p.pin] = p.name
	}
	return nil
}
