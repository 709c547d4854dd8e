// Package gpio provides tank input reading and actuator output with hardware abstraction.
// The real implementations use the Linux GPIO character device (gpiocdev) or
// memory-mapped registers (rpio). The fake implementations allow testing without hardware.
package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/tank-controller/internal/logic"
)

// Levels is a single logical reading of the three inputs.
type Levels struct {
	Low  bool // true = energized
	High bool
	Stop bool
}

// Outputs is the commanded actuator state.
type Outputs struct {
	Pump1 bool
	Pump2 bool
	Valve bool
}

// OutputsFor maps a controller snapshot to actuator levels.
func OutputsFor(s logic.State) Outputs {
	return Outputs{Pump1: s.Pump1, Pump2: s.Pump2, Valve: s.Valve}
}

// Reader reads the tank inputs.
type Reader interface {
	// Read returns the logical input levels.
	// Inputs are active-low with pull-up: raw 0 = logical energized.
	Read() (Levels, error)

	// Close releases GPIO resources.
	Close() error
}

// Writer drives the pumps and the valve.
type Writer interface {
	// Write applies the outputs. Lines being switched off are written
	// before lines being switched on.
	Write(o Outputs) error

	// Close switches every output off and releases GPIO resources.
	Close() error
}

// Device is a driver that owns both inputs and outputs.
type Device interface {
	Reader
	Writer
}

// Pins holds BCM pin numbers.
type Pins struct {
	Low   int
	High  int
	Stop  int
	Pump1 int
	Pump2 int
	Valve int
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinLow   = 17
	DefaultPinHigh  = 27
	DefaultPinStop  = 22
	DefaultPinPump1 = 23
	DefaultPinPump2 = 24
	DefaultPinValve = 25
)

// DefaultPins returns the default wiring.
func DefaultPins() Pins {
	return Pins{
		Low:   DefaultPinLow,
		High:  DefaultPinHigh,
		Stop:  DefaultPinStop,
		Pump1: DefaultPinPump1,
		Pump2: DefaultPinPump2,
		Valve: DefaultPinValve,
	}
}

// Driver names accepted by Open.
const (
	DriverCdev = "gpiocdev"
	DriverRPi  = "rpio"
)

// Open creates the named hardware driver.
func Open(driver string, pins Pins) (Device, error) {
	switch driver {
	case DriverCdev, "":
		d, err := NewCdevDevice(pins)
		if err != nil {
			return nil, err
		}
		return d, nil
	case DriverRPi:
		d, err := NewRPiDevice(pins)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown gpio driver %q", driver)
}

var errClosed = errors.New("gpio: device closed")

type output int

const (
	outPump1 output = iota
	outPump2
	outValve
)

func (o output) String() string {
	return [...]string{"pump 1", "pump 2", "valve"}[o]
}

type outputLevel struct {
	out output
	on  bool
}

// writeOrder lists the outputs with every off level before any on level.
func writeOrder(o Outputs) []outputLevel {
	all := []outputLevel{
		{outPump1, o.Pump1},
		{outPump2, o.Pump2},
		{outValve, o.Valve},
	}
	ordered := make([]outputLevel, 0, len(all))
	for _, l := range all {
		if !l.on {
			ordered = append(ordered, l)
		}
	}
	for _, l := range all {
		if l.on {
			ordered = append(ordered, l)
		}
	}
	return ordered
}

func levelValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
