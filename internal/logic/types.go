// Package logic contains the pure control logic for the water tank.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// DischargeDelay is the fixed wait between reaching Tank Full and opening the valve.
const DischargeDelay = 9 * time.Second

// Display is the status shown to the operator.
type Display int

const (
	DisplayIdle Display = iota
	DisplayFilling
	DisplayTankFull
	DisplayDischarging
	DisplayStopped
)

// String returns the rendered display text.
func (d Display) String() string {
	switch d {
	case DisplayIdle:
		return "Idle"
	case DisplayFilling:
		return "Low Level - Filling"
	case DisplayTankFull:
		return "Tank Full"
	case DisplayDischarging:
		return "Running - Discharging"
	case DisplayStopped:
		return "System Stopped"
	}
	return fmt.Sprintf("Display(%d)", int(d))
}

// Drive is the combined actuator command. Both pumps and the valve are
// derived from it, so the pumps can never disagree and the valve can never
// be open while pumping.
type Drive int

const (
	DriveOff Drive = iota
	DriveFill
	DriveDischarge
)

// Pumps reports whether both pumps run.
func (d Drive) Pumps() bool { return d == DriveFill }

// Valve reports whether the discharge valve is open.
func (d Drive) Valve() bool { return d == DriveDischarge }

// State is a point-in-time copy of the controller.
type State struct {
	Display          Display
	Pump1            bool
	Pump2            bool
	Valve            bool
	LowLevel         bool
	HighLevel        bool
	StopRequested    bool
	DischargePending bool
	DischargeAt      time.Time // zero unless DischargePending
}

// String renders the four-line status block.
func (s State) String() string {
	return fmt.Sprintf("Display: %s\nPump 1: %s\nPump 2: %s\nValve: %s\n",
		s.Display, OnOff(s.Pump1), OnOff(s.Pump2), OpenClosed(s.Valve))
}

// OnOff renders a pump output.
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// OpenClosed renders the valve output.
func OpenClosed(open bool) string {
	if open {
		return "OPEN"
	}
	return "CLOSED"
}

// EventType names a controller transition.
type EventType string

const (
	EventFilling     EventType = "FILLING"
	EventTankFull    EventType = "TANK_FULL"
	EventDischarging EventType = "DISCHARGING"
	EventStopped     EventType = "STOPPED"
)

// Event represents an observable state change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Fills      int
	Fulls      int
	Discharges int
	Stops      int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// Edge is a debounced rising edge on one of the inputs.
type Edge string

const (
	EdgeLowLevel  Edge = "LOW_LEVEL"
	EdgeHighLevel Edge = "HIGH_LEVEL"
	EdgeStop      Edge = "STOP"
)

// Input represents a single sample of logical input levels.
type Input struct {
	Low  bool // true = energized (already inverted from raw GPIO)
	High bool
	Stop bool
	Time time.Time
}

// ChannelState tracks debounce state for a single input.
type ChannelState struct {
	// Current stable (debounced) level
	Stable bool
	// Pending level during debounce
	Pending bool
	// Whether a pending level is being observed
	HasPending bool
	// Time when pending level was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}
