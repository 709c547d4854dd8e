// Package mqtt provides MQTT publishing and remote commands with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/tank-controller/internal/logic"
)

// TopicEvents is the MQTT topic for controller transitions.
const TopicEvents = "water/tank/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "water/tank/controller/system"

// TopicCommands is the MQTT topic the controller listens on for remote commands.
const TopicCommands = "water/tank/controller/commands"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// CommandSource delivers remote commands.
type CommandSource interface {
	// Subscribe registers handler for every valid command received.
	// The handler runs on the client's goroutine and must not block.
	Subscribe(handler func(logic.Edge)) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Tank TankPayload `json:"tank"`
}

// TankPayload contains the transition details.
type TankPayload struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Display   string `json:"display"`
	Pump1     string `json:"pump_1"`
	Pump2     string `json:"pump_2"`
	Valve     string `json:"valve"`
}

// FormatPayload creates the JSON payload for a controller transition.
func FormatPayload(event logic.Event) ([]byte, error) {
	s := event.State
	payload := Payload{
		Tank: TankPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Display:   s.Display.String(),
			Pump1:     logic.OnOff(s.Pump1),
			Pump2:     logic.OnOff(s.Pump2),
			Valve:     logic.OpenClosed(s.Valve),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
// A zero Timestamp is omitted from the payload.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	payload := SystemPayload{
		System: SystemPayloadInner{
			Event:  event.Event,
			Reason: event.Reason,
		},
	}
	if !event.Timestamp.IsZero() {
		payload.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

// commandJSON is the structured form of a command message.
type commandJSON struct {
	Command string `json:"command"`
}

// ParseCommand accepts either a bare command word or {"command":"..."}.
// Matching is case-insensitive.
func ParseCommand(payload []byte) (logic.Edge, error) {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var c commandJSON
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return "", fmt.Errorf("decode command: %w", err)
		}
		text = c.Command
	}
	switch e := logic.Edge(strings.ToUpper(strings.TrimSpace(text))); e {
	case logic.EdgeLowLevel, logic.EdgeHighLevel, logic.EdgeStop:
		return e, nil
	}
	return "", fmt.Errorf("unknown command %q", text)
}
