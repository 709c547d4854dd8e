package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/tank-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event            string     `json:"event,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	Display          string     `json:"display"`
	Pump1            string     `json:"pump_1"`
	Pump2            string     `json:"pump_2"`
	Valve            string     `json:"valve"`
	LowLevel         bool       `json:"low_level_sensor"`
	HighLevel        bool       `json:"high_level_sensor"`
	StopRequested    bool       `json:"stop_requested"`
	DischargePending bool       `json:"discharge_pending"`
	DischargeAt      string     `json:"discharge_at,omitempty"`
	Ready            bool       `json:"ready"`
	UptimeSeconds    int64      `json:"uptime_seconds"`
	StartTime        string     `json:"start_time"`
	Timestamp        string     `json:"timestamp"`
	MQTT             MQTTStatus `json:"mqtt"`
	Counts           CountsJSON `json:"event_counts"`
	Config           ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Fills      int `json:"fills"`
	Fulls      int `json:"fulls"`
	Discharges int `json:"discharges"`
	Stops      int `json:"stops"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs           int64  `json:"poll_ms"`
	DebounceMs       int64  `json:"debounce_ms"`
	HeartbeatMs      int64  `json:"heartbeat_ms"`
	DischargeDelayMs int64  `json:"discharge_delay_ms"`
	Broker           string `json:"broker"`
	HTTPAddr         string `json:"http_addr"`
	Driver           string `json:"driver"`
}

func buildInner(snap Snapshot) StatusInner {
	s := snap.State
	inner := StatusInner{
		Display:          s.Display.String(),
		Pump1:            logic.OnOff(s.Pump1),
		Pump2:            logic.OnOff(s.Pump2),
		Valve:            logic.OpenClosed(s.Valve),
		LowLevel:         s.LowLevel,
		HighLevel:        s.HighLevel,
		StopRequested:    s.StopRequested,
		DischargePending: s.DischargePending,
		Ready:            snap.Ready,
		UptimeSeconds:    int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:        snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:        snap.Now.UTC().Format(time.RFC3339),
		MQTT:             MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Fills:      snap.Counts.Fills,
			Fulls:      snap.Counts.Fulls,
			Discharges: snap.Counts.Discharges,
			Stops:      snap.Counts.Stops,
		},
		Config: ConfigJSON{
			PollMs:           snap.Config.PollMs,
			DebounceMs:       snap.Config.DebounceMs,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			DischargeDelayMs: logic.DischargeDelay.Milliseconds(),
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			Driver:           snap.Config.Driver,
		},
	}
	if s.DischargePending {
		inner.DischargeAt = s.DischargeAt.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
