// Package status provides a thread-safe status tracker for the tank-controller daemon.
// It is read by HTTP handlers while the control loop writes to it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/tank-controller/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Driver      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Ready         bool // inputs have a debounced baseline
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
// The controller state starts Idle.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.NewController(startTime).Status(),
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update stores the controller snapshot, input readiness and event counts.
// It reports whether anything observable changed.
func (t *Tracker) Update(state logic.State, ready bool, counts logic.EventCounts) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	changed := t.snap.State != state || t.snap.Ready != ready || t.snap.Counts != counts
	t.snap.State = state
	t.snap.Ready = ready
	t.snap.Counts = counts
	return changed
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
