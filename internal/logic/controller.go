package logic

import "time"

// Controller is the tank level state machine. It is not safe for concurrent
// use; a single control loop must own it and serialize every call.
type Controller struct {
	display Display
	drive   Drive

	low  bool
	high bool
	stop bool

	dischargePending bool
	dischargeAt      time.Time

	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewController creates a controller in the Idle configuration.
// The startTime is used for calculating uptime in heartbeat events.
func NewController(startTime time.Time) *Controller {
	return &Controller{
		display:       DisplayIdle,
		drive:         DriveOff,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// EnergizeLowLevel latches the low-level sensor and re-evaluates the rules.
func (c *Controller) EnergizeLowLevel(now time.Time) []Event {
	events := c.Tick(now)
	before := c.Status()
	c.low = true
	c.evaluate(now)
	return append(events, c.emit(before, now)...)
}

// EnergizeHighLevel latches the high-level sensor and re-evaluates the rules.
func (c *Controller) EnergizeHighLevel(now time.Time) []Event {
	events := c.Tick(now)
	before := c.Status()
	c.high = true
	c.evaluate(now)
	return append(events, c.emit(before, now)...)
}

// RequestStop latches the stop command and shuts everything down. A pending
// discharge is cancelled; nothing but a new Controller leaves Stopped.
func (c *Controller) RequestStop(now time.Time) []Event {
	events := c.Tick(now)
	before := c.Status()
	c.stop = true
	c.shutdown()
	return append(events, c.emit(before, now)...)
}

// Apply dispatches a debounced edge or remote command to the matching
// operation. Unknown edges are ignored.
func (c *Controller) Apply(edge Edge, now time.Time) []Event {
	switch edge {
	case EdgeLowLevel:
		return c.EnergizeLowLevel(now)
	case EdgeHighLevel:
		return c.EnergizeHighLevel(now)
	case EdgeStop:
		return c.RequestStop(now)
	}
	return nil
}

// Tick runs the delayed discharge once its deadline has been reached.
// It returns nil when nothing is due.
func (c *Controller) Tick(now time.Time) []Event {
	if !c.dischargePending || now.Before(c.dischargeAt) {
		return nil
	}
	before := c.Status()
	c.dischargePending = false
	c.dischargeAt = time.Time{}

	c.drive = DriveDischarge
	c.display = DisplayDischarging
	c.low = false
	c.high = false

	// Second evaluation with both latches clear; falls through unless stopped.
	c.evaluate(now)
	return c.emit(before, now)
}

// evaluate applies the ordered decision list. First match wins.
func (c *Controller) evaluate(now time.Time) {
	switch {
	case c.stop:
		c.shutdown()
	case c.low && !c.high:
		c.drive = DriveFill
		c.display = DisplayFilling
	case c.high:
		// Pumps off. The valve keeps whatever position it had.
		if c.drive == DriveFill {
			c.drive = DriveOff
		}
		c.display = DisplayTankFull
		if !c.dischargePending {
			c.dischargePending = true
			c.dischargeAt = now.Add(DischargeDelay)
		}
	}
}

func (c *Controller) shutdown() {
	c.drive = DriveOff
	c.display = DisplayStopped
	c.dischargePending = false
	c.dischargeAt = time.Time{}
}

// emit returns an event if the display changed since before.
func (c *Controller) emit(before State, now time.Time) []Event {
	after := c.Status()
	if after.Display == before.Display {
		return nil
	}
	typ, ok := eventTypeForDisplay(after.Display)
	if !ok {
		return nil
	}
	switch typ {
	case EventFilling:
		c.eventCounts.Fills++
	case EventTankFull:
		c.eventCounts.Fulls++
	case EventDischarging:
		c.eventCounts.Discharges++
	case EventStopped:
		c.eventCounts.Stops++
	}
	return []Event{{Timestamp: now, Type: typ, State: after}}
}

func eventTypeForDisplay(d Display) (EventType, bool) {
	switch d {
	case DisplayFilling:
		return EventFilling, true
	case DisplayTankFull:
		return EventTankFull, true
	case DisplayDischarging:
		return EventDischarging, true
	case DisplayStopped:
		return EventStopped, true
	}
	return "", false
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() State {
	return State{
		Display:          c.display,
		Pump1:            c.drive.Pumps(),
		Pump2:            c.drive.Pumps(),
		Valve:            c.drive.Valve(),
		LowLevel:         c.low,
		HighLevel:        c.high,
		StopRequested:    c.stop,
		DischargePending: c.dischargePending,
		DischargeAt:      c.dischargeAt,
	}
}

// EventCountsSnapshot returns the transition counts since startup.
func (c *Controller) EventCountsSnapshot() EventCounts {
	return c.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
	}
}
