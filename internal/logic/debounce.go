package logic

import "time"

// Debouncer turns raw input samples into debounced rising edges.
type Debouncer struct {
	debounceDuration time.Duration
	low              ChannelState
	high             ChannelState
	stop             ChannelState
	baselined        bool
}

// NewDebouncer creates a debouncer with the given debounce duration.
func NewDebouncer(debounceDuration time.Duration) *Debouncer {
	return &Debouncer{debounceDuration: debounceDuration}
}

// Process takes a new input sample and returns any rising edges.
// Nothing is returned until all three inputs have a baseline. Inputs that
// baseline energized produce their edge at that moment.
// Edges within one sample are ordered stop, low, high.
func (d *Debouncer) Process(input Input) []Edge {
	stopRose := d.processChannel(&d.stop, input.Stop, input.Time)
	lowRose := d.processChannel(&d.low, input.Low, input.Time)
	highRose := d.processChannel(&d.high, input.High, input.Time)

	if !d.baselined {
		if !(d.stop.Baselined && d.low.Baselined && d.high.Baselined) {
			return nil
		}
		d.baselined = true
		stopRose = d.stop.Stable
		lowRose = d.low.Stable
		highRose = d.high.Stable
	}

	var edges []Edge
	if stopRose {
		edges = append(edges, EdgeStop)
	}
	if lowRose {
		edges = append(edges, EdgeLowLevel)
	}
	if highRose {
		edges = append(edges, EdgeHighLevel)
	}
	return edges
}

// processChannel handles debounce logic for a single input.
// Returns true on a debounced OFF to ON transition after baseline.
func (d *Debouncer) processChannel(ch *ChannelState, level bool, now time.Time) bool {
	// First time seeing this channel
	if !ch.Baselined {
		if !ch.HasPending || ch.Pending != level {
			// Start observing, or restart after a change
			ch.Pending = level
			ch.HasPending = true
			ch.PendingSince = now
			return false
		}

		if now.Sub(ch.PendingSince) >= d.debounceDuration {
			ch.Stable = level
			ch.Baselined = true
			ch.HasPending = false
		}
		return false
	}

	if level == ch.Stable {
		ch.HasPending = false
		return false
	}

	if !ch.HasPending || ch.Pending != level {
		ch.Pending = level
		ch.HasPending = true
		ch.PendingSince = now
		return false
	}

	if now.Sub(ch.PendingSince) >= d.debounceDuration {
		ch.Stable = level
		ch.HasPending = false
		return level
	}

	return false
}

// IsBaselined returns whether all inputs have a baseline.
func (d *Debouncer) IsBaselined() bool {
	return d.baselined
}

// CurrentLevels returns the current stable input levels.
func (d *Debouncer) CurrentLevels() (low, high, stop bool) {
	return d.low.Stable, d.high.Stable, d.stop.Stable
}
