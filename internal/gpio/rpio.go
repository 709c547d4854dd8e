//go:build linux

package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDevice drives the tank through memory-mapped GPIO registers using go-rpio.
// Requires /dev/gpiomem access or root.
type RPiDevice struct {
	inputs  [3]rpio.Pin
	outputs [3]rpio.Pin
	open    bool
}

// NewRPiDevice maps GPIO memory and configures all six pins.
func NewRPiDevice(pins Pins) (*RPiDevice, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	d := &RPiDevice{
		inputs:  [3]rpio.Pin{rpio.Pin(pins.Low), rpio.Pin(pins.High), rpio.Pin(pins.Stop)},
		outputs: [3]rpio.Pin{rpio.Pin(pins.Pump1), rpio.Pin(pins.Pump2), rpio.Pin(pins.Valve)},
		open:    true,
	}
	for _, p := range d.inputs {
		p.Input()
		p.PullUp()
	}
	for _, p := range d.outputs {
		p.Low()
		p.Output()
	}
	return d, nil
}

// Read returns the logical input levels (raw Low = energized).
func (d *RPiDevice) Read() (Levels, error) {
	if !d.open {
		return Levels{}, errClosed
	}
	return Levels{
		Low:  d.inputs[0].Read() == rpio.Low,
		High: d.inputs[1].Read() == rpio.Low,
		Stop: d.inputs[2].Read() == rpio.Low,
	}, nil
}

// Write sets the pump and valve pins.
func (d *RPiDevice) Write(o Outputs) error {
	if !d.open {
		return errClosed
	}
	for _, ol := range writeOrder(o) {
		p := d.outputs[ol.out]
		if ol.on {
			p.High()
		} else {
			p.Low()
		}
	}
	return nil
}

// Close switches the outputs off, returns them to inputs (safe state) and
// unmaps GPIO memory. Calling Close twice is a no-op.
func (d *RPiDevice) Close() error {
	if !d.open {
		return nil
	}
	d.open = false
	for _, p := range d.outputs {
		p.Low()
		p.Input()
	}
	return rpio.Close()
}
