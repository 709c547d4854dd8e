//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevDevice drives the tank using the Linux GPIO character device.
type CdevDevice struct {
	chip    *gpiocdev.Chip
	inputs  [3]*gpiocdev.Line // low, high, stop
	outputs [3]*gpiocdev.Line // pump 1, pump 2, valve
}

// NewCdevDevice requests all six lines on gpiochip0.
func NewCdevDevice(pins Pins) (*CdevDevice, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	d := &CdevDevice{chip: chip}

	// Float switches close to ground, so inputs idle high on the pull-up.
	for i, pin := range []int{pins.Low, pins.High, pins.Stop} {
		l, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", inputName(i), pin, err)
		}
		d.inputs[i] = l
	}

	for i, pin := range []int{pins.Pump1, pins.Pump2, pins.Valve} {
		l, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", output(i), pin, err)
		}
		d.outputs[i] = l
	}

	return d, nil
}

// Read returns the logical input levels.
// Inverts raw GPIO: raw 0 (pulled to ground) = energized.
func (d *CdevDevice) Read() (Levels, error) {
	if d.chip == nil {
		return Levels{}, errClosed
	}
	var on [3]bool
	for i, l := range d.inputs {
		raw, err := l.Value()
		if err != nil {
			return Levels{}, fmt.Errorf("read %s pin: %w", inputName(i), err)
		}
		on[i] = raw == 0
	}
	return Levels{Low: on[0], High: on[1], Stop: on[2]}, nil
}

// Write sets the pump and valve lines.
func (d *CdevDevice) Write(o Outputs) error {
	if d.chip == nil {
		return errClosed
	}
	for _, ol := range writeOrder(o) {
		if err := d.outputs[ol.out].SetValue(levelValue(ol.on)); err != nil {
			return fmt.Errorf("write %s: %w", ol.out, err)
		}
	}
	return nil
}

// Close switches the outputs off and releases every line.
// Inputs are left configured with pull-up so the switches read idle.
func (d *CdevDevice) Close() error {
	var errs []error

	for i, l := range d.outputs {
		if l == nil {
			continue
		}
		if err := l.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch off %s: %w", output(i), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", output(i), err))
		}
		d.outputs[i] = nil
	}
	for i, l := range d.inputs {
		if l == nil {
			continue
		}
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", inputName(i), err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", inputName(i), err))
		}
		d.inputs[i] = nil
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		d.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func inputName(i int) string {
	return [...]string{"low level", "high level", "stop"}[i]
}
