//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevDevice is not available on non-Linux platforms.
type CdevDevice struct{}

// NewCdevDevice returns an error on non-Linux platforms.
func NewCdevDevice(Pins) (*CdevDevice, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (d *CdevDevice) Read() (Levels, error) { return Levels{}, errUnsupported }

// Write is not implemented on non-Linux platforms.
func (d *CdevDevice) Write(Outputs) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (d *CdevDevice) Close() error { return nil }

// RPiDevice is not available on non-Linux platforms.
type RPiDevice struct{}

// NewRPiDevice returns an error on non-Linux platforms.
func NewRPiDevice(Pins) (*RPiDevice, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (d *RPiDevice) Read() (Levels, error) { return Levels{}, errUnsupported }

// Write is not implemented on non-Linux platforms.
func (d *RPiDevice) Write(Outputs) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (d *RPiDevice) Close() error { return nil }
