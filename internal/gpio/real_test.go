//go:build linux

package gpio

import (
	"errors"
	"testing"
)

func TestClosedDevicesRefuseIO(t *testing.T) {
	devices := map[string]Device{
		"gpiocdev": &CdevDevice{},
		"rpio":     &RPiDevice{},
	}
	for name, d := range devices {
		t.Run(name, func(t *testing.T) {
			if err := d.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if _, err := d.Read(); !errors.Is(err, errClosed) {
				t.Errorf("Read after Close: got %v, want errClosed", err)
			}
			if err := d.Write(Outputs{Pump1: true}); !errors.Is(err, errClosed) {
				t.Errorf("Write after Close: got %v, want errClosed", err)
			}
			if err := d.Close(); err != nil {
				t.Errorf("second Close: %v", err)
			}
		})
	}
}
