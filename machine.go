//go:build tinygo

package ism43362

import (
	"machine"

	"tinygo.org/x/drivers"
)

// Pins of the module's control lines.
type Pins struct {
	CS    machine.Pin
	Ready machine.Pin
	Wake  machine.Pin
	Reset machine.Pin
}

// NewDevice configures the control pins and returns a Device using spi.
// Call Init or let the first operation initialize the module.
func NewDevice(spi drivers.SPI, pins Pins, cfg Config) *Device {
	out := machine.PinConfig{Mode: machine.PinOutput}
	pins.CS.Configure(out)
	pins.Wake.Configure(out)
	pins.Reset.Configure(out)
	pins.Ready.Configure(machine.PinConfig{Mode: machine.PinInput})
	pins.CS.High()
	pins.Reset.High()
	return New(spi, pins.CS.Set, pins.Wake.Set, pins.Reset.Set, pins.Ready.Get, cfg)
}
