//go:build (rp2040 || rp2350) && !ismnopio

package ism43362

import (
	"machine"

	pio "github.com/tinygo-org/pio/rp2-pio"
	"github.com/tinygo-org/pio/rp2-pio/piolib"
)

// pioFrequency is the SPI clock used with PIO. The module supports up to 20MHz
// but breakout wiring rarely does.
const pioFrequency = 8_000_000

// PicoPins is the wiring of a module attached to an RP2040/RP2350 board.
type PicoPins struct {
	SCK machine.Pin
	SDO machine.Pin
	SDI machine.Pin
	Pins
}

// NewPicoPIODevice returns a Device whose SPI bus is driven by a PIO state
// machine, leaving the hardware SPI peripherals free.
func NewPicoPIODevice(pins PicoPins, cfg Config) (*Device, error) {
	sm, err := pio.PIO0.ClaimStateMachine()
	if err != nil {
		return nil, err
	}
	spi, err := piolib.NewSPI(sm, machine.SPIConfig{
		Frequency: pioFrequency,
		SCK:       pins.SCK,
		SDO:       pins.SDO,
		SDI:       pins.SDI,
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}
	return NewDevice(spi, pins.Pins, cfg), nil
}
