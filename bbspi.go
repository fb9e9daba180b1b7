//go:build tinygo

package ism43362

import (
	"device"
	"errors"
	"machine"
)

// SPIbb is a bit-bang implementation of SPI mode 0, MSB first, for boards
// where the module's SPI pins are not routed to a hardware peripheral.
type SPIbb struct {
	SCK machine.Pin
	SDI machine.Pin
	SDO machine.Pin
	// Delay is the amount of busy-wait loops per quarter clock cycle.
	Delay uint32
}

var _ SPI = (*SPIbb)(nil)

// Configure sets up SCK and SDO as outputs idling low and SDI as input.
func (s *SPIbb) Configure() {
	s.SCK.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.SDO.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.SDI.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	s.SCK.Low()
	s.SDO.Low()
	if s.Delay == 0 {
		s.Delay = 1
	}
}

// Tx matches signature of machine.SPI.Tx(). If w is nil zeros are sent,
// if r is nil received data is discarded.
func (s *SPIbb) Tx(w, r []byte) error {
	switch {
	case len(w) == len(r):
		for i, b := range w {
			r[i] = s.transfer(b)
		}
	case r == nil:
		for _, b := range w {
			s.transfer(b)
		}
	case w == nil:
		for i := range r {
			r[i] = s.transfer(0)
		}
	default:
		return errors.New("SPI buffer length mismatch")
	}
	return nil
}

// Transfer matches signature of machine.SPI.Transfer().
func (s *SPIbb) Transfer(b byte) (out byte, _ error) {
	return s.transfer(b), nil
}

//go:inline
func (s *SPIbb) transfer(b byte) (out byte) {
	for bit := 7; bit >= 0; bit-- {
		out |= b2u8(s.bitTransfer(b&(1<<bit) != 0)) << bit
	}
	return out
}

// bitTransfer shifts out one bit on the falling edge and samples SDI on the rising edge.
//
//go:inline
func (s *SPIbb) bitTransfer(b bool) bool {
	s.SDO.Set(b)
	s.delay()
	s.SCK.High()
	s.delay()
	inputBit := s.SDI.Get()
	s.delay()
	s.SCK.Low()
	s.delay()
	return inputBit
}

// delay represents a quarter of the clock cycle
//
//go:inline
func (s *SPIbb) delay() {
	for i := uint32(0); i < s.Delay; i++ {
		device.Asm("nop")
	}
}

//go:inline
func b2u8(b bool) byte {
	if b {
		return 1
	}
	return 0
}
