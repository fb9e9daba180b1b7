// Package periphbus attaches an ISM43362 module to a Linux host through
// spidev and the GPIO lines exposed by periph.io.
package periphbus

import (
	"errors"
	"fmt"

	"github.com/soypat/ism43362"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultFrequency is a conservative SPI clock for flying-lead wiring.
const DefaultFrequency = 2 * physic.MegaHertz

// Config names the SPI port and the GPIO lines wired to the module.
// Pin names are resolved with gpioreg, e.g. "GPIO25".
type Config struct {
	Port      string // empty selects the first registered port.
	Frequency physic.Frequency
	CS        string
	Ready     string
	Wake      string
	Reset     string
}

// Bus holds the host resources used to talk to the module.
type Bus struct {
	port  spi.PortCloser
	conn  spi.Conn
	cs    gpio.PinOut
	wake  gpio.PinOut
	reset gpio.PinOut
	ready gpio.PinIn
	// err holds the first failure to drive an output line.
	err error
}

// Open initializes the periph host drivers and claims the port and pins of cfg.
// Chip select is driven as a GPIO since the module expects it held across
// many transfers.
func Open(cfg Config) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periphbus: host init: %w", err)
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultFrequency
	}
	pins := make([]gpio.PinIO, 4)
	for i, name := range []string{cfg.CS, cfg.Ready, cfg.Wake, cfg.Reset} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("periphbus: unknown pin %q", name)
		}
		pins[i] = p
	}
	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("periphbus: open %q: %w", cfg.Port, err)
	}
	conn, err := port.Connect(cfg.Frequency, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("periphbus: connect: %w", err)
	}
	b, err := newBus(conn, pins[0], pins[1], pins[2], pins[3])
	if err != nil {
		port.Close()
		return nil, err
	}
	b.port = port
	return b, nil
}

func newBus(conn spi.Conn, cs gpio.PinOut, ready gpio.PinIn, wake, reset gpio.PinOut) (*Bus, error) {
	b := &Bus{conn: conn, cs: cs, ready: ready, wake: wake, reset: reset}
	if err := ready.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("periphbus: ready pin: %w", err)
	}
	err := errors.Join(cs.Out(gpio.High), wake.Out(gpio.Low), reset.Out(gpio.High))
	if err != nil {
		return nil, fmt.Errorf("periphbus: output pins: %w", err)
	}
	return b, nil
}

// Device returns a driver for the module on this bus.
func (b *Bus) Device(cfg ism43362.Config) *ism43362.Device {
	return ism43362.New(b.conn, b.output(b.cs), b.output(b.wake), b.output(b.reset), b.readyLevel, cfg)
}

// Err returns the first error encountered driving an output line.
func (b *Bus) Err() error { return b.err }

// Close releases the SPI port.
func (b *Bus) Close() error {
	if b.port == nil {
		return nil
	}
	return b.port.Close()
}

func (b *Bus) output(p gpio.PinOut) ism43362.OutputPin {
	return func(level bool) {
		if err := p.Out(gpio.Level(level)); err != nil && b.err == nil {
			b.err = err
		}
	}
}

func (b *Bus) readyLevel() bool { return b.ready.Read() == gpio.High }
