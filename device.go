package ism43362

import (
	"bytes"
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/soypat/ism43362/esat"
	"golang.org/x/exp/constraints"
)

// InitPolicy selects what happens when an operation is called on a Device
// that has not completed its initialization handshake.
type InitPolicy uint8

const (
	// InitLazy runs the initialization handshake on first use.
	InitLazy InitPolicy = iota
	// InitExplicit fails with ErrNotInitialized until Init is called.
	InitExplicit
)

type devState uint8

const (
	stateUninitialized devState = iota
	stateReady
	stateFailed
)

const (
	resetPulse = 10 * time.Millisecond
	// maxGreeting is the amount of bytes drained after reset.
	maxGreeting = 16
)

// Config configures a Device. The zero value is usable; see [DefaultConfig].
type Config struct {
	Logger     *slog.Logger
	InitPolicy InitPolicy
	// ReadTimeout is the time the module waits for data on each read request.
	ReadTimeout time.Duration
	// Delay blocks for the given duration. Defaults to time.Sleep.
	Delay func(time.Duration)
}

// DefaultConfig returns a lazily initialized configuration with a 100ms read timeout.
func DefaultConfig() Config {
	return Config{
		InitPolicy:  InitLazy,
		ReadTimeout: 100 * time.Millisecond,
		Delay:       time.Sleep,
	}
}

// Device drives an ISM43362 module over SPI. Device performs no locking:
// callers must not use it from multiple goroutines at the same time.
type Device struct {
	bus         spibus
	wake        OutputPin
	reset       OutputPin
	logger      *slog.Logger
	policy      InitPolicy
	readTimeout time.Duration
	state       devState
	ssid        string
	ip          netip.Addr
	mac         [6]byte
	// cmdbuf holds the command being built. Largest is the passphrase command.
	cmdbuf [80]byte
	// rxbuf holds the last reply. Sized to hold a full read payload and its framing.
	rxbuf         [2048]byte
	_traceenabled bool
}

// New returns a Device attached to the given bus and pins. No I/O is performed
// besides driving chip-select to its idle (high) level.
func New(spi SPI, cs, wake, reset OutputPin, ready InputPin, cfg Config) *Device {
	if cfg.Delay == nil {
		cfg.Delay = time.Sleep
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	d := &Device{
		bus: spibus{
			spi:   spi,
			cs:    cs,
			ready: ready,
			delay: cfg.Delay,
		},
		wake:        wake,
		reset:       reset,
		logger:      cfg.Logger,
		policy:      cfg.InitPolicy,
		readTimeout: cfg.ReadTimeout,
	}
	d._traceenabled = d.logger != nil && d.logger.Handler().Enabled(context.Background(), levelTrace)
	cs(true)
	return d
}

// Init resets the module and performs the initialization handshake.
// A failed handshake is fatal: Init and every other operation of d
// return an error wrapping ErrInitFailed from then on.
func (d *Device) Init() error {
	if d.state == stateFailed {
		return ErrInitFailed
	}
	d.info("Init:start")
	start := time.Now()
	d.state = stateUninitialized
	d.wake(false)
	d.reset(false)
	d.bus.delay(resetPulse)
	d.reset(true)
	d.bus.delay(resetPulse)

	d.bus.awaitReady()
	greeting, err := d.bus.receive(d.rxbuf[:0], maxGreeting)
	d.traceWire("Init:greeting", greeting)
	if err == nil && !bytes.HasPrefix(greeting, []byte(esat.Greeting)) {
		err = &InitError{Got: bytes.Clone(greeting)}
	}
	if err == nil {
		err = d.commandOK(esat.OpMessageType, "1")
	}
	if err != nil {
		d.state = stateFailed
		d.logerr("Init:failed", slog.String("err", err.Error()))
		if _, ok := err.(*InitError); !ok {
			err = &InitError{Got: bytes.Clone(greeting), Err: err}
		}
		return err
	}
	d.state = stateReady
	d.info("Init:done", slog.Duration("took", time.Since(start)))
	return nil
}

// ensureReady is called at the start of every operation that talks to the module.
func (d *Device) ensureReady() error {
	switch d.state {
	case stateReady:
		return nil
	case stateFailed:
		return ErrInitFailed
	}
	if d.policy == InitExplicit {
		return ErrNotInitialized
	}
	return d.Init()
}

// send transmits a command made up of prefix followed by data and returns
// the module's reply. The reply aliases the receive buffer and is valid
// until the next call to send.
func (d *Device) send(prefix, data []byte) ([]byte, error) {
	if d._traceenabled {
		d.traceWire("send:tx", append(bytes.Clone(prefix), data...))
	}
	d.bus.awaitReady()
	err := d.bus.transmit(prefix, data)
	if err != nil {
		return nil, err
	}
	d.bus.awaitReady()
	reply, err := d.bus.receive(d.rxbuf[:0], len(d.rxbuf))
	d.traceWire("send:rx", reply)
	return reply, err
}

func (d *Device) command(op esat.Op, arg string) ([]byte, error) {
	cmd, err := esat.AppendCommand(d.cmdbuf[:0], op, arg)
	if err != nil {
		return nil, err
	}
	return d.send(nil, cmd)
}

func (d *Device) commandUint(op esat.Op, v uint64) ([]byte, error) {
	cmd, err := esat.AppendCommandUint(d.cmdbuf[:0], op, v)
	if err != nil {
		return nil, err
	}
	return d.send(nil, cmd)
}

// commandOK sends a configuration command and checks its reply.
func (d *Device) commandOK(op esat.Op, arg string) error {
	reply, err := d.command(op, arg)
	if err != nil {
		return err
	}
	return esat.ParseOK(reply)
}

func (d *Device) commandUintOK(op esat.Op, v uint64) error {
	reply, err := d.commandUint(op, v)
	if err != nil {
		return err
	}
	return esat.ParseOK(reply)
}

func clamp[T constraints.Integer](v, hi T) T {
	if v > hi {
		return hi
	}
	return v
}
