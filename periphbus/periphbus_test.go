package periphbus

import (
	"errors"
	"testing"

	"github.com/soypat/ism43362"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type failingPin struct {
	gpiotest.Pin
}

var errStuck = errors.New("pin stuck")

func (p *failingPin) Out(gpio.Level) error { return errStuck }

func TestNewBusIdleLevels(t *testing.T) {
	cs := &gpiotest.Pin{N: "CS"}
	wake := &gpiotest.Pin{N: "WAKE", L: gpio.High}
	reset := &gpiotest.Pin{N: "RST"}
	ready := &gpiotest.Pin{N: "READY", L: gpio.High}
	_, err := newBus(nil, cs, ready, wake, reset)
	require.NoError(t, err)
	assert.Equal(t, gpio.High, cs.Read(), "chip select idles high")
	assert.Equal(t, gpio.Low, wake.Read())
	assert.Equal(t, gpio.High, reset.Read(), "reset released")
	assert.Equal(t, gpio.PullDown, ready.Pull())
	assert.Equal(t, gpio.Low, ready.Read(), "pull-down applied")
}

func TestDeviceDrivesPins(t *testing.T) {
	cs := &gpiotest.Pin{N: "CS"}
	wake := &gpiotest.Pin{N: "WAKE"}
	reset := &gpiotest.Pin{N: "RST"}
	ready := &gpiotest.Pin{N: "READY"}
	b, err := newBus(nil, cs, ready, wake, reset)
	require.NoError(t, err)
	b.Device(ism43362.DefaultConfig())
	assert.Equal(t, gpio.High, cs.Read())

	out := b.output(reset)
	out(false)
	assert.Equal(t, gpio.Low, reset.Read())
	out(true)
	assert.Equal(t, gpio.High, reset.Read())

	assert.False(t, b.readyLevel())
	ready.Out(gpio.High)
	assert.True(t, b.readyLevel())
	assert.NoError(t, b.Err())
	assert.NoError(t, b.Close(), "no port to release")
}

func TestOutputErrorRetained(t *testing.T) {
	b := &Bus{}
	out := b.output(&failingPin{})
	out(true)
	out(false)
	assert.ErrorIs(t, b.Err(), errStuck)
}

func TestNewBusOutputFailure(t *testing.T) {
	_, err := newBus(nil, &failingPin{}, &gpiotest.Pin{}, &gpiotest.Pin{}, &gpiotest.Pin{})
	require.ErrorIs(t, err, errStuck)
}
