package ism43362

import (
	"net"
)

// NetFlags returns the current network flags for the device. The interface
// is up once initialized and running while associated to an access point.
func (d *Device) NetFlags() (flags net.Flags) {
	// Not every TinyGo release defines the net.Flags values.
	const (
		flagUp      net.Flags = 1 << 0
		flagRunning net.Flags = 1 << 5
	)
	if d.state != stateReady {
		return 0
	}
	flags |= flagUp
	if d.IsLinkUp() {
		flags |= flagRunning
	}
	return flags
}

// MTU returns the largest payload accepted by a single module write.
func (d *Device) MTU() int { return maxWriteLen }
