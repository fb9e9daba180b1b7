package ism43362

import (
	"log/slog"
	"net/netip"
	"runtime"
	"strconv"
	"time"

	"github.com/soypat/ism43362/esat"
)

// Socket is a handle to one of the module's client sockets.
type Socket uint8

// State is the local state of a socket slot.
type State uint8

const (
	StateClosed State = iota
	StateOpen
	StateConnected
	// StateHalfClosed is entered when a read fails. Only Close is valid from here.
	StateHalfClosed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateConnected:
		return "connected"
	case StateHalfClosed:
		return "half-closed"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

type modeKind uint8

const (
	modeBlocking modeKind = iota
	modeNonBlocking
	modeTimeout
)

// Mode selects how reads behave when no data is available.
type Mode struct {
	kind    modeKind
	timeout time.Duration
}

var (
	// ModeBlocking reads spin until data arrives.
	ModeBlocking = Mode{kind: modeBlocking}
	// ModeNonBlocking reads return ErrWouldBlock if no data is available.
	ModeNonBlocking = Mode{kind: modeNonBlocking}
)

// ModeTimeout returns a mode where reads spin until data arrives or d elapses,
// in which case the read returns 0 bytes and no error.
func ModeTimeout(d time.Duration) Mode {
	return Mode{kind: modeTimeout, timeout: d}
}

// Timeout returns the read timeout of a mode created with ModeTimeout.
func (m Mode) Timeout() (time.Duration, bool) {
	return m.timeout, m.kind == modeTimeout
}

func (m Mode) String() string {
	switch m.kind {
	case modeBlocking:
		return "blocking"
	case modeNonBlocking:
		return "non-blocking"
	case modeTimeout:
		return "timeout(" + m.timeout.String() + ")"
	}
	return "mode(" + strconv.Itoa(int(m.kind)) + ")"
}

type socket struct {
	state  State
	mode   Mode
	proto  Protocol
	remote netip.AddrPort
}

func (s *socket) live() bool {
	return s.state == StateOpen || s.state == StateConnected
}

// Adapter multiplexes the module's sockets. Like Device it performs no
// locking; all calls must be serialized by the caller.
type Adapter struct {
	dev     *Device
	sockets [esat.NumSockets]socket
	now     func() time.Time
}

// NewAdapter returns an Adapter with all sockets closed. The Adapter takes
// ownership of dev; callers should not use dev directly afterwards.
func NewAdapter(dev *Device) *Adapter {
	return &Adapter{dev: dev, now: time.Now}
}

// Device returns the underlying device.
func (a *Adapter) Device() *Device { return a.dev }

// Join associates the module with an access point. See [Device.Join].
func (a *Adapter) Join(ssid, passphrase string) error {
	_, err := a.dev.Join(ssid, passphrase)
	return err
}

// Open reserves a TCP socket.
func (a *Adapter) Open(mode Mode) (Socket, error) {
	return a.open(mode, ProtoTCP)
}

// OpenUDP reserves a UDP socket.
func (a *Adapter) OpenUDP(mode Mode) (Socket, error) {
	return a.open(mode, ProtoUDP)
}

func (a *Adapter) open(mode Mode, proto Protocol) (Socket, error) {
	for i := range a.sockets {
		sk := &a.sockets[i]
		if sk.state == StateClosed {
			*sk = socket{state: StateOpen, mode: mode, proto: proto}
			return Socket(i), nil
		}
	}
	return 0, ErrNoAvailableSockets
}

func (a *Adapter) slot(s Socket) (*socket, error) {
	if int(s) >= len(a.sockets) {
		return nil, ErrInvalidSocket
	}
	return &a.sockets[s], nil
}

// liveSlot returns the slot of s if it is open or connected.
func (a *Adapter) liveSlot(s Socket) (*socket, error) {
	sk, err := a.slot(s)
	if err != nil {
		return nil, err
	} else if !sk.live() {
		return nil, ErrSocketNotOpen
	}
	return sk, nil
}

// State returns the local state of s. Invalid handles report StateClosed.
func (a *Adapter) State(s Socket) State {
	sk, err := a.slot(s)
	if err != nil {
		return StateClosed
	}
	return sk.state
}

// SetMode changes the read mode of an open socket.
func (a *Adapter) SetMode(s Socket, mode Mode) error {
	sk, err := a.slot(s)
	if err != nil {
		return err
	} else if sk.state == StateClosed {
		return ErrSocketNotOpen
	}
	sk.mode = mode
	return nil
}

// RemoteAddr returns the address s was last connected to.
func (a *Adapter) RemoteAddr(s Socket) netip.AddrPort {
	sk, err := a.slot(s)
	if err != nil {
		return netip.AddrPort{}
	}
	return sk.remote
}

// Connect connects s to addr. On failure the socket state is left unchanged.
func (a *Adapter) Connect(s Socket, addr netip.AddrPort) error {
	sk, err := a.liveSlot(s)
	if err != nil {
		return err
	}
	err = a.dev.Connect(sk.proto, uint8(s), addr)
	if err != nil {
		return err
	}
	sk.state = StateConnected
	sk.remote = addr
	return nil
}

// Write sends data over s and returns the amount of bytes accepted by the
// module, which may be less than len(data).
func (a *Adapter) Write(s Socket, data []byte) (int, error) {
	if _, err := a.liveSlot(s); err != nil {
		return 0, err
	}
	return a.dev.Write(uint8(s), data)
}

// Read reads into buf according to the socket's mode. A failed read leaves
// the socket half-closed.
func (a *Adapter) Read(s Socket, buf []byte) (int, error) {
	sk, err := a.liveSlot(s)
	if err != nil {
		return 0, err
	}
	var deadline time.Time
	timeout, hasTimeout := sk.mode.Timeout()
	if hasTimeout {
		deadline = a.now().Add(timeout)
	}
	for {
		n, err := a.dev.Read(uint8(s), buf)
		if err != nil {
			sk.state = StateHalfClosed
			a.dev.debug("Read:half-closed", slog.Int("sock", int(s)), slog.String("err", err.Error()))
			return 0, err
		} else if n > 0 || len(buf) == 0 {
			return n, nil
		}
		switch sk.mode.kind {
		case modeNonBlocking:
			return 0, ErrWouldBlock
		case modeTimeout:
			if !a.now().Before(deadline) {
				return 0, nil
			}
		}
		runtime.Gosched()
	}
}

// Close releases s. If the socket is open or connected the module is told
// to close it. The slot is always freed, even if the module reports an error.
func (a *Adapter) Close(s Socket) error {
	sk, err := a.slot(s)
	if err != nil {
		return err
	}
	wasLive := sk.live()
	*sk = socket{state: StateClosed}
	if !wasLive {
		return nil
	}
	return a.dev.Close(uint8(s))
}
