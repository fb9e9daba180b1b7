// Netdev implementation of ism43362

package ism43362

import (
	"errors"
	"io"
	"net/netip"
	"time"

	"github.com/soypat/ism43362/esat"
	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink"
)

// Netdev exposes an Adapter through TinyGo's netdev and netlink interfaces
// so that it can back the net package. The module does not resolve names
// nor accept incoming connections.
type Netdev struct {
	a      *Adapter
	notify func(netlink.Event)
}

var (
	_ netdev.Netdever   = (*Netdev)(nil)
	_ netlink.Netlinker = (*Netdev)(nil)
)

// NewNetdev exposes a as a TinyGo network device.
func NewNetdev(a *Adapter) *Netdev {
	return &Netdev{a: a}
}

// GetHostByName only accepts IPv4 literals since the module does not do DNS.
func (nd *Netdev) GetHostByName(name string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(name)
	if err != nil || !addr.Unmap().Is4() {
		return netip.Addr{}, netdev.ErrHostUnknown
	}
	return addr.Unmap(), nil
}

func (nd *Netdev) Addr() (netip.Addr, error) {
	return nd.a.dev.Addr()
}

func (nd *Netdev) Socket(domain int, stype int, protocol int) (int, error) {
	if domain != netdev.AF_INET {
		return -1, netdev.ErrFamilyNotSupported
	}
	var s Socket
	var err error
	switch {
	case stype == netdev.SOCK_STREAM && (protocol == 0 || protocol == netdev.IPPROTO_TCP):
		s, err = nd.a.Open(ModeBlocking)
	case stype == netdev.SOCK_DGRAM && (protocol == 0 || protocol == netdev.IPPROTO_UDP):
		s, err = nd.a.OpenUDP(ModeBlocking)
	default:
		return -1, netdev.ErrProtocolNotSupported
	}
	if errors.Is(err, ErrNoAvailableSockets) {
		return -1, netdev.ErrNoMoreSockets
	} else if err != nil {
		return -1, err
	}
	return int(s), nil
}

func (nd *Netdev) socket(sockfd int) (Socket, error) {
	if sockfd < 0 || sockfd >= esat.NumSockets {
		return 0, netdev.ErrInvalidSocketFd
	}
	return Socket(sockfd), nil
}

func (nd *Netdev) Bind(sockfd int, ip netip.AddrPort) error {
	return netdev.ErrNotSupported
}

func (nd *Netdev) Connect(sockfd int, host string, ip netip.AddrPort) error {
	s, err := nd.socket(sockfd)
	if err != nil {
		return err
	}
	if !ip.Addr().IsValid() {
		addr, err := nd.GetHostByName(host)
		if err != nil {
			return err
		}
		ip = netip.AddrPortFrom(addr, ip.Port())
	}
	return nd.a.Connect(s, ip)
}

func (nd *Netdev) Listen(sockfd int, backlog int) error {
	return netdev.ErrNotSupported
}

func (nd *Netdev) Accept(sockfd int) (int, netip.AddrPort, error) {
	return -1, netip.AddrPort{}, netdev.ErrNotSupported
}

func (nd *Netdev) Send(sockfd int, buf []byte, flags int, deadline time.Time) (int, error) {
	s, err := nd.socket(sockfd)
	if err != nil {
		return 0, err
	}
	n := 0
	for n < len(buf) {
		if !deadline.IsZero() && !nd.a.now().Before(deadline) {
			return n, netdev.ErrTimeout
		}
		m, err := nd.a.Write(s, buf[n:])
		if err != nil {
			return n, err
		} else if m == 0 {
			return n, io.ErrShortWrite
		}
		n += m
	}
	return n, nil
}

func (nd *Netdev) Recv(sockfd int, buf []byte, flags int, deadline time.Time) (int, error) {
	s, err := nd.socket(sockfd)
	if err != nil {
		return 0, err
	}
	mode := ModeBlocking
	if !deadline.IsZero() {
		remain := deadline.Sub(nd.a.now())
		if remain <= 0 {
			return 0, netdev.ErrTimeout
		}
		mode = ModeTimeout(remain)
	}
	if err := nd.a.SetMode(s, mode); err != nil {
		return 0, err
	}
	n, err := nd.a.Read(s, buf)
	if err == nil && n == 0 && len(buf) > 0 {
		return 0, netdev.ErrTimeout
	}
	return n, err
}

func (nd *Netdev) Close(sockfd int) error {
	s, err := nd.socket(sockfd)
	if err != nil {
		return err
	}
	return nd.a.Close(s)
}

func (nd *Netdev) SetSockOpt(sockfd int, level int, opt int, value interface{}) error {
	return netdev.ErrNotSupported
}
