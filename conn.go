package ism43362

import (
	"errors"
	"io"
	"net"
	"net/netip"
	"os"
	"time"
)

// Conn is a [net.Conn] over a module socket.
type Conn struct {
	a      *Adapter
	s      Socket
	proto  Protocol
	remote netip.AddrPort
	rdl    time.Time
	wdl    time.Time
	closed bool
}

var _ net.Conn = (*Conn)(nil)

// DialTCP opens a TCP socket and connects it to addr.
func (a *Adapter) DialTCP(addr netip.AddrPort) (*Conn, error) {
	return a.dial(ProtoTCP, addr)
}

// DialUDP opens a UDP socket with its remote end set to addr.
func (a *Adapter) DialUDP(addr netip.AddrPort) (*Conn, error) {
	return a.dial(ProtoUDP, addr)
}

func (a *Adapter) dial(proto Protocol, addr netip.AddrPort) (*Conn, error) {
	s, err := a.open(ModeBlocking, proto)
	if err != nil {
		return nil, err
	}
	err = a.Connect(s, addr)
	if err != nil {
		if cerr := a.Close(s); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}
	return &Conn{a: a, s: s, proto: proto, remote: addr}, nil
}

// Socket returns the module socket backing c.
func (c *Conn) Socket() Socket { return c.s }

// Read implements [net.Conn]. Without a read deadline Read blocks until data arrives.
func (c *Conn) Read(b []byte) (int, error) {
	if c.closed {
		return 0, net.ErrClosed
	}
	mode := ModeBlocking
	if !c.rdl.IsZero() {
		remain := c.rdl.Sub(c.a.now())
		if remain <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		mode = ModeTimeout(remain)
	}
	if err := c.a.SetMode(c.s, mode); err != nil {
		return 0, err
	}
	n, err := c.a.Read(c.s, b)
	if err != nil {
		return n, err
	} else if n == 0 && len(b) > 0 {
		return 0, os.ErrDeadlineExceeded
	}
	return n, nil
}

// Write implements [net.Conn]. Data larger than a single module write is split.
func (c *Conn) Write(b []byte) (n int, err error) {
	if c.closed {
		return 0, net.ErrClosed
	}
	for n < len(b) {
		if !c.wdl.IsZero() && !c.a.now().Before(c.wdl) {
			return n, os.ErrDeadlineExceeded
		}
		m, err := c.a.Write(c.s, b[n:])
		if err != nil {
			return n, err
		} else if m == 0 {
			return n, io.ErrShortWrite
		}
		n += m
	}
	return n, nil
}

func (c *Conn) Close() error {
	if c.closed {
		return net.ErrClosed
	}
	c.closed = true
	return c.a.Close(c.s)
}

func (c *Conn) LocalAddr() net.Addr {
	ip, _ := c.a.dev.Addr()
	return c.netAddr(netip.AddrPortFrom(ip, 0))
}

func (c *Conn) RemoteAddr() net.Addr { return c.netAddr(c.remote) }

func (c *Conn) netAddr(ap netip.AddrPort) net.Addr {
	if c.proto == ProtoUDP {
		return net.UDPAddrFromAddrPort(ap)
	}
	return net.TCPAddrFromAddrPort(ap)
}

func (c *Conn) SetDeadline(t time.Time) error {
	c.rdl = t
	c.wdl = t
	return nil
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.rdl = t
	return nil
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.wdl = t
	return nil
}
