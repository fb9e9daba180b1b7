package ism43362

import (
	"errors"
	"log/slog"
	"net/netip"
	"strconv"

	"github.com/soypat/ism43362/esat"
)

// Protocol selects the transport of a module socket.
type Protocol uint8

const (
	ProtoTCP Protocol = esat.ProtoTCP
	ProtoUDP Protocol = esat.ProtoUDP
)

func (p Protocol) String() string {
	switch p {
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	}
	return "proto(" + strconv.Itoa(int(p)) + ")"
}

var errReadOverrun = errors.New("module returned more data than requested")

func opErr(op string, code esat.Op, sock uint8, kind, err error) *OpError {
	return &OpError{Op: op, Code: code.String(), Socket: sock, Kind: kind, Err: err}
}

func checkSocket(sock uint8) error {
	if sock >= esat.NumSockets {
		return ErrInvalidSocket
	}
	return nil
}

// Connect starts a client connection on module socket sock to addr.
// Only IPv4 addresses are supported by the module.
func (d *Device) Connect(proto Protocol, sock uint8, addr netip.AddrPort) error {
	if err := checkSocket(sock); err != nil {
		return err
	}
	ip := addr.Addr().Unmap()
	if !ip.Is4() {
		return errIPv4Only
	}
	if err := d.ensureReady(); err != nil {
		return err
	}
	d.debug("Connect", slog.Int("sock", int(sock)), slog.String("proto", proto.String()), slog.String("addr", addr.String()))
	if err := d.commandUintOK(esat.OpSocket, uint64(sock)); err != nil {
		return opErr("connect", esat.OpSocket, sock, ErrConnectionFailed, err)
	}
	if err := d.commandUintOK(esat.OpProtocol, uint64(proto)); err != nil {
		return opErr("connect", esat.OpProtocol, sock, ErrConnectionFailed, err)
	}
	if err := d.commandOK(esat.OpRemoteIP, ip.String()); err != nil {
		return opErr("connect", esat.OpRemoteIP, sock, ErrConnectionFailed, err)
	}
	if err := d.commandUintOK(esat.OpRemotePort, uint64(addr.Port())); err != nil {
		return opErr("connect", esat.OpRemotePort, sock, ErrConnectionFailed, err)
	}
	reply, err := d.command(esat.OpClient, "1")
	if err == nil {
		_, err = esat.ParseConnect(reply)
	}
	if err != nil {
		d.logerr("Connect:failed", slog.Int("sock", int(sock)), slog.String("err", err.Error()))
		return opErr("connect", esat.OpClient, sock, ErrConnectionFailed, err)
	}
	return nil
}

// Write sends at most [esat.MaxWrite] bytes of data over module socket sock
// and returns the amount of bytes the module accepted.
func (d *Device) Write(sock uint8, data []byte) (int, error) {
	if err := checkSocket(sock); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	if err := d.ensureReady(); err != nil {
		return 0, err
	}
	data = data[:clamp(len(data), esat.MaxWrite)]
	if err := d.commandUintOK(esat.OpSocket, uint64(sock)); err != nil {
		return 0, opErr("write", esat.OpSocket, sock, ErrWrite, err)
	}
	if err := d.commandUintOK(esat.OpWriteLength, uint64(len(data))); err != nil {
		return 0, opErr("write", esat.OpWriteLength, sock, ErrWrite, err)
	}
	prefix := esat.WritePrefix(data[0])
	reply, err := d.send(prefix[:], data[1:])
	if err != nil {
		return 0, opErr("write", esat.OpWriteStart, sock, ErrWrite, err)
	}
	n, err := esat.ParseWrite(reply)
	if err == nil && n > len(data) {
		// The module can not accept more than it was sent.
		err = &esat.ParseError{Grammar: "write", Reply: append([]byte(nil), reply...)}
	}
	if err != nil {
		return 0, opErr("write", esat.OpWriteStart, sock, ErrWrite, err)
	}
	d.trace("Write", slog.Int("sock", int(sock)), slog.Int("len", len(data)), slog.Int("accepted", n))
	return n, nil
}

// Read reads data pending on module socket sock into buf. Read requests data
// until buf is full or the module has no more data to give. An error is only
// returned if no data was read.
func (d *Device) Read(sock uint8, buf []byte) (n int, err error) {
	if err := checkSocket(sock); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if err := d.ensureReady(); err != nil {
		return 0, err
	}
	for n < len(buf) {
		got, err := d.readOnce(sock, buf[n:])
		if err != nil {
			if n == 0 {
				return 0, err
			}
			d.debug("Read:partial", slog.Int("sock", int(sock)), slog.Int("n", n), slog.String("err", err.Error()))
			break
		} else if got == 0 {
			break
		}
		n += got
	}
	return n, nil
}

// readOnce issues a single read request of at most [esat.MaxRead] bytes.
func (d *Device) readOnce(sock uint8, buf []byte) (int, error) {
	want := clamp(len(buf), esat.MaxRead)
	timeout := uint64(d.readTimeout.Milliseconds())
	if err := d.commandUintOK(esat.OpSocket, uint64(sock)); err != nil {
		return 0, opErr("read", esat.OpSocket, sock, ErrRead, err)
	}
	if err := d.commandUintOK(esat.OpReadLength, uint64(want)); err != nil {
		return 0, opErr("read", esat.OpReadLength, sock, ErrRead, err)
	}
	if err := d.commandUintOK(esat.OpReadTimeout, timeout); err != nil {
		return 0, opErr("read", esat.OpReadTimeout, sock, ErrRead, err)
	}
	if err := d.commandOK(esat.OpReadPagination, "1"); err != nil {
		return 0, opErr("read", esat.OpReadPagination, sock, ErrRead, err)
	}
	reply, err := d.command(esat.OpReadStart, "")
	if err != nil {
		return 0, opErr("read", esat.OpReadStart, sock, ErrRead, err)
	}
	payload, err := esat.ParseRead(reply)
	if err != nil {
		return 0, opErr("read", esat.OpReadStart, sock, ErrRead, err)
	} else if len(payload) > want {
		return 0, opErr("read", esat.OpReadStart, sock, ErrRead, errReadOverrun)
	}
	d.trace("Read", slog.Int("sock", int(sock)), slog.Int("len", len(payload)))
	return copy(buf, payload), nil
}

// Close stops the client connection on module socket sock.
func (d *Device) Close(sock uint8) error {
	if err := checkSocket(sock); err != nil {
		return err
	}
	if err := d.ensureReady(); err != nil {
		return err
	}
	if err := d.commandUintOK(esat.OpSocket, uint64(sock)); err != nil {
		return opErr("close", esat.OpSocket, sock, ErrClose, err)
	}
	reply, err := d.command(esat.OpClient, "0")
	if err == nil {
		err = esat.ParseClose(reply)
	}
	if err != nil {
		return opErr("close", esat.OpClient, sock, ErrClose, err)
	}
	return nil
}

const maxWriteLen = esat.MaxWrite
