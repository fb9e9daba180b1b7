package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/soypat/ism43362"
	"github.com/soypat/ism43362/ismtest"
	"github.com/soypat/ism43362/periphbus"
	"periph.io/x/conn/v3/physic"
)

// openAdapter returns an adapter on the backend selected by cfg and a
// function releasing its resources.
func openAdapter(cfg *Config, logger *slog.Logger) (*ism43362.Adapter, func() error, error) {
	dcfg := ism43362.DefaultConfig()
	dcfg.Logger = logger
	dcfg.ReadTimeout = cfg.Driver.readTimeout()
	if cfg.Driver.InitPolicy == "explicit" {
		dcfg.InitPolicy = ism43362.InitExplicit
	}
	var (
		dev     *ism43362.Device
		release func() error
	)
	switch cfg.Backend {
	case backendSim:
		m := ismtest.NewModule(ismtest.Config{
			Dial:   net.Dial,
			Logger: logger.With(slog.String("component", "ismtest")),
		})
		// The emulator needs no settle time.
		dcfg.Delay = func(time.Duration) {}
		dev = ism43362.New(m, m.CS, m.Wake, m.Reset, m.Ready, dcfg)
		release = m.Close
	case backendPeriph:
		bus, err := periphbus.Open(periphbus.Config{
			Port:      cfg.Bus.Port,
			Frequency: physic.Frequency(cfg.Bus.FrequencyHz) * physic.Hertz,
			CS:        cfg.Bus.CS,
			Ready:     cfg.Bus.Ready,
			Wake:      cfg.Bus.Wake,
			Reset:     cfg.Bus.Reset,
		})
		if err != nil {
			return nil, nil, err
		}
		dev = bus.Device(dcfg)
		release = func() error { return errors.Join(bus.Err(), bus.Close()) }
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if dcfg.InitPolicy == ism43362.InitExplicit {
		if err := dev.Init(); err != nil {
			release()
			return nil, nil, err
		}
	}
	return ism43362.NewAdapter(dev), release, nil
}

// dialer opens module connections for network clients on the host.
type dialer struct {
	a *ism43362.Adapter
}

// DialContext resolves address with the host resolver since the module
// is only given IPv4 addresses.
func (d dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
		if err != nil {
			return nil, err
		} else if len(ips) == 0 {
			return nil, fmt.Errorf("no IPv4 address for %s", host)
		}
		ip = ips[0]
	}
	pn, err := net.LookupPort(network, port)
	if err != nil {
		return nil, err
	}
	addr := netip.AddrPortFrom(ip, uint16(pn))
	var conn *ism43362.Conn
	switch network {
	case "tcp", "tcp4":
		conn, err = d.a.DialTCP(addr)
	case "udp", "udp4":
		conn, err = d.a.DialUDP(addr)
	default:
		return nil, net.UnknownNetworkError(network)
	}
	if err != nil {
		return nil, &net.OpError{Op: "dial", Net: network, Addr: net.TCPAddrFromAddrPort(addr), Err: err}
	}
	return conn, nil
}
