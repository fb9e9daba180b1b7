package ism43362

import (
	"log/slog"
	"net/netip"

	"github.com/soypat/ism43362/esat"
)

const (
	maxSSID       = 32
	maxPassphrase = 64
	// securityWPA2Mixed selects WPA/WPA2 mixed mode, the module default.
	securityWPA2Mixed = "2"
)

// Join associates the module with the access point ssid. An empty passphrase
// joins an open network. Arguments are validated before any I/O.
func (d *Device) Join(ssid, passphrase string) (esat.JoinResult, error) {
	if len(ssid) > maxSSID {
		return esat.JoinResult{}, &JoinError{Kind: JoinInvalidSSID}
	}
	if len(passphrase) > maxPassphrase {
		return esat.JoinResult{}, &JoinError{Kind: JoinInvalidPassword}
	}
	if err := d.ensureReady(); err != nil {
		return esat.JoinResult{}, &JoinError{Kind: JoinUnknown, Err: err}
	}
	// The module drops its association on a new join attempt, even a failed one.
	d.ssid = ""
	d.ip = netip.Addr{}
	d.info("Join:start", slog.String("ssid", ssid))
	level := "4"
	if passphrase == "" {
		level = "0"
	}
	script := [...]struct {
		op  esat.Op
		arg string
	}{
		{op: esat.OpSecurityMode, arg: securityWPA2Mixed},
		{op: esat.OpSSID, arg: ssid},
		{op: esat.OpPassphrase, arg: passphrase},
		{op: esat.OpSecurityLevel, arg: level},
	}
	for _, step := range script {
		if err := d.commandOK(step.op, step.arg); err != nil {
			d.logerr("Join:config", slog.String("cmd", step.op.String()), slog.String("err", err.Error()))
			return esat.JoinResult{}, &JoinError{Kind: JoinUnknown, Err: err}
		}
	}
	reply, err := d.command(esat.OpJoin, "")
	if err != nil {
		return esat.JoinResult{}, &JoinError{Kind: JoinUnknown, Err: err}
	}
	res, err := esat.ParseJoin(reply)
	if err != nil {
		d.logerr("Join:failed", slog.String("err", err.Error()))
		return esat.JoinResult{}, &JoinError{Kind: JoinUnableToAssociate, Err: err}
	}
	d.ssid = res.SSID
	d.ip = res.IP
	d.info("Join:done", slog.String("ssid", res.SSID), slog.String("ip", res.IP.String()))
	return res, nil
}

// Disconnect leaves the current access point.
func (d *Device) Disconnect() error {
	if err := d.ensureReady(); err != nil {
		return err
	}
	err := d.commandOK(esat.OpDisconnect, "")
	if err != nil {
		return err
	}
	d.ssid = ""
	d.ip = netip.Addr{}
	d.info("Disconnect:done")
	return nil
}

// IsLinkUp reports whether the last Join succeeded and no Disconnect followed.
func (d *Device) IsLinkUp() bool {
	return d.state == stateReady && d.ip.IsValid()
}

// Addr returns the IP address the module was assigned on Join.
func (d *Device) Addr() (netip.Addr, error) {
	if !d.IsLinkUp() {
		return netip.Addr{}, errLinkDown
	}
	return d.ip, nil
}

// SSID returns the network the module is associated with, if any.
func (d *Device) SSID() string { return d.ssid }

// HardwareAddr6 returns the module's 6-byte [MAC address]. The address is
// queried once and cached.
//
// [MAC address]: https://en.wikipedia.org/wiki/MAC_address
func (d *Device) HardwareAddr6() ([6]byte, error) {
	if d.mac != [6]byte{} {
		return d.mac, nil
	}
	if err := d.ensureReady(); err != nil {
		return [6]byte{}, err
	}
	reply, err := d.command(esat.OpMAC, "")
	if err != nil {
		return [6]byte{}, err
	}
	mac, err := esat.ParseMAC(reply)
	if err != nil {
		return [6]byte{}, err
	}
	d.mac = mac
	return mac, nil
}
