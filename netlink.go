// Netlink implementation of ism43362

package ism43362

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"tinygo.org/x/drivers/netlink"
)

// NetConnect joins the access point in params. A single association attempt
// is made; Retries and the watchdog are not supported.
func (nd *Netdev) NetConnect(params *netlink.ConnectParams) error {
	if params.Ssid == "" {
		return netlink.ErrMissingSSID
	}
	if params.ConnectMode != netlink.ConnectModeSTA {
		return netlink.ErrConnectModeNoGood
	}
	if params.Passphrase != "" && len(params.Passphrase) < 8 {
		return netlink.ErrShortPassphrase
	}
	if nd.a.dev.IsLinkUp() {
		return netlink.ErrConnected
	}
	err := nd.a.Join(params.Ssid, params.Passphrase)
	if err != nil {
		var jerr *JoinError
		if errors.As(err, &jerr) && jerr.Kind == JoinUnableToAssociate {
			return fmt.Errorf("%w: %w", netlink.ErrConnectFailed, err)
		}
		return err
	}
	if nd.notify != nil {
		nd.notify(netlink.EventNetUp)
	}
	return nil
}

func (nd *Netdev) NetDisconnect() {
	if !nd.a.dev.IsLinkUp() {
		return
	}
	err := nd.a.dev.Disconnect()
	if err != nil {
		nd.a.dev.logerr("NetDisconnect", slog.String("err", err.Error()))
		return
	}
	if nd.notify != nil {
		nd.notify(netlink.EventNetDown)
	}
}

func (nd *Netdev) NetNotify(cb func(netlink.Event)) {
	nd.notify = cb
}

func (nd *Netdev) GetHardwareAddr() (net.HardwareAddr, error) {
	mac, err := nd.a.dev.HardwareAddr6()
	if err != nil {
		return nil, err
	}
	return net.HardwareAddr(mac[:]), nil
}
