package ism43362

import (
	"net/netip"
	"testing"
	"time"

	"github.com/soypat/ism43362/ismtest"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink"
)

func TestNetdevSockets(t *testing.T) {
	a, _ := newTestAdapter(t)
	nd := NewNetdev(a)

	_, err := nd.Socket(10, netdev.SOCK_STREAM, netdev.IPPROTO_TCP)
	require.ErrorIs(t, err, netdev.ErrFamilyNotSupported)
	_, err = nd.Socket(netdev.AF_INET, netdev.SOCK_STREAM, netdev.IPPROTO_UDP)
	require.ErrorIs(t, err, netdev.ErrProtocolNotSupported)

	fd, err := nd.Socket(netdev.AF_INET, netdev.SOCK_STREAM, netdev.IPPROTO_TCP)
	require.NoError(t, err)
	require.NoError(t, nd.Connect(fd, "10.0.0.2", netip.AddrPortFrom(netip.Addr{}, 80)))
	require.Equal(t, netip.MustParseAddrPort("10.0.0.2:80"), a.RemoteAddr(Socket(fd)))

	n, err := nd.Send(fd, []byte("ping"), 0, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	buf := make([]byte, 8)
	n, err = nd.Recv(fd, buf, 0, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	_, err = nd.Recv(fd, buf, 0, time.Now().Add(-time.Second))
	require.ErrorIs(t, err, netdev.ErrTimeout)
	require.NoError(t, nd.Close(fd))
	require.ErrorIs(t, nd.Close(-1), netdev.ErrInvalidSocketFd)

	for i := 0; i < 4; i++ {
		_, err = nd.Socket(netdev.AF_INET, netdev.SOCK_DGRAM, 0)
		require.NoError(t, err)
	}
	_, err = nd.Socket(netdev.AF_INET, netdev.SOCK_DGRAM, 0)
	require.ErrorIs(t, err, netdev.ErrNoMoreSockets)

	require.ErrorIs(t, nd.Listen(0, 1), netdev.ErrNotSupported)
	_, _, err = nd.Accept(0)
	require.ErrorIs(t, err, netdev.ErrNotSupported)
}

func TestNetdevHostByName(t *testing.T) {
	nd := NewNetdev(nil)
	addr, err := nd.GetHostByName("192.168.0.1")
	require.NoError(t, err)
	require.Equal(t, netip.MustParseAddr("192.168.0.1"), addr)
	_, err = nd.GetHostByName("example.com")
	require.ErrorIs(t, err, netdev.ErrHostUnknown)
	_, err = nd.GetHostByName("::1")
	require.ErrorIs(t, err, netdev.ErrHostUnknown)
}

func TestNetlink(t *testing.T) {
	mac := [6]byte{2, 3, 4, 5, 6, 7}
	dev, m := newTestDevice(t, ismtest.Config{MAC: mac, Networks: map[string]string{"home": "password"}}, DefaultConfig())
	nd := NewNetdev(NewAdapter(dev))
	var events []netlink.Event
	nd.NetNotify(func(e netlink.Event) { events = append(events, e) })

	require.ErrorIs(t, nd.NetConnect(&netlink.ConnectParams{}), netlink.ErrMissingSSID)
	require.ErrorIs(t, nd.NetConnect(&netlink.ConnectParams{Ssid: "home", Passphrase: "short"}), netlink.ErrShortPassphrase)
	require.ErrorIs(t, nd.NetConnect(&netlink.ConnectParams{Ssid: "home", Passphrase: "badpassword"}), netlink.ErrConnectFailed)
	require.Empty(t, events)

	require.NoError(t, nd.NetConnect(&netlink.ConnectParams{Ssid: "home", Passphrase: "password"}))
	require.True(t, m.Joined())
	require.ErrorIs(t, nd.NetConnect(&netlink.ConnectParams{Ssid: "home", Passphrase: "password"}), netlink.ErrConnected)
	addr, err := nd.Addr()
	require.NoError(t, err)
	require.True(t, addr.Is4())

	hw, err := nd.GetHardwareAddr()
	require.NoError(t, err)
	require.Equal(t, mac[:], []byte(hw))

	nd.NetDisconnect()
	require.False(t, m.Joined())
	require.Equal(t, []netlink.Event{netlink.EventNetUp, netlink.EventNetDown}, events)
}
