package ism43362

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnEcho(t *testing.T) {
	a, m := newTestAdapter(t)
	c, err := a.DialTCP(testRemote)
	require.NoError(t, err)
	require.Equal(t, StateConnected, a.State(c.Socket()))

	data := pattern(3000)
	n, err := c.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n, "large writes are split")
	require.Equal(t, len(data), m.Pending(uint8(c.Socket())))

	got := make([]byte, len(data))
	n, err = c.Read(got)
	require.NoError(t, err)
	require.Equal(t, data, got[:n])

	raddr, ok := c.RemoteAddr().(*net.TCPAddr)
	require.True(t, ok)
	require.Equal(t, testRemote, raddr.AddrPort())
	laddr, ok := c.LocalAddr().(*net.TCPAddr)
	require.True(t, ok)
	require.True(t, laddr.IP.To4() != nil)

	require.NoError(t, c.Close())
	require.ErrorIs(t, c.Close(), net.ErrClosed)
	_, err = c.Read(got)
	require.ErrorIs(t, err, net.ErrClosed)
	require.Equal(t, StateClosed, a.State(c.Socket()))
}

func TestConnDeadline(t *testing.T) {
	a, _ := newTestAdapter(t)
	c, err := a.DialUDP(testRemote)
	require.NoError(t, err)
	_, ok := c.RemoteAddr().(*net.UDPAddr)
	require.True(t, ok)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(-time.Second)))
	_, err = c.Read(make([]byte, 4))
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)

	require.NoError(t, c.SetDeadline(time.Now().Add(20*time.Millisecond)))
	_, err = c.Read(make([]byte, 4))
	require.True(t, errors.Is(err, os.ErrDeadlineExceeded), err)

	require.NoError(t, c.SetWriteDeadline(time.Now().Add(-time.Second)))
	_, err = c.Write([]byte("late"))
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func TestDialFailureReleasesSocket(t *testing.T) {
	a, m := newTestAdapter(t)
	m.SetReply("P6", "\r\nERROR\r\n> ")
	_, err := a.DialTCP(testRemote)
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.ErrorIs(t, err, ErrClose, "failed release is reported with the connect error")
	for s := Socket(0); s < 4; s++ {
		require.Equal(t, StateClosed, a.State(s))
	}
}
