package ism43362

import (
	"testing"
	"time"

	"github.com/soypat/ism43362/esat"
	"github.com/soypat/ism43362/ismtest"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) (*Adapter, *ismtest.Module) {
	t.Helper()
	dev, m := joinedDevice(t, ismtest.Config{})
	return NewAdapter(dev), m
}

func TestOpenExhaustAndReuse(t *testing.T) {
	a, m := newTestAdapter(t)
	transfers := m.Transfers()
	for i := 0; i < esat.NumSockets; i++ {
		s, err := a.Open(ModeBlocking)
		require.NoError(t, err)
		require.Equal(t, Socket(i), s)
		require.Equal(t, StateOpen, a.State(s))
	}
	_, err := a.Open(ModeBlocking)
	require.ErrorIs(t, err, ErrNoAvailableSockets)
	require.Equal(t, transfers, m.Transfers(), "open is local only")

	require.NoError(t, a.Close(2))
	require.Equal(t, StateClosed, a.State(2))
	s, err := a.OpenUDP(ModeNonBlocking)
	require.NoError(t, err)
	require.Equal(t, Socket(2), s)
	require.Equal(t, StateOpen, a.State(s))
}

func TestStateErrorsBeforeIO(t *testing.T) {
	a, m := newTestAdapter(t)
	transfers := m.Transfers()
	_, err := a.Write(0, []byte("x"))
	require.ErrorIs(t, err, ErrSocketNotOpen)
	_, err = a.Read(0, make([]byte, 4))
	require.ErrorIs(t, err, ErrSocketNotOpen)
	require.ErrorIs(t, a.Connect(1, testRemote), ErrSocketNotOpen)
	require.ErrorIs(t, a.SetMode(1, ModeBlocking), ErrSocketNotOpen)
	require.ErrorIs(t, a.Connect(9, testRemote), ErrInvalidSocket)
	require.ErrorIs(t, a.Close(9), ErrInvalidSocket)
	require.NoError(t, a.Close(3), "closing a closed socket is a no-op")
	require.Equal(t, StateClosed, a.State(9))
	require.Equal(t, transfers, m.Transfers())
}

func TestConnectStates(t *testing.T) {
	a, m := newTestAdapter(t)
	s, err := a.Open(ModeBlocking)
	require.NoError(t, err)

	m.SetReply("P6", "\r\nERROR\r\n> ")
	require.ErrorIs(t, a.Connect(s, testRemote), ErrConnectionFailed)
	require.Equal(t, StateOpen, a.State(s), "failed connect leaves state unchanged")

	m.SetReply("P6", "")
	require.NoError(t, a.Connect(s, testRemote))
	require.Equal(t, StateConnected, a.State(s))
	require.Equal(t, testRemote, a.RemoteAddr(s))
	// Reconnecting a connected socket is allowed.
	require.NoError(t, a.Connect(s, testRemote))
}

func TestAdapterEcho(t *testing.T) {
	a, _ := newTestAdapter(t)
	s, err := a.Open(ModeBlocking)
	require.NoError(t, err)
	require.NoError(t, a.Connect(s, testRemote))
	n, err := a.Write(s, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	buf := make([]byte, 16)
	n, err = a.Read(s, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}

func TestNonBlockingWouldBlock(t *testing.T) {
	a, m := newTestAdapter(t)
	s, err := a.Open(ModeNonBlocking)
	require.NoError(t, err)
	require.NoError(t, a.Connect(s, testRemote))
	_, err = a.Read(s, make([]byte, 8))
	require.ErrorIs(t, err, ErrWouldBlock)
	require.Equal(t, StateConnected, a.State(s))

	m.InjectRx(uint8(s), []byte("data"))
	buf := make([]byte, 8)
	n, err := a.Read(s, buf)
	require.NoError(t, err)
	require.Equal(t, "data", string(buf[:n]))
}

func TestTimeoutReturnsZero(t *testing.T) {
	a, _ := newTestAdapter(t)
	// Each reading of the clock advances it, so the deadline elapses after a few polls.
	var now time.Time
	a.now = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
	s, err := a.Open(ModeTimeout(5 * time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, a.Connect(s, testRemote))
	n, err := a.Read(s, make([]byte, 8))
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, StateConnected, a.State(s))

	timeout, ok := ModeTimeout(5 * time.Millisecond).Timeout()
	require.True(t, ok)
	require.Equal(t, 5*time.Millisecond, timeout)
	_, ok = ModeBlocking.Timeout()
	require.False(t, ok)
}

func TestReadErrorHalfCloses(t *testing.T) {
	a, m := newTestAdapter(t)
	s, err := a.Open(ModeBlocking)
	require.NoError(t, err)
	require.NoError(t, a.Connect(s, testRemote))

	m.SetReply("R0", "\r\n-1\r\nOK\r\n> ")
	_, err = a.Read(s, make([]byte, 8))
	require.ErrorIs(t, err, ErrRead)
	require.Equal(t, StateHalfClosed, a.State(s))

	transfers := m.Transfers()
	_, err = a.Write(s, []byte("x"))
	require.ErrorIs(t, err, ErrSocketNotOpen)
	require.NoError(t, a.Close(s))
	require.Equal(t, transfers, m.Transfers(), "half-closed socket is released locally")
	require.Equal(t, StateClosed, a.State(s))
}

func TestCloseAlwaysFrees(t *testing.T) {
	a, m := newTestAdapter(t)
	s, err := a.Open(ModeBlocking)
	require.NoError(t, err)
	require.NoError(t, a.Connect(s, testRemote))
	m.SetReply("P6", "\r\nERROR\r\n> ")
	require.ErrorIs(t, a.Close(s), ErrClose)
	require.Equal(t, StateClosed, a.State(s))
	s2, err := a.Open(ModeBlocking)
	require.NoError(t, err)
	require.Equal(t, s, s2)
}

func TestModeString(t *testing.T) {
	require.Equal(t, "blocking", ModeBlocking.String())
	require.Equal(t, "non-blocking", ModeNonBlocking.String())
	require.Equal(t, "timeout(1s)", ModeTimeout(time.Second).String())
	require.Equal(t, "half-closed", StateHalfClosed.String())
}
