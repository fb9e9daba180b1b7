package esat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeOddCommand(t *testing.T) {
	const a, b, c = 'A', 'B', 'C'
	wire := AppendEncoded(nil, []byte{a, b, c})
	require.Equal(t, []byte{b, a, Filler, c}, wire)
}

func TestDecodeDropsTrailingNAK(t *testing.T) {
	const x, y, z = 'x', 'y', 'z'
	// Logical pairs (x,y),(z,NAK) travel swapped on the wire.
	wire := []byte{y, x, NAK, z}
	require.Equal(t, []byte{x, y, z}, AppendDecoded(nil, wire))
}

func TestPairRoundTrip(t *testing.T) {
	for _, pair := range [][2]byte{{0, 0}, {'\r', '\n'}, {0xff, Filler}, {NAK, 1}} {
		first, second := DecodePair(EncodePair(pair[0], pair[1]))
		require.Equal(t, pair[0], first)
		require.Equal(t, pair[1], second)
	}
}

func TestEncodeDecodeText(t *testing.T) {
	cmd := []byte("C1=myssid\r")
	wire := AppendEncoded(nil, cmd)
	require.Len(t, wire, len(cmd)) // Even length, no padding.
	require.Equal(t, cmd, AppendDecoded(nil, wire))

	odd := []byte("C0\r")
	wire = AppendEncoded(nil, odd)
	require.Len(t, wire, 4)
	// Padding survives decoding since only NAK is dropped.
	require.Equal(t, append(odd, Filler), AppendDecoded(nil, wire))
}
