package esat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesComplete(t *testing.T) {
	seen := make(map[string]bool)
	for op := Op(0); op < numOps; op++ {
		tpl := op.Template()
		require.Len(t, tpl.Code, 2, "op %d", op)
		require.False(t, seen[tpl.Code], "duplicate code %s", tpl.Code)
		seen[tpl.Code] = true
		if tpl.HasArg {
			assert.NotZero(t, tpl.MaxArg, tpl.Code)
		}
		got, ok := Lookup([]byte(tpl.Code + "=1\r"))
		require.True(t, ok)
		require.Equal(t, op, got)
	}
}

func TestAppendCommand(t *testing.T) {
	tests := []struct {
		op   Op
		arg  string
		want string
		err  error
	}{
		{op: OpSSID, arg: "myssid", want: "C1=myssid\r"},
		{op: OpJoin, want: "C0\r"},
		{op: OpPassphrase, arg: "", want: "C2=\r"},
		{op: OpMessageType, arg: "1", want: "MT=1\r"},
		{op: OpSSID, arg: strings.Repeat("s", 32), want: "C1=" + strings.Repeat("s", 32) + "\r"},
		{op: OpSSID, arg: strings.Repeat("s", 33), err: ErrArgTooLong},
		{op: OpPassphrase, arg: strings.Repeat("p", 65), err: ErrArgTooLong},
		{op: OpRemoteIP, arg: "255.255.255.255", want: "P3=255.255.255.255\r"},
		{op: OpRemoteIP, arg: "12345678901234567", err: ErrArgTooLong},
		{op: OpJoin, arg: "x", err: ErrUnexpectedArg},
	}
	for _, tt := range tests {
		got, err := AppendCommand(nil, tt.op, tt.arg)
		if tt.err != nil {
			require.ErrorIs(t, err, tt.err, tt.op.String())
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, string(got))
	}
}

func TestAppendCommandUint(t *testing.T) {
	got, err := AppendCommandUint([]byte("prefix:"), OpWriteLength, 1046)
	require.NoError(t, err)
	require.Equal(t, "prefix:S1=1046\r", string(got))
}

func TestWritePrefix(t *testing.T) {
	p := WritePrefix('h')
	require.Equal(t, "S0\rh", string(p[:]))
	require.Zero(t, WritePrefixLen%2, "prefix must keep transfers word aligned")
}
