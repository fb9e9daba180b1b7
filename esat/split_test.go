package esat

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "join reply",
			input: "\r\n[JOIN   ] myssid,1.2.3.4,0,0\r\nOK\r\n> ",
			want:  []string{"", "[JOIN   ] myssid,1.2.3.4,0,0", "OK", "> "},
		},
		{
			name:  "commands",
			input: "C1=ssid\rC0\r",
			want:  []string{"C1=ssid", "C0"},
		},
		{
			name:  "greeting",
			input: Greeting,
			want:  []string{"", "> "},
		},
		{
			name:  "truncated at EOF",
			input: "\r\nOK",
			want:  []string{"", "OK"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := bufio.NewScanner(strings.NewReader(tt.input))
			sc.Split(ScanTokens)
			var got []string
			for sc.Scan() {
				got = append(got, sc.Text())
			}
			require.NoError(t, sc.Err())
			require.Equal(t, tt.want, got)
		})
	}
}
