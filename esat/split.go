package esat

import (
	"bufio"
	"bytes"
)

// ScanTokens is a [bufio.SplitFunc] splitting a module transcript into tokens.
// Tokens are CRLF terminated lines, the prompt and CR terminated host commands.
// Terminators are not part of the returned token except for the prompt itself.
func ScanTokens(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if bytes.HasPrefix(data, promptBytes) {
		return len(Prompt), data[:len(Prompt)], nil
	}
	if i := bytes.IndexByte(data, '\r'); i >= 0 {
		if i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		} else if i+1 < len(data) || atEOF {
			return i + 1, data[:i], nil
		}
		// Need one more byte to tell a CRLF line from a CR command.
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = ScanTokens
