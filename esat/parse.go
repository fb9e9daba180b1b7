package esat

import (
	"bytes"
	"errors"
	"net"
	"net/netip"
	"strconv"
)

var (
	// ErrModule is returned when the module answered with one of its error forms.
	ErrModule = errors.New("esat: module returned error")
	// ErrParse is wrapped by every [ParseError].
	ErrParse = errors.New("esat: unparseable reply")
)

// ParseError reports a reply that matched none of the grammars of a command.
type ParseError struct {
	Grammar string
	Reply   []byte
}

func (e *ParseError) Error() string {
	return "esat: " + e.Grammar + " grammar did not match " + strconv.Quote(string(e.Reply))
}

func (e *ParseError) Unwrap() error { return ErrParse }

func parseErr(grammar string, reply []byte) error {
	const maxQuoted = 48
	if len(reply) > maxQuoted {
		reply = reply[:maxQuoted]
	}
	return &ParseError{Grammar: grammar, Reply: append([]byte(nil), reply...)}
}

// JoinResult is the outcome of a successful association.
type JoinResult struct {
	SSID string
	IP   netip.Addr
}

var (
	joinTag        = []byte("[JOIN   ] ")
	connectTCPTag  = []byte("[TCP  RC] Connecting to ")
	connectUDPTag  = []byte("[UDP  RC] Connecting to ")
	minusOneReply  = []byte(CRLF + "-1" + OKTrailer)
	errorLineBytes = []byte(errorLine)
	promptBytes    = []byte(Prompt)
)

// IsErrorReply reports whether reply is the generic error form: any bytes up to
// and including `ERROR\r\n`, then the prompt, with no prompt before the error line.
func IsErrorReply(reply []byte) bool {
	idx := bytes.Index(reply, errorLineBytes)
	if idx < 0 || bytes.Contains(reply[:idx], promptBytes) {
		return false
	}
	return string(reply[idx+len(errorLine):]) == Prompt
}

// body strips the leading CRLF and trailing [OKTrailer] of a successful reply.
// The returned slice aliases reply.
func body(reply []byte) ([]byte, bool) {
	if string(reply) == OKTrailer {
		return reply[:0], true
	}
	if len(reply) < len(CRLF)+len(OKTrailer) ||
		!bytes.HasPrefix(reply, []byte(CRLF)) || !bytes.HasSuffix(reply, []byte(OKTrailer)) {
		return nil, false
	}
	return reply[len(CRLF) : len(reply)-len(OKTrailer)], true
}

// ParseOK accepts the reply of a configuration command: `\r\n[<body>\r\n]OK\r\n> `.
func ParseOK(reply []byte) error {
	if IsErrorReply(reply) {
		return ErrModule
	}
	if _, ok := body(reply); !ok {
		return parseErr("ok", reply)
	}
	return nil
}

// ParseJoin parses the reply of the associate command:
//
//	\r\n[JOIN   ] <ssid>,<ip>,0,0\r\nOK\r\n>
func ParseJoin(reply []byte) (JoinResult, error) {
	if IsErrorReply(reply) {
		return JoinResult{}, ErrModule
	}
	b, ok := body(reply)
	if !ok || !bytes.HasPrefix(b, joinTag) {
		return JoinResult{}, parseErr("join", reply)
	}
	// The SSID may itself contain commas, so fields are taken from the right.
	b, ok = bytes.CutSuffix(b[len(joinTag):], []byte(",0,0"))
	if !ok {
		return JoinResult{}, parseErr("join", reply)
	}
	comma := bytes.LastIndexByte(b, ',')
	if comma < 0 {
		return JoinResult{}, parseErr("join", reply)
	}
	ssid, ip := b[:comma], b[comma+1:]
	addr, err := netip.ParseAddr(string(ip))
	if err != nil {
		return JoinResult{}, parseErr("join", reply)
	}
	return JoinResult{SSID: string(ssid), IP: addr}, nil
}

// ParseConnect parses the reply of the start-client command:
//
//	\r\n[TCP  RC] Connecting to <anything>\r\nOK\r\n>
//
// It returns the text following "Connecting to".
func ParseConnect(reply []byte) (string, error) {
	if IsErrorReply(reply) {
		return "", ErrModule
	}
	b, ok := body(reply)
	if !ok {
		return "", parseErr("connect", reply)
	}
	switch {
	case bytes.HasPrefix(b, connectTCPTag):
		return string(b[len(connectTCPTag):]), nil
	case bytes.HasPrefix(b, connectUDPTag):
		return string(b[len(connectUDPTag):]), nil
	}
	return "", parseErr("connect", reply)
}

// ParseClose parses the reply of the stop-client command which carries no body.
func ParseClose(reply []byte) error {
	if IsErrorReply(reply) {
		return ErrModule
	}
	if string(reply) != OKTrailer {
		return parseErr("close", reply)
	}
	return nil
}

// ParseWrite parses the reply to a payload write and returns the amount of
// bytes accepted by the module:
//
//	\r\n<decimal-count>\r\nOK\r\n>
//
// The module reports a failed write with a count of -1.
func ParseWrite(reply []byte) (int, error) {
	if bytes.Equal(reply, minusOneReply) || IsErrorReply(reply) {
		return 0, ErrModule
	}
	b, ok := body(reply)
	if !ok {
		return 0, parseErr("write", reply)
	}
	n, ok := parseUint(b)
	if !ok || n > MaxWrite {
		return 0, parseErr("write", reply)
	}
	return int(n), nil
}

// ParseRead parses the reply of the read trigger and returns the payload:
//
//	\r\n<payload>\r\nOK\r\n>
//
// The payload is taken verbatim and aliases reply. The module reports a
// failed read with the -1 form, which is checked before the payload form.
// A bare [OKTrailer] reply is an empty read.
func ParseRead(reply []byte) ([]byte, error) {
	if bytes.Equal(reply, minusOneReply) || IsErrorReply(reply) {
		return nil, ErrModule
	}
	b, ok := body(reply)
	if !ok {
		return nil, parseErr("read", reply)
	}
	return b, nil
}

// ParseMAC parses the reply of the MAC address query: `\r\nC4:7F:51:01:02:03\r\nOK\r\n> `.
func ParseMAC(reply []byte) (mac [6]byte, err error) {
	if IsErrorReply(reply) {
		return mac, ErrModule
	}
	b, ok := body(reply)
	if !ok {
		return mac, parseErr("mac", reply)
	}
	hw, err := net.ParseMAC(string(b))
	if err != nil || len(hw) != len(mac) {
		return mac, parseErr("mac", reply)
	}
	copy(mac[:], hw)
	return mac, nil
}

// parseUint parses an unsigned decimal number with no sign or surrounding junk.
func parseUint(b []byte) (uint64, bool) {
	if len(b) == 0 || len(b) > 19 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
	}
	return v, true
}
