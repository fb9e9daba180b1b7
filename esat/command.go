package esat

import (
	"errors"
	"strconv"
)

// Op identifies an entry of the command set.
type Op uint8

// Command set entries. Their opcodes are listed in [Templates].
const (
	OpSecurityMode Op = iota
	OpSSID
	OpPassphrase
	OpSecurityLevel
	OpJoin
	OpDisconnect
	OpMAC
	OpSocket
	OpProtocol
	OpRemoteIP
	OpRemotePort
	OpClient
	OpWriteLength
	OpWriteStart
	OpReadLength
	OpReadTimeout
	OpReadPagination
	OpReadStart
	OpMessageType
	numOps
)

// Template describes how a command is composed: opcode, whether it carries
// an `=value` argument and the maximum length of that argument.
type Template struct {
	Code   string
	Name   string
	HasArg bool
	MaxArg int
}

const maxScalar = 16

// Templates is the command set of the module, indexed by [Op].
var Templates = [numOps]Template{
	OpSecurityMode:   {Code: "CB", Name: "security-mode", HasArg: true, MaxArg: maxScalar},
	OpSSID:           {Code: "C1", Name: "ssid", HasArg: true, MaxArg: 32},
	OpPassphrase:     {Code: "C2", Name: "passphrase", HasArg: true, MaxArg: 64},
	OpSecurityLevel:  {Code: "C3", Name: "security-level", HasArg: true, MaxArg: maxScalar},
	OpJoin:           {Code: "C0", Name: "join"},
	OpDisconnect:     {Code: "CD", Name: "disconnect"},
	OpMAC:            {Code: "Z5", Name: "mac"},
	OpSocket:         {Code: "P0", Name: "socket", HasArg: true, MaxArg: maxScalar},
	OpProtocol:       {Code: "P1", Name: "protocol", HasArg: true, MaxArg: maxScalar},
	OpRemoteIP:       {Code: "P3", Name: "remote-ip", HasArg: true, MaxArg: maxScalar},
	OpRemotePort:     {Code: "P4", Name: "remote-port", HasArg: true, MaxArg: maxScalar},
	OpClient:         {Code: "P6", Name: "client", HasArg: true, MaxArg: maxScalar},
	OpWriteLength:    {Code: "S1", Name: "write-length", HasArg: true, MaxArg: maxScalar},
	OpWriteStart:     {Code: "S0", Name: "write-start"},
	OpReadLength:     {Code: "R1", Name: "read-length", HasArg: true, MaxArg: maxScalar},
	OpReadTimeout:    {Code: "R2", Name: "read-timeout", HasArg: true, MaxArg: maxScalar},
	OpReadPagination: {Code: "R3", Name: "read-pagination", HasArg: true, MaxArg: maxScalar},
	OpReadStart:      {Code: "R0", Name: "read-start"},
	OpMessageType:    {Code: "MT", Name: "message-type", HasArg: true, MaxArg: maxScalar},
}

// Protocol selectors for OpProtocol.
const (
	ProtoTCP = 0
	ProtoUDP = 1
)

// WritePrefixLen is the length of the write-start prefix which carries the
// first payload byte so that every transfer stays word aligned.
const WritePrefixLen = 4

var (
	// ErrArgTooLong is returned when a command argument exceeds its template maximum.
	ErrArgTooLong = errors.New("esat: command argument too long")
	// ErrUnexpectedArg is returned when an argument is passed to a command that takes none.
	// An empty argument is valid for commands that take one.
	ErrUnexpectedArg = errors.New("esat: command argument mismatch")
	errBadOp         = errors.New("esat: unknown op")
)

func (op Op) String() string {
	if op >= numOps {
		return "op(" + strconv.Itoa(int(op)) + ")"
	}
	return Templates[op].Code
}

// Template returns the template of op.
func (op Op) Template() Template {
	if op >= numOps {
		return Template{}
	}
	return Templates[op]
}

// AppendCommand appends the CR terminated command op with argument arg to dst.
// Commands with no argument must be passed an empty arg.
func AppendCommand(dst []byte, op Op, arg string) ([]byte, error) {
	if op >= numOps {
		return dst, errBadOp
	}
	t := &Templates[op]
	if !t.HasArg && arg != "" {
		return dst, ErrUnexpectedArg
	} else if len(arg) > t.MaxArg {
		return dst, ErrArgTooLong
	}
	dst = append(dst, t.Code...)
	if t.HasArg {
		dst = append(dst, '=')
		dst = append(dst, arg...)
	}
	return append(dst, '\r'), nil
}

// AppendCommandUint is like [AppendCommand] for commands taking a decimal argument.
func AppendCommandUint(dst []byte, op Op, v uint64) ([]byte, error) {
	var buf [20]byte
	return AppendCommand(dst, op, string(strconv.AppendUint(buf[:0], v, 10)))
}

// WritePrefix returns the write-start prefix `S0\r` with the first payload byte folded in.
func WritePrefix(first byte) [WritePrefixLen]byte {
	code := Templates[OpWriteStart].Code
	return [WritePrefixLen]byte{code[0], code[1], '\r', first}
}

// Lookup returns the Op whose code matches the start of cmd.
func Lookup(cmd []byte) (Op, bool) {
	if len(cmd) < 2 {
		return 0, false
	}
	for op := Op(0); op < numOps; op++ {
		code := Templates[op].Code
		if cmd[0] == code[0] && cmd[1] == code[1] {
			return op, true
		}
	}
	return 0, false
}
