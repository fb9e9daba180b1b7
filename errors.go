package ism43362

import (
	"errors"
	"strconv"
)

var (
	// ErrInitFailed is returned by every operation of a Device whose
	// initialization handshake failed. The Device must be reconstructed.
	ErrInitFailed = errors.New("ism43362: device initialization failed")
	// ErrNotInitialized is returned when InitExplicit is configured and an
	// operation is attempted before a successful call to Init.
	ErrNotInitialized = errors.New("ism43362: device not initialized")

	// ErrConnectionFailed is wrapped by OpErrors of the connect operation.
	ErrConnectionFailed = errors.New("ism43362: connection failed")
	// ErrWrite is wrapped by OpErrors of the write operation.
	ErrWrite = errors.New("ism43362: write failed")
	// ErrRead is wrapped by OpErrors of the read operation.
	ErrRead = errors.New("ism43362: read failed")
	// ErrClose is wrapped by OpErrors of the close operation.
	ErrClose = errors.New("ism43362: close failed")

	// ErrSocketNotOpen is returned when an operation requires an open or connected socket.
	ErrSocketNotOpen = errors.New("ism43362: socket not open")
	// ErrNoAvailableSockets is returned by Open when all module sockets are in use.
	ErrNoAvailableSockets = errors.New("ism43362: no available sockets")
	// ErrInvalidSocket is returned for socket handles outside the module's socket range.
	ErrInvalidSocket = errors.New("ism43362: invalid socket")
	// ErrWouldBlock is returned by reads on a non-blocking socket with no data available.
	ErrWouldBlock = errors.New("ism43362: operation would block")

	errResponseOverflow = errors.New("response exceeds buffer")
	errIPv4Only         = errors.New("ism43362: only IPv4 addresses supported")
	errLinkDown         = errors.New("ism43362: link down")
)

// Stage identifies the direction of a failed SPI transfer.
type Stage uint8

const (
	StageWrite Stage = iota
	StageRead
)

func (s Stage) String() string {
	switch s {
	case StageWrite:
		return "write"
	case StageRead:
		return "read"
	}
	return "stage(" + strconv.Itoa(int(s)) + ")"
}

// TransportError is returned when the SPI bus fails during a command exchange.
type TransportError struct {
	Stage Stage
	Err   error
}

func (e *TransportError) Error() string {
	return "ism43362: spi " + e.Stage.String() + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// JoinErrorKind classifies a failed association.
type JoinErrorKind uint8

const (
	JoinUnknown JoinErrorKind = iota
	JoinInvalidSSID
	JoinInvalidPassword
	JoinUnableToAssociate
)

func (k JoinErrorKind) String() string {
	switch k {
	case JoinUnknown:
		return "unknown"
	case JoinInvalidSSID:
		return "invalid ssid"
	case JoinInvalidPassword:
		return "invalid password"
	case JoinUnableToAssociate:
		return "unable to associate"
	}
	return "joinkind(" + strconv.Itoa(int(k)) + ")"
}

// JoinError is returned by Join. Err holds the underlying cause if any.
type JoinError struct {
	Kind JoinErrorKind
	Err  error
}

func (e *JoinError) Error() string {
	if e.Err == nil {
		return "ism43362: join: " + e.Kind.String()
	}
	return "ism43362: join: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *JoinError) Unwrap() error { return e.Err }

// InitError is returned when the module does not present its greeting after reset.
type InitError struct {
	Got []byte
	Err error
}

func (e *InitError) Error() string {
	msg := "ism43362: bad greeting " + strconv.Quote(string(e.Got))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InitError) Unwrap() []error { return []error{ErrInitFailed, e.Err} }

// OpError is returned by socket operations of a Device. It unwraps to the
// operation's kind (ErrConnectionFailed, ErrWrite, ErrRead or ErrClose) and
// to the underlying cause.
type OpError struct {
	Op     string
	Code   string // Command code whose reply failed.
	Socket uint8
	Kind   error
	Err    error
}

func (e *OpError) Error() string {
	return "ism43362: " + e.Op + " socket " + strconv.Itoa(int(e.Socket)) + " at " + e.Code + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() []error { return []error{e.Kind, e.Err} }
