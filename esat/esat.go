// Package esat implements the es-WiFi AT command protocol spoken by the
// Inventek ISM43362 module over its SPI interface: the 16-bit wire pair
// codec, the command set and the grammars of the module's replies.
package esat

const (
	// Filler pads odd-length transfers and is clocked out while reading.
	Filler byte = 0x0A
	// NAK is sent by the module in place of a byte it does not have. Dropped on receive.
	NAK byte = 0x15
)

const (
	CRLF   = "\r\n"
	Prompt = "> "
	// Greeting is the data the module presents after coming out of reset.
	Greeting = "\r\n> "
	// OKTrailer terminates every successful reply.
	OKTrailer = "\r\nOK\r\n> "
	errorLine = "ERROR\r\n"
)

const (
	// MaxWrite is the largest payload the module accepts in a single S0 transfer.
	MaxWrite = 1046
	// MaxRead is the largest payload the module returns for a single R0 request.
	MaxRead = 1460
	// NumSockets is the amount of client sockets the module multiplexes.
	NumSockets = 4
)

// EncodePair returns the on-wire order of the logical byte pair (first, second).
// The module clocks 16-bit words most significant byte first, which places the
// logically second byte first on the wire.
func EncodePair(first, second byte) [2]byte {
	return [2]byte{second, first}
}

// DecodePair returns the logical byte pair of a 16-bit word received on the wire.
func DecodePair(wire [2]byte) (first, second byte) {
	return wire[1], wire[0]
}

// AppendEncoded appends the wire representation of logical to dst.
// An odd trailing byte is paired with [Filler].
func AppendEncoded(dst, logical []byte) []byte {
	for len(logical) >= 2 {
		w := EncodePair(logical[0], logical[1])
		dst = append(dst, w[:]...)
		logical = logical[2:]
	}
	if len(logical) == 1 {
		w := EncodePair(logical[0], Filler)
		dst = append(dst, w[:]...)
	}
	return dst
}

// AppendDecoded appends the logical bytes carried by wire to dst. A NAK in the
// second position of a pair is dropped. A trailing odd byte in wire is ignored
// since it cannot form a complete word.
func AppendDecoded(dst, wire []byte) []byte {
	for len(wire) >= 2 {
		first, second := DecodePair([2]byte{wire[0], wire[1]})
		dst = append(dst, first)
		if second != NAK {
			dst = append(dst, second)
		}
		wire = wire[2:]
	}
	return dst
}
