package ism43362

import (
	"runtime"
	"time"

	"github.com/soypat/ism43362/esat"
	"tinygo.org/x/drivers"
)

//go:generate go tool mockgen -source=bus.go -destination=mock_spi_test.go -package=ism43362

// SPI is the bus the module is attached to. Transfers are full duplex and
// the module expects 16-bit words, so w is always of even length.
type SPI interface {
	Tx(w, r []byte) error
}

var _ SPI = drivers.SPI(nil)

// OutputPin drives a GPIO line high (true) or low (false).
type OutputPin func(level bool)

// InputPin samples a GPIO line. It returns true if the line is high.
type InputPin func() bool

// csSettle is the time the module needs after a chip-select edge.
const csSettle = 10 * time.Millisecond

// txChunk is the amount of wire bytes sent per SPI transaction when streaming.
const txChunk = 64

// spibus implements the framing of the module's SPI interface. It is
// not safe for concurrent use.
type spibus struct {
	spi   SPI
	cs    OutputPin
	ready InputPin
	delay func(time.Duration)
	wbuf  [txChunk]byte
	// rbuf receives the words clocked in while streaming. Some buses
	// do not accept a nil read buffer.
	rbuf [txChunk]byte
}

type selected struct {
	b *spibus
}

// selectChip asserts chip-select and waits for the module to settle.
// The returned value must be released, usually with defer.
func (b *spibus) selectChip() selected {
	b.cs(false)
	b.delay(csSettle)
	return selected{b: b}
}

func (s selected) release() {
	s.b.cs(true)
	s.b.delay(csSettle)
}

// awaitReady spins until the module asserts its data-ready line. There is no timeout.
func (b *spibus) awaitReady() {
	for !b.ready() {
		runtime.Gosched()
	}
}

// exchange clocks a single 16-bit word. The logical pair is sent swapped and
// the received word is unswapped the same way.
func (b *spibus) exchange(first, second byte) (r0, r1 byte, err error) {
	w := esat.EncodePair(first, second)
	var r [2]byte
	err = b.spi.Tx(w[:], r[:])
	if err != nil {
		return 0, 0, err
	}
	r0, r1 = esat.DecodePair(r)
	return r0, r1, nil
}

// transmit sends prefix followed by data within one chip-select window.
// Pairs are formed across the prefix/data boundary and an odd tail is
// padded with [esat.Filler].
func (b *spibus) transmit(prefix, data []byte) error {
	sel := b.selectChip()
	defer sel.release()
	n := len(prefix) + len(data)
	at := func(i int) byte {
		if i < len(prefix) {
			return prefix[i]
		} else if i-len(prefix) < len(data) {
			return data[i-len(prefix)]
		}
		return esat.Filler
	}
	w := b.wbuf[:0]
	for i := 0; i < n; i += 2 {
		pair := esat.EncodePair(at(i), at(i+1))
		w = append(w, pair[:]...)
		if len(w) == cap(w) || i+2 >= n {
			if err := b.spi.Tx(w, b.rbuf[:len(w)]); err != nil {
				return &TransportError{Stage: StageWrite, Err: err}
			}
			w = w[:0]
		}
	}
	return nil
}

// receive reads the module's reply into dst while data-ready stays asserted.
// The first byte of each word is always kept, the second only if it is not
// a [esat.NAK]. If the reply exceeds limit bytes the remainder is drained
// and discarded and an error is returned.
func (b *spibus) receive(dst []byte, limit int) ([]byte, error) {
	sel := b.selectChip()
	defer sel.release()
	overflow := false
	for b.ready() {
		r0, r1, err := b.exchange(esat.Filler, esat.Filler)
		if err != nil {
			return dst, &TransportError{Stage: StageRead, Err: err}
		}
		dst, overflow = keep(dst, r0, limit, overflow)
		if r1 != esat.NAK {
			dst, overflow = keep(dst, r1, limit, overflow)
		}
	}
	if overflow {
		return dst, &TransportError{Stage: StageRead, Err: errResponseOverflow}
	}
	return dst, nil
}

func keep(dst []byte, c byte, limit int, overflow bool) ([]byte, bool) {
	if overflow || len(dst) >= limit {
		return dst, true
	}
	return append(dst, c), false
}
