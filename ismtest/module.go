// Package ismtest provides an in-process emulation of an ISM43362 module as
// seen from its SPI bus and GPIO lines. It is meant for testing the driver
// and for running host programs without hardware.
package ismtest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/soypat/ism43362/esat"
)

var errNotSelected = errors.New("ismtest: transfer without chip select")

// Config configures a Module.
type Config struct {
	// Networks maps the SSIDs the module can join to their passphrases.
	// If nil any SSID and passphrase is accepted.
	Networks map[string]string
	// IP is the address reported on join. Defaults to 192.168.1.100.
	IP netip.Addr
	// MAC is the module's hardware address.
	MAC [6]byte
	// Greeting replaces the data presented after reset.
	Greeting string
	// Dial is used to open client connections. If nil sockets echo
	// back the data written to them.
	Dial   func(network, address string) (net.Conn, error)
	Logger *slog.Logger
}

// Module emulates an ISM43362. Its methods CS, Reset and Wake are meant to
// be used as output pins and Ready as the input pin of the driver.
type Module struct {
	mu  sync.Mutex
	cfg Config

	selected bool
	inReset  bool
	booted   bool
	ready    bool
	// out holds the logical bytes of the reply being clocked out.
	out []byte
	// in holds the logical bytes received in the current chip-select window.
	in []byte
	// half-word latch for byte-wise transfers.
	half      bool
	latch     byte
	latchOut  [2]byte
	latchData bool

	ssid, pass string
	joined     bool
	sel        uint8
	writeLen   int
	readLen    int
	readWait   time.Duration
	sockets    *xsync.MapOf[uint8, *socket]

	txErr     error
	replies   map[string]*override
	commands  []string
	transfers int
}

// NewModule returns a module held in reset. The driver's reset pulse boots it.
func NewModule(cfg Config) *Module {
	if !cfg.IP.IsValid() {
		cfg.IP = netip.AddrFrom4([4]byte{192, 168, 1, 100})
	}
	if cfg.Greeting == "" {
		cfg.Greeting = esat.Greeting
	}
	return &Module{
		cfg:     cfg,
		sockets: xsync.NewMapOf[uint8, *socket](),
		replies: make(map[string]*override),
	}
}

// CS drives the chip-select line. The module is selected while low.
func (m *Module) CS(level bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !level && !m.selected {
		m.selected = true
		m.in = m.in[:0]
		m.half = false
	} else if level && m.selected {
		m.selected = false
		m.endWindow()
	}
}

// Reset drives the reset line. The module boots on the rising edge.
func (m *Module) Reset(level bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !level {
		m.inReset = true
		m.booted = false
		m.ready = false
		m.out = m.out[:0]
		m.in = m.in[:0]
		m.joined = false
		m.closeSockets()
		return
	}
	if m.inReset {
		m.inReset = false
		m.booted = true
		m.out = append(m.out[:0], m.cfg.Greeting...)
		m.ready = true
	}
}

// Wake drives the wake-up line. It has no effect on the emulation.
func (m *Module) Wake(level bool) {}

// Ready reports the level of the command/data-ready line.
func (m *Module) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Tx clocks w out and stores the module's output in r. Either may be nil.
func (m *Module) Tx(w, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w != nil && r != nil && len(w) != len(r) {
		return errors.New("ismtest: mismatched buffer lengths")
	}
	m.transfers++
	if m.txErr != nil {
		return m.txErr
	} else if !m.selected {
		return errNotSelected
	}
	n := max(len(w), len(r))
	for i := 0; i < n; i++ {
		c := esat.Filler
		if w != nil {
			c = w[i]
		}
		got := m.clock(c)
		if r != nil {
			r[i] = got
		}
	}
	return nil
}

// Transfer clocks a single byte.
func (m *Module) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := m.Tx([]byte{b}, r[:])
	return r[0], err
}

// clock shifts a single wire byte. Words are processed once both halves arrive.
func (m *Module) clock(w byte) byte {
	if !m.half {
		m.half = true
		m.latch = w
		m.latchData = m.booted && len(m.out) > 0
		first, second := esat.NAK, esat.NAK
		if m.latchData {
			first = m.out[0]
			if len(m.out) > 1 {
				second = m.out[1]
			}
		}
		m.latchOut = esat.EncodePair(first, second)
		return m.latchOut[0]
	}
	m.half = false
	if m.latchData {
		m.out = m.out[min(2, len(m.out)):]
		if len(m.out) == 0 {
			m.ready = false
		}
	} else if m.booted {
		first, second := esat.DecodePair([2]byte{m.latch, w})
		m.in = append(m.in, first, second)
	}
	return m.latchOut[1]
}

// endWindow runs on chip-select release and executes a received command.
func (m *Module) endWindow() {
	if !m.booted {
		return
	}
	if len(m.in) == 0 {
		if len(m.out) == 0 {
			m.ready = true
		}
		return
	}
	reply := m.execute(m.in)
	m.in = m.in[:0]
	m.out = append(m.out[:0], reply...)
	m.ready = true
}

// FailTx makes every following transfer fail with err. A nil err restores the bus.
func (m *Module) FailTx(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txErr = err
}

type override struct {
	skip  int
	reply string
}

// SetReply makes the module answer the command with the given code with reply
// instead of executing it. An empty reply removes the override.
func (m *Module) SetReply(code, reply string) {
	m.SetReplyAfter(code, 0, reply)
}

// SetReplyAfter is like SetReply but the first skip commands with the given
// code are executed normally.
func (m *Module) SetReplyAfter(code string, skip int, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reply == "" {
		delete(m.replies, code)
		return
	}
	m.replies[code] = &override{skip: skip, reply: reply}
}

// replyFor returns the override reply of code if one is active.
func (m *Module) replyFor(code string) (string, bool) {
	o, ok := m.replies[code]
	if !ok {
		return "", false
	} else if o.skip > 0 {
		o.skip--
		return "", false
	}
	return o.reply, true
}

// Commands returns the commands received since the last call to ClearCommands.
// Write payloads are not included.
func (m *Module) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

func (m *Module) ClearCommands() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = m.commands[:0]
}

// Transfers returns the number of calls to Tx.
func (m *Module) Transfers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transfers
}

// Joined reports whether the module is associated with a network.
func (m *Module) Joined() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joined
}

// InjectRx queues data as received on socket sock.
func (m *Module) InjectRx(sock uint8, data []byte) {
	m.socket(sock).push(data)
}

// Pending returns the amount of bytes queued for reading on socket sock.
func (m *Module) Pending(sock uint8) int {
	s := m.socket(sock)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rx)
}

// Close releases the connections opened through Config.Dial.
func (m *Module) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeSockets()
	return nil
}

func (m *Module) closeSockets() {
	m.sockets.Range(func(_ uint8, s *socket) bool {
		s.close()
		return true
	})
}

func (m *Module) socket(id uint8) *socket {
	s, _ := m.sockets.LoadOrCompute(id, func() *socket {
		return &socket{notify: make(chan struct{}, 1)}
	})
	return s
}

func (m *Module) debug(msg string, attrs ...slog.Attr) {
	if m.cfg.Logger != nil {
		m.cfg.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}

const (
	replyOK    = esat.OKTrailer
	replyError = esat.CRLF + "ERROR\r\n" + esat.Prompt
	replyMinus = esat.CRLF + "-1" + esat.OKTrailer
)

func replyBody(body string) string { return esat.CRLF + body + esat.OKTrailer }

var writeStart = []byte("S0\r")

// execute runs a single command and returns the reply.
func (m *Module) execute(in []byte) string {
	if bytes.HasPrefix(in, writeStart) {
		m.commands = append(m.commands, "S0")
		data := in[len(writeStart):]
		if len(data) < m.writeLen {
			return replyError
		}
		if r, ok := m.replyFor("S0"); ok {
			return r
		}
		return m.write(data[:m.writeLen])
	}
	line := bytes.TrimRight(in, string(esat.Filler))
	if !bytes.HasSuffix(line, []byte{'\r'}) {
		m.commands = append(m.commands, string(line))
		return replyError
	}
	line = line[:len(line)-1]
	m.commands = append(m.commands, string(line))
	op, ok := esat.Lookup(line)
	if !ok {
		return replyError
	}
	tpl := op.Template()
	arg, hasArg := "", false
	if rest := line[len(tpl.Code):]; len(rest) > 0 {
		if rest[0] != '=' {
			return replyError
		}
		arg, hasArg = string(rest[1:]), true
	}
	if hasArg != tpl.HasArg {
		return replyError
	}
	m.debug("ismtest:cmd", slog.String("code", tpl.Code), slog.String("arg", arg))
	if r, ok := m.replyFor(tpl.Code); ok {
		return r
	}
	return m.handle(op, arg)
}

func (m *Module) handle(op esat.Op, arg string) string {
	switch op {
	case esat.OpSecurityMode, esat.OpSecurityLevel, esat.OpMessageType, esat.OpReadPagination:
		return replyOK
	case esat.OpSSID:
		m.ssid = arg
		return replyOK
	case esat.OpPassphrase:
		m.pass = arg
		return replyOK
	case esat.OpJoin:
		if m.cfg.Networks != nil {
			pass, ok := m.cfg.Networks[m.ssid]
			if !ok || pass != m.pass {
				return esat.CRLF + "JOIN Failed" + replyError
			}
		}
		m.joined = true
		return replyBody("[JOIN   ] " + m.ssid + "," + m.cfg.IP.String() + ",0,0")
	case esat.OpDisconnect:
		m.joined = false
		return replyOK
	case esat.OpMAC:
		return replyBody(strings.ToUpper(net.HardwareAddr(m.cfg.MAC[:]).String()))
	case esat.OpReadStart:
		return m.read()
	}
	v, err := strconv.ParseUint(arg, 10, 32)
	if op == esat.OpRemoteIP {
		addr, perr := netip.ParseAddr(arg)
		if perr != nil || !addr.Is4() {
			return replyError
		}
		m.socket(m.sel).setRemote(addr)
		return replyOK
	} else if err != nil {
		return replyError
	}
	switch op {
	case esat.OpSocket:
		if v >= esat.NumSockets {
			return replyError
		}
		m.sel = uint8(v)
	case esat.OpProtocol:
		if v != esat.ProtoTCP && v != esat.ProtoUDP {
			return replyError
		}
		m.socket(m.sel).setProto(uint8(v))
	case esat.OpRemotePort:
		if v > 0xffff {
			return replyError
		}
		m.socket(m.sel).setPort(uint16(v))
	case esat.OpClient:
		if v == 1 {
			return m.connect()
		}
		m.socket(m.sel).close()
	case esat.OpWriteLength:
		if v == 0 || v > esat.MaxWrite {
			return replyError
		}
		m.writeLen = int(v)
	case esat.OpReadLength:
		if v == 0 || v > esat.MaxRead {
			return replyError
		}
		m.readLen = int(v)
	case esat.OpReadTimeout:
		m.readWait = time.Duration(v) * time.Millisecond
	default:
		return replyError
	}
	return replyOK
}

func (m *Module) connect() string {
	if !m.joined {
		return replyError
	}
	s := m.socket(m.sel)
	s.mu.Lock()
	proto, remote := s.proto, netip.AddrPortFrom(s.ip, s.port)
	s.mu.Unlock()
	if !remote.Addr().IsValid() || remote.Port() == 0 {
		return replyError
	}
	network, tag := "tcp", "[TCP  RC]"
	if proto == esat.ProtoUDP {
		network, tag = "udp", "[UDP  RC]"
	}
	var conn net.Conn
	if m.cfg.Dial != nil {
		var err error
		conn, err = m.cfg.Dial(network, remote.String())
		if err != nil {
			m.debug("ismtest:dial-failed", slog.String("err", err.Error()))
			return replyError
		}
	}
	s.open(conn)
	return replyBody(tag + " Connecting to " + remote.Addr().String())
}

func (m *Module) write(data []byte) string {
	s := m.socket(m.sel)
	n, err := s.write(data)
	if err != nil {
		return replyMinus
	}
	return replyBody(strconv.Itoa(n))
}

func (m *Module) read() string {
	s := m.socket(m.sel)
	data, err := s.take(m.readLen, m.readWait)
	if err != nil {
		return replyMinus
	}
	if len(data) == 0 {
		return replyOK
	}
	return replyBody(string(data))
}
