package ismtest

import (
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"
)

var errNotConnected = errors.New("ismtest: socket not connected")

// socket is a module client socket. Received data is queued in rx, either
// echoed from writes or pumped from a dialed connection.
type socket struct {
	mu        sync.Mutex
	proto     uint8
	ip        netip.Addr
	port      uint16
	connected bool
	conn      net.Conn
	eof       bool
	rx        []byte
	notify    chan struct{}
}

func (s *socket) setProto(p uint8) {
	s.mu.Lock()
	s.proto = p
	s.mu.Unlock()
}

func (s *socket) setRemote(ip netip.Addr) {
	s.mu.Lock()
	s.ip = ip
	s.mu.Unlock()
}

func (s *socket) setPort(port uint16) {
	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
}

func (s *socket) open(conn net.Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.connected = true
	s.eof = false
	s.rx = s.rx[:0]
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	if conn != nil {
		go s.pump(conn)
	}
}

func (s *socket) close() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.rx = s.rx[:0]
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// pump copies data received on conn into the socket until conn fails.
func (s *socket) pump(conn net.Conn) {
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		s.mu.Lock()
		current := s.conn == conn
		if current {
			s.rx = append(s.rx, buf[:n]...)
			s.eof = err != nil
		}
		s.mu.Unlock()
		if current {
			s.signal()
		}
		if err != nil || !current {
			return
		}
	}
}

func (s *socket) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// push queues data as received.
func (s *socket) push(data []byte) {
	s.mu.Lock()
	s.rx = append(s.rx, data...)
	s.mu.Unlock()
	s.signal()
}

func (s *socket) write(data []byte) (int, error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return 0, errNotConnected
	}
	conn := s.conn
	if conn == nil {
		s.rx = append(s.rx, data...)
		s.mu.Unlock()
		s.signal()
		return len(data), nil
	}
	s.mu.Unlock()
	return conn.Write(data)
}

// take dequeues at most limit bytes. If no data is queued and the socket is
// backed by a live connection take waits up to wait for data to arrive.
func (s *socket) take(limit int, wait time.Duration) ([]byte, error) {
	deadline := time.Now().Add(wait)
	for {
		s.mu.Lock()
		if !s.connected {
			s.mu.Unlock()
			return nil, errNotConnected
		}
		if len(s.rx) > 0 || s.conn == nil || s.eof {
			n := min(limit, len(s.rx))
			data := append([]byte(nil), s.rx[:n]...)
			s.rx = s.rx[n:]
			s.mu.Unlock()
			return data, nil
		}
		s.mu.Unlock()
		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, nil
		}
		select {
		case <-s.notify:
		case <-time.After(remain):
		}
	}
}
