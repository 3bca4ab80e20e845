// Package sidertest provides an in-process stub of the Sider store for
// tests. The stub listens on a loopback TCP port, reads newline-delimited
// requests, and answers through a HandlerFunc, so a test defines exactly how
// the "server" behaves for each request.
package sidertest

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sider-db/sider-cli/siderprotocol"
)

// Reply describes how the stub answers one request.
type Reply struct {
	// Text is written back followed by a newline. Empty Text writes nothing.
	Text string

	// Raw writes Text exactly as given, without the trailing newline.
	Raw bool

	// Delay is slept before replying. Close interrupts it.
	Delay time.Duration

	// Hangup closes the connection after Text (if any) is written.
	Hangup bool
}

// HandlerFunc produces the reply for one request line (terminator removed).
type HandlerFunc func(line string) Reply

// Server is a stub store listening on 127.0.0.1.
type Server struct {
	listener net.Listener
	handler  HandlerFunc
	done     chan struct{}

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	lines    []string
	accepted int
	closed   bool

	wg sync.WaitGroup
}

// NewServer starts a stub store on an ephemeral loopback port. A nil handler
// serves NewStore().Handle. The server is closed when the test finishes.
func NewServer(t testing.TB, handler HandlerFunc) *Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("sidertest: listen: %v", err)
	}

	if handler == nil {
		handler = NewStore().Handle
	}

	s := &Server{
		listener: listener,
		handler:  handler,
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the listening address as host:port.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Endpoint returns the listening address as a client endpoint.
func (s *Server) Endpoint() siderprotocol.Endpoint {
	host, portStr, _ := net.SplitHostPort(s.Addr())
	port, _ := strconv.Atoi(portStr)
	return siderprotocol.Endpoint{Host: host, Port: port}
}

// Lines returns a copy of every request line received so far, in order.
func (s *Server) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Accepted returns the number of connections accepted so far.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Live returns the number of connections the server has not yet closed.
func (s *Server) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops the listener, closes every live connection, and waits for the
// server goroutines to exit. Later connects are refused. It is idempotent.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.listener.Close()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.accepted++
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.forget(conn)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		s.mu.Lock()
		s.lines = append(s.lines, line)
		s.mu.Unlock()

		reply := s.handler(line)

		if reply.Delay > 0 && !s.sleep(reply.Delay) {
			return
		}

		if reply.Text != "" {
			out := reply.Text
			if !reply.Raw {
				out += "\n"
			}
			if _, err := conn.Write([]byte(out)); err != nil {
				return
			}
		}

		if reply.Hangup {
			return
		}
	}
}

// sleep waits for d, returning false if the server closed first.
func (s *Server) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.done:
		return false
	}
}

func (s *Server) forget(conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}
