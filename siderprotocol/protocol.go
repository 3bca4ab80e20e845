package siderprotocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Protocol constants.
const (
	// DefaultHost is the host used when none is configured.
	DefaultHost = "localhost"

	// DefaultPort is the documented port of the store.
	DefaultPort = 4000

	// LineTerminator ends every request line.
	LineTerminator = "\n"

	// MaxResponseSize is the default size of the single receive buffer.
	MaxResponseSize = 4096

	// ConnectTimeout bounds establishing a TCP connection.
	ConnectTimeout = 5 * time.Second

	// ReadTimeout bounds waiting for a reply (and writing a request).
	ReadTimeout = 5 * time.Second

	// staleProbeWindow is how long SendRaw waits for a pending EOF or reset
	// before trusting an idle connection.
	staleProbeWindow = time.Millisecond
)

// Endpoint identifies the store a client talks to.
type Endpoint struct {
	Host string
	Port int
}

// String returns the endpoint as host:port.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Validate checks that the endpoint can be dialed.
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("invalid endpoint: empty host")
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("invalid endpoint: port %d out of range 1-65535", e.Port)
	}
	return nil
}

// ParseEndpoint parses "host" or "host:port". A missing port defaults to
// DefaultPort. IPv6 literals must be bracketed when a port is given.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint: empty address")
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// No port component: the whole string is the host.
		ep := Endpoint{Host: strings.Trim(s, "[]"), Port: DefaultPort}
		return ep, ep.Validate()
	}

	port, err := ParsePort(portStr)
	if err != nil {
		return Endpoint{}, err
	}
	ep := Endpoint{Host: host, Port: port}
	return ep, ep.Validate()
}

// ParsePort parses a decimal TCP port number.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d: out of range 1-65535", port)
	}
	return port, nil
}
