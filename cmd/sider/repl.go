// =============================================================================
// repl.go - Sider Shell Loop
// =============================================================================
//
// The shell reads a line, translates it (translate.go), and either handles it
// locally or sends it to the store through siderprotocol.Client. Transport
// failures are printed and the loop continues; the next store command
// reconnects on its own. The prompt shows the connection state:
//
//	🟢 sider>    connected
//	🔴 sider>    not connected
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/sider-db/sider-cli/siderprotocol"
)

const (
	promptConnected    = "🟢 sider> "
	promptDisconnected = "🔴 sider> "
)

// clientFactory creates a client for an endpoint. CONNECT uses it so every
// client shares the session's logger, metrics, and timeouts.
type clientFactory func(siderprotocol.Endpoint) *siderprotocol.Client

// shell is one interactive session.
//
// GO CONCEPT: Mutex Guarding a Swappable Field
// --------------------------------------------
// The signal handler closes the client from another goroutine while the
// loop may be executing a command or swapping clients for CONNECT. mu
// serializes the two, so shutdown waits for the in-flight command (bounded
// by the read timeout) instead of racing it.
type shell struct {
	mu     sync.Mutex
	client *siderprotocol.Client

	newClient clientFactory
	gatherer  prometheus.Gatherer

	out    io.Writer
	errOut io.Writer
}

func newShell(endpoint siderprotocol.Endpoint, newClient clientFactory, gatherer prometheus.Gatherer, out, errOut io.Writer) *shell {
	return &shell{
		client:    newClient(endpoint),
		newClient: newClient,
		gatherer:  gatherer,
		out:       out,
		errOut:    errOut,
	}
}

// prompt returns the status prompt for the current connection state.
func (s *shell) prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client.IsConnected() {
		return promptConnected
	}
	return promptDisconnected
}

// connectAtStartup tries the configured server once. A failure is reported
// but not fatal: the shell runs and the next store command reconnects.
func (s *shell) connectAtStartup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep := s.client.Endpoint()
	fmt.Fprintf(s.out, "🔌 Connecting to Sider at %s...\n", ep)
	if err := s.client.Connect(); err != nil {
		fmt.Fprintf(s.out, "❌ Could not connect to %s. Is the server running?\n", ep)
		fmt.Fprintln(s.out, "   (You can still type commands, it will try to reconnect)")
		return
	}
	fmt.Fprintf(s.out, "✅ Connected! (Host: %s)\n", ep.Host)
}

// run reads and handles lines until EXIT, QUIT, or end of input.
func (s *shell) run(editor *LineEditor) {
	for {
		line, err := editor.GetLine(s.prompt())
		if errors.Is(err, errInterrupted) {
			fmt.Fprintln(s.out, "Type EXIT to quit.")
			continue
		}
		if err != nil {
			// Ctrl-D or end of piped input.
			fmt.Fprintln(s.out)
			return
		}

		if !s.handleLine(line) {
			return
		}
	}
}

// handleLine handles one input line and reports whether the session
// continues.
func (s *shell) handleLine(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := translate(line)
	switch a.kind {
	case actNone:

	case actQuit:
		fmt.Fprintln(s.out, "Bye!")
		return false

	case actHelp:
		printHelp(s.out, s.errOut, a.topic)

	case actStats:
		s.printStats()

	case actConnect:
		s.switchServer(a.endpoint)

	case actUnknown:
		fmt.Fprintf(s.out, "Unknown command: %s\n", a.word)

	case actUsage:
		fmt.Fprintln(s.out, a.message)

	case actStore:
		resp, err := s.client.Execute(a.command)
		if err != nil {
			fmt.Fprintf(s.out, "⚠️  Error: %v\n", err)
			return true
		}
		fmt.Fprintln(s.out, resp.Data)
	}
	return true
}

// switchServer closes the current session and starts one against ep.
func (s *shell) switchServer(ep siderprotocol.Endpoint) {
	s.client.Close()
	s.client = s.newClient(ep)

	if err := s.client.Connect(); err != nil {
		fmt.Fprintf(s.out, "❌ Could not reach %s\n", ep)
		return
	}
	fmt.Fprintf(s.out, "✅ Switched to %s\n", ep)
}

// printStats prints every non-zero sider_client_* series from the gatherer.
func (s *shell) printStats() {
	if s.gatherer == nil {
		fmt.Fprintln(s.out, "Metrics are disabled.")
		return
	}

	families, err := s.gatherer.Gather()
	if err != nil {
		fmt.Fprintf(s.errOut, "Error: gather metrics: %v\n", err)
		return
	}

	printed := 0
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, "sider_client_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				if m.GetCounter().GetValue() == 0 {
					continue
				}
				fmt.Fprintf(s.out, "  %s%s %g\n", name, labels, m.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(s.out, "  %s_count%s %d\n", name, labels, h.GetSampleCount())
				fmt.Fprintf(s.out, "  %s_sum%s %.6f\n", name, labels, h.GetSampleSum())
			default:
				continue
			}
			printed++
		}
	}

	if printed == 0 {
		fmt.Fprintln(s.out, "No requests yet.")
	}
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// close closes the current client. It waits for an in-flight command.
func (s *shell) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.Close()
}
