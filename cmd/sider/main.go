// =============================================================================
// main.go - Sider Shell Entry Point
// =============================================================================
//
// sider is an interactive shell for the Sider key-value store. It speaks the
// store's newline-delimited text protocol over TCP through the siderprotocol
// package and keeps working when the server goes away: failures are printed,
// and the next command reconnects.
//
// Usage:
//
//	sider                               Connect to localhost:4000
//	sider db.internal                   Connect to db.internal:4000
//	sider db.internal 5000              Connect to db.internal:5000
//	sider --config ./cli.yaml           Use a specific config file
//	echo "GET user:100" | sider         Non-interactive use
//
// Settings come from flags, SIDER_* environment variables, and
// ~/.sider/cli.yaml, in that order of priority.
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/sider-db/sider-cli/internal/config"
	"github.com/sider-db/sider-cli/internal/logger"
	"github.com/sider-db/sider-cli/siderprotocol"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const appName = "sider"

// welcomeBanner is printed once the startup connect attempt has finished.
const welcomeBanner = `
--- Sider Shell ---
Commands: PUT <k> <v> | GET <k> | DEL <k> | COMPACT | CONNECT <host> [port] | HELP | EXIT
-------------------
`

// GO CONCEPT: Dependency Injection via Parameters
// -----------------------------------------------
// newApp takes the three standard streams instead of reaching for os.Stdin
// and os.Stdout. main passes the real ones; tests pass buffers and run the
// whole shell in-process.

// newApp builds the CLI application.
func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      appName,
		Usage:     "interactive shell for the Sider key-value store",
		UsageText: "sider [options] [HOST [PORT]]",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:     globalFlags(),
		Action:    runShell,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
	}
}

// globalFlags returns the shell flags. Each maps to one config key.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "server host",
			EnvVars: []string{"SIDER_SERVER_HOST"},
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "server port",
			EnvVars: []string{"SIDER_SERVER_PORT"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (default ~/.sider/cli.yaml)",
			EnvVars: []string{"SIDER_CONFIG"},
		},
		&cli.DurationFlag{
			Name:    "connect-timeout",
			Usage:   "bound on establishing a connection",
			EnvVars: []string{"SIDER_TIMEOUT_CONNECT"},
		},
		&cli.DurationFlag{
			Name:    "read-timeout",
			Usage:   "bound on waiting for a reply",
			EnvVars: []string{"SIDER_TIMEOUT_READ"},
		},
		&cli.BoolFlag{
			Name:  "line-framing",
			Usage: "read replies up to the first newline instead of a single read",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log level: debug, info, warn, error",
			EnvVars: []string{"SIDER_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log format: console, json",
			EnvVars: []string{"SIDER_LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "history-file",
			Usage:   "line editor history file",
			EnvVars: []string{"SIDER_HISTORY_FILE"},
		},
	}
}

// flagOverrides collects the flags the user actually set, plus the
// positional HOST [PORT], as flat config keys.
func flagOverrides(c *cli.Context) (map[string]any, error) {
	overrides := make(map[string]any)

	set := func(flag, key string, value any) {
		if c.IsSet(flag) {
			overrides[key] = value
		}
	}
	set("host", "server.host", c.String("host"))
	set("port", "server.port", c.Int("port"))
	set("connect-timeout", "timeout.connect", c.Duration("connect-timeout"))
	set("read-timeout", "timeout.read", c.Duration("read-timeout"))
	set("log-level", "log.level", c.String("log-level"))
	set("log-format", "log.format", c.String("log-format"))
	set("history-file", "history.file", c.String("history-file"))
	if c.Bool("line-framing") {
		overrides["protocol.framing"] = config.FramingLine
	}

	if err := positionalOverrides(c.Args().Slice(), overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// positionalOverrides applies "HOST", "HOST PORT" or "HOST:PORT". A bare
// host keeps the configured port.
func positionalOverrides(args []string, overrides map[string]any) error {
	switch len(args) {
	case 0:
		return nil
	case 1, 2:
	default:
		return fmt.Errorf("too many arguments, usage: sider [options] [HOST [PORT]]")
	}

	ep, err := siderprotocol.ParseEndpoint(args[0])
	if err != nil {
		return err
	}
	overrides["server.host"] = ep.Host

	if len(args) == 2 {
		port, err := siderprotocol.ParsePort(args[1])
		if err != nil {
			return err
		}
		overrides["server.port"] = port
	} else if _, _, err := net.SplitHostPort(args[0]); err == nil {
		overrides["server.port"] = ep.Port
	}
	return nil
}

// runShell is the application action.
func runShell(c *cli.Context) error {
	overrides, err := flagOverrides(c)
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	metrics := siderprotocol.NewMetrics(registry)

	opts := append(cfg.ClientOptions(),
		siderprotocol.WithLogger(log),
		siderprotocol.WithMetrics(metrics),
	)
	factory := func(ep siderprotocol.Endpoint) *siderprotocol.Client {
		return siderprotocol.NewClient(ep, opts...)
	}

	out := c.App.Writer
	sh := newShell(cfg.Endpoint(), factory, registry, out, c.App.ErrWriter)
	sh.connectAtStartup()
	fmt.Fprint(out, welcomeBanner)

	editor := NewLineEditor(c.App.Reader, out, historyConfig{
		file: cfg.History.File,
		size: cfg.History.Size,
	})
	defer editor.Close()

	stop := setupSignalHandler(out, func() {
		editor.Close()
		sh.close()
	})
	defer stop()

	sh.run(editor)
	sh.close()
	return nil
}

// GO CONCEPT: Signal Handling with Channels
// -----------------------------------------
// signal.Notify delivers SIGINT/SIGTERM on a buffered channel instead of
// killing the process. The goroutine below waits on either a signal or the
// done channel, so the returned stop func lets a normal exit (and tests)
// shut the goroutine down cleanly.

// setupSignalHandler runs cleanup and exits on SIGINT or SIGTERM. The
// returned func uninstalls the handler.
func setupSignalHandler(out io.Writer, cleanup func()) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(out)
			cleanup()
			os.Exit(0)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
