// Package config loads the sider shell configuration.
//
// Values are layered with priority Flag > Env > File > Default. The file is
// YAML (~/.sider/cli.yaml unless --config names another); environment
// variables use the SIDER_ prefix with the first underscore separating the
// section, e.g. SIDER_PROTOCOL_MAX_RESPONSE_SIZE -> protocol.max_response_size.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	"github.com/sider-db/sider-cli/siderprotocol"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "SIDER_"

// Framing names accepted by protocol.framing.
const (
	FramingSingleRead = "single-read"
	FramingLine       = "line"
)

// Config is the complete shell configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Timeout  TimeoutConfig  `koanf:"timeout"`
	Protocol ProtocolConfig `koanf:"protocol"`
	Log      LogConfig      `koanf:"log"`
	History  HistoryConfig  `koanf:"history"`
}

// ServerConfig is the store endpoint.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// TimeoutConfig bounds connect and receive.
type TimeoutConfig struct {
	Connect time.Duration `koanf:"connect"`
	Read    time.Duration `koanf:"read"`
}

// ProtocolConfig selects receive behavior.
type ProtocolConfig struct {
	Framing         string `koanf:"framing"`
	MaxResponseSize int    `koanf:"max_response_size"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// HistoryConfig configures line-editor history. An empty File disables it.
type HistoryConfig struct {
	File string `koanf:"file"`
	Size int    `koanf:"size"`
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".sider", "cli.yaml")
}

// DefaultHistoryPath returns the default history file path.
func DefaultHistoryPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".sider_history")
}

// Defaults returns the default values as flat koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"server.host":                siderprotocol.DefaultHost,
		"server.port":                siderprotocol.DefaultPort,
		"timeout.connect":            siderprotocol.ConnectTimeout,
		"timeout.read":               siderprotocol.ReadTimeout,
		"protocol.framing":           FramingSingleRead,
		"protocol.max_response_size": siderprotocol.MaxResponseSize,
		"log.level":                  "warn",
		"log.format":                 "console",
		"history.file":               DefaultHistoryPath(),
		"history.size":               500,
	}
}

// Loader loads configuration from defaults, a file, the environment and
// flags, in increasing priority.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	flags     map[string]any
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets an explicit config file. Unlike the default file, an
// explicit file that does not exist is an error.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithFlags sets flag values keyed by flat koanf key, e.g. "server.port".
// Only flags the user actually set should be included.
func WithFlags(flags map[string]any) Option {
	return func(l *Loader) {
		l.flags = flags
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadMap(Defaults()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := l.loadFile(); err != nil {
		return nil, err
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(l.flags) > 0 {
		if err := l.loadMap(l.flags); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.History.File = expandHome(cfg.History.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is shorthand for NewLoader(WithConfigFile(path), WithFlags(flags)).Load().
// An empty path uses the default file, which may be absent.
func Load(path string, flags map[string]any) (*Config, error) {
	return NewLoader(WithConfigFile(path), WithFlags(flags)).Load()
}

func (l *Loader) loadFile() error {
	path, explicit := l.filePath, l.filePath != ""
	if !explicit {
		path = DefaultConfigPath()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// loadEnv maps SIDER_SECTION_KEY to section.key. Only the first underscore
// after the prefix is a separator so keys like max_response_size survive.
func (l *Loader) loadEnv() error {
	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		return strings.Replace(s, "_", ".", 1)
	}
	return l.k.Load(env.Provider(l.envPrefix, ".", transform), nil)
}

func (l *Loader) loadMap(data map[string]any) error {
	return l.k.Load(mapProvider(data), nil)
}

// Keys returns every loaded key. Useful for debugging layered config.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}

// mapProvider is a koanf provider over a flat key map.
type mapProvider map[string]any

// ReadBytes is not supported; koanf uses Read for this provider.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: ReadBytes not supported by map provider")
}

// Read returns the map unflattened on ".".
func (m mapProvider) Read() (map[string]any, error) {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return maps.Unflatten(cp, "."), nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server.host: must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range 1-65535", c.Server.Port)
	}
	if c.Timeout.Connect <= 0 {
		return fmt.Errorf("timeout.connect: must be positive, got %s", c.Timeout.Connect)
	}
	if c.Timeout.Read <= 0 {
		return fmt.Errorf("timeout.read: must be positive, got %s", c.Timeout.Read)
	}
	if _, err := c.Protocol.FramingMode(); err != nil {
		return err
	}
	if c.Protocol.MaxResponseSize <= 0 {
		return fmt.Errorf("protocol.max_response_size: must be positive, got %d", c.Protocol.MaxResponseSize)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want console or json)", c.Log.Format)
	}
	if c.History.Size <= 0 {
		return fmt.Errorf("history.size: must be positive, got %d", c.History.Size)
	}
	return nil
}

// FramingMode maps the framing name to a siderprotocol.Framing.
func (p ProtocolConfig) FramingMode() (siderprotocol.Framing, error) {
	switch p.Framing {
	case FramingSingleRead:
		return siderprotocol.FramingSingleRead, nil
	case FramingLine:
		return siderprotocol.FramingLine, nil
	default:
		return 0, fmt.Errorf("protocol.framing: unknown mode %q (want %s or %s)", p.Framing, FramingSingleRead, FramingLine)
	}
}

// Endpoint returns the configured server endpoint.
func (c *Config) Endpoint() siderprotocol.Endpoint {
	return siderprotocol.Endpoint{Host: c.Server.Host, Port: c.Server.Port}
}

// ClientOptions maps the configuration to client options. Call it on a
// validated Config.
func (c *Config) ClientOptions() []siderprotocol.Option {
	framing, _ := c.Protocol.FramingMode()
	return []siderprotocol.Option{
		siderprotocol.WithConnectTimeout(c.Timeout.Connect),
		siderprotocol.WithReadTimeout(c.Timeout.Read),
		siderprotocol.WithMaxResponseSize(c.Protocol.MaxResponseSize),
		siderprotocol.WithFraming(framing),
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}
