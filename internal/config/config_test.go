package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sider-db/sider-cli/siderprotocol"
)

// isolate points HOME at an empty directory so a real ~/.sider/cli.yaml
// never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Timeout.Connect)
	assert.Equal(t, 5*time.Second, cfg.Timeout.Read)
	assert.Equal(t, FramingSingleRead, cfg.Protocol.Framing)
	assert.Equal(t, 4096, cfg.Protocol.MaxResponseSize)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, filepath.Join(home, ".sider_history"), cfg.History.File)
	assert.Equal(t, 500, cfg.History.Size)
}

func TestLoadDefaultFile(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".sider", "cli.yaml"), `
server:
  host: db.internal
  port: 5000
timeout:
  read: 2s
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Timeout.Read)
	assert.Equal(t, 5*time.Second, cfg.Timeout.Connect, "unset keys keep defaults")
}

func TestLoadExplicitFileMissing(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadPriority(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cli.yaml")
	writeFile(t, path, `
server:
  host: from-file
  port: 4100
protocol:
  framing: line
log:
  level: info
`)

	t.Setenv("SIDER_SERVER_PORT", "4200")
	t.Setenv("SIDER_LOG_LEVEL", "debug")
	t.Setenv("SIDER_PROTOCOL_MAX_RESPONSE_SIZE", "8192")
	t.Setenv("SIDER_TIMEOUT_CONNECT", "750ms")

	cfg, err := Load(path, map[string]any{"log.level": "error"})
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Server.Host, "file over default")
	assert.Equal(t, 4200, cfg.Server.Port, "env over file")
	assert.Equal(t, FramingLine, cfg.Protocol.Framing)
	assert.Equal(t, 8192, cfg.Protocol.MaxResponseSize, "env key with underscores")
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout.Connect)
	assert.Equal(t, "error", cfg.Log.Level, "flag over env")
}

func TestLoadEnvPrefix(t *testing.T) {
	isolate(t)
	t.Setenv("ALT_SERVER_HOST", "alt-host")

	cfg, err := NewLoader(WithEnvPrefix("ALT_")).Load()
	require.NoError(t, err)
	assert.Equal(t, "alt-host", cfg.Server.Host)
}

func TestLoadExpandsHistoryPath(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("", map[string]any{"history.file": "~/hist/sider"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "hist", "sider"), cfg.History.File)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]any
	}{
		{"empty host", map[string]any{"server.host": " "}},
		{"port zero", map[string]any{"server.port": 0}},
		{"port too large", map[string]any{"server.port": 70000}},
		{"zero connect timeout", map[string]any{"timeout.connect": time.Duration(0)}},
		{"negative read timeout", map[string]any{"timeout.read": -time.Second}},
		{"unknown framing", map[string]any{"protocol.framing": "chunked"}},
		{"zero buffer", map[string]any{"protocol.max_response_size": 0}},
		{"bad level", map[string]any{"log.level": "loud"}},
		{"bad format", map[string]any{"log.format": "xml"}},
		{"zero history", map[string]any{"history.size": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load("", tt.flags)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SIDER_SERVER_PORT", "not-a-port")

	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	isolate(t)
	cfg, err := Load("", map[string]any{
		"server.host":      "10.0.0.5",
		"server.port":      5000,
		"protocol.framing": FramingLine,
	})
	require.NoError(t, err)

	assert.Equal(t, siderprotocol.Endpoint{Host: "10.0.0.5", Port: 5000}, cfg.Endpoint())
	assert.Len(t, cfg.ClientOptions(), 4)

	mode, err := cfg.Protocol.FramingMode()
	require.NoError(t, err)
	assert.Equal(t, siderprotocol.FramingLine, mode)
}

func TestDefaultConfigPath(t *testing.T) {
	home := isolate(t)
	assert.Equal(t, filepath.Join(home, ".sider", "cli.yaml"), DefaultConfigPath())
}
