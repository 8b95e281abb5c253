package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := write(t, "luna.toml", `
[logging]
level = "debug"

[dirs]
plugins = "/srv/plugins"

[scripting]
allow_source = true

[engine]
charset = "windows-1252"

[host]
tick_rate = "20ms"
max_clients = 16
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format, "unset keys keep defaults")
	assert.Equal(t, "/srv/plugins", cfg.Dirs.Plugins)
	assert.Equal(t, "addons/luna/exts", cfg.Dirs.Extensions)
	assert.True(t, cfg.Scripting.AllowSource)
	assert.Equal(t, "windows-1252", cfg.Engine.Charset)
	assert.Equal(t, 20*time.Millisecond, cfg.Host.TickRate)
	assert.Equal(t, 16, cfg.Host.MaxClients)
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "luna.yml", `
logging:
  level: warn
  format: json
dirs:
  extensions: /srv/exts
host:
  tick_rate: 100ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/srv/exts", cfg.Dirs.Extensions)
	assert.Equal(t, 100*time.Millisecond, cfg.Host.TickRate)
	assert.Equal(t, 32, cfg.Host.MaxClients)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, file, body, want string
	}{
		{"unknown format", "luna.ini", "", "unsupported format"},
		{"bad toml", "luna.toml", "[logging\n", "parse config"},
		{"bad level", "luna.toml", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"bad format", "luna.yaml", "logging:\n  format: xml\n", "logging.format"},
		{"too many clients", "luna.toml", "[host]\nmax_clients = 64\n", "host.max_clients"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(write(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().validate())
}
