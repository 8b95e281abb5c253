package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Dirs      DirsConfig      `toml:"dirs" yaml:"dirs"`
	Scripting ScriptingConfig `toml:"scripting" yaml:"scripting"`
	Engine    EngineConfig    `toml:"engine" yaml:"engine"`
	Host      HostConfig      `toml:"host" yaml:"host"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

type DirsConfig struct {
	Plugins    string `toml:"plugins" yaml:"plugins"`
	Extensions string `toml:"extensions" yaml:"extensions"`
}

type ScriptingConfig struct {
	// AllowSource also loads plain .lua files.
	AllowSource bool `toml:"allow_source" yaml:"allow_source"`
}

type EngineConfig struct {
	// Charset of strings exchanged with the engine, e.g. "windows-1252".
	Charset string `toml:"charset" yaml:"charset"`
}

type HostConfig struct {
	TickRate   time.Duration `toml:"tick_rate" yaml:"tick_rate"`
	MaxClients int           `toml:"max_clients" yaml:"max_clients"`
}

// Load reads a TOML or YAML file, chosen by extension, on top of the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config { return defaults() }

func (c *Config) validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q: want debug, info, warn or error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q: want console or json", c.Logging.Format)
	}
	if c.Host.TickRate <= 0 {
		return fmt.Errorf("host.tick_rate must be positive")
	}
	if c.Host.MaxClients < 1 || c.Host.MaxClients > 32 {
		return fmt.Errorf("host.max_clients %d out of range 1..32", c.Host.MaxClients)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Dirs: DirsConfig{
			Plugins:    "addons/luna/plugins",
			Extensions: "addons/luna/exts",
		},
		Engine: EngineConfig{
			Charset: "utf-8",
		},
		Host: HostConfig{
			TickRate:   50 * time.Millisecond,
			MaxClients: 32,
		},
	}
}
