// Package config loads opgraph settings from defaults, an optional TOML
// file and OPGRAPH_* environment variables, in that order.
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/opgraph/internal/fspath"
)

// FileName is the conventional name of the configuration file.
const FileName = "opgraph.toml"

// EnvPrefix prefixes environment overrides. OPGRAPH_BUILD_WORKERS sets
// build.workers; the first underscore after the prefix separates the section.
const EnvPrefix = "OPGRAPH_"

// Config is the complete opgraph configuration.
type Config struct {
	Build   BuildConfig   `koanf:"build"`
	Sandbox SandboxConfig `koanf:"sandbox"`
	Log     LogConfig     `koanf:"log"`
	History HistoryConfig `koanf:"history"`
}

// BuildConfig controls where state lives and how graphs are evaluated.
type BuildConfig struct {
	StateDir    string `koanf:"state_dir"`
	Workers     int    `koanf:"workers"`
	Incremental bool   `koanf:"incremental"`
}

// SandboxConfig lists the absolute directory prefixes operations may read
// from and write to.
type SandboxConfig struct {
	Read  []string `koanf:"read"`
	Write []string `koanf:"write"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// HistoryConfig controls the build-history database.
type HistoryConfig struct {
	Enabled bool `koanf:"enabled"`
	Keep    int  `koanf:"keep"`
}

// Defaults returns the built-in configuration values as a koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"build.state_dir":   filepath.Join(xdg.CacheHome, "opgraph"),
		"build.workers":     1,
		"build.incremental": true,
		"sandbox.read":      []string{},
		"sandbox.write":     []string{},
		"log.level":         "info",
		"log.format":        "text",
		"history.enabled":   true,
		"history.keep":      50,
	}
}

// Load builds the configuration. path names a TOML file (YAML for .yaml
// and .yml) and may be empty, in which case only defaults and the
// environment apply. A named file that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parserFor selects the file parser by extension. TOML is the default.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	default:
		return toml.Parser()
	}
}

// Validate checks value ranges and path forms.
func (c *Config) Validate() error {
	if c.Build.StateDir == "" {
		return fmt.Errorf("build.state_dir must not be empty")
	}
	if c.Build.Workers < 1 {
		return fmt.Errorf("build.workers must be at least 1, got %d", c.Build.Workers)
	}
	for _, p := range c.Sandbox.Read {
		if !fspath.Parse(p).IsAbsolute() {
			return fmt.Errorf("sandbox.read entry %q must be absolute", p)
		}
	}
	for _, p := range c.Sandbox.Write {
		if !fspath.Parse(p).IsAbsolute() {
			return fmt.Errorf("sandbox.write entry %q must be absolute", p)
		}
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("history.keep must be >= 0, got %d", c.History.Keep)
	}
	return nil
}

// ReadAccess returns the read prefixes as directory paths.
func (c *Config) ReadAccess() []fspath.Path {
	return directories(c.Sandbox.Read)
}

// WriteAccess returns the write prefixes as directory paths.
func (c *Config) WriteAccess() []fspath.Path {
	return directories(c.Sandbox.Write)
}

func directories(ss []string) []fspath.Path {
	out := make([]fspath.Path, len(ss))
	for i, s := range ss {
		out[i] = fspath.Parse(s).EnsureDirectory()
	}
	return out
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
