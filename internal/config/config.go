// Package config loads the optional YAML configuration file.
//
// The file is checked against an embedded CUE definition before it is
// decoded, so type errors and unknown keys are reported with the offending
// path rather than silently ignored.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Defaults.
const (
	DefaultDatabase    = "firecheck.db"
	DefaultGracePeriod = 5 * time.Second
	DefaultLatestLimit = 5
	DefaultLocale      = "en"
	DefaultLogLevel    = "info"
)

// Config holds the settings shared by every command.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// GracePeriod keeps an unobserved live query running before teardown.
	GracePeriod time.Duration `yaml:"grace_period"`

	// LatestLimit is the size of the "latest records" summary.
	LatestLimit int `yaml:"latest_limit"`

	// Locale is a BCP 47 tag used for text output.
	Locale string `yaml:"locale"`

	// WatchExternal enables the database file watcher.
	WatchExternal bool `yaml:"watch_external"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:    DefaultDatabase,
		GracePeriod: DefaultGracePeriod,
		LatestLimit: DefaultLatestLimit,
		Locale:      DefaultLocale,
		LogLevel:    DefaultLogLevel,
	}
}

// Load reads and validates the file at path. Keys missing from the file keep
// their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates YAML config data and decodes it over the defaults.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate(raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// validate unifies the decoded document with #Config.
func validate(raw map[string]any) error {
	if raw == nil {
		// Empty file.
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reduces a CUE error list to its first entry.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}
	return fmt.Errorf("invalid config: %s", errs[0].Error())
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
