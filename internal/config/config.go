// Package config loads arenactl settings from a TOML file.
//
// Example file:
//
//	[arena]
//	size = 65536
//	capacity = 2048
//	file = "/tmp/arena.bin"   # optional; heap buffer when empty
//
//	[log]
//	enabled = true
//	level = "debug"
//	file = "/var/log/arenactl/arenactl.log"
//	max_size_mb = 16
//	max_age_days = 30
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/joshuapare/arenakit/arena/ledger"
	"github.com/joshuapare/arenakit/internal/logger"
)

const (
	// DefaultArenaSize is the arena size used when none is configured (64 KiB).
	DefaultArenaSize = 64 << 10

	// MaxArenaSize bounds the configured arena size (1 GiB).
	MaxArenaSize = 1 << 30
)

// ErrInvalid indicates a configuration value out of range.
var ErrInvalid = errors.New("config: invalid value")

// Arena configures the byte arena and its ledgers.
type Arena struct {
	Size     int    `toml:"size"`
	Capacity int    `toml:"capacity"`
	File     string `toml:"file"`
}

// Log configures the process logger.
type Log struct {
	Enabled    bool   `toml:"enabled"`
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config is the full arenactl configuration.
type Config struct {
	Arena Arena `toml:"arena"`
	Log   Log   `toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Arena: Arena{Size: DefaultArenaSize, Capacity: ledger.DefaultCapacity},
		Log:   Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns Default().
// Unknown keys are rejected so typos do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Arena.Size <= 0 || c.Arena.Size > MaxArenaSize {
		return fmt.Errorf("%w: arena.size %d (want 1..%d)", ErrInvalid, c.Arena.Size, MaxArenaSize)
	}
	if c.Arena.Capacity <= 0 {
		return fmt.Errorf("%w: arena.capacity %d", ErrInvalid, c.Arena.Capacity)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("%w: log rotation limits must not be negative", ErrInvalid)
	}
	return nil
}

// LoggerOptions converts the [log] table for logger.Init.
func (c Config) LoggerOptions() (logger.Options, error) {
	lvl, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{
		Enabled:    c.Log.Enabled,
		File:       c.Log.File,
		Level:      lvl,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxAgeDays: c.Log.MaxAgeDays,
	}, nil
}
