// Package config handles intcode.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fortiblox/intcode/pkg/amplifier"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/programstore"
)

// Config is the intcode.toml configuration.
type Config struct {
	Machine     Machine     `toml:"machine"`
	Programs    Programs    `toml:"programs"`
	Checkpoints Checkpoints `toml:"checkpoints"`
	Search      Search      `toml:"search"`
	Log         Log         `toml:"log"`
}

// Machine configures every machine the tool creates.
type Machine struct {
	MaxSteps    uint64 `toml:"max-steps"`
	MemoryLimit int64  `toml:"memory-limit"`
}

// Programs configures the program store.
type Programs struct {
	Path   string `toml:"path"`
	NoSync bool   `toml:"no-sync"`
}

// Checkpoints configures the checkpoint store.
type Checkpoints struct {
	Path       string `toml:"path"`
	SyncWrites bool   `toml:"sync-writes"`
}

// Search configures amplifier phase searches.
type Search struct {
	Workers int `toml:"workers"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Log levels, from quietest to loudest. Verbosity -4 and below disables
// every commonlog level, errors included.
var levels = map[string]int{
	"none":   -4,
	"notice": 0,
	"info":   1,
	"debug":  2,
}

// Default returns the configuration used when no file is given. Stores
// live under ~/.intcode, or ./.intcode when there is no home directory.
func Default() *Config {
	base := ".intcode"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".intcode")
	}

	return &Config{
		Machine: Machine{
			MaxSteps:    0,
			MemoryLimit: intcode.DefaultMemoryLimit,
		},
		Programs: Programs{
			Path: filepath.Join(base, "programs.db"),
		},
		Checkpoints: Checkpoints{
			Path:       filepath.Join(base, "checkpoints"),
			SyncWrites: true,
		},
		Log: Log{
			Level: "notice",
		},
	}
}

// Load parses a configuration file. Keys missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	// Relative store paths are relative to the file.
	dir := filepath.Dir(path)
	c.Programs.Path = resolve(dir, c.Programs.Path)
	c.Checkpoints.Path = resolve(dir, c.Checkpoints.Path)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Machine.MemoryLimit < 0 {
		return fmt.Errorf("machine.memory-limit must not be negative, got %d", c.Machine.MemoryLimit)
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("search.workers must not be negative, got %d", c.Search.Workers)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name to a log verbosity.
func ParseLevel(name string) (int, error) {
	v, ok := levels[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return v, nil
}

// Verbosity returns the configured log verbosity.
func (c *Config) Verbosity() int {
	v, _ := ParseLevel(c.Log.Level)
	return v
}

// MachineOptions returns the options for new machines.
func (c *Config) MachineOptions() intcode.Options {
	return intcode.Options{
		MaxSteps:    c.Machine.MaxSteps,
		MemoryLimit: c.Machine.MemoryLimit,
	}
}

// ProgramStoreConfig returns the program store configuration.
func (c *Config) ProgramStoreConfig() programstore.Config {
	cfg := programstore.DefaultConfig(c.Programs.Path)
	cfg.NoSync = c.Programs.NoSync
	return cfg
}

// CheckpointConfig returns the checkpoint store configuration.
func (c *Config) CheckpointConfig() checkpoint.Config {
	cfg := checkpoint.DefaultConfig(c.Checkpoints.Path)
	cfg.SyncWrites = c.Checkpoints.SyncWrites
	cfg.Verbose = c.Verbosity() >= 2
	return cfg
}

// SearchConfig returns the amplifier search configuration.
func (c *Config) SearchConfig() amplifier.SearchConfig {
	return amplifier.SearchConfig{
		Workers: c.Search.Workers,
		Machine: c.MachineOptions(),
	}
}
