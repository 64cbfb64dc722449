// Package config handles opal.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/opal/vm"
)

// Config represents an opal.toml runtime configuration.
type Config struct {
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the opal.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the dispatch loop.
type Runtime struct {
	MaxCallDepth int  `toml:"max-call-depth"`
	Trace        bool `toml:"trace"`
}

// Log configures execution logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no opal.toml is present.
func Default() *Config {
	return &Config{
		Runtime: Runtime{MaxCallDepth: vm.DefaultOptions().MaxCallDepth},
	}
}

// Load parses an opal.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "opal.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if c.Runtime.MaxCallDepth == 0 {
		c.Runtime.MaxCallDepth = vm.DefaultOptions().MaxCallDepth
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find an opal.toml file, then loads
// and returns the configuration. Returns nil if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "opal.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	if c.Runtime.MaxCallDepth < 0 {
		return fmt.Errorf("max-call-depth must be non-negative, got %d", c.Runtime.MaxCallDepth)
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log verbosity must be non-negative, got %d", c.Log.Verbosity)
	}
	return nil
}

// VMOptions converts the configuration into dispatch loop options.
func (c *Config) VMOptions() vm.Options {
	return vm.Options{
		MaxCallDepth: c.Runtime.MaxCallDepth,
		Trace:        c.Runtime.Trace,
	}
}
