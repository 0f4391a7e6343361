// Package config holds the runtime configuration consumed by the
// extraction and transfer layers.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultOutputDir      = "."
	defaultTemplate       = "%(title)s.%(ext)s"
	defaultFormat         = "best"
	defaultConcurrency    = 1
	defaultTimeoutSeconds = 30
	defaultRetries        = 3
)

// Config describes one invocation. Zero values are filled in by
// Normalize, so a partially populated Config (e.g. decoded from a TOML
// file) is always usable.
type Config struct {
	OutputDir      string `toml:"output_dir"`
	OutputTemplate string `toml:"output_template"`
	Format         string `toml:"format"`
	Verbose        bool   `toml:"verbose"`
	// Concurrency bounds the worker pool for batch downloads.
	Concurrency    int    `toml:"concurrency"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Retries        int    `toml:"retries"`
	UserAgent      string `toml:"user_agent"`
	ProxyURL       string `toml:"proxy_url"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		OutputDir:      defaultOutputDir,
		OutputTemplate: defaultTemplate,
		Format:         defaultFormat,
		Concurrency:    defaultConcurrency,
		TimeoutSeconds: defaultTimeoutSeconds,
		Retries:        defaultRetries,
	}
}

// Load reads a TOML configuration file and fills unset fields with
// defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills zero-valued fields with defaults.
func (c *Config) Normalize() {
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.OutputTemplate == "" {
		c.OutputTemplate = defaultTemplate
	}
	if c.Format == "" {
		c.Format = defaultFormat
	}
	if c.Concurrency < 1 {
		c.Concurrency = defaultConcurrency
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Retries < 1 {
		c.Retries = defaultRetries
	}
}

// Timeout returns the HTTP timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
