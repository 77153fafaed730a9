// Package config loads retry policies from YAML files and the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/jzx17/superretry/pkg/retry"
	"github.com/jzx17/superretry/pkg/strategy"
	"github.com/jzx17/superretry/pkg/types"
)

// Default policy values
const (
	// DefaultStrategy is the backoff strategy used when none is configured
	DefaultStrategy = strategy.Exponential

	// DefaultMaxAttempts is the default number of attempts
	DefaultMaxAttempts = 3

	// DefaultInitialDelay is the default base delay
	DefaultInitialDelay = time.Second
)

// Environment variable names for configuration overrides
const (
	EnvStrategy     = "SUPERRETRY_STRATEGY"
	EnvMaxAttempts  = "SUPERRETRY_MAX_ATTEMPTS"
	EnvInitialDelay = "SUPERRETRY_INITIAL_DELAY"
)

// Config is the file representation of a retry policy
type Config struct {
	Strategy     string   `yaml:"strategy"`
	MaxAttempts  int      `yaml:"max_attempts"`
	InitialDelay Duration `yaml:"initial_delay"`
	RetryIf      RetryIf  `yaml:"retry_if,omitempty"`
}

// RetryIf describes which errors may be retried
type RetryIf struct {
	// MessageExcludes lists substrings that make an error permanent
	MessageExcludes []string `yaml:"message_excludes,omitempty"`
}

// Default returns a Config with all default values
func Default() *Config {
	return &Config{
		Strategy:     DefaultStrategy,
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: Duration(DefaultInitialDelay),
	}
}

// Parse decodes YAML on top of the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse retry config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the YAML file at path
func Load(fs afero.Fs, path string) (*Config, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read retry config %s: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path
func Save(fs afero.Fs, path string, cfg *Config) error {
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal retry config: %w", err)
	}

	if err := afero.WriteFile(fs, path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write retry config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
// Malformed values are reported rather than ignored.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvStrategy); ok && v != "" {
		c.Strategy = v
	}

	if v, ok := lookup(EnvMaxAttempts); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return types.NewConfigurationError(EnvMaxAttempts, fmt.Sprintf("must be an integer, got %q", v))
		}
		c.MaxAttempts = n
	}

	if v, ok := lookup(EnvInitialDelay); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return types.NewConfigurationError(EnvInitialDelay, err.Error())
		}
		c.InitialDelay = d
	}

	return nil
}

// Options converts the configuration into validated retry options
func (c *Config) Options() (retry.Options, error) {
	opts := retry.Options{
		Strategy:     c.Strategy,
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay.Duration(),
	}
	if len(c.RetryIf.MessageExcludes) > 0 {
		opts.RetryIf = retry.IfMessageExcludes(c.RetryIf.MessageExcludes...)
	}

	if _, err := retry.NewPolicy(opts); err != nil {
		return retry.Options{}, err
	}
	return opts, nil
}

// WithStrategy returns a copy with updated strategy
func (c *Config) WithStrategy(name string) *Config {
	cp := *c
	cp.Strategy = name
	return &cp
}

// WithMaxAttempts returns a copy with updated maximum attempts
func (c *Config) WithMaxAttempts(n int) *Config {
	cp := *c
	cp.MaxAttempts = n
	return &cp
}

// WithInitialDelay returns a copy with updated initial delay
func (c *Config) WithInitialDelay(d time.Duration) *Config {
	cp := *c
	cp.InitialDelay = Duration(d)
	return &cp
}
