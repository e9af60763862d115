// Package config holds the runtime options of a lazy evaluation context and
// loads them from YAML.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/lazytape/internal/parallel"
)

// Config selects the optimizations and kernel parallelism of a context.
type Config struct {
	// Optimize enables the optimization passes. When false, tapes run exactly
	// as scheduled.
	Optimize            bool `yaml:"optimize"`
	DeadCodeElimination bool `yaml:"dead_code_elimination"`
	Fusion              bool `yaml:"fusion"`

	// LogVerbosity is applied to klog's -v flag by the command line tool.
	LogVerbosity int `yaml:"log_verbosity"`

	Parallel parallel.Config `yaml:"parallel"`
}

// Default returns all optimizations enabled and CPU-sized parallelism.
func Default() Config {
	return Config{
		Optimize:            true,
		DeadCodeElimination: true,
		Fusion:              true,
		Parallel:            parallel.DefaultConfig(),
	}
}

// Load reads a YAML configuration file. Fields missing from the file keep
// their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.WithMessagef(err, "config %q", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown fields are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.LogVerbosity < 0 {
		return errors.Errorf("log_verbosity must be >= 0, got %d", c.LogVerbosity)
	}
	if c.Parallel.NumWorkers < 0 {
		return errors.Errorf("parallel.num_workers must be >= 0, got %d", c.Parallel.NumWorkers)
	}
	if c.Parallel.MinChunkSize < 0 {
		return errors.Errorf("parallel.min_chunk_size must be >= 0, got %d", c.Parallel.MinChunkSize)
	}
	return nil
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Option modifies a Config.
type Option func(*Config)

// WithOptimizations enables or disables all optimization passes.
func WithOptimizations(enabled bool) Option {
	return func(c *Config) { c.Optimize = enabled }
}

// WithFusion enables or disables MatMul+Add fusion.
func WithFusion(enabled bool) Option {
	return func(c *Config) { c.Fusion = enabled }
}

// WithDeadCodeElimination enables or disables dead-code elimination.
func WithDeadCodeElimination(enabled bool) Option {
	return func(c *Config) { c.DeadCodeElimination = enabled }
}

// WithParallel sets the kernel parallelism.
func WithParallel(p parallel.Config) Option {
	return func(c *Config) { c.Parallel = p }
}

// Apply returns c with opts applied in order.
func (c Config) Apply(opts ...Option) Config {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
