// Package config loads the benchmark run configuration, the YAML successor
// of the classic command file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/kernels"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config is one benchmark run.
//
// Example file:
//
//	min_seconds: 5
//	concurrency: 4
//	tests:
//	  huffman: false
//	custom_run: true
//	sizes:
//	  numsort: {num_arrays: 3}
type Config struct {
	// MinIterationSeconds is the calibration threshold; 0 derives it from
	// the clock resolution.
	MinIterationSeconds float64 `yaml:"min_iteration_seconds"`
	// MinSeconds is how long each worker measures a test.
	MinSeconds float64 `yaml:"min_seconds"`
	// AllStats adds per-run statistics to the report.
	AllStats bool `yaml:"all_stats"`
	// CustomRun uses Sizes as given and skips calibration.
	CustomRun bool                     `yaml:"custom_run"`
	Sizes     map[string]harness.Sizes `yaml:"sizes,omitempty"`
	// Tests disables kernels by name. Missing names are enabled.
	Tests       map[string]bool `yaml:"tests,omitempty"`
	Align       int             `yaml:"align"`
	Concurrency int             `yaml:"concurrency"`
	PinWorkers  bool            `yaml:"pin_workers"`
	// Watchdog bounds every test phase; 0 disables it.
	Watchdog time.Duration `yaml:"watchdog"`
	// NNetData names a pattern file replacing the built-in letters.
	NNetData string `yaml:"nnet_data,omitempty"`
	Output   string `yaml:"output"`
	LogLevel string `yaml:"log_level"`
	// Repeat measures every test this many times.
	Repeat int `yaml:"repeat"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		MinSeconds:  5,
		Concurrency: 1,
		Output:      OutputText,
		LogLevel:    "info",
		Repeat:      1,
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &harness.Error{Context: "config", Code: harness.CodeFileRead, Err: err}
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.MinSeconds <= 0 {
		bad("min_seconds must be positive, got %v", c.MinSeconds)
	}
	if c.MinIterationSeconds < 0 {
		bad("min_iteration_seconds must not be negative, got %v", c.MinIterationSeconds)
	}
	if c.Concurrency < 1 {
		bad("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Align != 0 && (c.Align < 8 || c.Align&(c.Align-1) != 0) {
		bad("align must be 0 or a power of two >= 8, got %d", c.Align)
	}
	if c.Repeat < 1 {
		bad("repeat must be at least 1, got %d", c.Repeat)
	}
	if c.Watchdog < 0 {
		bad("watchdog must not be negative, got %s", c.Watchdog)
	}
	if c.Output != OutputText && c.Output != OutputJSON {
		bad("output must be %q or %q, got %q", OutputText, OutputJSON, c.Output)
	}
	if _, err := c.Level(); err != nil {
		bad("log_level: %v", err)
	}

	known := kernels.Names()
	for name := range c.Tests {
		if !slices.Contains(known, name) {
			bad("tests: unknown kernel %q", name)
		}
	}
	for name, s := range c.Sizes {
		if !slices.Contains(known, name) {
			bad("sizes: unknown kernel %q", name)
			continue
		}
		if s.NumArrays < 0 || s.ArraySize < 0 || s.Loops < 0 || s.BitOpArraySize < 0 || s.BitFieldArraySize < 0 {
			bad("sizes: %s has a negative size", name)
		}
	}
	return errors.Join(errs...)
}

// Enabled reports whether the kernel called name should run.
func (c *Config) Enabled(name string) bool {
	on, ok := c.Tests[name]
	return !ok || on
}

// Level parses LogLevel. An empty level is Info.
func (c *Config) Level() (slog.Level, error) {
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// KernelOptions reads the external files the kernels depend on.
func (c *Config) KernelOptions() (kernels.Options, error) {
	if c.NNetData == "" {
		return kernels.Options{}, nil
	}
	data, err := os.ReadFile(c.NNetData)
	if err != nil {
		return kernels.Options{}, &harness.Error{Context: "CPU:NNET", Code: harness.CodeFileRead, Err: err}
	}
	return kernels.Options{NNetData: data}, nil
}
