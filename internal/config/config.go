// Package config loads crashpath settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/joshharrison/crashpath/internal/crash"
)

// DefaultPath is read from the working directory when no path is given.
const DefaultPath = "crashpath.toml"

// Config mirrors crashpath.toml.
type Config struct {
	Optimizer Optimizer `toml:"optimizer"`
	Output    Output    `toml:"output"`
	Server    Server    `toml:"server"`
	Claude    Claude    `toml:"claude"`
}

type Optimizer struct {
	MaxIterations int     `toml:"max_iterations"`
	StepUnit      float64 `toml:"step_unit"`
}

type Output struct {
	NoColor bool `toml:"no_color"`
}

type Server struct {
	Addr string `toml:"addr"`
}

type Claude struct {
	Model string `toml:"model"` // empty selects the client default
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Optimizer: Optimizer{
			MaxIterations: crash.DefaultMaxIterations,
			StepUnit:      crash.DefaultStepUnit,
		},
		Server: Server{Addr: ":7171"},
	}
}

// Load reads path over the defaults. When explicit is false a missing file
// is not an error and the defaults are returned.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the optimiser or server cannot use.
func (c Config) Validate() error {
	if c.Optimizer.MaxIterations < 1 {
		return fmt.Errorf("optimizer.max_iterations must be at least 1, got %d", c.Optimizer.MaxIterations)
	}
	if !(c.Optimizer.StepUnit > 0) || math.IsInf(c.Optimizer.StepUnit, 1) {
		return fmt.Errorf("optimizer.step_unit must be a positive finite number, got %g", c.Optimizer.StepUnit)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	return nil
}

// CrashOptions turns the optimizer section into optimiser options.
func (c Config) CrashOptions(logger *log.Logger) []crash.Option {
	opts := []crash.Option{
		crash.WithMaxIterations(c.Optimizer.MaxIterations),
		crash.WithStepUnit(c.Optimizer.StepUnit),
	}
	if logger != nil {
		opts = append(opts, crash.WithLogger(logger))
	}
	return opts
}
