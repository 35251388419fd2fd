// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads kernel host configuration from a YAML file and
// KERNEL_* environment variables.
//
// Values are applied in order: defaults, then the file, then the
// environment. For example KERNEL_SURFACE_WIDTH overrides surface.width and
// KERNEL_LIBRARY_PATHS takes a comma-separated directory list.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/kernel"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "KERNEL_"

// Config is the host configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine" envPrefix:"ENGINE_"`
	Surface   SurfaceConfig   `yaml:"surface" envPrefix:"SURFACE_"`
	Library   LibraryConfig   `yaml:"library" envPrefix:"LIBRARY_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`

	// LeakGuard releases native objects of collected, undisposed owners.
	LeakGuard bool `yaml:"leak_guard" env:"LEAK_GUARD"`
}

// EngineConfig selects the engine.
type EngineConfig struct {
	// Name of a registered engine. Empty picks the highest priority
	// available engine.
	Name string `yaml:"name" env:"NAME"`
}

// SurfaceConfig describes the initial surface.
type SurfaceConfig struct {
	Width   uint32 `yaml:"width" env:"WIDTH"`
	Height  uint32 `yaml:"height" env:"HEIGHT"`
	Backend string `yaml:"backend" env:"BACKEND"`

	// Headless binds an offscreen surface at creation. Otherwise the
	// surface is deferred until the host supplies window handles.
	Headless bool `yaml:"headless" env:"HEADLESS"`
}

// LibraryConfig locates the native engine library.
type LibraryConfig struct {
	Name  string   `yaml:"name" env:"NAME"`
	Paths []string `yaml:"paths" env:"PATHS" envSeparator:","`
}

// LogConfig configures the slog handler of commands.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// TelemetryConfig configures trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Surface: SurfaceConfig{
			Width:    800,
			Height:   600,
			Backend:  kernel.BackendAuto.String(),
			Headless: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "kernel",
		},
		LeakGuard: true,
	}
}

// Load returns the defaults overlaid with the YAML file at path, if path
// is non-empty, and then with the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Surface.Width == 0 || c.Surface.Height == 0 {
		errs = append(errs, fmt.Errorf("config: surface extents %dx%d", c.Surface.Width, c.Surface.Height))
	}
	if _, err := kernel.ParseBackend(c.Surface.Backend); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log format %q, want text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SurfaceConfig converts the surface section for kernel.New.
func (c Config) SurfaceConfig() kernel.SurfaceConfig {
	backend, _ := kernel.ParseBackend(c.Surface.Backend)
	sc := kernel.SurfaceConfig{
		Label:   "kernel",
		Width:   c.Surface.Width,
		Height:  c.Surface.Height,
		Backend: backend,
	}
	if c.Surface.Headless {
		h := kernel.HeadlessHandles()
		sc.Handles = &h
	}
	return sc
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", l.Level, err)
	}
	return level, nil
}

// Options returns the kernel options implied by the configuration.
func (c Config) Options() []kernel.Option {
	opts := []kernel.Option{kernel.WithLeakGuard(c.LeakGuard)}
	if c.Engine.Name != "" {
		opts = append(opts, kernel.WithEngineName(c.Engine.Name))
	}
	return opts
}
