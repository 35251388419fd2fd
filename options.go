// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a Context during creation.
//
// Example:
//
//	// Best available registered engine
//	ctx, err := kernel.New(cfg)
//
//	// A specific engine instance (dependency injection)
//	ctx, err := kernel.New(cfg, kernel.WithEngine(engine))
type Option func(*options)

// options holds optional configuration for Context creation.
type options struct {
	engine         Engine
	engineName     string
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	leakGuard      bool
}

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		leakGuard: true,
	}
}

// WithEngine sets the engine instance the Context is created on. The
// Context does not take ownership of the engine.
func WithEngine(e Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// WithEngineName opens the named engine from the global registry instead
// of the best available one. Ignored if WithEngine is also given.
func WithEngineName(name string) Option {
	return func(o *options) {
		o.engineName = name
	}
}

// WithLogger sets a per-Context logger. By default the Context logs to
// the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used for frame
// and lifecycle spans. By default the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithLeakGuard enables or disables the cleanup that releases native
// objects whose Go handles are collected without Dispose. Enabled by
// default. The guard is a safety net; Dispose is the release path.
func WithLeakGuard(enabled bool) Option {
	return func(o *options) {
		o.leakGuard = enabled
	}
}
