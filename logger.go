// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for kernel and its sub-packages.
// By default kernel produces no log output.
//
// Pass nil to restore the default silent behavior. SetLogger is safe for
// concurrent use.
//
// Log levels used by kernel:
//   - [slog.LevelDebug]: per-call native diagnostics (ids, byte sizes)
//   - [slog.LevelInfo]: lifecycle events (engine selected, context disposed)
//   - [slog.LevelWarn]: leak-guard releases, swallowed release errors
//
// Engines registered in the default registry that implement
// SetLogger(*slog.Logger) receive the new logger when they are opened.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by kernel.
// Backend packages call this to share the same logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by engines that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to an engine if it implements
// loggerSetter.
func propagateLogger(e Engine, l *slog.Logger) {
	if ls, ok := e.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
