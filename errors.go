// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"errors"
	"fmt"
)

// Kind classifies a kernel error.
type Kind uint8

const (
	// KindUnknown is reported for errors that did not originate in kernel.
	KindUnknown Kind = iota

	// KindConstruction means a context or resource could not be created.
	// The partially constructed object must not be used.
	KindConstruction

	// KindContract means the caller broke the lifecycle or frame protocol:
	// use after dispose, a command outside a frame, disposing a context
	// with live dependents.
	KindContract

	// KindValidation means the input was rejected before reaching the
	// native engine (degenerate descriptor, byte-size mismatch).
	KindValidation

	// KindExtension means a subsystem could not be located or constructed.
	KindExtension

	// KindNative means the engine reported a failure for an otherwise
	// valid call.
	KindNative
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "Unknown"
	case KindConstruction:
		return "Construction"
	case KindContract:
		return "Contract"
	case KindValidation:
		return "Validation"
	case KindExtension:
		return "Extension"
	case KindNative:
		return "Native"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned by kernel operations.
type Error struct {
	// Op is the operation that failed, e.g. "create texture".
	Op string

	// Kind classifies the failure.
	Kind Kind

	// Err is the underlying cause. It is one of the sentinel errors of
	// this package or an error reported by the engine.
	Err error
}

func (e *Error) Error() string {
	return "kernel: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindUnknown if err is not a kernel
// error.
func KindOf(err error) Kind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	var se *SubsystemError
	if errors.As(err, &se) {
		return KindExtension
	}
	return KindUnknown
}

func opError(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Lifecycle and protocol errors.
var (
	// ErrDisposed is returned by any operation on a disposed Context or
	// on a resource whose Context has been disposed.
	ErrDisposed = errors.New("context has been disposed")

	// ErrNotLive is returned when an operation needs a bound surface but
	// the Context is still uninitialized.
	ErrNotLive = errors.New("context surface is not initialized")

	// ErrSurfaceBound is returned by InitializeSurface on a Context whose
	// surface is already bound.
	ErrSurfaceBound = errors.New("surface already bound")

	// ErrNotPrepared is returned by frame commands issued outside a
	// Prepare/Dispatch window.
	ErrNotPrepared = errors.New("frame is not prepared")

	// ErrFramePending is returned by Prepare while a frame is already
	// open, and by Dispose before the open frame is dispatched.
	ErrFramePending = errors.New("frame already prepared")

	// ErrLiveDependents is returned by Dispose while textures or geometry
	// created through the Context are still live.
	ErrLiveDependents = errors.New("context has live dependents")

	// ErrReleased is returned by operations on a disposed texture or
	// geometry.
	ErrReleased = errors.New("resource has been released")

	// ErrForeignResource is returned when a resource of one Context is
	// used with another.
	ErrForeignResource = errors.New("resource belongs to a different context")
)

// Validation errors.
var (
	// ErrInvalidDescriptor is returned for degenerate texture descriptors.
	ErrInvalidDescriptor = errors.New("invalid texture descriptor")

	// ErrSizeMismatch is returned when an upload's byte length does not
	// match the size implied by the texture descriptor.
	ErrSizeMismatch = errors.New("data size does not match texture extents")

	// ErrInvalidSurface is returned for unusable surface configurations
	// or platform handles.
	ErrInvalidSurface = errors.New("invalid surface")
)
