// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// SubsystemKey is the static tag of an extension type T constructed from
// options of type O. Keys are declared once by the extension package:
//
//	var Key = kernel.NewSubsystemKey[*Stats, Options]("framestats")
type SubsystemKey[T any, O any] struct {
	name string
}

// NewSubsystemKey returns the key for the extension named name.
func NewSubsystemKey[T any, O any](name string) SubsystemKey[T, O] {
	return SubsystemKey[T, O]{name: name}
}

// Name returns the extension name.
func (k SubsystemKey[T, O]) Name() string {
	return k.name
}

// SubsystemFactory constructs an extension bound to c. Textures and
// geometry the extension owns should be created through res: they are
// released by the extension's Dispose and never count as live dependents
// of the host. Resources created through c.Resources() belong to the host.
type SubsystemFactory[T any, O any] func(c *Context, res *ResourceFactory, opts O) (T, error)

// Disposer is implemented by subsystems that hold resources. Attached
// disposers are disposed, in reverse attach order, before their Context.
type Disposer interface {
	Dispose() error
}

// FrameObserver is implemented by subsystems that follow the frame
// protocol. Callbacks run after the Context has released its lock, so
// observers may call back into the Context.
type FrameObserver interface {
	// FrameStarted is called after a successful Prepare.
	FrameStarted(frame uint64)

	// FrameFinished is called after Dispatch, even if the engine
	// reported an error for the frame.
	FrameFinished(stats FrameStats)
}

// Subsystem errors.
var (
	// ErrSubsystemNotFound is the cause of a SubsystemError when no
	// factory is registered under the requested name.
	ErrSubsystemNotFound = errors.New("subsystem not registered")

	// ErrSubsystemType is the cause of a SubsystemError when the factory
	// registered under the name has a different extension or options type.
	ErrSubsystemType = errors.New("subsystem registered with a different type")
)

// SubsystemError reports a failure to attach a subsystem. Err is the
// underlying cause: ErrSubsystemNotFound, ErrSubsystemType, a lifecycle
// error of the Context, or the error returned by the factory.
type SubsystemError struct {
	Name string
	Err  error
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("kernel: subsystem %q: %v", e.Name, e.Err)
}

func (e *SubsystemError) Unwrap() error {
	return e.Err
}

// subsystemRegistry holds factories by extension name. Values are
// SubsystemFactory[T, O] for the T and O of the key they were registered
// with.
type subsystemRegistry struct {
	mu        sync.RWMutex
	factories map[string]any
}

var subsystems = &subsystemRegistry{factories: make(map[string]any)}

// RegisterSubsystem registers the factory of an extension. Registering a
// name again replaces the previous factory.
func RegisterSubsystem[T any, O any](key SubsystemKey[T, O], factory SubsystemFactory[T, O]) {
	subsystems.mu.Lock()
	defer subsystems.mu.Unlock()

	subsystems.factories[key.name] = factory
}

// UnregisterSubsystem removes the factory registered under name.
func UnregisterSubsystem(name string) {
	subsystems.mu.Lock()
	defer subsystems.mu.Unlock()

	delete(subsystems.factories, name)
}

// RegisteredSubsystems returns the registered extension names, sorted.
func RegisteredSubsystems() []string {
	subsystems.mu.RLock()
	defer subsystems.mu.RUnlock()

	names := make([]string, 0, len(subsystems.factories))
	for name := range subsystems.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attach constructs the extension identified by key, bound to c, and
// records it on c. The factory runs without the Context lock held, so it
// may create resources.
//
// Every failure is a *SubsystemError preserving its cause; lookup failures
// and construction failures are distinguishable with errors.Is.
func Attach[T any, O any](c *Context, key SubsystemKey[T, O], opts O) (T, error) {
	var zero T

	subsystems.mu.RLock()
	raw, ok := subsystems.factories[key.name]
	subsystems.mu.RUnlock()

	if !ok {
		return zero, &SubsystemError{Name: key.name, Err: ErrSubsystemNotFound}
	}
	factory, ok := raw.(SubsystemFactory[T, O])
	if !ok {
		return zero, &SubsystemError{
			Name: key.name,
			Err:  fmt.Errorf("%w: have %T", ErrSubsystemType, raw),
		}
	}

	if state := c.State(); state == StateDisposed {
		return zero, &SubsystemError{Name: key.name, Err: ErrDisposed}
	}

	v, err := factory(c, &ResourceFactory{c: c, subsystem: true}, opts)
	if err != nil {
		return zero, &SubsystemError{Name: key.name, Err: err}
	}

	c.own.mu.Lock()
	if c.state == StateDisposed || c.disposing {
		c.own.mu.Unlock()
		err := ErrDisposed
		if d, ok := any(v).(Disposer); ok {
			if derr := d.Dispose(); derr != nil {
				err = errors.Join(ErrDisposed, derr)
			}
		}
		return zero, &SubsystemError{Name: key.name, Err: err}
	}
	c.subsystems = append(c.subsystems, attachment{name: key.name, value: v})
	c.own.mu.Unlock()

	c.log.Debug("kernel: subsystem attached", "name", key.name, "context", uint64(c.ID()))
	return v, nil
}

// Subsystems returns the names of the subsystems attached to c, in attach
// order.
func (c *Context) Subsystems() []string {
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	names := make([]string, len(c.subsystems))
	for i, a := range c.subsystems {
		names[i] = a.name
	}
	return names
}
