// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"errors"
	"sort"
	"sync"
)

// EngineFactory opens an engine.
type EngineFactory func() (Engine, error)

// EngineEntry represents a registered engine.
type EngineEntry struct {
	// Name is the unique identifier for this engine.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: native engine libraries
	//   - 50: in-process GPU engines
	//   - 10: headless engines
	Priority int

	// Factory opens engine instances.
	Factory EngineFactory

	// Available reports if the engine can be opened on this system.
	Available func() bool
}

// EngineRegistry manages registered engines.
//
// Backend packages register themselves from init:
//
//	func init() {
//	    kernel.RegisterEngine("dylib", 100, open, available)
//	}
type EngineRegistry struct {
	mu      sync.RWMutex
	entries map[string]*EngineEntry
}

// globalEngines is the default registry.
var globalEngines = &EngineRegistry{}

// NewEngineRegistry creates a new empty registry.
// Most code should use the global registry via RegisterEngine.
func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{
		entries: make(map[string]*EngineEntry),
	}
}

// RegisterEngine adds an engine to the global registry.
// If available is nil, the engine is assumed always available.
// Registering a name that already exists replaces the previous entry.
func RegisterEngine(name string, priority int, factory EngineFactory, available func() bool) {
	globalEngines.Register(name, priority, factory, available)
}

// UnregisterEngine removes an engine from the global registry.
func UnregisterEngine(name string) {
	globalEngines.Unregister(name)
}

// Engines returns all registered engine names sorted by priority.
func Engines() []string {
	return globalEngines.List()
}

// AvailableEngines returns names of all available engines sorted by priority.
func AvailableEngines() []string {
	return globalEngines.Available()
}

// OpenEngine opens the named engine from the global registry.
func OpenEngine(name string) (Engine, error) {
	return globalEngines.Open(name)
}

// DefaultEngine opens the best available engine from the global registry.
func DefaultEngine() (Engine, error) {
	return globalEngines.Default()
}

// Register adds an engine to this registry.
func (r *EngineRegistry) Register(name string, priority int, factory EngineFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*EngineEntry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &EngineEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes an engine from this registry.
func (r *EngineRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered engine names sorted by priority.
func (r *EngineRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(false)
}

// Available returns names of all available engines sorted by priority.
func (r *EngineRegistry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(true)
}

// Get returns a copy of the named entry.
func (r *EngineRegistry) Get(name string) (*EngineEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// Open opens the named engine.
func (r *EngineRegistry) Open(name string) (Engine, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &EngineNotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &EngineUnavailableError{Name: name}
	}

	e, err := entry.Factory()
	if err != nil {
		return nil, err
	}
	propagateLogger(e, Logger())
	Logger().Info("kernel: engine opened", "engine", name, "priority", entry.Priority)
	return e, nil
}

// Default opens the best available engine, trying each in priority order.
func (r *EngineRegistry) Default() (Engine, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoEngine
	}

	var errs []error
	for _, name := range available {
		e, err := r.Open(name)
		if err == nil {
			return e, nil
		}
		Logger().Warn("kernel: engine failed to open", "engine", name, "err", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{ErrNoEngine}, errs...)...)
}

// sortedNames returns engine names sorted by priority (highest first),
// ties broken by name. Must be called with lock held.
func (r *EngineRegistry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	entries := make([]*EngineEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// ErrNoEngine is returned when no engines are registered or available.
var ErrNoEngine = errors.New("kernel: no engine available")

// EngineNotFoundError indicates a named engine is not registered.
type EngineNotFoundError struct {
	Name string
}

func (e *EngineNotFoundError) Error() string {
	return "kernel: engine not found: " + e.Name
}

// EngineUnavailableError indicates an engine exists but is not available.
type EngineUnavailableError struct {
	Name string
}

func (e *EngineUnavailableError) Error() string {
	return "kernel: engine unavailable: " + e.Name
}
