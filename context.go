// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is the lifecycle state of a Context.
type State int32

const (
	// StateUninitialized means the native context exists but no platform
	// surface is bound yet.
	StateUninitialized State = iota

	// StateLive means the surface is bound and no frame is open.
	StateLive

	// StatePrepared means a frame is open: Prepare was called and the
	// matching Dispatch has not been.
	StatePrepared

	// StateDisposed is terminal.
	StateDisposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateLive:
		return "Live"
	case StatePrepared:
		return "Prepared"
	case StateDisposed:
		return "Disposed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// FrameStats summarises one dispatched frame.
type FrameStats struct {
	// Frame is the 1-based index of the frame within its Context.
	Frame uint64

	// Draws is the number of texture draws recorded.
	Draws int

	// CropChanges is the number of SetCrop/ClearCrop calls recorded.
	CropChanges int

	// Duration is the wall time from Prepare to the end of Dispatch.
	Duration time.Duration
}

// ownership is the part of a Context reachable from resource handles and
// cleanups. It never references the Context, so an abandoned Context stays
// collectable while its resources are still reachable.
type ownership struct {
	// mu is the submission lock. Every engine call for this context is
	// made with mu held.
	mu sync.Mutex

	engine Engine
	handle *Handle[ContextID]
	log    *slog.Logger

	// live counts textures and meshes not yet released; owned is the part
	// of live created through subsystem factories.
	live  int
	owned int

	// orphaned is set when the Context was collected while resources
	// were still live; the last resource release then destroys the
	// native context.
	orphaned bool
}

// releaseResource runs destroy under the submission lock and drops the
// live count, whether or not the engine reported an error.
func (o *ownership) releaseResource(owned bool, destroy func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	err := destroy()
	o.live--
	if owned {
		o.owned--
	}
	if o.orphaned && o.live == 0 {
		o.releaseContextLocked("last orphaned resource released")
	}
	return err
}

// orphan is the leak guard of a Context.
func (o *ownership) orphan() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.handle.Released() {
		return
	}
	if o.live > 0 {
		o.orphaned = true
		o.log.Warn("kernel: context collected with live resources",
			"id", uint64(o.handle.ID()), "live", o.live)
		return
	}
	o.releaseContextLocked("context collected without Dispose")
}

func (o *ownership) releaseContextLocked(reason string) {
	fired, err := o.handle.Release()
	if fired {
		o.log.Warn("kernel: leaked context released by cleanup",
			"id", uint64(o.handle.ID()), "reason", reason, "err", err)
	}
}

// attachment is a subsystem bound to a Context.
type attachment struct {
	name  string
	value any
}

// Context owns one native rendering context bound to a platform surface.
// It is the root of the ownership graph: every texture and geometry is
// created through it and must be disposed before it.
//
// Context is safe for concurrent use; see the package documentation for
// the ordering caveats of the frame protocol.
type Context struct {
	own *ownership

	// Fields below are guarded by own.mu.
	surface    SurfaceConfig
	state      State
	frame      uint64
	crop       *Rect
	stats      FrameStats
	frameStart time.Time
	resizeErr  error
	subsystems []attachment

	// disposing is set while Dispose runs the subsystem disposers with the
	// lock released. New work is refused meanwhile.
	disposing bool

	tracer    trace.Tracer
	log       *slog.Logger
	leakGuard bool

	resources ResourceFactory
	recorder  FrameRecorder
}

// New creates a Context bound to the surface described by cfg.
//
// If cfg.Handles is nil the Context starts Uninitialized and the surface
// must be bound with InitializeSurface before resources are created. The
// engine is taken from WithEngine, WithEngineName or the best available
// registered engine, in that order.
//
// A failure here is a construction failure and is not retried.
func New(cfg SurfaceConfig, opts ...Option) (*Context, error) {
	const op = "create context"

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.validate(); err != nil {
		return nil, opError(op, KindConstruction, err)
	}
	if cfg.Handles != nil {
		h := *cfg.Handles
		cfg.Handles = &h
	}

	engine := o.engine
	if engine == nil {
		var err error
		if o.engineName != "" {
			engine, err = OpenEngine(o.engineName)
		} else {
			engine, err = DefaultEngine()
		}
		if err != nil {
			return nil, opError(op, KindConstruction, err)
		}
	}

	log := o.logger
	if log == nil {
		log = Logger()
	}
	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	id, err := engine.CreateContext(cfg)
	if err != nil {
		return nil, opError(op, KindConstruction, err)
	}
	if id == InvalidID {
		return nil, opError(op, KindConstruction,
			fmt.Errorf("engine %s returned an invalid context id", engine.Name()))
	}

	own := &ownership{engine: engine, log: log}
	own.handle = newHandle(id, func(id ContextID) error {
		return engine.DestroyContext(id)
	})

	c := &Context{
		own:       own,
		surface:   cfg,
		state:     StateUninitialized,
		tracer:    tp.Tracer(tracerName),
		log:       log,
		leakGuard: o.leakGuard,
	}
	if cfg.Handles != nil {
		c.state = StateLive
	}
	c.resources.c = c
	c.recorder.c = c

	if o.leakGuard {
		runtime.AddCleanup(c, (*ownership).orphan, own)
	}

	log.Info("kernel: context created",
		"engine", engine.Name(),
		"id", uint64(id),
		"width", cfg.Width,
		"height", cfg.Height,
		"state", c.state.String())
	return c, nil
}

// ID returns the native identity of the context.
func (c *Context) ID() ContextID {
	return c.own.handle.ID()
}

// Engine returns the engine the context was created on.
func (c *Context) Engine() Engine {
	return c.own.engine
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.own.mu.Lock()
	defer c.own.mu.Unlock()
	return c.state
}

// Surface returns the current surface configuration.
func (c *Context) Surface() SurfaceConfig {
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	s := c.surface
	if s.Handles != nil {
		h := *s.Handles
		s.Handles = &h
	}
	return s
}

// Frame returns the number of frames prepared so far.
func (c *Context) Frame() uint64 {
	c.own.mu.Lock()
	defer c.own.mu.Unlock()
	return c.frame
}

// LiveResources returns the number of textures and geometry created
// through the context that have not been disposed.
func (c *Context) LiveResources() int {
	c.own.mu.Lock()
	defer c.own.mu.Unlock()
	return c.own.live
}

// Resources returns the factory for textures and geometry of this context.
func (c *Context) Resources() *ResourceFactory {
	return &c.resources
}

// Recorder returns the UI command recorder of this context.
func (c *Context) Recorder() *FrameRecorder {
	return &c.recorder
}

// InitializeSurface binds the platform surface of a Context created with
// deferred handles. Binding a second time returns ErrSurfaceBound; the
// surface is never silently rebound.
func (c *Context) InitializeSurface(h PlatformHandles) error {
	const op = "initialize surface"

	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	switch {
	case c.state == StateDisposed || c.disposing:
		return opError(op, KindContract, ErrDisposed)
	case c.state != StateUninitialized:
		return opError(op, KindContract, ErrSurfaceBound)
	}
	if err := h.Validate(); err != nil {
		return opError(op, KindValidation, err)
	}
	if err := c.own.engine.BindSurface(c.ID(), h); err != nil {
		return opError(op, KindNative, err)
	}

	c.surface.Handles = &h
	c.state = StateLive
	c.log.Debug("kernel: surface bound", "id", uint64(c.ID()), "kind", h.Kind.String())
	return nil
}

// ResizeSurface notifies the engine of new surface extents. It must be
// called on every resize before the next frame that renders at the new
// size. A failure is not returned here; it is reported by the next
// Dispatch.
func (c *Context) ResizeSurface(width, height uint32) {
	const op = "resize surface"

	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if c.state == StateDisposed || c.disposing {
		c.log.Warn("kernel: resize on disposed context", "id", uint64(c.ID()))
		return
	}
	if width == 0 || height == 0 {
		c.resizeErr = opError(op, KindValidation,
			fmt.Errorf("%w: extents %dx%d", ErrInvalidSurface, width, height))
		return
	}
	if err := c.own.engine.ResizeSurface(c.ID(), width, height); err != nil {
		c.resizeErr = opError(op, KindNative, err)
		return
	}
	c.surface.Width = width
	c.surface.Height = height
	c.log.Debug("kernel: surface resized", "id", uint64(c.ID()), "width", width, "height", height)
}

// Prepare opens the command-recording window of a new frame. The engine
// receives a begin-frame call, and the crop is reset: every frame starts
// uncropped. Calling Prepare again before Dispatch returns ErrFramePending.
func (c *Context) Prepare() error {
	const op = "prepare"

	span := c.startSpan("kernel.Prepare")

	c.own.mu.Lock()
	err := c.prepareLocked(op)
	frame := c.frame
	var observers []FrameObserver
	if err == nil {
		observers = c.observersLocked()
	}
	c.own.mu.Unlock()

	for _, o := range observers {
		o.FrameStarted(frame)
	}
	span.SetAttributes(attribute.Int64("kernel.frame", int64(frame)))
	endSpan(span, err)
	return err
}

func (c *Context) prepareLocked(op string) error {
	if c.disposing {
		return opError(op, KindContract, ErrDisposed)
	}
	switch c.state {
	case StateDisposed:
		return opError(op, KindContract, ErrDisposed)
	case StateUninitialized:
		return opError(op, KindContract, ErrNotLive)
	case StatePrepared:
		return opError(op, KindContract, ErrFramePending)
	}
	if err := c.own.engine.BeginFrame(c.ID()); err != nil {
		return opError(op, KindNative, err)
	}

	c.state = StatePrepared
	c.frame++
	c.crop = nil
	c.stats = FrameStats{Frame: c.frame}
	c.frameStart = time.Now()
	return nil
}

// Dispatch closes the recording window, submits the recorded commands and
// resets recording state. It may block until the engine has consumed the
// frame. A failed resize since the previous Dispatch is reported here.
func (c *Context) Dispatch() error {
	const op = "dispatch"

	span := c.startSpan("kernel.Dispatch")

	c.own.mu.Lock()
	stats, err := c.dispatchLocked(op)
	var observers []FrameObserver
	if stats.Frame != 0 {
		observers = c.observersLocked()
	}
	c.own.mu.Unlock()

	for _, o := range observers {
		o.FrameFinished(stats)
	}
	span.SetAttributes(
		attribute.Int64("kernel.frame", int64(stats.Frame)),
		attribute.Int("kernel.draws", stats.Draws),
	)
	endSpan(span, err)
	return err
}

func (c *Context) dispatchLocked(op string) (FrameStats, error) {
	switch c.state {
	case StateDisposed:
		return FrameStats{}, opError(op, KindContract, ErrDisposed)
	case StatePrepared:
	default:
		return FrameStats{}, opError(op, KindContract, ErrNotPrepared)
	}

	var errs []error
	if err := c.own.engine.EndFrame(c.ID()); err != nil {
		errs = append(errs, opError(op, KindNative, err))
	}
	if c.resizeErr != nil {
		errs = append(errs, c.resizeErr)
		c.resizeErr = nil
	}

	c.state = StateLive
	c.crop = nil
	c.stats.Duration = time.Since(c.frameStart)
	return c.stats, errors.Join(errs...)
}

// Dispose releases the native context.
//
// Textures and geometry created by the host must be disposed first:
// while any is live Dispose returns ErrLiveDependents and changes nothing,
// so the Context and its subsystems stay usable. Otherwise attached
// subsystems are disposed in reverse attach order, and the native context
// is released once the resources they created are gone. A subsystem that
// keeps its resources past its own Dispose blocks the release with
// ErrLiveDependents; it has been detached by then.
//
// Dispose during an open frame returns ErrFramePending. A second Dispose
// is a no-op.
func (c *Context) Dispose() error {
	const op = "dispose context"

	span := c.startSpan("kernel.Dispose")

	c.own.mu.Lock()
	if err := c.disposableLocked(op); err != nil || c.state == StateDisposed {
		c.own.mu.Unlock()
		endSpan(span, err)
		return err
	}
	c.disposing = true
	subsystems := c.subsystems
	c.subsystems = nil
	c.own.mu.Unlock()

	var errs []error
	for i := len(subsystems) - 1; i >= 0; i-- {
		a := subsystems[i]
		d, ok := a.value.(Disposer)
		if !ok {
			continue
		}
		if err := d.Dispose(); err != nil {
			errs = append(errs, &SubsystemError{Name: a.name, Err: err})
		}
	}

	c.own.mu.Lock()
	c.disposing = false
	if live := c.own.live; live > 0 {
		c.own.mu.Unlock()
		errs = append(errs, opError(op, KindContract,
			fmt.Errorf("%w: %d subsystem resource(s) not released", ErrLiveDependents, live)))
		err := errors.Join(errs...)
		endSpan(span, err)
		return err
	}
	c.state = StateDisposed
	frames := c.frame
	_, err := c.own.handle.Release()
	c.own.mu.Unlock()

	if err != nil {
		errs = append(errs, opError(op, KindNative, err))
	}
	c.log.Info("kernel: context disposed", "id", uint64(c.ID()), "frames", frames)

	err = errors.Join(errs...)
	endSpan(span, err)
	return err
}

// disposableLocked reports why Dispose cannot start. A nil result on a
// disposed Context means there is nothing left to do.
func (c *Context) disposableLocked(op string) error {
	switch {
	case c.state == StateDisposed:
		return nil
	case c.disposing:
		return opError(op, KindContract, ErrDisposed)
	case c.state == StatePrepared:
		return opError(op, KindContract, ErrFramePending)
	}
	if host := c.own.live - c.own.owned; host > 0 {
		return opError(op, KindContract,
			fmt.Errorf("%w: %d texture(s) or geometry still live", ErrLiveDependents, host))
	}
	return nil
}

// usableLocked checks that resources can be created or used.
func (c *Context) usableLocked(op string) error {
	switch {
	case c.state == StateDisposed || c.disposing:
		return opError(op, KindContract, ErrDisposed)
	case c.state == StateUninitialized:
		return opError(op, KindConstruction, ErrNotLive)
	}
	return nil
}

func (c *Context) observersLocked() []FrameObserver {
	var out []FrameObserver
	for _, a := range c.subsystems {
		if o, ok := a.value.(FrameObserver); ok {
			out = append(out, o)
		}
	}
	return out
}
