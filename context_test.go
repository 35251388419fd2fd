// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel_test

import (
	"errors"
	"testing"

	"github.com/gogpu/kernel"
	"github.com/gogpu/kernel/kerneltest"
)

func headless(width, height uint32) kernel.SurfaceConfig {
	h := kernel.HeadlessHandles()
	return kernel.SurfaceConfig{Label: "test", Width: width, Height: height, Handles: &h}
}

// newContext returns a Live 800x600 context on a fresh fake engine.
func newContext(t *testing.T) (*kernel.Context, *kerneltest.Engine) {
	t.Helper()

	e := kerneltest.New()
	c, err := kernel.New(headless(800, 600), kernel.WithEngine(e), kernel.WithLeakGuard(false))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, e
}

func assertNoViolations(t *testing.T, e *kerneltest.Engine) {
	t.Helper()
	for _, v := range e.Violations() {
		t.Errorf("native contract violation: %s", v)
	}
}

// TestNewLive tests that a context created with handles starts Live.
func TestNewLive(t *testing.T) {
	c, e := newContext(t)

	if got := c.State(); got != kernel.StateLive {
		t.Errorf("State() = %v, want Live", got)
	}
	if c.ID() == kernel.InvalidID {
		t.Error("ID() = InvalidID")
	}
	if c.Engine() != e {
		t.Error("Engine() is not the injected engine")
	}
	s := c.Surface()
	if s.Width != 800 || s.Height != 600 {
		t.Errorf("Surface() = %dx%d, want 800x600", s.Width, s.Height)
	}
	if e.Calls(kerneltest.OpCreateContext) != 1 {
		t.Errorf("CreateContext calls = %d, want 1", e.Calls(kerneltest.OpCreateContext))
	}
}

// TestNewInvalidSurface tests that degenerate surfaces never reach the engine.
func TestNewInvalidSurface(t *testing.T) {
	x11 := kernel.X11Handles(0, 0)
	tests := []struct {
		name string
		cfg  kernel.SurfaceConfig
	}{
		{"zero width", kernel.SurfaceConfig{Width: 0, Height: 600}},
		{"zero height", kernel.SurfaceConfig{Width: 800, Height: 0}},
		{"x11 without window", kernel.SurfaceConfig{Width: 800, Height: 600, Handles: &x11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := kerneltest.New()
			_, err := kernel.New(tt.cfg, kernel.WithEngine(e))
			if !errors.Is(err, kernel.ErrInvalidSurface) {
				t.Fatalf("New() error = %v, want ErrInvalidSurface", err)
			}
			if kernel.KindOf(err) != kernel.KindConstruction {
				t.Errorf("KindOf() = %v, want Construction", kernel.KindOf(err))
			}
			if e.TotalCalls() != 0 {
				t.Errorf("engine calls = %d, want 0", e.TotalCalls())
			}
		})
	}
}

// TestNewEngineFailure tests that a native creation failure is a
// construction error preserving the cause.
func TestNewEngineFailure(t *testing.T) {
	e := kerneltest.New()
	cause := errors.New("no adapter")
	e.Fail(kerneltest.OpCreateContext, cause)

	_, err := kernel.New(headless(800, 600), kernel.WithEngine(e))
	if !errors.Is(err, cause) {
		t.Fatalf("New() error = %v, want %v", err, cause)
	}
	if kernel.KindOf(err) != kernel.KindConstruction {
		t.Errorf("KindOf() = %v, want Construction", kernel.KindOf(err))
	}
}

// TestDeferredSurface tests the Uninitialized state and InitializeSurface.
func TestDeferredSurface(t *testing.T) {
	e := kerneltest.New()
	c, err := kernel.New(kernel.SurfaceConfig{Width: 640, Height: 480}, kernel.WithEngine(e))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.State(); got != kernel.StateUninitialized {
		t.Fatalf("State() = %v, want Uninitialized", got)
	}

	_, err = c.Resources().CreateTexture(rgba(4, 4))
	if !errors.Is(err, kernel.ErrNotLive) {
		t.Errorf("CreateTexture before surface: error = %v, want ErrNotLive", err)
	}
	if err := c.Prepare(); !errors.Is(err, kernel.ErrNotLive) {
		t.Errorf("Prepare before surface: error = %v, want ErrNotLive", err)
	}

	if err := c.InitializeSurface(kernel.X11Handles(1, 2)); err != nil {
		t.Fatalf("InitializeSurface() error = %v", err)
	}
	if got := c.State(); got != kernel.StateLive {
		t.Errorf("State() = %v, want Live", got)
	}
	if h := c.Surface().Handles; h == nil || h.Kind != kernel.WindowX11 {
		t.Errorf("Surface().Handles = %+v, want X11", h)
	}

	err = c.InitializeSurface(kernel.X11Handles(1, 2))
	if !errors.Is(err, kernel.ErrSurfaceBound) {
		t.Errorf("second InitializeSurface: error = %v, want ErrSurfaceBound", err)
	}
	if n := e.Calls(kerneltest.OpBindSurface); n != 1 {
		t.Errorf("BindSurface calls = %d, want 1", n)
	}
	assertNoViolations(t, e)
}

// TestInitializeSurfaceInvalid tests handle validation.
func TestInitializeSurfaceInvalid(t *testing.T) {
	e := kerneltest.New()
	c, err := kernel.New(kernel.SurfaceConfig{Width: 640, Height: 480}, kernel.WithEngine(e))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.InitializeSurface(kernel.Win32Handles(1, 0))
	if !errors.Is(err, kernel.ErrInvalidSurface) {
		t.Fatalf("InitializeSurface() error = %v, want ErrInvalidSurface", err)
	}
	if got := c.State(); got != kernel.StateUninitialized {
		t.Errorf("State() = %v, want Uninitialized", got)
	}
}

// TestFramePairing tests the Prepare/Dispatch protocol.
func TestFramePairing(t *testing.T) {
	c, e := newContext(t)

	if err := c.Dispatch(); !errors.Is(err, kernel.ErrNotPrepared) {
		t.Errorf("Dispatch without Prepare: error = %v, want ErrNotPrepared", err)
	}

	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got := c.State(); got != kernel.StatePrepared {
		t.Errorf("State() = %v, want Prepared", got)
	}
	err := c.Prepare()
	if !errors.Is(err, kernel.ErrFramePending) {
		t.Errorf("second Prepare: error = %v, want ErrFramePending", err)
	}
	if kernel.KindOf(err) != kernel.KindContract {
		t.Errorf("KindOf() = %v, want Contract", kernel.KindOf(err))
	}
	if err := c.Dispatch(); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := c.State(); got != kernel.StateLive {
		t.Errorf("State() after Dispatch = %v, want Live", got)
	}

	if n := e.Calls(kerneltest.OpBeginFrame); n != 1 {
		t.Errorf("BeginFrame calls = %d, want 1", n)
	}
	if n := e.Calls(kerneltest.OpEndFrame); n != 1 {
		t.Errorf("EndFrame calls = %d, want 1", n)
	}
	if c.Frame() != 1 {
		t.Errorf("Frame() = %d, want 1", c.Frame())
	}
	assertNoViolations(t, e)
}

// TestPrepareEngineFailure tests that a failed BeginFrame leaves the
// context Live.
func TestPrepareEngineFailure(t *testing.T) {
	c, e := newContext(t)
	e.Fail(kerneltest.OpBeginFrame, errors.New("device lost"))

	err := c.Prepare()
	if kernel.KindOf(err) != kernel.KindNative {
		t.Fatalf("Prepare() error = %v, want Native kind", err)
	}
	if got := c.State(); got != kernel.StateLive {
		t.Errorf("State() = %v, want Live", got)
	}

	e.Fail(kerneltest.OpBeginFrame, nil)
	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare() after recovery error = %v", err)
	}
	if err := c.Dispatch(); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
}

// TestResizeDeferredError tests that a resize failure surfaces at the next
// Dispatch, once.
func TestResizeDeferredError(t *testing.T) {
	c, e := newContext(t)
	cause := errors.New("swapchain out of date")
	e.Fail(kerneltest.OpResizeSurface, cause)

	c.ResizeSurface(1024, 768)
	if s := c.Surface(); s.Width != 800 {
		t.Errorf("Surface().Width = %d after failed resize, want 800", s.Width)
	}

	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := c.Dispatch(); !errors.Is(err, cause) {
		t.Errorf("Dispatch() error = %v, want %v", err, cause)
	}

	e.Fail(kerneltest.OpResizeSurface, nil)
	c.ResizeSurface(1024, 768)
	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := c.Dispatch(); err != nil {
		t.Errorf("Dispatch() error = %v, want nil", err)
	}
	if s := c.Surface(); s.Width != 1024 || s.Height != 768 {
		t.Errorf("Surface() = %dx%d, want 1024x768", s.Width, s.Height)
	}
}

// TestResizeZero tests that zero extents are rejected without an engine call.
func TestResizeZero(t *testing.T) {
	c, e := newContext(t)

	c.ResizeSurface(0, 600)
	if n := e.Calls(kerneltest.OpResizeSurface); n != 0 {
		t.Errorf("ResizeSurface calls = %d, want 0", n)
	}
	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := c.Dispatch(); !errors.Is(err, kernel.ErrInvalidSurface) {
		t.Errorf("Dispatch() error = %v, want ErrInvalidSurface", err)
	}
}

// TestDisposeAtMostOnce tests that repeated Dispose reaches the engine once.
func TestDisposeAtMostOnce(t *testing.T) {
	c, e := newContext(t)

	for i := range 3 {
		if err := c.Dispose(); err != nil {
			t.Fatalf("Dispose() #%d error = %v", i+1, err)
		}
	}
	if n := e.Calls(kerneltest.OpDestroyContext); n != 1 {
		t.Errorf("DestroyContext calls = %d, want 1", n)
	}
	if got := c.State(); got != kernel.StateDisposed {
		t.Errorf("State() = %v, want Disposed", got)
	}
	assertNoViolations(t, e)
}

// TestDisposeOrdering tests that a context with a live texture refuses to
// dispose until the texture is disposed.
func TestDisposeOrdering(t *testing.T) {
	c, e := newContext(t)

	tex, err := c.Resources().CreateTexture(rgba(16, 16))
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}

	err = c.Dispose()
	if !errors.Is(err, kernel.ErrLiveDependents) {
		t.Fatalf("Dispose() error = %v, want ErrLiveDependents", err)
	}
	if got := c.State(); got != kernel.StateLive {
		t.Errorf("State() = %v, want Live", got)
	}
	if n := e.Calls(kerneltest.OpDestroyContext); n != 0 {
		t.Errorf("DestroyContext calls = %d, want 0", n)
	}

	if err := tex.Dispose(); err != nil {
		t.Fatalf("Texture.Dispose() error = %v", err)
	}
	if err := c.Dispose(); err != nil {
		t.Fatalf("Dispose() after texture error = %v", err)
	}
	if e.LiveContexts() != 0 {
		t.Errorf("LiveContexts() = %d, want 0", e.LiveContexts())
	}
	assertNoViolations(t, e)
}

// TestDisposeDuringFrame tests that an open frame blocks Dispose.
func TestDisposeDuringFrame(t *testing.T) {
	c, e := newContext(t)

	if err := c.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := c.Dispose(); !errors.Is(err, kernel.ErrFramePending) {
		t.Fatalf("Dispose() error = %v, want ErrFramePending", err)
	}
	if err := c.Dispatch(); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := c.Dispose(); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	assertNoViolations(t, e)
}

// TestUseAfterDispose tests that every operation on a disposed context
// fails with ErrDisposed and never reaches the engine.
func TestUseAfterDispose(t *testing.T) {
	c, e := newContext(t)
	if err := c.Dispose(); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	before := e.TotalCalls()

	checks := map[string]error{
		"Prepare":           c.Prepare(),
		"Dispatch":          c.Dispatch(),
		"InitializeSurface": c.InitializeSurface(kernel.HeadlessHandles()),
		"SetCrop":           c.Recorder().SetCrop(nil),
		"DrawTexture":       c.Recorder().DrawTexture(nil, kernel.Rect{}, kernel.Rect{}),
	}
	_, checks["CreateTexture"] = c.Resources().CreateTexture(rgba(1, 1))
	_, checks["CreateGeometry"] = c.Resources().CreateGeometry(kernel.MeshOpaque)

	for name, err := range checks {
		if !errors.Is(err, kernel.ErrDisposed) {
			t.Errorf("%s error = %v, want ErrDisposed", name, err)
		}
	}
	c.ResizeSurface(10, 10)
	if after := e.TotalCalls(); after != before {
		t.Errorf("engine calls after dispose = %d, want 0", after-before)
	}
}

// TestNativeDestroyFailure tests that a native release error is reported
// but the context is still disposed exactly once.
func TestNativeDestroyFailure(t *testing.T) {
	c, e := newContext(t)
	cause := errors.New("busy")
	e.Fail(kerneltest.OpDestroyContext, cause)

	if err := c.Dispose(); !errors.Is(err, cause) {
		t.Fatalf("Dispose() error = %v, want %v", err, cause)
	}
	if err := c.Dispose(); err != nil {
		t.Errorf("second Dispose() error = %v, want nil", err)
	}
	if n := e.Calls(kerneltest.OpDestroyContext); n != 1 {
		t.Errorf("DestroyContext calls = %d, want 1", n)
	}
}

// TestEndToEnd runs the 800x600 scenario: one 256x256 RGBA8 texture drawn
// under a crop, then torn down in order.
func TestEndToEnd(t *testing.T) {
	c, e := newContext(t)

	desc := rgba(256, 256)
	data := make([]byte, 256*256*4)
	for i := range data {
		data[i] = byte(i)
	}
	tex, err := c.Resources().CreateTextureWithData(desc, data)
	if err != nil {
		t.Fatalf("CreateTextureWithData() error = %v", err)
	}

	const frames = 3
	crop := kernel.R(0, 0, 400, 300)
	for range frames {
		if err := c.Prepare(); err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if err := c.Recorder().SetCrop(&crop); err != nil {
			t.Fatalf("SetCrop() error = %v", err)
		}
		if err := c.Recorder().DrawTexture(tex, kernel.R(0, 0, 1, 1), kernel.R(10, 10, 266, 266)); err != nil {
			t.Fatalf("DrawTexture() error = %v", err)
		}
		if err := c.Dispatch(); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
	}

	draws := e.Draws()
	if len(draws) != frames {
		t.Fatalf("draws = %d, want %d", len(draws), frames)
	}
	for _, d := range draws {
		if d.Tint != kernel.White {
			t.Errorf("draw tint = %v, want White", d.Tint)
		}
		if d.Crop == nil || *d.Crop != crop {
			t.Errorf("draw crop = %v, want %v", d.Crop, crop)
		}
	}
	if got, _ := e.TextureData(tex.ID()); len(got) != len(data) {
		t.Errorf("uploaded %d bytes, want %d", len(got), len(data))
	}
	if e.Frames(c.ID()) != frames {
		t.Errorf("Frames() = %d, want %d", e.Frames(c.ID()), frames)
	}

	if err := tex.Dispose(); err != nil {
		t.Fatalf("Texture.Dispose() error = %v", err)
	}
	if err := c.Dispose(); err != nil {
		t.Fatalf("Context.Dispose() error = %v", err)
	}
	if e.LiveContexts() != 0 || e.LiveTextures() != 0 {
		t.Errorf("live native objects: contexts=%d textures=%d", e.LiveContexts(), e.LiveTextures())
	}
	assertNoViolations(t, e)
}

// TestStateString tests State names.
func TestStateString(t *testing.T) {
	tests := []struct {
		s    kernel.State
		want string
	}{
		{kernel.StateUninitialized, "Uninitialized"},
		{kernel.StateLive, "Live"},
		{kernel.StatePrepared, "Prepared"},
		{kernel.StateDisposed, "Disposed"},
		{kernel.State(42), "Unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}
