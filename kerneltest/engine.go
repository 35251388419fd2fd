// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kerneltest provides a recording fake of the native engine
// boundary for tests of kernel and its subsystems.
//
// The fake checks the native-side contract strictly: destroying an unknown
// or already destroyed id, a re-entrant BeginFrame, a draw outside a frame
// and destroying a context with live resources are all reported as
// violations. Tests assert on Violations to prove the kernel never lets
// such calls through.
package kerneltest

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/gogpu/kernel"
)

// Op names recorded by Engine.
const (
	OpCreateContext  = "CreateContext"
	OpDestroyContext = "DestroyContext"
	OpBindSurface    = "BindSurface"
	OpResizeSurface  = "ResizeSurface"
	OpBeginFrame     = "BeginFrame"
	OpEndFrame       = "EndFrame"
	OpCreateTexture  = "CreateTexture"
	OpDestroyTexture = "DestroyTexture"
	OpUploadTexture  = "UploadTexture"
	OpTextureSize    = "TextureSize"
	OpCreateMesh     = "CreateMesh"
	OpDestroyMesh    = "DestroyMesh"
	OpUploadMesh     = "UploadMesh"
	OpClearMesh      = "ClearMesh"
	OpSetCrop        = "SetCrop"
	OpDraw           = "DrawTexturedQuad"
)

// Draw is one recorded DrawTexturedQuad call.
type Draw struct {
	Context kernel.ContextID
	Texture kernel.TextureID
	UV      kernel.Rect
	Pos     kernel.Rect
	Tint    kernel.Color

	// Crop is the crop active when the draw was issued.
	Crop *kernel.Rect
}

type fakeContext struct {
	surface  kernel.SurfaceConfig
	bound    bool
	inFrame  bool
	crop     *kernel.Rect
	frames   int
	textures map[kernel.TextureID]struct{}
	meshes   map[kernel.MeshID]struct{}
}

type fakeTexture struct {
	ctx           kernel.ContextID
	desc          kernel.TextureDescriptor
	width, height uint32
	data          []byte
}

type fakeMesh struct {
	ctx     kernel.ContextID
	kind    kernel.MeshRenderType
	streams kernel.MeshStreams
}

// Engine is a kernel.Engine that records calls in memory.
// It is safe for concurrent use.
type Engine struct {
	name string

	mu         sync.Mutex
	nextID     uint64
	calls      map[string]int
	failures   map[string]error
	contexts   map[kernel.ContextID]*fakeContext
	textures   map[kernel.TextureID]*fakeTexture
	meshes     map[kernel.MeshID]*fakeMesh
	draws      []Draw
	crops      []*kernel.Rect
	violations []string
	log        *slog.Logger
}

// New returns an empty fake engine named "fake".
func New() *Engine {
	return NewNamed("fake")
}

// NewNamed returns an empty fake engine with the given name.
func NewNamed(name string) *Engine {
	return &Engine{
		name:     name,
		calls:    make(map[string]int),
		failures: make(map[string]error),
		contexts: make(map[kernel.ContextID]*fakeContext),
		textures: make(map[kernel.TextureID]*fakeTexture),
		meshes:   make(map[kernel.MeshID]*fakeMesh),
	}
}

// SetLogger implements the logger propagation hook of kernel.SetLogger.
func (e *Engine) SetLogger(l *slog.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = l
}

// LoggerSet reports whether a logger was propagated to the engine.
func (e *Engine) LoggerSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log != nil
}

// Fail makes every later call of op return err. A nil err clears it.
func (e *Engine) Fail(op string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err == nil {
		delete(e.failures, op)
		return
	}
	e.failures[op] = err
}

// Calls returns how many times op was called, including failed calls.
func (e *Engine) Calls(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[op]
}

// TotalCalls returns the number of calls of all ops.
func (e *Engine) TotalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, c := range e.calls {
		n += c
	}
	return n
}

// Draws returns the recorded draws, oldest first.
func (e *Engine) Draws() []Draw {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.draws)
}

// Crops returns the crops passed to SetCrop, oldest first. Nil entries are
// crop clears.
func (e *Engine) Crops() []*kernel.Rect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.crops)
}

// Violations returns the native-contract violations seen so far.
func (e *Engine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.violations)
}

// LiveContexts returns the number of contexts not yet destroyed.
func (e *Engine) LiveContexts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.contexts)
}

// LiveTextures returns the number of textures not yet destroyed.
func (e *Engine) LiveTextures() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.textures)
}

// LiveMeshes returns the number of meshes not yet destroyed.
func (e *Engine) LiveMeshes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.meshes)
}

// Frames returns the number of frames ended on ctx.
func (e *Engine) Frames(ctx kernel.ContextID) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.contexts[ctx]; ok {
		return c.frames
	}
	return 0
}

// SurfaceOf returns the surface configuration of a live context.
func (e *Engine) SurfaceOf(ctx kernel.ContextID) (kernel.SurfaceConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.contexts[ctx]
	if !ok {
		return kernel.SurfaceConfig{}, false
	}
	return c.surface, true
}

// TextureData returns a copy of the last upload to tex.
func (e *Engine) TextureData(tex kernel.TextureID) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.textures[tex]
	if !ok {
		return nil, false
	}
	return slices.Clone(t.data), true
}

// SetTextureSize changes the native extents of tex, simulating a
// native-side resize.
func (e *Engine) SetTextureSize(tex kernel.TextureID, width, height uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.textures[tex]; ok {
		t.width, t.height = width, height
	}
}

// MeshStreams returns the last streams uploaded to mesh.
func (e *Engine) MeshStreams(mesh kernel.MeshID) (kernel.MeshStreams, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.meshes[mesh]
	if !ok {
		return kernel.MeshStreams{}, false
	}
	return m.streams, true
}

// call records op and returns the injected failure, if any.
func (e *Engine) call(op string) error {
	e.calls[op]++
	if err := e.failures[op]; err != nil {
		return err
	}
	return nil
}

func (e *Engine) violate(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	e.violations = append(e.violations, msg)
	return fmt.Errorf("kerneltest: %s", msg)
}

func (e *Engine) id() uint64 {
	e.nextID++
	return e.nextID
}

func (e *Engine) contextLocked(op string, ctx kernel.ContextID) (*fakeContext, error) {
	c, ok := e.contexts[ctx]
	if !ok {
		return nil, e.violate("%s on unknown context %d", op, ctx)
	}
	return c, nil
}

// Name implements kernel.Engine.
func (e *Engine) Name() string {
	return e.name
}

// CreateContext implements kernel.Engine.
func (e *Engine) CreateContext(desc kernel.SurfaceConfig) (kernel.ContextID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpCreateContext); err != nil {
		return kernel.InvalidID, err
	}
	id := kernel.ContextID(e.id())
	e.contexts[id] = &fakeContext{
		surface:  desc,
		bound:    desc.Handles != nil,
		textures: make(map[kernel.TextureID]struct{}),
		meshes:   make(map[kernel.MeshID]struct{}),
	}
	return id, nil
}

// DestroyContext implements kernel.Engine.
func (e *Engine) DestroyContext(ctx kernel.ContextID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpDestroyContext); err != nil {
		return err
	}
	c, err := e.contextLocked(OpDestroyContext, ctx)
	if err != nil {
		return err
	}
	if n := len(c.textures) + len(c.meshes); n > 0 {
		return e.violate("DestroyContext %d with %d live resources", ctx, n)
	}
	if c.inFrame {
		e.violate("DestroyContext %d inside a frame", ctx)
	}
	delete(e.contexts, ctx)
	return nil
}

// BindSurface implements kernel.Engine.
func (e *Engine) BindSurface(ctx kernel.ContextID, h kernel.PlatformHandles) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpBindSurface); err != nil {
		return err
	}
	c, err := e.contextLocked(OpBindSurface, ctx)
	if err != nil {
		return err
	}
	if c.bound {
		return e.violate("BindSurface on bound context %d", ctx)
	}
	c.bound = true
	c.surface.Handles = &h
	return nil
}

// ResizeSurface implements kernel.Engine.
func (e *Engine) ResizeSurface(ctx kernel.ContextID, width, height uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpResizeSurface); err != nil {
		return err
	}
	c, err := e.contextLocked(OpResizeSurface, ctx)
	if err != nil {
		return err
	}
	c.surface.Width, c.surface.Height = width, height
	return nil
}

// BeginFrame implements kernel.Engine.
func (e *Engine) BeginFrame(ctx kernel.ContextID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpBeginFrame); err != nil {
		return err
	}
	c, err := e.contextLocked(OpBeginFrame, ctx)
	if err != nil {
		return err
	}
	if c.inFrame {
		return e.violate("re-entrant BeginFrame on context %d", ctx)
	}
	c.inFrame = true
	c.crop = nil
	return nil
}

// EndFrame implements kernel.Engine.
func (e *Engine) EndFrame(ctx kernel.ContextID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, cerr := e.contextLocked(OpEndFrame, ctx)
	if cerr != nil {
		e.calls[OpEndFrame]++
		return cerr
	}
	if !c.inFrame {
		e.calls[OpEndFrame]++
		return e.violate("EndFrame without BeginFrame on context %d", ctx)
	}
	// The frame closes even when a failure is injected.
	c.inFrame = false
	c.crop = nil
	c.frames++
	return e.call(OpEndFrame)
}

// CreateTexture implements kernel.Engine.
func (e *Engine) CreateTexture(ctx kernel.ContextID, desc kernel.TextureDescriptor, initial []byte) (kernel.TextureID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpCreateTexture); err != nil {
		return kernel.InvalidID, err
	}
	c, err := e.contextLocked(OpCreateTexture, ctx)
	if err != nil {
		return kernel.InvalidID, err
	}
	if initial != nil && uint64(len(initial)) != desc.ByteSize() {
		return kernel.InvalidID, e.violate("CreateTexture with %d bytes, want %d", len(initial), desc.ByteSize())
	}
	id := kernel.TextureID(e.id())
	e.textures[id] = &fakeTexture{
		ctx:    ctx,
		desc:   desc,
		width:  desc.Width,
		height: desc.Height,
		data:   slices.Clone(initial),
	}
	c.textures[id] = struct{}{}
	return id, nil
}

// DestroyTexture implements kernel.Engine.
func (e *Engine) DestroyTexture(tex kernel.TextureID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpDestroyTexture); err != nil {
		return err
	}
	t, ok := e.textures[tex]
	if !ok {
		return e.violate("DestroyTexture on unknown texture %d", tex)
	}
	if c, ok := e.contexts[t.ctx]; ok {
		delete(c.textures, tex)
	}
	delete(e.textures, tex)
	return nil
}

// UploadTexture implements kernel.Engine.
func (e *Engine) UploadTexture(ctx kernel.ContextID, tex kernel.TextureID, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpUploadTexture); err != nil {
		return err
	}
	t, ok := e.textures[tex]
	if !ok || t.ctx != ctx {
		return e.violate("UploadTexture on unknown texture %d", tex)
	}
	if uint64(len(data)) != t.desc.ByteSize() {
		return e.violate("UploadTexture with %d bytes, want %d", len(data), t.desc.ByteSize())
	}
	t.data = slices.Clone(data)
	return nil
}

// TextureSize implements kernel.Engine.
func (e *Engine) TextureSize(tex kernel.TextureID) (uint32, uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpTextureSize); err != nil {
		return 0, 0, err
	}
	t, ok := e.textures[tex]
	if !ok {
		return 0, 0, e.violate("TextureSize on unknown texture %d", tex)
	}
	return t.width, t.height, nil
}

// CreateMesh implements kernel.Engine.
func (e *Engine) CreateMesh(ctx kernel.ContextID, kind kernel.MeshRenderType) (kernel.MeshID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpCreateMesh); err != nil {
		return kernel.InvalidID, err
	}
	c, err := e.contextLocked(OpCreateMesh, ctx)
	if err != nil {
		return kernel.InvalidID, err
	}
	id := kernel.MeshID(e.id())
	e.meshes[id] = &fakeMesh{ctx: ctx, kind: kind}
	c.meshes[id] = struct{}{}
	return id, nil
}

// DestroyMesh implements kernel.Engine.
func (e *Engine) DestroyMesh(mesh kernel.MeshID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpDestroyMesh); err != nil {
		return err
	}
	m, ok := e.meshes[mesh]
	if !ok {
		return e.violate("DestroyMesh on unknown mesh %d", mesh)
	}
	if c, ok := e.contexts[m.ctx]; ok {
		delete(c.meshes, mesh)
	}
	delete(e.meshes, mesh)
	return nil
}

// UploadMesh implements kernel.Engine. Streams are stored unexamined.
func (e *Engine) UploadMesh(ctx kernel.ContextID, mesh kernel.MeshID, streams kernel.MeshStreams) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpUploadMesh); err != nil {
		return err
	}
	m, ok := e.meshes[mesh]
	if !ok || m.ctx != ctx {
		return e.violate("UploadMesh on unknown mesh %d", mesh)
	}
	m.streams = streams
	return nil
}

// ClearMesh implements kernel.Engine.
func (e *Engine) ClearMesh(ctx kernel.ContextID, mesh kernel.MeshID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpClearMesh); err != nil {
		return err
	}
	m, ok := e.meshes[mesh]
	if !ok || m.ctx != ctx {
		return e.violate("ClearMesh on unknown mesh %d", mesh)
	}
	m.streams = kernel.MeshStreams{}
	return nil
}

// SetCrop implements kernel.Engine.
func (e *Engine) SetCrop(ctx kernel.ContextID, rect *kernel.Rect) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpSetCrop); err != nil {
		return err
	}
	c, err := e.contextLocked(OpSetCrop, ctx)
	if err != nil {
		return err
	}
	if !c.inFrame {
		return e.violate("SetCrop outside a frame on context %d", ctx)
	}
	var crop *kernel.Rect
	if rect != nil {
		cp := *rect
		crop = &cp
	}
	c.crop = crop
	e.crops = append(e.crops, crop)
	return nil
}

// DrawTexturedQuad implements kernel.Engine.
func (e *Engine) DrawTexturedQuad(ctx kernel.ContextID, tex kernel.TextureID, uv, pos kernel.Rect, tint kernel.Color) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.call(OpDraw); err != nil {
		return err
	}
	c, err := e.contextLocked(OpDraw, ctx)
	if err != nil {
		return err
	}
	if !c.inFrame {
		return e.violate("draw outside a frame on context %d", ctx)
	}
	t, ok := e.textures[tex]
	if !ok || t.ctx != ctx {
		return e.violate("draw of unknown texture %d", tex)
	}
	e.draws = append(e.draws, Draw{
		Context: ctx,
		Texture: tex,
		UV:      uv,
		Pos:     pos,
		Tint:    tint,
		Crop:    c.crop,
	})
	return nil
}

// Ops returns the names of ops called at least once, sorted.
func (e *Engine) Ops() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(maps.Keys(e.calls))
}

var _ kernel.Engine = (*Engine)(nil)
