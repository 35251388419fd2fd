// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dylib

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/gogpu/kernel"
	"github.com/gogpu/kernel/internal/loader"
)

// DefaultLibrary is the library name loaded when LibraryConfig.Name is
// empty: libkernel-<os>-<arch>.<ext>.
const DefaultLibrary = "kernel"

// LibraryConfig selects the native library.
type LibraryConfig struct {
	// Name is a library name resolved with the platform naming
	// convention, or an absolute path.
	Name string

	// Paths are searched before the system loader path.
	Paths []string

	Logger *slog.Logger
}

func (c LibraryConfig) name() string {
	if c.Name == "" {
		return DefaultLibrary
	}
	return c.Name
}

// StatusError is a non-zero status returned by the native library.
type StatusError struct {
	Op      string
	Status  int32
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dylib: %s: %s (status %d)", e.Op, e.Message, e.Status)
}

// binder resolves C symbols into Go function pointers.
type binder interface {
	Bind(fptr any, symbol string) error
}

func bindSymbols(b binder) (*symbols, error) {
	s := &symbols{}
	for _, bd := range s.bindings() {
		if err := b.Bind(bd.fptr, bd.symbol); err != nil {
			return nil, err
		}
	}
	if v := s.abiVersion(); v != ABIVersion {
		return nil, fmt.Errorf("dylib: library ABI version %d, want %d", v, ABIVersion)
	}
	return s, nil
}

// Engine forwards every kernel.Engine call to a native library through its
// kernel_* C ABI. The library is responsible for its own thread safety
// across contexts.
type Engine struct {
	name string
	sym  *symbols
	log  atomic.Pointer[slog.Logger]
}

// Open loads the configured library and binds its symbols.
func Open(cfg LibraryConfig) (*Engine, error) {
	lib, err := loader.Load(cfg.name(), loader.Options{Paths: cfg.Paths, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	sym, err := bindSymbols(lib)
	if err != nil {
		return nil, err
	}
	e := newEngine("dylib:"+lib.Name, sym)
	if cfg.Logger != nil {
		e.SetLogger(cfg.Logger)
	}
	e.logger().Info("dylib: engine bound", "library", lib.Path, "abi", ABIVersion)
	return e, nil
}

func newEngine(name string, sym *symbols) *Engine {
	return &Engine{name: name, sym: sym}
}

// SetLogger sets the engine logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	e.log.Store(l)
}

func (e *Engine) logger() *slog.Logger {
	if l := e.log.Load(); l != nil {
		return l
	}
	return kernel.Logger()
}

func (e *Engine) check(op string, status int32) error {
	if status == statusOK {
		return nil
	}
	err := &StatusError{Op: op, Status: status, Message: e.sym.statusString(status)}
	e.logger().Debug("dylib: native call failed", "op", op, "status", status, "message", err.Message)
	return err
}

// Name implements kernel.Engine.
func (e *Engine) Name() string {
	return e.name
}

// CreateContext implements kernel.Engine.
func (e *Engine) CreateContext(desc kernel.SurfaceConfig) (kernel.ContextID, error) {
	cd := cSurfaceDesc{Width: desc.Width, Height: desc.Height, Backend: uint32(desc.Backend)}
	if h := desc.Handles; h != nil {
		cd.HasHandles = 1
		cd.Kind = uint32(h.Kind)
		cd.Display = h.Display
		cd.Window = h.Window
	}
	var id uint64
	if err := e.check("create_context", e.sym.createContext(&cd, &id)); err != nil {
		return kernel.InvalidID, err
	}
	return kernel.ContextID(id), nil
}

// DestroyContext implements kernel.Engine.
func (e *Engine) DestroyContext(ctx kernel.ContextID) error {
	return e.check("destroy_context", e.sym.destroyContext(uint64(ctx)))
}

// BindSurface implements kernel.Engine.
func (e *Engine) BindSurface(ctx kernel.ContextID, h kernel.PlatformHandles) error {
	return e.check("bind_surface", e.sym.bindSurface(uint64(ctx), uint32(h.Kind), h.Display, h.Window))
}

// ResizeSurface implements kernel.Engine.
func (e *Engine) ResizeSurface(ctx kernel.ContextID, width, height uint32) error {
	return e.check("resize_surface", e.sym.resizeSurface(uint64(ctx), width, height))
}

// BeginFrame implements kernel.Engine.
func (e *Engine) BeginFrame(ctx kernel.ContextID) error {
	return e.check("begin_frame", e.sym.beginFrame(uint64(ctx)))
}

// EndFrame implements kernel.Engine.
func (e *Engine) EndFrame(ctx kernel.ContextID) error {
	return e.check("end_frame", e.sym.endFrame(uint64(ctx)))
}

// bytesPtr returns the address of the first byte of b, or nil if b is
// empty. The caller keeps b alive for the duration of the call.
func bytesPtr(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}

// CreateTexture implements kernel.Engine.
func (e *Engine) CreateTexture(ctx kernel.ContextID, desc kernel.TextureDescriptor, initial []byte) (kernel.TextureID, error) {
	cd := cTextureDesc{
		Width:     desc.Width,
		Height:    desc.Height,
		Layers:    desc.Layers,
		Dimension: uint32(desc.Dimension),
		Format:    uint32(desc.Format),
	}
	var id uint64
	status := e.sym.createTexture(uint64(ctx), &cd, bytesPtr(initial), uint64(len(initial)), &id)
	runtime.KeepAlive(initial)
	if err := e.check("create_texture", status); err != nil {
		return kernel.InvalidID, err
	}
	return kernel.TextureID(id), nil
}

// DestroyTexture implements kernel.Engine.
func (e *Engine) DestroyTexture(tex kernel.TextureID) error {
	return e.check("destroy_texture", e.sym.destroyTexture(uint64(tex)))
}

// UploadTexture implements kernel.Engine.
func (e *Engine) UploadTexture(ctx kernel.ContextID, tex kernel.TextureID, data []byte) error {
	status := e.sym.uploadTexture(uint64(ctx), uint64(tex), bytesPtr(data), uint64(len(data)))
	runtime.KeepAlive(data)
	return e.check("upload_texture", status)
}

// TextureSize implements kernel.Engine.
func (e *Engine) TextureSize(tex kernel.TextureID) (uint32, uint32, error) {
	var w, h uint32
	if err := e.check("texture_size", e.sym.textureSize(uint64(tex), &w, &h)); err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// CreateMesh implements kernel.Engine.
func (e *Engine) CreateMesh(ctx kernel.ContextID, kind kernel.MeshRenderType) (kernel.MeshID, error) {
	var id uint64
	if err := e.check("create_mesh", e.sym.createMesh(uint64(ctx), uint32(kind), &id)); err != nil {
		return kernel.InvalidID, err
	}
	return kernel.MeshID(id), nil
}

// DestroyMesh implements kernel.Engine.
func (e *Engine) DestroyMesh(mesh kernel.MeshID) error {
	return e.check("destroy_mesh", e.sym.destroyMesh(uint64(mesh)))
}

// UploadMesh implements kernel.Engine. The stream buffers are pinned for
// the call since the native side reads them through the streams struct.
func (e *Engine) UploadMesh(ctx kernel.ContextID, mesh kernel.MeshID, streams kernel.MeshStreams) error {
	var pinner runtime.Pinner
	defer pinner.Unpin()

	var cs cMeshStreams
	for i, b := range [][]byte{streams.Index, streams.Position, streams.Normal, streams.UV, streams.Color, streams.Attributes} {
		if len(b) == 0 {
			continue
		}
		pinner.Pin(&b[0])
		cs.Streams[i] = cBuffer{Data: &b[0], Len: uint64(len(b))}
	}
	return e.check("upload_mesh", e.sym.uploadMesh(uint64(ctx), uint64(mesh), &cs))
}

// ClearMesh implements kernel.Engine.
func (e *Engine) ClearMesh(ctx kernel.ContextID, mesh kernel.MeshID) error {
	return e.check("clear_mesh", e.sym.clearMesh(uint64(ctx), uint64(mesh)))
}

// SetCrop implements kernel.Engine. A nil rect is passed as a null pointer.
func (e *Engine) SetCrop(ctx kernel.ContextID, rect *kernel.Rect) error {
	var cr *cRect
	if rect != nil {
		r := toCRect(*rect)
		cr = &r
	}
	return e.check("set_crop", e.sym.setCrop(uint64(ctx), cr))
}

// DrawTexturedQuad implements kernel.Engine.
func (e *Engine) DrawTexturedQuad(ctx kernel.ContextID, tex kernel.TextureID, uv, pos kernel.Rect, tint kernel.Color) error {
	cuv, cpos := toCRect(uv), toCRect(pos)
	return e.check("draw_textured_quad", e.sym.drawTexturedQuad(uint64(ctx), uint64(tex), &cuv, &cpos, uint32(tint)))
}

var _ kernel.Engine = (*Engine)(nil)
