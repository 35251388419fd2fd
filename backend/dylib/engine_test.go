// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dylib

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"unsafe"

	"github.com/gogpu/kernel"
)

const (
	statusUnknownID int32 = 1
	statusFrame     int32 = 2
)

// native is an in-memory stand-in for a library exporting the kernel_* ABI.
type native struct {
	version  uint32
	nextID   uint64
	contexts map[uint64]cSurfaceDesc
	textures map[uint64]cTextureDesc
	uploads  map[uint64][]byte
	meshes   map[uint64][6]uint64
	inFrame  map[uint64]bool
	crop     *cRect
	tints    []uint32
}

func newNative() *native {
	return &native{
		version:  ABIVersion,
		contexts: map[uint64]cSurfaceDesc{},
		textures: map[uint64]cTextureDesc{},
		uploads:  map[uint64][]byte{},
		meshes:   map[uint64][6]uint64{},
		inFrame:  map[uint64]bool{},
	}
}

func (n *native) id() uint64 {
	n.nextID++
	return n.nextID
}

func (n *native) exports() map[string]any {
	return map[string]any{
		"kernel_abi_version": func() uint32 { return n.version },
		"kernel_status_string": func(s int32) string {
			switch s {
			case statusUnknownID:
				return "unknown id"
			case statusFrame:
				return "frame protocol"
			}
			return fmt.Sprintf("status %d", s)
		},
		"kernel_create_context": func(d *cSurfaceDesc, out *uint64) int32 {
			*out = n.id()
			n.contexts[*out] = *d
			return statusOK
		},
		"kernel_destroy_context": func(ctx uint64) int32 {
			if _, ok := n.contexts[ctx]; !ok {
				return statusUnknownID
			}
			delete(n.contexts, ctx)
			return statusOK
		},
		"kernel_bind_surface": func(ctx uint64, kind uint32, display, window uintptr) int32 {
			d, ok := n.contexts[ctx]
			if !ok {
				return statusUnknownID
			}
			d.HasHandles, d.Kind, d.Display, d.Window = 1, kind, display, window
			n.contexts[ctx] = d
			return statusOK
		},
		"kernel_resize_surface": func(ctx uint64, w, h uint32) int32 {
			d := n.contexts[ctx]
			d.Width, d.Height = w, h
			n.contexts[ctx] = d
			return statusOK
		},
		"kernel_begin_frame": func(ctx uint64) int32 {
			if n.inFrame[ctx] {
				return statusFrame
			}
			n.inFrame[ctx] = true
			return statusOK
		},
		"kernel_end_frame": func(ctx uint64) int32 {
			if !n.inFrame[ctx] {
				return statusFrame
			}
			n.inFrame[ctx] = false
			return statusOK
		},
		"kernel_create_texture": func(ctx uint64, d *cTextureDesc, data *byte, size uint64, out *uint64) int32 {
			*out = n.id()
			n.textures[*out] = *d
			if data != nil {
				n.uploads[*out] = append([]byte(nil), unsafe.Slice(data, size)...)
			}
			return statusOK
		},
		"kernel_destroy_texture": func(tex uint64) int32 {
			if _, ok := n.textures[tex]; !ok {
				return statusUnknownID
			}
			delete(n.textures, tex)
			return statusOK
		},
		"kernel_upload_texture": func(ctx, tex uint64, data *byte, size uint64) int32 {
			n.uploads[tex] = append([]byte(nil), unsafe.Slice(data, size)...)
			return statusOK
		},
		"kernel_texture_size": func(tex uint64, w, h *uint32) int32 {
			d, ok := n.textures[tex]
			if !ok {
				return statusUnknownID
			}
			*w, *h = d.Width, d.Height
			return statusOK
		},
		"kernel_create_mesh": func(ctx uint64, kind uint32, out *uint64) int32 {
			*out = n.id()
			n.meshes[*out] = [6]uint64{}
			return statusOK
		},
		"kernel_destroy_mesh": func(mesh uint64) int32 {
			delete(n.meshes, mesh)
			return statusOK
		},
		"kernel_upload_mesh": func(ctx, mesh uint64, s *cMeshStreams) int32 {
			var lens [6]uint64
			for i, b := range s.Streams {
				lens[i] = b.Len
			}
			n.meshes[mesh] = lens
			return statusOK
		},
		"kernel_clear_mesh": func(ctx, mesh uint64) int32 {
			n.meshes[mesh] = [6]uint64{}
			return statusOK
		},
		"kernel_set_crop": func(ctx uint64, r *cRect) int32 {
			if r == nil {
				n.crop = nil
				return statusOK
			}
			c := *r
			n.crop = &c
			return statusOK
		},
		"kernel_draw_textured_quad": func(ctx, tex uint64, uv, pos *cRect, tint uint32) int32 {
			if !n.inFrame[ctx] {
				return statusFrame
			}
			n.tints = append(n.tints, tint)
			return statusOK
		},
	}
}

// fakeLibrary binds exports by assigning Go funcs to the symbol fields.
type fakeLibrary struct {
	exports map[string]any
}

func (l fakeLibrary) Bind(fptr any, symbol string) error {
	fn, ok := l.exports[symbol]
	if !ok {
		return fmt.Errorf("symbol %s not found", symbol)
	}
	reflect.ValueOf(fptr).Elem().Set(reflect.ValueOf(fn))
	return nil
}

func newFakeEngine(t *testing.T) (*Engine, *native) {
	t.Helper()
	n := newNative()
	sym, err := bindSymbols(fakeLibrary{n.exports()})
	if err != nil {
		t.Fatalf("bindSymbols failed: %v", err)
	}
	return newEngine("dylib:fake", sym), n
}

func TestBindSymbols(t *testing.T) {
	n := newNative()
	exports := n.exports()
	delete(exports, "kernel_clear_mesh")
	if _, err := bindSymbols(fakeLibrary{exports}); err == nil {
		t.Error("bindSymbols with a missing symbol succeeded")
	}

	n.version = ABIVersion + 1
	if _, err := bindSymbols(fakeLibrary{n.exports()}); err == nil {
		t.Error("bindSymbols with a newer ABI succeeded")
	}
}

// TestStatusError verifies non-zero statuses become *StatusError with the
// library's message.
func TestStatusError(t *testing.T) {
	e, _ := newFakeEngine(t)

	err := e.DestroyTexture(42)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("DestroyTexture error = %v, want *StatusError", err)
	}
	if se.Status != statusUnknownID || se.Message != "unknown id" || se.Op != "destroy_texture" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestForwarding(t *testing.T) {
	e, n := newFakeEngine(t)

	h := kernel.X11Handles(0x10, 0x20)
	ctx, err := e.CreateContext(kernel.SurfaceConfig{Width: 640, Height: 480, Backend: kernel.BackendVulkan, Handles: &h})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	d := n.contexts[uint64(ctx)]
	if d.Width != 640 || d.HasHandles != 1 || d.Kind != uint32(kernel.WindowX11) || d.Window != 0x20 {
		t.Errorf("native surface desc = %+v", d)
	}

	desc := kernel.TextureDescriptor{Width: 2, Height: 2, Layers: 1, Dimension: kernel.Dimension2D, Format: kernel.FormatRGBA8Unorm}
	data := make([]byte, 16)
	data[0] = 0xAB
	tex, err := e.CreateTexture(ctx, desc, data)
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	if got := n.uploads[uint64(tex)]; len(got) != 16 || got[0] != 0xAB {
		t.Errorf("native upload = %v", got)
	}
	if w, h, err := e.TextureSize(tex); err != nil || w != 2 || h != 2 {
		t.Errorf("TextureSize = %d, %d, %v", w, h, err)
	}

	mesh, err := e.CreateMesh(ctx, kernel.MeshBillboard)
	if err != nil {
		t.Fatalf("CreateMesh failed: %v", err)
	}
	streams := kernel.MeshStreams{Index: make([]byte, 12), Position: make([]byte, 36)}
	if err := e.UploadMesh(ctx, mesh, streams); err != nil {
		t.Fatalf("UploadMesh failed: %v", err)
	}
	if got := n.meshes[uint64(mesh)]; got != [6]uint64{12, 36, 0, 0, 0, 0} {
		t.Errorf("native stream lengths = %v", got)
	}

	if err := e.BeginFrame(ctx); err != nil {
		t.Fatalf("BeginFrame failed: %v", err)
	}
	crop := kernel.R(1, 2, 3, 4)
	if err := e.SetCrop(ctx, &crop); err != nil {
		t.Fatalf("SetCrop failed: %v", err)
	}
	if n.crop == nil || *n.crop != (cRect{1, 2, 3, 4}) {
		t.Errorf("native crop = %v", n.crop)
	}
	if err := e.SetCrop(ctx, nil); err != nil || n.crop != nil {
		t.Errorf("SetCrop(nil) = %v, native crop = %v", err, n.crop)
	}
	if err := e.DrawTexturedQuad(ctx, tex, kernel.R(0, 0, 1, 1), kernel.R(0, 0, 2, 2), kernel.White); err != nil {
		t.Fatalf("DrawTexturedQuad failed: %v", err)
	}
	if err := e.EndFrame(ctx); err != nil {
		t.Fatalf("EndFrame failed: %v", err)
	}
	if len(n.tints) != 1 || n.tints[0] != uint32(kernel.White) {
		t.Errorf("native tints = %v", n.tints)
	}
	if err := e.EndFrame(ctx); err == nil {
		t.Error("unpaired EndFrame succeeded")
	}
}

// TestKernelContext drives the engine through a kernel Context.
func TestKernelContext(t *testing.T) {
	e, n := newFakeEngine(t)
	c, err := kernel.New(kernel.SurfaceConfig{Width: 100, Height: 100}, kernel.WithEngine(e), kernel.WithLeakGuard(false))
	if err != nil {
		t.Fatalf("kernel.New failed: %v", err)
	}
	if err := c.InitializeSurface(kernel.Win32Handles(1, 2)); err != nil {
		t.Fatalf("InitializeSurface failed: %v", err)
	}
	if d := n.contexts[uint64(c.ID())]; d.Kind != uint32(kernel.WindowWin32) {
		t.Errorf("native kind = %d, want Win32", d.Kind)
	}
	if err := c.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if len(n.contexts) != 0 {
		t.Errorf("native contexts = %d after Dispose, want 0", len(n.contexts))
	}
}

func TestRegistryConfig(t *testing.T) {
	Configure(LibraryConfig{Name: "/nonexistent/libkernel.so", Paths: []string{"a"}})
	t.Cleanup(func() { Configure(LibraryConfig{}) })

	cfg := registryConfig()
	cfg.Paths[0] = "b"
	if registryConfig().Paths[0] != "a" {
		t.Error("registryConfig shares the Paths slice")
	}
	for _, name := range kernel.AvailableEngines() {
		if name == Name {
			t.Error("dylib available without a library")
		}
	}
}
