// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package dylib

import "github.com/gogpu/kernel"

// ABIVersion is the kernel_* C ABI revision this package binds. A library
// reporting another version from kernel_abi_version is rejected.
const ABIVersion = 1

// Status codes shared with the native library. Any non-zero status is a
// failure; kernel_status_string describes it.
const (
	statusOK int32 = 0
)

// C layouts passed by pointer. Field order and widths match kernel.h.

type cSurfaceDesc struct {
	Width      uint32
	Height     uint32
	Backend    uint32
	HasHandles uint32
	Kind       uint32
	_          uint32
	Display    uintptr
	Window     uintptr
}

type cTextureDesc struct {
	Width     uint32
	Height    uint32
	Layers    uint32
	Dimension uint32
	Format    uint32
}

type cRect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

type cBuffer struct {
	Data *byte
	Len  uint64
}

// cMeshStreams orders the streams as index, position, normal, uv, color,
// attributes.
type cMeshStreams struct {
	Streams [6]cBuffer
}

func toCRect(r kernel.Rect) cRect {
	return cRect{MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: r.MaxY}
}

// symbols holds the bound kernel_* functions.
type symbols struct {
	abiVersion   func() uint32
	statusString func(status int32) string

	createContext  func(desc *cSurfaceDesc, out *uint64) int32
	destroyContext func(ctx uint64) int32
	bindSurface    func(ctx uint64, kind uint32, display, window uintptr) int32
	resizeSurface  func(ctx uint64, width, height uint32) int32
	beginFrame     func(ctx uint64) int32
	endFrame       func(ctx uint64) int32

	createTexture  func(ctx uint64, desc *cTextureDesc, data *byte, size uint64, out *uint64) int32
	destroyTexture func(tex uint64) int32
	uploadTexture  func(ctx, tex uint64, data *byte, size uint64) int32
	textureSize    func(tex uint64, width, height *uint32) int32

	createMesh  func(ctx uint64, kind uint32, out *uint64) int32
	destroyMesh func(mesh uint64) int32
	uploadMesh  func(ctx, mesh uint64, streams *cMeshStreams) int32
	clearMesh   func(ctx, mesh uint64) int32

	setCrop          func(ctx uint64, rect *cRect) int32
	drawTexturedQuad func(ctx, tex uint64, uv, pos *cRect, tint uint32) int32
}

// binding pairs a C symbol with the field it binds.
type binding struct {
	symbol string
	fptr   any
}

func (s *symbols) bindings() []binding {
	return []binding{
		{"kernel_abi_version", &s.abiVersion},
		{"kernel_status_string", &s.statusString},
		{"kernel_create_context", &s.createContext},
		{"kernel_destroy_context", &s.destroyContext},
		{"kernel_bind_surface", &s.bindSurface},
		{"kernel_resize_surface", &s.resizeSurface},
		{"kernel_begin_frame", &s.beginFrame},
		{"kernel_end_frame", &s.endFrame},
		{"kernel_create_texture", &s.createTexture},
		{"kernel_destroy_texture", &s.destroyTexture},
		{"kernel_upload_texture", &s.uploadTexture},
		{"kernel_texture_size", &s.textureSize},
		{"kernel_create_mesh", &s.createMesh},
		{"kernel_destroy_mesh", &s.destroyMesh},
		{"kernel_upload_mesh", &s.uploadMesh},
		{"kernel_clear_mesh", &s.clearMesh},
		{"kernel_set_crop", &s.setCrop},
		{"kernel_draw_textured_quad", &s.drawTexturedQuad},
	}
}
