// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// Native identities.
//
// These opaque ids name objects that live on the engine side. Each engine
// maintains the mapping between ids and its own resources. Ids are never
// reused while the engine is open.

// ContextID is the native identity of a rendering context.
type ContextID uint64

// TextureID is the native identity of a texture.
type TextureID uint64

// MeshID is the native identity of a chunk mesh.
type MeshID uint64

// InvalidID is the zero value, representing no native object.
const InvalidID = 0

// Engine is the contract between kernel and a native rendering engine.
//
// kernel guarantees, for every ContextID it holds:
//   - every id passed to a Destroy method is destroyed exactly once
//   - DestroyContext is called only after every texture and mesh created
//     for that context has been destroyed
//   - BeginFrame and EndFrame are paired, with no re-entrant BeginFrame
//   - SetCrop and DrawTexturedQuad are called only between BeginFrame and
//     EndFrame
//   - calls for one context are never concurrent
//
// Calls for different contexts may be concurrent. Engines report failures
// as errors; kernel wraps them with the failing operation.
type Engine interface {
	// Name returns the engine name used in logs and traces.
	Name() string

	// CreateContext allocates a native context for the surface. If
	// desc.Handles is non-nil the surface is bound as part of creation.
	CreateContext(desc SurfaceConfig) (ContextID, error)

	// DestroyContext releases a native context.
	DestroyContext(ctx ContextID) error

	// BindSurface binds the platform surface of a context created with
	// deferred handles.
	BindSurface(ctx ContextID, h PlatformHandles) error

	// ResizeSurface notifies the engine of new surface extents.
	ResizeSurface(ctx ContextID, width, height uint32) error

	// BeginFrame opens a frame's command-recording window.
	BeginFrame(ctx ContextID) error

	// EndFrame submits the recorded commands and closes the window. It
	// may block until the engine has consumed the frame.
	EndFrame(ctx ContextID) error

	// CreateTexture creates a texture of the described extents. A non-nil
	// initial holds exactly desc.ByteSize() bytes and is uploaded as part
	// of creation.
	CreateTexture(ctx ContextID, desc TextureDescriptor, initial []byte) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(tex TextureID) error

	// UploadTexture replaces the full contents of a texture.
	UploadTexture(ctx ContextID, tex TextureID, data []byte) error

	// TextureSize returns the current native extents of a texture.
	TextureSize(tex TextureID) (width, height uint32, err error)

	// CreateMesh creates an empty chunk mesh.
	CreateMesh(ctx ContextID, kind MeshRenderType) (MeshID, error)

	// DestroyMesh releases a chunk mesh.
	DestroyMesh(mesh MeshID) error

	// UploadMesh replaces all six streams of a mesh.
	UploadMesh(ctx ContextID, mesh MeshID, streams MeshStreams) error

	// ClearMesh drops the content of a mesh, keeping its identity.
	ClearMesh(ctx ContextID, mesh MeshID) error

	// SetCrop constrains subsequent draws to rect, or clears the crop if
	// rect is nil. A new crop replaces the previous one.
	SetCrop(ctx ContextID, rect *Rect) error

	// DrawTexturedQuad draws the uv region of tex into pos, modulated by
	// tint.
	DrawTexturedQuad(ctx ContextID, tex TextureID, uv, pos Rect, tint Color) error
}
