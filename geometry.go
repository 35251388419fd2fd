// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// Geometry is a handle to a native chunk mesh: index and vertex buffers
// uploaded as six streams.
type Geometry struct {
	h    *Handle[MeshID]
	ctx  *Context
	kind MeshRenderType
}

// ID returns the native identity of the mesh.
func (g *Geometry) ID() MeshID {
	return g.h.ID()
}

// Released reports whether the geometry has been disposed.
func (g *Geometry) Released() bool {
	return g.h.Released()
}

// Context returns the owning context.
func (g *Geometry) Context() *Context {
	return g.ctx
}

// RenderType returns the render type assigned at creation.
func (g *Geometry) RenderType() MeshRenderType {
	return g.kind
}

// SetMeshResource replaces all six streams at once. The streams are handed
// to the engine unexamined; see MeshStreams.
func (g *Geometry) SetMeshResource(streams MeshStreams) error {
	const op = "set mesh resource"

	c := g.ctx
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if err := g.checkLocked(op); err != nil {
		return err
	}
	if err := c.own.engine.UploadMesh(c.ID(), g.h.ID(), streams); err != nil {
		return opError(op, KindNative, err)
	}
	c.log.Debug("kernel: mesh uploaded", "id", uint64(g.h.ID()), "bytes", streams.Len())
	return nil
}

// Clear drops the mesh content. The geometry stays valid and can be
// filled again with SetMeshResource.
func (g *Geometry) Clear() error {
	const op = "clear mesh resource"

	c := g.ctx
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if err := g.checkLocked(op); err != nil {
		return err
	}
	if err := c.own.engine.ClearMesh(c.ID(), g.h.ID()); err != nil {
		return opError(op, KindNative, err)
	}
	return nil
}

// Dispose releases the native mesh. Only the first call reaches the
// engine; later calls return nil.
func (g *Geometry) Dispose() error {
	if _, err := g.h.Release(); err != nil {
		return opError("dispose geometry", KindNative, err)
	}
	return nil
}

func (g *Geometry) checkLocked(op string) error {
	if g.h.Released() {
		return opError(op, KindContract, ErrReleased)
	}
	if g.ctx.state == StateDisposed {
		return opError(op, KindContract, ErrDisposed)
	}
	return nil
}
