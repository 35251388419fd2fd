// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "fmt"

// ResourceFactory creates textures and geometry on its Context. It holds
// no state besides the Context reference and whether it was handed to a
// subsystem factory.
type ResourceFactory struct {
	c *Context

	// subsystem marks resources as owned by an attached subsystem. They
	// are expected to be released by the subsystem's Dispose and do not
	// block Context.Dispose.
	subsystem bool
}

// Context returns the context resources are created on.
func (f *ResourceFactory) Context() *Context {
	return f.c
}

// CreateTexture creates an empty texture of the described extents.
//
// The descriptor must be non-degenerate: width, height and layers above
// zero, a known dimension and a format other than FormatUnknown. It is
// checked before the engine is called.
func (f *ResourceFactory) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	return f.createTexture("create texture", desc, nil, false)
}

// CreateTextureWithData creates a texture and uploads data as part of
// creation. len(data) must equal desc.ByteSize(); a mismatch is rejected,
// never truncated or padded.
func (f *ResourceFactory) CreateTextureWithData(desc TextureDescriptor, data []byte) (*Texture, error) {
	return f.createTexture("create texture", desc, data, true)
}

func (f *ResourceFactory) createTexture(op string, desc TextureDescriptor, data []byte, withData bool) (*Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, opError(op, KindValidation, err)
	}
	if withData {
		if err := desc.checkDataSize(data); err != nil {
			return nil, opError(op, KindValidation, err)
		}
		if data == nil {
			data = []byte{}
		}
	}

	c := f.c
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if err := c.usableLocked(op); err != nil {
		return nil, err
	}
	id, err := c.own.engine.CreateTexture(c.ID(), desc, data)
	if err != nil {
		return nil, opError(op, KindConstruction, err)
	}
	if id == InvalidID {
		return nil, opError(op, KindConstruction,
			fmt.Errorf("engine %s returned an invalid texture id", c.own.engine.Name()))
	}

	own, owned := c.own, f.track()
	t := &Texture{ctx: c, desc: desc}
	t.h = newHandle(id, func(id TextureID) error {
		return own.releaseResource(owned, func() error { return own.engine.DestroyTexture(id) })
	})
	if c.leakGuard {
		guard(t, t.h, "texture")
	}

	c.log.Debug("kernel: texture created",
		"id", uint64(id),
		"width", desc.Width,
		"height", desc.Height,
		"layers", desc.Layers,
		"format", desc.Format.String(),
		"bytes", len(data))
	return t, nil
}

// CreateGeometry creates an empty chunk mesh of the given render type.
// Content is uploaded later with Geometry.SetMeshResource.
func (f *ResourceFactory) CreateGeometry(kind MeshRenderType) (*Geometry, error) {
	const op = "create geometry"

	c := f.c
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if err := c.usableLocked(op); err != nil {
		return nil, err
	}
	id, err := c.own.engine.CreateMesh(c.ID(), kind)
	if err != nil {
		return nil, opError(op, KindConstruction, err)
	}
	if id == InvalidID {
		return nil, opError(op, KindConstruction,
			fmt.Errorf("engine %s returned an invalid mesh id", c.own.engine.Name()))
	}

	own, owned := c.own, f.track()
	g := &Geometry{ctx: c, kind: kind}
	g.h = newHandle(id, func(id MeshID) error {
		return own.releaseResource(owned, func() error { return own.engine.DestroyMesh(id) })
	})
	if c.leakGuard {
		guard(g, g.h, "geometry")
	}

	c.log.Debug("kernel: geometry created", "id", uint64(id), "type", kind.String())
	return g, nil
}

// track counts a new resource as live. Called with the submission lock
// held.
func (f *ResourceFactory) track() (owned bool) {
	f.c.own.live++
	if f.subsystem {
		f.c.own.owned++
	}
	return f.subsystem
}
