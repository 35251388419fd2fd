// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

// Texture is a handle to native image data.
//
// A Texture holds a non-owning reference to its Context. It must be
// disposed before that Context; the Context refuses to dispose otherwise.
type Texture struct {
	h    *Handle[TextureID]
	ctx  *Context
	desc TextureDescriptor

	// Last extents reported by the engine, guarded by ctx.own.mu. Not
	// authoritative: Size always asks the engine.
	width, height uint32
}

// ID returns the native identity of the texture.
func (t *Texture) ID() TextureID {
	return t.h.ID()
}

// Released reports whether the texture has been disposed.
func (t *Texture) Released() bool {
	return t.h.Released()
}

// Context returns the owning context.
func (t *Texture) Context() *Context {
	return t.ctx
}

// Descriptor returns the descriptor the texture was created with.
func (t *Texture) Descriptor() TextureDescriptor {
	return t.desc
}

// WriteBuffer replaces the texture contents with data. len(data) must equal
// the byte size implied by the descriptor: engines do not resize textures
// through uploads, so a mismatched buffer is rejected rather than
// reinterpreted.
func (t *Texture) WriteBuffer(data []byte) error {
	const op = "write texture"

	if err := t.desc.checkDataSize(data); err != nil {
		return opError(op, KindValidation, err)
	}

	c := t.ctx
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if err := t.checkLocked(op); err != nil {
		return err
	}
	if err := c.own.engine.UploadTexture(c.ID(), t.h.ID(), data); err != nil {
		return opError(op, KindNative, err)
	}
	t.width, t.height = 0, 0
	return nil
}

// Size returns the current native extents of the texture. It always
// queries the engine, so native-side size changes are observed.
func (t *Texture) Size() (width, height uint32, err error) {
	const op = "texture size"

	c := t.ctx
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if err := t.checkLocked(op); err != nil {
		return 0, 0, err
	}
	w, h, err := c.own.engine.TextureSize(t.h.ID())
	if err != nil {
		return 0, 0, opError(op, KindNative, err)
	}
	t.width, t.height = w, h
	return w, h, nil
}

// CachedSize returns the extents seen by the last Size call. ok is false
// if Size has not been called since creation or since the last WriteBuffer.
func (t *Texture) CachedSize() (width, height uint32, ok bool) {
	c := t.ctx
	c.own.mu.Lock()
	defer c.own.mu.Unlock()
	return t.width, t.height, t.width != 0
}

// Dispose releases the native texture. Only the first call reaches the
// engine; later calls return nil.
func (t *Texture) Dispose() error {
	if _, err := t.h.Release(); err != nil {
		return opError("dispose texture", KindNative, err)
	}
	return nil
}

func (t *Texture) checkLocked(op string) error {
	if t.h.Released() {
		return opError(op, KindContract, ErrReleased)
	}
	if t.ctx.state == StateDisposed {
		return opError(op, KindContract, ErrDisposed)
	}
	return nil
}
