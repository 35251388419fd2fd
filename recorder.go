// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "fmt"

// FrameRecorder issues UI commands to its Context's engine. Commands are
// only accepted between Context.Prepare and Context.Dispatch; outside that
// window they return ErrNotPrepared.
//
// The recorder keeps no command list of its own: each call is forwarded to
// the engine immediately, in call order.
type FrameRecorder struct {
	c *Context
}

// SetCrop constrains subsequent draws of the current frame to rect. A nil
// rect clears the crop. The crop is global to the frame and a new crop
// replaces the previous one; crops never stack or intersect.
func (r *FrameRecorder) SetCrop(rect *Rect) error {
	const op = "set crop"

	c := r.c
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if err := c.recordingLocked(op); err != nil {
		return err
	}

	var crop *Rect
	if rect != nil {
		cp := *rect
		crop = &cp
	}
	if err := c.own.engine.SetCrop(c.ID(), crop); err != nil {
		return opError(op, KindNative, err)
	}
	c.crop = crop
	c.stats.CropChanges++
	return nil
}

// ClearCrop removes the active crop. It is SetCrop(nil).
func (r *FrameRecorder) ClearCrop() error {
	return r.SetCrop(nil)
}

// Crop returns the active crop of the current frame.
func (r *FrameRecorder) Crop() (Rect, bool) {
	c := r.c
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if c.crop == nil {
		return Rect{}, false
	}
	return *c.crop, true
}

// DrawTexture draws the uv region of tex into pos with an opaque white
// tint.
func (r *FrameRecorder) DrawTexture(tex *Texture, uv, pos Rect) error {
	return r.DrawTextureTinted(tex, uv, pos, White)
}

// DrawTextureTinted draws the uv region of tex into pos, modulated by
// tint. uv is in normalised texture coordinates, pos in surface pixels.
//
// tex must be live and created on the same Context.
func (r *FrameRecorder) DrawTextureTinted(tex *Texture, uv, pos Rect, tint Color) error {
	const op = "draw texture"

	c := r.c
	c.own.mu.Lock()
	defer c.own.mu.Unlock()

	if err := c.recordingLocked(op); err != nil {
		return err
	}
	switch {
	case tex == nil:
		return opError(op, KindContract, fmt.Errorf("%w: nil texture", ErrReleased))
	case tex.ctx != c:
		return opError(op, KindContract, ErrForeignResource)
	case tex.h.Released():
		return opError(op, KindContract, ErrReleased)
	}

	if err := c.own.engine.DrawTexturedQuad(c.ID(), tex.h.ID(), uv, pos, tint); err != nil {
		return opError(op, KindNative, err)
	}
	c.stats.Draws++
	return nil
}

func (c *Context) recordingLocked(op string) error {
	switch c.state {
	case StateDisposed:
		return opError(op, KindContract, ErrDisposed)
	case StatePrepared:
		return nil
	default:
		return opError(op, KindContract, ErrNotPrepared)
	}
}
