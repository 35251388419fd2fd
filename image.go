// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ImageOption configures CreateTextureFromImage.
type ImageOption func(*imageOptions)

type imageOptions struct {
	label         string
	width, height uint32
	srgb          bool
}

// WithImageLabel sets the debug label of the created texture.
func WithImageLabel(label string) ImageOption {
	return func(o *imageOptions) {
		o.label = label
	}
}

// WithImageSize scales the image to width x height before upload.
// Scaling uses Catmull-Rom resampling.
func WithImageSize(width, height uint32) ImageOption {
	return func(o *imageOptions) {
		o.width, o.height = width, height
	}
}

// WithImageSRGB creates the texture as FormatRGBA8Srgb instead of
// FormatRGBA8Unorm.
func WithImageSRGB() ImageOption {
	return func(o *imageOptions) {
		o.srgb = true
	}
}

// CreateTextureFromImage creates a 2D RGBA8 texture holding img. The image
// is converted to non-premultiplied RGBA, the layout engines expect for
// RGBA8 uploads.
func (f *ResourceFactory) CreateTextureFromImage(img image.Image, opts ...ImageOption) (*Texture, error) {
	const op = "create texture from image"

	if img == nil {
		return nil, opError(op, KindValidation, fmt.Errorf("%w: nil image", ErrInvalidDescriptor))
	}
	var o imageOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := img.Bounds()
	w, h := uint32(b.Dx()), uint32(b.Dy())
	if o.width != 0 || o.height != 0 {
		w, h = o.width, o.height
	}
	if w == 0 || h == 0 || b.Empty() {
		return nil, opError(op, KindValidation,
			fmt.Errorf("%w: image extents %dx%d", ErrInvalidDescriptor, w, h))
	}

	dst := image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
	if int(w) == b.Dx() && int(h) == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}

	format := FormatRGBA8Unorm
	if o.srgb {
		format = FormatRGBA8Srgb
	}
	desc := TextureDescriptor{
		Label:     o.label,
		Width:     w,
		Height:    h,
		Layers:    1,
		Dimension: Dimension2D,
		Format:    format,
	}
	return f.createTexture(op, desc, dst.Pix, true)
}
