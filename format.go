// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/gogpu/gputypes"
)

// PixelFormat is the pixel format of a texture.
type PixelFormat uint8

// Pixel formats. FormatUnknown is the zero value and is rejected by every
// texture factory.
const (
	FormatUnknown PixelFormat = iota
	FormatR8Unorm
	FormatR8Snorm
	FormatR8Uint
	FormatR8Sint
	FormatRG8Unorm
	FormatRG8Snorm
	FormatRG8Uint
	FormatRG8Sint
	FormatR16Unorm
	FormatR16Snorm
	FormatR16Uint
	FormatR16Sint
	FormatRGBA8Unorm
	FormatRGBA8Snorm
	FormatRGBA8Uint
	FormatRGBA8Sint
	FormatRGBA8Srgb

	formatCount
)

var formatNames = [formatCount]string{
	FormatUnknown:    "Unknown",
	FormatR8Unorm:    "R8Unorm",
	FormatR8Snorm:    "R8Snorm",
	FormatR8Uint:     "R8Uint",
	FormatR8Sint:     "R8Sint",
	FormatRG8Unorm:   "RG8Unorm",
	FormatRG8Snorm:   "RG8Snorm",
	FormatRG8Uint:    "RG8Uint",
	FormatRG8Sint:    "RG8Sint",
	FormatR16Unorm:   "R16Unorm",
	FormatR16Snorm:   "R16Snorm",
	FormatR16Uint:    "R16Uint",
	FormatR16Sint:    "R16Sint",
	FormatRGBA8Unorm: "RGBA8Unorm",
	FormatRGBA8Snorm: "RGBA8Snorm",
	FormatRGBA8Uint:  "RGBA8Uint",
	FormatRGBA8Sint:  "RGBA8Sint",
	FormatRGBA8Srgb:  "RGBA8Srgb",
}

// String returns the format name.
func (f PixelFormat) String() string {
	if f < formatCount {
		return formatNames[f]
	}
	return fmt.Sprintf("Unknown(%d)", int(f))
}

// Valid reports whether f is a known, non-sentinel format.
func (f PixelFormat) Valid() bool {
	return f > FormatUnknown && f < formatCount
}

// BytesPerPixel returns the size of one texel in bytes, or 0 for
// FormatUnknown and out-of-range values.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatR8Unorm, FormatR8Snorm, FormatR8Uint, FormatR8Sint:
		return 1
	case FormatRG8Unorm, FormatRG8Snorm, FormatRG8Uint, FormatRG8Sint,
		FormatR16Unorm, FormatR16Snorm, FormatR16Uint, FormatR16Sint:
		return 2
	case FormatRGBA8Unorm, FormatRGBA8Snorm, FormatRGBA8Uint, FormatRGBA8Sint, FormatRGBA8Srgb:
		return 4
	default:
		return 0
	}
}

// GPUFormat returns the WebGPU texture format for f. The second result is
// false for formats WebGPU has no core equivalent for (R16 normalized) and
// for FormatUnknown.
func (f PixelFormat) GPUFormat() (gputypes.TextureFormat, bool) {
	switch f {
	case FormatR8Unorm:
		return gputypes.TextureFormatR8Unorm, true
	case FormatR8Snorm:
		return gputypes.TextureFormatR8Snorm, true
	case FormatR8Uint:
		return gputypes.TextureFormatR8Uint, true
	case FormatR8Sint:
		return gputypes.TextureFormatR8Sint, true
	case FormatRG8Unorm:
		return gputypes.TextureFormatRG8Unorm, true
	case FormatRG8Snorm:
		return gputypes.TextureFormatRG8Snorm, true
	case FormatRG8Uint:
		return gputypes.TextureFormatRG8Uint, true
	case FormatRG8Sint:
		return gputypes.TextureFormatRG8Sint, true
	case FormatR16Uint:
		return gputypes.TextureFormatR16Uint, true
	case FormatR16Sint:
		return gputypes.TextureFormatR16Sint, true
	case FormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case FormatRGBA8Snorm:
		return gputypes.TextureFormatRGBA8Snorm, true
	case FormatRGBA8Uint:
		return gputypes.TextureFormatRGBA8Uint, true
	case FormatRGBA8Sint:
		return gputypes.TextureFormatRGBA8Sint, true
	case FormatRGBA8Srgb:
		return gputypes.TextureFormatRGBA8UnormSrgb, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

// Dimension is the dimensionality of a texture.
type Dimension uint8

// Texture dimensions. The zero value is not a valid dimension.
const (
	Dimension1D Dimension = iota + 1
	Dimension2D
	Dimension3D
)

// String returns the dimension name.
func (d Dimension) String() string {
	switch d {
	case Dimension1D:
		return "1D"
	case Dimension2D:
		return "2D"
	case Dimension3D:
		return "3D"
	default:
		return fmt.Sprintf("Unknown(%d)", int(d))
	}
}

// GPUDimension returns the WebGPU texture dimension for d.
func (d Dimension) GPUDimension() gputypes.TextureDimension {
	switch d {
	case Dimension1D:
		return gputypes.TextureDimension1D
	case Dimension3D:
		return gputypes.TextureDimension3D
	default:
		return gputypes.TextureDimension2D
	}
}

// TextureDescriptor describes a texture to create. It is copied on
// creation and never changes afterwards.
type TextureDescriptor struct {
	// Label is an optional debug name passed to the engine.
	Label string

	// Width, Height and Layers are the texture extents. Layers is the
	// array layer count for 1D/2D textures and the depth for 3D textures.
	Width  uint32
	Height uint32
	Layers uint32

	Dimension Dimension
	Format    PixelFormat
}

// Validate reports whether the descriptor is non-degenerate.
func (d TextureDescriptor) Validate() error {
	switch {
	case d.Width == 0:
		return fmt.Errorf("%w: width is zero", ErrInvalidDescriptor)
	case d.Height == 0:
		return fmt.Errorf("%w: height is zero", ErrInvalidDescriptor)
	case d.Layers == 0:
		return fmt.Errorf("%w: layer count is zero", ErrInvalidDescriptor)
	case !d.Format.Valid():
		return fmt.Errorf("%w: format %s", ErrInvalidDescriptor, d.Format)
	}
	if size, ok := d.byteSize(); !ok || size > MaxTextureBytes {
		return fmt.Errorf("%w: %dx%dx%d %s exceeds %d bytes",
			ErrInvalidDescriptor, d.Width, d.Height, d.Layers, d.Format, uint64(MaxTextureBytes))
	}
	switch d.Dimension {
	case Dimension1D:
		if d.Height != 1 {
			return fmt.Errorf("%w: 1D texture with height %d", ErrInvalidDescriptor, d.Height)
		}
	case Dimension2D, Dimension3D:
	default:
		return fmt.Errorf("%w: dimension %s", ErrInvalidDescriptor, d.Dimension)
	}
	return nil
}

// MaxTextureBytes is the largest texture, in bytes, a descriptor may
// describe. Validate rejects anything larger, which also keeps BytesPerRow
// within uint32.
const MaxTextureBytes = 1 << 32

// ByteSize returns width*height*layers*bytesPerPixel(format). A product
// that does not fit in uint64 saturates to math.MaxUint64, so it never
// matches a real buffer length.
func (d TextureDescriptor) ByteSize() uint64 {
	size, ok := d.byteSize()
	if !ok {
		return math.MaxUint64
	}
	return size
}

func (d TextureDescriptor) byteSize() (uint64, bool) {
	size := uint64(d.Format.BytesPerPixel())
	for _, n := range [...]uint32{d.Width, d.Height, d.Layers} {
		hi, lo := bits.Mul64(size, uint64(n))
		if hi != 0 {
			return 0, false
		}
		size = lo
	}
	return size, true
}

// BytesPerRow returns the byte length of one row of texels. It is exact
// for descriptors that pass Validate.
func (d TextureDescriptor) BytesPerRow() uint32 {
	row := uint64(d.Width) * uint64(d.Format.BytesPerPixel())
	if row > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(row)
}

// checkDataSize validates an upload buffer against the descriptor.
func (d TextureDescriptor) checkDataSize(data []byte) error {
	if want := d.ByteSize(); uint64(len(data)) != want {
		return fmt.Errorf("%w: got %d bytes, want %d for %dx%dx%d %s",
			ErrSizeMismatch, len(data), want, d.Width, d.Height, d.Layers, d.Format)
	}
	return nil
}
