// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "fmt"

// Color is a packed 8-bit-per-channel tint, laid out as 0xRRGGBBAA.
type Color uint32

// Common tints.
const (
	White       Color = 0xFFFFFFFF
	Black       Color = 0x000000FF
	Transparent Color = 0x00000000
)

// RGBA packs four 8-bit channels into a Color.
func RGBA(r, g, b, a uint8) Color {
	return Color(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a))
}

// RGBA returns the four channels of c.
func (c Color) RGBA() (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Float32s returns the channels of c normalised to [0, 1].
func (c Color) Float32s() [4]float32 {
	r, g, b, a := c.RGBA()
	return [4]float32{
		float32(r) / 255,
		float32(g) / 255,
		float32(b) / 255,
		float32(a) / 255,
	}
}

func (c Color) String() string {
	return fmt.Sprintf("#%08x", uint32(c))
}
