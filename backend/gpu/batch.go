// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/kernel"
)

// quadVertexStride is the byte stride per vertex of the quad pipeline.
// Layout per vertex:
//
//	position (vec2<f32>) = 8 bytes  (location 0)
//	uv       (vec2<f32>) = 8 bytes  (location 1)
//	color    (vec4<f32>) = 16 bytes (location 2)
const quadVertexStride = 32

// viewportUniformSize is vec2 size plus vec2 padding.
const viewportUniformSize = 16

// quadIndices is the index pattern of one quad: two triangles over the
// corners top-left, top-right, bottom-right, bottom-left.
var quadIndices = [6]uint32{0, 1, 2, 0, 2, 3}

// scissor is a pixel rectangle clamped to the surface.
type scissor struct {
	x, y, w, h uint32
}

func (s scissor) empty() bool {
	return s.w == 0 || s.h == 0
}

// drawGroup is a run of consecutive quads sharing texture, sampler and
// crop. Each group is issued as one indexed draw under its own scissor.
type drawGroup struct {
	texture  kernel.TextureID
	tile     bool // sampled with the repeating sampler
	crop     *kernel.Rect
	scissor  scissor
	firstIdx uint32
	quads    uint32
}

// frameBatch accumulates the quads of one frame.
type frameBatch struct {
	width, height uint32

	crop     *kernel.Rect
	groups   []drawGroup
	vertices []byte
	indices  []byte
}

func newFrameBatch(width, height uint32) *frameBatch {
	return &frameBatch{width: width, height: height}
}

// setCrop replaces the active crop. The next quad starts a new group.
func (b *frameBatch) setCrop(crop *kernel.Rect) {
	b.crop = crop
}

// addQuad appends one tinted quad.
func (b *frameBatch) addQuad(tex kernel.TextureID, uv, pos kernel.Rect, tint kernel.Color) {
	tile := tiled(uv)
	if n := len(b.groups); n == 0 || b.groups[n-1].texture != tex || b.groups[n-1].tile != tile ||
		!sameCrop(b.groups[n-1].crop, b.crop) {
		b.groups = append(b.groups, drawGroup{
			texture:  tex,
			tile:     tile,
			crop:     b.crop,
			scissor:  b.scissorFor(b.crop),
			firstIdx: uint32(len(b.indices) / 4),
		})
	}
	g := &b.groups[len(b.groups)-1]

	base := uint32(len(b.vertices) / quadVertexStride)
	c := tint.Float32s()
	corners := [4][4]float32{
		{pos.MinX, pos.MinY, uv.MinX, uv.MinY},
		{pos.MaxX, pos.MinY, uv.MaxX, uv.MinY},
		{pos.MaxX, pos.MaxY, uv.MaxX, uv.MaxY},
		{pos.MinX, pos.MaxY, uv.MinX, uv.MaxY},
	}
	for _, v := range corners {
		b.vertices = appendFloats(b.vertices, v[0], v[1], v[2], v[3], c[0], c[1], c[2], c[3])
	}
	for _, i := range quadIndices {
		b.indices = binary.LittleEndian.AppendUint32(b.indices, base+i)
	}
	g.quads++
}

func (b *frameBatch) quadCount() int {
	return len(b.vertices) / (4 * quadVertexStride)
}

// viewportUniform returns the uniform buffer contents for the batch.
func (b *frameBatch) viewportUniform() []byte {
	return appendFloats(make([]byte, 0, viewportUniformSize), float32(b.width), float32(b.height), 0, 0)
}

// scissorFor converts a crop into a pixel scissor. No crop covers the whole
// surface.
func (b *frameBatch) scissorFor(crop *kernel.Rect) scissor {
	if crop == nil {
		return scissor{w: b.width, h: b.height}
	}
	x0 := clampPixel(math.Floor(float64(crop.MinX)), b.width)
	y0 := clampPixel(math.Floor(float64(crop.MinY)), b.height)
	x1 := clampPixel(math.Ceil(float64(crop.MaxX)), b.width)
	y1 := clampPixel(math.Ceil(float64(crop.MaxY)), b.height)
	if x1 <= x0 || y1 <= y0 {
		return scissor{x: x0, y: y0}
	}
	return scissor{x: x0, y: y0, w: x1 - x0, h: y1 - y0}
}

func clampPixel(v float64, limit uint32) uint32 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= float64(limit):
		return limit
	default:
		return uint32(v)
	}
}

// tiled reports whether uv reaches outside the unit square, so the texture
// repeats across the quad.
func tiled(uv kernel.Rect) bool {
	return uv.MinX < 0 || uv.MinY < 0 || uv.MaxX > 1 || uv.MaxY > 1
}

func sameCrop(a, b *kernel.Rect) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func appendFloats(dst []byte, vs ...float32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
