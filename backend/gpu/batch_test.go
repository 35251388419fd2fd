// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/kernel"
)

// TestBatchGrouping verifies that a group ends when the texture or the crop
// changes.
func TestBatchGrouping(t *testing.T) {
	b := newFrameBatch(100, 100)
	full := kernel.R(0, 0, 1, 1)
	white := kernel.RGBA(255, 255, 255, 255)

	b.addQuad(1, full, kernel.R(0, 0, 10, 10), white)
	b.addQuad(1, full, kernel.R(10, 0, 20, 10), white)
	b.addQuad(2, full, kernel.R(20, 0, 30, 10), white)
	crop := kernel.R(5, 5, 50, 50)
	b.setCrop(&crop)
	b.addQuad(2, full, kernel.R(30, 0, 40, 10), white)
	same := crop
	b.setCrop(&same)
	b.addQuad(2, full, kernel.R(40, 0, 50, 10), white)

	if got := b.quadCount(); got != 5 {
		t.Fatalf("quadCount = %d, want 5", got)
	}
	want := []struct {
		tex      kernel.TextureID
		firstIdx uint32
		quads    uint32
	}{
		{1, 0, 2},
		{2, 12, 1},
		{2, 18, 2},
	}
	if len(b.groups) != len(want) {
		t.Fatalf("groups = %d, want %d", len(b.groups), len(want))
	}
	for i, w := range want {
		g := b.groups[i]
		if g.texture != w.tex || g.firstIdx != w.firstIdx || g.quads != w.quads {
			t.Errorf("group %d = {tex %d, first %d, quads %d}, want {%d, %d, %d}",
				i, g.texture, g.firstIdx, g.quads, w.tex, w.firstIdx, w.quads)
		}
	}
	if b.groups[0].scissor != (scissor{w: 100, h: 100}) {
		t.Errorf("uncropped scissor = %+v, want full surface", b.groups[0].scissor)
	}
	if b.groups[2].scissor != (scissor{x: 5, y: 5, w: 45, h: 45}) {
		t.Errorf("cropped scissor = %+v", b.groups[2].scissor)
	}
}

// TestBatchVertexData verifies the vertex layout and index offsets of a quad.
func TestBatchVertexData(t *testing.T) {
	b := newFrameBatch(64, 64)
	b.addQuad(1, kernel.R(0, 0, 1, 1), kernel.R(1, 2, 3, 4), kernel.RGBA(255, 0, 0, 255))
	b.addQuad(1, kernel.R(0, 0, 1, 1), kernel.R(1, 2, 3, 4), kernel.RGBA(255, 0, 0, 255))

	if len(b.vertices) != 8*quadVertexStride {
		t.Fatalf("vertex bytes = %d, want %d", len(b.vertices), 8*quadVertexStride)
	}
	f := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b.vertices[i*4:]))
	}
	// Corner 2 is bottom-right: position, uv, color.
	base := 2 * quadVertexStride / 4
	got := []float32{f(base), f(base + 1), f(base + 2), f(base + 3), f(base + 4), f(base + 7)}
	want := []float32{3, 4, 1, 1, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("corner 2 float %d = %v, want %v", i, got[i], want[i])
		}
	}

	idx := func(i int) uint32 { return binary.LittleEndian.Uint32(b.indices[i*4:]) }
	for i, w := range []uint32{4, 5, 6, 4, 6, 7} {
		if got := idx(6 + i); got != w {
			t.Errorf("second quad index %d = %d, want %d", i, got, w)
		}
	}
}

// TestScissorFor verifies crop-to-scissor conversion and clamping.
func TestScissorFor(t *testing.T) {
	b := newFrameBatch(100, 50)
	tests := []struct {
		name string
		crop kernel.Rect
		want scissor
	}{
		{"inside", kernel.R(10, 10, 20, 20), scissor{10, 10, 10, 10}},
		{"fractional", kernel.R(1.5, 2.5, 3.2, 4.1), scissor{1, 2, 3, 3}},
		{"clamped", kernel.R(-10, -10, 200, 200), scissor{0, 0, 100, 50}},
		{"outside", kernel.R(150, 60, 160, 70), scissor{x: 100, y: 50}},
		{"inverted", kernel.R(20, 20, 10, 10), scissor{x: 20, y: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crop := tt.crop
			if got := b.scissorFor(&crop); got != tt.want {
				t.Errorf("scissorFor(%v) = %+v, want %+v", tt.crop, got, tt.want)
			}
		})
	}
}

// TestBatchTileGroups verifies that quads repeating their texture are
// grouped apart from clamped quads of the same texture.
func TestBatchTileGroups(t *testing.T) {
	b := newFrameBatch(64, 64)
	white := kernel.RGBA(255, 255, 255, 255)

	b.addQuad(1, kernel.R(0, 0, 1, 1), kernel.R(0, 0, 8, 8), white)
	b.addQuad(1, kernel.R(0, 0, 4, 4), kernel.R(8, 0, 16, 8), white)
	b.addQuad(1, kernel.R(-1, 0, 1, 1), kernel.R(16, 0, 24, 8), white)
	b.addQuad(1, kernel.R(0.25, 0.25, 0.75, 0.75), kernel.R(24, 0, 32, 8), white)

	want := []bool{false, true, false}
	if len(b.groups) != len(want) {
		t.Fatalf("groups = %d, want %d", len(b.groups), len(want))
	}
	for i, tile := range want {
		if b.groups[i].tile != tile {
			t.Errorf("group %d tile = %v, want %v", i, b.groups[i].tile, tile)
		}
	}
}
