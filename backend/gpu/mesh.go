// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/kernel"
)

// Per-vertex byte strides of the chunk mesh streams.
const (
	positionStride  = 12 // vec3<f32>
	normalStride    = 12 // vec3<f32>
	uvStride        = 8  // vec2<f32>
	colorStride     = 4  // rgba8
	attributeStride = 6  // 3 x u16
	indexStride     = 4  // u32
)

// ErrMeshStreams is returned for chunk mesh streams that disagree on the
// vertex count or are not a whole number of elements.
var ErrMeshStreams = errors.New("gpu: inconsistent mesh streams")

// meshLayout is the result of validating a set of mesh streams.
type meshLayout struct {
	vertices uint32
	indices  uint32

	// offsets are the byte offsets of the position, normal, uv, colour and
	// attribute streams in the packed vertex buffer.
	offsets [5]uint64
}

// validateStreams checks that every non-empty vertex stream describes the
// same number of vertices and that the index stream holds whole uint32
// indices. Empty streams are allowed and mean the attribute is absent.
func validateStreams(s kernel.MeshStreams) (meshLayout, error) {
	streams := []struct {
		name   string
		data   []byte
		stride int
	}{
		{"position", s.Position, positionStride},
		{"normal", s.Normal, normalStride},
		{"uv", s.UV, uvStride},
		{"color", s.Color, colorStride},
		{"attributes", s.Attributes, attributeStride},
	}

	var layout meshLayout
	vertices := -1
	for _, st := range streams {
		if len(st.data) == 0 {
			continue
		}
		if len(st.data)%st.stride != 0 {
			return layout, fmt.Errorf("%w: %s stream of %d bytes is not a multiple of %d",
				ErrMeshStreams, st.name, len(st.data), st.stride)
		}
		n := len(st.data) / st.stride
		if vertices >= 0 && n != vertices {
			return layout, fmt.Errorf("%w: %s stream has %d vertices, want %d",
				ErrMeshStreams, st.name, n, vertices)
		}
		vertices = n
	}
	if len(s.Index)%indexStride != 0 {
		return layout, fmt.Errorf("%w: index stream of %d bytes is not a multiple of %d",
			ErrMeshStreams, len(s.Index), indexStride)
	}
	if len(s.Index) > 0 && vertices < 0 {
		return layout, fmt.Errorf("%w: indices without vertices", ErrMeshStreams)
	}

	layout.vertices = uint32(max(vertices, 0))
	layout.indices = uint32(len(s.Index) / indexStride)
	var off uint64
	for i, st := range streams {
		layout.offsets[i] = off
		off += uint64(len(st.data))
	}
	return layout, nil
}

// packVertices concatenates the vertex streams in a fixed order so one
// buffer holds the whole mesh. The result is padded to 4 bytes as buffer
// writes require. Stream offsets follow from the vertex count and the
// strides, and are recorded in meshLayout.
func packVertices(s kernel.MeshStreams) []byte {
	out := make([]byte, 0, s.Len()-len(s.Index)+3)
	for _, data := range [][]byte{s.Position, s.Normal, s.UV, s.Color, s.Attributes} {
		out = append(out, data...)
	}
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}
