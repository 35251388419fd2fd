// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "fmt"

// MeshRenderType tells the engine how to bucket a chunk mesh for draw
// ordering and blending. kernel does not interpret it.
type MeshRenderType uint8

const (
	// MeshOpaque is solid geometry, drawn first without blending.
	MeshOpaque MeshRenderType = iota

	// MeshTranslucent is alpha-blended geometry, drawn after opaque.
	MeshTranslucent

	// MeshBillboard is camera-facing geometry such as foliage sprites.
	MeshBillboard

	// MeshWaterAndIce is fluid and ice surfaces, drawn in their own pass.
	MeshWaterAndIce
)

// String returns the render type name.
func (t MeshRenderType) String() string {
	switch t {
	case MeshOpaque:
		return "Opaque"
	case MeshTranslucent:
		return "Translucent"
	case MeshBillboard:
		return "Billboard"
	case MeshWaterAndIce:
		return "WaterAndIce"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// MeshStreams holds the six buffer streams of a chunk mesh upload.
//
// kernel passes the streams to the engine unexamined. Consistency between
// streams (the vertex count implied by Position matching Normal, UV, Color
// and Attributes) is part of the engine's contract and is checked, if at
// all, on the native side.
type MeshStreams struct {
	Index      []byte
	Position   []byte
	Normal     []byte
	UV         []byte
	Color      []byte
	Attributes []byte
}

// Len returns the total byte length of all streams.
func (s MeshStreams) Len() int {
	return len(s.Index) + len(s.Position) + len(s.Normal) +
		len(s.UV) + len(s.Color) + len(s.Attributes)
}
