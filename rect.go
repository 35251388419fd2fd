// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "fmt"

// Rect is an axis-aligned rectangle used for crop regions and for the UV
// and position quads of texture draws. Min <= Max is expected but not
// enforced.
type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// R is shorthand for Rect{minX, minY, maxX, maxY}.
func R(minX, minY, maxX, maxY float32) Rect {
	return Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// Size returns the width and height of r.
func (r Rect) Size() (w, h float32) {
	return r.MaxX - r.MinX, r.MaxY - r.MinY
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.MinX >= r.MaxX || r.MinY >= r.MaxY
}

// Intersects reports whether r and o overlap with a non-zero area.
// Rectangles that only share an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && r.MaxX > o.MinX &&
		r.MaxY > o.MinY && r.MinY < o.MaxY
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: min(r.MinX, o.MinX),
		MinY: min(r.MinY, o.MinY),
		MaxX: max(r.MaxX, o.MaxX),
		MaxY: max(r.MaxY, o.MaxY),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g)", r.MinX, r.MinY, r.MaxX, r.MaxY)
}
