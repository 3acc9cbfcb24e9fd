package sdf

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned world-space bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// EmptyAABB returns an AABB with inverted bounds, a valid "nothing here" zero
// value that Union/Intersects treat correctly.
func EmptyAABB() AABB {
	const inf = float32(1e30)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) Empty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

func (b AABB) Union(o AABB) AABB {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	return AABB{
		Min: mgl32.Vec3{min32(b.Min.X(), o.Min.X()), min32(b.Min.Y(), o.Min.Y()), min32(b.Min.Z(), o.Min.Z())},
		Max: mgl32.Vec3{max32(b.Max.X(), o.Max.X()), max32(b.Max.Y(), o.Max.Y()), max32(b.Max.Z(), o.Max.Z())},
	}
}

func (b AABB) Intersects(o AABB) bool {
	if b.Empty() || o.Empty() {
		return false
	}
	return b.Min.X() <= o.Max.X() && b.Max.X() >= o.Min.X() &&
		b.Min.Y() <= o.Max.Y() && b.Max.Y() >= o.Min.Y() &&
		b.Min.Z() <= o.Max.Z() && b.Max.Z() >= o.Min.Z()
}

// Contains reports whether p lies within the box (inclusive).
func (b AABB) Contains(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Expand returns the box grown by n units on every face, used for the
// kSdfBoundary halo test in SdfCache.Build.
func (b AABB) Expand(n float32) AABB {
	d := mgl32.Vec3{n, n, n}
	return AABB{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Op selects how a shape combines with the accumulated distance field.
type Op int

const (
	Union Op = iota
	Subtraction
	SmoothUnion
	SmoothSubtraction
	Material
)

// Kind tags the concrete shape variant (tagged-union dispatch, no downcasts).
type Kind int

const (
	KindBox Kind = iota
	KindCylinder
	KindHeightmap
)

// MaterialID identifies one of up to 256 surface materials.
type MaterialID = uint8
