package sdf

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a shape's local-to-world placement: translation, rotation,
// and non-uniform scale composed as T*R*S. Dirty is set to true by
// NewTransform and nothing else sets, reads, or clears it; shape
// invalidation is tracked by the Shape's own dirty flag instead.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Dirty    bool
}

func NewTransform() *Transform {
	return &Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Dirty:    true,
	}
}

// ObjectToWorld returns the local-to-world matrix T*R*S.
func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// WorldToObject returns the world-to-local matrix, computed from the inverse
// of each component rather than a general 4x4 inverse (cheap and exact for
// non-degenerate scale).
func (t *Transform) WorldToObject() mgl32.Mat4 {
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())
	invRotate := t.Rotation.Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())
	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// Invertible reports whether WorldToObject is well defined: scale must have
// no zero component (a Box/Cylinder/Heightmap with a degenerate axis cannot
// be evaluated).
func (t *Transform) Invertible() bool {
	const eps = 1e-8
	return abs32(t.Scale.X()) > eps && abs32(t.Scale.Y()) > eps && abs32(t.Scale.Z()) > eps
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
