package sdf

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/voxelterrain/heightmap"
)

// ShapeID identifies a Shape, minted the way the teacher mints AssetIds
// (uuid.NewString()).
type ShapeID string

func newShapeID() ShapeID { return ShapeID(uuid.NewString()) }

// Shape is a tagged-union analytic SDF primitive. The common header (T,
// derived AABB, op, material, smoothing, dirty) is shared by every variant;
// evaluation dispatches on Kind rather than through virtual calls.
type Shape struct {
	ID        ShapeID
	Kind      Kind
	Transform *Transform
	Op        Op
	MaterialID MaterialID
	Smoothing float32

	dirty    bool
	aabb     AABB
	aabbPrev AABB

	// Box
	CornerRadius float32

	// Cylinder: end-cap radius multipliers in [0,1], lerp'd along local Z.
	Top, Bottom float32

	// Heightmap
	Sampler heightmap.Sampler
}

// NewBox creates a Box shape. Its local space is the unit cube
// [-1,1]^3; scale it via shape.Transform.Scale.
func NewBox(op Op, material MaterialID, cornerRadius float32) *Shape {
	return &Shape{
		ID:           newShapeID(),
		Kind:         KindBox,
		Transform:    NewTransform(),
		Op:           op,
		MaterialID:   material,
		CornerRadius: cornerRadius,
		dirty:        true,
		aabbPrev:     EmptyAABB(),
	}
}

// NewCylinder creates a Cylinder shape, capped at local z=+-1, with radius
// interpolated between bottom and top multipliers.
func NewCylinder(op Op, material MaterialID, bottom, top float32) *Shape {
	return &Shape{
		ID:         newShapeID(),
		Kind:       KindCylinder,
		Transform:  NewTransform(),
		Op:         op,
		MaterialID: material,
		Bottom:     bottom,
		Top:        top,
		dirty:      true,
		aabbPrev:   EmptyAABB(),
	}
}

// NewHeightmap creates a Heightmap shape sampling s; local space is the unit
// reference box [-1,1]^3, height(u,v) measured in local Z.
func NewHeightmap(op Op, material MaterialID, s heightmap.Sampler) *Shape {
	return &Shape{
		ID:         newShapeID(),
		Kind:       KindHeightmap,
		Transform:  NewTransform(),
		Op:         op,
		MaterialID: material,
		Sampler:    s,
		dirty:      true,
		aabbPrev:   EmptyAABB(),
	}
}

// MarkDirty flags the shape as changed since the last Composer pass. The
// only other way to invalidate a shape is SetTransform; both are required
// explicitly because a transform may be set and restored without net effect.
func (s *Shape) MarkDirty() { s.dirty = true }

func (s *Shape) Dirty() bool { return s.dirty }

// SetTransform replaces the shape's local-to-world transform and marks it
// dirty. Returns an InvalidInput-class error (via the caller, see
// Composer.SetTransform) if the new transform is not invertible.
func (s *Shape) SetTransform(t *Transform) {
	s.Transform = t
	s.dirty = true
}

// AABB returns the current world AABB (valid after RecomputeAABB has run).
func (s *Shape) AABB() AABB { return s.aabb }

// AABBPrev returns the AABB the shape occupied at its last clean state.
func (s *Shape) AABBPrev() AABB { return s.aabbPrev }

// RecomputeAABB conservatively transforms the shape's local reference box
// into world space (8-corner transform, same technique as the teacher's
// VoxelObject.UpdateWorldAABB) and clears dirty, after snapshotting aabbPrev.
func (s *Shape) RecomputeAABB() {
	if !s.dirty {
		return
	}
	local := s.localAABB()
	o2w := s.Transform.ObjectToWorld()

	corners := [8]mgl32.Vec3{
		{local.Min.X(), local.Min.Y(), local.Min.Z()},
		{local.Max.X(), local.Min.Y(), local.Min.Z()},
		{local.Min.X(), local.Max.Y(), local.Min.Z()},
		{local.Max.X(), local.Max.Y(), local.Min.Z()},
		{local.Min.X(), local.Min.Y(), local.Max.Z()},
		{local.Max.X(), local.Min.Y(), local.Max.Z()},
		{local.Min.X(), local.Max.Y(), local.Max.Z()},
		{local.Max.X(), local.Max.Y(), local.Max.Z()},
	}

	world := EmptyAABB()
	for _, c := range corners {
		wc := o2w.Mul4x1(c.Vec4(1.0)).Vec3()
		world.Min = mgl32.Vec3{min32(world.Min.X(), wc.X()), min32(world.Min.Y(), wc.Y()), min32(world.Min.Z(), wc.Z())}
		world.Max = mgl32.Vec3{max32(world.Max.X(), wc.X()), max32(world.Max.Y(), wc.Y()), max32(world.Max.Z(), wc.Z())}
	}

	s.aabbPrev = s.aabb
	s.aabb = world
	s.dirty = false
}

func (s *Shape) localAABB() AABB {
	switch s.Kind {
	case KindBox, KindCylinder, KindHeightmap:
		return AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	default:
		return EmptyAABB()
	}
}

// Value returns the signed distance from world point p to the shape's
// surface, negative inside. The distance is measured in the shape's local
// unit-cube space and is not rescaled by the transform's scale, so its sign
// is exact but its magnitude equals the world distance only for unit scale.
// Reentrant and safe from any number of threads provided no concurrent
// mutation of this shape.
func (s *Shape) Value(p mgl32.Vec3) float32 {
	local := s.Transform.WorldToObject().Mul4x1(p.Vec4(1.0)).Vec3()
	switch s.Kind {
	case KindBox:
		return sdBoxLocal(local, s.CornerRadius)
	case KindCylinder:
		return sdCylinderLocal(local, s.Bottom, s.Top)
	case KindHeightmap:
		return sdHeightmapLocal(local, s.Sampler)
	default:
		return float32(math.Inf(1))
	}
}

// sdBoxLocal is a rounded box with half-extents (1,1,1) minus cornerRadius.
func sdBoxLocal(p mgl32.Vec3, r float32) float32 {
	he := float32(1) - r
	qx := abs32(p.X()) - he
	qy := abs32(p.Y()) - he
	qz := abs32(p.Z()) - he
	ox := max32(qx, 0)
	oy := max32(qy, 0)
	oz := max32(qz, 0)
	outside := float32(math.Sqrt(float64(ox*ox + oy*oy + oz*oz)))
	inside := min32(max32(qx, max32(qy, qz)), 0)
	return outside + inside - r
}

// sdCylinderLocal caps at z=+-1; radius lerps between bottom and top.
func sdCylinderLocal(p mgl32.Vec3, bottom, top float32) float32 {
	t := clamp01((p.Z() + 1) / 2)
	radius := bottom + (top-bottom)*t
	lateral := float32(math.Sqrt(float64(p.X()*p.X()+p.Y()*p.Y()))) - radius
	capDist := abs32(p.Z()) - 1
	if lateral > 0 && capDist > 0 {
		return float32(math.Sqrt(float64(lateral*lateral + capDist*capDist)))
	}
	return max32(lateral, capDist)
}

// sdHeightmapLocal samples height(u,v) and measures local Z against it.
func sdHeightmapLocal(p mgl32.Vec3, s heightmap.Sampler) float32 {
	if s == nil {
		return float32(math.Inf(1))
	}
	u := (p.X() + 1) / 2
	v := (p.Y() + 1) / 2
	h := s.Height(u, v)
	// height in [0,1] maps to local z in [-1,1]
	surfaceZ := h*2 - 1
	return p.Z() - surfaceZ
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
