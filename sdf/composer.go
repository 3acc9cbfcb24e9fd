package sdf

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/errs"
	"github.com/gekko3d/voxelterrain/heightmap"
)

// Composer holds an ordered, owned sequence of Shapes. Insertion order is
// evaluation order. Mutations land in pendingCreated/pendingDestroy and are
// merged into the live list only at Flush, which the host calls (directly or
// via Engine.Flush) at a point where no job holds a reference to the
// previous snapshot.
type Composer struct {
	mu sync.Mutex

	shapes []*Shape
	byID   map[ShapeID]*Shape

	pendingCreated []*Shape
	pendingDestroy map[ShapeID]bool

	invalidations []AABB
}

func NewComposer() *Composer {
	return &Composer{
		byID:           make(map[ShapeID]*Shape),
		pendingDestroy: make(map[ShapeID]bool),
	}
}

func (c *Composer) CreateBox(op Op, material MaterialID, cornerRadius float32) (*Shape, error) {
	if cornerRadius < 0 || cornerRadius > 1 {
		return nil, errs.Newf(errs.InvalidInput, "Composer.CreateBox", "cornerRadius must be in [0, minHalfExtent=1], got %v", cornerRadius)
	}
	s := NewBox(op, material, cornerRadius)
	c.stage(s)
	return s, nil
}

func (c *Composer) CreateCylinder(op Op, material MaterialID, bottom, top float32) (*Shape, error) {
	s := NewCylinder(op, material, bottom, top)
	c.stage(s)
	return s, nil
}

func (c *Composer) CreateHeightmap(op Op, material MaterialID, sampler heightmap.Sampler) (*Shape, error) {
	if sampler == nil {
		return nil, errs.New(errs.InvalidInput, "Composer.CreateHeightmap", errShapeNilSampler)
	}
	s := NewHeightmap(op, material, sampler)
	c.stage(s)
	return s, nil
}

func (c *Composer) stage(s *Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingCreated = append(c.pendingCreated, s)
	c.byID[s.ID] = s
}

// DestroyShape defers actual removal to the next Flush; until then the shape
// stays in the live list, is still evaluated by new snapshots, and stays
// addressable.
func (c *Composer) DestroyShape(s *Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingDestroy[s.ID] = true
}

// SetTransform is the only setter-path invalidation: replacing a transform
// marks the shape dirty. A second call with the same value produces exactly
// one invalidation, not two, because dirty is idempotent until the next
// Flush clears it.
func (c *Composer) SetTransform(s *Shape, t *Transform) error {
	if !t.Invertible() {
		return errs.New(errs.InvalidInput, "Composer.SetTransform", errNonInvertible)
	}
	s.SetTransform(t)
	return nil
}

// MarkDirty marks s dirty without changing its transform; required for
// mutators that bypass SetTransform (e.g. a caller holding the Transform
// pointer and editing it directly).
func (c *Composer) MarkDirty(s *Shape) {
	s.MarkDirty()
}

// Flush merges pending creates/destroys into the live list and recomputes
// invalidation AABBs for every dirty, created, or destroyed shape. Must only
// be called when no job references the previous snapshot.
func (c *Composer) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.shapes {
		if s.Dirty() {
			prevAABB := s.AABB()
			s.RecomputeAABB()
			c.invalidations = append(c.invalidations, prevAABB.Union(s.AABB()))
		}
	}

	if len(c.pendingDestroy) > 0 {
		kept := c.shapes[:0]
		for _, s := range c.shapes {
			if c.pendingDestroy[s.ID] {
				c.invalidations = append(c.invalidations, s.AABBPrev().Union(s.AABB()))
				delete(c.byID, s.ID)
				continue
			}
			kept = append(kept, s)
		}
		c.shapes = kept
	}

	for _, s := range c.pendingCreated {
		if c.pendingDestroy[s.ID] {
			// created and destroyed in the same window before ever merging
			delete(c.byID, s.ID)
			continue
		}
		s.RecomputeAABB()
		c.invalidations = append(c.invalidations, s.AABB())
		c.shapes = append(c.shapes, s)
	}
	c.pendingCreated = nil
	c.pendingDestroy = make(map[ShapeID]bool)
}

// DrainInvalidations returns and clears the invalidation AABBs accumulated
// since the last drain. Idempotent: calling it twice with no intervening
// Flush returns empty the second time.
func (c *Composer) DrainInvalidations() []AABB {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.invalidations
	c.invalidations = nil
	return out
}

// Snapshot freezes a copy-on-dispatch view of the live shape list for a job.
// Shapes are small, so this copies each by value (including its own
// Transform copy) rather than sharing pointers with the mutable composer.
func (c *Composer) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	shapes := make([]Shape, len(c.shapes))
	for i, s := range c.shapes {
		shapes[i] = *s
		tCopy := *s.Transform
		shapes[i].Transform = &tCopy
	}
	return &Snapshot{shapes: shapes}
}

var (
	errNonInvertible   = shapeError("transform is not invertible")
	errShapeNilSampler = shapeError("heightmap sampler must not be nil")
)

type shapeError string

func (e shapeError) Error() string { return string(e) }

// Snapshot is an immutable, point-in-time copy of the Composer's shape list.
// value/derivative/material are const, reentrant, and safe from any number
// of threads: nothing here is shared mutable state.
type Snapshot struct {
	shapes []Shape
}

// Value returns the composed signed distance at world point p.
func (sn *Snapshot) Value(p mgl32.Vec3) float32 {
	d := float32(math.Inf(1))
	for i := range sn.shapes {
		s := &sn.shapes[i]
		if s.Op == Material {
			continue
		}
		if s.Op == Union && !s.AABB().Contains(p) {
			continue
		}
		d = Combine(s.Op, d, s.Value(p), s.Smoothing)
	}
	return d
}

// Derivative is the central-differenced gradient of the composed field at a
// one-voxel-equivalent step h along each axis.
func (sn *Snapshot) Derivative(p mgl32.Vec3, h float32) mgl32.Vec3 {
	dx := sn.Value(p.Add(mgl32.Vec3{h, 0, 0})) - sn.Value(p.Sub(mgl32.Vec3{h, 0, 0}))
	dy := sn.Value(p.Add(mgl32.Vec3{0, h, 0})) - sn.Value(p.Sub(mgl32.Vec3{0, h, 0}))
	dz := sn.Value(p.Add(mgl32.Vec3{0, 0, h})) - sn.Value(p.Sub(mgl32.Vec3{0, 0, h}))
	g := mgl32.Vec3{dx, dy, dz}
	l := float32(math.Sqrt(float64(g.X()*g.X() + g.Y()*g.Y() + g.Z()*g.Z())))
	if l < 1e-12 {
		return mgl32.Vec3{0, 0, 1}
	}
	return g.Mul(1 / l)
}

// Material returns the materialId of the shape whose contribution dominates
// at p: the smallest |value(p)| among Union/Material shapes whose AABB
// contains p. Ties go to the lowest index (insertion order), which is the
// original's "lowest-id wins" rule applied via evaluation order.
func (sn *Snapshot) Material(p mgl32.Vec3) MaterialID {
	best := float32(math.Inf(1))
	var bestMat MaterialID
	found := false
	for i := range sn.shapes {
		s := &sn.shapes[i]
		if s.Op != Union && s.Op != Material {
			continue
		}
		if !s.AABB().Contains(p) {
			continue
		}
		v := abs32(s.Value(p))
		if !found || v < best {
			best = v
			bestMat = s.MaterialID
			found = true
		}
	}
	return bestMat
}

// Shapes exposes the snapshot's shapes read-only, for callers (SdfCache.Build)
// that need per-shape AABB early-reject without re-deriving it from Value.
func (sn *Snapshot) Shapes() []Shape {
	return sn.shapes
}
