// Package cache implements SdfCache, the per-chunk dense sampled distance
// field a Mesher job consumes. Built once per job from a Composer snapshot,
// read-only thereafter — a pure value even if the source composer mutates
// concurrently.
package cache

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/sdf"
)

// SdfCache is a cubic dense sample grid of side S+5: the chunk side plus a
// halo of 2 voxels on the negative side and 3 on the positive, chosen so
// central-difference gradients and edge-crossing bisection never read out of
// bounds.
type SdfCache struct {
	side   int // chunk side S
	dim    int // S+5
	offset int // 2, the negative-side halo width

	values   []float32 // full float32 samples; no 16-bit quantization is applied
	material []uint8
}

const (
	negativeHalo = 2
	positiveHalo = 3
)

// New allocates (but does not fill) a cache sized for chunk side S. Reuse
// across jobs by calling Build again — this is the buffer a Job
// pre-allocates and owns for its lifetime.
func New(side int) *SdfCache {
	dim := side + negativeHalo + positiveHalo
	n := dim * dim * dim
	return &SdfCache{
		side:     side,
		dim:      dim,
		offset:   negativeHalo,
		values:   make([]float32, n),
		material: make([]uint8, n),
	}
}

// Side returns the configured chunk side S.
func (c *SdfCache) Side() int { return c.side }

// Dim returns S+5, the cache's own cubic side.
func (c *SdfCache) Dim() int { return c.dim }

func (c *SdfCache) index(x, y, z int) int {
	return (z*c.dim+y)*c.dim + x
}

// Build samples snap's composed distance field and material over this
// cache's grid for the given chunk coord, applying the kSdfBoundary
// early-reject: Union shapes whose AABB does not intersect the chunk AABB
// expanded by boundary voxels are skipped entirely for that grid;
// Subtraction/Smooth* shapes (and Material shapes) always contribute.
func (c *SdfCache) Build(coord chunk.Coord, snap *sdf.Snapshot, boundary int) {
	chunkAABB := coord.AABB(c.side)
	expanded := chunkAABB.Expand(float32(boundary))

	relevant := c.relevantShapes(snap, expanded)

	origin := chunkAABB.Min.Sub(mgl32.Vec3{float32(c.offset), float32(c.offset), float32(c.offset)})

	for z := 0; z < c.dim; z++ {
		for y := 0; y < c.dim; y++ {
			for x := 0; x < c.dim; x++ {
				p := origin.Add(mgl32.Vec3{float32(x), float32(y), float32(z)})
				d, mat := evalRelevant(relevant, p)
				idx := c.index(x, y, z)
				c.values[idx] = nudgeZero(d)
				c.material[idx] = mat
			}
		}
	}
}

// relevantShapes filters snap's shapes to those whose AABB intersects the
// expanded chunk AABB (Union) or that must always contribute
// (Subtraction/Smooth*/Material), per spec.md §4.2.
func (c *SdfCache) relevantShapes(snap *sdf.Snapshot, expanded sdf.AABB) []sdf.Shape {
	all := snap.Shapes()
	out := make([]sdf.Shape, 0, len(all))
	for _, s := range all {
		switch s.Op {
		case sdf.Union:
			if s.AABB().Intersects(expanded) {
				out = append(out, s)
			}
		default:
			out = append(out, s)
		}
	}
	return out
}

func evalRelevant(shapes []sdf.Shape, p mgl32.Vec3) (float32, uint8) {
	d := float32(3.0e38)
	bestMatDist := float32(3.0e38)
	var mat uint8
	found := false
	for i := range shapes {
		s := &shapes[i]
		if s.Op == sdf.Material {
			if s.AABB().Contains(p) {
				v := abs32(s.Value(p))
				if !found || v < bestMatDist {
					bestMatDist = v
					mat = s.MaterialID
					found = true
				}
			}
			continue
		}
		if s.Op == sdf.Union && !s.AABB().Contains(p) {
			continue
		}
		sv := s.Value(p)
		d = sdf.Combine(s.Op, d, sv, s.Smoothing)
		if s.Op == sdf.Union {
			v := abs32(sv)
			if !found || v < bestMatDist {
				bestMatDist = v
				mat = s.MaterialID
				found = true
			}
		}
	}
	return d, mat
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// nudgeZero implements the degenerate-edge policy: a sample distance of
// exactly zero is nudged by +epsilon so edge-crossing counts stay
// consistent (an edge between two exact zeros would otherwise be ambiguous).
func nudgeZero(d float32) float32 {
	if d == 0 {
		return 1e-6
	}
	return d
}

// toCacheLocal converts a chunk-local position (voxel coordinates in
// [0,S]) into cache-local coordinates (adding the halo offset).
func (c *SdfCache) toCacheLocal(chunkLocal mgl32.Vec3) mgl32.Vec3 {
	o := float32(c.offset)
	return chunkLocal.Add(mgl32.Vec3{o, o, o})
}

// ValueChunkLocal, DerivativeChunkLocal, MaterialChunkLocal are the
// chunk-local-coordinate counterparts of Value/Derivative/Material — the
// ones a Mesher actually calls, since it reasons in the chunk's own [0,S)
// voxel space.
func (c *SdfCache) ValueChunkLocal(p mgl32.Vec3) float32 {
	return c.Value(c.toCacheLocal(p))
}

func (c *SdfCache) DerivativeChunkLocal(p mgl32.Vec3) mgl32.Vec3 {
	return c.Derivative(c.toCacheLocal(p))
}

func (c *SdfCache) MaterialChunkLocal(p mgl32.Vec3) uint8 {
	return c.Material(c.toCacheLocal(p))
}

// ValueAt returns the sampled distance at integer cache-local coordinates
// (already including the halo offset — see IntGrid for chunk-local coords).
func (c *SdfCache) ValueAt(x, y, z int) float32 {
	return c.values[c.index(x, y, z)]
}

// MaterialAt returns the material chosen at the integer cache-local
// coordinates.
func (c *SdfCache) MaterialAt(x, y, z int) uint8 {
	return c.material[c.index(x, y, z)]
}

// IntGrid converts chunk-local integer voxel coordinates (0..S) into
// cache-local coordinates (adding the halo offset), the indexing a Mesher
// uses directly.
func (c *SdfCache) IntGrid(x, y, z int) (int, int, int) {
	return x + c.offset, y + c.offset, z + c.offset
}

// Value returns the trilinearly interpolated distance at a float cache-local
// position (chunk-local voxel coordinates plus the halo offset — callers
// typically compute this via IntGrid-relative offsets).
func (c *SdfCache) Value(pos mgl32.Vec3) float32 {
	x0, y0, z0, tx, ty, tz := c.cellFrac(pos)
	return trilerp(
		c.ValueAt(x0, y0, z0), c.ValueAt(x0+1, y0, z0),
		c.ValueAt(x0, y0+1, z0), c.ValueAt(x0+1, y0+1, z0),
		c.ValueAt(x0, y0, z0+1), c.ValueAt(x0+1, y0, z0+1),
		c.ValueAt(x0, y0+1, z0+1), c.ValueAt(x0+1, y0+1, z0+1),
		tx, ty, tz,
	)
}

// Material returns the material of the sample nearest to pos.
func (c *SdfCache) Material(pos mgl32.Vec3) uint8 {
	x0, y0, z0, tx, ty, tz := c.cellFrac(pos)
	x, y, z := x0, y0, z0
	if tx >= 0.5 {
		x++
	}
	if ty >= 0.5 {
		y++
	}
	if tz >= 0.5 {
		z++
	}
	return c.MaterialAt(x, y, z)
}

// Derivative is the central difference of the interpolated field with a
// one-voxel step.
func (c *SdfCache) Derivative(pos mgl32.Vec3) mgl32.Vec3 {
	const h = 1.0
	dx := c.Value(pos.Add(mgl32.Vec3{h, 0, 0})) - c.Value(pos.Sub(mgl32.Vec3{h, 0, 0}))
	dy := c.Value(pos.Add(mgl32.Vec3{0, h, 0})) - c.Value(pos.Sub(mgl32.Vec3{0, h, 0}))
	dz := c.Value(pos.Add(mgl32.Vec3{0, 0, h})) - c.Value(pos.Sub(mgl32.Vec3{0, 0, h}))
	g := mgl32.Vec3{dx, dy, dz}
	l := g.Len()
	if l < 1e-12 {
		return mgl32.Vec3{0, 0, 1}
	}
	return g.Mul(1 / l)
}

func (c *SdfCache) cellFrac(pos mgl32.Vec3) (int, int, int, float32, float32, float32) {
	fx, fy, fz := pos.X(), pos.Y(), pos.Z()
	x0 := clampCell(int(floor32(fx)), c.dim)
	y0 := clampCell(int(floor32(fy)), c.dim)
	z0 := clampCell(int(floor32(fz)), c.dim)
	return x0, y0, z0, fx - floor32(fx), fy - floor32(fy), fz - floor32(fz)
}

func clampCell(v, dim int) int {
	if v < 0 {
		return 0
	}
	if v > dim-2 {
		return dim - 2
	}
	return v
}

func floor32(v float32) float32 {
	i := float32(int(v))
	if v < 0 && i != v {
		i--
	}
	return i
}

func trilerp(v000, v100, v010, v110, v001, v101, v011, v111, tx, ty, tz float32) float32 {
	v00 := lerp(v000, v100, tx)
	v10 := lerp(v010, v110, tx)
	v01 := lerp(v001, v101, tx)
	v11 := lerp(v011, v111, tx)
	v0 := lerp(v00, v10, ty)
	v1 := lerp(v01, v11, ty)
	return lerp(v0, v1, tz)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
