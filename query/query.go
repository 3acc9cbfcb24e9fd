// Package query implements the read-only voxel/raycast/sweep operations
// spec.md §4.6 describes, served entirely from the resident (Live) chunk
// set. Every method here is safe to call concurrently with a Residency.Update
// tick: it only ever reads a chunk's atomically-published state.
package query

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/residency"
)

// live abstracts the subset of Residency a Query needs, so tests can supply
// a fake without spinning up a full job pool.
type live interface {
	Live(coord chunk.Coord) (*chunk.Chunk, bool)
}

// Query serves read-only lookups against a Residency's live chunk set.
type Query struct {
	live live
	side int
}

func New(r *residency.Residency, side int) *Query {
	return &Query{live: r, side: side}
}

// Voxel returns the classification of the voxel containing worldPos, and
// whether the containing chunk is not currently Live (touchedUnloaded).
func (q *Query) Voxel(worldPos mgl32.Vec3) (chunk.BlockType, bool) {
	coord := chunk.FromWorld(worldPos, q.side)
	c, ok := q.live.Live(coord)
	if !ok {
		return chunk.Unloaded, true
	}
	lx, ly, lz := q.localVoxel(coord, worldPos)
	return c.ClassificationAt(lx, ly, lz), false
}

func (q *Query) localVoxel(coord chunk.Coord, worldPos mgl32.Vec3) (int, int, int) {
	min := coord.AABB(q.side).Min
	lx := clampVoxel(int(math.Floor(float64(worldPos.X()-min.X()))), q.side)
	ly := clampVoxel(int(math.Floor(float64(worldPos.Y()-min.Y()))), q.side)
	lz := clampVoxel(int(math.Floor(float64(worldPos.Z()-min.Z()))), q.side)
	return lx, ly, lz
}

func clampVoxel(v, side int) int {
	if v < 0 {
		return 0
	}
	if v >= side {
		return side - 1
	}
	return v
}

// RaycastHit is the result of a successful Raycast.
type RaycastHit struct {
	Position        mgl32.Vec3
	Normal          mgl32.Vec3
	Distance        float32
	Material        uint8
	TouchedUnloaded bool
}

// Raycast steps per-voxel using 3D DDA and tests the owning triangles of
// every Surface voxel it passes through, returning the closest hit. Per
// spec.md §4.6, reaching an Unloaded chunk short-circuits the march and sets
// TouchedUnloaded on the result, whether or not a closer hit was already
// found in chunks visited before it.
func (q *Query) Raycast(origin, dir mgl32.Vec3, maxDistance float32) (RaycastHit, bool) {
	if dir.Len() < 1e-12 {
		return RaycastHit{}, false
	}
	dir = dir.Normalize()

	var best RaycastHit
	found := false
	touchedUnloaded := false

	dda(origin, dir, maxDistance, func(voxel [3]int32, tEnter float32) bool {
		coord := chunk.FromWorld(voxelToWorld(voxel), q.side)
		c, ok := q.live.Live(coord)
		if !ok {
			touchedUnloaded = true
			return false // stop the march
		}
		lx, ly, lz := q.localVoxel(coord, voxelToWorld(voxel))
		if c.ClassificationAt(lx, ly, lz) != chunk.Surface {
			return true
		}
		mesh := c.Mesh()
		if hit, ok := rayAgainstVoxelTriangles(mesh, c.VertexIndexAt(lx, ly, lz), origin, dir, maxDistance); ok {
			if !found || hit.Distance < best.Distance {
				best = hit
				found = true
			}
		}
		return true
	})

	best.TouchedUnloaded = touchedUnloaded
	return best, found
}

// rayAgainstVoxelTriangles tests origin+dir*t against every triangle in mesh
// that references the given owning vertex (the voxel's own vertex and the
// quads its crossing edges belong to all share that vertex id).
func rayAgainstVoxelTriangles(mesh chunk.Mesh, ownerVertex int32, origin, dir mgl32.Vec3, maxDistance float32) (RaycastHit, bool) {
	if ownerVertex == chunk.InvalidVertexIndex {
		return RaycastHit{}, false
	}
	owner := uint16(ownerVertex)

	var best RaycastHit
	found := false
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		a, b, c := mesh.Indices[i], mesh.Indices[i+1], mesh.Indices[i+2]
		if a != owner && b != owner && c != owner {
			continue
		}
		t, bary, ok := rayTriangle(origin, dir, mesh.Vertices[a].Position, mesh.Vertices[b].Position, mesh.Vertices[c].Position)
		if !ok || t < 0 || t > maxDistance {
			continue
		}
		if !found || t < best.Distance {
			n := normalFromBary(mesh.Vertices[a].Normal, mesh.Vertices[b].Normal, mesh.Vertices[c].Normal, bary)
			best = RaycastHit{
				Position: origin.Add(dir.Mul(t)),
				Normal:   n,
				Distance: t,
				Material: mesh.Vertices[a].Materials[0],
			}
			found = true
		}
	}
	return best, found
}

// rayTriangle is the Moller-Trumbore ray-triangle intersection test; returns
// the hit distance t and barycentric (u,v) for the second/third vertex.
func rayTriangle(origin, dir, v0, v1, v2 mgl32.Vec3) (float32, mgl32.Vec2, bool) {
	const eps = 1e-7
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)
	h := dir.Cross(e2)
	a := e1.Dot(h)
	if a > -eps && a < eps {
		return 0, mgl32.Vec2{}, false
	}
	f := 1.0 / a
	s := origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, mgl32.Vec2{}, false
	}
	q := s.Cross(e1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, mgl32.Vec2{}, false
	}
	t := f * e2.Dot(q)
	if t <= eps {
		return 0, mgl32.Vec2{}, false
	}
	return t, mgl32.Vec2{u, v}, true
}

func normalFromBary(n0, n1, n2 mgl32.Vec3, bary mgl32.Vec2) mgl32.Vec3 {
	u, v := bary.X(), bary.Y()
	w := 1 - u - v
	n := n0.Mul(w).Add(n1.Mul(u)).Add(n2.Mul(v))
	l := n.Len()
	if l < 1e-12 {
		return n0
	}
	return n.Mul(1 / l)
}

func voxelToWorld(v [3]int32) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]) + 0.5, float32(v[1]) + 0.5, float32(v[2]) + 0.5}
}

// dda walks integer world voxels from origin along dir up to maxDistance,
// calling visit(voxel, tEnter) for each; stops early if visit returns false.
func dda(origin, dir mgl32.Vec3, maxDistance float32, visit func(voxel [3]int32, tEnter float32) bool) {
	voxel := [3]int32{
		int32(math.Floor(float64(origin.X()))),
		int32(math.Floor(float64(origin.Y()))),
		int32(math.Floor(float64(origin.Z()))),
	}
	step := [3]int32{sign(dir.X()), sign(dir.Y()), sign(dir.Z())}

	var tMax, tDelta [3]float32
	for i := 0; i < 3; i++ {
		d := component(dir, i)
		if absf(d) < 1e-12 {
			tMax[i] = float32(math.Inf(1))
			tDelta[i] = float32(math.Inf(1))
			continue
		}
		voxelBoundary := float32(voxel[i])
		if step[i] > 0 {
			voxelBoundary++
		}
		tMax[i] = (voxelBoundary - component(origin, i)) / d
		tDelta[i] = absf(1 / d)
	}

	t := float32(0)
	if !visit(voxel, t) {
		return
	}
	for t < maxDistance {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		voxel[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		if !visit(voxel, t) {
			return
		}
	}
}

func component(v mgl32.Vec3, i int) float32 {
	switch i {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}

func sign(v float32) int32 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
