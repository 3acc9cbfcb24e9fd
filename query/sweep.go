package query

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/chunk"
)

// SweepHit is the result of a successful SweepSphere.
type SweepHit struct {
	Position        mgl32.Vec3
	Normal          mgl32.Vec3
	Distance        float32
	TouchedUnloaded bool
}

// SweepSphere marches a sphere of the given radius along origin+dir*t up to
// maxDistance, testing candidate triangles near each sampled voxel, and
// reports the earliest collision. Per spec.md §4.6, sampling a position
// whose chunk is not Live sets TouchedUnloaded on the result.
func (q *Query) SweepSphere(origin mgl32.Vec3, radius float32, dir mgl32.Vec3, maxDistance float32) (SweepHit, bool) {
	if dir.Len() < 1e-12 {
		return SweepHit{}, false
	}
	dir = dir.Normalize()

	step := radius
	if step < 0.25 {
		step = 0.25
	}

	var best SweepHit
	found := false
	touchedUnloaded := false
	for t := float32(0); t <= maxDistance; t += step {
		center := origin.Add(dir.Mul(t))
		tris, unloaded := q.candidateTriangles(center, radius)
		if unloaded {
			touchedUnloaded = true
		}
		for _, tri := range tris {
			_, closest, ok := sphereTriangleDistance(center, radius, tri)
			if !ok {
				continue
			}
			if !found || t < best.Distance {
				best = SweepHit{
					Position: closest,
					Normal:   tri.normal(),
					Distance: t,
				}
				found = true
			}
		}
		if found {
			best.TouchedUnloaded = touchedUnloaded
			return best, true
		}
	}
	return SweepHit{TouchedUnloaded: touchedUnloaded}, false
}

// PushOutSphere iteratively projects a sphere out of any overlapping surface
// triangle until no overlap remains or a small iteration bound is hit. It
// returns the net offset applied, whether the overlap was fully resolved
// within the bound, and whether any sampled position's chunk was not Live
// (spec.md §4.6).
func (q *Query) PushOutSphere(center mgl32.Vec3, radius float32) (mgl32.Vec3, bool, bool) {
	const maxIterations = 4
	offset := mgl32.Vec3{}
	cur := center
	touchedUnloaded := false

	for i := 0; i < maxIterations; i++ {
		penetrating := false
		tris, unloaded := q.candidateTriangles(cur, radius)
		if unloaded {
			touchedUnloaded = true
		}
		for _, tri := range tris {
			_, closest, overlap := sphereTriangleDistance(cur, radius, tri)
			if !overlap {
				continue
			}
			toCenter := cur.Sub(closest)
			d := toCenter.Len()
			var push mgl32.Vec3
			if d < 1e-9 {
				push = tri.normal().Mul(radius)
			} else {
				push = toCenter.Mul((radius - d) / d)
			}
			cur = cur.Add(push)
			offset = offset.Add(push)
			penetrating = true
		}
		if !penetrating {
			return offset, true, touchedUnloaded
		}
	}
	return offset, false, touchedUnloaded
}

type triangle struct {
	a, b, c mgl32.Vec3
}

func (tri triangle) normal() mgl32.Vec3 {
	n := tri.b.Sub(tri.a).Cross(tri.c.Sub(tri.a))
	l := n.Len()
	if l < 1e-12 {
		return mgl32.Vec3{0, 0, 1}
	}
	return n.Mul(1 / l)
}

// candidateTriangles gathers, from every Live chunk touched by the box of
// half-size radius+1 around center, each mesh triangle whose closest point
// lies within radius+1 of center (voxel classification is not consulted),
// and reports whether any touched coord was not Live (touchedUnloaded).
func (q *Query) candidateTriangles(center mgl32.Vec3, radius float32) ([]triangle, bool) {
	margin := radius + 1
	minP := center.Sub(mgl32.Vec3{margin, margin, margin})
	maxP := center.Add(mgl32.Vec3{margin, margin, margin})

	seen := make(map[chunk.Coord]bool)
	var out []triangle
	touchedUnloaded := false

	for x := minP.X(); x <= maxP.X(); x += 1 {
		for y := minP.Y(); y <= maxP.Y(); y += 1 {
			for z := minP.Z(); z <= maxP.Z(); z += 1 {
				p := mgl32.Vec3{x, y, z}
				coord := chunk.FromWorld(p, q.side)
				if seen[coord] {
					continue
				}
				seen[coord] = true
				c, ok := q.live.Live(coord)
				if !ok {
					touchedUnloaded = true
					continue
				}
				mesh := c.Mesh()
				for i := 0; i+2 < len(mesh.Indices); i += 3 {
					a := mesh.Vertices[mesh.Indices[i]].Position
					b := mesh.Vertices[mesh.Indices[i+1]].Position
					cc := mesh.Vertices[mesh.Indices[i+2]].Position
					tri := triangle{a, b, cc}
					if triangleNear(tri, center, radius+1) {
						out = append(out, tri)
					}
				}
			}
		}
	}
	return out, touchedUnloaded
}

func triangleNear(tri triangle, p mgl32.Vec3, radius float32) bool {
	closest := closestPointOnTriangle(p, tri.a, tri.b, tri.c)
	return closest.Sub(p).Len() <= radius
}

// sphereTriangleDistance returns the distance from center to the closest
// point on tri, that closest point, and whether the sphere overlaps it.
func sphereTriangleDistance(center mgl32.Vec3, radius float32, tri triangle) (float32, mgl32.Vec3, bool) {
	closest := closestPointOnTriangle(center, tri.a, tri.b, tri.c)
	d := closest.Sub(center).Len()
	return d, closest, d <= radius
}

// closestPointOnTriangle finds the closest point on triangle abc to p via
// barycentric projection, clamped to the triangle.
func closestPointOnTriangle(p, a, b, c mgl32.Vec3) mgl32.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}
