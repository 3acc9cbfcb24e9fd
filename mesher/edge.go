package mesher

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/cache"
)

// axisOffset is the unit step for each of the three positive edge axes.
var axisOffset = [3]mgl32.Vec3{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// scanEdges fills scratch's edge table with every sign-changing crossing
// on the grid edges whose two endpoints both lie in [0,side]^3 — that is,
// all 12 edges of every voxel in [0,side)^3, not only each voxel's three
// positive-axis edges. Positions are chunk-local (0..side).
func scanEdges(c *cache.SdfCache, scratch *Scratch, bisectIter int) {
	side := scratch.side
	for z := 0; z <= side; z++ {
		for y := 0; y <= side; y++ {
			for x := 0; x <= side; x++ {
				p0 := mgl32.Vec3{float32(x), float32(y), float32(z)}
				v0 := c.ValueChunkLocal(p0)
				for axis := 0; axis < 3; axis++ {
					// Skip edges whose far endpoint would fall outside
					// [0,side] along the edge's own axis; the other two
					// coordinates range over the full 0..side.
					switch axis {
					case 0:
						if x >= side {
							continue
						}
					case 1:
						if y >= side {
							continue
						}
					case 2:
						if z >= side {
							continue
						}
					}

					p1 := p0.Add(axisOffset[axis])
					v1 := c.ValueChunkLocal(p1)
					if (v0 < 0) == (v1 < 0) {
						continue
					}

					t := bisect(c, p0, p1, v0, v1, bisectIter)
					pos := p0.Add(axisOffset[axis].Mul(t))
					idx := scratch.edgeIndex(x, y, z, axis)
					scratch.edgeValid[idx] = true
					scratch.edgeCrossing[idx] = crossing{
						Pos:      pos,
						Normal:   c.DerivativeChunkLocal(pos),
						Material: c.MaterialChunkLocal(pos),
					}
				}
			}
		}
	}
}

// bisect finds t in [0,1] along p0->p1 where the field crosses zero, given
// v0=f(p0), v1=f(p1) have opposite signs. Fixed iteration count, no adaptive
// termination, so every job does bounded work.
func bisect(c *cache.SdfCache, p0, p1 mgl32.Vec3, v0, v1 float32, iterations int) float32 {
	lo, hi := float32(0), float32(1)
	loVal := v0
	for i := 0; i < iterations; i++ {
		mid := (lo + hi) * 0.5
		p := p0.Add(p1.Sub(p0).Mul(mid))
		v := c.ValueChunkLocal(p)
		if (v < 0) == (loVal < 0) {
			lo = mid
			loVal = v
		} else {
			hi = mid
		}
	}
	return (lo + hi) * 0.5
}
