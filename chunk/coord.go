// Package chunk defines ChunkCoord/Chunk, the fixed-size cubic unit of
// residency and meshing, and the fixed-capacity pool Residency allocates
// them from.
package chunk

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/sdf"
)

// Coord is an integer chunk-grid coordinate. The chunk it names covers the
// world cube [coord*S, (coord+1)*S).
type Coord struct {
	X, Y, Z int32
}

// AABB returns the world cube a coord covers, given chunk side S.
func (c Coord) AABB(side int) sdf.AABB {
	s := float32(side)
	min := mgl32.Vec3{float32(c.X) * s, float32(c.Y) * s, float32(c.Z) * s}
	return sdf.AABB{Min: min, Max: min.Add(mgl32.Vec3{s, s, s})}
}

// Center returns the world-space center of the chunk's cube.
func (c Coord) Center(side int) mgl32.Vec3 {
	a := c.AABB(side)
	return a.Min.Add(a.Max).Mul(0.5)
}

// FromWorld returns the coord of the chunk containing world point p.
func FromWorld(p mgl32.Vec3, side int) Coord {
	s := float32(side)
	return Coord{
		X: floorDiv(p.X(), s),
		Y: floorDiv(p.Y(), s),
		Z: floorDiv(p.Z(), s),
	}
}

func floorDiv(v, s float32) int32 {
	q := v / s
	i := int32(q)
	if q < 0 && float32(i) != q {
		i--
	}
	return i
}
