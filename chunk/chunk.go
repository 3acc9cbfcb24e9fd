package chunk

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/sdf"
)

// BlockType classifies a voxel after meshing.
type BlockType uint8

const (
	Exterior BlockType = iota
	Interior
	Surface
	Blocking
	Unloaded
)

// Status is a Chunk's lifecycle state.
type Status int

const (
	Empty Status = iota
	Pending
	Live
	Retired
)

// InvalidVertexIndex is the sentinel stored in a Chunk's vertex-index grid
// for voxels that own no vertex.
const InvalidVertexIndex int32 = -1

// Vertex is the published per-vertex record, matching the renderer-facing
// interface in spec.md §6: position/normal in world space, up to four
// blended materials with weights summing to 255.
type Vertex struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	Materials [4]uint8
	Info      [4]uint8
}

// Mesh is an immutable published triangle mesh: indices are chunk-local,
// 0-based within Vertices.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
}

// published is the atomically-swapped bundle a Chunk exposes to readers:
// classification, vertex-index grid, and geometry always move together so a
// reader never observes indices from one generation paired with geometry
// from another.
type published struct {
	Mesh           Mesh
	Classification []BlockType
	VertexIndex    []int32
	Generation     uint64
	AABB           sdf.AABB
}

// Chunk is identified by Coord and exclusively owned by Residency; a job
// borrows a mutable reference for its duration (its own scratch, not this
// struct) and Residency integrates the result back via Publish.
type Chunk struct {
	Coord  Coord
	Side   int
	status atomic.Int32

	current atomic.Pointer[published]
}

// New constructs an Empty chunk for coord with classification/vertex grids
// sized for side S, initialized Unloaded/invalid until first published.
func New(coord Coord, side int) *Chunk {
	c := &Chunk{Coord: coord, Side: side}
	n := side * side * side
	cls := make([]BlockType, n)
	for i := range cls {
		cls[i] = Unloaded
	}
	vidx := make([]int32, n)
	for i := range vidx {
		vidx[i] = InvalidVertexIndex
	}
	c.current.Store(&published{
		Classification: cls,
		VertexIndex:    vidx,
		AABB:           coord.AABB(side),
	})
	c.status.Store(int32(Empty))
	return c
}

func (c *Chunk) Status() Status { return Status(c.status.Load()) }
func (c *Chunk) SetStatus(s Status) { c.status.Store(int32(s)) }

// Reset reinitializes coord-specific state when a pool slot is reused for a
// new coordinate.
func (c *Chunk) Reset(coord Coord) {
	c.Coord = coord
	n := c.Side * c.Side * c.Side
	cls := make([]BlockType, n)
	for i := range cls {
		cls[i] = Unloaded
	}
	vidx := make([]int32, n)
	for i := range vidx {
		vidx[i] = InvalidVertexIndex
	}
	c.current.Store(&published{
		Classification: cls,
		VertexIndex:    vidx,
		AABB:           coord.AABB(c.Side),
	})
	c.status.Store(int32(Empty))
}

func (c *Chunk) index(x, y, z int) int {
	return (z*c.Side+y)*c.Side + x
}

// ClassificationAt reads the published classification grid at chunk-local
// voxel coordinates.
func (c *Chunk) ClassificationAt(x, y, z int) BlockType {
	p := c.current.Load()
	return p.Classification[c.index(x, y, z)]
}

// VertexIndexAt reads the published vertex-index grid.
func (c *Chunk) VertexIndexAt(x, y, z int) int32 {
	p := c.current.Load()
	return p.VertexIndex[c.index(x, y, z)]
}

// Mesh returns the currently published mesh (read-only; never mutate it).
func (c *Chunk) Mesh() Mesh {
	return c.current.Load().Mesh
}

// AABB returns the chunk's world AABB.
func (c *Chunk) AABB() sdf.AABB {
	return c.current.Load().AABB
}

// Generation returns the current publication generation counter.
func (c *Chunk) Generation() uint64 {
	return c.current.Load().Generation
}

// Publish atomically swaps in a completed job's output: classification,
// vertex-index grid, and mesh all move together under one pointer store, so
// readers never observe a torn mix of generations (spec.md invariant 2).
func (c *Chunk) Publish(mesh Mesh, classification []BlockType, vertexIndex []int32) {
	prevGen := c.current.Load().Generation
	c.current.Store(&published{
		Mesh:           mesh,
		Classification: classification,
		VertexIndex:    vertexIndex,
		Generation:     prevGen + 1,
		AABB:           c.Coord.AABB(c.Side),
	})
}
