package query

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/voxelterrain/chunk"
)

// fakeLive is a minimal live chunk set for query tests, bypassing
// Residency/JobPool entirely.
type fakeLive struct {
	chunks map[chunk.Coord]*chunk.Chunk
}

func (f *fakeLive) Live(coord chunk.Coord) (*chunk.Chunk, bool) {
	c, ok := f.chunks[coord]
	return c, ok
}

// flatFloorChunk publishes a single quad (two triangles) spanning the
// chunk's x/y extent at local z=4, classifying that layer Surface and
// everything below Interior / above Exterior.
func flatFloorChunk(t *testing.T, side int) *chunk.Chunk {
	t.Helper()
	c := chunk.New(chunk.Coord{}, side)

	cls := make([]chunk.BlockType, side*side*side)
	vidx := make([]int32, side*side*side)
	for i := range vidx {
		vidx[i] = chunk.InvalidVertexIndex
	}
	idx := func(x, y, z int) int { return (z*side+y)*side + x }
	for z := 0; z < side; z++ {
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				switch {
				case z == 4:
					cls[idx(x, y, z)] = chunk.Surface
				case z < 4:
					cls[idx(x, y, z)] = chunk.Interior
				default:
					cls[idx(x, y, z)] = chunk.Exterior
				}
			}
		}
	}
	cls[idx(2, 2, 4)] = chunk.Surface
	vidx[idx(2, 2, 4)] = 0

	verts := []chunk.Vertex{
		{Position: mgl32.Vec3{0, 0, 4}, Normal: mgl32.Vec3{0, 0, 1}},
		{Position: mgl32.Vec3{float32(side), 0, 4}, Normal: mgl32.Vec3{0, 0, 1}},
		{Position: mgl32.Vec3{0, float32(side), 4}, Normal: mgl32.Vec3{0, 0, 1}},
		{Position: mgl32.Vec3{float32(side), float32(side), 4}, Normal: mgl32.Vec3{0, 0, 1}},
	}
	indices := []uint16{0, 1, 2, 1, 3, 2}
	c.Publish(chunk.Mesh{Vertices: verts, Indices: indices}, cls, vidx)
	c.SetStatus(chunk.Live)
	return c
}

func TestQuery_Voxel_ReturnsUnloadedOutsideLiveSet(t *testing.T) {
	q := New2(t, map[chunk.Coord]*chunk.Chunk{})
	cls, unloaded := q.Voxel(mgl32.Vec3{1, 1, 1})
	assert.True(t, unloaded)
	assert.Equal(t, chunk.Unloaded, cls)
}

func TestQuery_Voxel_ReadsPublishedClassification(t *testing.T) {
	side := 8
	c := flatFloorChunk(t, side)
	q := New2(t, map[chunk.Coord]*chunk.Chunk{{}: c})

	cls, unloaded := q.Voxel(mgl32.Vec3{1, 1, 1})
	assert.False(t, unloaded)
	assert.Equal(t, chunk.Interior, cls)

	cls, unloaded = q.Voxel(mgl32.Vec3{1, 1, 4.5})
	assert.False(t, unloaded)
	assert.Equal(t, chunk.Surface, cls)
}

func TestQuery_Raycast_HitsFloorQuad(t *testing.T) {
	side := 8
	c := flatFloorChunk(t, side)
	q := New2(t, map[chunk.Coord]*chunk.Chunk{{}: c})

	hit, ok := q.Raycast(mgl32.Vec3{2.5, 2.5, 7.5}, mgl32.Vec3{0, 0, -1}, 20)
	require.True(t, ok)
	assert.InDelta(t, 3.5, hit.Distance, 0.01)
	assert.InDelta(t, 4, hit.Position.Z(), 0.01)
}

func TestQuery_Raycast_MissesWhenNotAimedAtSurface(t *testing.T) {
	side := 8
	c := flatFloorChunk(t, side)
	q := New2(t, map[chunk.Coord]*chunk.Chunk{{}: c})

	_, ok := q.Raycast(mgl32.Vec3{2.5, 2.5, 7.5}, mgl32.Vec3{0, 0, 1}, 20)
	assert.False(t, ok)
}

func TestQuery_Raycast_ReportsTouchedUnloaded(t *testing.T) {
	q := New2(t, map[chunk.Coord]*chunk.Chunk{})
	hit, ok := q.Raycast(mgl32.Vec3{2.5, 2.5, 2.5}, mgl32.Vec3{0, 0, -1}, 20)
	assert.False(t, ok)
	assert.True(t, hit.TouchedUnloaded)
}

func TestQuery_SweepSphere_ReportsTouchedUnloaded(t *testing.T) {
	q := New2(t, map[chunk.Coord]*chunk.Chunk{})
	hit, ok := q.SweepSphere(mgl32.Vec3{2.5, 2.5, 2.5}, 0.5, mgl32.Vec3{0, 0, -1}, 20)
	assert.False(t, ok)
	assert.True(t, hit.TouchedUnloaded)
}

func TestQuery_PushOutSphere_ReportsTouchedUnloaded(t *testing.T) {
	q := New2(t, map[chunk.Coord]*chunk.Chunk{})
	_, _, touchedUnloaded := q.PushOutSphere(mgl32.Vec3{2.5, 2.5, 2.5}, 0.5)
	assert.True(t, touchedUnloaded)
}

// New2 builds a Query directly over a fakeLive, bypassing the real
// Residency (which query.New requires a *residency.Residency for).
func New2(t *testing.T, chunks map[chunk.Coord]*chunk.Chunk) *Query {
	t.Helper()
	return &Query{live: &fakeLive{chunks: chunks}, side: 8}
}
