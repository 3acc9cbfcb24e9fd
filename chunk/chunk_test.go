package chunk

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCoord_AABBCoversCube(t *testing.T) {
	c := Coord{X: 1, Y: 0, Z: -1}
	a := c.AABB(16)
	assert.Equal(t, mgl32.Vec3{16, 0, -16}, a.Min)
	assert.Equal(t, mgl32.Vec3{32, 16, 0}, a.Max)
}

func TestFromWorld_NegativeCoordinatesFloorCorrectly(t *testing.T) {
	assert.Equal(t, Coord{X: -1, Y: 0, Z: 0}, FromWorld(mgl32.Vec3{-0.5, 0, 0}, 16))
	assert.Equal(t, Coord{X: 0, Y: 0, Z: 0}, FromWorld(mgl32.Vec3{0, 0, 0}, 16))
	assert.Equal(t, Coord{X: 1, Y: 0, Z: 0}, FromWorld(mgl32.Vec3{16, 0, 0}, 16))
}

func TestChunk_NewIsUnloadedAndEmpty(t *testing.T) {
	c := New(Coord{}, 8)
	assert.Equal(t, Empty, c.Status())
	assert.Equal(t, Unloaded, c.ClassificationAt(0, 0, 0))
	assert.Equal(t, InvalidVertexIndex, c.VertexIndexAt(0, 0, 0))
}

func TestChunk_PublishBumpsGenerationAtomically(t *testing.T) {
	c := New(Coord{}, 4)
	gen0 := c.Generation()

	cls := make([]BlockType, 4*4*4)
	vidx := make([]int32, 4*4*4)
	for i := range vidx {
		vidx[i] = InvalidVertexIndex
	}
	cls[0] = Surface
	vidx[0] = 0
	mesh := Mesh{Vertices: []Vertex{{Position: mgl32.Vec3{0, 0, 0}}}, Indices: []uint16{0, 0, 0}}

	c.Publish(mesh, cls, vidx)

	assert.Equal(t, gen0+1, c.Generation())
	assert.Equal(t, Surface, c.ClassificationAt(0, 0, 0))
	assert.Equal(t, int32(0), c.VertexIndexAt(0, 0, 0))
	assert.Len(t, c.Mesh().Vertices, 1)
}

func TestPool_AllocateFreeRoundTrip(t *testing.T) {
	p := NewPool(2, 8)
	a, ok := p.Allocate(Coord{X: 0, Y: 0, Z: 0})
	assert.True(t, ok)
	assert.NotNil(t, a)

	_, ok = p.Allocate(Coord{X: 1, Y: 0, Z: 0})
	assert.True(t, ok)

	_, ok = p.Allocate(Coord{X: 2, Y: 0, Z: 0})
	assert.False(t, ok, "pool of capacity 2 should be exhausted")

	p.Free(Coord{X: 0, Y: 0, Z: 0})
	_, ok = p.Allocate(Coord{X: 2, Y: 0, Z: 0})
	assert.True(t, ok, "freeing a slot should make room")
}

func TestPool_AllocateIsIdempotentForSameCoord(t *testing.T) {
	p := NewPool(4, 8)
	c1, _ := p.Allocate(Coord{X: 5, Y: 5, Z: 5})
	c2, _ := p.Allocate(Coord{X: 5, Y: 5, Z: 5})
	assert.Same(t, c1, c2)
}
