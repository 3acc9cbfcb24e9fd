package cache

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/sdf"
)

func TestBuild_DimIsChunkSidePlusFive(t *testing.T) {
	c := New(16)
	assert.Equal(t, 21, c.Dim())
}

func TestBuild_MatchesComposerAtSamplePoints(t *testing.T) {
	composer := sdf.NewComposer()
	b, err := composer.CreateBox(sdf.Union, 7, 0)
	require.NoError(t, err)
	b.Transform.Scale = mgl32.Vec3{10, 10, 10}
	b.MarkDirty()
	composer.Flush()
	snap := composer.Snapshot()

	c := New(16)
	coord := chunk.Coord{X: 0, Y: 0, Z: 0}
	c.Build(coord, snap, 2)

	// Chunk origin voxel (0,0,0) in world space is inside the 10-half-extent box.
	worldOrigin := coord.AABB(16).Min
	ix, iy, iz := c.IntGrid(0, 0, 0)
	got := c.ValueAt(ix, iy, iz)
	want := snap.Value(worldOrigin)
	assert.InDelta(t, want, got, 1e-3)
}

func TestBuild_SkipsUnionShapeOutsideExpandedAABB(t *testing.T) {
	composer := sdf.NewComposer()
	far, err := composer.CreateBox(sdf.Union, 3, 0)
	require.NoError(t, err)
	far.Transform.Position = mgl32.Vec3{10000, 10000, 10000}
	far.MarkDirty()
	composer.Flush()
	snap := composer.Snapshot()

	c := New(16)
	coord := chunk.Coord{X: 0, Y: 0, Z: 0}
	// Should not panic or include the far shape; entire grid reads +inf-ish.
	c.Build(coord, snap, 2)
	ix, iy, iz := c.IntGrid(8, 8, 8)
	assert.Greater(t, c.ValueAt(ix, iy, iz), float32(1000))
}

func TestValue_TrilinearIsContinuous(t *testing.T) {
	composer := sdf.NewComposer()
	b, _ := composer.CreateBox(sdf.Union, 0, 0)
	b.Transform.Scale = mgl32.Vec3{10, 10, 10}
	b.MarkDirty()
	composer.Flush()
	snap := composer.Snapshot()

	c := New(16)
	coord := chunk.Coord{X: 0, Y: 0, Z: 0}
	c.Build(coord, snap, 2)

	a := c.ValueChunkLocal(mgl32.Vec3{4, 4, 4})
	b2 := c.ValueChunkLocal(mgl32.Vec3{4.5, 4, 4})
	d := c.ValueChunkLocal(mgl32.Vec3{5, 4, 4})
	assert.InDelta(t, (a+d)/2, b2, 0.05)
}

func TestDeterminism_SameSnapshotSameValues(t *testing.T) {
	composer := sdf.NewComposer()
	b, _ := composer.CreateBox(sdf.Union, 0, 0.2)
	b.Transform.Scale = mgl32.Vec3{6, 6, 6}
	b.MarkDirty()
	composer.Flush()
	snap := composer.Snapshot()

	coord := chunk.Coord{X: 0, Y: 0, Z: 0}
	c1 := New(16)
	c1.Build(coord, snap, 2)
	c2 := New(16)
	c2.Build(coord, snap, 2)

	for i := 0; i < 16; i++ {
		ix, iy, iz := c1.IntGrid(i, i, i)
		jx, jy, jz := c2.IntGrid(i, i, i)
		assert.Equal(t, c1.ValueAt(ix, iy, iz), c2.ValueAt(jx, jy, jz))
	}
}
