package sdf

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox_ValueSignsInsideOutside(t *testing.T) {
	b := NewBox(Union, 0, 0)
	b.Transform.Scale = mgl32.Vec3{10, 10, 10}
	b.RecomputeAABB()

	require.Less(t, b.Value(mgl32.Vec3{0, 0, 0}), float32(0), "origin should be inside")
	require.Greater(t, b.Value(mgl32.Vec3{100, 0, 0}), float32(0), "far point should be outside")
}

func TestBox_AABBTracksTransform(t *testing.T) {
	b := NewBox(Union, 0, 0)
	b.Transform.Scale = mgl32.Vec3{10, 10, 10}
	b.RecomputeAABB()

	a := b.AABB()
	assert.InDelta(t, -10, a.Min.X(), 1e-3)
	assert.InDelta(t, 10, a.Max.X(), 1e-3)
}

func TestCylinder_CappedAtZ(t *testing.T) {
	c := NewCylinder(Union, 0, 1, 1)
	c.Transform.Scale = mgl32.Vec3{2, 2, 12}
	c.RecomputeAABB()

	require.Less(t, c.Value(mgl32.Vec3{0, 0, 0}), float32(0))
	require.Greater(t, c.Value(mgl32.Vec3{0, 0, 20}), float32(0), "beyond the cap should be outside")
}

func TestHeightmap_FollowsSampler(t *testing.T) {
	h := NewHeightmap(Union, 0, constantSampler(0.5))
	h.RecomputeAABB()

	// local z maps surface to 0 when h=0.5; below that should be inside (negative).
	below := h.Value(mgl32.Vec3{0, 0, -0.5})
	above := h.Value(mgl32.Vec3{0, 0, 0.5})
	require.Less(t, below, float32(0))
	require.Greater(t, above, float32(0))
}

type constantSampler float32

func (c constantSampler) Height(u, v float32) float32 { return float32(c) }
