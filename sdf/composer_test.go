package sdf

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposer_UnionOfTwoBoxes(t *testing.T) {
	c := NewComposer()
	b1, err := c.CreateBox(Union, 1, 0)
	require.NoError(t, err)
	b1.Transform.Position = mgl32.Vec3{-5, 0, 0}
	b1.Transform.Scale = mgl32.Vec3{3, 3, 3}
	b1.MarkDirty()

	b2, err := c.CreateBox(Union, 2, 0)
	require.NoError(t, err)
	b2.Transform.Position = mgl32.Vec3{5, 0, 0}
	b2.Transform.Scale = mgl32.Vec3{3, 3, 3}
	b2.MarkDirty()

	c.Flush()
	snap := c.Snapshot()

	assert.Less(t, snap.Value(mgl32.Vec3{-5, 0, 0}), float32(0))
	assert.Less(t, snap.Value(mgl32.Vec3{5, 0, 0}), float32(0))
	assert.Greater(t, snap.Value(mgl32.Vec3{0, 0, 0}), float32(0), "midpoint between separated boxes should be outside")
}

func TestComposer_DrainInvalidations_IdempotentWhenNoMutations(t *testing.T) {
	c := NewComposer()
	_, err := c.CreateBox(Union, 0, 0)
	require.NoError(t, err)
	c.Flush()

	first := c.DrainInvalidations()
	assert.NotEmpty(t, first)

	second := c.DrainInvalidations()
	assert.Empty(t, second)
}

func TestComposer_SetTransformTwiceIsOneInvalidation(t *testing.T) {
	c := NewComposer()
	s, err := c.CreateBox(Union, 0, 0)
	require.NoError(t, err)
	c.Flush()
	c.DrainInvalidations()

	tr := NewTransform()
	tr.Position = mgl32.Vec3{1, 2, 3}
	require.NoError(t, c.SetTransform(s, tr))
	require.NoError(t, c.SetTransform(s, tr))

	c.Flush()
	assert.Len(t, c.DrainInvalidations(), 1)
}

func TestComposer_SetTransform_RejectsNonInvertible(t *testing.T) {
	c := NewComposer()
	s, err := c.CreateBox(Union, 0, 0)
	require.NoError(t, err)

	degenerate := NewTransform()
	degenerate.Scale = mgl32.Vec3{0, 1, 1}
	err = c.SetTransform(s, degenerate)
	require.Error(t, err)
}

func TestComposer_SmoothUnion_BlendsNormalsAndIsCrackFree(t *testing.T) {
	c := NewComposer()
	b1, _ := c.CreateBox(SmoothUnion, 0, 0)
	b1.Smoothing = 1.5
	b1.Transform.Position = mgl32.Vec3{-2, 0, 0}
	b1.Transform.Scale = mgl32.Vec3{3, 3, 3}
	b1.MarkDirty()

	b2, _ := c.CreateBox(SmoothUnion, 0, 0)
	b2.Smoothing = 1.5
	b2.Transform.Position = mgl32.Vec3{2, 0, 0}
	b2.Transform.Scale = mgl32.Vec3{3, 3, 3}
	b2.MarkDirty()

	c.Flush()
	snap := c.Snapshot()

	plainUnion := min(b1.Value(mgl32.Vec3{0, 0, 3}), b2.Value(mgl32.Vec3{0, 0, 3}))
	blended := snap.Value(mgl32.Vec3{0, 0, 3})
	assert.NotEqual(t, plainUnion, blended, "smooth union must differ from plain min at the midline")
	assert.Less(t, blended, plainUnion, "smooth blend pulls the surface inward relative to plain union")
}

func TestComposer_Subtraction_CarvesCylinder(t *testing.T) {
	c := NewComposer()
	box, _ := c.CreateBox(Union, 0, 0)
	box.Transform.Scale = mgl32.Vec3{10, 10, 10}
	box.MarkDirty()

	cyl, _ := c.CreateCylinder(Subtraction, 0, 1, 1)
	cyl.Transform.Position = mgl32.Vec3{3, 0, 0}
	cyl.Transform.Scale = mgl32.Vec3{2, 2, 12}
	cyl.MarkDirty()

	c.Flush()
	snap := c.Snapshot()

	// Inside the carved tunnel, the point should now read as outside (positive).
	assert.Greater(t, snap.Value(mgl32.Vec3{3, 0, 0}), float32(0))
	// Far from the tunnel, still inside the box.
	assert.Less(t, snap.Value(mgl32.Vec3{-8, 0, 0}), float32(0))
}

func TestComposer_SmoothSubtraction_CarvesCylinderWithBlend(t *testing.T) {
	c := NewComposer()
	box, _ := c.CreateBox(Union, 0, 0)
	box.Transform.Scale = mgl32.Vec3{10, 10, 10}
	box.MarkDirty()

	cyl, _ := c.CreateCylinder(SmoothSubtraction, 0, 1, 1)
	cyl.Smoothing = 1.5
	cyl.Transform.Position = mgl32.Vec3{3, 0, 0}
	cyl.Transform.Scale = mgl32.Vec3{2, 2, 12}
	cyl.MarkDirty()

	c.Flush()
	snap := c.Snapshot()

	// Inside the carved tunnel, still outside (positive), same as the plain
	// subtraction case.
	assert.Greater(t, snap.Value(mgl32.Vec3{3, 0, 0}), float32(0))
	// Far from the tunnel, still inside the box.
	assert.Less(t, snap.Value(mgl32.Vec3{-8, 0, 0}), float32(0))

	plain := Subtraction_(box.Value(mgl32.Vec3{3, 0, 1}), cyl.Value(mgl32.Vec3{3, 0, 1}))
	blended := snap.Value(mgl32.Vec3{3, 0, 1})
	assert.NotEqual(t, plain, blended, "smooth subtraction must differ from the hard max at the blend radius")
}

func min(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
