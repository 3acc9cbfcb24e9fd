package terrain

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/config"
	"github.com/gekko3d/voxelterrain/sdf"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Chunk.Side = 16
	cfg.Residency.MaxActive = 8
	cfg.Residency.MaxLoaded = 16
	cfg.Residency.MaxNewJobsPerTick = 8
	return cfg
}

func TestEngine_InitUpdateTerminate(t *testing.T) {
	e := InitWithOptions(Options{Config: testConfig()}, 2)
	defer e.Terminate()

	box, err := e.CreateBox(sdf.Union, 0, 0)
	require.NoError(t, err)
	tr := sdf.NewTransform()
	tr.Scale = mgl32.Vec3{10, 10, 10}
	require.NoError(t, e.SetTransform(box, tr))
	e.Flush()

	for i := 0; i < 6; i++ {
		time.Sleep(2 * time.Millisecond)
		e.Update(mgl32.Vec3{0, 0, 0}, 64)
	}

	cls, unloaded := e.GetVoxel(mgl32.Vec3{0, 0, 0})
	assert.False(t, unloaded)
	assert.Contains(t, []chunk.BlockType{chunk.Interior, chunk.Surface}, cls)
}

func TestEngine_DebugSinkReceivesSaturationOrPublish(t *testing.T) {
	e := InitWithOptions(Options{Config: testConfig()}, 2)
	defer e.Terminate()

	var events []string
	e.SetDebugSink(func(pos mgl32.Vec3, label string) {
		events = append(events, label)
	})

	box, err := e.CreateBox(sdf.Union, 0, 0)
	require.NoError(t, err)
	tr := sdf.NewTransform()
	tr.Scale = mgl32.Vec3{10, 10, 10}
	require.NoError(t, e.SetTransform(box, tr))
	e.Flush()

	for i := 0; i < 6; i++ {
		time.Sleep(2 * time.Millisecond)
		e.Update(mgl32.Vec3{0, 0, 0}, 64)
	}

	assert.NotEmpty(t, events)
}
