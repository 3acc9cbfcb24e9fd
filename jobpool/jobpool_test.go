package jobpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/sdf"
)

func TestWorkerCount_DerivesFromHardwareWhenUnconfigured(t *testing.T) {
	assert.GreaterOrEqual(t, WorkerCount(0), 1)
	assert.Equal(t, 4, WorkerCount(4))
}

func waitForState(t *testing.T, job *Job, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job never reached state %v, stuck at %v", want, job.State())
}

func TestPool_DispatchRunsJobAndIntegrates(t *testing.T) {
	p := New(2, 1, 4, 4, nil)
	defer p.Close()

	composer := sdf.NewComposer()
	composer.Flush()
	snap := composer.Snapshot()

	job := p.Jobs()[0]
	require.Equal(t, Idle, job.State())

	require.NoError(t, p.Dispatch(job, chunk.Coord{}, snap, 2))
	waitForState(t, job, PendingFinish)

	coord, result, err := job.Result()
	assert.NoError(t, err)
	assert.Equal(t, chunk.Coord{}, coord)
	assert.Empty(t, result.Mesh.Vertices)

	p.Integrate(job)
	assert.Equal(t, Idle, job.State())
}

func TestPool_DispatchRejectsNonIdleJob(t *testing.T) {
	p := New(1, 1, 4, 4, nil)
	defer p.Close()

	composer := sdf.NewComposer()
	composer.Flush()
	snap := composer.Snapshot()

	job := p.Jobs()[0]
	require.NoError(t, p.Dispatch(job, chunk.Coord{}, snap, 2))

	err := p.Dispatch(job, chunk.Coord{X: 1}, snap, 2)
	assert.Error(t, err)
}
