// Package jobpool runs mesh-generation jobs on a fixed-size worker pool.
// Every Job owns its own SdfCache and mesher Scratch so workers never share
// mutable state; Residency drives dispatch and collects finished jobs.
package jobpool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gekko3d/voxelterrain/cache"
	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/errs"
	"github.com/gekko3d/voxelterrain/logging"
	"github.com/gekko3d/voxelterrain/mesher"
	"github.com/gekko3d/voxelterrain/sdf"
)

// State is a Job's lifecycle stage: Idle -> Running -> PendingFinish -> Idle.
type State int32

const (
	Idle State = iota
	Running
	PendingFinish
)

// Job is one pre-allocated mesh-generation slot: a coord to mesh, its own
// scratch buffers, and the outcome of its last run. Never runs two bodies
// concurrently; Pool enforces that by gating dispatch on state.
type Job struct {
	index int

	state atomic.Int32

	cache   *cache.SdfCache
	mesher  *mesher.Mesher
	scratch *mesher.Scratch

	coord  chunk.Coord
	result mesher.Result
	err    error
}

func newJob(index, side, bisectIter int) *Job {
	return &Job{
		index:   index,
		cache:   cache.New(side),
		mesher:  mesher.New(side, bisectIter),
		scratch: mesher.NewScratch(side),
	}
}

func (j *Job) State() State { return State(j.state.Load()) }

// Result returns the outcome of the job's last completed run. Only
// meaningful once State() == PendingFinish.
func (j *Job) Result() (chunk.Coord, mesher.Result, error) {
	return j.coord, j.result, j.err
}

// Pool is a fixed-size set of pre-allocated Jobs and the worker goroutines
// that run them, sized workerCount<=0 -> 3/4 of runtime.NumCPU (min 1).
type Pool struct {
	log    logging.Logger
	side   int
	jobs   []*Job
	submit chan int
	wg     sync.WaitGroup
	closed atomic.Bool

	inputsMu sync.Mutex
	inputs   map[int]jobInput
}

// New starts a pool of jobCount pre-allocated Jobs (sized to hold the
// residency tick's in-flight budget) served by workerCount goroutines.
func New(jobCount, workerCount, side, bisectIter int, log logging.Logger) *Pool {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if workerCount <= 0 {
		workerCount = WorkerCount(0)
	}
	p := &Pool{
		log:    log,
		side:   side,
		jobs:   make([]*Job, jobCount),
		submit: make(chan int, jobCount),
	}
	for i := range p.jobs {
		p.jobs[i] = newJob(i, side, bisectIter)
	}

	p.wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go p.runWorker(w)
	}
	return p
}

// WorkerCount derives the worker-goroutine count from configured (<=0 means
// derive from hardware): 3/4 of runtime.NumCPU, minimum 1.
func WorkerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	n := (runtime.NumCPU()*3 + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Jobs exposes the pool's fixed Job slots so Residency can scan for Idle
// ones to dispatch into and PendingFinish ones to integrate.
func (p *Pool) Jobs() []*Job { return p.jobs }

// Dispatch assigns coord and snap to job (which must be Idle) and enqueues
// it for a worker. Returns a ResourceExhausted error if job isn't Idle.
func (p *Pool) Dispatch(job *Job, coord chunk.Coord, snap *sdf.Snapshot, boundary int) error {
	if !job.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return errs.Newf(errs.ResourceExhausted, "jobpool.Dispatch", "job %d is not idle", job.index)
	}
	job.coord = coord
	job.err = nil
	p.pendingSnap(job, coord, snap, boundary)
	select {
	case p.submit <- job.index:
	default:
		// submit is sized to jobCount so this never blocks in practice;
		// fall back to a blocking send rather than drop the job.
		p.submit <- job.index
	}
	return nil
}

// jobInput carries what a worker needs beyond the Job struct itself; stored
// per job index to keep Job free of snapshot lifetime concerns between runs.
type jobInput struct {
	coord    chunk.Coord
	snap     *sdf.Snapshot
	boundary int
}

func (p *Pool) pendingSnap(job *Job, coord chunk.Coord, snap *sdf.Snapshot, boundary int) {
	p.inputsMu.Lock()
	if p.inputs == nil {
		p.inputs = make(map[int]jobInput, len(p.jobs))
	}
	p.inputs[job.index] = jobInput{coord: coord, snap: snap, boundary: boundary}
	p.inputsMu.Unlock()
}

// Integrate returns a PendingFinish job to Idle. It does not read the
// result: callers (Residency) must have already consumed job.Result().
func (p *Pool) Integrate(job *Job) {
	job.state.Store(int32(Idle))
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	for idx := range p.submit {
		if p.closed.Load() {
			return
		}
		job := p.jobs[idx]
		p.runJob(job)
	}
}

func (p *Pool) runJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			job.err = errs.Newf(errs.Internal, "jobpool.runJob", "mesh job panicked: %v", r)
			job.state.Store(int32(PendingFinish))
			p.log.Errorf("job %d for chunk %v panicked: %v", job.index, job.coord, r)
		}
	}()

	p.inputsMu.Lock()
	in := p.inputs[job.index]
	delete(p.inputs, job.index)
	p.inputsMu.Unlock()

	job.cache.Build(in.coord, in.snap, in.boundary)
	origin := in.coord.AABB(job.cache.Side()).Min
	job.result, job.err = job.mesher.Run(job.cache, job.scratch, origin)
	job.state.Store(int32(PendingFinish))
}

// Close stops accepting new work and waits for in-flight jobs to finish.
func (p *Pool) Close() {
	p.closed.Store(true)
	close(p.submit)
	p.wg.Wait()
}
