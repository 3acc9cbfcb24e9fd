// Package residency runs the per-tick chunk selection, job dispatch, and
// result integration loop described in spec.md §4.5: score candidates around
// the viewer, dispatch mesh jobs for dirty or newly-in-range chunks, and
// publish finished jobs' meshes atomically into their Chunk.
package residency

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/config"
	"github.com/gekko3d/voxelterrain/jobpool"
	"github.com/gekko3d/voxelterrain/logging"
	"github.com/gekko3d/voxelterrain/sdf"
)

// DebugSink receives optional diagnostics the engine emits during a tick
// (e.g. a Saturation event), matching the (worldPos, label) callback shape
// from spec.md §6.
type DebugSink func(worldPos mgl32.Vec3, label string)

// Residency owns the chunk pool and job pool and must only be driven from
// the caller's single control thread (spec.md §5): Update's state mutation
// is unsynchronized. Live/LiveChunks are the only methods safe from other
// threads.
type Residency struct {
	pool     *chunk.Pool
	composer *sdf.Composer
	jobs     *jobpool.Pool
	cfg      config.ResidencyConfig
	mesher   config.MesherConfig
	log      logging.Logger
	sink     DebugSink

	geoDirty map[chunk.Coord]bool
	pending  map[chunk.Coord]*jobpool.Job // coord -> job currently Running/PendingFinish for it

	mu sync.RWMutex // guards liveSnapshot, read by Query from any thread
	liveSnapshot map[chunk.Coord]*chunk.Chunk
}

func New(pool *chunk.Pool, composer *sdf.Composer, jobs *jobpool.Pool, cfg config.ResidencyConfig, mesherCfg config.MesherConfig, log logging.Logger) *Residency {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Residency{
		pool:         pool,
		composer:     composer,
		jobs:         jobs,
		cfg:          cfg,
		mesher:       mesherCfg,
		log:          log,
		geoDirty:     make(map[chunk.Coord]bool),
		pending:      make(map[chunk.Coord]*jobpool.Job),
		liveSnapshot: make(map[chunk.Coord]*chunk.Chunk),
	}
}

// SetDebugSink installs the optional diagnostics callback.
func (r *Residency) SetDebugSink(sink DebugSink) { r.sink = sink }

// candidate is one scored chunk coord considered for this tick's target set.
type candidate struct {
	coord chunk.Coord
	score float32
	live  bool
}

// Update runs exactly one residency tick: drain invalidations, score
// candidates, allocate/free pool slots, dispatch new jobs, and integrate
// finished ones. Must run on the caller's single control thread.
func (r *Residency) Update(center mgl32.Vec3, radius float32, side int) {
	r.drainInvalidationsLocked(side)

	candidates := r.scoreCandidates(center, radius, side)
	target := r.selectTarget(candidates)

	r.allocateAndFree(target, candidates, side)
	r.dispatchNew(target, side)
	r.integrateFinished()
	r.publishLiveSnapshot()
}

// drainInvalidationsLocked marks geoDirty every chunk coord whose AABB
// intersects a drained invalidation AABB (spec.md §4.5 step 1, §8 invariant 3).
func (r *Residency) drainInvalidationsLocked(side int) {
	for _, box := range r.composer.DrainInvalidations() {
		for _, c := range coordsOverlapping(box, side) {
			r.geoDirty[c] = true
		}
	}
}

// coordsOverlapping enumerates every chunk coord whose cube intersects box.
func coordsOverlapping(box sdf.AABB, side int) []chunk.Coord {
	minC := chunk.FromWorld(box.Min, side)
	maxC := chunk.FromWorld(box.Max, side)
	var out []chunk.Coord
	for x := minC.X; x <= maxC.X; x++ {
		for y := minC.Y; y <= maxC.Y; y++ {
			for z := minC.Z; z <= maxC.Z; z++ {
				c := chunk.Coord{X: x, Y: y, Z: z}
				if c.AABB(side).Intersects(box) {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// scoreCandidates enumerates every coord within radius of center and scores
// it, applying the hysteresis bias to already-Live chunks.
func (r *Residency) scoreCandidates(center mgl32.Vec3, radius float32, side int) []candidate {
	minC := chunk.FromWorld(center.Sub(mgl32.Vec3{radius, radius, radius}), side)
	maxC := chunk.FromWorld(center.Add(mgl32.Vec3{radius, radius, radius}), side)

	var out []candidate
	for x := minC.X; x <= maxC.X; x++ {
		for y := minC.Y; y <= maxC.Y; y++ {
			for z := minC.Z; z <= maxC.Z; z++ {
				coord := chunk.Coord{X: x, Y: y, Z: z}
				centerOf := coord.Center(side)
				d := centerOf.Sub(center).Len()
				if d > radius {
					continue
				}
				live := false
				if c, ok := r.pool.Get(coord); ok && c.Status() == chunk.Live {
					live = true
				}
				score := d
				if live {
					score -= r.cfg.HysteresisBias
				}
				out = append(out, candidate{coord: coord, score: score, live: live})
			}
		}
	}
	return out
}

// selectTarget picks the lowest-scored MaxActive candidates.
func (r *Residency) selectTarget(candidates []candidate) map[chunk.Coord]bool {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].score < sorted[j].score })

	n := r.cfg.MaxActive
	if n > len(sorted) {
		n = len(sorted)
	}
	target := make(map[chunk.Coord]bool, n)
	for i := 0; i < n; i++ {
		target[sorted[i].coord] = true
	}
	return target
}

// allocateAndFree brings the pool's allocation in line with target: allocate
// target coords not yet allocated (ResourceExhausted skips silently, retried
// next tick), then rank every allocated coord by score and free those
// ranked after the best MaxLoaded.
func (r *Residency) allocateAndFree(target map[chunk.Coord]bool, candidates []candidate, side int) {
	for coord := range target {
		if r.pool.Allocated(coord) {
			continue
		}
		if _, ok := r.pool.Allocate(coord); !ok {
			r.log.Debugf("residency: chunk pool exhausted, skipping %v this tick", coord)
			continue
		}
	}

	scoreOf := make(map[chunk.Coord]float32, len(candidates))
	for _, c := range candidates {
		scoreOf[c.coord] = c.score
	}

	type scored struct {
		coord chunk.Coord
		score float32
	}
	var allocated []scored
	for _, coord := range r.pool.Coords() {
		s, known := scoreOf[coord]
		if !known {
			s = float32(1e18) // out of radius entirely: worst possible
		}
		allocated = append(allocated, scored{coord: coord, score: s})
	}
	sort.Slice(allocated, func(i, j int) bool { return allocated[i].score < allocated[j].score })

	for i, a := range allocated {
		if i >= r.cfg.MaxLoaded {
			r.pool.Free(a.coord)
			delete(r.geoDirty, a.coord)
			delete(r.pending, a.coord)
		}
	}
}

// dispatchNew dispatches up to MaxNewJobsPerTick jobs for target chunks that
// are Empty or geoDirty and not already Pending.
func (r *Residency) dispatchNew(target map[chunk.Coord]bool, side int) {
	dispatched := 0
	snap := r.composer.Snapshot()

	coords := make([]chunk.Coord, 0, len(target))
	for c := range target {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		return coordLess(coords[i], coords[j])
	})

	for _, coord := range coords {
		if dispatched >= r.cfg.MaxNewJobsPerTick {
			break
		}
		c, ok := r.pool.Get(coord)
		if !ok {
			continue
		}
		if _, busy := r.pending[coord]; busy {
			continue
		}
		needsWork := c.Status() == chunk.Empty || r.geoDirty[coord]
		if !needsWork {
			continue
		}

		job := r.findIdleJob()
		if job == nil {
			break // no idle worker slots; retried next tick
		}
		if err := r.jobs.Dispatch(job, coord, snap, r.mesher.SdfBoundary); err != nil {
			r.log.LogErr(fmt.Sprintf("residency: dispatch %v", coord), err)
			continue
		}
		c.SetStatus(chunk.Pending)
		r.pending[coord] = job
		dispatched++
	}
}

func (r *Residency) findIdleJob() *jobpool.Job {
	for _, j := range r.jobs.Jobs() {
		if j.State() == jobpool.Idle {
			return j
		}
	}
	return nil
}

func coordLess(a, b chunk.Coord) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// integrateFinished publishes every PendingFinish job's result into its
// Chunk and returns the job to Idle (spec.md §4.5 step 5).
func (r *Residency) integrateFinished() {
	for coord, job := range r.pending {
		if job.State() != jobpool.PendingFinish {
			continue
		}
		_, result, err := job.Result()
		c, ok := r.pool.Get(coord)
		if !ok {
			r.jobs.Integrate(job)
			delete(r.pending, coord)
			continue
		}

		if err != nil {
			r.log.LogErr(fmt.Sprintf("residency: mesh job %v", coord), err)
			if r.sink != nil {
				r.sink(coord.Center(c.Side), "saturation")
			}
			c.Publish(chunkEmptyMesh(), emptyClassification(c.Side), emptyVertexIndex(c.Side))
		} else {
			c.Publish(result.Mesh, result.Classification, result.VertexIndex)
		}

		c.SetStatus(chunk.Live)
		delete(r.geoDirty, coord)
		r.jobs.Integrate(job)
		delete(r.pending, coord)

		if r.sink != nil && err == nil {
			r.sink(coord.Center(c.Side), "chunk published")
		}
	}
}

// publishLiveSnapshot refreshes the Query-facing live map; cheap because it
// only copies pointers, not chunk contents.
func (r *Residency) publishLiveSnapshot() {
	next := make(map[chunk.Coord]*chunk.Chunk, len(r.pool.Coords()))
	for _, coord := range r.pool.Coords() {
		c, ok := r.pool.Get(coord)
		if ok && c.Status() == chunk.Live {
			next[coord] = c
		}
	}
	r.mu.Lock()
	r.liveSnapshot = next
	r.mu.Unlock()
}

// Live returns the currently Live chunk at coord, safe to call from any
// thread (spec.md §4.6).
func (r *Residency) Live(coord chunk.Coord) (*chunk.Chunk, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.liveSnapshot[coord]
	return c, ok
}

// LiveChunks returns every currently Live chunk, safe from any thread.
func (r *Residency) LiveChunks() map[chunk.Coord]*chunk.Chunk {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[chunk.Coord]*chunk.Chunk, len(r.liveSnapshot))
	for k, v := range r.liveSnapshot {
		out[k] = v
	}
	return out
}

func chunkEmptyMesh() chunk.Mesh { return chunk.Mesh{} }

func emptyClassification(side int) []chunk.BlockType {
	n := side * side * side
	out := make([]chunk.BlockType, n)
	for i := range out {
		out[i] = chunk.Exterior
	}
	return out
}

func emptyVertexIndex(side int) []int32 {
	n := side * side * side
	out := make([]int32, n)
	for i := range out {
		out[i] = chunk.InvalidVertexIndex
	}
	return out
}
