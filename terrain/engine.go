// Package terrain exposes the public engine API spec.md §6 describes:
// Init/Update/Terminate and the Composer/Query passthroughs, wiring the
// composer, chunk pool, job pool, residency, and query packages together.
package terrain

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/config"
	"github.com/gekko3d/voxelterrain/heightmap"
	"github.com/gekko3d/voxelterrain/jobpool"
	"github.com/gekko3d/voxelterrain/logging"
	"github.com/gekko3d/voxelterrain/query"
	"github.com/gekko3d/voxelterrain/residency"
	"github.com/gekko3d/voxelterrain/sdf"
)

// Engine is the single entry point a host application embeds: it owns every
// other package instance and is the only thing that needs a lifetime.
type Engine struct {
	cfg       *config.Config
	log       logging.Logger
	composer  *sdf.Composer
	pool      *chunk.Pool
	jobs      *jobpool.Pool
	residency *residency.Residency
	query     *query.Query

	renderEnabled bool
}

// Options customizes Init beyond config defaults.
type Options struct {
	Config        *config.Config
	Logger        logging.Logger
	RenderEnabled bool
}

// Init builds the engine: composer, chunk pool (sized Residency.MaxLoaded,
// which the default config sets to 2x MaxActive), job pool, and
// residency/query wiring. maxThreads<=0 falls back to the config's
// Jobs.WorkerCount, and to 3/4 of runtime.NumCPU when that is also <=0.
func Init(maxThreads int, renderEnabled bool) *Engine {
	return InitWithOptions(Options{RenderEnabled: renderEnabled}, maxThreads)
}

// InitWithOptions is Init with an injectable config/logger, mainly for tests
// and the demo command.
func InitWithOptions(opts Options, maxThreads int) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewDefaultLogger("terrain", false)
	}

	composer := sdf.NewComposer()
	pool := chunk.NewPool(cfg.Residency.MaxLoaded, cfg.Chunk.Side)

	workerCount := maxThreads
	if workerCount <= 0 {
		workerCount = jobpool.WorkerCount(cfg.Jobs.WorkerCount)
	}
	// Job slots sized to the tick's in-flight budget: MaxNewJobsPerTick jobs
	// may be Running/PendingFinish simultaneously, plus headroom for workers.
	jobCount := cfg.Residency.MaxNewJobsPerTick + workerCount
	jobs := jobpool.New(jobCount, workerCount, cfg.Chunk.Side, cfg.Mesher.QefIter, log)

	res := residency.New(pool, composer, jobs, cfg.Residency, cfg.Mesher, log)
	q := query.New(res, cfg.Chunk.Side)

	log.Infof("terrain: engine initialized (side=%d, workers=%d, maxActive=%d, maxLoaded=%d)",
		cfg.Chunk.Side, workerCount, cfg.Residency.MaxActive, cfg.Residency.MaxLoaded)

	return &Engine{
		cfg:           cfg,
		log:           log,
		composer:      composer,
		pool:          pool,
		jobs:          jobs,
		residency:     res,
		query:         q,
		renderEnabled: opts.RenderEnabled,
	}
}

// Terminate waits for all in-flight jobs to finish and releases resources.
func (e *Engine) Terminate() {
	e.jobs.Close()
}

// Update runs one Residency tick.
func (e *Engine) Update(center mgl32.Vec3, radius float32) {
	e.residency.Update(center, radius, e.cfg.Chunk.Side)
}

// SetDebugSink installs the optional diagnostics observer.
func (e *Engine) SetDebugSink(sink residency.DebugSink) {
	e.residency.SetDebugSink(sink)
}

// CreateBox, CreateCylinder, CreateHeightmap, DestroyShape, SetTransform,
// MarkDirty passthrough to the Composer (spec.md §6).
func (e *Engine) CreateBox(op sdf.Op, material sdf.MaterialID, cornerRadius float32) (*sdf.Shape, error) {
	return e.composer.CreateBox(op, material, cornerRadius)
}

func (e *Engine) CreateCylinder(op sdf.Op, material sdf.MaterialID, bottom, top float32) (*sdf.Shape, error) {
	return e.composer.CreateCylinder(op, material, bottom, top)
}

func (e *Engine) CreateHeightmap(op sdf.Op, material sdf.MaterialID, sampler heightmap.Sampler) (*sdf.Shape, error) {
	return e.composer.CreateHeightmap(op, material, sampler)
}

func (e *Engine) DestroyShape(s *sdf.Shape) { e.composer.DestroyShape(s) }

func (e *Engine) SetTransform(s *sdf.Shape, t *sdf.Transform) error {
	return e.composer.SetTransform(s, t)
}

func (e *Engine) MarkDirty(s *sdf.Shape) { e.composer.MarkDirty(s) }

// Flush merges pending shape mutations; callers that need mutations visible
// to the next Update without waiting for Update to call it implicitly can
// call this directly. Update does not call it automatically: spec.md §3
// requires mutations merge only "at a single safe point" the caller
// controls, and Composer.Snapshot in dispatchNew already reads whatever was
// last flushed.
func (e *Engine) Flush() { e.composer.Flush() }

// GetChunk returns the Live chunk at coord, or ok=false if it isn't
// currently resident.
func (e *Engine) GetChunk(coord chunk.Coord) (*chunk.Chunk, bool) {
	return e.residency.Live(coord)
}

// GetVoxel returns the classification of the voxel containing worldPos.
func (e *Engine) GetVoxel(worldPos mgl32.Vec3) (chunk.BlockType, bool) {
	return e.query.Voxel(worldPos)
}

func (e *Engine) Raycast(origin, dir mgl32.Vec3, maxDistance float32) (query.RaycastHit, bool) {
	return e.query.Raycast(origin, dir, maxDistance)
}

func (e *Engine) SweepSphere(origin mgl32.Vec3, radius float32, dir mgl32.Vec3, maxDistance float32) (query.SweepHit, bool) {
	return e.query.SweepSphere(origin, radius, dir, maxDistance)
}

func (e *Engine) PushOutSphere(center mgl32.Vec3, radius float32) (mgl32.Vec3, bool, bool) {
	return e.query.PushOutSphere(center, radius)
}

// Config returns the engine's resolved configuration (read-only use).
func (e *Engine) Config() *config.Config { return e.cfg }
