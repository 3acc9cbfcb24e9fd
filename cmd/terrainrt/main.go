// Command terrainrt is a headless demo of the streaming terrain engine: it
// composes a small scene, runs a fixed number of residency ticks (-ticks),
// and prints the resulting chunk census. No renderer, window, or GPU
// dependency — those are out of scope for the core.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/config"
	"github.com/gekko3d/voxelterrain/logging"
	"github.com/gekko3d/voxelterrain/sdf"
	"github.com/gekko3d/voxelterrain/terrain"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	ticks := flag.Int("ticks", 8, "number of residency ticks to run")
	radius := flag.Float64("radius", 80, "view radius around the origin")
	flag.Parse()

	log := logging.NewDefaultLogger("terrainrt", *debug)

	cfg := config.Default()
	engine := terrain.InitWithOptions(terrain.Options{Config: cfg, Logger: log}, 0)
	defer engine.Terminate()

	engine.SetDebugSink(func(pos mgl32.Vec3, label string) {
		log.Debugf("sink: %s at %v", label, pos)
	})

	ground, err := engine.CreateBox(sdf.Union, 0, 0)
	if err != nil {
		panic(err)
	}
	groundT := sdf.NewTransform()
	groundT.Position = mgl32.Vec3{0, -40, 0}
	groundT.Scale = mgl32.Vec3{120, 20, 120}
	if err := engine.SetTransform(ground, groundT); err != nil {
		panic(err)
	}

	pillar, err := engine.CreateCylinder(sdf.Subtraction, 1, 0.6, 0.6)
	if err != nil {
		panic(err)
	}
	pillarT := sdf.NewTransform()
	pillarT.Position = mgl32.Vec3{10, -20, 0}
	pillarT.Scale = mgl32.Vec3{6, 30, 6}
	if err := engine.SetTransform(pillar, pillarT); err != nil {
		panic(err)
	}

	engine.Flush()

	center := mgl32.Vec3{0, 0, 0}
	for i := 0; i < *ticks; i++ {
		time.Sleep(5 * time.Millisecond)
		engine.Update(center, float32(*radius))
	}

	report(engine, cfg.Chunk.Side, center, float32(*radius))
}

func report(engine *terrain.Engine, side int, center mgl32.Vec3, radius float32) {
	live := 0
	nonEmpty := 0
	coord := chunk.FromWorld(center, side)
	for x := coord.X - 3; x <= coord.X+3; x++ {
		for y := coord.Y - 3; y <= coord.Y+3; y++ {
			for z := coord.Z - 3; z <= coord.Z+3; z++ {
				c, ok := engine.GetChunk(chunk.Coord{X: x, Y: y, Z: z})
				if !ok {
					continue
				}
				live++
				if len(c.Mesh().Vertices) > 0 {
					nonEmpty++
				}
			}
		}
	}
	fmt.Printf("live chunks near origin: %d (non-empty: %d)\n", live, nonEmpty)

	if hit, ok := engine.Raycast(mgl32.Vec3{0, 100, 0}, mgl32.Vec3{0, -1, 0}, 200); ok {
		fmt.Printf("raycast hit at %v, distance %.2f\n", hit.Position, hit.Distance)
	} else {
		fmt.Println("raycast: no hit")
	}
}
