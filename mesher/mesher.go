// Package mesher implements dual contouring: it turns a sampled SdfCache into
// a per-chunk triangle Mesh plus the classification and vertex-index grids
// Chunk.Publish needs, per spec.md §4.3.
package mesher

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxelterrain/cache"
	"github.com/gekko3d/voxelterrain/chunk"
	"github.com/gekko3d/voxelterrain/errs"
)

// cellOffset2 enumerates, for an edge along a given axis, the (dy,dz)/(dx,dz)/
// (dx,dy) offsets of the up to four cells sharing that edge.
var cellOffset2 = [4][2]int{{-1, -1}, {-1, 0}, {0, -1}, {0, 0}}

// Mesher runs dual contouring against one job's SdfCache and Scratch,
// producing the mesh and grids Chunk.Publish expects. Stateless beyond its
// scratch buffers; safe for one job at a time (the Scratch is not shared
// across concurrent jobs).
type Mesher struct {
	side       int
	bisectIter int
}

func New(side, bisectIter int) *Mesher {
	return &Mesher{side: side, bisectIter: bisectIter}
}

// Result is everything a completed mesh run publishes to a Chunk.
type Result struct {
	Mesh           chunk.Mesh
	Classification []chunk.BlockType
	VertexIndex    []int32
}

// Run executes the full dual-contouring pipeline for one chunk: edge scan,
// vertex placement, quad emission, and classification. origin is the chunk's
// world-space minimum corner (chunk-local position 0,0,0 in world space).
// Returns a Saturation error (with an empty Result's budget exceeded) if the
// vertex or index budget would be exceeded, per spec.md §4.3 step 5.
func (m *Mesher) Run(c *cache.SdfCache, scratch *Scratch, origin mgl32.Vec3) (Result, error) {
	scratch.reset()
	side := m.side

	scanEdges(c, scratch, m.bisectIter)
	gatherCells(scratch)

	n := side * side * side
	classification := make([]chunk.BlockType, n)
	vertexIndex := make([]int32, n)
	for i := range vertexIndex {
		vertexIndex[i] = chunk.InvalidVertexIndex
	}

	maxVerts := n
	maxIndices := n * 6

	var verts []chunk.Vertex
	for z := 0; z < side; z++ {
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				cell := scratch.cellCrossings[scratch.cellIndex(x, y, z)]
				if len(cell) == 0 {
					continue
				}
				if len(verts) >= maxVerts {
					return Result{}, errs.Newf(errs.Saturation, "mesher.Run",
						"chunk vertex budget exceeded (%d)", maxVerts)
				}
				cellMin := mgl32.Vec3{float32(x), float32(y), float32(z)}
				local := solveQEF(cell, cellMin)
				idx := scratch.cellIndex(x, y, z)
				vertexIndex[idx] = int32(len(verts))
				classification[idx] = chunk.Surface

				mat := majorityMaterial(cell)
				normal := averageNormal(cell)
				verts = append(verts, chunk.Vertex{
					Position:  origin.Add(local),
					Normal:    normal,
					Materials: [4]uint8{mat, 0, 0, 0},
					Info:      [4]uint8{255, 0, 0, 0},
				})
			}
		}
	}

	indices, err := emitQuads(scratch, vertexIndex, maxIndices)
	if err != nil {
		return Result{}, err
	}

	classifyNonSurface(c, scratch, classification)

	return Result{
		Mesh:           chunk.Mesh{Vertices: verts, Indices: indices},
		Classification: classification,
		VertexIndex:    vertexIndex,
	}, nil
}

// gatherCells walks every crossing edge and appends it to the crossing list
// of each cell whose 12-edge boundary includes that edge (up to 4 per edge).
func gatherCells(scratch *Scratch) {
	side := scratch.side
	d := scratch.edgeDim()
	for z := 0; z < d; z++ {
		for y := 0; y < d; y++ {
			for x := 0; x < d; x++ {
				for axis := 0; axis < 3; axis++ {
					idx := scratch.edgeIndex(x, y, z, axis)
					if !scratch.edgeValid[idx] {
						continue
					}
					cr := scratch.edgeCrossing[idx]
					for _, off := range cellOffset2 {
						var cx, cy, cz int
						switch axis {
						case 0:
							cx, cy, cz = x, y+off[0], z+off[1]
						case 1:
							cx, cy, cz = x+off[0], y, z+off[1]
						case 2:
							cx, cy, cz = x+off[0], y+off[1], z
						}
						if cx < 0 || cy < 0 || cz < 0 || cx >= side || cy >= side || cz >= side {
							continue
						}
						ci := scratch.cellIndex(cx, cy, cz)
						scratch.cellCrossings[ci] = append(scratch.cellCrossings[ci], cr)
					}
				}
			}
		}
	}
}

func averageNormal(points []crossing) mgl32.Vec3 {
	sum := mgl32.Vec3{}
	for _, c := range points {
		sum = sum.Add(c.Normal)
	}
	l := sum.Len()
	if l < 1e-12 {
		return mgl32.Vec3{0, 0, 1}
	}
	return sum.Mul(1 / l)
}

// emitQuads joins, for every crossing edge whose four owning cells all lie
// within the chunk, the four cell vertices into a quad, winding chosen so the
// counter-clockwise front face points along the crossing's normal (toward
// the side where the field is positive). Each quad is split into two
// triangles along one fixed diagonal of its emitted corner order; the two
// diagonals' lengths are not compared.
func emitQuads(scratch *Scratch, vertexIndex []int32, maxIndices int) ([]uint16, error) {
	side := scratch.side
	d := scratch.edgeDim()
	var indices []uint16

	for z := 0; z < d; z++ {
		for y := 0; y < d; y++ {
			for x := 0; x < d; x++ {
				for axis := 0; axis < 3; axis++ {
					idx := scratch.edgeIndex(x, y, z, axis)
					if !scratch.edgeValid[idx] {
						continue
					}

					var cells [4][3]int
					ok := true
					for i, off := range cellOffset2 {
						var cx, cy, cz int
						switch axis {
						case 0:
							cx, cy, cz = x, y+off[0], z+off[1]
						case 1:
							cx, cy, cz = x+off[0], y, z+off[1]
						case 2:
							cx, cy, cz = x+off[0], y+off[1], z
						}
						if cx < 0 || cy < 0 || cz < 0 || cx >= side || cy >= side || cz >= side {
							ok = false
							break
						}
						cells[i] = [3]int{cx, cy, cz}
					}
					if !ok {
						continue
					}

					var vi [4]int32
					for i, c := range cells {
						vi[i] = vertexIndex[scratch.cellIndex(c[0], c[1], c[2])]
						if vi[i] == chunk.InvalidVertexIndex {
							ok = false
							break
						}
					}
					if !ok {
						continue
					}

					// The base corner order faces -X for X edges, +Y for Y edges
					// and -Z for Z edges; flip it to face along the normal.
					flip := scratch.edgeCrossing[idx].Normal.Dot(axisOffset[axis]) < 0
					if axis != 1 {
						flip = !flip
					}

					quad := [4]int32{vi[0], vi[1], vi[3], vi[2]}
					if flip {
						quad[0], quad[1], quad[2], quad[3] = quad[3], quad[2], quad[1], quad[0]
					}

					if len(indices)+6 > maxIndices {
						return nil, errs.Newf(errs.Saturation, "mesher.emitQuads",
							"chunk index budget exceeded (%d)", maxIndices)
					}
					indices = append(indices,
						uint16(quad[0]), uint16(quad[1]), uint16(quad[2]),
						uint16(quad[0]), uint16(quad[2]), uint16(quad[3]),
					)
				}
			}
		}
	}
	return indices, nil
}

// classifyNonSurface fills Interior/Exterior/Blocking for every voxel that
// owns no vertex, per spec.md §4.3 step 4: Interior if every corner sample
// is negative, Exterior if every corner sample is positive, Blocking if
// outside but adjacent (face-neighbor) to a Surface voxel.
func classifyNonSurface(c *cache.SdfCache, scratch *Scratch, classification []chunk.BlockType) {
	side := scratch.side
	for z := 0; z < side; z++ {
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				idx := scratch.cellIndex(x, y, z)
				if classification[idx] == chunk.Surface {
					continue
				}

				allNeg, allPos := true, true
				for dz := 0; dz <= 1; dz++ {
					for dy := 0; dy <= 1; dy++ {
						for dx := 0; dx <= 1; dx++ {
							p := mgl32.Vec3{float32(x + dx), float32(y + dy), float32(z + dz)}
							v := c.ValueChunkLocal(p)
							if v < 0 {
								allPos = false
							} else {
								allNeg = false
							}
						}
					}
				}

				switch {
				case allNeg:
					classification[idx] = chunk.Interior
				case allPos:
					if adjacentToSurface(scratch, classification, x, y, z) {
						classification[idx] = chunk.Blocking
					} else {
						classification[idx] = chunk.Exterior
					}
				default:
					// Mixed-sign but ownerless (e.g. its owning vertex's
					// budget was exceeded upstream); treat as Blocking so
					// queries still refuse to pass through it.
					classification[idx] = chunk.Blocking
				}
			}
		}
	}
}

func adjacentToSurface(scratch *Scratch, classification []chunk.BlockType, x, y, z int) bool {
	side := scratch.side
	neighbors := [6][3]int{
		{x - 1, y, z}, {x + 1, y, z},
		{x, y - 1, z}, {x, y + 1, z},
		{x, y, z - 1}, {x, y, z + 1},
	}
	for _, n := range neighbors {
		if n[0] < 0 || n[1] < 0 || n[2] < 0 || n[0] >= side || n[1] >= side || n[2] >= side {
			continue
		}
		if classification[scratch.cellIndex(n[0], n[1], n[2])] == chunk.Surface {
			return true
		}
	}
	return false
}
