package mesher

import "github.com/go-gl/mathgl/mgl32"

// crossing is one (position, normal, material) sample where a voxel edge
// crosses the surface; dual contouring collects these per cell to place its
// vertex.
type crossing struct {
	Pos      mgl32.Vec3
	Normal   mgl32.Vec3
	Material uint8
}

// solveQEF finds the least-squares point minimizing sum((p-pi).ni)^2 over
// the given crossings, i.e. the intersection of their tangent planes,
// falling back to the mean position when the normal-equations matrix is
// ill-conditioned (near-parallel or too few independent planes).
func solveQEF(points []crossing, cellMin mgl32.Vec3) mgl32.Vec3 {
	mean := meanPos(points)
	if len(points) < 2 {
		return clampToCube(mean, cellMin)
	}

	// Accumulate the normal equations A^T A x = A^T b, with b_i = ni . pi,
	// recentered at the mean for numerical stability.
	var ata mgl32.Mat3
	var atb mgl32.Vec3
	for _, c := range points {
		n := c.Normal
		p := c.Pos.Sub(mean)
		b := n.Dot(p)

		ata[0] += n.X() * n.X()
		ata[1] += n.Y() * n.X()
		ata[2] += n.Z() * n.X()
		ata[3] += n.X() * n.Y()
		ata[4] += n.Y() * n.Y()
		ata[5] += n.Z() * n.Y()
		ata[6] += n.X() * n.Z()
		ata[7] += n.Y() * n.Z()
		ata[8] += n.Z() * n.Z()

		atb = atb.Add(n.Mul(b))
	}

	sol, ok := solve3x3(ata, atb)
	if !ok {
		return clampToCube(mean, cellMin)
	}
	return clampToCube(sol.Add(mean), cellMin)
}

// solve3x3 solves Ax=b via Cramer's rule, reporting ok=false when |A| is too
// small to trust (the ill-conditioned case spec.md calls out).
func solve3x3(a mgl32.Mat3, b mgl32.Vec3) (mgl32.Vec3, bool) {
	det := a.Det()
	const conditionThreshold = 1e-6
	if det < conditionThreshold && det > -conditionThreshold {
		return mgl32.Vec3{}, false
	}

	// Replace each column of A with b and take the determinant ratio.
	// mgl32.Mat3 is column-major: column j occupies indices [3j, 3j+1, 3j+2].
	ax := a
	ax[0], ax[1], ax[2] = b.X(), b.Y(), b.Z()
	ay := a
	ay[3], ay[4], ay[5] = b.X(), b.Y(), b.Z()
	az := a
	az[6], az[7], az[8] = b.X(), b.Y(), b.Z()

	return mgl32.Vec3{ax.Det() / det, ay.Det() / det, az.Det() / det}, true
}

func meanPos(points []crossing) mgl32.Vec3 {
	if len(points) == 0 {
		return mgl32.Vec3{0.5, 0.5, 0.5}
	}
	sum := mgl32.Vec3{}
	for _, c := range points {
		sum = sum.Add(c.Pos)
	}
	return sum.Mul(1.0 / float32(len(points)))
}

func clampToCube(p, cellMin mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		clampf(p.X(), cellMin.X(), cellMin.X()+1),
		clampf(p.Y(), cellMin.Y(), cellMin.Y()+1),
		clampf(p.Z(), cellMin.Z(), cellMin.Z()+1),
	}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// majorityMaterial picks the most common material among crossings; ties
// break to the lowest material id.
func majorityMaterial(points []crossing) uint8 {
	counts := make(map[uint8]int, len(points))
	for _, c := range points {
		counts[c.Material]++
	}
	best := uint8(255)
	bestCount := -1
	for mat, n := range counts {
		if n > bestCount || (n == bestCount && mat < best) {
			bestCount = n
			best = mat
		}
	}
	return best
}
