package geometry

import "github.com/df07/go-ocean-raytracer/pkg/core"

// ComputeNormals derives per-vertex normals for a height grid indexed [u][v]
// using central differences (one-sided along the borders). cellSizeU and
// cellSizeV are the world-space sample spacings along X and Z.
func ComputeNormals(heights [][]float64, cellSizeU, cellSizeV float64) [][]core.Vec3 {
	nu := len(heights)
	if nu == 0 {
		return nil
	}
	nv := len(heights[0])

	normals := make([][]core.Vec3, nu)
	for u := 0; u < nu; u++ {
		normals[u] = make([]core.Vec3, nv)
		u0, u1 := max(u-1, 0), min(u+1, nu-1)
		for v := 0; v < nv; v++ {
			v0, v1 := max(v-1, 0), min(v+1, nv-1)

			var dhdx, dhdz float64
			if u1 > u0 {
				dhdx = (heights[u1][v] - heights[u0][v]) / (float64(u1-u0) * cellSizeU)
			}
			if v1 > v0 {
				dhdz = (heights[u][v1] - heights[u][v0]) / (float64(v1-v0) * cellSizeV)
			}

			normals[u][v] = core.NewVec3(-dhdx, 1, -dhdz).Normalize()
		}
	}
	return normals
}
