package geometry

import "github.com/df07/go-ocean-raytracer/pkg/core"

// triangleEpsilon is the determinant magnitude below which a ray is treated as
// lying in the triangle's plane
const triangleEpsilon = 1e-12

// IntersectTriangle tests a ray against the triangle (p0, p1, p2) using the
// Möller-Trumbore algorithm. It returns the ray parameter t, the barycentric
// coordinates (beta, gamma) of the hit relative to p1 and p2, and the
// unnormalized face normal (p1-p0)×(p2-p0). The range check against the ray's
// parametric interval is left to the caller.
func IntersectTriangle(ray core.Ray, p0, p1, p2 core.Vec3) (t, beta, gamma float64, normal core.Vec3, ok bool) {
	edge1 := p1.Subtract(p0)
	edge2 := p2.Subtract(p0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -triangleEpsilon && a < triangleEpsilon {
		return 0, 0, 0, core.Vec3{}, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(p0)
	beta = f * s.Dot(h)
	if beta < 0.0 || beta > 1.0 {
		return 0, 0, 0, core.Vec3{}, false
	}

	q := s.Cross(edge1)
	gamma = f * ray.Direction.Dot(q)
	if gamma < 0.0 || beta+gamma > 1.0 {
		return 0, 0, 0, core.Vec3{}, false
	}

	t = f * edge2.Dot(q)
	return t, beta, gamma, edge1.Cross(edge2), true
}
