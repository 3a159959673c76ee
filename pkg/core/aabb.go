package core

import "math"

// parallelEpsilon is the direction magnitude below which a ray is treated as
// parallel to a slab
const parallelEpsilon = 1e-12

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min Vec3 // Minimum corner
	Max Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	min := points[0]
	max := points[0]

	for _, point := range points[1:] {
		min.X = math.Min(min.X, point.X)
		min.Y = math.Min(min.Y, point.Y)
		min.Z = math.Min(min.Z, point.Z)

		max.X = math.Max(max.X, point.X)
		max.Y = math.Max(max.Y, point.Y)
		max.Z = math.Max(max.Z, point.Z)
	}

	return AABB{Min: min, Max: max}
}

// Intersect computes the parametric interval where the ray overlaps the box
// using the slab method: tnear is the largest per-axis entry distance and tfar
// the smallest per-axis exit distance. The interval is empty when tnear >= tfar.
// Axes the ray is parallel to never produce NaN: an origin inside the slab
// leaves the interval unconstrained, an origin outside empties it.
func (aabb AABB) Intersect(ray Ray) (tnear, tfar float64) {
	tnear = math.Inf(-1)
	tfar = math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		lo := aabb.Min.Component(axis)
		hi := aabb.Max.Component(axis)
		origin := ray.Origin.Component(axis)
		direction := ray.Direction.Component(axis)

		if math.Abs(direction) < parallelEpsilon {
			if origin < lo || origin > hi {
				return math.Inf(1), math.Inf(-1)
			}
			continue
		}

		invDirection := 1.0 / direction
		t0 := (lo - origin) * invDirection
		t1 := (hi - origin) * invDirection
		if t0 > t1 {
			t0, t1 = t1, t0
		}

		tnear = math.Max(tnear, t0)
		tfar = math.Min(tfar, t1)
	}

	return tnear, tfar
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() Vec3 {
	return aabb.Max.Subtract(aabb.Min)
}

// Expand returns an AABB expanded by the given amount in all directions
func (aabb AABB) Expand(amount float64) AABB {
	expansion := NewVec3(amount, amount, amount)
	return AABB{
		Min: aabb.Min.Subtract(expansion),
		Max: aabb.Max.Add(expansion),
	}
}
