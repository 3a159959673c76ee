package geometry

import (
	"math"

	"github.com/df07/go-ocean-raytracer/pkg/core"
)

// hitPointOffset is the relative distance hit points are pushed off the
// surface so that spawned rays do not re-intersect it
const hitPointOffset = 1e-5

// RefineAndOffsetHitPoint re-intersects the ray with the plane through
// planePoint with the given normal to reduce the error accumulated in
// origin + t*direction, then offsets the refined point to both sides of the
// plane. front lies on the side the ray arrived from, back on the far side.
func RefineAndOffsetHitPoint(hitPoint, direction, normal, planePoint core.Vec3) (refined, back, front core.Vec3) {
	refined = hitPoint
	dn := direction.Dot(normal)
	if dn != 0 {
		refinedT := -hitPoint.Subtract(planePoint).Dot(normal) / dn
		refined = hitPoint.Add(direction.Multiply(refinedT))
	}

	n := normal.Normalize()
	if dn > 0 {
		return refined, offsetPoint(refined, n), offsetPoint(refined, n.Negate())
	}
	return refined, offsetPoint(refined, n.Negate()), offsetPoint(refined, n)
}

// offsetPoint moves p along n by an amount that scales with the magnitude of p
func offsetPoint(p, n core.Vec3) core.Vec3 {
	scale := hitPointOffset * math.Max(1, p.MaxAbsComponent())
	return p.Add(n.Multiply(scale))
}
