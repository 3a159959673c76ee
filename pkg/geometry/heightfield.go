package geometry

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
)

const (
	// ErrTypeInvalidHeightfield tags errors caused by malformed heightfield input.
	ErrTypeInvalidHeightfield = "invalid_heightfield"

	// boxEpsilon rejects boxes that lie entirely behind the ray origin
	boxEpsilon = 1e-6

	// boxPadding pads the traversal box vertically, relative to the cell size,
	// so that a perfectly flat grid still has a non-empty slab interval
	boxPadding = 1e-4
)

// Report tells the intersector what to do with a candidate hit
type Report int

const (
	// ReportContinue rejects the candidate and keeps scanning
	ReportContinue Report = iota
	// ReportAcceptStop accepts the candidate and ends the traversal
	ReportAcceptStop
	// ReportAcceptContinue accepts the candidate, shortens the ray to it and keeps scanning
	ReportAcceptContinue
)

// Reporter receives candidate hits in traversal order
type Reporter func(hit Hit) Report

// Hit holds the attributes attached to an accepted heightfield intersection
type Hit struct {
	T               float64   // Ray parameter of the hit
	Point           core.Vec3 // origin + T*direction
	GeometricNormal core.Vec3 // Normalized face normal of the hit triangle
	ShadingNormal   core.Vec3 // Bilinear blend of the cell's corner normals
	TexCoord        core.Vec3 // Position across the grid in [0,1]², Z unused
	FrontHitPoint   core.Vec3 // Offset toward the side the ray came from
	BackHitPoint    core.Vec3 // Offset through the surface
	CellU, CellV    int       // Grid cell containing the hit
	Triangle        int       // 0 for (p00,p11,p10), 1 for (p00,p01,p11)
}

// HeightfieldParams describes a height grid spanning [BoxMin, BoxMax] on the X/Z plane.
// Heights and Normals are indexed [u][v] with u along X and v along Z, and hold
// ncells+1 samples per axis. Normals may be nil, in which case they are derived
// from the heights.
type HeightfieldParams struct {
	Heights [][]float64
	Normals [][]core.Vec3
	BoxMin  core.Vec3
	BoxMax  core.Vec3
}

// Heightfield is an immutable grid of height samples rendered as two triangles
// per cell. It is safe for concurrent use.
type Heightfield struct {
	heights [][]float64
	normals [][]core.Vec3

	bounds    core.AABB // Reported bounding box
	traversal core.AABB // bounds with vertical padding

	nCellsU, nCellsV           int
	cellSizeU, cellSizeV       float64
	invCellSizeU, invCellSizeV float64
}

// NewHeightfield validates the grid and precomputes cell sizes. The box's Y
// range is widened to contain every height sample.
func NewHeightfield(params HeightfieldParams) (*Heightfield, error) {
	nu := len(params.Heights)
	if nu < 2 {
		return nil, errors.New("heightfield needs at least 2x2 samples").
			WithType(ErrTypeInvalidHeightfield).
			WithTag("samples_u", nu)
	}
	nv := len(params.Heights[0])
	if nv < 2 {
		return nil, errors.New("heightfield needs at least 2x2 samples").
			WithType(ErrTypeInvalidHeightfield).
			WithTag("samples_v", nv)
	}

	dataMin, dataMax := math.Inf(1), math.Inf(-1)
	for u, row := range params.Heights {
		if len(row) != nv {
			return nil, errors.New("heightfield rows have different lengths").
				WithType(ErrTypeInvalidHeightfield).
				WithTag("row", u).
				WithTag("expected", nv).
				WithTag("got", len(row))
		}
		for _, h := range row {
			if math.IsNaN(h) || math.IsInf(h, 0) {
				return nil, errors.New("heightfield contains a non-finite height").
					WithType(ErrTypeInvalidHeightfield).
					WithTag("row", u)
			}
			dataMin = math.Min(dataMin, h)
			dataMax = math.Max(dataMax, h)
		}
	}

	extent := params.BoxMax.Subtract(params.BoxMin)
	if extent.X <= 0 || extent.Z <= 0 {
		return nil, errors.New("heightfield box has no area on the X/Z plane").
			WithType(ErrTypeInvalidHeightfield).
			WithTag("box_min", params.BoxMin).
			WithTag("box_max", params.BoxMax)
	}

	hf := &Heightfield{
		heights:      params.Heights,
		nCellsU:      nu - 1,
		nCellsV:      nv - 1,
		cellSizeU:    extent.X / float64(nu-1),
		cellSizeV:    extent.Z / float64(nv-1),
		invCellSizeU: float64(nu-1) / extent.X,
		invCellSizeV: float64(nv-1) / extent.Z,
	}

	hf.bounds = core.NewAABBFromPoints(
		params.BoxMin,
		params.BoxMax,
		core.NewVec3(params.BoxMin.X, dataMin, params.BoxMin.Z),
		core.NewVec3(params.BoxMax.X, dataMax, params.BoxMax.Z),
	)

	pad := boxPadding * math.Max(hf.cellSizeU, hf.cellSizeV)
	hf.traversal = hf.bounds
	hf.traversal.Min.Y -= pad
	hf.traversal.Max.Y += pad

	switch {
	case params.Normals == nil:
		hf.normals = ComputeNormals(params.Heights, hf.cellSizeU, hf.cellSizeV)
	case len(params.Normals) != nu:
		return nil, errors.New("normal grid does not match height grid").
			WithType(ErrTypeInvalidHeightfield).
			WithTag("expected", nu).
			WithTag("got", len(params.Normals))
	default:
		for u, row := range params.Normals {
			if len(row) != nv {
				return nil, errors.New("normal grid does not match height grid").
					WithType(ErrTypeInvalidHeightfield).
					WithTag("row", u).
					WithTag("expected", nv).
					WithTag("got", len(row))
			}
		}
		hf.normals = params.Normals
	}

	return hf, nil
}

// BoundingBox returns the box enclosing the whole heightfield
func (hf *Heightfield) BoundingBox() core.AABB {
	return hf.bounds
}

// NCells returns the number of cells along u (X) and v (Z)
func (hf *Heightfield) NCells() (int, int) {
	return hf.nCellsU, hf.nCellsV
}

// CellSize returns the world-space size of one cell along X and Z
func (hf *Heightfield) CellSize() (float64, float64) {
	return hf.cellSizeU, hf.cellSizeV
}

// Height returns the sample at grid vertex (u, v)
func (hf *Heightfield) Height(u, v int) float64 {
	return hf.heights[u][v]
}

// Normal returns the stored normal at grid vertex (u, v)
func (hf *Heightfield) Normal(u, v int) core.Vec3 {
	return hf.normals[u][v]
}

// InterpolateNormal blends the four corner normals of cell (u, v) at the
// cell-local position (fu, fv) in [0,1]². The result is not renormalized, so a
// corner returns its stored normal exactly.
func (hf *Heightfield) InterpolateNormal(u, v int, fu, fv float64) core.Vec3 {
	n00 := hf.normals[u][v]
	n01 := hf.normals[u][v+1]
	n10 := hf.normals[u+1][v]
	n11 := hf.normals[u+1][v+1]

	return n00.Multiply((1 - fu) * (1 - fv)).
		Add(n10.Multiply(fu * (1 - fv))).
		Add(n01.Multiply((1 - fu) * fv)).
		Add(n11.Multiply(fu * fv))
}

// Intersect walks the cells the ray crosses in order of increasing t and tests
// the two triangles of every cell whose height range overlaps the ray. Each
// candidate within [0, current tmax] is passed to report. The traversal ends
// on the first ReportAcceptStop, when the ray leaves the grid, or when it
// passes its (possibly shortened) tmax. It returns whether any candidate was
// accepted.
func (hf *Heightfield) Intersect(ray core.Ray, report Reporter) bool {
	origin, dir := ray.Origin, ray.Direction
	if dir.LengthSquared() == 0 {
		return false
	}

	tnear, tfar := hf.traversal.Intersect(ray)
	if tnear >= tfar || tfar < boxEpsilon {
		return false
	}
	tnear = math.Max(tnear, 0)
	tMax := ray.TMax
	tfar = math.Min(tfar, tMax)
	if tnear >= tfar {
		return false
	}

	// Entry cell, clamped so the 2x2 corner neighborhood is always addressable
	entry := ray.At(tnear)
	lu := clampInt(int(math.Floor((entry.X-hf.bounds.Min.X)*hf.invCellSizeU)), 0, hf.nCellsU-1)
	lv := clampInt(int(math.Floor((entry.Z-hf.bounds.Min.Z)*hf.invCellSizeV)), 0, hf.nCellsV-1)

	stepU, stopU := -1, -1
	if dir.X > 0 {
		stepU, stopU = 1, hf.nCellsU
	}
	stepV, stopV := -1, -1
	if dir.Z > 0 {
		stepV, stopV = 1, hf.nCellsV
	}

	// Axes the ray does not move along are never the next crossing
	dtdu, tnextU := math.Inf(1), math.Inf(1)
	if dir.X != 0 {
		dtdu = math.Abs(hf.cellSizeU / dir.X)
		nextLine := lu
		if dir.X > 0 {
			nextLine++
		}
		farU := float64(nextLine)*hf.cellSizeU + hf.bounds.Min.X
		tnextU = (farU - origin.X) / dir.X
	}
	dtdv, tnextV := math.Inf(1), math.Inf(1)
	if dir.Z != 0 {
		dtdv = math.Abs(hf.cellSizeV / dir.Z)
		nextLine := lv
		if dir.Z > 0 {
			nextLine++
		}
		farV := float64(nextLine)*hf.cellSizeV + hf.bounds.Min.Z
		tnextV = (farV - origin.Z) / dir.Z
	}

	accepted := false
	yenter := origin.Y + tnear*dir.Y
	for tnear < tfar {
		texit := math.Min(math.Min(tnextU, tnextV), tfar)
		yexit := origin.Y + texit*dir.Y

		d00 := hf.heights[lu][lv]
		d01 := hf.heights[lu][lv+1]
		d10 := hf.heights[lu+1][lv]
		d11 := hf.heights[lu+1][lv+1]
		dataMin := min(d00, d01, d10, d11)
		dataMax := max(d00, d01, d10, d11)
		yMin := math.Min(yenter, yexit)
		yMax := math.Max(yenter, yexit)

		if yMin <= dataMax && yMax >= dataMin {
			stop, cellAccepted := hf.intersectCell(ray, lu, lv, d00, d01, d10, d11, &tMax, report)
			accepted = accepted || cellAccepted
			if stop {
				return true
			}
			tfar = math.Min(tfar, tMax)
		}

		if tnextU < tnextV {
			lu += stepU
			if lu == stopU {
				break
			}
			tnear = tnextU
			tnextU += dtdu
		} else {
			lv += stepV
			if lv == stopV {
				break
			}
			tnear = tnextV
			tnextV += dtdv
		}
		yenter = yexit
	}

	return accepted
}

// intersectCell tests both triangles of cell (lu, lv). The first triangle
// reported with ReportAcceptStop ends the traversal even if the second one
// would be nearer.
func (hf *Heightfield) intersectCell(ray core.Ray, lu, lv int, d00, d01, d10, d11 float64, tMax *float64, report Reporter) (stop, accepted bool) {
	x0 := float64(lu)*hf.cellSizeU + hf.bounds.Min.X
	x1 := float64(lu+1)*hf.cellSizeU + hf.bounds.Min.X
	z0 := float64(lv)*hf.cellSizeV + hf.bounds.Min.Z
	z1 := float64(lv+1)*hf.cellSizeV + hf.bounds.Min.Z

	p00 := core.NewVec3(x0, d00, z0)
	p01 := core.NewVec3(x0, d01, z1)
	p10 := core.NewVec3(x1, d10, z0)
	p11 := core.NewVec3(x1, d11, z1)

	triangles := [2][3]core.Vec3{
		{p00, p11, p10},
		{p00, p01, p11},
	}

	for i, tri := range triangles {
		t, _, _, n, ok := IntersectTriangle(ray, tri[0], tri[1], tri[2])
		if !ok || t < 0 || t > *tMax {
			continue
		}

		switch report(hf.buildHit(ray, t, n, lu, lv, p00, i)) {
		case ReportAcceptStop:
			return true, true
		case ReportAcceptContinue:
			*tMax = t
			accepted = true
		}
	}

	return false, accepted
}

// buildHit fills the attributes of a triangle hit inside cell (lu, lv)
func (hf *Heightfield) buildHit(ray core.Ray, t float64, faceNormal core.Vec3, lu, lv int, p00 core.Vec3, triangle int) Hit {
	point := ray.At(t)
	geometricNormal := faceNormal.Normalize()

	fu := clampUnit((point.X-hf.bounds.Min.X)*hf.invCellSizeU - float64(lu))
	fv := clampUnit((point.Z-hf.bounds.Min.Z)*hf.invCellSizeV - float64(lv))

	_, back, front := RefineAndOffsetHitPoint(point, ray.Direction, geometricNormal, p00)

	size := hf.bounds.Size()
	texCoord := core.NewVec3(
		clampUnit((point.X-hf.bounds.Min.X)/size.X),
		clampUnit((point.Z-hf.bounds.Min.Z)/size.Z),
		0,
	)

	return Hit{
		T:               t,
		Point:           point,
		GeometricNormal: geometricNormal,
		ShadingNormal:   hf.InterpolateNormal(lu, lv, fu, fv),
		TexCoord:        texCoord,
		FrontHitPoint:   front,
		BackHitPoint:    back,
		CellU:           lu,
		CellV:           lv,
		Triangle:        triangle,
	}
}

// FirstHit returns the first hit the traversal reports, which is how the
// renderer resolves heightfield intersections
func (hf *Heightfield) FirstHit(ray core.Ray) (Hit, bool) {
	var first Hit
	found := hf.Intersect(ray, func(hit Hit) Report {
		first = hit
		return ReportAcceptStop
	})
	return first, found
}

// ClosestHit accepts every candidate and returns the nearest one
func (hf *Heightfield) ClosestHit(ray core.Ray) (Hit, bool) {
	var closest Hit
	found := hf.Intersect(ray, func(hit Hit) Report {
		// Candidates beyond the current tmax are filtered out before reporting
		closest = hit
		return ReportAcceptContinue
	})
	return closest, found
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
