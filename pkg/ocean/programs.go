package ocean

import (
	"github.com/df07/go-ocean-raytracer/pkg/core"
	"github.com/df07/go-ocean-raytracer/pkg/geometry"
	"github.com/df07/go-ocean-raytracer/pkg/sky"
)

// PerRayDataRadiance is the payload threaded through a radiance ray's programs
type PerRayDataRadiance struct {
	Result     core.Vec3
	Importance float64
	Depth      int
}

// HitAttributes are the intersection attributes the shader consumes
type HitAttributes struct {
	GeometricNormal core.Vec3
	ShadingNormal   core.Vec3
	TexCoord        core.Vec3
	FrontHitPoint   core.Vec3
	BackHitPoint    core.Vec3
}

// FromHit extracts shading attributes from a heightfield hit
func FromHit(hit geometry.Hit) HitAttributes {
	return HitAttributes{
		GeometricNormal: hit.GeometricNormal,
		ShadingNormal:   hit.ShadingNormal,
		TexCoord:        hit.TexCoord,
		FrontHitPoint:   hit.FrontHitPoint,
		BackHitPoint:    hit.BackHitPoint,
	}
}

// Tracer casts secondary radiance rays. The renderer implements it.
type Tracer interface {
	TraceRadiance(ray core.Ray, prd *PerRayDataRadiance)
}

// Programs binds the closest-hit and miss programs to a material and a sky.
// A Programs value is read-only while rendering and may be shared by all
// workers, as long as Tracer is nil. Workers that trace reflections use
// WithTracer to get their own copy.
type Programs struct {
	Material MaterialParams
	Sky      sky.Model
	Up       core.Vec3

	// Reflection rays are only traced when Tracer is set, the payload depth is
	// below MaxDepth and the reflected importance exceeds ImportanceCutoff.
	// Otherwise the reflected direction samples the sky directly.
	Tracer           Tracer
	MaxDepth         int
	ImportanceCutoff float64
}

// WithTracer returns a copy of p that traces reflections through tracer
func (p *Programs) WithTracer(tracer Tracer) *Programs {
	programs := *p
	programs.Tracer = tracer
	return &programs
}

// ClosestHitRadiance shades a hit on the water surface and stores the outgoing
// radiance in prd.Result
func (p *Programs) ClosestHitRadiance(ray core.Ray, attrs HitAttributes, prd *PerRayDataRadiance) {
	m := p.Material
	i := ray.Direction.Normalize()
	n := attrs.ShadingNormal.Normalize()
	above := i.Dot(attrs.GeometricNormal) < 0

	var result core.Vec3
	reflection := m.FresnelMaximum

	if t, ok := Refract(i, n, m.RefractionIndex); ok {
		cosTheta := i.Dot(n)
		if cosTheta < 0 {
			cosTheta = -cosTheta
		} else {
			cosTheta = t.Dot(n)
		}
		reflection = FresnelSchlick(cosTheta, m.FresnelExponent, m.FresnelMinimum, m.FresnelMaximum)

		transmitted := m.CutoffColor
		if above {
			transmitted = p.skyRadiance(t)
		}
		result = result.Add(m.RefractionColor.MultiplyVec(transmitted).Multiply(1 - reflection))
	}

	reflected := m.CutoffColor
	if above {
		reflected = p.reflectedRadiance(Reflect(i, n), attrs, reflection, prd)
	}
	result = result.Add(m.ReflectionColor.MultiplyVec(reflected).Multiply(reflection))

	prd.Result = result
}

// reflectedRadiance traces a reflection ray when allowed, otherwise samples
// the sky along r
func (p *Programs) reflectedRadiance(r core.Vec3, attrs HitAttributes, reflection float64, prd *PerRayDataRadiance) core.Vec3 {
	if p.Tracer == nil || prd.Depth >= p.MaxDepth {
		return p.skyRadiance(r)
	}

	importance := prd.Importance * reflection * p.Material.ReflectionColor.Luminance()
	if importance <= p.ImportanceCutoff {
		return p.skyRadiance(r)
	}

	child := PerRayDataRadiance{Importance: importance, Depth: prd.Depth + 1}
	p.Tracer.TraceRadiance(core.NewRay(attrs.FrontHitPoint, r), &child)
	return child.Result
}

// skyRadiance queries the sky without the sun disk, folding directions below
// the horizon back above it first
func (p *Programs) skyRadiance(direction core.Vec3) core.Vec3 {
	return p.Sky.Query(false, sky.FoldAboveHorizon(direction, p.Up))
}

// Miss stores the sky radiance along the ray. The sun disk is only visible to
// camera rays.
func (p *Programs) Miss(ray core.Ray, prd *PerRayDataRadiance) {
	prd.Result = p.Sky.Query(prd.Depth == 0, ray.Direction)
}
