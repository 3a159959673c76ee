package renderer

import (
	"image/color"
	"math"

	"github.com/df07/go-ocean-raytracer/pkg/core"
	"github.com/df07/go-ocean-raytracer/pkg/geometry"
	"github.com/df07/go-ocean-raytracer/pkg/ocean"
)

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	Width              int     `json:"width"`              // Image width
	Height             int     `json:"height"`             // Image height
	SamplesPerPixel    int     `json:"samplesPerPixel"`    // Number of rays per pixel
	MaxDepth           int     `json:"maxDepth"`           // Reflection rays traced per camera ray
	ImportanceCutoff   float64 `json:"importanceCutoff"`   // Reflections below this weight sample the sky instead
	Exposure           float64 `json:"exposure"`           // Scale applied before tone mapping
	AdaptiveMinSamples float64 `json:"adaptiveMinSamples"` // Minimum samples as percentage of max samples (0.0-1.0)
	AdaptiveThreshold  float64 `json:"adaptiveThreshold"`  // Relative error threshold for adaptive convergence (0.01 = 1%)
}

// DefaultSamplingConfig returns sensible default values
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Width:              640,
		Height:             360,
		SamplesPerPixel:    16,
		MaxDepth:           2,
		ImportanceCutoff:   0.01,
		Exposure:           0.2,
		AdaptiveMinSamples: 0.25,
		AdaptiveThreshold:  0.01,
	}
}

// Geometry is anything the raytracer can intersect. Candidates are passed to
// the reporter in traversal order.
type Geometry interface {
	Intersect(ray core.Ray, report geometry.Reporter) bool
	BoundingBox() core.AABB
}

// Scene interface to avoid circular imports
type Scene interface {
	Geometries() []Geometry
	Programs() *ocean.Programs
	Camera() *Camera
	Sampling() SamplingConfig
}

// RayCounts tallies the work done by one raytracer
type RayCounts struct {
	Primary    int
	Reflection int
	Hits       int
}

func (rc RayCounts) add(other RayCounts) RayCounts {
	return RayCounts{
		Primary:    rc.Primary + other.Primary,
		Reflection: rc.Reflection + other.Reflection,
		Hits:       rc.Hits + other.Hits,
	}
}

// Raytracer traces radiance rays through a scene. Each worker owns one; it is
// not safe for concurrent use.
type Raytracer struct {
	scene    Scene
	programs *ocean.Programs
	counts   RayCounts
}

// NewRaytracer creates a new raytracer whose reflection rays come back to it
func NewRaytracer(scene Scene) *Raytracer {
	rt := &Raytracer{scene: scene}
	rt.programs = scene.Programs().WithTracer(rt)
	return rt
}

// TraceRadiance implements ocean.Tracer. The closest hit among all scene
// geometries is shaded, otherwise the miss program runs.
func (rt *Raytracer) TraceRadiance(ray core.Ray, prd *ocean.PerRayDataRadiance) {
	if prd.Depth == 0 {
		rt.counts.Primary++
	} else {
		rt.counts.Reflection++
	}

	hit, ok := rt.closestHit(ray)
	if !ok {
		rt.programs.Miss(ray, prd)
		return
	}

	rt.counts.Hits++
	rt.programs.ClosestHitRadiance(ray, ocean.FromHit(hit), prd)
}

// closestHit keeps the nearest accepted candidate across geometries. Within
// one geometry the first reported candidate below the current tmax wins.
func (rt *Raytracer) closestHit(ray core.Ray) (geometry.Hit, bool) {
	var closest geometry.Hit
	found := false

	for _, g := range rt.scene.Geometries() {
		accepted := g.Intersect(ray, func(hit geometry.Hit) geometry.Report {
			closest = hit
			return geometry.ReportAcceptStop
		})
		if accepted {
			found = true
			ray.TMax = closest.T
		}
	}

	return closest, found
}

// RayColor returns the radiance along a camera ray
func (rt *Raytracer) RayColor(ray core.Ray) core.Vec3 {
	prd := ocean.PerRayDataRadiance{Importance: 1}
	rt.TraceRadiance(ray, &prd)
	return prd.Result
}

// TakeCounts returns the counts gathered since the last call and resets them
func (rt *Raytracer) TakeCounts() RayCounts {
	counts := rt.counts
	rt.counts = RayCounts{}
	return counts
}

// ToneMap compresses radiance with an exponential curve, then gamma encodes it
func ToneMap(radiance core.Vec3, exposure float64) core.Vec3 {
	mapped := core.NewVec3(
		1-math.Exp(-radiance.X*exposure),
		1-math.Exp(-radiance.Y*exposure),
		1-math.Exp(-radiance.Z*exposure),
	)
	return mapped.Clamp(0.0, 1.0).GammaCorrect(2.2)
}

// pixelColor tone maps a radiance estimate into an 8-bit pixel
func pixelColor(radiance core.Vec3, exposure float64) color.RGBA {
	return toRGBA(ToneMap(radiance, exposure))
}

func toRGBA(colorVec core.Vec3) color.RGBA {
	colorVec = colorVec.Clamp(0.0, 1.0)
	return color.RGBA{
		R: uint8(255*colorVec.X + 0.5),
		G: uint8(255*colorVec.Y + 0.5),
		B: uint8(255*colorVec.Z + 0.5),
		A: 255,
	}
}
