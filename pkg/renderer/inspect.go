package renderer

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
	"github.com/df07/go-ocean-raytracer/pkg/geometry"
)

// InspectResult describes what the camera ray through the center of a pixel
// sees
type InspectResult struct {
	X               int       `json:"x"`
	Y               int       `json:"y"`
	Origin          core.Vec3 `json:"origin"`
	Direction       core.Vec3 `json:"direction"`
	Hit             bool      `json:"hit"`
	T               float64   `json:"t"`
	Point           core.Vec3 `json:"point"`
	GeometricNormal core.Vec3 `json:"geometricNormal"`
	ShadingNormal   core.Vec3 `json:"shadingNormal"`
	TexCoord        core.Vec3 `json:"texCoord"`
	CellU           int       `json:"cellU"`
	CellV           int       `json:"cellV"`
	Triangle        int       `json:"triangle"`
	Radiance        core.Vec3 `json:"radiance"`
	Color           core.Vec3 `json:"color"` // Tone mapped, in [0,1]
}

// Inspect traces a single primary ray through the center of pixel (x, y)
func Inspect(scene Scene, x, y int) (InspectResult, error) {
	camera := scene.Camera()
	width, height := camera.Size()
	if x < 0 || y < 0 || x >= width || y >= height {
		return InspectResult{}, errors.New("pixel is outside the image").
			WithType(ErrTypeInvalidRender).
			WithTag("x", x).
			WithTag("y", y).
			WithTag("width", width).
			WithTag("height", height)
	}

	ray := camera.GetRay(x, y, core.CenterSampler{})
	raytracer := NewRaytracer(scene)

	result := InspectResult{
		X:         x,
		Y:         y,
		Origin:    ray.Origin,
		Direction: ray.Direction.Normalize(),
	}

	var hit geometry.Hit
	hit, result.Hit = raytracer.closestHit(ray)
	if result.Hit {
		result.T = hit.T
		result.Point = hit.Point
		result.GeometricNormal = hit.GeometricNormal
		result.ShadingNormal = hit.ShadingNormal
		result.TexCoord = hit.TexCoord
		result.CellU = hit.CellU
		result.CellV = hit.CellV
		result.Triangle = hit.Triangle
	}

	result.Radiance = raytracer.RayColor(ray)
	result.Color = ToneMap(result.Radiance, scene.Sampling().Exposure)
	return result, nil
}
