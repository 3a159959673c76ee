package sky

import (
	"github.com/df07/go-ocean-raytracer/pkg/core"
)

// ErrTypeInvalidSky tags errors caused by unusable sky parameters.
const ErrTypeInvalidSky = "invalid_sky"

// Model answers radiance queries along world-space directions. Implementations
// must be safe for concurrent use.
type Model interface {
	// Query returns the radiance arriving from direction. The sun disk is only
	// included when includeSun is true.
	Query(includeSun bool, direction core.Vec3) core.Vec3
}

// FoldAboveHorizon mirrors a direction pointing below the horizon back above it.
// The horizontal part is recovered from two cross products and kept, the
// vertical part is flipped, so the azimuth is unchanged. Directions on or above
// the horizon are returned as is. up must be normalized.
func FoldAboveHorizon(direction, up core.Vec3) core.Vec3 {
	vertical := direction.Dot(up)
	if vertical >= 0 {
		return direction
	}
	horizontal := up.Cross(direction).Cross(up)
	return horizontal.Subtract(up.Multiply(vertical))
}

// Gradient blends linearly from the bottom color at the horizon to the top
// color at the zenith. Directions below the horizon are folded above it first.
// It has no sun and is mostly useful for previews and tests.
type Gradient struct {
	top    core.Vec3
	bottom core.Vec3
	up     core.Vec3
}

// NewGradient creates a gradient sky around the given up vector
func NewGradient(top, bottom, up core.Vec3) *Gradient {
	return &Gradient{top: top, bottom: bottom, up: up.Normalize()}
}

// Query implements Model
func (g *Gradient) Query(includeSun bool, direction core.Vec3) core.Vec3 {
	t := FoldAboveHorizon(direction.Normalize(), g.up).Dot(g.up)
	return g.bottom.Multiply(1.0 - t).Add(g.top.Multiply(t))
}
