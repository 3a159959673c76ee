package ocean

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
)

// ErrTypeInvalidMaterial tags errors caused by unusable material parameters.
const ErrTypeInvalidMaterial = "invalid_material"

// MaterialParams holds the read-only water surface parameters
type MaterialParams struct {
	CutoffColor     core.Vec3 `json:"cutoffColor"` // Flat color seen through or from below the surface
	FresnelExponent float64   `json:"fresnelExponent"`
	FresnelMinimum  float64   `json:"fresnelMinimum"`
	FresnelMaximum  float64   `json:"fresnelMaximum"`
	RefractionIndex float64   `json:"refractionIndex"`
	RefractionColor core.Vec3 `json:"refractionColor"`
	ReflectionColor core.Vec3 `json:"reflectionColor"`
}

// DefaultMaterialParams returns the deep-water look
func DefaultMaterialParams() MaterialParams {
	return MaterialParams{
		CutoffColor:     core.NewVec3(0.034, 0.055, 0.085),
		FresnelExponent: 3.0,
		FresnelMinimum:  0.1,
		FresnelMaximum:  1.0,
		RefractionIndex: 1.4,
		RefractionColor: core.NewVec3(0.95, 0.95, 0.95),
		ReflectionColor: core.NewVec3(0.7, 0.7, 0.7),
	}
}

// Validate checks that the parameters describe a physically usable surface
func (m MaterialParams) Validate() error {
	switch {
	case !m.CutoffColor.IsFinite() || !m.RefractionColor.IsFinite() || !m.ReflectionColor.IsFinite():
		return errors.New("material colors must be finite").
			WithType(ErrTypeInvalidMaterial)
	case m.FresnelExponent < 0 || math.IsNaN(m.FresnelExponent) || math.IsInf(m.FresnelExponent, 0):
		return errors.New("fresnel exponent must be a non-negative number").
			WithType(ErrTypeInvalidMaterial).
			WithTag("fresnel_exponent", m.FresnelExponent)
	case m.FresnelMinimum < 0 || m.FresnelMaximum > 1 || !(m.FresnelMinimum <= m.FresnelMaximum):
		return errors.New("fresnel bounds must satisfy 0 <= minimum <= maximum <= 1").
			WithType(ErrTypeInvalidMaterial).
			WithTag("fresnel_minimum", m.FresnelMinimum).
			WithTag("fresnel_maximum", m.FresnelMaximum)
	case !(m.RefractionIndex > 0) || math.IsInf(m.RefractionIndex, 0):
		return errors.New("refraction index must be positive").
			WithType(ErrTypeInvalidMaterial).
			WithTag("refraction_index", m.RefractionIndex)
	}
	return nil
}

// FresnelSchlick returns min + (max-min)·(1-cosTheta)^exponent, clamped to
// [minimum, maximum]
func FresnelSchlick(cosTheta, exponent, minimum, maximum float64) float64 {
	r := minimum + (maximum-minimum)*math.Pow(math.Max(0, 1-cosTheta), exponent)
	return math.Max(minimum, math.Min(maximum, r))
}

// Reflect mirrors i about n
func Reflect(i, n core.Vec3) core.Vec3 {
	return i.Subtract(n.Multiply(2 * i.Dot(n)))
}

// Refract bends the unit vector i through a surface with unit normal n and
// relative index of refraction ior. When i arrives from the side n points
// away from, the normal is flipped and the ratio inverted. It returns false on
// total internal reflection.
func Refract(i, n core.Vec3, ior float64) (core.Vec3, bool) {
	cosI := i.Dot(n)
	eta := 1 / ior
	if cosI > 0 {
		// Leaving the medium
		eta = ior
		n = n.Negate()
		cosI = -cosI
	}

	k := 1 - eta*eta*(1-cosI*cosI)
	if k < 0 {
		return core.Vec3{}, false
	}
	return i.Multiply(eta).Subtract(n.Multiply(eta*cosI + math.Sqrt(k))).Normalize(), true
}
