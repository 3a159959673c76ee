package sky

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
)

const (
	// Turbidity range the Perez coefficients were fitted for
	minTurbidity = 1.7
	maxTurbidity = 10.0

	// overcastLuminance is the zenith luminance of the CIE overcast sky
	overcastLuminance = 15.0

	// chromaticityBoost saturates the sky color around the white point
	chromaticityBoost = 1.2

	// sunLuminance is the sun disk luminance before atmospheric extinction
	sunLuminance = 1600.0

	// minCosTheta keeps the Perez horizon term finite
	minCosTheta = 1e-6
)

// sunCos is the cosine of the sun disk's angular radius
var sunCos = 94.0 / math.Sqrt(94.0*94.0+0.45*0.45)

// Representative wavelengths in micrometers for the red, green and blue channels
var channelWavelengths = [3]float64{0.650, 0.570, 0.475}

// PreethamConfig holds the parameters of a daylight sky
type PreethamConfig struct {
	Turbidity    float64   `json:"turbidity"`
	SunDirection core.Vec3 `json:"sunDirection"`
	Up           core.Vec3 `json:"up"`
	Overcast     float64   `json:"overcast"` // 0 is a clear sky, 1 a fully overcast one
}

// Preetham is the Preetham-Shirley-Smits analytic daylight model blended with
// a CIE overcast sky. Radiance is returned in kcd/m².
type Preetham struct {
	sunDir   core.Vec3
	up       core.Vec3
	overcast float64

	sunColor core.Vec3

	// Perez distribution coefficients A..E, one Vec3 each holding the Y, x and
	// y channels
	perez [5]core.Vec3

	// Zenith Yxy divided by the Perez distribution at the zenith
	invDivisor core.Vec3
}

// NewPreetham precomputes the Perez coefficients and the sun color
func NewPreetham(cfg PreethamConfig) (*Preetham, error) {
	if cfg.Turbidity < minTurbidity || cfg.Turbidity > maxTurbidity || math.IsNaN(cfg.Turbidity) {
		return nil, errors.Newf("turbidity must be in [%v, %v]", minTurbidity, maxTurbidity).
			WithType(ErrTypeInvalidSky).
			WithTag("turbidity", cfg.Turbidity)
	}
	if cfg.Overcast < 0 || cfg.Overcast > 1 || math.IsNaN(cfg.Overcast) {
		return nil, errors.New("overcast must be in [0, 1]").
			WithType(ErrTypeInvalidSky).
			WithTag("overcast", cfg.Overcast)
	}
	if cfg.SunDirection.LengthSquared() == 0 || !cfg.SunDirection.IsFinite() {
		return nil, errors.New("sun direction must be a non-zero vector").
			WithType(ErrTypeInvalidSky).
			WithTag("sun_direction", cfg.SunDirection)
	}
	if cfg.Up.LengthSquared() == 0 || !cfg.Up.IsFinite() {
		return nil, errors.New("up vector must be a non-zero vector").
			WithType(ErrTypeInvalidSky).
			WithTag("up", cfg.Up)
	}

	p := &Preetham{
		sunDir:   cfg.SunDirection.Normalize(),
		up:       cfg.Up.Normalize(),
		overcast: cfg.Overcast,
	}

	cosThetaSun := p.sunDir.Dot(p.up)
	if cosThetaSun < 0 {
		return nil, errors.New("sun is below the horizon").
			WithType(ErrTypeInvalidSky).
			WithTag("sun_direction", cfg.SunDirection).
			WithTag("up", cfg.Up)
	}

	thetaSun := math.Acos(math.Min(cosThetaSun, 1))
	p.init(cfg.Turbidity, thetaSun)
	return p, nil
}

func (p *Preetham) init(turbidity, thetaSun float64) {
	T := turbidity
	T2 := T * T
	th := thetaSun
	th2 := th * th
	th3 := th2 * th

	// Zenith luminance (kcd/m²) and chromaticity
	chi := (4.0/9.0 - T/120.0) * (math.Pi - 2.0*th)
	zenithY := (4.0453*T-4.9710)*math.Tan(chi) - 0.2155*T + 2.4192
	zenithX := T2*(0.00166*th3-0.00375*th2+0.00209*th) +
		T*(-0.02903*th3+0.06377*th2-0.03202*th+0.00394) +
		(0.11693*th3 - 0.21196*th2 + 0.06052*th + 0.25886)
	zenithYc := T2*(0.00275*th3-0.00610*th2+0.00317*th) +
		T*(-0.04214*th3+0.08970*th2-0.04153*th+0.00516) +
		(0.15346*th3 - 0.26756*th2 + 0.06670*th + 0.26688)

	p.perez = [5]core.Vec3{
		core.NewVec3(0.1787*T-1.4630, -0.0193*T-0.2592, -0.0167*T-0.2608),
		core.NewVec3(-0.3554*T+0.4275, -0.0665*T+0.0008, -0.0950*T+0.0092),
		core.NewVec3(-0.0227*T+5.3251, -0.0004*T+0.2125, -0.0079*T+0.2102),
		core.NewVec3(0.1206*T-2.5771, -0.0641*T-0.8989, -0.0441*T-1.6537),
		core.NewVec3(-0.0670*T+0.3703, -0.0033*T+0.0452, -0.0109*T+0.0529),
	}

	zenith := core.NewVec3(zenithY, zenithX, zenithYc)
	divisor := p.distribution(1.0, math.Cos(th), th)
	p.invDivisor = core.NewVec3(zenith.X/divisor.X, zenith.Y/divisor.Y, zenith.Z/divisor.Z)

	p.sunColor = sunColor(T, th)
}

// distribution evaluates the Perez function for all three channels
func (p *Preetham) distribution(cosTheta, cosGamma, gamma float64) core.Vec3 {
	a, b, c, d, e := p.perez[0], p.perez[1], p.perez[2], p.perez[3], p.perez[4]
	perez := func(a, b, c, d, e float64) float64 {
		return (1 + a*math.Exp(b/cosTheta)) * (1 + c*math.Exp(d*gamma) + e*cosGamma*cosGamma)
	}
	return core.NewVec3(
		perez(a.X, b.X, c.X, d.X, e.X),
		perez(a.Y, b.Y, c.Y, d.Y, e.Y),
		perez(a.Z, b.Z, c.Z, d.Z, e.Z),
	)
}

// Query implements Model. Directions below the horizon see the mirrored sky.
func (p *Preetham) Query(includeSun bool, direction core.Vec3) core.Vec3 {
	dir := direction.Normalize()
	if dir.LengthSquared() == 0 {
		return core.Vec3{}
	}

	var sunlit core.Vec3
	if p.overcast < 1 {
		if includeSun && dir.Dot(p.sunDir) > sunCos {
			sunlit = p.sunColor
		} else {
			sunlit = p.skyColor(FoldAboveHorizon(dir, p.up))
		}
	}

	overcast := core.NewVec3(1, 1, 1).Multiply((1 + 2*math.Abs(dir.Dot(p.up))) / 3 * overcastLuminance)
	return sunlit.Multiply(1 - p.overcast).Add(overcast.Multiply(p.overcast))
}

func (p *Preetham) skyColor(dir core.Vec3) core.Vec3 {
	cosTheta := math.Max(dir.Dot(p.up), minCosTheta)
	cosGamma := math.Max(-1, math.Min(1, dir.Dot(p.sunDir)))

	yxy := p.distribution(cosTheta, cosGamma, math.Acos(cosGamma)).MultiplyVec(p.invDivisor)
	yxy.Y = 0.33 + chromaticityBoost*(yxy.Y-0.33)
	yxy.Z = 0.33 + chromaticityBoost*(yxy.Z-0.33)

	return xyzToRGB(yxyToXYZ(yxy))
}

// SunColor returns the extinguished sun disk radiance
func (p *Preetham) SunColor() core.Vec3 {
	return p.sunColor
}

// sunColor attenuates the sun by Rayleigh and aerosol extinction along the
// optical path at zenith angle thetaSun
func sunColor(turbidity, thetaSun float64) core.Vec3 {
	degrees := thetaSun * 180 / math.Pi
	mass := 1.0 / (math.Cos(thetaSun) + 0.15*math.Pow(93.885-degrees, -1.253))
	beta := 0.04608*turbidity - 0.04586
	const alpha = 1.3

	var rgb [3]float64
	for i, lambda := range channelWavelengths {
		rayleigh := math.Exp(-0.008735 * math.Pow(lambda, -4.08) * mass)
		aerosol := math.Exp(-beta * math.Pow(lambda, -alpha) * mass)
		rgb[i] = sunLuminance * rayleigh * aerosol
	}
	return core.NewVec3(rgb[0], rgb[1], rgb[2])
}

// yxyToXYZ converts luminance and chromaticity stored as (Y, x, y)
func yxyToXYZ(yxy core.Vec3) core.Vec3 {
	Y, x, y := yxy.X, yxy.Y, yxy.Z
	if y == 0 {
		return core.Vec3{}
	}
	return core.NewVec3(x*(Y/y), Y, (1-x-y)*(Y/y))
}

// xyzToRGB converts to linear sRGB primaries
func xyzToRGB(xyz core.Vec3) core.Vec3 {
	return core.NewVec3(
		3.2410*xyz.X-1.5374*xyz.Y-0.4986*xyz.Z,
		-0.9692*xyz.X+1.8760*xyz.Y+0.0416*xyz.Z,
		0.0556*xyz.X-0.2040*xyz.Y+1.0570*xyz.Z,
	)
}
