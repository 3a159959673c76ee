package waves

import (
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrTypeInvalidSpectrum tags errors caused by unusable wave parameters.
const ErrTypeInvalidSpectrum = "invalid_spectrum"

// Config describes a square patch of wind-driven ocean
type Config struct {
	Resolution          int       `json:"resolution"`          // Samples per side, even
	PatchSize           float64   `json:"patchSize"`           // Side length in meters
	WindSpeed           float64   `json:"windSpeed"`           // Meters per second
	WindDirection       core.Vec2 `json:"windDirection"`       // On the X/Z plane
	Amplitude           float64   `json:"amplitude"`           // Phillips constant
	Gravity             float64   `json:"gravity"`             // Meters per second squared
	SmallWaveCutoff     float64   `json:"smallWaveCutoff"`     // Waves shorter than this are damped, meters
	DirectionalExponent float64   `json:"directionalExponent"` // Alignment of waves with the wind
	Seed                int64     `json:"seed"`
}

// DefaultConfig returns a moderate breeze over a 64x64 patch
func DefaultConfig() Config {
	return Config{
		Resolution:          64,
		PatchSize:           100,
		WindSpeed:           12,
		WindDirection:       core.NewVec2(1, 0.3),
		Amplitude:           2e-3,
		Gravity:             9.81,
		SmallWaveCutoff:     0.1,
		DirectionalExponent: 2,
		Seed:                1,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	switch {
	case c.Resolution < 2 || c.Resolution%2 != 0:
		return errors.New("resolution must be an even number of at least 2").
			WithType(ErrTypeInvalidSpectrum).
			WithTag("resolution", c.Resolution)
	case !(c.PatchSize > 0):
		return errors.New("patch size must be positive").
			WithType(ErrTypeInvalidSpectrum).
			WithTag("patch_size", c.PatchSize)
	case !(c.WindSpeed > 0):
		return errors.New("wind speed must be positive").
			WithType(ErrTypeInvalidSpectrum).
			WithTag("wind_speed", c.WindSpeed)
	case c.WindDirection.X == 0 && c.WindDirection.Y == 0:
		return errors.New("wind direction must be a non-zero vector").
			WithType(ErrTypeInvalidSpectrum)
	case !(c.Gravity > 0):
		return errors.New("gravity must be positive").
			WithType(ErrTypeInvalidSpectrum).
			WithTag("gravity", c.Gravity)
	case c.Amplitude < 0 || c.SmallWaveCutoff < 0 || c.DirectionalExponent < 0:
		return errors.New("amplitude, small wave cutoff and directional exponent must not be negative").
			WithType(ErrTypeInvalidSpectrum)
	}
	return nil
}

// Phillips evaluates the Phillips spectrum at wave vector k. It is zero at the
// origin and for waves travelling perpendicular to the wind.
func Phillips(k core.Vec2, cfg Config) float64 {
	k2 := k.X*k.X + k.Y*k.Y
	if k2 == 0 {
		return 0
	}

	windLength := math.Hypot(cfg.WindDirection.X, cfg.WindDirection.Y)
	kLength := math.Sqrt(k2)
	alignment := (k.X*cfg.WindDirection.X + k.Y*cfg.WindDirection.Y) / (kLength * windLength)

	// Largest wave arising from a continuous wind
	largest := cfg.WindSpeed * cfg.WindSpeed / cfg.Gravity

	phillips := cfg.Amplitude * math.Exp(-1/(k2*largest*largest)) / (k2 * k2)
	phillips *= math.Pow(math.Abs(alignment), cfg.DirectionalExponent)
	phillips *= math.Exp(-k2 * cfg.SmallWaveCutoff * cfg.SmallWaveCutoff)
	return phillips
}

// Spectrum holds the initial wave amplitudes of a patch. It is immutable and
// safe for concurrent use.
type Spectrum struct {
	cfg   Config
	h0    []complex128 // Indexed [u*N+v] in FFT order
	omega []float64    // Dispersion per wave vector, same indexing
}

// NewSpectrum draws the initial amplitudes from a seeded Gaussian source
func NewSpectrum(cfg Config) (*Spectrum, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := cfg.Resolution
	random := rand.New(rand.NewSource(cfg.Seed))
	dk := 2 * math.Pi / cfg.PatchSize

	s := &Spectrum{
		cfg:   cfg,
		h0:    make([]complex128, n*n),
		omega: make([]float64, n*n),
	}

	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			k := core.NewVec2(float64(frequency(u, n))*dk, float64(frequency(v, n))*dk)
			amplitude := math.Sqrt(Phillips(k, cfg)*dk*dk/2)

			i := u*n + v
			s.h0[i] = complex(random.NormFloat64()*amplitude, random.NormFloat64()*amplitude)
			s.omega[i] = math.Sqrt(cfg.Gravity * math.Hypot(k.X, k.Y))
		}
	}

	return s, nil
}

// Config returns the configuration the spectrum was built from
func (s *Spectrum) Config() Config {
	return s.cfg
}

// Heights synthesizes the surface at time t. The result holds
// (Resolution+1)x(Resolution+1) samples indexed [u][v], with the periodic seam
// duplicated so that it describes Resolution cells per side.
func (s *Spectrum) Heights(t float64) [][]float64 {
	n := s.cfg.Resolution
	coeff := make([]complex128, n*n)
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			i := u*n + v
			mirror := ((n-u)%n)*n + (n-v)%n
			phase := cmplx.Exp(complex(0, s.omega[i]*t))
			coeff[i] = s.h0[i]*phase + cmplx.Conj(s.h0[mirror])*cmplx.Conj(phase)
		}
	}

	inverse2D(coeff, n)

	heights := make([][]float64, n+1)
	for u := range heights {
		heights[u] = make([]float64, n+1)
		for v := range heights[u] {
			heights[u][v] = real(coeff[(u%n)*n+v%n])
		}
	}
	return heights
}

// inverse2D transforms an n x n grid of coefficients in place, rows first
func inverse2D(grid []complex128, n int) {
	fft := fourier.NewCmplxFFT(n)
	line := make([]complex128, n)
	out := make([]complex128, n)

	for u := 0; u < n; u++ {
		fft.Sequence(out, grid[u*n:(u+1)*n])
		copy(grid[u*n:(u+1)*n], out)
	}
	for v := 0; v < n; v++ {
		for u := 0; u < n; u++ {
			line[u] = grid[u*n+v]
		}
		fft.Sequence(out, line)
		for u := 0; u < n; u++ {
			grid[u*n+v] = out[u]
		}
	}
}

// frequency maps an FFT index to its signed frequency in [-n/2, n/2)
func frequency(i, n int) int {
	if i >= n/2 {
		return i - n
	}
	return i
}
