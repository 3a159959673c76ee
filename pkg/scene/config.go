package scene

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
	"github.com/df07/go-ocean-raytracer/pkg/ocean"
	"github.com/df07/go-ocean-raytracer/pkg/renderer"
	"github.com/df07/go-ocean-raytracer/pkg/sky"
	"github.com/df07/go-ocean-raytracer/pkg/waves"
	"github.com/segmentio/encoding/json"
)

// ErrTypeInvalidConfig tags errors caused by an unusable scene description.
const ErrTypeInvalidConfig = "invalid_scene_config"

const (
	SurfaceWaves = "waves"
	SurfaceFlat  = "flat"

	SkyPreetham = "preetham"
	SkyGradient = "gradient"
)

// Config is the JSON description of an ocean scene
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Group       string `json:"group,omitempty"`

	Surface     string       `json:"surface"`    // "waves" or "flat"
	FlatHeight  float64      `json:"flatHeight"` // Water level of a flat surface
	Waves       waves.Config `json:"waves"`
	Time        float64      `json:"time"`        // Seconds since the waves started
	Extent      float64      `json:"extent"`      // World size of the patch on X and Z
	HeightScale float64      `json:"heightScale"` // Multiplies the synthesized heights

	Material ocean.MaterialParams    `json:"material"`
	Sky      SkyConfig               `json:"sky"`
	Camera   renderer.CameraConfig   `json:"camera"`
	Sampling renderer.SamplingConfig `json:"sampling"`
}

// SkyConfig selects and parameterizes the sky model. Up vectors are always
// the world up axis.
type SkyConfig struct {
	Kind     string             `json:"kind"` // "preetham" or "gradient"
	Preetham sky.PreethamConfig `json:"preetham"`
	Top      core.Vec3          `json:"top"`    // Gradient zenith color
	Bottom   core.Vec3          `json:"bottom"` // Gradient nadir color
}

// WorldUp is the up axis of every scene
var WorldUp = core.NewVec3(0, 1, 0)

// DefaultConfig returns the "ocean" preset: a breezy sea under a low sun
func DefaultConfig() Config {
	return Config{
		Name:        "ocean",
		Description: "Wind-driven waves under a low afternoon sun",
		Group:       builtinGroup,
		Surface:     SurfaceWaves,
		Waves:       waves.DefaultConfig(),
		Extent:      100,
		HeightScale: 1,
		Material:    ocean.DefaultMaterialParams(),
		Sky: SkyConfig{
			Kind: SkyPreetham,
			Preetham: sky.PreethamConfig{
				Turbidity:    2.5,
				SunDirection: core.NewVec3(0.2, 0.25, -1),
				Up:           WorldUp,
			},
			Top:    core.NewVec3(0.5, 0.7, 1.0),
			Bottom: core.NewVec3(1.0, 1.0, 1.0),
		},
		Camera: renderer.CameraConfig{
			LookFrom: core.NewVec3(0, 6, 40),
			LookAt:   core.NewVec3(0, 1, -10),
			Up:       WorldUp,
			VFov:     45,
		},
		Sampling: renderer.DefaultSamplingConfig(),
	}
}

// Validate checks every part of the configuration. Errors raised by the
// material, wave, sky and camera checks keep their own types.
func (c Config) Validate() error {
	if c.Name == "" || strings.ContainsAny(c.Name, `/\`) || c.Name == "." || c.Name == ".." {
		return errors.New("scene name must be a non-empty file name").
			WithType(ErrTypeInvalidConfig).
			WithTag("name", c.Name)
	}

	switch c.Surface {
	case SurfaceWaves:
		if err := c.Waves.Validate(); err != nil {
			return err
		}
	case SurfaceFlat:
		if !isFinite(c.FlatHeight) {
			return errors.New("flat height must be finite").
				WithType(ErrTypeInvalidConfig).
				WithTag("flat_height", c.FlatHeight)
		}
	default:
		return errors.Newf("unknown surface %q", c.Surface).
			WithType(ErrTypeInvalidConfig).
			WithTag("surface", c.Surface)
	}

	if !(c.Extent > 0) || math.IsInf(c.Extent, 0) {
		return errors.New("extent must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("extent", c.Extent)
	}
	if !isFinite(c.HeightScale) || !isFinite(c.Time) {
		return errors.New("height scale and time must be finite").
			WithType(ErrTypeInvalidConfig).
			WithTag("height_scale", c.HeightScale).
			WithTag("time", c.Time)
	}

	if err := c.Material.Validate(); err != nil {
		return err
	}
	if _, err := c.Sky.build(); err != nil {
		return err
	}
	if err := c.Camera.Validate(); err != nil {
		return err
	}
	return validateSampling(c.Sampling)
}

func validateSampling(s renderer.SamplingConfig) error {
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return errors.New("image size must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("width", s.Width).
			WithTag("height", s.Height)
	case s.SamplesPerPixel <= 0:
		return errors.New("samples per pixel must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("samples_per_pixel", s.SamplesPerPixel)
	case s.MaxDepth < 0:
		return errors.New("max depth must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_depth", s.MaxDepth)
	case !(s.ImportanceCutoff >= 0):
		return errors.New("importance cutoff must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("importance_cutoff", s.ImportanceCutoff)
	case !(s.Exposure > 0) || math.IsInf(s.Exposure, 0):
		return errors.New("exposure must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("exposure", s.Exposure)
	case !(s.AdaptiveMinSamples >= 0 && s.AdaptiveMinSamples <= 1):
		return errors.New("adaptive minimum samples must be in [0, 1]").
			WithType(ErrTypeInvalidConfig).
			WithTag("adaptive_min_samples", s.AdaptiveMinSamples)
	case !(s.AdaptiveThreshold >= 0):
		return errors.New("adaptive threshold must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("adaptive_threshold", s.AdaptiveThreshold)
	}
	return nil
}

// build creates the sky model around the world up axis
func (s SkyConfig) build() (sky.Model, error) {
	switch s.Kind {
	case SkyPreetham:
		cfg := s.Preetham
		cfg.Up = WorldUp
		return sky.NewPreetham(cfg)
	case SkyGradient:
		if !s.Top.IsFinite() || !s.Bottom.IsFinite() {
			return nil, errors.New("gradient colors must be finite").
				WithType(ErrTypeInvalidConfig)
		}
		return sky.NewGradient(s.Top, s.Bottom, WorldUp), nil
	default:
		return nil, errors.Newf("unknown sky kind %q", s.Kind).
			WithType(ErrTypeInvalidConfig).
			WithTag("kind", s.Kind)
	}
}

// ParseConfig decodes a JSON scene over the default configuration, so a file
// only needs the fields it changes
func ParseConfig(data []byte) (Config, error) {
	return decodeConfig(data, DefaultConfig())
}

// LoadConfig reads a JSON scene file. A file that does not name its scene is
// named after the file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.New("reading scene config failed").
			WithType(ErrTypeInvalidConfig).
			WithTag("path", path).
			Wrap(err)
	}

	base := DefaultConfig()
	base.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base.Description = ""
	base.Group = fileGroup
	return decodeConfig(data, base)
}

func decodeConfig(data []byte, cfg Config) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.New("decoding scene config failed").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
