package scene

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/df07/go-ocean-raytracer/pkg/core"
	"github.com/df07/go-ocean-raytracer/pkg/geometry"
	"github.com/df07/go-ocean-raytracer/pkg/ocean"
	"github.com/df07/go-ocean-raytracer/pkg/renderer"
	"github.com/df07/go-ocean-raytracer/pkg/waves"
)

// flatCells is the grid resolution used for flat water
const flatCells = 8

// Scene is a rendered ocean: one heightfield, its shading programs and a
// camera. It implements renderer.Scene and is read-only once built.
type Scene struct {
	config      Config
	heightfield *geometry.Heightfield
	programs    *ocean.Programs
	camera      *renderer.Camera
}

var _ renderer.Scene = (*Scene)(nil)

// New validates the configuration, synthesizes the water surface and wires
// the material and sky into the shading programs
func New(cfg Config) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	heights, err := surfaceHeights(cfg)
	if err != nil {
		return nil, err
	}

	// The box's Y range grows to fit every sample
	half, y := cfg.Extent/2, heights[0][0]
	heightfield, err := geometry.NewHeightfield(geometry.HeightfieldParams{
		Heights: heights,
		BoxMin:  core.NewVec3(-half, y, -half),
		BoxMax:  core.NewVec3(half, y, half),
	})
	if err != nil {
		return nil, err
	}

	skyModel, err := cfg.Sky.build()
	if err != nil {
		return nil, err
	}

	camera, err := renderer.NewCamera(cfg.Camera, cfg.Sampling.Width, cfg.Sampling.Height)
	if err != nil {
		return nil, err
	}

	nu, nv := heightfield.NCells()
	logs.WithTag("scene", cfg.Name).
		WithTag("surface", cfg.Surface).
		WithTag("cells", nu*nv).
		WithTag("sky", cfg.Sky.Kind).
		Info("scene built")

	return &Scene{
		config:      cfg,
		heightfield: heightfield,
		programs: &ocean.Programs{
			Material:         cfg.Material,
			Sky:              skyModel,
			Up:               WorldUp,
			MaxDepth:         cfg.Sampling.MaxDepth,
			ImportanceCutoff: cfg.Sampling.ImportanceCutoff,
		},
		camera: camera,
	}, nil
}

// NewFlatScene builds the "flat" preset with the water at the given height
func NewFlatScene(height float64) (*Scene, error) {
	cfg, err := ConfigForPreset("flat")
	if err != nil {
		return nil, err
	}
	cfg.FlatHeight = height
	return New(cfg)
}

// surfaceHeights returns the height samples indexed [u][v], u along X
func surfaceHeights(cfg Config) ([][]float64, error) {
	var heights [][]float64

	switch cfg.Surface {
	case SurfaceFlat:
		heights = make([][]float64, flatCells+1)
		for u := range heights {
			heights[u] = make([]float64, flatCells+1)
			for v := range heights[u] {
				heights[u][v] = cfg.FlatHeight
			}
		}
		return heights, nil

	default:
		spectrum, err := waves.NewSpectrum(cfg.Waves)
		if err != nil {
			return nil, err
		}
		heights = spectrum.Heights(cfg.Time)
		for u := range heights {
			for v := range heights[u] {
				heights[u][v] *= cfg.HeightScale
			}
		}
		return heights, nil
	}
}

// Geometries implements renderer.Scene
func (s *Scene) Geometries() []renderer.Geometry {
	return []renderer.Geometry{s.heightfield}
}

// Programs implements renderer.Scene
func (s *Scene) Programs() *ocean.Programs {
	return s.programs
}

// Camera implements renderer.Scene
func (s *Scene) Camera() *renderer.Camera {
	return s.camera
}

// Sampling implements renderer.Scene
func (s *Scene) Sampling() renderer.SamplingConfig {
	return s.config.Sampling
}

// Heightfield returns the water surface
func (s *Scene) Heightfield() *geometry.Heightfield {
	return s.heightfield
}

// Config returns the configuration the scene was built from
func (s *Scene) Config() Config {
	return s.config
}

// Name returns the scene name
func (s *Scene) Name() string {
	return s.config.Name
}
