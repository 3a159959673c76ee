package scene

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/core"
	"github.com/df07/go-ocean-raytracer/pkg/renderer"
	"github.com/df07/go-ocean-raytracer/pkg/sky"
	"github.com/df07/go-ocean-raytracer/pkg/waves"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Waves.Resolution = 16
	cfg.Sampling.Width = 16
	cfg.Sampling.Height = 9
	return cfg
}

func TestNewBuildsWaves(t *testing.T) {
	cfg := smallConfig()
	s, err := New(cfg)
	require.NoError(t, err)

	hf := s.Heightfield()
	nu, nv := hf.NCells()
	require.Equal(t, 16, nu)
	require.Equal(t, 16, nv)

	box := hf.BoundingBox()
	require.InDelta(t, -50.0, box.Min.X, 1e-12)
	require.InDelta(t, 50.0, box.Max.X, 1e-12)
	require.InDelta(t, -50.0, box.Min.Z, 1e-12)
	require.InDelta(t, 50.0, box.Max.Z, 1e-12)

	// Heights match the spectrum, and the periodic seam is duplicated
	spectrum, err := waves.NewSpectrum(cfg.Waves)
	require.NoError(t, err)
	expected := spectrum.Heights(cfg.Time)
	for u := 0; u <= nu; u++ {
		for v := 0; v <= nv; v++ {
			require.InDelta(t, expected[u][v]*cfg.HeightScale, hf.Height(u, v), 1e-12)
		}
	}
	require.Equal(t, hf.Height(0, 3), hf.Height(nu, 3))

	require.Len(t, s.Geometries(), 1)
	require.Equal(t, cfg.Name, s.Name())
	require.Equal(t, cfg, s.Config())
	require.Equal(t, cfg.Sampling, s.Sampling())

	width, height := s.Camera().Size()
	require.Equal(t, 16, width)
	require.Equal(t, 9, height)
}

func TestNewWiresPrograms(t *testing.T) {
	cfg := smallConfig()
	cfg.Sampling.MaxDepth = 3
	cfg.Sampling.ImportanceCutoff = 0.05

	s, err := New(cfg)
	require.NoError(t, err)

	programs := s.Programs()
	require.Equal(t, cfg.Material, programs.Material)
	require.Equal(t, WorldUp, programs.Up)
	require.Equal(t, 3, programs.MaxDepth)
	require.Equal(t, 0.05, programs.ImportanceCutoff)
	require.Nil(t, programs.Tracer)
	require.IsType(t, &sky.Preetham{}, programs.Sky)
}

func TestHeightScale(t *testing.T) {
	cfg := smallConfig()
	base, err := New(cfg)
	require.NoError(t, err)

	cfg.HeightScale = 2
	scaled, err := New(cfg)
	require.NoError(t, err)

	require.InDelta(t, 2*base.Heightfield().Height(3, 5), scaled.Heightfield().Height(3, 5), 1e-12)
}

func TestNewFlatScene(t *testing.T) {
	s, err := NewFlatScene(2)
	require.NoError(t, err)
	require.Equal(t, "flat", s.Name())
	require.IsType(t, &sky.Gradient{}, s.Programs().Sky)

	box := s.Heightfield().BoundingBox()
	require.Equal(t, 2.0, box.Min.Y)
	require.Equal(t, 2.0, box.Max.Y)

	hit, ok := s.Heightfield().FirstHit(core.NewRay(core.NewVec3(1.3, 10, -2.7), core.NewVec3(0, -1, 0)))
	require.True(t, ok)
	require.InDelta(t, 8.0, hit.T, 1e-9)
	require.InDelta(t, 1.0, hit.ShadingNormal.Y, 1e-12)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Sky.Preetham.SunDirection = core.NewVec3(0, -1, 0)

	_, err := New(cfg)
	require.Error(t, err)
	require.True(t, errors.IsType(err, sky.ErrTypeInvalidSky))
}

func TestSceneRenders(t *testing.T) {
	cfg := smallConfig()
	s, err := New(cfg)
	require.NoError(t, err)

	rt := renderer.NewRaytracer(s)
	for j := 0; j < cfg.Sampling.Height; j++ {
		for i := 0; i < cfg.Sampling.Width; i++ {
			c := rt.RayColor(s.Camera().GetRay(i, j, core.CenterSampler{}))
			require.True(t, c.IsFinite(), "pixel (%d,%d)", i, j)
		}
	}

	counts := rt.TakeCounts()
	require.Equal(t, cfg.Sampling.Width*cfg.Sampling.Height, counts.Primary)
	require.Positive(t, counts.Hits)
}
