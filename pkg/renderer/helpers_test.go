package renderer

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/df07/go-ocean-raytracer/pkg/core"
	"github.com/df07/go-ocean-raytracer/pkg/geometry"
	"github.com/df07/go-ocean-raytracer/pkg/ocean"
	"github.com/df07/go-ocean-raytracer/pkg/sky"
	"github.com/stretchr/testify/require"
)

// testLogger implements core.Logger for testing by discarding all output
type testLogger struct{}

var _ core.Logger = (*testLogger)(nil)

func (tl *testLogger) Printf(format string, args ...interface{}) {}

// cancellingGeometry cancels a render from inside the traversal once its
// Intersect has been called after times
type cancellingGeometry struct {
	Geometry
	cancel context.CancelFunc
	after  int64
	calls  atomic.Int64
}

func (g *cancellingGeometry) Intersect(ray core.Ray, report geometry.Reporter) bool {
	if g.calls.Add(1) == g.after {
		g.cancel()
	}
	return g.Geometry.Intersect(ray, report)
}

type testScene struct {
	geometries []Geometry
	programs   *ocean.Programs
	camera     *Camera
	sampling   SamplingConfig
}

func (s *testScene) Geometries() []Geometry    { return s.geometries }
func (s *testScene) Programs() *ocean.Programs { return s.programs }
func (s *testScene) Camera() *Camera           { return s.camera }
func (s *testScene) Sampling() SamplingConfig  { return s.sampling }

var (
	testSkyTop    = core.NewVec3(0.3, 0.5, 1.0)
	testSkyBottom = core.NewVec3(1.0, 1.0, 1.0)
)

// flatWater builds a 3x3 cell heightfield at a constant height spanning
// [-10, 10] on X and Z
func flatWater(t *testing.T, height float64) *geometry.Heightfield {
	heights := make([][]float64, 4)
	for u := range heights {
		heights[u] = []float64{height, height, height, height}
	}
	hf, err := geometry.NewHeightfield(geometry.HeightfieldParams{
		Heights: heights,
		BoxMin:  core.NewVec3(-10, height, -10),
		BoxMax:  core.NewVec3(10, height, 10),
	})
	require.NoError(t, err)
	return hf
}

// newTestScene looks down at flat water from above. The top rows of the
// image see the sky, the rest see the water.
func newTestScene(t *testing.T, width, height int) *testScene {
	camera, err := NewCamera(CameraConfig{
		LookFrom: core.NewVec3(0, 5, 10),
		LookAt:   core.NewVec3(0, 0, 0),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     60,
	}, width, height)
	require.NoError(t, err)

	sampling := DefaultSamplingConfig()
	sampling.Width = width
	sampling.Height = height

	up := core.NewVec3(0, 1, 0)
	return &testScene{
		geometries: []Geometry{flatWater(t, 0)},
		programs: &ocean.Programs{
			Material:         ocean.DefaultMaterialParams(),
			Sky:              sky.NewGradient(testSkyTop, testSkyBottom, up),
			Up:               up,
			MaxDepth:         sampling.MaxDepth,
			ImportanceCutoff: sampling.ImportanceCutoff,
		},
		camera:   camera,
		sampling: sampling,
	}
}
