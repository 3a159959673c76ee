package renderer

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestInspectWater(t *testing.T) {
	scene := newTestScene(t, 16, 16)

	result, err := Inspect(scene, 8, 15)
	require.NoError(t, err)

	require.True(t, result.Hit)
	require.Positive(t, result.T)
	require.InDelta(t, 0.0, result.Point.Y, 1e-9)
	require.InDelta(t, 1.0, result.GeometricNormal.Y, 1e-12)
	require.Equal(t, scene.camera.origin, result.Origin)
	require.InDelta(t, 1.0, result.Direction.Length(), 1e-12)
	require.Positive(t, result.Radiance.Luminance())
	require.Equal(t, ToneMap(result.Radiance, scene.sampling.Exposure), result.Color)
}

func TestInspectSky(t *testing.T) {
	scene := newTestScene(t, 16, 16)

	result, err := Inspect(scene, 8, 0)
	require.NoError(t, err)

	require.False(t, result.Hit)
	require.Zero(t, result.T)
	requireVecInDelta(t, scene.programs.Sky.Query(true, result.Direction), result.Radiance, 1e-12)
}

func TestInspectOutsideImage(t *testing.T) {
	scene := newTestScene(t, 16, 16)

	for _, p := range [][2]int{{-1, 0}, {0, -1}, {16, 0}, {0, 16}} {
		_, err := Inspect(scene, p[0], p[1])
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeInvalidRender))
	}
}
