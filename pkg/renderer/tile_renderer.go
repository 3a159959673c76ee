package renderer

import (
	"context"
	"image"

	"github.com/df07/go-ocean-raytracer/pkg/core"
)

// tileRenderer brings the pixels of a tile up to a sample target. Every
// worker owns one, together with its raytracer.
type tileRenderer struct {
	camera    *Camera
	raytracer *Raytracer
	config    SamplingConfig
}

func newTileRenderer(scene Scene, raytracer *Raytracer) *tileRenderer {
	return &tileRenderer{
		camera:    scene.Camera(),
		raytracer: raytracer,
		config:    scene.Sampling(),
	}
}

// render samples each pixel in bounds until it holds target samples or has
// converged. Cancellation is checked before every row: rows already sampled
// keep their samples and ctx.Err() is returned. The returned stats carry the
// rays traced by this call either way.
func (tr *tileRenderer) render(ctx context.Context, bounds image.Rectangle, pixels [][]PixelStats, sampler core.Sampler, target int) (RenderStats, error) {
	minSamples := max(1, int(float64(target)*tr.config.AdaptiveMinSamples))
	stats := newRenderStats(target)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		if err := ctx.Err(); err != nil {
			stats.Rays = tr.raytracer.TakeCounts()
			return stats, err
		}

		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			ps := &pixels[y][x]
			before := ps.SampleCount
			for ps.SampleCount < target && !ps.converged(minSamples, tr.config.AdaptiveThreshold) {
				ps.AddSample(tr.raytracer.RayColor(tr.camera.GetRay(x, y, sampler)))
			}
			stats.addPixel(ps.SampleCount - before)
		}
	}

	stats.finish()
	stats.Rays = tr.raytracer.TakeCounts()
	return stats, nil
}
