package renderer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	rayKindLabel = "kind"

	rayKindPrimary    = "primary"
	rayKindReflection = "reflection"
)

var (
	raysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocean_rays_total",
		Help: "The number of radiance rays traced.",
	}, []string{
		rayKindLabel,
	})

	rayHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ocean_ray_hits_total",
		Help: "The number of radiance rays that hit the water surface.",
	})

	renderPassSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ocean_render_pass_seconds",
		Help:    "The time taken to render one progressive pass.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	renderActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ocean_render_active",
		Help: "The number of progressive renders in flight.",
	})
)

// recordRays publishes the counts gathered while rendering one tile
func recordRays(counts RayCounts) {
	raysTotal.WithLabelValues(rayKindPrimary).Add(float64(counts.Primary))
	raysTotal.WithLabelValues(rayKindReflection).Add(float64(counts.Reflection))
	rayHitsTotal.Add(float64(counts.Hits))
}
