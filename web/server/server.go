package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/df07/go-ocean-raytracer/pkg/ocean"
	"github.com/df07/go-ocean-raytracer/pkg/renderer"
	"github.com/df07/go-ocean-raytracer/pkg/scene"
	"github.com/df07/go-ocean-raytracer/pkg/sky"
	"github.com/df07/go-ocean-raytracer/pkg/waves"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

// Error types reported by the HTTP API
const (
	ErrTypeBadRequest = "bad_request"
)

// Parameter limits shared by the render and inspect endpoints
var (
	widthLimits    = intLimits{Min: 16, Max: 2000}
	heightLimits   = intLimits{Min: 16, Max: 2000}
	samplesLimits  = intLimits{Min: 1, Max: 10000}
	passesLimits   = intLimits{Min: 1, Max: 100}
	timeLimits     = floatLimits{Min: 0, Max: 3600}
	exposureLimits = floatLimits{Min: 0.001, Max: 100}
)

type intLimits struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type floatLimits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultTileSize is the tile edge used for streamed renders
const DefaultTileSize = 32

// Server handles web requests for the ocean raytracer
type Server struct {
	catalog *scene.Catalog
	api     http.ServeMux // Request/response endpoints
	streams http.ServeMux // Long-lived render streams
}

// NewServer creates a web server that renders scenes from the catalog
func NewServer(catalog *scene.Catalog) *Server {
	s := &Server{catalog: catalog}

	s.api.HandleFunc("/api/health", s.handleHealth)
	s.api.HandleFunc("/api/scenes", s.handleScenes)
	s.api.HandleFunc("/api/scene-config", s.handleSceneConfig)
	s.api.HandleFunc("/api/inspect", s.handleInspect)
	s.api.Handle("/metrics", promhttp.Handler())

	s.streams.HandleFunc("/api/render", s.handleRender)
	s.streams.Handle("/api/render/ws", websocket.Server{Handler: s.handleRenderWS})
	s.streams.Handle("/", metrics.HTTPHandler(&s.api, MetricsPathFormatter))
	return s
}

// Handler returns every endpoint with CORS headers. Request metrics cover the
// API endpoints, streams are counted per render.
func (s *Server) Handler() http.Handler {
	return withCORS(&s.streams)
}

// ListenAndServe runs the servers until ctx is done
func ListenAndServe(ctx context.Context, servers ...*http.Server) {
	go func() {
		<-ctx.Done()

		for _, s := range servers {
			if err := s.Shutdown(context.Background()); err != nil {
				logs.Warn(errors.Newf("shutting down the server failed").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}
	}()

	var wg sync.WaitGroup

	for _, s := range servers {
		wg.Add(1)

		go func(s *http.Server) {
			defer wg.Done()

			logs.WithTag("addr", s.Addr).Info("starting server")

			switch err := s.ListenAndServe(); err {
			case nil, http.ErrServerClosed, context.Canceled:
				logs.WithTag("addr", s.Addr).Info("stopping server")

			default:
				logs.Warn(errors.Newf("server stopped").
					WithTag("addr", s.Addr).
					Wrap(err))
			}
		}(s)
	}

	wg.Wait()
}

// MetricsPathFormatter returns empty string on HTTP 301, 400, 404 or 405 statusCode
func MetricsPathFormatter(statusCode int, path string) string {
	if statusCode == http.StatusMovedPermanently ||
		statusCode == http.StatusBadRequest ||
		statusCode == http.StatusNotFound ||
		statusCode == http.StatusMethodNotAllowed {
		return ""
	}

	return path
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		h.ServeHTTP(w, r)
	})
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in and file scenes
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := s.catalog.ListAllScenes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// SceneConfigResponse holds a scene's defaults and the request limits
type SceneConfigResponse struct {
	Scene    string       `json:"scene"`
	Defaults scene.Config `json:"defaults"`
	Limits   struct {
		Width      intLimits   `json:"width"`
		Height     intLimits   `json:"height"`
		MaxSamples intLimits   `json:"maxSamples"`
		MaxPasses  intLimits   `json:"maxPasses"`
		Time       floatLimits `json:"time"`
		Exposure   floatLimits `json:"exposure"`
	} `json:"limits"`
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneID := r.URL.Query().Get("scene")
	if sceneID == "" {
		sceneID = defaultScene
	}

	cfg, err := s.catalog.Lookup(sceneID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := SceneConfigResponse{Scene: sceneID, Defaults: cfg}
	response.Limits.Width = widthLimits
	response.Limits.Height = heightLimits
	response.Limits.MaxSamples = samplesLimits
	response.Limits.MaxPasses = passesLimits
	response.Limits.Time = timeLimits
	response.Limits.Exposure = exposureLimits
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logs.Warn(errors.New("encoding response failed").Wrap(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError maps error types to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsType(err, scene.ErrTypeUnknownScene):
		status = http.StatusNotFound
	case errors.IsType(err, ErrTypeBadRequest),
		errors.IsType(err, scene.ErrTypeInvalidConfig),
		errors.IsType(err, waves.ErrTypeInvalidSpectrum),
		errors.IsType(err, ocean.ErrTypeInvalidMaterial),
		errors.IsType(err, sky.ErrTypeInvalidSky),
		errors.IsType(err, renderer.ErrTypeInvalidCamera):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logs.Warn(err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue int, limits intLimits) (int, error) {
	value := values.Get(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Newf("invalid %s: %s", key, value).
			WithType(ErrTypeBadRequest).
			WithTag("param", key)
	}
	if parsed < limits.Min || parsed > limits.Max {
		return 0, errors.Newf("%s must be between %d and %d, got: %d", key, limits.Min, limits.Max, parsed).
			WithType(ErrTypeBadRequest).
			WithTag("param", key)
	}
	return parsed, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue float64, limits floatLimits) (float64, error) {
	value := values.Get(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Newf("invalid %s: %s", key, value).
			WithType(ErrTypeBadRequest).
			WithTag("param", key)
	}
	if !(parsed >= limits.Min && parsed <= limits.Max) {
		return 0, errors.Newf("%s must be between %v and %v, got: %v", key, limits.Min, limits.Max, parsed).
			WithType(ErrTypeBadRequest).
			WithTag("param", key)
	}
	return parsed, nil
}
