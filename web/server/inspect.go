package server

import (
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/df07/go-ocean-raytracer/pkg/renderer"
)

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	Scene string `json:"scene"`
	renderer.InspectResult
}

// handleInspect traces the primary ray through one pixel and reports what it
// hit
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req := &RenderRequest{}
	if err := s.parseCommonSceneParams(r, req); err != nil {
		writeError(w, err)
		return
	}

	query := r.URL.Query()
	x, err := parsePixelParam(query.Get("x"), "x", req.Width)
	if err != nil {
		writeError(w, err)
		return
	}
	y, err := parsePixelParam(query.Get("y"), "y", req.Height)
	if err != nil {
		writeError(w, err)
		return
	}

	sceneObj, err := s.buildScene(req)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := renderer.Inspect(sceneObj, x, y)
	if err != nil {
		writeError(w, errors.New("inspecting pixel failed").
			WithType(ErrTypeBadRequest).
			Wrap(err))
		return
	}

	inspectionsTotal.WithLabelValues(strconv.FormatBool(result.Hit)).Inc()
	writeJSON(w, http.StatusOK, InspectResponse{
		Scene:         req.Scene,
		InspectResult: result,
	})
}

// parsePixelParam parses a required pixel coordinate in [0, size)
func parsePixelParam(value, key string, size int) (int, error) {
	if value == "" {
		return 0, errors.Newf("missing %s", key).
			WithType(ErrTypeBadRequest).
			WithTag("param", key)
	}
	return parseIntParam(map[string][]string{key: {value}}, key, 0, intLimits{Min: 0, Max: size - 1})
}
