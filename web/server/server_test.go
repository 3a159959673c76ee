package server

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-ocean-raytracer/pkg/scene"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newTestServer(t *testing.T) *Server {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bay.json"), []byte(`{"surface": "flat", "flatHeight": 0.5}`), 0o644))
	return NewServer(scene.NewCatalog(dir))
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := get(t, newTestServer(t), "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestScenes(t *testing.T) {
	w := get(t, newTestServer(t), "/api/scenes")
	require.Equal(t, http.StatusOK, w.Code)

	var response scene.ScenesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Groups, 2)
	require.Len(t, response.Groups[0].Scenes, len(scene.PresetNames()))
	require.Equal(t, "file:bay", response.Groups[1].Scenes[0].ID)
}

func TestSceneConfig(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/api/scene-config")
	require.Equal(t, http.StatusOK, w.Code)

	var response SceneConfigResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "ocean", response.Scene)
	require.Equal(t, scene.DefaultConfig().Waves, response.Defaults.Waves)
	require.Equal(t, widthLimits, response.Limits.Width)

	w = get(t, s, "/api/scene-config?scene=file:bay")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, scene.SurfaceFlat, response.Defaults.Surface)
	require.Equal(t, 0.5, response.Defaults.FlatHeight)

	w = get(t, s, "/api/scene-config?scene=maelstrom")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInspect(t *testing.T) {
	s := newTestServer(t)

	w := get(t, s, "/api/inspect?scene=flat&width=16&height=16&x=8&y=15")
	require.Equal(t, http.StatusOK, w.Code)

	var water InspectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &water))
	require.Equal(t, "flat", water.Scene)
	require.True(t, water.Hit)
	require.InDelta(t, 0.0, water.Point.Y, 1e-9)
	require.InDelta(t, 1.0, water.ShadingNormal.Y, 1e-9)

	w = get(t, s, "/api/inspect?scene=flat&width=16&height=16&x=8&y=0")
	require.Equal(t, http.StatusOK, w.Code)

	var sky InspectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sky))
	require.False(t, sky.Hit)
	require.Positive(t, sky.Radiance.Luminance())
}

func TestInspectRejectsBadParams(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		target string
		status int
	}{
		{"/api/inspect?width=16&height=16&y=3", http.StatusBadRequest},
		{"/api/inspect?width=16&height=16&x=16&y=3", http.StatusBadRequest},
		{"/api/inspect?width=16&height=16&x=abc&y=3", http.StatusBadRequest},
		{"/api/inspect?width=5&height=16&x=1&y=3", http.StatusBadRequest},
		{"/api/inspect?scene=file:missing&width=16&height=16&x=1&y=3", http.StatusNotFound},
	}

	for _, test := range tests {
		w := get(t, s, test.target)
		require.Equal(t, test.status, w.Code, test.target)
		require.Contains(t, w.Body.String(), `"error"`, test.target)
	}
}

// readSSE splits an event stream into (type, data) pairs
func readSSE(t *testing.T, body io.Reader) [][2]string {
	var events [][2]string
	var eventType string

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 1<<20), 1<<24)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			events = append(events, [2]string{eventType, strings.TrimPrefix(line, "data: ")})
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestRenderSSE(t *testing.T) {
	w := get(t, newTestServer(t), "/api/render?scene=flat&width=16&height=16&maxSamples=2&maxPasses=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := readSSE(t, w.Body)
	require.NotEmpty(t, events)
	require.Equal(t, "start", events[0][0])
	require.Equal(t, "complete", events[len(events)-1][0])

	var passes []PassUpdate
	tiles := 0
	for _, event := range events {
		switch event[0] {
		case "passComplete":
			var pass PassUpdate
			require.NoError(t, json.Unmarshal([]byte(event[1]), &pass))
			passes = append(passes, pass)
		case "tile":
			tiles++
		case "error":
			t.Fatalf("unexpected error event: %s", event[1])
		}
	}

	require.Len(t, passes, 2)
	last := passes[len(passes)-1]
	require.True(t, last.IsLast)
	require.Equal(t, 256, last.TotalPixels)
	require.NotEmpty(t, last.ImageData)
	require.Positive(t, last.PrimaryRays)
	require.Equal(t, 2*((16+DefaultTileSize-1)/DefaultTileSize), tiles)
}

func TestRenderSSERejectsBadParams(t *testing.T) {
	w := get(t, newTestServer(t), "/api/render?maxSamples=0")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "maxSamples")
}

func TestRenderWebsocket(t *testing.T) {
	httpServer := httptest.NewServer(newTestServer(t).Handler())
	defer httpServer.Close()

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/render/ws?scene=file:bay&width=16&height=16&maxSamples=1&maxPasses=1"
	conn, err := websocket.Dial(url, "", httpServer.URL)
	require.NoError(t, err)
	defer conn.Close()

	var events []Event
	for {
		var msg string
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			break
		}

		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg), &event))
		events = append(events, event)
	}

	require.NotEmpty(t, events)
	require.Equal(t, "start", events[0].Type)
	require.Equal(t, "complete", events[len(events)-1].Type)

	renderID := events[0].RenderID
	require.Len(t, renderID, 36)
	for _, event := range events {
		require.Equal(t, renderID, event.RenderID)
		require.NotEqual(t, "error", event.Type)
	}
}

func TestRenderWebsocketUnknownScene(t *testing.T) {
	httpServer := httptest.NewServer(newTestServer(t).Handler())
	defer httpServer.Close()

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/render/ws?scene=atlantis&width=16&height=16"
	conn, err := websocket.Dial(url, "", httpServer.URL)
	require.NoError(t, err)
	defer conn.Close()

	var msg string
	require.NoError(t, websocket.Message.Receive(conn, &msg))

	var event Event
	require.NoError(t, json.Unmarshal([]byte(msg), &event))
	require.Equal(t, "error", event.Type)
	require.Contains(t, event.Data, "atlantis")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	get(t, s, "/api/render?scene=flat&width=16&height=16&maxSamples=1&maxPasses=1")

	w := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ocean_web_renders_total")
	require.Contains(t, w.Body.String(), "ocean_rays_total")
}

func TestMetricsPathFormatter(t *testing.T) {
	require.Equal(t, "/api/render", MetricsPathFormatter(http.StatusOK, "/api/render"))
	for _, status := range []int{http.StatusMovedPermanently, http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed} {
		require.Empty(t, MetricsPathFormatter(status, "/api/render"))
	}
}
