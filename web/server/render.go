package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/df07/go-ocean-raytracer/pkg/renderer"
	"github.com/df07/go-ocean-raytracer/pkg/scene"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const defaultScene = "ocean"

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene      string  `json:"scene"`      // Scene ID (e.g., "ocean" or "file:north-sea")
	Width      int     `json:"width"`      // Image width
	Height     int     `json:"height"`     // Image height
	MaxSamples int     `json:"maxSamples"` // Maximum samples per pixel
	MaxPasses  int     `json:"maxPasses"`  // Maximum number of passes
	Time       float64 `json:"time"`       // Wave time in seconds
	Exposure   float64 `json:"exposure"`
}

// Event is one message of a render stream. SSE sends Data as the event
// payload, websockets send the whole event.
type Event struct {
	Type     string `json:"type"` // "start", "console", "tile", "passComplete", "error", "complete"
	RenderID string `json:"renderId"`
	Data     any    `json:"data"`
}

// TileUpdate represents a single tile update
type TileUpdate struct {
	TileX       int    `json:"tileX"`
	TileY       int    `json:"tileY"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG of just this tile
	PassNumber  int    `json:"passNumber"`
	TileNumber  int    `json:"tileNumber"`  // Current tile number in this pass (1-based)
	TotalTiles  int    `json:"totalTiles"`  // Total number of tiles in the image
	TotalPasses int    `json:"totalPasses"` // Total number of passes planned
}

// PassUpdate describes a completed pass
type PassUpdate struct {
	PassNumber     int     `json:"passNumber"`
	TotalPasses    int     `json:"totalPasses"`
	IsLast         bool    `json:"isLast"`
	ElapsedMs      int64   `json:"elapsedMs"`
	ImageData      string  `json:"imageData"` // Base64 encoded PNG of the whole image
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int     `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	MinSamples     int     `json:"minSamples"`
	MaxSamplesUsed int     `json:"maxSamplesUsed"`
	PrimaryRays    int     `json:"primaryRays"`
	ReflectionRays int     `json:"reflectionRays"`
	Hits           int     `json:"hits"`
}

// StartUpdate describes the render that is about to begin
type StartUpdate struct {
	Scene   string `json:"scene"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Cells   int    `json:"cells"`
	Samples int    `json:"samples"`
	Passes  int    `json:"passes"`
}

// emitFunc delivers one event to the client. Errors mean the client is gone.
type emitFunc func(Event) error

// handleRender streams a progressive render as Server-Sent Events
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New("streaming not supported"))
		return
	}

	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	s.setSSEHeaders(w)
	emit := func(event Event) error {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	rendersTotal.WithLabelValues(transportSSE, s.streamRender(r.Context(), req, emit)).Inc()
}

// handleRenderWS streams a progressive render over a websocket. Each event is
// sent as one JSON text message, and the socket is closed when the render ends.
func (s *Server) handleRenderWS(conn *websocket.Conn) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()

	// Anything the client sends is ignored, a read error means it left
	go func() {
		defer cancel()
		var discard string
		for websocket.Message.Receive(conn, &discard) == nil {
		}
	}()

	emit := func(event Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return websocket.Message.Send(conn, string(data))
	}

	req, err := s.parseRenderRequest(conn.Request())
	if err != nil {
		emit(Event{Type: "error", Data: err.Error()})
		rendersTotal.WithLabelValues(transportWebsocket, outcomeRejected).Inc()
		return
	}

	rendersTotal.WithLabelValues(transportWebsocket, s.streamRender(ctx, req, emit)).Inc()
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// streamRender renders req progressively and emits its events from the
// calling goroutine. It returns the outcome label for metrics.
func (s *Server) streamRender(ctx context.Context, req *RenderRequest, emit emitFunc) string {
	renderID := uuid.NewString()
	send := func(eventType string, data any) error {
		return emit(Event{Type: eventType, RenderID: renderID, Data: data})
	}

	sceneObj, err := s.buildScene(req)
	if err != nil {
		send("error", err.Error())
		return outcomeRejected
	}

	consoleChan := make(chan ConsoleMessage, 50)
	webLogger := NewWebLogger(renderID, consoleChan)

	raytracer, err := renderer.NewProgressiveRaytracer(sceneObj, renderer.ProgressiveConfig{
		TileSize:           DefaultTileSize,
		InitialSamples:     1,
		MaxSamplesPerPixel: req.MaxSamples,
		MaxPasses:          req.MaxPasses,
		NumWorkers:         0, // Auto-detect
	}, webLogger)
	if err != nil {
		send("error", err.Error())
		return outcomeRejected
	}

	nu, nv := sceneObj.Heightfield().NCells()
	if err := send("start", StartUpdate{
		Scene:   sceneObj.Name(),
		Width:   req.Width,
		Height:  req.Height,
		Cells:   nu * nv,
		Samples: req.MaxSamples,
		Passes:  req.MaxPasses,
	}); err != nil {
		return outcomeDisconnected
	}

	logs.WithTag("render_id", renderID).
		WithTag("scene", sceneObj.Name()).
		WithTag("width", req.Width).
		WithTag("height", req.Height).
		Info("render started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startTime := time.Now()
	passChan, tileChan, errChan := raytracer.RenderProgressive(ctx, renderer.RenderOptions{TileUpdates: true})

	outcome := s.handleRenderingEvents(ctx, send, consoleChan, passChan, tileChan, errChan, req, startTime)
	if outcome != outcomeCompleted {
		// Let the render goroutine finish before returning
		cancel()
		for range passChan {
		}
		for range errChan {
		}
	}

	logs.WithTag("render_id", renderID).
		WithTag("outcome", outcome).
		WithTag("duration", time.Since(startTime).String()).
		Info("render finished")
	return outcome
}

// handleRenderingEvents processes the main rendering event loop
func (s *Server) handleRenderingEvents(ctx context.Context, send func(string, any) error,
	consoleChan <-chan ConsoleMessage, passChan <-chan renderer.PassResult,
	tileChan <-chan renderer.TileCompletionResult, errChan <-chan error,
	req *RenderRequest, startTime time.Time) string {

	for passChan != nil || tileChan != nil {
		var err error

		select {
		case passResult, ok := <-passChan:
			if !ok {
				passChan = nil // Channel closed
				continue
			}
			err = s.sendPassComplete(send, passResult, req, startTime)

		case tileResult, ok := <-tileChan:
			if !ok {
				tileChan = nil // Channel closed
				continue
			}
			err = s.sendTileUpdate(send, tileResult)

		case msg := <-consoleChan:
			err = send("console", msg)

		case <-ctx.Done():
			return outcomeDisconnected
		}

		if err != nil {
			return outcomeDisconnected
		}
	}

	// Flush console messages written by the last pass
	for drained := false; !drained; {
		select {
		case msg := <-consoleChan:
			if send("console", msg) != nil {
				return outcomeDisconnected
			}
		default:
			drained = true
		}
	}

	if err := <-errChan; err != nil {
		if ctx.Err() != nil {
			return outcomeDisconnected
		}
		send("error", fmt.Sprintf("Rendering failed: %v", err))
		return outcomeFailed
	}

	if send("complete", "Rendering completed") != nil {
		return outcomeDisconnected
	}
	return outcomeCompleted
}

// sendPassComplete encodes the pass image and statistics
func (s *Server) sendPassComplete(send func(string, any) error, passResult renderer.PassResult, req *RenderRequest, startTime time.Time) error {
	imageData, err := imageToBase64PNG(passResult.Image)
	if err != nil {
		logs.Warn(errors.New("encoding pass image failed").
			WithTag("pass", passResult.PassNumber).
			Wrap(err))
		return nil
	}

	stats := passResult.Stats
	return send("passComplete", PassUpdate{
		PassNumber:     passResult.PassNumber,
		TotalPasses:    req.MaxPasses,
		IsLast:         passResult.IsLast,
		ElapsedMs:      time.Since(startTime).Milliseconds(),
		ImageData:      imageData,
		TotalPixels:    stats.TotalPixels,
		TotalSamples:   stats.TotalSamples,
		AverageSamples: stats.AverageSamples,
		MinSamples:     stats.MinSamples,
		MaxSamplesUsed: stats.MaxSamplesUsed,
		PrimaryRays:    stats.Rays.Primary,
		ReflectionRays: stats.Rays.Reflection,
		Hits:           stats.Rays.Hits,
	})
}

// sendTileUpdate encodes and sends one finished tile
func (s *Server) sendTileUpdate(send func(string, any) error, tileResult renderer.TileCompletionResult) error {
	tileData, err := imageToBase64PNG(tileResult.TileImage)
	if err != nil {
		logs.Warn(errors.New("encoding tile image failed").
			WithTag("tile_x", tileResult.TileX).
			WithTag("tile_y", tileResult.TileY).
			Wrap(err))
		return nil
	}

	return send("tile", TileUpdate{
		TileX:       tileResult.TileX,
		TileY:       tileResult.TileY,
		ImageData:   tileData,
		PassNumber:  tileResult.PassNumber,
		TileNumber:  tileResult.TileNumber,
		TotalTiles:  tileResult.TotalTiles,
		TotalPasses: tileResult.TotalPasses,
	})
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	req := &RenderRequest{}
	if err := s.parseCommonSceneParams(r, req); err != nil {
		return nil, err
	}

	query := r.URL.Query()
	var err error
	if req.MaxSamples, err = parseIntParam(query, "maxSamples", 16, samplesLimits); err != nil {
		return nil, err
	}
	if req.MaxPasses, err = parseIntParam(query, "maxPasses", 5, passesLimits); err != nil {
		return nil, err
	}
	if req.MaxPasses > req.MaxSamples {
		req.MaxPasses = req.MaxSamples
	}

	// Performance warning
	if req.Width*req.Height > 800*600 && req.MaxSamples > 100 {
		logs.WithTag("width", req.Width).
			WithTag("height", req.Height).
			WithTag("samples", req.MaxSamples).
			Info("large image with high samples may render slowly")
	}

	return req, nil
}

// parseCommonSceneParams reads the parameters shared with inspection
func (s *Server) parseCommonSceneParams(r *http.Request, req *RenderRequest) error {
	query := r.URL.Query()

	req.Scene = query.Get("scene")
	if req.Scene == "" {
		req.Scene = defaultScene
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 640, widthLimits); err != nil {
		return err
	}
	if req.Height, err = parseIntParam(query, "height", 360, heightLimits); err != nil {
		return err
	}
	if req.Time, err = parseFloatParam(query, "time", -1, timeLimits); err != nil {
		return err
	}
	if req.Exposure, err = parseFloatParam(query, "exposure", -1, exposureLimits); err != nil {
		return err
	}
	return nil
}

// buildScene looks up the scene and applies the request overrides. Negative
// time or exposure keep the scene's values.
func (s *Server) buildScene(req *RenderRequest) (*scene.Scene, error) {
	cfg, err := s.catalog.Lookup(req.Scene)
	if err != nil {
		return nil, err
	}

	cfg.Sampling.Width = req.Width
	cfg.Sampling.Height = req.Height
	if req.MaxSamples > 0 {
		cfg.Sampling.SamplesPerPixel = req.MaxSamples
	}
	if req.Time >= 0 {
		cfg.Time = req.Time
	}
	if req.Exposure > 0 {
		cfg.Sampling.Exposure = req.Exposure
	}
	return scene.New(cfg)
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
