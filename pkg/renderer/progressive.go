package renderer

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/df07/go-ocean-raytracer/pkg/core"
)

// ErrTypeInvalidRender tags errors raised while setting up or running a render.
const ErrTypeInvalidRender = "invalid_render"

// DefaultLogger implements core.Logger by writing info logs
type DefaultLogger struct{}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	logs.WithTag("component", "renderer").
		Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// NewDefaultLogger creates a new default logger
func NewDefaultLogger() core.Logger {
	return &DefaultLogger{}
}

// ProgressiveConfig controls how samples are spread over passes
type ProgressiveConfig struct {
	TileSize           int // Tile edge in pixels
	InitialSamples     int // Target of the first, preview pass
	MaxSamplesPerPixel int // Target of the last pass
	MaxPasses          int
	NumWorkers         int // 0 runs one worker per CPU
}

// DefaultProgressiveConfig returns sensible default values
func DefaultProgressiveConfig() ProgressiveConfig {
	return ProgressiveConfig{
		TileSize:           64,
		InitialSamples:     1,
		MaxSamplesPerPixel: 16,
		MaxPasses:          5,
	}
}

// ProgressiveRaytracer refines an image over several passes. Pixel statistics
// persist between passes, so each pass only tops pixels up to its target.
type ProgressiveRaytracer struct {
	config        ProgressiveConfig
	exposure      float64
	width, height int
	tiles         []*Tile
	pixels        [][]PixelStats // Indexed [y][x]
	pool          *workerPool
	logger        core.Logger
}

// NewProgressiveRaytracer creates a progressive raytracer sized to the
// scene's camera
func NewProgressiveRaytracer(scene Scene, config ProgressiveConfig, logger core.Logger) (*ProgressiveRaytracer, error) {
	if config.TileSize <= 0 || config.MaxPasses <= 0 || config.InitialSamples <= 0 ||
		config.MaxSamplesPerPixel < config.InitialSamples {
		return nil, errors.New("invalid progressive configuration").
			WithType(ErrTypeInvalidRender).
			WithTag("tile_size", config.TileSize).
			WithTag("max_passes", config.MaxPasses).
			WithTag("initial_samples", config.InitialSamples).
			WithTag("max_samples", config.MaxSamplesPerPixel)
	}
	if logger == nil {
		logger = NewDefaultLogger()
	}

	width, height := scene.Camera().Size()
	pixels := make([][]PixelStats, height)
	for y := range pixels {
		pixels[y] = make([]PixelStats, width)
	}

	return &ProgressiveRaytracer{
		config:   config,
		exposure: scene.Sampling().Exposure,
		width:    width,
		height:   height,
		tiles:    NewTileGrid(width, height, config.TileSize),
		pixels:   pixels,
		pool:     newWorkerPool(scene, config.NumWorkers),
		logger:   logger,
	}, nil
}

// samplesForPass returns the per-pixel sample target of a pass. The first
// pass is a quick preview, the last reaches MaxSamplesPerPixel and the ones in
// between share the difference evenly.
func (pr *ProgressiveRaytracer) samplesForPass(pass int) int {
	c := pr.config
	switch {
	case c.MaxPasses == 1 || pass >= c.MaxPasses:
		return c.MaxSamplesPerPixel
	case pass <= 1:
		return c.InitialSamples
	}

	step := (c.MaxSamplesPerPixel - c.InitialSamples) / (c.MaxPasses - 1)
	return c.InitialSamples + (pass-1)*step
}

// PassResult is one finished progressive pass
type PassResult struct {
	PassNumber int
	Image      *image.RGBA
	Stats      RenderStats // Stats.Rays counts the rays traced during this pass
	Duration   time.Duration
	IsLast     bool
}

// TileCompletionResult describes a tile that finished within a pass
type TileCompletionResult struct {
	TileX      int // Tile coordinates, not pixels
	TileY      int
	TileImage  *image.RGBA
	PassNumber int

	TileNumber  int // 1-based completion order within the pass
	TotalTiles  int
	TotalPasses int
}

// RenderOptions configures progressive rendering behavior
type RenderOptions struct {
	TileUpdates bool // Whether to report finished tiles
}

// RenderPass renders one pass over all tiles. onTile, when set, is called from
// the calling goroutine as tiles finish. Cancelling ctx stops the pass part
// way through its tiles: no image is produced and ctx.Err() is returned.
func (pr *ProgressiveRaytracer) RenderPass(ctx context.Context, pass int, onTile func(TileCompletionResult)) (PassResult, error) {
	target := pr.samplesForPass(pass)
	pr.logger.Printf("Pass %d: target %d samples per pixel on %d workers", pass, target, pr.pool.size())

	jobs := make([]tileJob, len(pr.tiles))
	for i, tile := range pr.tiles {
		jobs[i] = tileJob{tile: tile, target: target}
	}

	start := time.Now()
	var rays RayCounts
	var renderErr error
	finished := 0

	for done := range pr.pool.render(ctx, jobs, pr.pixels) {
		rays = rays.add(done.stats.Rays)
		if done.err != nil {
			if renderErr == nil {
				renderErr = done.err
			}
			continue
		}

		finished++
		if onTile != nil && renderErr == nil {
			onTile(pr.tileCompletion(done.tile, pass, finished))
		}
	}
	recordRays(rays)

	// Jobs are only left unassigned when ctx was cancelled
	if renderErr == nil && finished < len(jobs) {
		renderErr = ctx.Err()
	}
	if renderErr != nil {
		pr.logger.Printf("Pass %d stopped after %d of %d tiles", pass, finished, len(jobs))
		return PassResult{}, renderErr
	}

	img, stats := pr.assembleImage(target)
	stats.Rays = rays
	elapsed := time.Since(start)
	renderPassSeconds.Observe(elapsed.Seconds())

	return PassResult{
		PassNumber: pass,
		Image:      img,
		Stats:      stats,
		Duration:   elapsed,
		IsLast:     pass >= pr.config.MaxPasses || stats.MinSamples >= pr.config.MaxSamplesPerPixel,
	}, nil
}

// RenderProgressive renders the passes in the background. Passes arrive on the
// first channel and, with options.TileUpdates, finished tiles on the second;
// otherwise the tile channel is closed at once. When rendering stops before
// the last pass, the reason (ctx.Err() for a cancellation) is sent on the
// error channel before the pass channel closes.
func (pr *ProgressiveRaytracer) RenderProgressive(ctx context.Context, options RenderOptions) (<-chan PassResult, <-chan TileCompletionResult, <-chan error) {
	passChan := make(chan PassResult, 1)
	tileChan := make(chan TileCompletionResult, len(pr.tiles))
	errChan := make(chan error, 1)

	var onTile func(TileCompletionResult)
	if options.TileUpdates {
		onTile = func(tile TileCompletionResult) {
			select {
			case tileChan <- tile:
			case <-ctx.Done():
			}
		}
	} else {
		close(tileChan)
	}

	go func() {
		defer close(passChan)
		defer close(errChan)
		if options.TileUpdates {
			defer close(tileChan)
		}

		renderActive.Inc()
		defer renderActive.Dec()

		if err := pr.renderPasses(ctx, passChan, onTile); err != nil {
			errChan <- err
		}
	}()

	return passChan, tileChan, errChan
}

func (pr *ProgressiveRaytracer) renderPasses(ctx context.Context, passes chan<- PassResult, onTile func(TileCompletionResult)) error {
	pr.logger.Printf("Starting progressive rendering with %d passes", pr.config.MaxPasses)

	for pass := 1; pass <= pr.config.MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			pr.logger.Printf("Rendering cancelled before pass %d", pass)
			return err
		}

		result, err := pr.RenderPass(ctx, pass, onTile)
		if err != nil {
			return err
		}
		pr.logger.Printf("Pass %d completed in %v (%.1f samples/pixel on average)",
			pass, result.Duration, result.Stats.AverageSamples)

		select {
		case passes <- result:
		case <-ctx.Done():
			return ctx.Err()
		}

		if result.IsLast {
			return nil
		}
	}
	return nil
}

// tileCompletion renders the current state of a finished tile
func (pr *ProgressiveRaytracer) tileCompletion(tile *Tile, pass, number int) TileCompletionResult {
	bounds := tile.Bounds
	img := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, pixelColor(pr.pixels[y][x].GetColor(), pr.exposure))
		}
	}

	return TileCompletionResult{
		TileX:       bounds.Min.X / pr.config.TileSize,
		TileY:       bounds.Min.Y / pr.config.TileSize,
		TileImage:   img,
		PassNumber:  pass,
		TileNumber:  number,
		TotalTiles:  len(pr.tiles),
		TotalPasses: pr.config.MaxPasses,
	}
}

// assembleImage tone maps every pixel and gathers the sample statistics
func (pr *ProgressiveRaytracer) assembleImage(target int) (*image.RGBA, RenderStats) {
	img := image.NewRGBA(image.Rect(0, 0, pr.width, pr.height))
	stats := newRenderStats(target)

	for y, row := range pr.pixels {
		for x := range row {
			pixel := &row[x]
			img.SetRGBA(x, y, pixelColor(pixel.GetColor(), pr.exposure))
			stats.addPixel(pixel.SampleCount)
		}
	}

	stats.finish()
	return img, stats
}

// Tile is a rectangle of the image rendered as one unit of work
type Tile struct {
	ID      int
	Bounds  image.Rectangle
	Sampler core.Sampler // Seeded from ID, so renders are repeatable
}

// NewTile creates a tile whose sampler is seeded from its ID
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:      id,
		Bounds:  bounds,
		Sampler: core.NewRandomSampler(rand.New(rand.NewSource(int64(id + 42)))),
	}
}

// NewTileGrid covers a width x height image with tiles in row-major order.
// Tiles on the right and bottom edges are clipped to the image.
func NewTileGrid(width, height, tileSize int) []*Tile {
	var tiles []*Tile
	for y0 := 0; y0 < height; y0 += tileSize {
		for x0 := 0; x0 < width; x0 += tileSize {
			bounds := image.Rect(x0, y0, min(x0+tileSize, width), min(y0+tileSize, height))
			tiles = append(tiles, NewTile(len(tiles), bounds))
		}
	}
	return tiles
}
