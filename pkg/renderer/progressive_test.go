package renderer

import (
	"context"
	"image"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestProgressiveSampleCalculation(t *testing.T) {
	// Test the sample calculation logic without creating a full raytracer
	config := DefaultProgressiveConfig()
	config.InitialSamples = 1
	config.MaxSamplesPerPixel = 50
	config.MaxPasses = 7

	// Create a minimal progressive raytracer for testing
	pr := &ProgressiveRaytracer{
		config: config,
	}

	// Test sample progression with linear distribution
	// Pass 1: 1 sample
	// Pass 2-6: (50-1)/6 = 8.16 -> 8 samples per pass -> 1 + 8*1 = 9, 1 + 8*2 = 17, etc.
	// Pass 7: 50 (final pass gets all remaining)
	expectedTotalSamples := []int{1, 9, 17, 25, 33, 41, 50}

	for pass := 1; pass <= 7; pass++ {
		totalSamples := pr.samplesForPass(pass)

		if totalSamples != expectedTotalSamples[pass-1] {
			t.Errorf("Pass %d: expected %d total samples, got %d",
				pass, expectedTotalSamples[pass-1], totalSamples)
		}
	}
}

func TestProgressiveConfig(t *testing.T) {
	// Test default configuration
	config := DefaultProgressiveConfig()

	if config.TileSize != 64 {
		t.Errorf("Expected default tile size 64, got %d", config.TileSize)
	}

	if config.InitialSamples != 1 {
		t.Errorf("Expected default initial samples 1, got %d", config.InitialSamples)
	}

	if config.MaxSamplesPerPixel != 16 {
		t.Errorf("Expected default max samples 16, got %d", config.MaxSamplesPerPixel)
	}

	if config.MaxPasses != 5 {
		t.Errorf("Expected default max passes 5, got %d", config.MaxPasses)
	}
}

func TestNewProgressiveRaytracerRejectsInvalidConfig(t *testing.T) {
	scene := newTestScene(t, 8, 8)

	tests := []struct {
		name   string
		modify func(c *ProgressiveConfig)
	}{
		{name: "no tiles", modify: func(c *ProgressiveConfig) { c.TileSize = 0 }},
		{name: "no passes", modify: func(c *ProgressiveConfig) { c.MaxPasses = 0 }},
		{name: "no initial samples", modify: func(c *ProgressiveConfig) { c.InitialSamples = 0 }},
		{name: "max below initial", modify: func(c *ProgressiveConfig) { c.InitialSamples = 4; c.MaxSamplesPerPixel = 2 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := DefaultProgressiveConfig()
			test.modify(&config)

			_, err := NewProgressiveRaytracer(scene, config, &testLogger{})
			require.Error(t, err)
			require.True(t, errors.IsType(err, ErrTypeInvalidRender))
		})
	}
}

func TestRenderPassCoversImage(t *testing.T) {
	scene := newTestScene(t, 10, 6)
	config := ProgressiveConfig{
		TileSize:           4,
		InitialSamples:     1,
		MaxSamplesPerPixel: 4,
		MaxPasses:          2,
		NumWorkers:         2,
	}

	pr, err := NewProgressiveRaytracer(scene, config, &testLogger{})
	require.NoError(t, err)
	var tiles []TileCompletionResult
	result, err := pr.RenderPass(context.Background(), 1, func(tile TileCompletionResult) {
		tiles = append(tiles, tile)
	})
	require.NoError(t, err)
	img, stats := result.Image, result.Stats
	require.Equal(t, 1, result.PassNumber)
	require.False(t, result.IsLast)

	require.Equal(t, image.Rect(0, 0, 10, 6), img.Bounds())
	require.Equal(t, 60, stats.TotalPixels)
	require.Equal(t, 60, stats.TotalSamples)
	require.Equal(t, 60, stats.Rays.Primary)
	require.Positive(t, stats.Rays.Hits)

	// 3x2 tiles, the last column and row are clipped
	require.Len(t, tiles, 6)
	seen := map[image.Point]bool{}
	for _, tile := range tiles {
		seen[image.Pt(tile.TileX, tile.TileY)] = true
		require.Equal(t, 6, tile.TotalTiles)
		require.Equal(t, 1, tile.PassNumber)
		if tile.TileX == 2 {
			require.Equal(t, 2, tile.TileImage.Bounds().Dx())
		}
	}
	require.Len(t, seen, 6)

	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			require.Equal(t, uint8(255), img.RGBAAt(x, y).A, "pixel (%d,%d) was not written", x, y)
		}
	}
}

func TestRenderProgressive(t *testing.T) {
	scene := newTestScene(t, 8, 8)
	config := ProgressiveConfig{
		TileSize:           4,
		InitialSamples:     1,
		MaxSamplesPerPixel: 3,
		MaxPasses:          3,
		NumWorkers:         2,
	}

	pr, err := NewProgressiveRaytracer(scene, config, &testLogger{})
	require.NoError(t, err)

	passChan, tileChan, errChan := pr.RenderProgressive(context.Background(), RenderOptions{TileUpdates: true})

	tileCount := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range tileChan {
			tileCount++
		}
	}()

	var passes []PassResult
	for pass := range passChan {
		passes = append(passes, pass)
	}
	<-done

	for err := range errChan {
		require.NoError(t, err)
	}

	require.NotEmpty(t, passes)
	last := passes[len(passes)-1]
	require.True(t, last.IsLast)
	require.Equal(t, image.Rect(0, 0, 8, 8), last.Image.Bounds())
	for i, pass := range passes {
		require.Equal(t, i+1, pass.PassNumber)
	}
	require.Equal(t, 4*len(passes), tileCount)
}

func TestRenderProgressiveCancelled(t *testing.T) {
	scene := newTestScene(t, 8, 8)

	pr, err := NewProgressiveRaytracer(scene, DefaultProgressiveConfig(), &testLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	passChan, _, errChan := pr.RenderProgressive(ctx, RenderOptions{})
	for range passChan {
	}

	err = <-errChan
	require.ErrorIs(t, err, context.Canceled)
}

func TestRenderPassCancelledMidPass(t *testing.T) {
	scene := newTestScene(t, 16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scene.geometries[0] = &cancellingGeometry{Geometry: scene.geometries[0], cancel: cancel, after: 5}

	config := ProgressiveConfig{
		TileSize:           4,
		InitialSamples:     1,
		MaxSamplesPerPixel: 2,
		MaxPasses:          2,
		NumWorkers:         1,
	}
	pr, err := NewProgressiveRaytracer(scene, config, &testLogger{})
	require.NoError(t, err)

	tiles := 0
	result, err := pr.RenderPass(ctx, 1, func(TileCompletionResult) { tiles++ })
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, result.Image)
	require.Zero(t, tiles)
}

func TestRenderProgressiveCancelledMidPass(t *testing.T) {
	scene := newTestScene(t, 16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scene.geometries[0] = &cancellingGeometry{Geometry: scene.geometries[0], cancel: cancel, after: 5}

	config := ProgressiveConfig{
		TileSize:           4,
		InitialSamples:     1,
		MaxSamplesPerPixel: 3,
		MaxPasses:          3,
		NumWorkers:         1,
	}
	pr, err := NewProgressiveRaytracer(scene, config, &testLogger{})
	require.NoError(t, err)

	passChan, tileChan, errChan := pr.RenderProgressive(ctx, RenderOptions{TileUpdates: true})

	var passes []PassResult
	for pass := range passChan {
		passes = append(passes, pass)
	}
	require.Empty(t, passes)

	err = <-errChan
	require.ErrorIs(t, err, context.Canceled)

	for range tileChan {
		t.Fatal("no tile should finish once the pass is cancelled")
	}
}

func TestNewTileGrid(t *testing.T) {
	// Test tile grid generation for a 400x225 image with 64x64 tiles
	width, height, tileSize := 400, 225, 64
	tiles := NewTileGrid(width, height, tileSize)

	// Calculate expected number of tiles
	expectedTilesX := (width + tileSize - 1) / tileSize   // 7 tiles
	expectedTilesY := (height + tileSize - 1) / tileSize  // 4 tiles
	expectedTotalTiles := expectedTilesX * expectedTilesY // 28 tiles

	if len(tiles) != expectedTotalTiles {
		t.Errorf("Expected %d tiles, got %d", expectedTotalTiles, len(tiles))
	}

	// Test that tiles cover the entire image without gaps or overlaps
	covered := make([][]bool, height)
	for y := range covered {
		covered[y] = make([]bool, width)
	}

	for _, tile := range tiles {
		for y := tile.Bounds.Min.Y; y < tile.Bounds.Max.Y; y++ {
			for x := tile.Bounds.Min.X; x < tile.Bounds.Max.X; x++ {
				if x >= width || y >= height {
					t.Errorf("Tile %d extends beyond image bounds at (%d,%d)", tile.ID, x, y)
				}
				if covered[y][x] {
					t.Errorf("Pixel (%d,%d) is covered by multiple tiles", x, y)
				}
				covered[y][x] = true
			}
		}
	}

	// Verify all pixels are covered
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !covered[y][x] {
				t.Errorf("Pixel (%d,%d) is not covered by any tile", x, y)
			}
		}
	}
}

func TestTileDeterministicRandom(t *testing.T) {
	// Create two tiles with the same ID
	bounds := image.Rect(0, 0, 64, 64)
	tile1 := NewTile(42, bounds)
	tile2 := NewTile(42, bounds)

	// They should have the same random seed and produce the same sequence
	val1 := tile1.Sampler.Get1D()
	val2 := tile2.Sampler.Get1D()

	if val1 != val2 {
		t.Errorf("Tiles with same ID should produce same random values: %f != %f", val1, val2)
	}

	// Different tile IDs should produce different sequences
	tile3 := NewTile(43, bounds)
	val3 := tile3.Sampler.Get1D()

	if val1 == val3 {
		t.Error("Tiles with different IDs should produce different random values")
	}
}
