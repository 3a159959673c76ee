package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/df07/go-ocean-raytracer/pkg/renderer"
	"github.com/df07/go-ocean-raytracer/pkg/scene"
	"github.com/segmentio/encoding/json"
)

// The version number. Set at build.
var version = "v0.1.0"

// Keeps option names readable when the binary is obfuscated.
var _ = reflect.TypeOf(config{})

type config struct {
	Scene     string  `cli:"" env:"OCEAN_SCENE"      help:"Built-in scene name or path to a JSON scene file."`
	Width     int     `cli:"" env:"OCEAN_WIDTH"      help:"Image width. Zero keeps the scene's width."`
	Height    int     `cli:"" env:"OCEAN_HEIGHT"     help:"Image height. Zero keeps the scene's height."`
	Samples   int     `cli:"" env:"OCEAN_SAMPLES"    help:"Maximum samples per pixel. Zero keeps the scene's value."`
	Passes    int     `cli:"" env:"OCEAN_PASSES"     help:"Number of progressive passes."`
	Workers   int     `cli:"" env:"OCEAN_WORKERS"    help:"Number of render workers. Zero uses every CPU."`
	Time      float64 `cli:"" env:"OCEAN_TIME"       help:"Wave time in seconds. Negative keeps the scene's time."`
	Output    string  `cli:"" env:"OCEAN_OUTPUT"     help:"Directory where renders are written."`
	LogLevel  string  `cli:"" env:"OCEAN_LOG_LEVEL"  help:"Log level (debug|info|warning|error)."`
	LogIndent bool    `cli:"" env:"OCEAN_LOG_INDENT" help:"Indent logs."`
	Version   bool    `cli:"" env:"-"                help:"Show version."`
	Help      bool    `cli:"" env:"-"                help:"Show help."`
}

func defaultConfig() config {
	return config{
		Scene:    "ocean",
		Passes:   renderer.DefaultProgressiveConfig().MaxPasses,
		Time:     -1,
		Output:   "output",
		LogLevel: logs.InfoLevel.String(),
	}
}

func main() {
	conf := defaultConfig()

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Renders an ocean scene to a PNG file. Built-in scenes: " + strings.Join(scene.PresetNames(), ", ") + ".").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	filename, err := run(ctx, conf)
	if err != nil {
		logs.Fatal(err)
	}

	logs.WithTag("file", filename).Info("render saved")
}

// run renders the configured scene progressively and saves the last pass
func run(ctx context.Context, conf config) (string, error) {
	cfg, err := createScene(conf.Scene)
	if err != nil {
		return "", err
	}
	applyOverrides(&cfg, conf)

	s, err := scene.New(cfg)
	if err != nil {
		return "", err
	}

	progressiveConfig := renderer.DefaultProgressiveConfig()
	progressiveConfig.MaxSamplesPerPixel = cfg.Sampling.SamplesPerPixel
	progressiveConfig.NumWorkers = conf.Workers
	if conf.Passes > 0 {
		progressiveConfig.MaxPasses = conf.Passes
	}

	pr, err := renderer.NewProgressiveRaytracer(s, progressiveConfig, nil)
	if err != nil {
		return "", err
	}

	logs.WithTag("scene", cfg.Name).
		WithTag("width", cfg.Sampling.Width).
		WithTag("height", cfg.Sampling.Height).
		WithTag("samples", progressiveConfig.MaxSamplesPerPixel).
		WithTag("passes", progressiveConfig.MaxPasses).
		Info("starting render")

	startTime := time.Now()
	passChan, _, errChan := pr.RenderProgressive(ctx, renderer.RenderOptions{})

	var img *image.RGBA
	for pass := range passChan {
		img = pass.Image
		logs.WithTag("pass", pass.PassNumber).
			WithTag("average_samples", pass.Stats.AverageSamples).
			WithTag("primary_rays", pass.Stats.Rays.Primary).
			WithTag("reflection_rays", pass.Stats.Rays.Reflection).
			WithTag("hits", pass.Stats.Rays.Hits).
			Info("pass completed")
	}

	renderErr := <-errChan
	if img == nil {
		if renderErr == nil {
			renderErr = errors.New("render produced no image")
		}
		return "", errors.New("render failed").
			WithTag("scene", cfg.Name).
			Wrap(renderErr)
	}
	if renderErr != nil {
		logs.Warn(errors.New("render interrupted, saving the last completed pass").
			WithTag("scene", cfg.Name).
			Wrap(renderErr))
	}

	logs.WithTag("scene", cfg.Name).
		WithTag("duration", time.Since(startTime).String()).
		WithTag("average_luminance", renderer.CalculateAverageLuminance(img)).
		Info("render completed")

	return savePNG(img, filepath.Join(conf.Output, cfg.Name), time.Now())
}

// createScene resolves a built-in scene name or a JSON file path
func createScene(name string) (scene.Config, error) {
	if strings.HasSuffix(name, ".json") || strings.ContainsAny(name, `/\`) {
		return scene.LoadConfig(name)
	}
	return scene.ConfigForPreset(name)
}

// applyOverrides replaces scene settings that were given on the command line
func applyOverrides(cfg *scene.Config, conf config) {
	if conf.Width > 0 {
		cfg.Sampling.Width = conf.Width
	}
	if conf.Height > 0 {
		cfg.Sampling.Height = conf.Height
	}
	if conf.Samples > 0 {
		cfg.Sampling.SamplesPerPixel = conf.Samples
	}
	if conf.Time >= 0 {
		cfg.Time = conf.Time
	}
}

// savePNG writes img to dir/render_<timestamp>.png
func savePNG(img image.Image, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.New("creating output directory failed").
			WithTag("dir", dir).
			Wrap(err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("render_%s.png", now.Format("20060102_150405")))
	file, err := os.Create(filename)
	if err != nil {
		return "", errors.New("creating output file failed").
			WithTag("file", filename).
			Wrap(err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", errors.New("encoding png failed").
			WithTag("file", filename).
			Wrap(err)
	}
	return filename, nil
}
