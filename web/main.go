package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"syscall"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/df07/go-ocean-raytracer/pkg/scene"
	"github.com/df07/go-ocean-raytracer/web/server"
	"github.com/segmentio/encoding/json"
)

// The version number. Set at build.
var version = "v0.1.0"

// Keeps option names readable when the binary is obfuscated.
var _ = reflect.TypeOf(config{})

type config struct {
	Addr      string `cli:"" env:"OCEAN_WEB_ADDR"       help:"Listening address."`
	ScenesDir string `cli:"" env:"OCEAN_WEB_SCENES_DIR" help:"Directory of JSON scene files."`
	LogLevel  string `cli:"" env:"OCEAN_WEB_LOG_LEVEL"  help:"Log level (debug|info|warning|error)."`
	LogIndent bool   `cli:"" env:"OCEAN_WEB_LOG_INDENT" help:"Indent logs."`
	Version   bool   `cli:"" env:"-"                    help:"Show version."`
	Help      bool   `cli:"" env:"-"                    help:"Show help."`
}

func main() {
	conf := config{
		Addr:     ":8080",
		LogLevel: logs.InfoLevel.String(),
	}

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the ocean raytracer web server.").
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

	dirs := []string{"scenes", "../scenes"}
	if conf.ScenesDir != "" {
		dirs = []string{conf.ScenesDir}
	}
	catalog := scene.NewCatalog(dirs...)

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("scenes_dir", catalog.Dir).
		Info("starting ocean raytracer web server")

	webServer := server.NewServer(catalog)
	server.ListenAndServe(ctx, &http.Server{
		Addr:    conf.Addr,
		Handler: webServer.Handler(),
	})
}
