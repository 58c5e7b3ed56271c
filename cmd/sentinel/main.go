// Command sentinel runs the container fleet sentinel daemon: it loads
// config, wires up the app, and runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kaelsworks/sentinel/internal/app"
	"github.com/kaelsworks/sentinel/internal/config"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to the sentinel YAML config")
	dockerSocket := flag.String("docker-socket", "/var/run/docker.sock", "path to the Docker daemon socket")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentinel: failed to load config: %v\n", err)
		os.Exit(1)
	}

	configureLogging(cfg.System.LogLevel)

	a, err := app.New(cfg, *dockerSocket)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build sentinel app")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("config", *configPath).Msg("sentinel starting")
	if err := a.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("sentinel exited with error")
	}
	log.Info().Msg("sentinel shut down cleanly")
}

func configureLogging(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
