package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sketchartist07/tempshare/internal/server"
	"github.com/sketchartist07/tempshare/internal/session"
	"github.com/sketchartist07/tempshare/pkg/config"
)

func main() {
	// A missing .env is fine; the environment itself takes precedence anyway.
	_ = godotenv.Load()

	cfg := config.LoadFromEnv()
	setupLogging(cfg.Logging)

	log.Info().Msg("starting tempshare")

	store, err := session.NewStore(cfg.Session.StorageRoot)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	registry := session.NewRegistry()
	manager := session.NewManager(registry, store, cfg.Session.TTL, cfg.Session.MaxFileBytes)
	sweeper := session.NewSweeper(manager, cfg.Session.SweepInterval)

	contact := server.NewContactService(cfg.Contact)
	srv := server.New(cfg, manager, contact)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopSweeper()

	// Give outstanding transfers 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	} else {
		log.Info().Msg("server shutdown complete")
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
