package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"playkeeper/internal/api"
	"playkeeper/internal/config"
	"playkeeper/internal/engine"
	"playkeeper/internal/metrics"
	"playkeeper/internal/player"
	"playkeeper/internal/server"
	"playkeeper/internal/sponsor"
	"playkeeper/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("version", api.Version).
		Msg("starting playkeeper")

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	if err := store.PruneSessionEvents(7 * 24 * time.Hour); err != nil {
		logger.Warn().Err(err).Msg("failed to prune session event log")
	}

	m := metrics.New()
	bus := player.NewBus()
	remote := engine.NewRemote(bus, logger)

	actions := sponsor.ResolveActions(cfg.Sponsor.Categories)
	segmentClient, err := sponsor.NewClient(
		cfg.Sponsor.APIURL,
		actions,
		cfg.Sponsor.FetchTimeout,
		cfg.Sponsor.CacheSize,
		logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize segment client")
	}

	session := player.NewSession(cfg.Playback, remote, bus, store, segmentClient, m, logger)

	handler := api.NewHandler(session, remote, bus, store, logger)
	srv := server.New(cfg, logger, handler, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go session.Run(ctx)

	if cfg.Sponsor.Enabled {
		session.SetSponsorEnabled(true)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("received shutdown signal")
		cancel()

		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("server error")
	}

	logger.Info().Msg("playkeeper stopped")
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}
