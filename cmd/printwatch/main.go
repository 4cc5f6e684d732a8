package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/printwatch/internal/anomaly"
	"codeberg.org/mutker/printwatch/internal/config"
	"codeberg.org/mutker/printwatch/internal/engine"
	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/pid"
	"codeberg.org/mutker/printwatch/internal/printer"
	"codeberg.org/mutker/printwatch/internal/status"
	"codeberg.org/mutker/printwatch/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to acquire PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	if err := run(cfg); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	errFactory := errors.New()
	log := logger.Default()

	client, err := printer.NewClient(printer.Config{
		SourceURL:    cfg.SourceURL,
		FetchTimeout: time.Duration(cfg.FetchTimeout) * time.Second,
	})
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	repo, err := store.NewRepository(store.Config{DBPath: cfg.Database}, log)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close reading store")
		}
	}()

	detector, err := anomaly.NewDetector(anomaly.DefaultConfig())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	publisher, err := status.NewPublisher(status.Config{
		StatusPath: cfg.StatusFile,
		AuditPath:  cfg.AlertsLog,
	}, log)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close status publisher")
		}
	}()

	eng, err := engine.New(engine.Config{
		Interval: time.Duration(cfg.Interval) * time.Second,
	}, client, repo, detector, publisher, log)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := eng.Run(ctx); err != nil {
		return errFactory.Wrap(errors.ErrMainLoop, err)
	}

	logger.Info().Msg("Exiting...")

	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
