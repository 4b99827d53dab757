package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OlivierFch/sky-track/internal/api"
	"github.com/OlivierFch/sky-track/internal/auth"
	"github.com/OlivierFch/sky-track/internal/config"
	"github.com/OlivierFch/sky-track/internal/health"
	"github.com/OlivierFch/sky-track/internal/kv"
	"github.com/OlivierFch/sky-track/internal/logging"
	"github.com/OlivierFch/sky-track/internal/propagation"
	"github.com/OlivierFch/sky-track/internal/scene"
	"github.com/OlivierFch/sky-track/internal/stream"
	"github.com/OlivierFch/sky-track/internal/tle"
	"github.com/OlivierFch/sky-track/internal/tracker"
	"github.com/OlivierFch/sky-track/internal/trail"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "skytrack",
	Short:        "Track satellites from element sets and stream the globe scene",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         func(cmd *cobra.Command, args []string) error { return run(configFile) },
}

func main() {
	rootCmd.Flags().StringVar(&configFile, "config", os.Getenv("SKYTRACK_CONFIG"), "optional config file (json, yaml or toml)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configFile string) error {
	// Bootstrap logger for config warnings; replaced once the level is known.
	boot := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg, err := config.Load(configFile, boot)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logCloser := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logCloser.Close()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tleCache := tle.NewCache(store, logger, tle.WithTTL(cfg.TLECacheTTL))
	// Stale entries from a previous run are dropped before anything resolves.
	if _, err := tleCache.Evict(tle.EvictExpired, ""); err != nil {
		logger.Warn("startup cache cleanup failed", "component", "main", "error", err)
	}
	fetcher := tle.NewFetcher(cfg.TLESourceURL, logger)
	resolver := tle.NewResolver(tleCache, fetcher, logger)

	prop, err := propagation.NewPropagator(propagation.PropConfig{
		Workers:   cfg.PropWorkers,
		CacheSize: cfg.PropCacheSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating propagator: %w", err)
	}

	sampler := trail.NewSampler(prop, trail.Config{
		Step:       cfg.TrailStep,
		Radius:     cfg.TrailRadius,
		MaxSamples: cfg.TrailMaxSamples,
		Refresh:    cfg.TrailRefresh,
	}, logger)

	hub := stream.NewHub()
	engine := scene.NewEngine(hub, nil, logger)
	engine.OnSelected(func(id string) {
		if id == "" {
			logger.Info("selection cleared", "component", "scene")
			return
		}
		logger.Info("object selected", "component", "scene", "id", id)
	})
	defer engine.DisposeAll()

	trk := tracker.New(scene.NewController(engine), prop, sampler, resolver, tracker.Config{
		PositionInterval: cfg.PositionInterval,
		Radius:           cfg.TrailRadius,
	}, logger)
	defer trk.Close()

	streamHandler := stream.NewHandler(hub, stream.Config{
		MaxConcurrentPerIP: cfg.StreamMaxConcurrent,
		KeepaliveInterval:  cfg.StreamKeepalive,
		FrameInterval:      time.Second / time.Duration(min(cfg.FrameRate, 10)),
		TrustProxy:         cfg.TrustProxy,
	}, logger)

	probe := &health.Probe{}
	srv := api.NewServer(cfg.HTTPAddr, logger, auth.Config{
		Enabled: cfg.AuthEnabled,
		Token:   cfg.AuthToken,
	}, api.Deps{
		Engine:   engine,
		Tracker:  trk,
		Resolver: resolver,
		Cache:    tleCache,
		Probe:    probe,
		Stream:   streamHandler.HandleScene,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := scene.NewLoop(engine, logger).Run(ctx, cfg.FrameRate); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scene loop stopped", "component", "main", "error", err)
		}
	}()

	// Deferred Close must not race a still-running LoadDefaults.
	loadDone := make(chan struct{})
	go func() {
		defer close(loadDone)
		trk.LoadDefaults(ctx, cfg.DefaultObjects)
		probe.MarkReady()
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"component", "main",
			"addr", cfg.HTTPAddr,
			"auth_enabled", cfg.AuthEnabled,
			"store_backend", cfg.StoreBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		<-loopDone
		<-loadDone
		return fmt.Errorf("server listen error: %w", err)
	}

	logger.Info("shutting down server...", "component", "main")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "component", "main", "error", err)
	}
	<-loopDone
	<-loadDone

	logger.Info("server stopped", "component", "main")
	return nil
}

// openStore opens the configured persistent store backend.
func openStore(cfg config.Config, logger *slog.Logger) (kv.Store, func(), error) {
	if cfg.StoreBackend == "memory" {
		logger.Info("using in-memory store", "component", "main")
		return kv.NewMemory(), func() {}, nil
	}

	db, err := kv.OpenSQLite(cfg.StorePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Info("using sqlite store", "component", "main", "path", cfg.StorePath)
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing store", "component", "main", "error", err)
		}
	}, nil
}
