package main

import (
	// Standard library
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// External dependencies
	"github.com/gin-gonic/gin"

	// Internal packages
	"github.com/houzhh15/vidscribe/cmd/server/internal/api"
	"github.com/houzhh15/vidscribe/cmd/server/internal/audio"
	"github.com/houzhh15/vidscribe/cmd/server/internal/audit"
	"github.com/houzhh15/vidscribe/cmd/server/internal/config"
	"github.com/houzhh15/vidscribe/cmd/server/internal/health"
	"github.com/houzhh15/vidscribe/cmd/server/internal/langdetect"
	"github.com/houzhh15/vidscribe/cmd/server/internal/store"
	"github.com/houzhh15/vidscribe/cmd/server/internal/transcription"
	"github.com/houzhh15/vidscribe/cmd/server/internal/whisper"
	"github.com/houzhh15/vidscribe/pkg/logger"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const (
	healthCheckInterval = time.Minute
	healthFailThreshold = 3
	shutdownTimeout     = 30 * time.Second
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		Format:      cfg.Log.Format,
		WithSource:  !cfg.IsProduction(),
		FilePath:    cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "server")

	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Debug(cfg.PrintConfig())

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Audio extractor (ffmpeg)
	executor := audio.NewLocalExecutor(audio.ExecutorConfig{
		LocalBinaryPaths: map[string]string{"ffmpeg": cfg.Extractor.BinaryPath},
		DefaultTimeout:   cfg.Extractor.Timeout,
	})
	extractor := audio.NewExtractor(executor, audio.Options{
		SampleRate: cfg.Extractor.SampleRate,
		Channels:   cfg.Extractor.Channels,
		Timeout:    cfg.Extractor.Timeout,
	}, logInstance)
	if err := extractor.HealthCheck(rootCtx); err != nil {
		appLogger.Warn("ffmpeg not available, uploads will fail until it is installed", "error", err)
	}

	// Transcription engine, loaded once
	transcriber, err := buildTranscriber(cfg.Whisper, logInstance)
	if err != nil {
		appLogger.Error("transcriber init failed", "error", err)
		os.Exit(1)
	}
	engine := whisper.NewEngine(transcriber, whisper.EngineOptions{
		Model:         cfg.Whisper.Model,
		BatchSize:     cfg.Whisper.BatchSize,
		Device:        cfg.Whisper.Device,
		Timeout:       cfg.Whisper.Timeout,
		MaxConcurrent: cfg.Whisper.MaxConcurrent,
	}, logInstance)
	if err := engine.Load(rootCtx); err != nil {
		appLogger.Warn("engine loaded without a reachable backend", "error", err)
	}

	// Language fallback
	detector, err := langdetect.NewLinguaDetectorFromCodes(cfg.LangDetect.Languages)
	if err != nil {
		appLogger.Error("failed to build language detector", "error", err)
		os.Exit(1)
	}
	resolver := langdetect.NewResolver(detector, logInstance)
	appLogger.Info("language detector ready", "languages", len(cfg.LangDetect.Languages))

	// MongoDB sink
	var sink store.Sink
	mongoStore, err := store.NewMongoStore(rootCtx, store.MongoConfig{
		URL:            cfg.Database.URL,
		Database:       cfg.Database.Name,
		Collection:     cfg.Database.Collection,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}, logInstance)
	if err != nil {
		appLogger.Error("mongo client init failed, records will not be saved", "error", err)
	} else {
		sink = mongoStore
		pingCtx, cancel := context.WithTimeout(rootCtx, cfg.Database.ConnectTimeout)
		if err := mongoStore.Ping(pingCtx); err != nil {
			appLogger.Error("mongo connection failed", "error", err)
		} else {
			appLogger.Info("connected to mongo", "database", cfg.Database.Name)
		}
		cancel()
	}

	// Audit log
	var recorder audit.Recorder = audit.Nop{}
	if cfg.Audit.LogPath != "" {
		auditLogger, err := audit.NewLogger(cfg.Audit.LogPath)
		if err != nil {
			appLogger.Error("audit logger init failed", "error", err)
			os.Exit(1)
		}
		defer auditLogger.Close()
		recorder = auditLogger
		appLogger.Info("audit logger ready", "path", cfg.Audit.LogPath)
	}

	// Readiness probes
	checker := health.NewChecker(healthCheckInterval, healthFailThreshold, logInstance)
	checker.Register("ffmpeg", true, extractor.HealthCheck)
	checker.Register("whisper", cfg.Whisper.Backend != "mock", health.BoolProbe(engine.HealthCheck))
	if sink != nil {
		checker.Register("mongodb", false, sink.Ping)
	}
	go checker.Start(rootCtx)

	service := transcription.NewService(extractor, engine, resolver, sink, transcription.Options{
		TempDir: cfg.Upload.TempDir,
	}, logInstance)

	r := api.NewRouter(api.RouterDeps{
		Service:        service,
		Checker:        checker,
		Audit:          recorder,
		Logger:         logInstance,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Env:            cfg.Server.Env,
		Version:        Version,
		StartTime:      time.Now(),
	})

	// Create HTTP server with graceful shutdown
	serverAddr := cfg.GetServerAddr()
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("server starting", "addr", serverAddr, "env", cfg.Server.Env, "backend", engine.Name(), "device", engine.Device())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	checker.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
	}
	if mongoStore != nil {
		if err := mongoStore.Close(ctx); err != nil {
			appLogger.Warn("mongo disconnect failed", "error", err)
		}
	}
	appLogger.Info("server shutdown complete")
}

// buildTranscriber selects the whisper backend named in the config.
func buildTranscriber(cfg config.WhisperConfig, log *slog.Logger) (whisper.Transcriber, error) {
	switch cfg.Backend {
	case "http", "":
		return whisper.NewHTTPTranscriber(cfg.URL, log), nil
	case "local":
		return whisper.NewLocalTranscriber(cfg.Program, log)
	case "mock":
		return whisper.NewMockTranscriber(log), nil
	default:
		return nil, fmt.Errorf("unsupported whisper backend %q", cfg.Backend)
	}
}
