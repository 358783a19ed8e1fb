package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulsegen/internal/analysis"
	"pulsegen/internal/config"
	"pulsegen/internal/database"
	"pulsegen/internal/media"
	"pulsegen/internal/modules/auth"
	"pulsegen/internal/modules/video"
	"pulsegen/internal/notify"
	"pulsegen/internal/pkg/jwt"
	"pulsegen/internal/pkg/logger"
	"pulsegen/internal/repository"
	"pulsegen/internal/server"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := media.NewStore(cfg.MediaDir, cfg.MaxUploadSize)
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	jwtService := jwt.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	hub := notify.NewHub(log.Named("notify"))
	defer hub.Close()

	runner := analysis.NewRunner(videoRepo, hub, analysis.RunnerConfig{
		Delay:     cfg.AnalysisDelay,
		Threshold: cfg.AnalysisFlagThreshold,
		Logger:    log.Named("analysis"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthChecks := []func() error{sqlDB.Ping}

	var (
		dispatcher analysis.Dispatcher
		shutdownFn func(context.Context) error
	)
	switch cfg.AnalysisBackend {
	case config.BackendRedis:
		client, err := analysis.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		healthChecks = append(healthChecks, func() error {
			return client.Ping(context.Background()).Err()
		})

		q := analysis.NewRedisQueue(client, cfg.AnalysisRedisKey, runner, cfg.AnalysisWorkers, log.Named("queue"))
		q.Start(ctx)
		dispatcher, shutdownFn = q, q.Shutdown
	default:
		pool := analysis.NewPool(runner, cfg.AnalysisWorkers, cfg.AnalysisQueueSize, log.Named("pool"))
		pool.Start(ctx)
		dispatcher, shutdownFn = pool, pool.Shutdown
	}

	videoService := video.NewService(videoRepo, store, dispatcher, video.ServiceConfig{
		CacheSize: cfg.VideoCacheSize,
		CacheTTL:  cfg.VideoCacheTTL,
		Logger:    log.Named("video"),
	})

	// the redis backend keeps its queue across restarts, so only the
	// in-memory pool needs pending work pushed back in
	if cfg.AnalysisBackend != config.BackendRedis {
		n, err := videoService.RequeuePending(ctx)
		if err != nil {
			log.Warn("requeue pending videos", zap.Error(err))
		} else if n > 0 {
			log.Info("requeued pending videos", zap.Int("count", n))
		}
	}

	engine := server.New(server.Deps{
		Logger:       log,
		JWT:          jwtService,
		Auth:         auth.NewHandler(auth.NewService(userRepo, jwtService), cfg.JWTAccessTTL),
		Videos:       video.NewHandler(videoService, cfg.MaxUploadSize, log.Named("video")),
		Notify:       notify.NewHandler(hub, jwtService, log.Named("ws")),
		CORSOrigins:  cfg.CORSAllowedOrigins,
		HealthChecks: healthChecks,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("analysis_backend", cfg.AnalysisBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := shutdownFn(shutdownCtx); err != nil {
		log.Warn("analysis shutdown", zap.Error(err))
	}
	return nil
}
