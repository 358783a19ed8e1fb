// Command requeue pushes every pending video onto the Redis analysis queue.
// Run it after switching to the redis backend or after losing the queue.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"pulsegen/internal/analysis"
	"pulsegen/internal/config"
	"pulsegen/internal/database"
	"pulsegen/internal/domain"
	"pulsegen/internal/pkg/logger"
	"pulsegen/internal/repository"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, zlog)
	if err != nil {
		zlog.Fatal("db connect failed", zap.Error(err))
	}

	client, err := analysis.NewRedisClient(cfg.RedisURL)
	if err != nil {
		zlog.Fatal("redis client", zap.Error(err))
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pending, err := repository.NewVideoRepository(db).ListByStatus(ctx, domain.VideoPending)
	if err != nil {
		zlog.Fatal("list pending videos", zap.Error(err))
	}

	// producer only; no consumers are started here
	q := analysis.NewRedisQueue(client, cfg.AnalysisRedisKey, nil, 1, zlog)
	enqueued, skipped := 0, 0
	for _, v := range pending {
		err := q.Enqueue(ctx, v.ID)
		switch {
		case errors.Is(err, analysis.ErrAlreadyQueued):
			skipped++
		case err != nil:
			zlog.Fatal("enqueue", zap.String("video_id", v.ID), zap.Error(err))
		default:
			enqueued++
		}
	}

	depth, _ := q.Len(ctx)
	zlog.Info("requeue completed",
		zap.Int("enqueued", enqueued),
		zap.Int("already_queued", skipped),
		zap.Int64("queue_length", depth),
	)
}
