package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultQueueKey = "pulsegen:analysis"

// cancelMarkerTTL bounds how long a cancellation waits for a consumer that
// popped the task but has not started it.
const cancelMarkerTTL = 10 * time.Minute

type task struct {
	VideoID string `json:"video_id"`
}

// RedisQueue is a Dispatcher backed by a Redis list, so several API
// processes can share one queue. Producers LPUSH, consumers BRPOP.
// Ids waiting in the list are tracked in the <key>:queued set so each video
// is queued at most once.
type RedisQueue struct {
	client      *redis.Client
	key         string
	job         Job
	workers     int
	pollTimeout time.Duration
	log         *zap.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc

	stop  context.CancelFunc
	group *errgroup.Group
}

func NewRedisQueue(client *redis.Client, key string, job Job, workers int, log *zap.Logger) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisQueue{
		client:      client,
		key:         key,
		job:         job,
		workers:     workers,
		pollTimeout: time.Second,
		log:         log,
		active:      make(map[string]context.CancelFunc),
	}
}

// NewRedisClient accepts either a redis:// URL or a bare host:port.
func NewRedisClient(raw string) (*redis.Client, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: raw}), nil
}

func (q *RedisQueue) queuedKey() string { return q.key + ":queued" }

func (q *RedisQueue) cancelledKey(videoID string) string {
	return q.key + ":cancelled:" + videoID
}

func encodeTask(videoID string) (string, error) {
	b, err := json.Marshal(task{VideoID: videoID})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Enqueue pushes a task without touching local state. Used by tools that
// only produce work. It returns ErrAlreadyQueued while the id is still
// waiting in the list.
func (q *RedisQueue) Enqueue(ctx context.Context, videoID string) error {
	payload, err := encodeTask(videoID)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	added, err := q.client.SAdd(ctx, q.queuedKey(), videoID).Result()
	if err != nil {
		return fmt.Errorf("mark analysis queued: %w", err)
	}
	if added == 0 {
		return ErrAlreadyQueued
	}

	pipe := q.client.TxPipeline()
	pipe.Del(ctx, q.cancelledKey(videoID))
	pipe.LPush(ctx, q.key, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		q.client.SRem(context.WithoutCancel(ctx), q.queuedKey(), videoID)
		return fmt.Errorf("enqueue analysis: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dispatch(ctx context.Context, videoID string) error {
	q.mu.Lock()
	_, running := q.active[videoID]
	q.mu.Unlock()
	if running {
		return ErrAlreadyQueued
	}
	return q.Enqueue(ctx, videoID)
}

// Cancel removes the queued task or cancels a job running in this process.
// When neither applies another consumer may hold the popped task, so a
// short-lived marker tells it to skip the id.
func (q *RedisQueue) Cancel(ctx context.Context, videoID string) bool {
	found := false

	q.mu.Lock()
	if cancel, ok := q.active[videoID]; ok {
		cancel()
		found = true
	}
	q.mu.Unlock()

	payload, err := encodeTask(videoID)
	if err != nil {
		return found
	}
	removed, err := q.client.LRem(ctx, q.key, 0, payload).Result()
	if err != nil {
		q.log.Warn("remove queued analysis", zap.String("video_id", videoID), zap.Error(err))
	}
	if err := q.client.SRem(ctx, q.queuedKey(), videoID).Err(); err != nil {
		q.log.Warn("unmark queued analysis", zap.String("video_id", videoID), zap.Error(err))
	}

	if !found && removed == 0 {
		if err := q.client.Set(ctx, q.cancelledKey(videoID), 1, cancelMarkerTTL).Err(); err != nil {
			q.log.Warn("mark analysis cancelled", zap.String("video_id", videoID), zap.Error(err))
		}
	}
	return found || removed > 0
}

// Len reports the number of queued tasks.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func (q *RedisQueue) Start(ctx context.Context) {
	ctx, q.stop = context.WithCancel(context.WithoutCancel(ctx))
	q.group = &errgroup.Group{}
	for i := 0; i < q.workers; i++ {
		q.group.Go(func() error { return q.consume(ctx) })
	}
	q.log.Info("analysis redis consumers started", zap.Int("workers", q.workers), zap.String("key", q.key))
}

func (q *RedisQueue) consume(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			q.log.Warn("brpop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(q.pollTimeout):
			}
			continue
		}

		// res[0] is the list key, res[1] the payload.
		var t task
		if err := json.Unmarshal([]byte(res[1]), &t); err != nil || t.VideoID == "" {
			q.log.Warn("dropping malformed analysis task", zap.String("payload", res[1]))
			continue
		}
		if err := q.client.SRem(ctx, q.queuedKey(), t.VideoID).Err(); err != nil {
			q.log.Warn("unmark queued analysis", zap.String("video_id", t.VideoID), zap.Error(err))
		}
		q.handle(ctx, t.VideoID)
	}
}

func (q *RedisQueue) handle(ctx context.Context, videoID string) {
	removed, err := q.client.Del(ctx, q.cancelledKey(videoID)).Result()
	if err == nil && removed > 0 {
		q.log.Info("skipping cancelled analysis", zap.String("video_id", videoID))
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	q.active[videoID] = cancel
	q.mu.Unlock()

	defer func() {
		cancel()
		q.mu.Lock()
		delete(q.active, videoID)
		q.mu.Unlock()
	}()

	if err := q.job.Run(jobCtx, videoID); err != nil {
		q.log.Debug("analysis job returned error", zap.String("video_id", videoID), zap.Error(err))
	}
}

// Shutdown stops the consumers and waits for them, cancelling running
// jobs. Unconsumed tasks remain in Redis.
func (q *RedisQueue) Shutdown(ctx context.Context) error {
	if q.stop == nil {
		return nil
	}
	q.stop()

	done := make(chan error, 1)
	go func() { done <- q.group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
