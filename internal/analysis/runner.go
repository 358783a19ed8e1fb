// Package analysis runs the asynchronous sensitivity check of uploaded
// videos and drives their status through pending, processing and a
// terminal safe or flagged state.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"pulsegen/internal/domain"
	"pulsegen/internal/notify"

	"go.uber.org/zap"
)

const (
	DefaultDelay     = 10 * time.Second
	DefaultThreshold = 0.7
)

var ErrNotPending = errors.New("video is not pending analysis")

// Store is the subset of the video repository a job needs. UpdateAnalysis
// must only write while the stored status equals from and report
// domain.ErrStatusConflict otherwise.
type Store interface {
	GetByID(ctx context.Context, id string) (*domain.Video, error)
	UpdateAnalysis(ctx context.Context, v *domain.Video, from domain.VideoStatus) error
}

// Scorer produces a sensitivity score in [0,1).
type Scorer interface {
	Score(ctx context.Context, v *domain.Video) (float64, error)
}

type ScorerFunc func(ctx context.Context, v *domain.Video) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, v *domain.Video) (float64, error) {
	return f(ctx, v)
}

// RandomScorer draws a uniform score. It stands in for a real classifier.
type RandomScorer struct{}

func (RandomScorer) Score(context.Context, *domain.Video) (float64, error) {
	return rand.Float64(), nil
}

// Job is one unit of analysis work keyed by video id.
type Job interface {
	Run(ctx context.Context, videoID string) error
}

type RunnerConfig struct {
	Delay     time.Duration
	Threshold float64
	Scorer    Scorer
	Logger    *zap.Logger
}

// Runner executes analysis jobs. Jobs for the same video never overlap
// within a process; across processes the conditional persist lets only one
// of them move the status.
type Runner struct {
	store     Store
	publisher notify.Publisher
	scorer    Scorer
	delay     time.Duration
	threshold float64
	log       *zap.Logger
	locks     *keyedMutex
}

func NewRunner(store Store, publisher notify.Publisher, cfg RunnerConfig) *Runner {
	if cfg.Scorer == nil {
		cfg.Scorer = RandomScorer{}
	}
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{
		store:     store,
		publisher: publisher,
		scorer:    cfg.Scorer,
		delay:     cfg.Delay,
		threshold: cfg.Threshold,
		log:       cfg.Logger,
		locks:     newKeyedMutex(),
	}
}

// Classify maps a score to a terminal status: flagged iff score > threshold.
func (r *Runner) Classify(score float64) domain.VideoStatus {
	if score > r.threshold {
		return domain.VideoFlagged
	}
	return domain.VideoSafe
}

// Run analyses one pending video. Each transition is persisted before it is
// published; a failed persist ends the job with the video left in its last
// persisted status. Panics are turned into errors.
func (r *Runner) Run(ctx context.Context, videoID string) (err error) {
	start := time.Now()
	jobsInFlight.Inc()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("analysis job panicked: %v", p)
			r.log.Error("analysis job panicked",
				zap.String("video_id", videoID),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		jobsInFlight.Dec()
		jobDuration.Observe(time.Since(start).Seconds())
		jobsTotal.WithLabelValues(resultLabel(err)).Inc()
		if err != nil && resultLabel(err) != "skipped" {
			r.log.Warn("analysis job ended early", zap.String("video_id", videoID), zap.Error(err))
		}
	}()

	unlock := r.locks.Lock(videoID)
	defer unlock()

	v, err := r.store.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("fetch video: %w", err)
	}
	if v.Status != domain.VideoPending {
		return ErrNotPending
	}

	if err := r.transition(ctx, v, domain.VideoProcessing); err != nil {
		return err
	}

	if err := r.wait(ctx); err != nil {
		return err
	}

	score, err := r.scorer.Score(ctx, v)
	if err != nil {
		return fmt.Errorf("score video: %w", err)
	}
	v.SensitivityScore = score
	if err := r.transition(ctx, v, r.Classify(score)); err != nil {
		return err
	}

	r.log.Info("analysis finished",
		zap.String("video_id", v.ID),
		zap.String("status", string(v.Status)),
		zap.Float64("score", score),
	)
	return nil
}

func (r *Runner) transition(ctx context.Context, v *domain.Video, to domain.VideoStatus) error {
	from := v.Status
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}

	v.Status = to
	if err := r.store.UpdateAnalysis(ctx, v, from); err != nil {
		v.Status = from
		return fmt.Errorf("persist %s: %w", to, err)
	}

	ev := notify.Event{VideoID: v.ID, OwnerID: v.OwnerID, Status: to}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("notify %s: %w", to, err)
	}
	return nil
}

func (r *Runner) wait(ctx context.Context) error {
	if r.delay == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrNotPending), errors.Is(err, domain.ErrStatusConflict):
		return "skipped"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}
