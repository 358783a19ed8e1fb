package analysis

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type poolEntry struct {
	cancel    context.CancelFunc
	cancelled bool
}

// Pool runs jobs on a fixed number of goroutines fed by a bounded queue. A
// video id is tracked from Dispatch until its job returns, and a second
// dispatch of a tracked id is rejected.
type Pool struct {
	job     Job
	workers int
	queue   chan string
	log     *zap.Logger

	mu      sync.Mutex
	entries map[string]*poolEntry
	closed  bool

	baseCtx context.Context
	stop    context.CancelFunc
	quit    chan struct{}
	group   *errgroup.Group
}

func NewPool(job Job, workers, queueSize int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		job:     job,
		workers: workers,
		queue:   make(chan string, queueSize),
		log:     log,
		entries: make(map[string]*poolEntry),
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. Jobs inherit ctx values but are cancelled only
// through Cancel or Shutdown.
func (p *Pool) Start(ctx context.Context) {
	p.baseCtx, p.stop = context.WithCancel(context.WithoutCancel(ctx))
	p.group = &errgroup.Group{}
	for i := 0; i < p.workers; i++ {
		p.group.Go(p.work)
	}
	p.log.Info("analysis pool started", zap.Int("workers", p.workers), zap.Int("queue_size", cap(p.queue)))
}

func (p *Pool) Dispatch(_ context.Context, videoID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if _, ok := p.entries[videoID]; ok {
		return ErrAlreadyQueued
	}
	select {
	case p.queue <- videoID:
		p.entries[videoID] = &poolEntry{}
		queueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) Cancel(_ context.Context, videoID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[videoID]
	if !ok {
		return false
	}
	e.cancelled = true
	if e.cancel != nil {
		e.cancel()
	}
	return true
}

func (p *Pool) work() error {
	for {
		select {
		case <-p.quit:
			return nil
		case id := <-p.queue:
			queueDepth.Dec()
			p.runOne(id)
		}
	}
}

func (p *Pool) runOne(videoID string) {
	p.mu.Lock()
	e := p.entries[videoID]
	if e == nil || e.cancelled {
		delete(p.entries, videoID)
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(p.baseCtx)
	e.cancel = cancel
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.entries, videoID)
		p.mu.Unlock()
	}()

	if err := p.job.Run(ctx, videoID); err != nil {
		p.log.Debug("analysis job returned error", zap.String("video_id", videoID), zap.Error(err))
	}
}

// Shutdown stops accepting work and waits for running jobs. Jobs still
// queued are dropped; their videos stay pending. If ctx expires first the
// running jobs are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	if p.group == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	select {
	case err := <-done:
		p.stop()
		return err
	case <-ctx.Done():
		p.stop()
		<-done
		return ctx.Err()
	}
}
