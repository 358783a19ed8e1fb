package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pulsegen/internal/domain"
	"pulsegen/internal/notify"
)

var errPersist = errors.New("persist failed")

// memStore records every call in a shared log so tests can check ordering
// between persists and notifications.
type memStore struct {
	mu     sync.Mutex
	videos map[string]domain.Video
	log    *callLog
	// failOn makes UpdateAnalysis fail when writing this status.
	failOn domain.VideoStatus
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func newMemStore(log *callLog, videos ...domain.Video) *memStore {
	s := &memStore{videos: make(map[string]domain.Video), log: log}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id string) (*domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %s: not found", id)
	}
	return &v, nil
}

func (s *memStore) UpdateAnalysis(_ context.Context, v *domain.Video, from domain.VideoStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && v.Status == s.failOn {
		return errPersist
	}
	cur, ok := s.videos[v.ID]
	if !ok {
		return fmt.Errorf("video %s: not found", v.ID)
	}
	if cur.Status != from {
		return domain.ErrStatusConflict
	}
	cur.Status = v.Status
	cur.SensitivityScore = v.SensitivityScore
	s.videos[v.ID] = cur
	s.log.add("persist:" + string(v.Status))
	return nil
}

func (s *memStore) status(id string) domain.VideoStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[id].Status
}

func (s *memStore) get(id string) domain.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[id]
}

// loggingPublisher checks that every published status is already readable
// from the store.
type loggingPublisher struct {
	store      *memStore
	log        *callLog
	rec        *notify.Recorder
	mismatches int
}

func (p *loggingPublisher) Publish(ctx context.Context, ev notify.Event) error {
	if p.store.status(ev.VideoID) != ev.Status {
		p.mismatches++
	}
	p.log.add("notify:" + string(ev.Status))
	return p.rec.Publish(ctx, ev)
}

func fixedScore(score float64) Scorer {
	return ScorerFunc(func(context.Context, *domain.Video) (float64, error) {
		return score, nil
	})
}

func pendingVideo(id string) domain.Video {
	return domain.Video{ID: id, Title: id, OwnerID: 1, Status: domain.VideoPending}
}

// blockingJob lets tests control when a job finishes.
type blockingJob struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	runs    []string
}

func newBlockingJob() *blockingJob {
	return &blockingJob{started: make(chan string, 16), release: make(chan struct{})}
}

func (j *blockingJob) Run(ctx context.Context, videoID string) error {
	j.mu.Lock()
	j.runs = append(j.runs, videoID)
	j.mu.Unlock()
	j.started <- videoID
	select {
	case <-j.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *blockingJob) ran() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.runs...)
}
