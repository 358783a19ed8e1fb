package video

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"pulsegen/internal/analysis"
	"pulsegen/internal/domain"
	"pulsegen/internal/policy"
	"pulsegen/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Caller is the authenticated identity performing an operation.
type Caller struct {
	ID   int64
	Role domain.UserRole
}

type ServiceConfig struct {
	CacheSize int
	CacheTTL  time.Duration
	Logger    *zap.Logger
}

type Service struct {
	videos     VideoRepository
	media      MediaStore
	dispatcher analysis.Dispatcher
	cache      *streamCache
	log        *zap.Logger
}

func NewService(videos VideoRepository, media MediaStore, dispatcher analysis.Dispatcher, cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		videos:     videos,
		media:      media,
		dispatcher: dispatcher,
		cache:      newStreamCache(cfg.CacheSize, cfg.CacheTTL),
		log:        cfg.Logger,
	}
}

// Upload stores the file, records a pending video and dispatches its
// analysis. The returned video reflects the record as created; a dispatch
// failure is logged and leaves the video pending.
func (s *Service) Upload(ctx context.Context, caller Caller, req UploadRequest, fh *multipart.FileHeader) (*domain.Video, error) {
	if !policy.Evaluate(caller.Role, policy.ActionVideoUpload, caller.ID, 0).Allowed() {
		return nil, ErrForbidden
	}

	stored, err := s.media.Save(fh)
	if err != nil {
		return nil, err
	}

	v := &domain.Video{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		FilePath:     stored.RelPath,
		OriginalName: stored.OriginalName,
		MimeType:     stored.MimeType,
		Size:         stored.Size,
		Status:       domain.VideoPending,
		OwnerID:      caller.ID,
	}
	if err := s.videos.Create(ctx, v); err != nil {
		if rmErr := s.media.Remove(stored.RelPath); rmErr != nil {
			s.log.Warn("remove orphaned upload", zap.String("path", stored.RelPath), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("create video record: %w", err)
	}

	created := *v
	if err := s.dispatcher.Dispatch(ctx, v.ID); err != nil {
		s.log.Warn("dispatch analysis", zap.String("video_id", v.ID), zap.Error(err))
	}
	return &created, nil
}

// List returns the caller's videos, or every video for admins.
func (s *Service) List(ctx context.Context, caller Caller, q ListQuery) ([]*domain.Video, error) {
	if !policy.Evaluate(caller.Role, policy.ActionVideoList, caller.ID, 0).Allowed() {
		return nil, ErrForbidden
	}

	f := repository.VideoFilter{
		OwnerID:  caller.ID,
		Status:   domain.VideoStatus(q.Status),
		Search:   q.Search,
		Ordering: q.Ordering,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if policy.CanListAll(caller.Role) {
		f.OwnerID = 0
	}
	return s.videos.List(ctx, f)
}

// Get returns a video the caller may read. Videos the caller cannot see are
// reported as not found.
func (s *Service) Get(ctx context.Context, caller Caller, id string) (*domain.Video, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.Evaluate(caller.Role, policy.ActionVideoRead, caller.ID, v.OwnerID).Allowed() {
		return nil, ErrVideoNotFound
	}
	return v, nil
}

// OpenStream resolves the on-disk path of a video the caller may stream.
func (s *Service) OpenStream(ctx context.Context, caller Caller, id string) (string, error) {
	entry, ok := s.cache.get(id)
	if !ok {
		v, err := s.load(ctx, id)
		if err != nil {
			return "", err
		}
		s.cache.put(v)
		entry = streamEntry{OwnerID: v.OwnerID, FilePath: v.FilePath}
	}

	if !policy.Evaluate(caller.Role, policy.ActionVideoStream, caller.ID, entry.OwnerID).Allowed() {
		return "", ErrVideoNotFound
	}

	path := s.media.Path(entry.FilePath)
	if path == "" {
		return "", ErrFileMissing
	}
	return path, nil
}

// Delete cancels any analysis, then removes the record and the file.
func (s *Service) Delete(ctx context.Context, caller Caller, id string) error {
	v, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if !policy.Evaluate(caller.Role, policy.ActionVideoDelete, caller.ID, v.OwnerID).Allowed() {
		return ErrForbidden
	}

	if s.dispatcher.Cancel(ctx, id) {
		s.log.Info("cancelled analysis of deleted video", zap.String("video_id", id))
	}

	if err := s.videos.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			return ErrVideoNotFound
		}
		return err
	}
	s.cache.remove(id)

	if err := s.media.Remove(v.FilePath); err != nil {
		s.log.Warn("remove video file", zap.String("video_id", id), zap.Error(err))
	}
	return nil
}

// Analyze dispatches analysis for a video that is still pending, e.g. one
// whose first dispatch was rejected. Videos past pending never go back.
func (s *Service) Analyze(ctx context.Context, caller Caller, id string) (*domain.Video, error) {
	v, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !policy.Evaluate(caller.Role, policy.ActionVideoAnalyze, caller.ID, v.OwnerID).Allowed() {
		return nil, ErrForbidden
	}
	if v.Status != domain.VideoPending {
		return nil, ErrAnalysisNotAllowed
	}

	if err := s.dispatcher.Dispatch(ctx, id); err != nil {
		switch {
		case errors.Is(err, analysis.ErrAlreadyQueued), errors.Is(err, analysis.ErrNotPending):
			return nil, ErrAnalysisNotAllowed
		case errors.Is(err, analysis.ErrQueueFull), errors.Is(err, analysis.ErrClosed):
			return nil, ErrAnalysisUnavailable
		default:
			return nil, err
		}
	}
	return v, nil
}

// RequeuePending dispatches every pending video. It runs at startup so
// uploads accepted before a restart still get analysed.
func (s *Service) RequeuePending(ctx context.Context) (int, error) {
	pending, err := s.videos.ListByStatus(ctx, domain.VideoPending)
	if err != nil {
		return 0, fmt.Errorf("list pending videos: %w", err)
	}

	n := 0
	for _, v := range pending {
		err := s.dispatcher.Dispatch(ctx, v.ID)
		switch {
		case err == nil:
			n++
		case errors.Is(err, analysis.ErrAlreadyQueued):
		case errors.Is(err, analysis.ErrQueueFull):
			s.log.Warn("analysis queue full, remaining pending videos wait for the next start",
				zap.Int("requeued", n), zap.Int("pending", len(pending)))
			return n, nil
		default:
			s.log.Warn("requeue analysis", zap.String("video_id", v.ID), zap.Error(err))
		}
	}
	return n, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Video, error) {
	v, err := s.videos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return v, nil
}
