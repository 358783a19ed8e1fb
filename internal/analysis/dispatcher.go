package analysis

import (
	"context"
	"errors"
)

var (
	ErrAlreadyQueued = errors.New("analysis already queued for video")
	ErrQueueFull     = errors.New("analysis queue is full")
	ErrClosed        = errors.New("analysis dispatcher is shut down")
)

// Dispatcher schedules analysis jobs. Dispatch returns once the job is
// accepted; it does not wait for the job unless the implementation says so.
type Dispatcher interface {
	Dispatch(ctx context.Context, videoID string) error
	// Cancel stops a queued or running job. It reports whether a job was
	// found.
	Cancel(ctx context.Context, videoID string) bool
}

// SyncDispatcher runs each job inline on the caller's goroutine.
type SyncDispatcher struct {
	Job Job
}

func NewSyncDispatcher(job Job) *SyncDispatcher {
	return &SyncDispatcher{Job: job}
}

func (d *SyncDispatcher) Dispatch(ctx context.Context, videoID string) error {
	return d.Job.Run(ctx, videoID)
}

func (d *SyncDispatcher) Cancel(context.Context, string) bool { return false }
