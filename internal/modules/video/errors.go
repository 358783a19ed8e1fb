package video

import "errors"

var (
	ErrVideoNotFound       = errors.New("video not found")
	ErrForbidden           = errors.New("insufficient permissions")
	ErrFileMissing         = errors.New("video file is missing")
	ErrAnalysisNotAllowed  = errors.New("analysis can only be started for pending videos")
	ErrAnalysisUnavailable = errors.New("analysis queue unavailable")
)
