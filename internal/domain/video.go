package domain

import (
	"errors"
	"time"
)

type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoSafe       VideoStatus = "safe"
	VideoFlagged    VideoStatus = "flagged"
)

// ErrStatusConflict means the stored status no longer matches the status a
// writer read, so another writer got there first.
var ErrStatusConflict = errors.New("video status changed concurrently")

// videoTransitions is the forward-only analysis state machine.
var videoTransitions = map[VideoStatus]map[VideoStatus]bool{
	VideoPending:    {VideoProcessing: true},
	VideoProcessing: {VideoSafe: true, VideoFlagged: true},
	VideoSafe:       {},
	VideoFlagged:    {},
}

// CanTransition reports whether a video may move from one status to another.
func CanTransition(from, to VideoStatus) bool {
	return videoTransitions[from][to]
}

// IsTerminal reports whether no further transition is possible.
func (s VideoStatus) IsTerminal() bool {
	return s == VideoSafe || s == VideoFlagged
}

func (s VideoStatus) Valid() bool {
	_, ok := videoTransitions[s]
	return ok
}

// Video is the metadata record of an uploaded file. FilePath, Size, OwnerID
// and CreatedAt never change after creation; Status and SensitivityScore are
// written only by the analysis job.
type Video struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	FilePath         string      `json:"-"`
	OriginalName     string      `json:"original_name"`
	MimeType         string      `json:"mime_type"`
	Size             int64       `json:"size"`
	Duration         float64     `json:"duration"`
	Status           VideoStatus `json:"status"`
	SensitivityScore float64     `json:"sensitivity_score"`
	OwnerID          int64       `json:"owner_id"`
	OwnerUsername    string      `json:"uploaded_by"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
