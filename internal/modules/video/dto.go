package video

import (
	"time"

	"pulsegen/internal/domain"
)

type UploadRequest struct {
	Title       string `form:"title" validate:"required,max=255"`
	Description string `form:"description" validate:"max=5000"`
}

type ListQuery struct {
	Search   string `form:"search" validate:"max=200"`
	Ordering string `form:"ordering" validate:"omitempty,oneof=created_at -created_at title -title"`
	Status   string `form:"status" validate:"omitempty,oneof=pending processing safe flagged"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" validate:"omitempty,min=0"`
}

type VideoResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	OriginalName     string    `json:"original_name"`
	MimeType         string    `json:"mime_type"`
	Size             int64     `json:"size"`
	Duration         float64   `json:"duration"`
	Status           string    `json:"status"`
	SensitivityScore float64   `json:"sensitivity_score"`
	OwnerID          int64     `json:"owner_id"`
	UploadedBy       string    `json:"uploaded_by"`
	StreamURL        string    `json:"stream_url"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func ToVideoResponse(v *domain.Video) VideoResponse {
	return VideoResponse{
		ID:               v.ID,
		Title:            v.Title,
		Description:      v.Description,
		OriginalName:     v.OriginalName,
		MimeType:         v.MimeType,
		Size:             v.Size,
		Duration:         v.Duration,
		Status:           string(v.Status),
		SensitivityScore: v.SensitivityScore,
		OwnerID:          v.OwnerID,
		UploadedBy:       v.OwnerUsername,
		StreamURL:        "/api/v1/videos/" + v.ID + "/stream",
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func ToVideoResponses(videos []*domain.Video) []VideoResponse {
	out := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, ToVideoResponse(v))
	}
	return out
}
