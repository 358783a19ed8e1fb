package video

import (
	"context"
	"mime/multipart"

	"pulsegen/internal/domain"
	"pulsegen/internal/media"
	"pulsegen/internal/repository"
)

// VideoRepository — the record store operations the video service uses
type VideoRepository interface {
	Create(ctx context.Context, v *domain.Video) error
	GetByID(ctx context.Context, id string) (*domain.Video, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repository.VideoFilter) ([]*domain.Video, error)
	ListByStatus(ctx context.Context, status domain.VideoStatus) ([]*domain.Video, error)
}

// MediaStore keeps the uploaded files.
type MediaStore interface {
	Save(fh *multipart.FileHeader) (*media.Stored, error)
	Path(rel string) string
	Remove(rel string) error
}
