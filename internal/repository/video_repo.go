package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"pulsegen/internal/domain"

	"gorm.io/gorm"
)

// VideoFilter narrows List. A zero OwnerID lists every owner.
type VideoFilter struct {
	OwnerID  int64
	Status   domain.VideoStatus
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

// orderings whitelists the sortable columns; "-" prefix means descending.
var orderings = map[string]string{
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
	"title":       "title ASC",
	"-title":      "title DESC",
}

const defaultOrdering = "-created_at"

type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

type videoModel struct {
	ID               string    `gorm:"column:id;primaryKey;size:36"`
	Title            string    `gorm:"column:title;size:255;not null"`
	Description      string    `gorm:"column:description"`
	FilePath         string    `gorm:"column:file_path;not null"`
	OriginalName     string    `gorm:"column:original_name"`
	MimeType         string    `gorm:"column:mime_type"`
	Size             int64     `gorm:"column:size;not null;default:0"`
	Duration         float64   `gorm:"column:duration;not null;default:0"`
	Status           string    `gorm:"column:status;size:20;not null;default:pending;index"`
	SensitivityScore float64   `gorm:"column:sensitivity_score;not null;default:0"`
	OwnerID          int64     `gorm:"column:owner_id;not null;index"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (videoModel) TableName() string { return "videos" }

func toDomainVideo(m videoModel) *domain.Video {
	return &domain.Video{
		ID:               m.ID,
		Title:            m.Title,
		Description:      m.Description,
		FilePath:         m.FilePath,
		OriginalName:     m.OriginalName,
		MimeType:         m.MimeType,
		Size:             m.Size,
		Duration:         m.Duration,
		Status:           domain.VideoStatus(m.Status),
		SensitivityScore: m.SensitivityScore,
		OwnerID:          m.OwnerID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toVideoModel(v *domain.Video) videoModel {
	return videoModel{
		ID:               v.ID,
		Title:            strings.TrimSpace(v.Title),
		Description:      v.Description,
		FilePath:         v.FilePath,
		OriginalName:     v.OriginalName,
		MimeType:         v.MimeType,
		Size:             v.Size,
		Duration:         v.Duration,
		Status:           string(v.Status),
		SensitivityScore: v.SensitivityScore,
		OwnerID:          v.OwnerID,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func (r *VideoRepository) Create(ctx context.Context, v *domain.Video) error {
	m := toVideoModel(v)
	if m.Status == "" {
		m.Status = string(domain.VideoPending)
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	*v = *toDomainVideo(m)
	// the row is stored; a failed name lookup only leaves uploaded_by empty
	_ = r.attachOwners(ctx, []*domain.Video{v})
	return nil
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	var m videoModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}
	v := toDomainVideo(m)
	if err := r.attachOwners(ctx, []*domain.Video{v}); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateAnalysis persists the analysis fields (status, score) of an existing
// video and bumps updated_at. The write only applies while the stored status
// is still from; otherwise it returns domain.ErrStatusConflict and nothing
// changes. Other columns are left untouched.
func (r *VideoRepository) UpdateAnalysis(ctx context.Context, v *domain.Video, from domain.VideoStatus) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&videoModel{}).
		Where("id = ? AND status = ?", v.ID, string(from)).
		Updates(map[string]any{
			"status":            string(v.Status),
			"sensitivity_score": v.SensitivityScore,
			"updated_at":        now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&videoModel{}).Where("id = ?", v.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrVideoNotFound
		}
		return domain.ErrStatusConflict
	}
	v.UpdatedAt = now
	return nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&videoModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepository) List(ctx context.Context, f VideoFilter) ([]*domain.Video, error) {
	q := r.db.WithContext(ctx).Model(&videoModel{})
	if f.OwnerID != 0 {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	order, ok := orderings[f.Ordering]
	if !ok {
		order = orderings[defaultOrdering]
	}
	q = q.Order(order)

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []videoModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.Video, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainVideo(m))
	}
	if err := r.attachOwners(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

type ownerName struct {
	ID       int64
	Username string
}

// attachOwners fills OwnerUsername with one lookup for the whole page.
func (r *VideoRepository) attachOwners(ctx context.Context, videos []*domain.Video) error {
	ids := make([]int64, 0, len(videos))
	seen := make(map[int64]bool, len(videos))
	for _, v := range videos {
		if !seen[v.OwnerID] {
			seen[v.OwnerID] = true
			ids = append(ids, v.OwnerID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var rows []ownerName
	err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Select("id", "username").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return err
	}

	names := make(map[int64]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Username
	}
	for _, v := range videos {
		v.OwnerUsername = names[v.OwnerID]
	}
	return nil
}

func (r *VideoRepository) ListByStatus(ctx context.Context, status domain.VideoStatus) ([]*domain.Video, error) {
	return r.List(ctx, VideoFilter{Status: status, Ordering: "created_at"})
}
