package repository

import (
	"context"

	"bboard/internal/models"
	"bboard/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListActiveByAd(ctx context.Context, adID uint) ([]models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("Ad", comment.AdID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// ListActiveByAd returns visible comments, oldest first.
func (r *commentRepository) ListActiveByAd(ctx context.Context, adID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("ad_id = ? AND is_active = ?", adID, true).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}
