package repository

import (
	"context"
	"errors"
	"strings"

	"bboard/internal/models"
	"bboard/internal/observability"

	"gorm.io/gorm"
)

// AdRepository defines persistence operations for ads and their extra images.
type AdRepository interface {
	Latest(ctx context.Context, limit int) ([]models.Ad, error)
	ListByRubric(ctx context.Context, rubricID uint, keyword string, limit, offset int) ([]models.Ad, int64, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Ad, error)
	GetByID(ctx context.Context, id uint) (*models.Ad, error)
	Create(ctx context.Context, ad *models.Ad) error
	Update(ctx context.Context, ad *models.Ad, added []models.AdditionalImage, removeIDs []uint) ([]string, error)
	Delete(ctx context.Context, id uint) ([]string, error)
}

type adRepository struct {
	db *gorm.DB
}

// NewAdRepository returns a new AdRepository implementation.
func NewAdRepository(db *gorm.DB) AdRepository {
	return &adRepository{db: db}
}

func (r *adRepository) Latest(ctx context.Context, limit int) ([]models.Ad, error) {
	defer observability.TrackQuery("latest", "ads")()

	var ads []models.Ad
	if err := r.db.WithContext(ctx).
		Preload("Rubric.SuperRubric").
		Where("is_active = ?", true).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&ads).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ads, nil
}

// ListByRubric returns one page of active ads in the rubric plus the total
// number of matches. The keyword matches title or content, ignoring case.
func (r *adRepository) ListByRubric(ctx context.Context, rubricID uint, keyword string, limit, offset int) ([]models.Ad, int64, error) {
	defer observability.TrackQuery("list_by_rubric", "ads")()

	q := r.db.WithContext(ctx).Model(&models.Ad{}).
		Where("rubric_id = ? AND is_active = ?", rubricID, true)
	if kw := strings.TrimSpace(keyword); kw != "" {
		pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
		q = q.Where("LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\'", pattern, pattern)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var ads []models.Ad
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&ads).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return ads, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *adRepository) ListByAuthor(ctx context.Context, authorID uint) ([]models.Ad, error) {
	var ads []models.Ad
	if err := r.db.WithContext(ctx).
		Preload("Rubric.SuperRubric").
		Where("author_id = ?", authorID).
		Order("created_at DESC").Order("id DESC").
		Find(&ads).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ads, nil
}

func (r *adRepository) GetByID(ctx context.Context, id uint) (*models.Ad, error) {
	defer observability.TrackQuery("get_by_id", "ads")()

	var ad models.Ad
	if err := r.db.WithContext(ctx).
		Preload("Rubric.SuperRubric").
		Preload("AdditionalImages", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&ad, id).Error; err != nil {
		return nil, notFoundOr(err, "Ad", id)
	}
	return &ad, nil
}

// Create inserts the ad and its extra images in one transaction.
func (r *adRepository) Create(ctx context.Context, ad *models.Ad) error {
	defer observability.TrackQuery("create", "ads")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Rubric", "Author", "Comments").Create(ad).Error
	})
	if err != nil {
		return mapAdWriteError(err)
	}
	return nil
}

// Update saves the ad's editable fields, drops the extra images listed in
// removeIDs and appends added, in one transaction. It returns the file
// names of the dropped images.
func (r *adRepository) Update(ctx context.Context, ad *models.Ad, added []models.AdditionalImage, removeIDs []uint) ([]string, error) {
	defer observability.TrackQuery("update", "ads")()

	var removed []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Ad{}).Where("id = ?", ad.ID).
			Select("rubric_id", "title", "content", "price", "contacts", "image", "is_active").
			Updates(map[string]interface{}{
				"rubric_id": ad.RubricID,
				"title":     ad.Title,
				"content":   ad.Content,
				"price":     ad.Price,
				"contacts":  ad.Contacts,
				"image":     ad.Image,
				"is_active": ad.IsActive,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Ad", ad.ID)
		}

		if len(removeIDs) > 0 {
			var doomed []models.AdditionalImage
			if err := tx.Where("ad_id = ? AND id IN ?", ad.ID, removeIDs).Find(&doomed).Error; err != nil {
				return err
			}
			for _, img := range doomed {
				removed = append(removed, img.Image)
			}
			if err := tx.Where("ad_id = ? AND id IN ?", ad.ID, removeIDs).Delete(&models.AdditionalImage{}).Error; err != nil {
				return err
			}
		}

		for i := range added {
			added[i].ID = 0
			added[i].AdID = ad.ID
		}
		if len(added) > 0 {
			if err := tx.Create(&added).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapAdWriteError(err)
	}
	return removed, nil
}

// Delete removes the ad with its extra images and comments and returns the
// file names the ad owned.
func (r *adRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	defer observability.TrackQuery("delete", "ads")()

	var files []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ad models.Ad
		if err := tx.Preload("AdditionalImages").First(&ad, id).Error; err != nil {
			return notFoundOr(err, "Ad", id)
		}
		files = ad.StoredFiles()

		if err := tx.Where("ad_id = ?", id).Delete(&models.AdditionalImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ad_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Ad{}, id).Error
	})
	if err != nil {
		return nil, mapAdWriteError(err)
	}
	return files, nil
}

func mapAdWriteError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if isForeignKeyViolation(err) {
		return models.NewFieldError("rubric", "Select a valid choice. That choice is not one of the available choices.")
	}
	return models.NewInternalError(err)
}
