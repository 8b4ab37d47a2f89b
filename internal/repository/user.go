// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"bboard/internal/models"
	"bboard/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListActiveByEmail(ctx context.Context, email string) ([]models.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	ListByActivation(ctx context.Context, activated bool, joinedBefore *time.Time) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	MarkActivated(ctx context.Context, id uint) error
	SetActive(ctx context.Context, id uint, active bool) error
	SetPassword(ctx context.Context, id uint, hash string) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	DeleteWithAds(ctx context.Context, id uint) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("get_by_id", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer observability.TrackQuery("get_by_username", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) ListActiveByEmail(ctx context.Context, email string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?) AND is_active = ?", email, true).
		Order("id").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.taken(ctx, "username", username, excludeID)
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.taken(ctx, "email", email, excludeID)
}

func (r *userRepository) taken(ctx context.Context, column, value string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("LOWER("+column+") = LOWER(?)", value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// ListByActivation returns users by activation state. joinedBefore, when
// set, keeps only accounts older than that moment.
func (r *userRepository) ListByActivation(ctx context.Context, activated bool, joinedBefore *time.Time) ([]models.User, error) {
	var users []models.User
	q := r.db.WithContext(ctx).Where("is_activated = ?", activated)
	if joinedBefore != nil {
		q = q.Where("date_joined < ?", *joinedBefore)
	}
	if err := q.Order("date_joined").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("create", "users")()

	if err := r.db.WithContext(ctx).Omit("Ads").Create(user).Error; err != nil {
		return mapUserWriteError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("username", "email", "first_name", "last_name", "send_messages").
		Updates(user).Error
	if err != nil {
		return mapUserWriteError(err)
	}
	return nil
}

func (r *userRepository) MarkActivated(ctx context.Context, id uint) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"is_active":    true,
		"is_activated": true,
	})
}

func (r *userRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"is_active": active})
}

func (r *userRepository) SetPassword(ctx context.Context, id uint, hash string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"password": hash})
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"last_login": at})
}

func (r *userRepository) updateColumns(ctx context.Context, id uint, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

// DeleteWithAds removes the user together with every ad they own, the ads'
// extra images and comments, in one transaction. It returns the stored file
// names that belonged to the removed ads so the caller can delete them once
// the transaction has committed.
func (r *userRepository) DeleteWithAds(ctx context.Context, id uint) ([]string, error) {
	defer observability.TrackQuery("delete_cascade", "users")()

	var files []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ads []models.Ad
		if err := tx.Preload("AdditionalImages").Where("author_id = ?", id).Find(&ads).Error; err != nil {
			return err
		}
		adIDs := make([]uint, 0, len(ads))
		for i := range ads {
			adIDs = append(adIDs, ads[i].ID)
			files = append(files, ads[i].StoredFiles()...)
		}

		if len(adIDs) > 0 {
			if err := tx.Where("ad_id IN ?", adIDs).Delete(&models.AdditionalImage{}).Error; err != nil {
				return err
			}
			if err := tx.Where("ad_id IN ?", adIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", adIDs).Delete(&models.Ad{}).Error; err != nil {
				return err
			}
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, models.NewInternalError(err)
	}
	return files, nil
}

func mapUserWriteError(err error) error {
	if column, ok := uniqueViolation(err); ok {
		switch column {
		case "email":
			return models.NewFieldError("email", "A user with that email already exists.")
		default:
			return models.NewFieldError("username", "A user with that username already exists.")
		}
	}
	return models.NewInternalError(err)
}
