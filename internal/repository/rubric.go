package repository

import (
	"context"

	"bboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RubricRepository defines persistence operations for rubrics.
type RubricRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Rubric, error)
	TopLevel(ctx context.Context) ([]models.Rubric, error)
	SubLevel(ctx context.Context) ([]models.Rubric, error)
	Menu(ctx context.Context) ([]models.Rubric, error)
	Create(ctx context.Context, rubric *models.Rubric) error
	Delete(ctx context.Context, id uint) error
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository returns a new RubricRepository implementation.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

// "order" is a reserved word, so ordering goes through quoted columns.
func orderBy(table string, names ...string) clause.OrderBy {
	cols := make([]clause.OrderByColumn, 0, len(names))
	for _, n := range names {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Table: table, Name: n}})
	}
	return clause.OrderBy{Columns: cols}
}

func (r *rubricRepository) GetByID(ctx context.Context, id uint) (*models.Rubric, error) {
	var rubric models.Rubric
	if err := r.db.WithContext(ctx).Preload("SuperRubric").First(&rubric, id).Error; err != nil {
		return nil, notFoundOr(err, "Rubric", id)
	}
	return &rubric, nil
}

func (r *rubricRepository) TopLevel(ctx context.Context) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	if err := r.db.WithContext(ctx).
		Where("super_rubric_id IS NULL").
		Order(orderBy("rubrics", "order", "name")).
		Find(&rubrics).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rubrics, nil
}

func (r *rubricRepository) SubLevel(ctx context.Context) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	if err := r.db.WithContext(ctx).
		Joins("SuperRubric").
		Where("rubrics.super_rubric_id IS NOT NULL").
		Order(orderBy("SuperRubric", "order", "name")).
		Order(orderBy("rubrics", "order", "name")).
		Find(&rubrics).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rubrics, nil
}

// Menu returns the top-level rubrics with their sub-rubrics attached.
func (r *rubricRepository) Menu(ctx context.Context) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	if err := r.db.WithContext(ctx).
		Preload("SubRubrics", func(db *gorm.DB) *gorm.DB {
			return db.Order(orderBy("rubrics", "order", "name"))
		}).
		Where("super_rubric_id IS NULL").
		Order(orderBy("rubrics", "order", "name")).
		Find(&rubrics).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rubrics, nil
}

func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	if err := r.db.WithContext(ctx).Omit("SuperRubric", "SubRubrics").Create(rubric).Error; err != nil {
		if _, ok := uniqueViolation(err); ok {
			return models.NewFieldError("name", "Rubric with this Name already exists.")
		}
		if isForeignKeyViolation(err) {
			return models.NewFieldError("super_rubric", "Select a valid choice. That choice is not one of the available choices.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Delete fails with an integrity error while ads or sub-rubrics still
// reference the rubric.
func (r *rubricRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Rubric{}, id)
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return models.NewIntegrityError("Rubric is still referenced by ads or sub-rubrics", res.Error)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Rubric", id)
	}
	return nil
}
