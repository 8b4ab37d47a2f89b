package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"bboard/internal/models"
	"bboard/internal/repository"
	"bboard/internal/validation"
)

const maxRubricNameLength = 20

// RubricService manages the two-level rubric tree.
type RubricService struct {
	rubrics repository.RubricRepository
}

func NewRubricService(rubrics repository.RubricRepository) *RubricService {
	return &RubricService{rubrics: rubrics}
}

// RubricInput describes a new rubric. A nil SuperRubricID makes it top-level.
type RubricInput struct {
	Name          string
	Order         int16
	SuperRubricID *uint
}

func (s *RubricService) Get(ctx context.Context, id uint) (*models.Rubric, error) {
	return s.rubrics.GetByID(ctx, id)
}

func (s *RubricService) TopLevel(ctx context.Context) ([]models.Rubric, error) {
	return s.rubrics.TopLevel(ctx)
}

func (s *RubricService) SubLevel(ctx context.Context) ([]models.Rubric, error) {
	return s.rubrics.SubLevel(ctx)
}

// Menu returns the top-level rubrics with their sub-rubrics for navigation.
func (s *RubricService) Menu(ctx context.Context) ([]models.Rubric, error) {
	return s.rubrics.Menu(ctx)
}

// Create adds a rubric. A sub-rubric's parent must itself be top-level.
func (s *RubricService) Create(ctx context.Context, in RubricInput) (*models.Rubric, error) {
	name := strings.TrimSpace(in.Name)
	fe := models.FieldErrors{}
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		fe.Add("name", validation.ErrRequired.Error())
	case n > maxRubricNameLength:
		fe.Add("name", "Ensure this value has at most 20 characters.")
	}

	if in.SuperRubricID != nil {
		parent, err := s.rubrics.GetByID(ctx, *in.SuperRubricID)
		switch {
		case isNotFound(err):
			fe.Add("super_rubric", "Select a valid choice. That choice is not one of the available choices.")
		case err != nil:
			return nil, err
		case parent.IsSubLevel():
			fe.Add("super_rubric", "A sub-rubric cannot contain other rubrics.")
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	rubric := &models.Rubric{Name: name, Order: in.Order, SuperRubricID: in.SuperRubricID}
	if err := s.rubrics.Create(ctx, rubric); err != nil {
		return nil, err
	}
	return rubric, nil
}

// Delete removes a rubric. Rubrics that still hold ads or sub-rubrics are
// refused with an integrity error.
func (s *RubricService) Delete(ctx context.Context, id uint) error {
	return s.rubrics.Delete(ctx, id)
}
