package seed

import (
	"errors"

	"bboard/internal/models"

	"gorm.io/gorm"
)

// BuiltInRubric is a top-level rubric with its sub-rubrics.
type BuiltInRubric struct {
	Name string
	Subs []string
}

// BuiltInRubrics is the default rubric tree of a fresh board.
var BuiltInRubrics = []BuiltInRubric{
	{Name: "Real estate", Subs: []string{"Apartments", "Houses", "Garages"}},
	{Name: "Transport", Subs: []string{"Cars", "Motorcycles", "Bicycles"}},
	{Name: "Electronics", Subs: []string{"Phones", "Computers", "Audio and video"}},
	{Name: "Home", Subs: []string{"Furniture", "Appliances", "Garden"}},
	{Name: "Services", Subs: []string{"Repairs", "Tutoring", "Moving"}},
}

// Rubrics creates the built-in rubric tree, keeping rubrics that already
// exist by name. It returns every sub-rubric of the tree.
func Rubrics(db *gorm.DB) ([]models.Rubric, error) {
	var subs []models.Rubric
	err := db.Transaction(func(tx *gorm.DB) error {
		for i, item := range BuiltInRubrics {
			parent, err := firstOrCreateRubric(tx, item.Name, int16(i+1), nil)
			if err != nil {
				return err
			}
			for j, name := range item.Subs {
				sub, err := firstOrCreateRubric(tx, name, int16(j+1), &parent.ID)
				if err != nil {
					return err
				}
				subs = append(subs, *sub)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func firstOrCreateRubric(tx *gorm.DB, name string, order int16, parentID *uint) (*models.Rubric, error) {
	var rubric models.Rubric
	err := tx.Where("name = ?", name).First(&rubric).Error
	switch {
	case err == nil:
		if (rubric.SuperRubricID == nil) != (parentID == nil) {
			return nil, errors.New("rubric " + name + " exists at a different level")
		}
		return &rubric, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	rubric = models.Rubric{Name: name, Order: order, SuperRubricID: parentID}
	if err := tx.Omit("SuperRubric").Create(&rubric).Error; err != nil {
		return nil, err
	}
	return &rubric, nil
}
