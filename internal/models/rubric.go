package models

// Rubric is a category. Rows without SuperRubricID are top-level rubrics,
// rows with one are sub-rubrics. Ads only ever reference sub-rubrics.
type Rubric struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	Name          string   `gorm:"size:20;uniqueIndex;not null" json:"name"`
	Order         int16    `gorm:"column:order;not null;index" json:"order"`
	SuperRubricID *uint    `gorm:"index" json:"super_rubric_id,omitempty"`
	SuperRubric   *Rubric  `gorm:"foreignKey:SuperRubricID;constraint:OnDelete:RESTRICT" json:"super_rubric,omitempty"`
	SubRubrics    []Rubric `gorm:"foreignKey:SuperRubricID" json:"sub_rubrics,omitempty"`
}

// IsTopLevel reports whether the rubric has no parent.
func (r *Rubric) IsTopLevel() bool {
	return r.SuperRubricID == nil
}

// IsSubLevel reports whether the rubric hangs under a top-level rubric.
func (r *Rubric) IsSubLevel() bool {
	return r.SuperRubricID != nil
}

// String renders a sub-rubric as "Parent - Child".
func (r *Rubric) String() string {
	if r.SuperRubric != nil {
		return r.SuperRubric.Name + " - " + r.Name
	}
	return r.Name
}

// TopLevel filters rubrics to those without a parent.
func TopLevel(rubrics []Rubric) []Rubric {
	out := make([]Rubric, 0, len(rubrics))
	for _, r := range rubrics {
		if r.IsTopLevel() {
			out = append(out, r)
		}
	}
	return out
}

// SubLevel filters rubrics to those with a parent.
func SubLevel(rubrics []Rubric) []Rubric {
	out := make([]Rubric, 0, len(rubrics))
	for _, r := range rubrics {
		if r.IsSubLevel() {
			out = append(out, r)
		}
	}
	return out
}
