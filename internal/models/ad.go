package models

import "time"

// Ad is a classified listing owned by one user and filed under a sub-rubric.
type Ad struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	RubricID         uint              `gorm:"not null;index" json:"rubric_id"`
	Rubric           Rubric            `gorm:"foreignKey:RubricID;constraint:OnDelete:RESTRICT" json:"rubric"`
	AuthorID         uint              `gorm:"not null;index" json:"author_id"`
	Author           User              `gorm:"foreignKey:AuthorID" json:"-"`
	Title            string            `gorm:"size:40;not null" json:"title"`
	Content          string            `gorm:"type:text;not null" json:"content"`
	Price            float64           `gorm:"not null" json:"price"`
	Contacts         string            `gorm:"type:text;not null" json:"contacts"`
	Image            string            `json:"image,omitempty"`
	IsActive         bool              `gorm:"not null;index" json:"is_active"`
	CreatedAt        time.Time         `gorm:"index" json:"created_at"`
	AdditionalImages []AdditionalImage `gorm:"foreignKey:AdID;constraint:OnDelete:CASCADE" json:"additional_images,omitempty"`
	Comments         []Comment         `gorm:"foreignKey:AdID;constraint:OnDelete:CASCADE" json:"-"`
}

// AdditionalImage is an extra photo that exists only in the context of its ad.
type AdditionalImage struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	AdID  uint   `gorm:"not null;index" json:"ad_id"`
	Image string `gorm:"not null" json:"image"`
}

// TableName pins the table name used by migrations.
func (AdditionalImage) TableName() string {
	return "additional_images"
}

// StoredFiles lists every file name the ad owns, including the main image.
func (a *Ad) StoredFiles() []string {
	files := make([]string, 0, len(a.AdditionalImages)+1)
	if a.Image != "" {
		files = append(files, a.Image)
	}
	for _, img := range a.AdditionalImages {
		files = append(files, img.Image)
	}
	return files
}
