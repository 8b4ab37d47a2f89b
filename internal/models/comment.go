package models

import "time"

// Comment is a remark left on an ad. Author is a free-form name so guests
// can comment too.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AdID      uint      `gorm:"not null;index" json:"ad_id"`
	Author    string    `gorm:"size:30;not null" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
