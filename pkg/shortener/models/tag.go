package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag represents a tag that can be applied to URLs
type Tag struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"uniqueIndex;not null" json:"name"`

	// Relationships
	URLs []URL `gorm:"many2many:url_tags;" json:"urls,omitempty"`
}
