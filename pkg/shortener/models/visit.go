package models

import "time"

// Visit represents a single successful redirect through a short code.
// Visits are append-only and hard-deleted in bulk when their URL is deleted.
type Visit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	URLID     uint      `gorm:"not null;index" json:"url_id"`
	VisitedAt time.Time `gorm:"not null;index" json:"visited_at"`

	// Relationships
	URL URL `gorm:"foreignKey:URLID" json:"-"`
}
