package models

import "time"

// Guest represents an unauthenticated creator identified only by email.
// Email is deliberately not unique: a row is inserted per guest creation
// and quota usage is computed across rows sharing an email.
type Guest struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Email     string    `gorm:"not null;index" json:"email"`
}
