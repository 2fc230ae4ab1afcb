package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// OwnerKind describes who owns a URL record
type OwnerKind int

const (
	Unowned OwnerKind = iota
	OwnedByUser
	OwnedByGuest
)

// ErrConflictingOwners is returned when a URL names both a user and a guest owner
var ErrConflictingOwners = errors.New("url cannot be owned by both a user and a guest")

// URL represents a shortened URL mapping
type URL struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	LongName       string         `gorm:"not null" json:"long_name"`
	ShortCode      string         `gorm:"uniqueIndex;not null" json:"short_code"`
	IsBlocked      bool           `gorm:"default:false" json:"is_blocked"`
	BlockExpiresAt *time.Time     `json:"block_expires_at,omitempty"`
	OwnerUserID    *uint          `gorm:"index" json:"owner_user_id,omitempty"`
	GuestID        *uint          `gorm:"index" json:"guest_id,omitempty"`

	// Relationships
	OwnerUser *User  `gorm:"foreignKey:OwnerUserID" json:"owner_user,omitempty"`
	Guest     *Guest `gorm:"foreignKey:GuestID" json:"guest,omitempty"`
	Tags      []Tag  `gorm:"many2many:url_tags;" json:"tags,omitempty"`
}

// Owner reports which kind of owner the record has.
// OwnerUserID and GuestID are mutually exclusive; neither set means
// an orphaned or system record.
func (u *URL) Owner() OwnerKind {
	switch {
	case u.OwnerUserID != nil:
		return OwnedByUser
	case u.GuestID != nil:
		return OwnedByGuest
	default:
		return Unowned
	}
}

// BlockActive reports whether the block should still be enforced at now.
// A block with no expiry, or one whose expiry has passed, is never enforced.
func (u *URL) BlockActive(now time.Time) bool {
	if !u.IsBlocked {
		return false
	}
	if u.BlockExpiresAt == nil {
		return false
	}
	return u.BlockExpiresAt.After(now)
}

// BeforeSave enforces owner exclusivity and normalizes block state
func (u *URL) BeforeSave(tx *gorm.DB) error {
	if u.OwnerUserID != nil && u.GuestID != nil {
		return ErrConflictingOwners
	}
	if !u.IsBlocked {
		u.BlockExpiresAt = nil
	}
	return nil
}
