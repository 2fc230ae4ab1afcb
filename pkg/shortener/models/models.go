package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: User and Guest must be migrated before URL, which references both
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Guest{},
		&Tag{},
		&URL{},
		&Visit{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
