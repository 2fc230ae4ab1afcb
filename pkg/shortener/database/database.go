package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens the database connection.
// TranslateError is required: unique-constraint violations must surface as
// gorm.ErrDuplicatedKey so the URL store can treat the short_code index as
// the authoritative uniqueness arbiter.
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
}
