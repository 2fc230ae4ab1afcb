package urls

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
)

// Filters narrows and pages URL listings
type Filters struct {
	Tag    string
	Limit  int
	Offset int
}

// Store is the durable keyed storage for URL records. The unique index on
// short_code is the authoritative uniqueness guard; every pre-insert
// existence check elsewhere is an optimization only.
type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewStore creates a URL store
func NewStore(db *gorm.DB, logger *logrus.Logger) *Store {
	return &Store{
		db:  db,
		log: logger.WithField("module", "urls/store"),
	}
}

// Create persists a new record. Returns ErrDuplicateShortCode when the
// short code is already taken, a ValidationError for a structurally
// unusable record.
func (s *Store) Create(url *models.URL) error {
	if strings.TrimSpace(url.LongName) == "" {
		return &ValidationError{"long name cannot be empty"}
	}
	if strings.TrimSpace(url.ShortCode) == "" {
		return &ValidationError{"short code cannot be empty"}
	}

	if err := s.db.Create(url).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateShortCode
		}
		s.log.WithError(err).Errorf("failed to create url with code %s", url.ShortCode)
		return errors.Wrapf(err, "creating url with code %s", url.ShortCode)
	}
	return nil
}

// FindByShortCode returns the record for a short code, or ErrNotFound
func (s *Store) FindByShortCode(code string) (*models.URL, error) {
	var url models.URL
	if err := s.db.Where("short_code = ?", code).First(&url).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "finding url by code %s", code)
	}
	return &url, nil
}

// FindByID returns the record for an id, or ErrNotFound
func (s *Store) FindByID(id uint) (*models.URL, error) {
	var url models.URL
	if err := s.db.Preload("Tags").First(&url, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "finding url by id %d", id)
	}
	return &url, nil
}

// Exists reports whether a short code is taken. Soft-deleted rows still
// occupy the unique index, so they count as taken here.
func (s *Store) Exists(code string) (bool, error) {
	var count int64
	if err := s.db.Unscoped().Model(&models.URL{}).Where("short_code = ?", code).Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "checking short code %s", code)
	}
	return count > 0, nil
}

// ListByOwner returns an owner's records, newest first
func (s *Store) ListByOwner(ownerID uint, f Filters) ([]models.URL, error) {
	return s.list(s.db.Where("owner_user_id = ?", ownerID), f)
}

// ListAll returns all records, newest first. Backs the public listing surface.
func (s *Store) ListAll(f Filters) ([]models.URL, error) {
	return s.list(s.db, f)
}

func (s *Store) list(query *gorm.DB, f Filters) ([]models.URL, error) {
	query = query.Model(&models.URL{}).Preload("Tags").Order("created_at DESC")

	if f.Tag != "" {
		query = query.Joins("JOIN url_tags ON url_tags.url_id = urls.id").
			Joins("JOIN tags ON tags.id = url_tags.tag_id").
			Where("tags.name = ?", f.Tag)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var results []models.URL
	if err := query.Find(&results).Error; err != nil {
		return nil, errors.Wrap(err, "listing urls")
	}
	return results, nil
}

// Update persists the record's mutable fields. ShortCode and CreatedAt are
// immutable once assigned and are never written here.
func (s *Store) Update(url *models.URL) error {
	values := map[string]interface{}{
		"long_name":        url.LongName,
		"is_blocked":       url.IsBlocked,
		"block_expires_at": url.BlockExpiresAt,
	}
	if !url.IsBlocked {
		values["block_expires_at"] = nil
	}

	res := s.db.Model(&models.URL{}).Where("id = ?", url.ID).Updates(values)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "updating url %d", url.ID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Block sets the blocked state with an optional expiry
func (s *Store) Block(id uint, expiresAt *time.Time) error {
	res := s.db.Model(&models.URL{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_blocked":       true,
		"block_expires_at": expiresAt,
	})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "blocking url %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearBlock resets the record to the unblocked state. Idempotent:
// clearing an already-clear record succeeds and leaves the same state, so
// concurrent auto-unblocks and the bulk sweep converge without conflict.
func (s *Store) ClearBlock(id uint) error {
	res := s.db.Model(&models.URL{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_blocked":       false,
		"block_expires_at": nil,
	})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "clearing block on url %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record. Fails with ErrVisitsRemain while visit events
// still reference it: the cascade is explicit, callers delete visits first.
func (s *Store) Delete(id uint) error {
	var visitCount int64
	if err := s.db.Model(&models.Visit{}).Where("url_id = ?", id).Count(&visitCount).Error; err != nil {
		return errors.Wrapf(err, "counting visits for url %d", id)
	}
	if visitCount > 0 {
		return ErrVisitsRemain
	}

	res := s.db.Delete(&models.URL{}, id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "deleting url %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SweepExpiredBlocks clears every block whose expiry has passed and
// returns the short codes it touched. Runs in one transaction so the
// select and the update see the same rows; converges with the per-record
// auto-unblock on the redirect path since both write identical values.
func (s *Store) SweepExpiredBlocks(now time.Time) ([]string, error) {
	var codes []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.URL{}).
			Where("is_blocked = ? AND block_expires_at IS NOT NULL AND block_expires_at <= ?", true, now).
			Pluck("short_code", &codes).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		return tx.Model(&models.URL{}).
			Where("short_code IN ?", codes).
			Updates(map[string]interface{}{
				"is_blocked":       false,
				"block_expires_at": nil,
			}).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "sweeping expired blocks")
	}
	if len(codes) > 0 {
		s.log.WithField("count", len(codes)).Info("cleared expired blocks")
	}
	return codes, nil
}
