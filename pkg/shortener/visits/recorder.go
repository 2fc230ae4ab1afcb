package visits

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
)

// DefaultPerPage bounds visit listing pages
const DefaultPerPage = 50

// Recorder appends and manages visit events. Record itself is a plain
// synchronous insert; the redirect path dispatches it in a goroutine so a
// slow or failing write never delays the redirect response.
type Recorder struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewRecorder creates a visit recorder
func NewRecorder(db *gorm.DB, logger *logrus.Logger) *Recorder {
	return &Recorder{
		db:  db,
		log: logger.WithField("module", "visits/recorder"),
	}
}

// Record appends a visit event for a URL
func (r *Recorder) Record(urlID uint, at time.Time) error {
	visit := models.Visit{URLID: urlID, VisitedAt: at}
	if err := r.db.Create(&visit).Error; err != nil {
		return errors.Wrapf(err, "recording visit for url %d", urlID)
	}
	return nil
}

// ListForURL returns a page of visits for a URL, newest first, along with
// the total count
func (r *Recorder) ListForURL(urlID uint, page, perPage int) ([]models.Visit, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 200 {
		perPage = DefaultPerPage
	}

	var total int64
	if err := r.db.Model(&models.Visit{}).Where("url_id = ?", urlID).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrapf(err, "counting visits for url %d", urlID)
	}

	var visits []models.Visit
	err := r.db.Where("url_id = ?", urlID).
		Order("visited_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&visits).Error
	if err != nil {
		return nil, 0, errors.Wrapf(err, "listing visits for url %d", urlID)
	}
	return visits, total, nil
}

// DeleteAllForURL removes every visit referencing a URL and returns how
// many were removed. Must run before the owning URL is deleted.
func (r *Recorder) DeleteAllForURL(urlID uint) (int64, error) {
	res := r.db.Where("url_id = ?", urlID).Delete(&models.Visit{})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "deleting visits for url %d", urlID)
	}
	return res.RowsAffected, nil
}
