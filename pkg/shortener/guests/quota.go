package guests

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
)

// QuotaGuard computes guest creation usage inside a rolling window.
// It only counts; the threshold decision belongs to the creation workflow.
type QuotaGuard struct {
	db *gorm.DB
}

// NewQuotaGuard creates a quota guard
func NewQuotaGuard(db *gorm.DB) *QuotaGuard {
	return &QuotaGuard{db: db}
}

// CountSince counts URLs created after windowStart by guest identities
// sharing the given email. Guest rows are not unique per email, so usage
// is computed by joining on the address itself.
func (g *QuotaGuard) CountSince(email string, windowStart time.Time) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	err := g.db.Model(&models.URL{}).
		Joins("JOIN guests ON guests.id = urls.guest_id").
		Where("guests.email = ? AND urls.created_at > ?", email, windowStart).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrapf(err, "counting guest urls for %s", email)
	}
	return count, nil
}

// CreateIdentity inserts a guest row for one creation. Emails repeat
// across rows; that is expected.
func (g *QuotaGuard) CreateIdentity(email string) (*models.Guest, error) {
	guest := models.Guest{Email: strings.ToLower(strings.TrimSpace(email))}
	if err := g.db.Create(&guest).Error; err != nil {
		return nil, errors.Wrapf(err, "creating guest identity for %s", email)
	}
	return &guest, nil
}
