package redirect

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/urls"
)

// Outcome is the terminal state of a resolution request
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeRedirect
	OutcomeBlocked
)

// Resolution is the redirect decision for a short code. LongName is set
// only for OutcomeRedirect.
type Resolution struct {
	Outcome  Outcome
	LongName string
}

// URLSource is the store surface the resolver needs
type URLSource interface {
	FindByShortCode(code string) (*models.URL, error)
	ClearBlock(id uint) error
}

// VisitSink records visit events
type VisitSink interface {
	Record(urlID uint, at time.Time) error
}

// Resolver turns a short code into a redirect decision: lookup, block
// evaluation, lazy auto-unblock of expired blocks, and best-effort visit
// recording off the response path.
type Resolver struct {
	store  URLSource
	visits VisitSink
	log    *logrus.Entry
}

// NewResolver creates a resolver
func NewResolver(store URLSource, visits VisitSink, logger *logrus.Logger) *Resolver {
	return &Resolver{
		store:  store,
		visits: visits,
		log:    logger.WithField("module", "redirect/resolver"),
	}
}

// Resolve decides the redirect for a short code at the given instant.
// A block whose expiry is unset or has passed is cleared on first access
// and the request proceeds as unblocked; the clear is idempotent, so
// concurrent requests and the bulk sweep converge on the same state.
// Storage failures on this path are fatal and returned to the caller.
func (r *Resolver) Resolve(code string, now time.Time) (Resolution, error) {
	url, err := r.store.FindByShortCode(code)
	if err != nil {
		if errors.Is(err, urls.ErrNotFound) {
			return Resolution{Outcome: OutcomeNotFound}, nil
		}
		return Resolution{}, err
	}

	if url.BlockActive(now) {
		return Resolution{Outcome: OutcomeBlocked}, nil
	}

	if url.IsBlocked {
		if err := r.store.ClearBlock(url.ID); err != nil {
			return Resolution{}, err
		}
	}

	r.dispatchVisit(url.ID, now)
	return Resolution{Outcome: OutcomeRedirect, LongName: url.LongName}, nil
}

// dispatchVisit records the visit without blocking the redirect response.
// Loss of an event under failure is acceptable; it is logged and dropped.
func (r *Resolver) dispatchVisit(urlID uint, at time.Time) {
	go func() {
		if err := r.visits.Record(urlID, at); err != nil {
			r.log.WithError(err).Warnf("failed to record visit for url %d", urlID)
		}
	}()
}
