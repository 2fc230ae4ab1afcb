package urls

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/cache"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
)

// URLCache is the cache surface the cached store needs
type URLCache interface {
	GetURL(ctx context.Context, code string) (*models.URL, error)
	SetURL(ctx context.Context, url *models.URL) error
	DeleteURL(ctx context.Context, codes ...string) error
}

// CachedStore layers a cache-aside lookup over Store for the hot redirect
// path. Cache failures degrade to the database and are only logged; every
// write path invalidates the affected short codes so a blocked or deleted
// record never keeps redirecting from cache.
type CachedStore struct {
	*Store
	cache URLCache
	log   *logrus.Entry
}

// NewCachedStore wraps a store with a cache
func NewCachedStore(store *Store, urlCache URLCache, logger *logrus.Logger) *CachedStore {
	return &CachedStore{
		Store: store,
		cache: urlCache,
		log:   logger.WithField("module", "urls/cached_store"),
	}
}

const cacheOpTimeout = 500 * time.Millisecond

func (c *CachedStore) cacheCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cacheOpTimeout)
}

// FindByShortCode checks the cache before the database
func (c *CachedStore) FindByShortCode(code string) (*models.URL, error) {
	ctx, cancel := c.cacheCtx()
	defer cancel()

	cached, err := c.cache.GetURL(ctx, code)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.WithError(err).Warnf("cache lookup failed for code %s, falling back to database", code)
	}

	url, err := c.Store.FindByShortCode(code)
	if err != nil {
		return nil, err
	}

	if setErr := c.cache.SetURL(ctx, url); setErr != nil {
		c.log.WithError(setErr).Warnf("failed to cache url %s", code)
	}
	return url, nil
}

func (c *CachedStore) invalidate(codes ...string) {
	if len(codes) == 0 {
		return
	}
	ctx, cancel := c.cacheCtx()
	defer cancel()
	if err := c.cache.DeleteURL(ctx, codes...); err != nil {
		c.log.WithError(err).Warn("cache invalidation failed")
	}
}

func (c *CachedStore) invalidateByID(id uint) {
	url, err := c.Store.FindByID(id)
	if err != nil {
		return
	}
	c.invalidate(url.ShortCode)
}

// Update writes through and invalidates the cached record
func (c *CachedStore) Update(url *models.URL) error {
	if err := c.Store.Update(url); err != nil {
		return err
	}
	if url.ShortCode != "" {
		c.invalidate(url.ShortCode)
	} else {
		c.invalidateByID(url.ID)
	}
	return nil
}

// Block writes through and invalidates the cached record
func (c *CachedStore) Block(id uint, expiresAt *time.Time) error {
	if err := c.Store.Block(id, expiresAt); err != nil {
		return err
	}
	c.invalidateByID(id)
	return nil
}

// ClearBlock writes through and invalidates the cached record
func (c *CachedStore) ClearBlock(id uint) error {
	if err := c.Store.ClearBlock(id); err != nil {
		return err
	}
	c.invalidateByID(id)
	return nil
}

// Delete invalidates before removal so the code cannot be re-cached from
// a stale read of the deleted row
func (c *CachedStore) Delete(id uint) error {
	url, err := c.Store.FindByID(id)
	if err != nil {
		return err
	}
	if err := c.Store.Delete(id); err != nil {
		return err
	}
	c.invalidate(url.ShortCode)
	return nil
}

// SweepExpiredBlocks sweeps and invalidates every touched code
func (c *CachedStore) SweepExpiredBlocks(now time.Time) ([]string, error) {
	codes, err := c.Store.SweepExpiredBlocks(now)
	if err != nil {
		return nil, err
	}
	c.invalidate(codes...)
	return codes, nil
}
