package urls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/cache"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
)

// fakeCache is an in-memory stand-in for the redis client
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*models.URL
	failing bool
	gets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.URL)}
}

func (f *fakeCache) GetURL(ctx context.Context, code string) (*models.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failing {
		return nil, errors.New("redis down")
	}
	if url, ok := f.entries[code]; ok {
		copied := *url
		return &copied, nil
	}
	return nil, cache.ErrCacheMiss
}

func (f *fakeCache) SetURL(ctx context.Context, url *models.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("redis down")
	}
	copied := *url
	f.entries[url.ShortCode] = &copied
	return nil
}

func (f *fakeCache) DeleteURL(ctx context.Context, codes ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("redis down")
	}
	for _, code := range codes {
		delete(f.entries, code)
	}
	return nil
}

func newCachedTestStore(t *testing.T) (*CachedStore, *fakeCache) {
	store, _ := newTestStore(t)
	fc := newFakeCache()
	return NewCachedStore(store, fc, testLogger()), fc
}

func TestCachedFindPopulatesAndHits(t *testing.T) {
	cached, fc := newCachedTestStore(t)

	record := models.URL{LongName: "https://example.com", ShortCode: "hot0000"}
	require.NoError(t, cached.Create(&record))

	first, err := cached.FindByShortCode("hot0000")
	require.NoError(t, err)
	assert.Equal(t, record.ID, first.ID)
	assert.Contains(t, fc.entries, "hot0000", "miss populates the cache")

	// Second lookup is served from cache even if the row disappears
	require.NoError(t, cached.Store.db.Unscoped().Delete(&models.URL{}, record.ID).Error)
	second, err := cached.FindByShortCode("hot0000")
	require.NoError(t, err)
	assert.Equal(t, record.ID, second.ID)
}

func TestCachedFindDegradesOnCacheFailure(t *testing.T) {
	cached, fc := newCachedTestStore(t)

	record := models.URL{LongName: "https://example.com", ShortCode: "deg0000"}
	require.NoError(t, cached.Create(&record))

	fc.failing = true
	found, err := cached.FindByShortCode("deg0000")
	require.NoError(t, err, "cache failure must fall back to the database")
	assert.Equal(t, record.ID, found.ID)
}

func TestCachedBlockInvalidates(t *testing.T) {
	cached, fc := newCachedTestStore(t)

	record := models.URL{LongName: "https://example.com", ShortCode: "inv0000"}
	require.NoError(t, cached.Create(&record))

	_, err := cached.FindByShortCode("inv0000")
	require.NoError(t, err)
	require.Contains(t, fc.entries, "inv0000")

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, cached.Block(record.ID, &expiry))
	assert.NotContains(t, fc.entries, "inv0000", "blocking must invalidate the cached record")

	// The next lookup observes the block
	reloaded, err := cached.FindByShortCode("inv0000")
	require.NoError(t, err)
	assert.True(t, reloaded.IsBlocked)
}

func TestCachedDeleteInvalidates(t *testing.T) {
	cached, fc := newCachedTestStore(t)

	record := models.URL{LongName: "https://example.com", ShortCode: "rm00000"}
	require.NoError(t, cached.Create(&record))

	_, err := cached.FindByShortCode("rm00000")
	require.NoError(t, err)

	require.NoError(t, cached.Delete(record.ID))
	assert.NotContains(t, fc.entries, "rm00000")
}

func TestCachedSweepInvalidatesSweptCodes(t *testing.T) {
	cached, fc := newCachedTestStore(t)
	now := time.Now()
	past := now.Add(-time.Minute)

	record := models.URL{LongName: "https://example.com", ShortCode: "swp0000", IsBlocked: true, BlockExpiresAt: &past}
	require.NoError(t, cached.Create(&record))

	_, err := cached.FindByShortCode("swp0000")
	require.NoError(t, err)
	require.Contains(t, fc.entries, "swp0000")

	codes, err := cached.SweepExpiredBlocks(now)
	require.NoError(t, err)
	assert.Equal(t, []string{"swp0000"}, codes)
	assert.NotContains(t, fc.entries, "swp0000")
}
