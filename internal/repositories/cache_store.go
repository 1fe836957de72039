package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/desertthunder/mbx/internal/models"
)

// CacheStore adapts a [CacheEntryRepository] to the cache.Store interface.
//
// Expired rows are treated as misses and left in place until [CacheStore.Prune] runs.
type CacheStore struct {
	repo *CacheEntryRepository
	now  func() time.Time
}

// NewCacheStore creates a new CacheStore backed by the given repository
func NewCacheStore(repo *CacheEntryRepository) *CacheStore {
	return &CacheStore{repo: repo, now: time.Now}
}

// Get returns the value of a live entry
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.repo.GetByKey(ctx, key)
	if errors.Is(err, ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Expired(s.now()) {
		return nil, false, nil
	}
	return entry.Value(), true, nil
}

// Set writes value under key, replacing any previous entry
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := models.NewCacheEntry(key, namespaceOf(key), value, 0)
	if ttl > 0 {
		entry.SetExpiresAt(s.now().Add(ttl))
	}
	return s.repo.Upsert(ctx, entry)
}

// Prune deletes expired entries
func (s *CacheStore) Prune(ctx context.Context) (int, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

// Clear deletes every entry
func (s *CacheStore) Clear(ctx context.Context) (int, error) {
	return s.repo.DeleteNamespace(ctx, "")
}

// namespaceOf extracts the leading "namespace:" segment of a cache key.
func namespaceOf(key string) string {
	if ns, _, ok := strings.Cut(key, ":"); ok && ns != "" {
		return ns
	}
	return "default"
}
