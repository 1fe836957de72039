package models

import (
	"errors"
	"time"
)

// CacheEntry is a raw upstream payload persisted by the SQLite cache backend.
//
// The key is self-describing (namespace, function name and serialized arguments), so entries are safe to share
// across concurrent requests.
type CacheEntry struct {
	id        string
	key       string
	namespace string
	value     []byte
	expiresAt time.Time
	createdAt time.Time
	updatedAt time.Time
}

// NewCacheEntry creates an entry expiring ttl from now. A zero ttl never expires.
func NewCacheEntry(key, namespace string, value []byte, ttl time.Duration) *CacheEntry {
	now := time.Now()
	e := &CacheEntry{
		key:       key,
		namespace: namespace,
		value:     value,
		createdAt: now,
		updatedAt: now,
	}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	return e
}

// RestoreCacheEntry rebuilds an entry from stored columns.
func RestoreCacheEntry(id, key, namespace string, value []byte, expiresAt, createdAt, updatedAt time.Time) *CacheEntry {
	return &CacheEntry{
		id:        id,
		key:       key,
		namespace: namespace,
		value:     value,
		expiresAt: expiresAt,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (e *CacheEntry) ID() string { return e.id }
func (e *CacheEntry) Key() string { return e.key }
func (e *CacheEntry) Namespace() string { return e.namespace }
func (e *CacheEntry) Value() []byte { return e.value }
func (e *CacheEntry) ExpiresAt() time.Time { return e.expiresAt }
func (e *CacheEntry) CreatedAt() time.Time { return e.createdAt }
func (e *CacheEntry) UpdatedAt() time.Time { return e.updatedAt }

func (e *CacheEntry) SetID(id string) { e.id = id }
func (e *CacheEntry) SetUpdatedAt(t time.Time) { e.updatedAt = t }
func (e *CacheEntry) SetValue(v []byte) { e.value = v }
func (e *CacheEntry) SetExpiresAt(t time.Time) { e.expiresAt = t }

// Expired reports whether the entry is past its expiry at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Validate checks required fields.
func (e *CacheEntry) Validate() error {
	if e.key == "" {
		return errors.New("cache entry key is required")
	}
	if e.namespace == "" {
		return errors.New("cache entry namespace is required")
	}
	return nil
}
