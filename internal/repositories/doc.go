// Package repositories implements SQLite persistence for cached upstream payloads.
//
// Only raw provider and registry responses are stored. Reconciled results are computed per request and
// never written.
//
// Key Implementations:
//   - [CacheEntryRepository] : [models.Repository] for [models.CacheEntry] rows with key and namespace lookups
//   - [CacheStore] : adapter exposing the repository as a cache.Store with expiry and housekeeping
package repositories
