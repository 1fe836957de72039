package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mbx/internal/models"
	"github.com/desertthunder/mbx/internal/shared"
)

const cacheEntryColumns = "id, key, namespace, value, expires_at, created_at, updated_at"

// CacheEntryRepository implements models.Repository[*models.CacheEntry] over the cache_entries table.
type CacheEntryRepository struct {
	db *sql.DB
}

// NewCacheEntryRepository creates a new CacheEntryRepository with the given database connection
func NewCacheEntryRepository(db *sql.DB) *CacheEntryRepository {
	return &CacheEntryRepository{db: db}
}

// Create inserts a new [models.CacheEntry] with a generated ID
func (r *CacheEntryRepository) Create(entry *models.CacheEntry) error {
	entry.SetID(shared.GenerateID())

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO cache_entries (` + cacheEntryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		entry.ID(),
		entry.Key(),
		entry.Namespace(),
		entry.Value(),
		toMillis(entry.ExpiresAt()),
		entry.CreatedAt(),
		entry.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID, including expired entries
func (r *CacheEntryRepository) Get(id string) (*models.CacheEntry, error) {
	row := r.db.QueryRow(`SELECT `+cacheEntryColumns+` FROM cache_entries WHERE id = ?`, id)
	return scanCacheEntry(row)
}

// GetByKey retrieves an entry by its cache key, including expired entries
func (r *CacheEntryRepository) GetByKey(ctx context.Context, key string) (*models.CacheEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cacheEntryColumns+` FROM cache_entries WHERE key = ?`, key)
	return scanCacheEntry(row)
}

// Update replaces the value and expiry of an existing entry
func (r *CacheEntryRepository) Update(entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	entry.SetUpdatedAt(now)

	result, err := r.db.Exec(`UPDATE cache_entries SET value = ?, expires_at = ?, updated_at = ? WHERE id = ?`,
		entry.Value(), toMillis(entry.ExpiresAt()), now, entry.ID())
	if err != nil {
		return fmt.Errorf("failed to update cache entry: %w", err)
	}
	return expectRow(result, entry.ID())
}

// Upsert writes an entry keyed by its cache key, replacing any previous value
func (r *CacheEntryRepository) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	if entry.ID() == "" {
		entry.SetID(shared.GenerateID())
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO cache_entries (` + cacheEntryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID(),
		entry.Key(),
		entry.Namespace(),
		entry.Value(),
		toMillis(entry.ExpiresAt()),
		entry.CreatedAt(),
		entry.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry by ID
func (r *CacheEntryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM cache_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return expectRow(result, id)
}

// DeleteExpired removes every entry whose expiry is at or before now
func (r *CacheEntryRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// DeleteNamespace removes every entry for a namespace, or all entries when namespace is empty
func (r *CacheEntryRepository) DeleteNamespace(ctx context.Context, namespace string) (int, error) {
	query, args := `DELETE FROM cache_entries`, []any{}
	if namespace != "" {
		query += ` WHERE namespace = ?`
		args = append(args, namespace)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// List retrieves entries matching the given criteria.
//
// Supported criteria: "namespace" (string) and "live_at" ([time.Time], excludes entries expired at that instant).
func (r *CacheEntryRepository) List(criteria map[string]any) ([]*models.CacheEntry, error) {
	query := `SELECT ` + cacheEntryColumns + ` FROM cache_entries WHERE 1 = 1`
	args := []any{}

	if ns, ok := criteria["namespace"].(string); ok && ns != "" {
		query += " AND namespace = ?"
		args = append(args, ns)
	}

	if at, ok := criteria["live_at"].(time.Time); ok {
		query += " AND (expires_at IS NULL OR expires_at > ?)"
		args = append(args, at.UnixMilli())
	}

	query += " ORDER BY created_at ASC, key ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanCacheEntry scans a [sql.Row] or [sql.Rows] into a [models.CacheEntry]
func scanCacheEntry(s scanner) (*models.CacheEntry, error) {
	var (
		id, key, namespace   string
		value                []byte
		expiresAt            sql.NullInt64
		createdAt, updatedAt time.Time
	)

	err := s.Scan(&id, &key, &namespace, &value, &expiresAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cache entry: %w", err)
	}

	return models.RestoreCacheEntry(id, key, namespace, value, fromMillis(expiresAt), createdAt, updatedAt), nil
}
