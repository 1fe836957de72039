package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrEntryNotFound is returned when a lookup matches no row.
var ErrEntryNotFound = errors.New("cache entry not found")

// expectRow checks that an UPDATE or DELETE touched at least one row.
func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return nil
}

// toMillis encodes an expiry as unix milliseconds. A zero time is stored as NULL.
func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64)
}
