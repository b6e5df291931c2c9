package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

const lastRefreshKey = "last_refresh_ts"

// RefreshDue reports whether a crawl should run now and, when it should,
// claims the slot by stamping the refresh time. Concurrent callers race on
// the stamp inside one transaction, so at most one wins per interval.
func (s *Store) RefreshDue(ctx context.Context, interval time.Duration, force bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin refresh gate: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, lastRefreshKey).Scan(&raw)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("read refresh stamp: %w", err)
	}

	now := time.Now()
	if !force && err == nil {
		last, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr == nil && now.Sub(time.Unix(last, 0)) < interval {
			return false, nil
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		lastRefreshKey, strconv.FormatInt(now.Unix(), 10))
	if err != nil {
		return false, fmt.Errorf("stamp refresh: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit refresh gate: %w", err)
	}
	return true, nil
}
