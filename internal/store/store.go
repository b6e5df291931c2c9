// Package store defines the local catalog persistence contract. The SQLite
// implementation lives in the sqlite subpackage.
//
// The store is an optional acceleration layer: when enabled, the background
// refresher crawls the forum into it and reads are served locally instead of
// walking forum pages per request.
package store

import (
	"context"
	"time"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/errors"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.ErrNotFound

// QueryParams filters and orders a local catalog query.
type QueryParams struct {
	// Query is matched term-by-term against normalized title and excerpt.
	Query string
	// Buckets restricts results to items carrying every listed bucket.
	Buckets []string
	Sort    domain.SortMode
	Limit   int
	Offset  int
}

// Catalog is the persistence surface the service consumes.
type Catalog interface {
	Upsert(ctx context.Context, items []domain.Blueprint) (int, error)
	Query(ctx context.Context, params QueryParams) ([]domain.Blueprint, error)
	Buckets(ctx context.Context) ([]string, error)
	Spotlight(ctx context.Context) (domain.Spotlight, error)
	RefreshDue(ctx context.Context, interval time.Duration, force bool) (bool, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Close() error
}
