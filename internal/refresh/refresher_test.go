package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/errors"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/session"
	"github.com/blueprintstore/blueprintstore-server/internal/store"
)

type fakePager struct {
	pages []*domain.PageResult
	err   error
}

func (f *fakePager) FetchPage(_ context.Context, q forum.PageQuery) (*domain.PageResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if q.Page < len(f.pages) {
		return f.pages[q.Page], nil
	}
	return &domain.PageResult{}, nil
}

// fakeCatalog records writes; reads are unused by the refresher.
type fakeCatalog struct {
	upserted []domain.Blueprint
	pruned   time.Duration
	due      bool
}

func (f *fakeCatalog) Upsert(_ context.Context, items []domain.Blueprint) (int, error) {
	f.upserted = append(f.upserted, items...)
	return len(items), nil
}

func (f *fakeCatalog) Query(context.Context, store.QueryParams) ([]domain.Blueprint, error) {
	return nil, nil
}

func (f *fakeCatalog) Buckets(context.Context) ([]string, error) { return nil, nil }

func (f *fakeCatalog) Spotlight(context.Context) (domain.Spotlight, error) {
	return domain.Spotlight{}, nil
}

func (f *fakeCatalog) RefreshDue(context.Context, time.Duration, bool) (bool, error) {
	return f.due, nil
}

func (f *fakeCatalog) Prune(_ context.Context, olderThan time.Duration) (int64, error) {
	f.pruned = olderThan
	return 0, nil
}

func (f *fakeCatalog) Close() error { return nil }

func newTestRefresher(pager *fakePager, catalog store.Catalog) *Refresher {
	sess := session.New(session.Options{Pager: pager})
	return New(Options{
		Session:    sess,
		Catalog:    catalog,
		Interval:   time.Hour,
		PruneAfter: 24 * time.Hour,
	})
}

func TestRunNow_CrawlsIntoStore(t *testing.T) {
	pager := &fakePager{pages: []*domain.PageResult{
		{Items: []domain.Blueprint{
			{ID: 1, Title: "Motion Lights", Likes: 5},
			{ID: 2, Title: "Door Alert", Likes: 3},
		}, HasMore: true},
		{Items: []domain.Blueprint{
			{ID: 3, Title: "Thermostat", Likes: 1},
		}, HasMore: false},
	}}
	catalog := &fakeCatalog{}
	r := newTestRefresher(pager, catalog)

	err := r.RunNow(context.Background())
	require.NoError(t, err)

	require.Len(t, catalog.upserted, 3)
	for _, it := range catalog.upserted {
		assert.NotEmpty(t, it.Buckets, "crawled rows are classified before storage")
	}
	assert.Equal(t, 24*time.Hour, catalog.pruned)
}

func TestRunNow_PropagatesFirstPageFailure(t *testing.T) {
	pager := &fakePager{err: errors.Transientf("forum down")}
	catalog := &fakeCatalog{}
	r := newTestRefresher(pager, catalog)

	err := r.RunNow(context.Background())
	require.Error(t, err)
	assert.Empty(t, catalog.upserted)
}

func TestStartStop(t *testing.T) {
	pager := &fakePager{pages: []*domain.PageResult{
		{Items: []domain.Blueprint{{ID: 1, Title: "A"}}, HasMore: false},
	}}
	catalog := &fakeCatalog{due: true}
	r := newTestRefresher(pager, catalog)

	r.Start()
	r.Stop()

	// The immediate first pass ran before Stop returned.
	assert.NotEmpty(t, catalog.upserted)
}
