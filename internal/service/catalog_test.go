package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/errors"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/session"
)

type fakeForum struct {
	pages       map[int]*domain.PageResult
	filters     []string
	filtersErr  error
	topics      map[int64]*forum.TopicDetail
	topicCalls  atomic.Int32
	filterCalls atomic.Int32
}

func (f *fakeForum) FetchPage(_ context.Context, q forum.PageQuery) (*domain.PageResult, error) {
	if res, ok := f.pages[q.Page]; ok {
		return res, nil
	}
	return &domain.PageResult{}, nil
}

func (f *fakeForum) FetchFilters(_ context.Context) ([]string, error) {
	f.filterCalls.Add(1)
	if f.filtersErr != nil {
		return nil, f.filtersErr
	}
	return f.filters, nil
}

func (f *fakeForum) FetchTopic(_ context.Context, topicID int64) (*forum.TopicDetail, error) {
	f.topicCalls.Add(1)
	if d, ok := f.topics[topicID]; ok {
		return d, nil
	}
	return nil, errors.NotFoundf("topic %d not found", topicID)
}

func newTestService(t *testing.T, ff *fakeForum) *CatalogService {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	sess := session.New(session.Options{Pager: ff, Logger: logger})
	t.Cleanup(sess.Close)
	return NewCatalogService(ff, sess, nil, nil, "https://forum.example/", logger)
}

func TestList_LivePaging(t *testing.T) {
	// 35 items across two backend pages; API pages are 30 items.
	first := make([]domain.Blueprint, 0, 30)
	for i := int64(1); i <= 30; i++ {
		first = append(first, domain.Blueprint{ID: i, Title: fmt.Sprintf("BP %d", i), Likes: 100 - int(i)})
	}
	second := make([]domain.Blueprint, 0, 5)
	for i := int64(31); i <= 35; i++ {
		second = append(second, domain.Blueprint{ID: i, Title: fmt.Sprintf("BP %d", i), Likes: 100 - int(i)})
	}
	ff := &fakeForum{pages: map[int]*domain.PageResult{
		0: {Items: first, HasMore: true},
		1: {Items: second, HasMore: false},
	}}
	svc := newTestService(t, ff)

	res, err := svc.List(context.Background(), "", "likes", "", 0)
	require.NoError(t, err)
	assert.Len(t, res.Items, 30)
	assert.True(t, res.HasMore)
	assert.Equal(t, int64(1), res.Items[0].ID)

	res, err = svc.List(context.Background(), "", "likes", "", 1)
	require.NoError(t, err)
	assert.Len(t, res.Items, 5)
	assert.False(t, res.HasMore)
	assert.Equal(t, int64(31), res.Items[0].ID)
}

// gatedForum blocks its first FetchPage call until released; later calls pass
// straight through.
type gatedForum struct {
	*fakeForum
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedForum) FetchPage(ctx context.Context, q forum.PageQuery) (*domain.PageResult, error) {
	gate := false
	g.once.Do(func() { gate = true })
	if gate {
		close(g.entered)
		<-g.release
	}
	return g.fakeForum.FetchPage(ctx, q)
}

func TestList_ConcurrentLiveReadsDoNotTruncate(t *testing.T) {
	gf := &gatedForum{
		fakeForum: &fakeForum{pages: map[int]*domain.PageResult{
			0: {Items: []domain.Blueprint{
				{ID: 1, Title: "Motion Lights", Likes: 9},
				{ID: 2, Title: "Door Alert", Likes: 5},
			}, HasMore: false},
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	logger := slog.New(slog.DiscardHandler)
	sess := session.New(session.Options{Pager: gf, Logger: logger})
	t.Cleanup(sess.Close)
	svc := NewCatalogService(gf, sess, nil, nil, "https://forum.example/", logger)

	type outcome struct {
		res *ListResult
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		res, err := svc.List(context.Background(), "", "likes", "", 0)
		firstDone <- outcome{res, err}
	}()

	// Wait until the first read is blocked mid-fetch, then serve another
	// client. Its reload must not invalidate the blocked run.
	<-gf.entered
	res, err := svc.List(context.Background(), "", "likes", "", 0)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	close(gf.release)
	first := <-firstDone
	require.NoError(t, first.err)
	require.NotNil(t, first.res)
	assert.Len(t, first.res.Items, 2, "overlapping read must not truncate this one")
	assert.False(t, first.res.HasMore)
}

func TestList_PageBeyondEnd(t *testing.T) {
	ff := &fakeForum{pages: map[int]*domain.PageResult{
		0: {Items: []domain.Blueprint{{ID: 1, Title: "A"}}, HasMore: false},
	}}
	svc := newTestService(t, ff)

	res, err := svc.List(context.Background(), "", "", "", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.False(t, res.HasMore)
}

func TestList_NegativePage(t *testing.T) {
	svc := newTestService(t, &fakeForum{})
	_, err := svc.List(context.Background(), "", "", "", -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestFilters_PrefersForumList(t *testing.T) {
	ff := &fakeForum{filters: []string{"lighting", "climate"}}
	svc := newTestService(t, ff)

	got, err := svc.Filters(context.Background())
	require.NoError(t, err)
	assert.Contains(t, got, "lighting")
	assert.Contains(t, got, "climate")
	assert.Contains(t, got, "other", "catch-all is always offered")
}

func TestFilters_FallsBackToTaxonomy(t *testing.T) {
	ff := &fakeForum{filtersErr: errors.Transientf("forum down")}
	svc := newTestService(t, ff)

	got, err := svc.Filters(context.Background())
	require.NoError(t, err, "filters degrade, never fail")
	assert.Contains(t, got, "lighting")
	assert.Contains(t, got, "other")
}

func TestFilters_SortedWhenCatchAllAlreadyPresent(t *testing.T) {
	ff := &fakeForum{filters: []string{"other", "lighting", "climate"}}
	svc := newTestService(t, ff)

	got, err := svc.Filters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"climate", "lighting", "other"}, got)
}

func TestTopic_CachesResult(t *testing.T) {
	ff := &fakeForum{topics: map[int64]*forum.TopicDetail{
		101: {ID: 101, Title: "Motion Lights"},
	}}
	svc := newTestService(t, ff)

	for range 3 {
		detail, err := svc.Topic(context.Background(), 101)
		require.NoError(t, err)
		assert.Equal(t, int64(101), detail.ID)
	}
	assert.Equal(t, int32(1), ff.topicCalls.Load(), "repeat reads come from cache")
}

func TestTopic_InvalidID(t *testing.T) {
	svc := newTestService(t, &fakeForum{})
	_, err := svc.Topic(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestTopicURL(t *testing.T) {
	svc := newTestService(t, &fakeForum{})

	got, err := svc.TopicURL(101, "motion-lights")
	require.NoError(t, err)
	assert.Equal(t, "https://forum.example/t/motion-lights/101", got)

	got, err = svc.TopicURL(101, "")
	require.NoError(t, err)
	assert.Equal(t, "https://forum.example/t/101", got)

	_, err = svc.TopicURL(0, "")
	assert.Error(t, err)
}

func TestSpotlight_LiveComputation(t *testing.T) {
	ff := &fakeForum{pages: map[int]*domain.PageResult{
		0: {Items: []domain.Blueprint{
			{ID: 1, Title: "A", Author: "alex", Likes: 10},
			{ID: 2, Title: "B", Author: "sam", Likes: 90},
			{ID: 3, Title: "C", Author: "sam", Likes: 5},
		}, HasMore: false},
	}}
	svc := newTestService(t, ff)

	sp, err := svc.Spotlight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), sp.MostPopular.ID)
	assert.Equal(t, "sam", sp.TopUploader.Author)
}
