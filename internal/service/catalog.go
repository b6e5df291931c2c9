// Package service composes the retrieval pipeline behind the HTTP API.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/errors"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/session"
	"github.com/blueprintstore/blueprintstore-server/internal/store"
	"github.com/blueprintstore/blueprintstore-server/internal/taxonomy"
)

const (
	// pageSize is the number of items returned per API page.
	pageSize = 30

	// topicCacheTTL bounds how long an enriched topic detail is reused.
	topicCacheTTL = 15 * time.Minute
)

// ForumAPI is the remote surface the service consumes. Satisfied by
// *forum.Client.
type ForumAPI interface {
	session.Pager
	FetchFilters(ctx context.Context) ([]string, error)
	FetchTopic(ctx context.Context, topicID int64) (*forum.TopicDetail, error)
}

// CatalogService serves blueprint listings, filters, and topic details. Reads
// come from the local store when one is attached and populated; otherwise
// they walk the forum live through a session run.
type CatalogService struct {
	forum    ForumAPI
	sess     *session.Session // prototype; live reads run on per-request forks
	catalog  store.Catalog    // nil when persistence is disabled
	taxonomy *taxonomy.Classifier
	logger   *slog.Logger
	forumURL string

	topicGroup singleflight.Group
	topicMu    sync.RWMutex
	topicCache map[int64]cachedTopic
}

type cachedTopic struct {
	detail  *forum.TopicDetail
	fetched time.Time
}

// ListResult is one page of a catalog listing.
type ListResult struct {
	Items   []domain.Blueprint
	Page    int
	HasMore bool
}

// NewCatalogService creates the catalog service. catalog may be nil.
func NewCatalogService(api ForumAPI, sess *session.Session, catalog store.Catalog, classifier *taxonomy.Classifier, forumURL string, logger *slog.Logger) *CatalogService {
	if classifier == nil {
		classifier = taxonomy.NewDefault()
	}
	return &CatalogService{
		forum:      api,
		sess:       sess,
		catalog:    catalog,
		taxonomy:   classifier,
		logger:     logger,
		forumURL:   strings.TrimRight(forumURL, "/"),
		topicCache: make(map[int64]cachedTopic),
	}
}

// List returns one page of blueprints for the given query, sort, and bucket.
func (s *CatalogService) List(ctx context.Context, query, sortBy, bucket string, page int) (*ListResult, error) {
	if page < 0 {
		return nil, errors.Validationf("page must be non-negative")
	}
	mode := domain.ParseSortMode(sortBy)

	if s.catalog != nil {
		res, err := s.listLocal(ctx, query, mode, bucket, page)
		if err == nil {
			return res, nil
		}
		s.logger.Warn("local listing failed, falling back to live fetch", "error", err)
	}
	return s.listLive(ctx, query, mode, bucket, page)
}

// listLocal serves the page from the SQLite catalog.
func (s *CatalogService) listLocal(ctx context.Context, query string, mode domain.SortMode, bucket string, page int) (*ListResult, error) {
	var buckets []string
	if b := strings.TrimSpace(bucket); b != "" {
		buckets = []string{b}
	}

	// Fetch one extra row to learn whether another page exists.
	items, err := s.catalog.Query(ctx, store.QueryParams{
		Query:   query,
		Buckets: buckets,
		Sort:    mode,
		Limit:   pageSize + 1,
		Offset:  page * pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	if len(items) == 0 && page == 0 {
		// An empty store means the first crawl has not run; let live mode serve.
		return nil, errors.NotFoundf("local catalog empty")
	}

	hasMore := len(items) > pageSize
	if hasMore {
		items = items[:pageSize]
	}
	return &ListResult{Items: items, Page: page, HasMore: hasMore}, nil
}

// listLive walks the forum through a fresh session run and slices out the
// requested page. Earlier pages of the run are skipped, not re-fetched, since
// the run is demand-driven. Each request runs on its own session fork:
// concurrent requests are independent views, so one request's reload must not
// supersede another's in-flight run and truncate its response.
func (s *CatalogService) listLive(ctx context.Context, query string, mode domain.SortMode, bucket string, page int) (*ListResult, error) {
	st := session.State{Query: query, Sort: mode, Bucket: bucket}

	run := s.sess.Fork()
	defer run.Close()

	var (
		collected []domain.Blueprint
		skip      = page * pageSize
		want      = skip + pageSize + 1
	)
	for bp, err := range run.Reload(ctx, st) {
		if err != nil {
			return nil, err
		}
		collected = append(collected, bp)
		if len(collected) >= want {
			break
		}
	}

	if skip >= len(collected) {
		return &ListResult{Items: []domain.Blueprint{}, Page: page, HasMore: false}, nil
	}
	items := collected[skip:]
	hasMore := len(items) > pageSize
	if hasMore {
		items = items[:pageSize]
	}
	return &ListResult{Items: items, Page: page, HasMore: hasMore}, nil
}

// Filters returns the bucket list offered to clients. Preference order:
// the forum's advisory list, then the local store's observed buckets, then
// the built-in taxonomy. The catch-all bucket is always present.
func (s *CatalogService) Filters(ctx context.Context) ([]string, error) {
	if filters, err := s.forum.FetchFilters(ctx); err == nil && len(filters) > 0 {
		return withCatchAll(filters), nil
	} else if err != nil {
		s.logger.Warn("filters fetch failed, using fallback", "error", err)
	}

	if s.catalog != nil {
		if buckets, err := s.catalog.Buckets(ctx); err == nil && len(buckets) > 0 {
			return withCatchAll(buckets), nil
		}
	}

	cats := s.taxonomy.Categories()
	out := make([]string, 0, len(cats)+1)
	for _, c := range cats {
		out = append(out, c.Slug)
	}
	return withCatchAll(out), nil
}

// withCatchAll returns the buckets sorted, with the catch-all appended when
// absent. Ordering must not depend on whether upstream happened to include it.
func withCatchAll(buckets []string) []string {
	catchAll := taxonomy.Slugify(taxonomy.CatchAllName)
	out := make([]string, len(buckets), len(buckets)+1)
	copy(out, buckets)
	found := false
	for _, b := range out {
		if b == catchAll {
			found = true
			break
		}
	}
	if !found {
		out = append(out, catchAll)
	}
	sort.Strings(out)
	return out
}

// Topic returns the enriched detail for one blueprint topic. Concurrent
// requests for the same topic collapse into a single upstream fetch, and
// results are cached for a short window.
func (s *CatalogService) Topic(ctx context.Context, topicID int64) (*forum.TopicDetail, error) {
	if topicID <= 0 {
		return nil, errors.Validationf("topic id must be positive")
	}

	s.topicMu.RLock()
	if c, ok := s.topicCache[topicID]; ok && time.Since(c.fetched) < topicCacheTTL {
		s.topicMu.RUnlock()
		return c.detail, nil
	}
	s.topicMu.RUnlock()

	v, err, _ := s.topicGroup.Do(strconv.FormatInt(topicID, 10), func() (any, error) {
		detail, err := s.forum.FetchTopic(ctx, topicID)
		if err != nil {
			return nil, err
		}
		s.topicMu.Lock()
		s.topicCache[topicID] = cachedTopic{detail: detail, fetched: time.Now()}
		s.topicMu.Unlock()
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*forum.TopicDetail), nil
}

// TopicURL builds the public forum URL for a topic, used by the redirect
// endpoint. The slug is optional; the forum resolves by id alone.
func (s *CatalogService) TopicURL(topicID int64, slug string) (string, error) {
	if topicID <= 0 {
		return "", errors.Validationf("topic id must be positive")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return fmt.Sprintf("%s/t/%d", s.forumURL, topicID), nil
	}
	return fmt.Sprintf("%s/t/%s/%d", s.forumURL, url.PathEscape(slug), topicID), nil
}

// Spotlight returns creator highlights. Requires the local store; without it
// highlights are computed from a capped live browse.
func (s *CatalogService) Spotlight(ctx context.Context) (domain.Spotlight, error) {
	if s.catalog != nil {
		sp, err := s.catalog.Spotlight(ctx)
		if err == nil && sp.MostPopular.ID != 0 {
			return sp, nil
		}
		if err != nil {
			s.logger.Warn("store spotlight failed, computing live", "error", err)
		}
	}

	run := s.sess.Fork()
	defer run.Close()

	var items []domain.Blueprint
	for bp, err := range run.Reload(ctx, session.State{Sort: domain.SortLikes}) {
		if err != nil {
			return domain.Spotlight{}, err
		}
		items = append(items, bp)
	}
	return domain.ComputeSpotlight(items, true), nil
}
