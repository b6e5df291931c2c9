// Package session drives the progressive retrieval pipeline: it pages
// through the forum catalog, classifies and ranks items, and guarantees that
// a new user action invalidates any in-flight, now-stale run.
//
// Cancellation is cooperative by design. The forum offers no preemptive
// abort, so every run captures the session epoch at start and checks it at
// each point it would surface results; a mismatch means a newer run
// superseded this one and its output is silently discarded. Rapid
// consecutive actions may therefore overlap on the network, but only the
// last-started run affects output.
package session

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/id"
	"github.com/blueprintstore/blueprintstore-server/internal/relevance"
	"github.com/blueprintstore/blueprintstore-server/internal/taxonomy"
)

const (
	// defaultMaxPages bounds how many forum pages one run may walk,
	// protecting against a catalog that never terminates has_more.
	defaultMaxPages = 6

	// defaultScanCap bounds the retained working set in scan-all mode so
	// very large catalogs cannot blow up memory or render cost. Only the
	// top-scoring items are kept.
	defaultScanCap = 400
)

// State is the user-facing reload input: free-text query, sort mode, and
// bucket filter. Callers never manage epochs themselves.
type State struct {
	Query  string
	Sort   domain.SortMode
	Bucket string
}

// Pager fetches one catalog page. Satisfied by *forum.Client.
type Pager interface {
	FetchPage(ctx context.Context, q forum.PageQuery) (*domain.PageResult, error)
}

// Options configures a Session.
type Options struct {
	Pager      Pager
	Classifier *taxonomy.Classifier
	Logger     *slog.Logger

	// MaxPages caps pages walked per run (default 6).
	MaxPages int
	// ScanCap caps the working set in scan-all mode (default 400).
	ScanCap int
	// IDRecencyFallback orders by topic id when timestamps are missing.
	IDRecencyFallback bool
}

// Session owns the reload lifecycle for one catalog view. All mutable state
// lives on the session; there are no package-level globals.
type Session struct {
	pager      Pager
	classifier *taxonomy.Classifier
	sorter     *relevance.Sorter
	logger     *slog.Logger
	buckets    *bucketCache

	maxPages int
	scanCap  int

	epoch  atomic.Int64
	closed atomic.Bool
}

// New creates a session.
func New(opts Options) *Session {
	if opts.Classifier == nil {
		opts.Classifier = taxonomy.NewDefault()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.ScanCap <= 0 {
		opts.ScanCap = defaultScanCap
	}

	sorter := relevance.NewSorter()
	sorter.IDRecencyFallback = opts.IDRecencyFallback

	return &Session{
		pager:      opts.Pager,
		classifier: opts.Classifier,
		sorter:     sorter,
		logger:     opts.Logger,
		buckets:    newBucketCache(),
		maxPages:   opts.MaxPages,
		scanCap:    opts.ScanCap,
	}
}

// Fork returns a session sharing this session's pager, classifier, sorter,
// bucket cache, and limits, but owning an independent epoch. Runs on a fork
// are superseded only by later runs on that same fork, never by runs on the
// parent or on sibling forks. Callers serving concurrent independent views
// fork per view instead of reloading a shared session, where each Reload
// would silently truncate every other caller's in-flight run.
func (s *Session) Fork() *Session {
	return &Session{
		pager:      s.pager,
		classifier: s.classifier,
		sorter:     s.sorter,
		logger:     s.logger,
		buckets:    s.buckets,
		maxPages:   s.maxPages,
		scanCap:    s.scanCap,
	}
}

// Epoch returns the live generation counter. Exposed for tests and
// diagnostics.
func (s *Session) Epoch() int64 {
	return s.epoch.Load()
}

// Close marks the session disposed; any in-flight run discards its results.
func (s *Session) Close() {
	s.closed.Store(true)
	s.epoch.Add(1)
}

// Reload opens a new epoch and returns the lazy, finite, non-restartable
// sequence of classified and ranked blueprints for the given state.
//
// Without a query the sequence is demand-driven: each page is fetched only
// when the consumer pulls past the previous one. With a query the run scans
// all capped pages eagerly, because matches may be scattered anywhere in the
// remote ordering, and emits the ranked working set.
//
// A failure on the first page is yielded as the sequence's error; a failure
// on a later page ends the sequence quietly with whatever was already
// accumulated. Results from a run that has been superseded by a newer Reload
// are discarded at every yield point and never surface.
func (s *Session) Reload(ctx context.Context, st State) iter.Seq2[domain.Blueprint, error] {
	myEpoch := s.epoch.Add(1)
	runID := id.MustGenerate("run")
	tokens := relevance.Tokenize(st.Query)

	s.logger.Debug("reload requested",
		"run", runID,
		"epoch", myEpoch,
		"query", st.Query,
		"sort", st.Sort,
		"bucket", st.Bucket,
	)

	return func(yield func(domain.Blueprint, error) bool) {
		if len(tokens) > 0 {
			s.scanAll(ctx, myEpoch, runID, st, tokens, yield)
			return
		}
		s.browse(ctx, myEpoch, runID, st, yield)
	}
}

// stale reports whether the run holding capturedEpoch has been superseded.
func (s *Session) stale(capturedEpoch int64) bool {
	return s.closed.Load() || s.epoch.Load() != capturedEpoch
}

// classify fills Buckets for every item in the batch, consulting the shared
// cache first. Buckets are the union of backend tags and classifier output
// over title and excerpt, and are never empty.
func (s *Session) classify(items []domain.Blueprint) {
	for i := range items {
		it := &items[i]
		if cached, ok := s.buckets.get(it.ID); ok {
			it.Buckets = cached
			continue
		}
		text := it.Title
		if it.Excerpt != "" {
			text += " " + it.Excerpt
		}
		it.Buckets = s.classifier.MergeBuckets(it.Tags, text)
		s.buckets.set(it.ID, it.Buckets)
	}
}

// matchesBucket applies the local bucket filter. The backend filters by
// bucket too, but inferred buckets only exist on this side.
func matchesBucket(b *domain.Blueprint, bucket string) bool {
	return b.HasBucket(strings.TrimSpace(bucket))
}
