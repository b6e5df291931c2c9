// Package refresh runs the background crawl that keeps the local catalog
// cache in sync with the forum.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/session"
	"github.com/blueprintstore/blueprintstore-server/internal/store"
)

const (
	// tickInterval is how often the refresher checks the gate. The actual
	// crawl cadence is governed by the store's refresh stamp.
	tickInterval = 15 * time.Minute

	// upsertBatch is how many crawled items are written per transaction.
	upsertBatch = 100
)

// Options configures a Refresher.
type Options struct {
	// Session must be dedicated to the refresher: Reload supersedes any
	// in-flight run on the same session.
	Session *session.Session
	Catalog store.Catalog
	Logger  *slog.Logger

	// Interval is the minimum gap between crawls.
	Interval time.Duration
	// PruneAfter removes rows absent from crawls for this long.
	PruneAfter time.Duration
}

// Refresher periodically walks the forum catalog into the local store.
type Refresher struct {
	sess       *session.Session
	catalog    store.Catalog
	logger     *slog.Logger
	interval   time.Duration
	pruneAfter time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New creates a refresher. It does nothing until Start is called.
func New(opts Options) *Refresher {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Refresher{
		sess:       opts.Session,
		catalog:    opts.Catalog,
		logger:     opts.Logger,
		interval:   opts.Interval,
		pruneAfter: opts.PruneAfter,
		done:       make(chan struct{}),
	}
}

// Start launches the background loop. An immediate first pass runs before
// the ticker takes over, so a fresh install has data as soon as possible.
func (r *Refresher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go func() {
		defer close(r.done)

		r.runOnce(ctx, false)

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.runOnce(ctx, false)
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (r *Refresher) Stop() {
	r.once.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		<-r.done
	})
}

// RunNow forces a crawl regardless of the refresh stamp. Used at first boot
// and by tests.
func (r *Refresher) RunNow(ctx context.Context) error {
	return r.crawl(ctx)
}

func (r *Refresher) runOnce(ctx context.Context, force bool) {
	due, err := r.catalog.RefreshDue(ctx, r.interval, force)
	if err != nil {
		r.logger.Error("refresh gate check failed", "error", err)
		return
	}
	if !due {
		return
	}
	if err := r.crawl(ctx); err != nil {
		r.logger.Error("catalog crawl failed", "error", err)
	}
}

// crawl walks a full browse run into the store, then prunes rows that no
// crawl has seen within the retention window.
func (r *Refresher) crawl(ctx context.Context) error {
	started := time.Now()
	total := 0

	batch := make([]domain.Blueprint, 0, upsertBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.catalog.Upsert(ctx, batch)
		if err != nil {
			return err
		}
		total += n
		batch = batch[:0]
		return nil
	}

	for bp, err := range r.sess.Reload(ctx, session.State{Sort: domain.SortNewest}) {
		if err != nil {
			return err
		}
		batch = append(batch, bp)
		if len(batch) >= upsertBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	pruned := int64(0)
	if r.pruneAfter > 0 {
		var err error
		pruned, err = r.catalog.Prune(ctx, r.pruneAfter)
		if err != nil {
			r.logger.Warn("prune failed", "error", err)
		}
	}

	r.logger.Info("catalog crawl complete",
		"items", total,
		"pruned", pruned,
		"took", time.Since(started).Round(time.Millisecond),
	)
	return nil
}
