package session

import (
	"context"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/relevance"
)

// browse walks pages on demand: page N+1 is fetched only when the consumer
// pulls past the last item of page N. Each page batch is classified,
// filtered, and ordered by the selected sort mode before being yielded.
func (s *Session) browse(ctx context.Context, myEpoch int64, runID string, st State, yield func(domain.Blueprint, error) bool) {
	for page := 0; page < s.maxPages; page++ {
		res, err := s.pager.FetchPage(ctx, forum.PageQuery{
			Page:   page,
			Sort:   st.Sort,
			Bucket: st.Bucket,
		})
		if s.stale(myEpoch) {
			return
		}
		if err != nil {
			if page == 0 {
				yield(domain.Blueprint{}, err)
				return
			}
			// Later pages: keep what was already shown.
			s.logger.Warn("page fetch failed mid-browse, stopping",
				"run", runID,
				"page", page,
				"error", err,
			)
			return
		}

		batch := res.Items
		s.classify(batch)

		kept := batch[:0]
		for i := range batch {
			if matchesBucket(&batch[i], st.Bucket) {
				kept = append(kept, batch[i])
			}
		}
		s.sorter.Sort(kept, st.Sort, false)

		for i := range kept {
			if s.stale(myEpoch) {
				return
			}
			if !yield(kept[i], nil) {
				return
			}
		}

		if !res.HasMore {
			return
		}
	}

	s.logger.Debug("page safety cap reached", "run", runID, "max_pages", s.maxPages)
}

// scanAll eagerly walks all capped pages because query matches may be
// scattered anywhere in the remote ordering. The working set is bounded at
// scanCap, keeping only the top-scoring items so far; the final ranked set
// is emitted once the scan completes.
func (s *Session) scanAll(ctx context.Context, myEpoch int64, runID string, st State, tokens []string, yield func(domain.Blueprint, error) bool) {
	var working []domain.Blueprint

	for page := 0; page < s.maxPages; page++ {
		res, err := s.pager.FetchPage(ctx, forum.PageQuery{
			Page:   page,
			Sort:   st.Sort,
			Bucket: st.Bucket,
			Query:  st.Query,
		})
		if s.stale(myEpoch) {
			return
		}
		if err != nil {
			if page == 0 && len(working) == 0 {
				yield(domain.Blueprint{}, err)
				return
			}
			// Partial results are better than none.
			s.logger.Warn("page fetch failed mid-scan, serving partial set",
				"run", runID,
				"page", page,
				"error", err,
			)
			break
		}

		batch := res.Items
		s.classify(batch)

		for i := range batch {
			it := batch[i]
			if !matchesBucket(&it, st.Bucket) {
				continue
			}
			score := relevance.Score(&it, tokens)
			if score <= 0 {
				continue
			}
			it.Score = score
			working = append(working, it)
		}

		if len(working) > s.scanCap {
			s.sorter.Sort(working, st.Sort, true)
			working = working[:s.scanCap]
		}

		if !res.HasMore {
			break
		}
	}

	if s.stale(myEpoch) {
		return
	}

	s.sorter.Sort(working, st.Sort, true)
	for i := range working {
		if s.stale(myEpoch) {
			return
		}
		if !yield(working[i], nil) {
			return
		}
	}
}
