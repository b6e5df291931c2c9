package relevance

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
)

// Sorter orders blueprint slices by score and sort mode.
type Sorter struct {
	collator *collate.Collator

	// IDRecencyFallback uses the topic id as a recency proxy when no
	// timestamp is available. Valid only when the backend assigns ids in
	// creation order.
	IDRecencyFallback bool
}

// NewSorter creates a sorter with locale-aware, case-insensitive title
// comparison.
func NewSorter() *Sorter {
	return &Sorter{
		collator:          collate.New(language.English, collate.IgnoreCase),
		IDRecencyFallback: true,
	}
}

// Sort orders items in place. When searching, descending score wins first;
// ties (and the whole set when not searching) fall through to the sort mode:
// likes descending, title ascending over the cleaned title, or recency
// descending.
func (s *Sorter) Sort(items []domain.Blueprint, mode domain.SortMode, searching bool) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]

		if searching && a.Score != b.Score {
			return a.Score > b.Score
		}

		switch mode {
		case domain.SortNewest:
			return a.RecencyKey(s.IDRecencyFallback) > b.RecencyKey(s.IDRecencyFallback)
		case domain.SortTitle:
			return s.collator.CompareString(domain.CleanTitle(a.Title), domain.CleanTitle(b.Title)) < 0
		default:
			if a.Likes != b.Likes {
				return a.Likes > b.Likes
			}
			return a.Views > b.Views
		}
	})
}
