package relevance

import (
	"strings"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
)

// Field weights. A title hit outranks a bucket hit outranks an excerpt hit;
// weights add across tokens with no early exit, so scoring is commutative
// over token order.
const (
	weightTitle   = 3
	weightBucket  = 2
	weightExcerpt = 1
)

// Score computes the relevance of a blueprint for the given tokens. It
// returns 0 for an empty token list, which signals "no active query".
// Items scoring 0 under an active query are excluded from results.
func Score(b *domain.Blueprint, tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}

	title := strings.ToLower(b.Title)
	excerpt := strings.ToLower(b.Excerpt)
	buckets := make([]string, len(b.Buckets))
	for i, t := range b.Buckets {
		buckets[i] = strings.ToLower(t)
	}

	score := 0
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			score += weightTitle
		}
		for _, bucket := range buckets {
			if strings.Contains(bucket, tok) {
				score += weightBucket
				break
			}
		}
		if strings.Contains(excerpt, tok) {
			score += weightExcerpt
		}
	}
	return score
}
