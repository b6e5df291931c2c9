// Package domain contains the core catalog types shared across the server.
package domain

import (
	"strings"
	"time"
	"unicode"
)

// Blueprint is one browsable listing synthesized from a forum topic.
type Blueprint struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug,omitempty"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Likes    int    `json:"likes"`
	Views    int    `json:"views,omitempty"`
	Replies  int    `json:"replies,omitempty"`
	Uses     int    `json:"uses,omitempty"`
	ImportURL string `json:"import_url,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`

	// Tags are the labels the backend supplied, possibly empty.
	Tags []string `json:"tags,omitempty"`

	// Buckets is the union of Tags and classifier output. It is always
	// non-empty once a blueprint has passed through classification.
	Buckets []string `json:"buckets,omitempty"`

	// Score is the relevance score for the current search, zero when no
	// query is active. It is session-scoped and never persisted.
	Score int `json:"score,omitempty"`
}

// RecencyKey orders blueprints for the "newest" sort. When the backend
// supplied no timestamp it falls back to the topic id, which tracks creation
// order on Discourse-style forums. The fallback can be disabled when that
// assumption does not hold for a deployment.
func (b *Blueprint) RecencyKey(idFallback bool) int64 {
	if !b.CreatedAt.IsZero() {
		return b.CreatedAt.Unix()
	}
	if !b.UpdatedAt.IsZero() {
		return b.UpdatedAt.Unix()
	}
	if idFallback {
		return b.ID
	}
	return 0
}

// HasBucket reports whether the blueprint carries the given bucket,
// case-insensitively. An empty bucket matches everything.
func (b *Blueprint) HasBucket(bucket string) bool {
	if bucket == "" {
		return true
	}
	for _, t := range b.Buckets {
		if strings.EqualFold(t, bucket) {
			return true
		}
	}
	return false
}

// CleanTitle strips leading emoji and other decoration so title sorting
// groups listings alphabetically rather than by whoever picked the flashiest
// prefix.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '('
	})
}

// PageResult is one backend page response. It is consumed immediately by the
// accumulator and not retained.
type PageResult struct {
	Items   []Blueprint `json:"items"`
	HasMore bool        `json:"has_more"`
}
