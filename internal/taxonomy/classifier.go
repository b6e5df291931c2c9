package taxonomy

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultThreshold is how many distinct keywords from one category must
// appear in an item's text before the category is assigned. A single hit is
// too noisy: "light" alone would tag every listing that mentions lighting in
// passing.
const DefaultThreshold = 3

// Classifier assigns buckets from text. It is stateless, deterministic, and
// never fails; every input maps to at least the catch-all bucket.
type Classifier struct {
	categories []Category
	threshold  int
}

// New creates a classifier over the given taxonomy. A threshold below 1 is
// raised to the default.
func New(categories []Category, threshold int) *Classifier {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Classifier{categories: categories, threshold: threshold}
}

// NewDefault creates a classifier over DefaultCategories with the default
// threshold.
func NewDefault() *Classifier {
	return New(DefaultCategories, DefaultThreshold)
}

// Categories returns the taxonomy this classifier assigns from.
func (c *Classifier) Categories() []Category {
	return c.categories
}

// Classify returns the category names whose keyword count meets the
// threshold, in taxonomy order. When nothing qualifies it returns exactly
// the catch-all.
func (c *Classifier) Classify(text string) []string {
	words := splitWords(text)

	var out []string
	for _, cat := range c.categories {
		hits := 0
		for _, kw := range cat.Keywords {
			if words.hasPrefix(kw) {
				hits++
				if hits >= c.threshold {
					out = append(out, cat.Name)
					break
				}
			}
		}
	}

	if len(out) == 0 {
		return []string{CatchAllName}
	}
	return out
}

// MergeBuckets unions backend-supplied tags with classifier output over the
// item's text, normalized to slugs. The result is never empty.
func (c *Classifier) MergeBuckets(serverTags []string, text string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		slug := Slugify(name)
		if slug == "" {
			return
		}
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}

	for _, t := range serverTags {
		add(t)
	}
	for _, name := range c.Classify(text) {
		add(name)
	}
	return out
}

// wordSet holds the distinct lowercase words of a text, sorted so prefix
// membership is a binary search.
type wordSet []string

func splitWords(text string) wordSet {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	words := make(wordSet, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		words = append(words, f)
	}
	sort.Strings(words)
	return words
}

// hasPrefix reports whether any word starts with the given stem. Matching on
// word boundaries keeps "light" from hitting "flight", while still counting
// "lights" and "lighting".
func (w wordSet) hasPrefix(stem string) bool {
	i := sort.SearchStrings(w, stem)
	return i < len(w) && strings.HasPrefix(w[i], stem)
}
