// Package relevance scores and orders blueprints against a live search
// query.
package relevance

import (
	"strings"
	"unicode"
)

// maxTokens caps the token list so pathological queries stay cheap.
const maxTokens = 12

// stopWords are dropped during tokenization. One tokenization policy applies
// everywhere: the source system stripped stop-words for description search
// but kept them for title search, which made punctuation-heavy queries
// return different sets depending on the path. We strip uniformly.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "or": {}, "but": {}, "nor": {},
	"of": {}, "on": {}, "in": {}, "to": {}, "at": {},
	"by": {}, "for": {}, "with": {}, "from": {}, "as": {},
	"is": {}, "it": {},
}

// Tokenize splits a raw query into lowercase search tokens: punctuation
// becomes whitespace, tokens shorter than two characters and stop-words are
// dropped, and the list is capped at twelve tokens. An empty result means
// "no active query" and callers must neither filter nor reorder by score.
func Tokenize(query string) []string {
	if query == "" {
		return nil
	}

	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var tokens []string
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
		if len(tokens) == maxTokens {
			break
		}
	}
	return tokens
}
