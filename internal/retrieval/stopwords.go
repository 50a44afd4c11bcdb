package retrieval

import "strings"

// stopwords are excluded from semantic overlap so that function words
// never count as evidence of relevance.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "was": {},
	"are": {}, "were": {}, "been": {}, "be": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "this": {}, "that": {},
	"it": {}, "its": {}, "we": {}, "our": {}, "you": {}, "your": {},
	"i": {}, "me": {}, "my": {}, "what": {}, "which": {}, "who": {},
	"how": {}, "about": {}, "again": {}, "also": {}, "there": {},
}

// tokenize lowercases text, strips surrounding punctuation from each
// field and drops stopwords and empty tokens. Deterministic.
func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(field, ".,!?;:\"'()[]{}")
		if token == "" {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		out[token] = struct{}{}
	}
	return out
}
