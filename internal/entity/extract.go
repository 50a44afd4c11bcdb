// Package entity provides rule-based term extraction and the
// conversation-local inverted index used by long-term memory retrieval.
package entity

import (
	"regexp"
	"sort"
	"strings"
)

// Extraction patterns, checked in priority order. Later patterns skip
// spans already claimed by an earlier one, so "$6.2M" yields one term,
// not "$6.2M" plus "6.2".
var (
	moneyRe   = regexp.MustCompile(`\$\d+(?:\.\d+)?[KMBkmb]?`)
	percentRe = regexp.MustCompile(`\d+(?:\.\d+)?%`)
	quarterRe = regexp.MustCompile(`\b[Qq][1-4]\b`)
	numberRe  = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	properRe  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
)

// keyphraseRe matches domain keyphrases that are worth indexing even
// when lowercase (metrics and business vocabulary).
var keyphraseRe = regexp.MustCompile(`(?i)\b(revenue|profit|customers?|growth|churn|pricing|competitors?|market|sales|costs?|satisfaction|enterprise|clients?|strategy|quarter|projections?|comparison|pipeline)\b`)

// commonWords are capitalized words that carry no entity meaning when
// they stand alone (sentence openers, pronouns, roles).
var commonWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"what": {}, "who": {}, "how": {}, "when": {}, "where": {}, "why": {}, "which": {},
	"i": {}, "we": {}, "you": {}, "it": {}, "our": {}, "your": {}, "my": {}, "their": {},
	"is": {}, "was": {}, "are": {}, "were": {}, "do": {}, "does": {}, "did": {},
	"tell": {}, "show": {}, "give": {}, "please": {}, "thanks": {}, "yes": {}, "no": {},
	"user": {}, "agent": {}, "assistant": {}, "and": {}, "or": {}, "but": {}, "as": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "from": {},
}

type match struct {
	start int
	term  string
}

// Extract returns the normalized entity terms of text: money amounts,
// percentages, quarter references, standalone numbers, capitalized name
// sequences, and domain keyphrases. The result is deterministic for a
// fixed input, ordered by first appearance, lowercase, and deduplicated.
func Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var matches []match
	var claimed [][2]int

	claim := func(re *regexp.Regexp, filter func(string) bool) {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlaps(claimed, loc[0], loc[1]) {
				continue
			}
			term := text[loc[0]:loc[1]]
			if filter != nil && !filter(term) {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			matches = append(matches, match{start: loc[0], term: strings.ToLower(term)})
		}
	}

	claim(moneyRe, nil)
	claim(percentRe, nil)
	claim(quarterRe, nil)
	claim(numberRe, nil)
	claim(properRe, func(term string) bool {
		if strings.Contains(term, " ") {
			return true // multi-word names are kept as-is
		}
		_, common := commonWords[strings.ToLower(term)]
		return !common
	})
	claim(keyphraseRe, nil)

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].term < matches[j].term
	})

	seen := make(map[string]struct{}, len(matches))
	terms := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m.term]; dup {
			continue
		}
		seen[m.term] = struct{}{}
		terms = append(terms, m.term)
	}
	return terms
}

func overlaps(claimed [][2]int, start, end int) bool {
	for _, c := range claimed {
		if start < c[1] && end > c[0] {
			return true
		}
	}
	return false
}
