// Package clue turns a user utterance into the ordered search terms
// that drive retrieval. The generator is a pluggable collaborator: the
// core depends only on its output shape, not on how the terms are
// produced.
package clue

import (
	"context"
	"strings"

	"github.com/nextlevelbuilder/memclaw/internal/entity"
)

// Generator produces ordered search terms from a user utterance.
// recentContext carries the currently assembled recent conversation so
// a model-backed generator can resolve vague references ("that
// number"). Implementations must always return usable clues: when err
// is non-nil it reports a degraded path (collaborator failure with
// rule-based fallback applied), not an empty result.
type Generator interface {
	GenerateClues(ctx context.Context, utterance, recentContext string) ([]string, error)
}

// RuleBased derives clues directly from the utterance: extracted entity
// terms first, then the remaining content words in order. Deterministic
// and dependency-free; also serves as the fallback for LLM-backed
// generation.
type RuleBased struct{}

// GenerateClues implements Generator. Never returns an error.
func (RuleBased) GenerateClues(_ context.Context, utterance, _ string) ([]string, error) {
	terms := entity.Extract(utterance)
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		seen[term] = struct{}{}
	}

	for _, field := range strings.Fields(strings.ToLower(utterance)) {
		token := strings.Trim(field, ".,!?;:\"'()[]{}")
		if len(token) < 3 {
			continue
		}
		if _, stop := fillerWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, token)
	}
	return terms, nil
}

// fillerWords are content-free tokens excluded from rule-based clues.
var fillerWords = map[string]struct{}{
	"the": {}, "and": {}, "was": {}, "were": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "about": {}, "again": {}, "tell": {}, "that": {},
	"this": {}, "did": {}, "does": {}, "are": {}, "you": {}, "our": {},
	"your": {}, "for": {}, "with": {}, "from": {}, "have": {}, "has": {},
	"can": {}, "could": {}, "would": {}, "should": {}, "please": {},
}
