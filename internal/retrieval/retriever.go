// Package retrieval ranks memory turns against query clues using a
// weighted combination of lexical overlap, entity overlap and recency.
package retrieval

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/memclaw/internal/memory"
)

// recencyScale is the turn distance at which the recency score decays
// to 1/e. Five turns of distance roughly halve relevance.
const recencyScale = 5.0

// defaultTopK bounds retrieval when the caller passes no limit.
const defaultTopK = 5

// Weights configure the hybrid relevance score. They are configuration,
// not constants, so they can be tuned and property-tested.
type Weights struct {
	Semantic float64 // lexical overlap between clues and turn text
	Entity   float64 // fraction of clue terms matching indexed entities
	Recency  float64 // exponential decay over turn distance
}

// DefaultWeights returns the default scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Semantic: 0.4,
		Entity:   0.3,
		Recency:  0.3,
	}
}

// Valid reports whether the weights are non-negative and sum to 1
// within a small tolerance, keeping scores comparable across reloads.
func (w Weights) Valid() bool {
	if w.Semantic < 0 || w.Entity < 0 || w.Recency < 0 {
		return false
	}
	sum := w.Semantic + w.Entity + w.Recency
	return sum > 0.999 && sum < 1.001
}

// Retriever scores and ranks candidate turns from Short-Term and
// Long-Term memory. Sensory turns are excluded: the context assembler
// always includes them verbatim. Results are fully deterministic for
// fixed memory contents and clues.
type Retriever struct {
	mem *memory.Manager

	mu      sync.RWMutex
	weights Weights
}

// New returns a retriever over the given memory. Invalid weights fall
// back to the defaults.
func New(mem *memory.Manager, w Weights) *Retriever {
	if !w.Valid() {
		w = DefaultWeights()
	}
	return &Retriever{mem: mem, weights: w}
}

// SetWeights replaces the scoring weights (e.g. on config hot-reload).
// Invalid weights are ignored.
func (r *Retriever) SetWeights(w Weights) {
	if !w.Valid() {
		return
	}
	r.mu.Lock()
	r.weights = w
	r.mu.Unlock()
}

// Weights returns the current scoring weights.
func (r *Retriever) Weights() Weights {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights
}

// Retrieve ranks candidates against the clues and returns at most topK
// turns, best first. An empty clue set degrades to pure recency
// ranking; empty tiers yield an empty result, never an error. Ties
// break by recency (most recent wins), then ascending turn ID.
// Returned long-term turns are marked retrieved, refreshing their
// position in the eviction order.
func (r *Retriever) Retrieve(clues []string, topK int) []*memory.Turn {
	if topK <= 0 {
		topK = defaultTopK
	}

	candidates := r.mem.Candidates()
	if len(candidates) == 0 {
		return nil
	}

	weights := r.Weights()
	current := r.mem.CurrentTurn()
	clueTokens, clueTerms := normalizeClues(clues)

	type scored struct {
		turn  *memory.Turn
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, t := range candidates {
		var score float64
		if len(clueTerms) == 0 {
			score = recency(current, t.ID)
		} else {
			score = weights.Semantic*semanticOverlap(clueTokens, t.CompressedText) +
				weights.Entity*entityOverlap(clueTerms, t.Entities) +
				weights.Recency*recency(current, t.ID)
		}
		ranked = append(ranked, scored{turn: t, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		// Equal scores: most recent first. Turn IDs are unique, so
		// this is already a total order.
		return ranked[i].turn.ID > ranked[j].turn.ID
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	out := make([]*memory.Turn, len(ranked))
	for i, s := range ranked {
		out[i] = s.turn
		r.mem.MarkRetrieved(s.turn.ID)
	}
	return out
}

// normalizeClues produces the two views of a clue set: the token set
// used for semantic overlap and the normalized term list used for
// entity overlap (multi-word clues stay whole there).
func normalizeClues(clues []string) (map[string]struct{}, []string) {
	tokens := make(map[string]struct{})
	terms := make([]string, 0, len(clues))
	seen := make(map[string]struct{}, len(clues))
	for _, clue := range clues {
		normalized := strings.ToLower(strings.TrimSpace(clue))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; !dup {
			seen[normalized] = struct{}{}
			terms = append(terms, normalized)
		}
		for token := range tokenize(normalized) {
			tokens[token] = struct{}{}
		}
	}
	return tokens, terms
}

// semanticOverlap is the Jaccard similarity between the clue token set
// and the turn text token set, in [0,1].
func semanticOverlap(clueTokens map[string]struct{}, text string) float64 {
	if len(clueTokens) == 0 {
		return 0
	}
	textTokens := tokenize(text)
	if len(textTokens) == 0 {
		return 0
	}

	intersection := 0
	for token := range clueTokens {
		if _, ok := textTokens[token]; ok {
			intersection++
		}
	}
	union := len(clueTokens) + len(textTokens) - intersection
	return float64(intersection) / float64(union)
}

// entityOverlap is the fraction of clue terms present in the turn's
// entity set, in [0,1]. Turns not yet entity-indexed score 0.
func entityOverlap(clueTerms []string, entities []string) float64 {
	if len(clueTerms) == 0 || len(entities) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		set[strings.ToLower(e)] = struct{}{}
	}
	matched := 0
	for _, term := range clueTerms {
		if _, ok := set[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(clueTerms))
}

// recency decays exponentially with turn distance, normalized to (0,1].
func recency(current, id int64) float64 {
	distance := float64(current - id)
	if distance < 0 {
		distance = 0
	}
	return math.Exp(-distance / recencyScale)
}
