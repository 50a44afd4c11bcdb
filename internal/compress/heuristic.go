package compress

import (
	"context"
	"strings"

	"github.com/nextlevelbuilder/memclaw/internal/entity"
	"github.com/nextlevelbuilder/memclaw/internal/tokens"
)

const (
	// Texts at or below this token count are too short to halve without
	// losing the facts the compression is meant to preserve.
	minHalfTokens = 16

	// Floor for the truncation fallback at the tag ratio.
	minTagTokens = 6
)

// Heuristic is a deterministic rule-based compressor. At RatioHalf it
// keeps the leading sentence plus every sentence that carries an entity
// or number, clamped to half the original token count. At RatioTag it
// reduces the text to its extracted terms joined as a dense tag.
type Heuristic struct {
	counter *tokens.Counter
}

// NewHeuristic returns a rule-based compressor using counter for token
// budgeting.
func NewHeuristic(counter *tokens.Counter) *Heuristic {
	if counter == nil {
		counter = tokens.Default()
	}
	return &Heuristic{counter: counter}
}

// Compress implements Compressor. It never returns an error: any branch
// that would produce empty output falls back to a truncated prefix.
func (h *Heuristic) Compress(_ context.Context, text string, ratio Ratio) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil
	}

	var out string
	switch ratio {
	case RatioNone:
		return trimmed, nil
	case RatioTag:
		out = h.tag(trimmed)
	default:
		out = h.half(trimmed)
	}

	if strings.TrimSpace(out) == "" {
		out = h.truncateFallback(trimmed, ratio)
	}
	return out, nil
}

func (h *Heuristic) half(text string) string {
	total := h.counter.Count(text)
	if total <= minHalfTokens {
		return text
	}
	target := total / 2

	sentences := splitSentences(text)
	var kept []string
	for i, sentence := range sentences {
		if i == 0 || len(entity.Extract(sentence)) > 0 {
			kept = append(kept, sentence)
		}
	}

	out := strings.Join(kept, " ")
	if h.counter.Count(out) > target {
		out = h.counter.Truncate(out, target)
	}
	return out
}

func (h *Heuristic) tag(text string) string {
	terms := entity.Extract(text)
	if len(terms) == 0 {
		return h.truncateFallback(text, RatioTag)
	}
	return strings.Join(terms, ", ")
}

// truncateFallback cuts a prefix sized for the ratio. Used whenever the
// primary strategy yields nothing usable.
func (h *Heuristic) truncateFallback(text string, ratio Ratio) string {
	total := h.counter.Count(text)
	target := total * (100 - int(ratio)) / 100
	if ratio == RatioTag && target < minTagTokens {
		target = minTagTokens
	}
	if target < 1 {
		target = 1
	}
	return h.counter.Truncate(text, target)
}

// splitSentences splits text on sentence terminators and newlines.
// Deterministic and intentionally simple; compression quality matters
// less than never losing the entity-bearing sentences.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
