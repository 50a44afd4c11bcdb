// Package tokens provides token counting and truncation used for
// memory budgeting and compression targets. Counting uses the
// cl100k_base BPE when available and falls back to a rune-based
// estimate, so a Counter is always usable.
package tokens

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	encodingName          = "cl100k_base"
	charsPerTokenEstimate = 4
)

// Counter counts and truncates text by token count.
// The zero value counts with the rune estimate.
type Counter struct {
	enc *tiktoken.Tiktoken // nil when the BPE is unavailable
}

// NewCounter returns a counter backed by the cl100k_base encoding.
// If the encoding cannot be loaded (e.g. no cached BPE and no network),
// the counter degrades to a deterministic rune-based estimate.
func NewCounter() *Counter {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		slog.Warn("tokens: BPE encoding unavailable, using rune estimate", "encoding", encodingName, "error", err)
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// NewEstimateCounter returns a counter that always uses the rune-based
// estimate. Useful where exact BPE counts are not needed and
// deterministic offline behavior is.
func NewEstimateCounter() *Counter {
	return &Counter{}
}

var (
	defaultOnce    sync.Once
	defaultCounter *Counter
)

// Default returns a process-wide shared counter. Loading the BPE is
// expensive, so it happens at most once.
func Default() *Counter {
	defaultOnce.Do(func() {
		defaultCounter = NewCounter()
	})
	return defaultCounter
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	n := utf8.RuneCountInString(text)
	return (n + charsPerTokenEstimate - 1) / charsPerTokenEstimate
}

// Truncate returns text cut to at most maxTokens tokens. The result is
// always a prefix of the input.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if c.enc != nil {
		toks := c.enc.Encode(text, nil, nil)
		if len(toks) <= maxTokens {
			return text
		}
		return c.enc.Decode(toks[:maxTokens])
	}
	runes := []rune(text)
	maxRunes := maxTokens * charsPerTokenEstimate
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}
