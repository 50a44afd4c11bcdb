// Package compress produces reduced-fidelity representations of
// conversation turns. Compression is one-way: there is no path back to
// the original text. Two implementations are provided: a deterministic
// rule-based compressor and an LLM-backed compressor with a bounded
// timeout and a truncation fallback, so compression can never make a
// turn unretrievable or block ingestion indefinitely.
package compress

import (
	"context"
	"errors"
)

// Ratio is the percent fidelity reduction applied to a turn's text.
type Ratio int

const (
	// RatioNone leaves text verbatim.
	RatioNone Ratio = 0
	// RatioHalf keeps entities, numbers and the topical gist in roughly
	// half the token count. Applied on the Sensory → Short-Term move.
	RatioHalf Ratio = 50
	// RatioTag keeps only entities, numbers and topic keywords as a
	// dense tag. Applied on the Short-Term → Long-Term move.
	RatioTag Ratio = 95
)

// Compressor reduces turn text at a target ratio. Implementations must
// be deterministic for a fixed (text, ratio) pair and must never return
// empty output for non-empty input.
type Compressor interface {
	Compress(ctx context.Context, text string, ratio Ratio) (string, error)
}

// TextGenerator is the opaque text-generation collaborator (an LLM
// backend). The core depends only on this shape, not on any provider.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrCollaboratorUnavailable classifies failures of an external
// collaborator (LLM compression or clue-generation backend). It is
// recoverable: callers apply their documented fallback instead of
// failing the turn.
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
