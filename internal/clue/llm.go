package clue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nextlevelbuilder/memclaw/internal/compress"
)

const cluePrompt = `You are a retrieval expert. Given the recent
conversation and the user's current query, produce search clues that
would locate the relevant earlier turns.

# Recent Conversation
%s

# User's Current Query
%q

Respond as JSON:
{"clues": "what information is needed", "entities": ["term1", "term2"]}`

// llmResponse is the shape the backend is asked to produce.
type llmResponse struct {
	Clues    string   `json:"clues"`
	Entities []string `json:"entities"`
}

// LLM generates clues with a text-generation collaborator, expanding
// vague queries into concrete retrieval targets. On any backend failure
// (error, timeout, unparseable output) it falls back to rule-based
// clues and reports the degradation by wrapping
// compress.ErrCollaboratorUnavailable; the returned clues stay usable.
type LLM struct {
	gen      compress.TextGenerator
	timeout  time.Duration
	fallback RuleBased
}

// NewLLM returns an LLM-backed clue generator. A zero timeout defaults
// to 10 seconds.
func NewLLM(gen compress.TextGenerator, timeout time.Duration) (*LLM, error) {
	if gen == nil {
		return nil, fmt.Errorf("clue: nil text generator")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLM{gen: gen, timeout: timeout}, nil
}

// GenerateClues implements Generator.
func (l *LLM) GenerateClues(ctx context.Context, utterance, recentContext string) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, err := l.gen.Generate(callCtx, fmt.Sprintf(cluePrompt, recentContext, utterance))
	if err != nil {
		return l.degrade(ctx, utterance, fmt.Errorf("clue: backend: %v: %w", err, compress.ErrCollaboratorUnavailable))
	}

	parsed, ok := parseResponse(raw)
	if !ok {
		return l.degrade(ctx, utterance, fmt.Errorf("clue: unparseable response: %w", compress.ErrCollaboratorUnavailable))
	}

	terms := make([]string, 0, len(parsed.Entities)+4)
	seen := make(map[string]struct{})
	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, e := range parsed.Entities {
		add(e)
	}
	for _, field := range strings.Fields(parsed.Clues) {
		token := strings.Trim(field, ".,!?;:\"'()[]{}")
		if len(token) >= 3 {
			if _, stop := fillerWords[strings.ToLower(token)]; !stop {
				add(token)
			}
		}
	}

	if len(terms) == 0 {
		return l.degrade(ctx, utterance, fmt.Errorf("clue: empty clue set: %w", compress.ErrCollaboratorUnavailable))
	}
	return terms, nil
}

func (l *LLM) degrade(ctx context.Context, utterance string, cause error) ([]string, error) {
	slog.Warn("clue: falling back to rule-based generation", "error", cause)
	terms, _ := l.fallback.GenerateClues(ctx, utterance, "")
	return terms, cause
}

// parseResponse extracts the JSON object from a possibly chatty model
// reply.
func parseResponse(raw string) (llmResponse, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return llmResponse{}, false
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return llmResponse{}, false
	}
	if parsed.Clues == "" && len(parsed.Entities) == 0 {
		return llmResponse{}, false
	}
	return parsed, true
}
