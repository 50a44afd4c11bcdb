package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nextlevelbuilder/memclaw/internal/compress"
	"github.com/nextlevelbuilder/memclaw/internal/config"
	"github.com/nextlevelbuilder/memclaw/internal/memory"
	"github.com/nextlevelbuilder/memclaw/internal/retrieval"
	"github.com/nextlevelbuilder/memclaw/internal/session"
)

// sessionOptions maps the config file onto session options. The echo
// responder stands in until a model backend is wired.
func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		Memory: memory.Config{
			SensoryCapacity:   cfg.Tiers.Sensory,
			ShortTermCapacity: cfg.Tiers.ShortTerm,
			LongTermCapacity:  cfg.Tiers.LongTerm,
		},
		Weights: retrieval.Weights{
			Semantic: cfg.Retrieval.SemanticWeight,
			Entity:   cfg.Retrieval.EntityWeight,
			Recency:  cfg.Retrieval.RecencyWeight,
		},
		TopK: cfg.Retrieval.TopK,
		CompressorLimits: compress.LLMConfig{
			Timeout:           time.Duration(cfg.Compressor.TimeoutSeconds) * time.Second,
			MaxCallsPerMinute: cfg.Compressor.MaxCallsPerMinute,
			CacheSize:         cfg.Compressor.CacheSize,
		},
		Responder: echoResponder{},
	}
}

// printStats renders memory statistics as an aligned table.
func printStats(w io.Writer, s memory.Stats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "tier\tturns\ttokens\n")
	fmt.Fprintf(tw, "sensory\t%d\t%d\n", s.Sensory.Turns, s.Sensory.Tokens)
	fmt.Fprintf(tw, "short_term\t%d\t%d\n", s.ShortTerm.Turns, s.ShortTerm.Tokens)
	fmt.Fprintf(tw, "long_term\t%d\t%d\n", s.LongTerm.Turns, s.LongTerm.Tokens)
	tw.Flush()

	fmt.Fprintf(w, "\nturns seen: %d  evicted: %d  entity terms: %d\n",
		s.CurrentTurn, s.Evicted, s.EntityTerms)
	fmt.Fprintf(w, "active context: %d tokens\n", s.ActiveTokens)
	fmt.Fprintf(w, "compression: %d -> %d tokens (%.1f%% saved)\n",
		s.RawTokens, s.CompressedTokens, s.SavedRatio*100)
}
