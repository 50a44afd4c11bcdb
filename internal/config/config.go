// Package config loads and validates the YAML configuration for the
// memory engine: tier capacities, retrieval weights and compressor
// limits. Missing or zero values fall back to engine defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Resolve when a field is absent or zero.
const (
	defaultSensoryCapacity   = 2
	defaultShortTermCapacity = 5
	defaultLongTermCapacity  = 300

	defaultTopK = 5

	defaultSemanticWeight = 0.4
	defaultEntityWeight   = 0.3
	defaultRecencyWeight  = 0.3

	defaultCompressorTimeoutSecs = 10
	defaultMaxCallsPerMinute     = 30
	defaultCacheSize             = 512
)

// Config is the top-level configuration file shape.
type Config struct {
	Tiers      TiersConfig      `yaml:"tiers"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Compressor CompressorConfig `yaml:"compressor"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
}

// TiersConfig sets per-tier capacities. Zero means default.
type TiersConfig struct {
	Sensory   int `yaml:"sensory"`
	ShortTerm int `yaml:"short_term"`
	LongTerm  int `yaml:"long_term"`
}

// RetrievalConfig tunes the hybrid scorer. Weights must sum to 1
// (within tolerance); invalid weights fall back to defaults.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	EntityWeight   float64 `yaml:"entity_weight"`
	RecencyWeight  float64 `yaml:"recency_weight"`
}

// CompressorConfig bounds the LLM-backed compressor collaborator.
type CompressorConfig struct {
	TimeoutSeconds    int `yaml:"timeout_seconds"`
	MaxCallsPerMinute int `yaml:"max_calls_per_minute"`
	CacheSize         int `yaml:"cache_size"`
}

// SnapshotConfig points at the SQLite snapshot database.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// Default returns a fully resolved config with engine defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Resolve()
	return cfg
}

// Load reads a YAML config file and resolves defaults. A missing file
// is not an error: it yields the default config so the engine can run
// unconfigured.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.Resolve()
	return &cfg, nil
}

// Resolve fills in defaults for absent or invalid fields. Valid
// explicit values are kept as-is.
func (c *Config) Resolve() {
	if c.Tiers.Sensory <= 0 {
		c.Tiers.Sensory = defaultSensoryCapacity
	}
	if c.Tiers.ShortTerm <= 0 {
		c.Tiers.ShortTerm = defaultShortTermCapacity
	}
	if c.Tiers.LongTerm <= 0 {
		c.Tiers.LongTerm = defaultLongTermCapacity
	}

	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = defaultTopK
	}
	if !validWeights(c.Retrieval.SemanticWeight, c.Retrieval.EntityWeight, c.Retrieval.RecencyWeight) {
		c.Retrieval.SemanticWeight = defaultSemanticWeight
		c.Retrieval.EntityWeight = defaultEntityWeight
		c.Retrieval.RecencyWeight = defaultRecencyWeight
	}

	if c.Compressor.TimeoutSeconds <= 0 {
		c.Compressor.TimeoutSeconds = defaultCompressorTimeoutSecs
	}
	if c.Compressor.MaxCallsPerMinute <= 0 {
		c.Compressor.MaxCallsPerMinute = defaultMaxCallsPerMinute
	}
	if c.Compressor.CacheSize <= 0 {
		c.Compressor.CacheSize = defaultCacheSize
	}
}

// validWeights reports whether the three weights are non-negative and
// sum to 1 within a small tolerance.
func validWeights(semantic, entity, recency float64) bool {
	if semantic < 0 || entity < 0 || recency < 0 {
		return false
	}
	sum := semantic + entity + recency
	return sum > 0.999 && sum < 1.001
}
