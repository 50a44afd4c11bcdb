package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Tiers.Sensory != 2 || cfg.Tiers.ShortTerm != 5 || cfg.Tiers.LongTerm != 300 {
		t.Errorf("tier defaults = %+v", cfg.Tiers)
	}
	if cfg.Retrieval.SemanticWeight != 0.4 || cfg.Retrieval.EntityWeight != 0.3 || cfg.Retrieval.RecencyWeight != 0.3 {
		t.Errorf("weight defaults = %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.Retrieval.TopK)
	}
}

func TestLoad_PartialFileKeepsExplicitValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memclaw.yaml")
	content := `
tiers:
  short_term: 8
retrieval:
  top_k: 3
  semantic_weight: 0.5
  entity_weight: 0.25
  recency_weight: 0.25
compressor:
  max_calls_per_minute: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Tiers.ShortTerm != 8 {
		t.Errorf("ShortTerm = %d, want 8", cfg.Tiers.ShortTerm)
	}
	if cfg.Tiers.Sensory != 2 || cfg.Tiers.LongTerm != 300 {
		t.Errorf("unset tiers not defaulted: %+v", cfg.Tiers)
	}
	if cfg.Retrieval.TopK != 3 || cfg.Retrieval.SemanticWeight != 0.5 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
	if cfg.Compressor.MaxCallsPerMinute != 10 || cfg.Compressor.TimeoutSeconds != 10 {
		t.Errorf("compressor = %+v", cfg.Compressor)
	}
}

func TestResolve_InvalidWeightsFallBack(t *testing.T) {
	cfg := &Config{
		Retrieval: RetrievalConfig{
			SemanticWeight: 0.9,
			EntityWeight:   0.9,
			RecencyWeight:  0.9,
		},
	}
	cfg.Resolve()

	if cfg.Retrieval.SemanticWeight != 0.4 {
		t.Errorf("SemanticWeight = %v, want default 0.4", cfg.Retrieval.SemanticWeight)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("tiers: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNormalizeConversationName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "default"},
		{"  ", "default"},
		{"quarterly-review", "quarterly-review"},
		{"Q3 Planning!", "q3-planning"},
		{"---", "default"},
		{"Mixed_Case Name", "mixed_case-name"},
	}
	for _, tc := range cases {
		if got := NormalizeConversationName(tc.in); got != tc.want {
			t.Errorf("NormalizeConversationName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWatcher_SkipsUnchangedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memclaw.yaml")
	if err := os.WriteFile(path, []byte("retrieval:\n  top_k: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.watcher.Close()

	calls := 0
	w.OnChange(func(*Config) { calls++ })

	w.reload()
	w.reload() // same resolved config, must not fire again
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}

	// A semantic no-op edit (different bytes, same resolved config)
	// is also suppressed.
	if err := os.WriteFile(path, []byte("retrieval:\n  top_k: 7\n# tuned\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.reload()
	if calls != 1 {
		t.Fatalf("handler ran %d times after no-op edit, want 1", calls)
	}

	if err := os.WriteFile(path, []byte("retrieval:\n  top_k: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.reload()
	if calls != 2 {
		t.Fatalf("handler ran %d times after real change, want 2", calls)
	}
}

func TestWatcher_ReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memclaw.yaml")
	if err := os.WriteFile(path, []byte("retrieval:\n  top_k: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("retrieval:\n  top_k: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Retrieval.TopK != 9 {
			t.Errorf("TopK after reload = %d, want 9", cfg.Retrieval.TopK)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
