package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := LoadFromEnv()
		if cfg.Cache.ImpactSize != 1000 {
			t.Errorf("impact cache size = %d, want 1000", cfg.Cache.ImpactSize)
		}
		if cfg.Cache.TTL != 0 {
			t.Errorf("cache TTL = %v, want 0 (unbounded)", cfg.Cache.TTL)
		}
		if cfg.Impact.Workers != 4 {
			t.Errorf("workers = %d, want 4", cfg.Impact.Workers)
		}
		if cfg.Impact.ParallelThreshold != 1000 {
			t.Errorf("parallel threshold = %d, want 1000", cfg.Impact.ParallelThreshold)
		}
		if !cfg.Pool.Enabled {
			t.Error("pooling disabled by default")
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("default config invalid: %v", err)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("DEPGRAPH_IMPACT_WORKERS", "8")
		t.Setenv("DEPGRAPH_CACHE_TTL", "5m")
		t.Setenv("DEPGRAPH_VERBOSE", "true")

		cfg := LoadFromEnv()
		if cfg.Impact.Workers != 8 {
			t.Errorf("workers = %d, want 8", cfg.Impact.Workers)
		}
		if cfg.Cache.TTL != 5*time.Minute {
			t.Errorf("TTL = %v, want 5m", cfg.Cache.TTL)
		}
		if !cfg.Verbose {
			t.Error("verbose not enabled")
		}
	})

	t.Run("duration as bare seconds", func(t *testing.T) {
		t.Setenv("DEPGRAPH_IMPACT_TIMEOUT", "30")
		cfg := LoadFromEnv()
		if cfg.Impact.Timeout != 30*time.Second {
			t.Errorf("timeout = %v, want 30s", cfg.Impact.Timeout)
		}
	})

	t.Run("garbage values fall back", func(t *testing.T) {
		t.Setenv("DEPGRAPH_IMPACT_WORKERS", "lots")
		cfg := LoadFromEnv()
		if cfg.Impact.Workers != 4 {
			t.Errorf("workers = %d, want default 4", cfg.Impact.Workers)
		}
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depgraph.yaml")
	content := []byte(`
cache:
  impact_size: 50
  ttl: 10m
impact:
  workers: 2
verbose: true
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadFromEnv()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatal(err)
	}

	if cfg.Cache.ImpactSize != 50 {
		t.Errorf("impact cache size = %d, want 50", cfg.Cache.ImpactSize)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("TTL = %v, want 10m", cfg.Cache.TTL)
	}
	if cfg.Impact.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Impact.Workers)
	}
	// Untouched fields keep their env/default values.
	if cfg.Cache.PathsSize != 1000 {
		t.Errorf("paths size = %d, want untouched 1000", cfg.Cache.PathsSize)
	}

	t.Run("missing file", func(t *testing.T) {
		cfg := LoadFromEnv()
		if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("missing file did not error")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		os.WriteFile(bad, []byte("cache: ["), 0o644)
		cfg := LoadFromEnv()
		if err := cfg.LoadFile(bad); err == nil {
			t.Error("malformed yaml did not error")
		}
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cache size", func(c *Config) { c.Cache.ImpactSize = 0 }},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }},
		{"zero workers", func(c *Config) { c.Impact.Workers = 0 }},
		{"negative threshold", func(c *Config) { c.Impact.ParallelThreshold = -1 }},
		{"negative timeout", func(c *Config) { c.Impact.Timeout = -time.Second }},
		{"zero pool cap", func(c *Config) { c.Pool.MaxCap = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := LoadFromEnv()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid config passed Validate")
			}
		})
	}
}
