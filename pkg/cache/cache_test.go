package cache

import (
	"testing"
	"time"

	"github.com/docforge/depgraph/pkg/analysis"
)

func TestKey(t *testing.T) {
	t.Run("same inputs same key", func(t *testing.T) {
		a := Key(7, "impact", "REQ-1", "downstream")
		b := Key(7, "impact", "REQ-1", "downstream")
		if a != b {
			t.Error("identical inputs produced different keys")
		}
	})

	t.Run("version bump changes key", func(t *testing.T) {
		if Key(7, "impact", "REQ-1") == Key(8, "impact", "REQ-1") {
			t.Error("version not embedded in key")
		}
	})

	t.Run("params change key", func(t *testing.T) {
		if Key(7, "impact", "REQ-1") == Key(7, "impact", "REQ-2") {
			t.Error("params not embedded in key")
		}
	})

	t.Run("part boundaries matter", func(t *testing.T) {
		if Key(7, "ab", "c") == Key(7, "a", "bc") {
			t.Error("concatenation ambiguity in key")
		}
	})
}

func TestCache(t *testing.T) {
	t.Run("get put", func(t *testing.T) {
		c := New[[]string](10, 0)
		key := Key(1, "path", "A", "B")

		if _, ok := c.Get(key); ok {
			t.Error("hit on empty cache")
		}
		c.Put(key, []string{"A", "B"})
		got, ok := c.Get(key)
		if !ok || len(got) != 2 {
			t.Errorf("Get = (%v, %v), want hit", got, ok)
		}
	})

	t.Run("lru eviction", func(t *testing.T) {
		c := New[int](2, 0)
		c.Put(1, 1)
		c.Put(2, 2)
		c.Put(3, 3) // evicts 1
		if _, ok := c.Get(1); ok {
			t.Error("oldest entry not evicted")
		}
		if _, ok := c.Get(3); !ok {
			t.Error("newest entry missing")
		}
	})

	t.Run("ttl expiry", func(t *testing.T) {
		c := New[int](10, 20*time.Millisecond)
		c.Put(1, 1)
		if _, ok := c.Get(1); !ok {
			t.Fatal("entry missing before TTL")
		}
		time.Sleep(60 * time.Millisecond)
		if _, ok := c.Get(1); ok {
			t.Error("entry survived TTL")
		}
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		c := New[int](10, 0)
		c.Put(1, 1)
		time.Sleep(20 * time.Millisecond)
		if _, ok := c.Get(1); !ok {
			t.Error("entry expired with TTL 0")
		}
	})

	t.Run("stats", func(t *testing.T) {
		c := New[int](10, 0)
		c.Put(1, 1)
		c.Get(1) // hit
		c.Get(2) // miss
		c.Get(2) // miss

		stats := c.Stats()
		if stats.Hits != 1 || stats.Misses != 2 {
			t.Errorf("stats = %+v, want 1 hit / 2 misses", stats)
		}
		if stats.Size != 1 {
			t.Errorf("size = %d, want 1", stats.Size)
		}
	})

	t.Run("disabled cache misses", func(t *testing.T) {
		c := New[int](10, 0)
		c.Put(1, 1)
		c.SetEnabled(false)
		if _, ok := c.Get(1); ok {
			t.Error("disabled cache returned a hit")
		}
		c.Put(2, 2)
		c.SetEnabled(true)
		if _, ok := c.Get(2); ok {
			t.Error("put while disabled was stored")
		}
	})
}

func TestLayer(t *testing.T) {
	t.Run("invalidate purges all caches", func(t *testing.T) {
		l := NewLayer(DefaultLayerConfig())
		l.Paths.Put(1, []string{"A"})
		l.SCCs.Put(2, &analysis.SCCResult{})
		l.Topo.Put(3, []analysis.OrderedComponent{})
		l.Impact.Put(4, analysis.ImpactResult{})

		l.Invalidate()

		if l.Paths.Len()+l.SCCs.Len()+l.Topo.Len()+l.Impact.Len() != 0 {
			t.Error("entries survived invalidation")
		}
		if l.Invalidations() != 1 {
			t.Errorf("invalidations = %d, want 1", l.Invalidations())
		}
	})

	t.Run("stats keyed by cache", func(t *testing.T) {
		l := NewLayer(DefaultLayerConfig())
		l.Impact.Put(1, analysis.ImpactResult{})
		l.Impact.Get(1)

		stats := l.Stats()
		for _, name := range []string{"paths", "sccs", "topo", "impact"} {
			if _, ok := stats[name]; !ok {
				t.Errorf("missing stats for %s", name)
			}
		}
		if stats["impact"].Hits != 1 {
			t.Errorf("impact hits = %d, want 1", stats["impact"].Hits)
		}
	})
}
