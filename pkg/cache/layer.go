package cache

import (
	"sync/atomic"
	"time"

	"github.com/docforge/depgraph/pkg/analysis"
)

// Sizing configures one cache of the layer.
type Sizing struct {
	MaxSize int
	TTL     time.Duration // 0 = no expiration
}

// LayerConfig sizes the four result caches independently.
type LayerConfig struct {
	Paths  Sizing
	SCCs   Sizing
	Topo   Sizing
	Impact Sizing
}

// DefaultLayerConfig returns 1000 entries per cache, no TTL.
func DefaultLayerConfig() LayerConfig {
	def := Sizing{MaxSize: 1000}
	return LayerConfig{Paths: def, SCCs: def, Topo: def, Impact: def}
}

// Layer bundles the four analysis result caches.
//
// Each cache is guarded by its own lock and the caches never reference
// each other, so no cross-cache lock ordering exists. Invalidation is
// coarse: the store's version bump already makes stale keys
// unreachable, and Invalidate additionally purges entries so memory is
// reclaimed eagerly on commit instead of waiting for LRU pressure.
type Layer struct {
	Paths  *Cache[[]string]
	SCCs   *Cache[*analysis.SCCResult]
	Topo   *Cache[[]analysis.OrderedComponent]
	Impact *Cache[analysis.ImpactResult]

	invalidations atomic.Uint64
}

// NewLayer builds a layer from cfg. Zero-valued sizings fall back to
// the defaults.
func NewLayer(cfg LayerConfig) *Layer {
	return &Layer{
		Paths:  New[[]string](cfg.Paths.MaxSize, cfg.Paths.TTL),
		SCCs:   New[*analysis.SCCResult](cfg.SCCs.MaxSize, cfg.SCCs.TTL),
		Topo:   New[[]analysis.OrderedComponent](cfg.Topo.MaxSize, cfg.Topo.TTL),
		Impact: New[analysis.ImpactResult](cfg.Impact.MaxSize, cfg.Impact.TTL),
	}
}

// Invalidate purges all four caches. Wired to the store's invalidation
// hook, so it fires once per committed mutation or batch.
func (l *Layer) Invalidate() {
	l.invalidations.Add(1)
	l.Paths.Purge()
	l.SCCs.Purge()
	l.Topo.Purge()
	l.Impact.Purge()
}

// Invalidations returns how many times Invalidate has fired.
func (l *Layer) Invalidations() uint64 {
	return l.invalidations.Load()
}

// Stats returns per-cache statistics keyed by cache name.
func (l *Layer) Stats() map[string]Stats {
	return map[string]Stats{
		"paths":  l.Paths.Stats(),
		"sccs":   l.SCCs.Stats(),
		"topo":   l.Topo.Stats(),
		"impact": l.Impact.Stats(),
	}
}
