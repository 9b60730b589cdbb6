// Package pool provides object pooling for DepGraph to reduce allocations.
//
// Object pooling reuses allocated objects instead of creating new ones,
// reducing GC pressure on the hot traversal paths. The impact analyzer
// allocates a frontier slice per BFS level and the path finder allocates
// one per query; on large graphs these add up quickly.
//
// Usage:
//
//	frontier := pool.GetIndexSlice()
//	defer pool.PutIndexSlice(frontier)
//
//	frontier = append(frontier, start)
package pool

import (
	"sync"
)

// Config configures pooling behavior.
type Config struct {
	// Enabled controls whether pooling is active
	Enabled bool

	// MaxCap limits the capacity of slices kept in the pool
	MaxCap int
}

var globalConfig = Config{
	Enabled: true,
	MaxCap:  65536,
}

// Configure sets global pool configuration.
// Should be called early during initialization.
func Configure(config Config) {
	globalConfig = config
	initPools()
}

// initPools reinitializes all pools with their New functions.
func initPools() {
	indexSlicePool = sync.Pool{
		New: func() any {
			return make([]int, 0, 256)
		},
	}
}

// IsEnabled returns whether pooling is enabled.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// =============================================================================
// Index Slice Pool (BFS frontiers, SCC worklists)
// =============================================================================

var indexSlicePool = sync.Pool{
	New: func() any {
		return make([]int, 0, 256)
	},
}

// GetIndexSlice returns an arena-index slice from the pool.
// The returned slice has length 0 but may have capacity.
// Call PutIndexSlice when done.
func GetIndexSlice() []int {
	if !globalConfig.Enabled {
		return make([]int, 0, 256)
	}
	return indexSlicePool.Get().([]int)[:0]
}

// PutIndexSlice returns an arena-index slice to the pool.
func PutIndexSlice(s []int) {
	if !globalConfig.Enabled {
		return
	}
	if cap(s) > globalConfig.MaxCap {
		return
	}
	indexSlicePool.Put(s[:0])
}
