// Package registry provides the document registry collaborator.
//
// The registry is the system of record for which documentation artifacts
// exist and what kind they are. The dependency engine keeps its own copy
// of identity and kind, so registry lookups are used only for defensive
// validation at registration time, never per query.
package registry

import (
	"sync"

	"github.com/docforge/depgraph/pkg/graph"
)

// Registry answers existence and kind lookups for artifact ids.
type Registry interface {
	// Lookup returns the registered kind of id, or ok=false if the
	// registry does not know the id.
	Lookup(id string) (kind graph.Kind, ok bool)
}

// MemoryRegistry is a map-backed Registry, safe for concurrent use.
type MemoryRegistry struct {
	mu    sync.RWMutex
	kinds map[string]graph.Kind
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{kinds: make(map[string]graph.Kind)}
}

// Put records or updates an artifact.
func (r *MemoryRegistry) Put(id string, kind graph.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[id] = kind
}

// Delete forgets an artifact.
func (r *MemoryRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.kinds, id)
}

// Lookup implements Registry.
func (r *MemoryRegistry) Lookup(id string) (graph.Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.kinds[id]
	return kind, ok
}

// Len returns the number of registered artifacts.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.kinds)
}
