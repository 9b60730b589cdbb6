package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/docforge/depgraph/pkg/graph"
)

func TestMemoryRegistry(t *testing.T) {
	r := NewMemoryRegistry()

	t.Run("lookup unknown", func(t *testing.T) {
		if _, ok := r.Lookup("REQ-1"); ok {
			t.Error("unknown id reported present")
		}
	})

	t.Run("put and lookup", func(t *testing.T) {
		r.Put("REQ-1", graph.KindRequirement)
		kind, ok := r.Lookup("REQ-1")
		if !ok || kind != graph.KindRequirement {
			t.Errorf("Lookup = (%s, %v), want requirement", kind, ok)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		r.Put("REQ-1", graph.KindDesign)
		kind, _ := r.Lookup("REQ-1")
		if kind != graph.KindDesign {
			t.Errorf("kind = %s, want design after overwrite", kind)
		}
	})

	t.Run("delete", func(t *testing.T) {
		r.Delete("REQ-1")
		if _, ok := r.Lookup("REQ-1"); ok {
			t.Error("deleted id still present")
		}
		if r.Len() != 0 {
			t.Errorf("len = %d, want 0", r.Len())
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("doc-%d", i)
				r.Put(id, graph.KindCode)
				r.Lookup(id)
			}(i)
		}
		wg.Wait()
		if r.Len() != 50 {
			t.Errorf("len = %d, want 50", r.Len())
		}
	})
}
