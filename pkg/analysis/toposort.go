package analysis

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/docforge/depgraph/pkg/graph"
)

// OrderedComponent is one entry of a topological order: a component id
// plus its member node ids in the detector's internal order.
type OrderedComponent struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
}

// minIntHeap is a deterministic work queue for Kahn's algorithm: ready
// components are always dequeued smallest-id first.
type minIntHeap []int

func (h minIntHeap) Len() int            { return len(h) }
func (h minIntHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h minIntHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minIntHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *minIntHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopologicalOrder orders the condensation graph (every SCC collapsed to
// one super-node) with Kahn's in-degree algorithm.
//
// The returned order respects every edge between distinct components:
// a component always precedes the components it points at. Member order
// inside a component is the detector's pop order; no ordering is implied
// between members of one component.
//
// With strict=true the call fails with ErrCyclicDependency if any
// component is cyclic, naming one representative cycle. With
// strict=false cycles are tolerated and simply travel as a single
// collapsed entry.
func TopologicalOrder(snap *graph.Snapshot, scc *SCCResult, strict bool) ([]OrderedComponent, error) {
	if strict {
		if cyclic := scc.CyclicComponents(snap); len(cyclic) > 0 {
			return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, memberIDs(snap, scc.Components[cyclic[0]]))
		}
	}

	nc := len(scc.Components)
	indegree := make([]int, nc)
	succs := make([][]int, nc)
	seen := make(map[[2]int]struct{})

	for v := 0; v < snap.ArenaLen(); v++ {
		if !snap.Alive(v) {
			continue
		}
		cv := scc.ComponentOf[v]
		for _, he := range snap.Out(v) {
			cw := scc.ComponentOf[he.Peer]
			if cv == cw {
				continue
			}
			key := [2]int{cv, cw}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			succs[cv] = append(succs[cv], cw)
			indegree[cw]++
		}
	}

	ready := &minIntHeap{}
	for c := 0; c < nc; c++ {
		if indegree[c] == 0 {
			*ready = append(*ready, c)
		}
	}
	heap.Init(ready)

	order := make([]OrderedComponent, 0, nc)
	for ready.Len() > 0 {
		c := heap.Pop(ready).(int)
		order = append(order, OrderedComponent{ID: c, Members: memberIDs(snap, scc.Components[c])})
		// Deterministic relaxation order.
		next := append([]int(nil), succs[c]...)
		sort.Ints(next)
		for _, w := range next {
			indegree[w]--
			if indegree[w] == 0 {
				heap.Push(ready, w)
			}
		}
	}

	return order, nil
}

func memberIDs(snap *graph.Snapshot, members []int) []string {
	ids := make([]string, 0, len(members))
	for _, v := range members {
		ids = append(ids, snap.IDOf(v))
	}
	return ids
}
