// Package analysis implements the graph algorithms DepGraph runs over
// store snapshots: strongly-connected-component detection, condensation
// topological ordering, change-impact traversal, shortest dependency
// paths, and the structural consistency report.
//
// Every algorithm here is non-recursive. Worklists are explicit slices of
// arena indices, so a 100,000-node chain costs O(V) heap memory and can
// never overflow the call stack.
package analysis

import (
	"errors"

	"github.com/docforge/depgraph/pkg/graph"
)

// ErrCyclicDependency is returned by strict topological ordering when the
// graph contains at least one cycle.
var ErrCyclicDependency = errors.New("cyclic dependency")

// SCCResult maps every live arena index to a strongly connected
// component.
//
// Components are emitted in reverse finishing order, which for Tarjan's
// algorithm is a reverse topological order of the condensation graph:
// if component A has an edge into component B, B appears before A.
// ComponentOf holds -1 for dead arena slots.
type SCCResult struct {
	ComponentOf []int
	Components  [][]int
}

// IsCyclic reports whether component c represents a cycle: more than one
// member, or a single member with a self-loop.
func (r *SCCResult) IsCyclic(snap *graph.Snapshot, c int) bool {
	members := r.Components[c]
	if len(members) > 1 {
		return true
	}
	v := members[0]
	for _, he := range snap.Out(v) {
		if he.Peer == v {
			return true
		}
	}
	return false
}

// CyclicComponents returns the ids of every cyclic component, in
// component emission order.
func (r *SCCResult) CyclicComponents(snap *graph.Snapshot) []int {
	var out []int
	for c := range r.Components {
		if r.IsCyclic(snap, c) {
			out = append(out, c)
		}
	}
	return out
}

// sccFrame is one entry of the explicit DFS stack: a node and a cursor
// into its outgoing adjacency list.
type sccFrame struct {
	v  int
	ei int
}

// StronglyConnectedComponents computes SCCs with an iterative Tarjan
// traversal.
//
// The recursive formulation overflows the call stack on long dependency
// chains (10,000+ nodes); this version replaces recursion with an
// explicit frame stack, bounding memory at O(V) regardless of depth.
//
// Determinism: unvisited roots are tried in ascending arena index order
// and adjacency is walked in insertion order, so output is stable for a
// given graph and mutation history.
func StronglyConnectedComponents(snap *graph.Snapshot) *SCCResult {
	n := snap.ArenaLen()

	const unvisited = -1
	index := make([]int, n)   // discovery order, or -1
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}

	result := &SCCResult{ComponentOf: make([]int, n)}
	for i := range result.ComponentOf {
		result.ComponentOf[i] = -1
	}

	next := 0
	tarjanStack := make([]int, 0, n)
	frames := make([]sccFrame, 0, 64)

	for root := 0; root < n; root++ {
		if !snap.Alive(root) || index[root] != unvisited {
			continue
		}

		frames = append(frames, sccFrame{v: root})
		for len(frames) > 0 {
			fr := &frames[len(frames)-1]
			v := fr.v

			if fr.ei == 0 {
				// First visit of v.
				index[v] = next
				lowlink[v] = next
				next++
				tarjanStack = append(tarjanStack, v)
				onStack[v] = true
			}

			out := snap.Out(v)
			advanced := false
			for fr.ei < len(out) {
				w := out[fr.ei].Peer
				fr.ei++
				if index[w] == unvisited {
					frames = append(frames, sccFrame{v: w})
					advanced = true
					break
				}
				if onStack[w] && index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
			if advanced {
				continue
			}

			// v is finished: pop its component if it is a root, then
			// propagate its lowlink to the parent frame.
			if lowlink[v] == index[v] {
				comp := len(result.Components)
				var members []int
				for {
					w := tarjanStack[len(tarjanStack)-1]
					tarjanStack = tarjanStack[:len(tarjanStack)-1]
					onStack[w] = false
					result.ComponentOf[w] = comp
					members = append(members, w)
					if w == v {
						break
					}
				}
				result.Components = append(result.Components, members)
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].v
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
		}
	}

	return result
}
