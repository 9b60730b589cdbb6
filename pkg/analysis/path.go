package analysis

import (
	"fmt"

	"github.com/docforge/depgraph/pkg/graph"
	"github.com/docforge/depgraph/pkg/pool"
)

// ShortestPath returns one shortest dependency path between two nodes as
// a list of node ids, endpoints included. Direction selects which
// adjacency is followed from the source. Edges are unweighted, so BFS
// distance is path length.
//
// A nil path with a nil error means the target is unreachable. When
// several shortest paths exist the one found first in adjacency
// insertion order wins, so output is deterministic.
func ShortestPath(snap *graph.Snapshot, from, to string, dir graph.Direction) ([]string, error) {
	src, ok := snap.IndexOf(from)
	if !ok {
		return nil, fmt.Errorf("%w: %q", graph.ErrNodeNotFound, from)
	}
	dst, ok := snap.IndexOf(to)
	if !ok {
		return nil, fmt.Errorf("%w: %q", graph.ErrNodeNotFound, to)
	}
	if src == dst {
		return []string{from}, nil
	}

	parent := make([]int, snap.ArenaLen())
	for i := range parent {
		parent[i] = -1
	}
	parent[src] = src

	frontier := pool.GetIndexSlice()
	defer func() { pool.PutIndexSlice(frontier) }()
	frontier = append(frontier, src)

	for len(frontier) > 0 {
		next := pool.GetIndexSlice()
		for _, v := range frontier {
			for _, he := range adjacency(snap, v, dir) {
				if parent[he.Peer] != -1 {
					continue
				}
				parent[he.Peer] = v
				if he.Peer == dst {
					pool.PutIndexSlice(next)
					return buildPath(snap, parent, src, dst), nil
				}
				next = append(next, he.Peer)
			}
		}
		pool.PutIndexSlice(frontier)
		frontier = next
	}

	return nil, nil
}

// buildPath walks parent pointers backwards from dst and reverses.
func buildPath(snap *graph.Snapshot, parent []int, src, dst int) []string {
	var rev []int
	for v := dst; v != src; v = parent[v] {
		rev = append(rev, v)
	}
	rev = append(rev, src)

	path := make([]string, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = snap.IDOf(v)
	}
	return path
}
