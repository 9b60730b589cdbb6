package analysis

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docforge/depgraph/pkg/graph"
	"github.com/docforge/depgraph/pkg/pool"
)

// Default analyzer tuning. Parallel frontier expansion only pays off
// once the graph is large enough to amortize goroutine handoff.
const (
	DefaultWorkers           = 4
	DefaultParallelThreshold = 1000
)

// ImpactResult is the transitive impact set of one node.
//
// Nodes maps every reached node id to its BFS depth from the origin
// (origin excluded, depths start at 1). Truncated is set when the
// traversal stopped early because the caller's deadline expired; the
// map then holds every node discovered before the cutoff. A truncated
// result is a valid partial answer, not an error.
type ImpactResult struct {
	Origin    string          `json:"origin"`
	Direction graph.Direction `json:"direction"`
	Nodes     map[string]int  `json:"nodes"`
	Truncated bool            `json:"truncated"`
}

// Analyzer computes transitive impact sets with a level-synchronous BFS:
// the full frontier at depth d is expanded before depth d+1 begins.
//
// On graphs above ParallelThreshold nodes each level is split across
// Workers goroutines; discovered nodes are claimed in a shared
// lock-guarded visited set so no node is reported twice. Smaller graphs
// run single-threaded to avoid the pool overhead.
type Analyzer struct {
	Workers           int
	ParallelThreshold int
}

// NewAnalyzer returns an Analyzer with default tuning.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Workers:           DefaultWorkers,
		ParallelThreshold: DefaultParallelThreshold,
	}
}

// Impact walks the graph from id in the given direction and returns
// every transitively reached node with its distance.
//
// maxDepth <= 0 means unbounded. Deadline handling is cooperative:
// when ctx expires the walk stops at the current level and the partial
// result is returned with Truncated=true and a nil error. The only
// error case is an unknown origin id.
func (a *Analyzer) Impact(ctx context.Context, snap *graph.Snapshot, id string, dir graph.Direction, maxDepth int) (ImpactResult, error) {
	start, ok := snap.IndexOf(id)
	if !ok {
		return ImpactResult{}, fmt.Errorf("%w: %q", graph.ErrNodeNotFound, id)
	}

	res := ImpactResult{
		Origin:    id,
		Direction: dir,
		Nodes:     make(map[string]int),
	}

	visited := make([]bool, snap.ArenaLen())
	visited[start] = true

	frontier := pool.GetIndexSlice()
	defer func() { pool.PutIndexSlice(frontier) }()
	frontier = append(frontier, start)

	parallel := a.useParallel(snap.NodeCount())

	for depth := 1; len(frontier) > 0; depth++ {
		if maxDepth > 0 && depth > maxDepth {
			break
		}
		if ctx.Err() != nil {
			res.Truncated = true
			return res, nil
		}

		var (
			next []int
			err  error
		)
		if parallel && len(frontier) > 1 {
			next, err = a.expandParallel(ctx, snap, dir, frontier, visited)
		} else {
			next = expandSerial(snap, dir, frontier, visited)
		}
		for _, w := range next {
			res.Nodes[snap.IDOf(w)] = depth
		}
		pool.PutIndexSlice(frontier)
		frontier = next
		if err != nil {
			// Deadline expired mid-level. The claimed portion of this
			// level is already in the result; report it as partial.
			res.Truncated = true
			return res, nil
		}
	}

	return res, nil
}

// useParallel reports whether levels should expand across the worker
// pool. The gate is strict: a graph of exactly ParallelThreshold nodes
// still runs serial.
func (a *Analyzer) useParallel(nodeCount int) bool {
	return a.Workers > 1 && nodeCount > a.ParallelThreshold
}

// expandSerial expands one frontier level single-threaded.
func expandSerial(snap *graph.Snapshot, dir graph.Direction, frontier []int, visited []bool) []int {
	next := pool.GetIndexSlice()
	for _, v := range frontier {
		for _, he := range adjacency(snap, v, dir) {
			if !visited[he.Peer] {
				visited[he.Peer] = true
				next = append(next, he.Peer)
			}
		}
	}
	return next
}

// expandParallel splits one frontier level across the worker pool.
// Workers claim peers in the shared visited set under mu and collect
// local slices that are concatenated afterwards, so the mutex is the
// only cross-worker coordination point.
func (a *Analyzer) expandParallel(ctx context.Context, snap *graph.Snapshot, dir graph.Direction, frontier []int, visited []bool) ([]int, error) {
	workers := a.Workers
	if workers > len(frontier) {
		workers = len(frontier)
	}

	var mu sync.Mutex
	locals := make([][]int, workers)

	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(frontier) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(frontier) {
			hi = len(frontier)
		}
		w := w
		part := frontier[lo:hi]
		g.Go(func() error {
			local := pool.GetIndexSlice()
			for _, v := range part {
				if gctx.Err() != nil {
					locals[w] = local
					return gctx.Err()
				}
				for _, he := range adjacency(snap, v, dir) {
					mu.Lock()
					claimed := !visited[he.Peer]
					if claimed {
						visited[he.Peer] = true
					}
					mu.Unlock()
					if claimed {
						local = append(local, he.Peer)
					}
				}
			}
			locals[w] = local
			return nil
		})
	}
	err := g.Wait()

	next := pool.GetIndexSlice()
	for _, local := range locals {
		if local == nil {
			continue
		}
		next = append(next, local...)
		pool.PutIndexSlice(local)
	}
	return next, err
}

func adjacency(snap *graph.Snapshot, v int, dir graph.Direction) []graph.HalfEdge {
	if dir == graph.Upstream {
		return snap.In(v)
	}
	return snap.Out(v)
}
