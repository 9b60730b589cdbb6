// Package engine is the DepGraph facade: one object wiring the graph
// store, the analysis algorithms, the result caches, and the optional
// document registry behind the operations callers actually use.
//
// Query results are cached per graph version. The engine wires the
// store's invalidation hook to the cache layer, so every committed
// mutation (or batch commit) purges stale results exactly once.
//
// Example Usage:
//
//	eng := engine.New(config.LoadFromEnv())
//	defer eng.Close()
//
//	eng.RegisterNode("REQ-1", graph.KindRequirement, nil)
//	eng.RegisterNode("TST-1", graph.KindTest, nil)
//	eng.AddEdge("TST-1", "REQ-1", graph.RelDependsOn)
//
//	res, _ := eng.Impact(context.Background(), "REQ-1", graph.Upstream, 0)
//	fmt.Println(res.Nodes) // map[TST-1:1]
package engine

import (
	"context"
	"log"
	"strconv"

	"github.com/docforge/depgraph/pkg/analysis"
	"github.com/docforge/depgraph/pkg/cache"
	"github.com/docforge/depgraph/pkg/config"
	"github.com/docforge/depgraph/pkg/graph"
	"github.com/docforge/depgraph/pkg/pool"
	"github.com/docforge/depgraph/pkg/registry"
	"github.com/docforge/depgraph/pkg/serialize"
)

// Engine exposes the full dependency analysis surface over one graph.
type Engine struct {
	cfg      *config.Config
	store    *graph.Store
	caches   *cache.Layer
	analyzer *analysis.Analyzer
	reg      registry.Registry
}

// New creates an engine with an empty graph.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.LoadFromEnv()
	}
	return wrap(cfg, graph.NewStore())
}

// Import parses a canonical JSON payload and builds an engine around the
// rebuilt graph. Fails with serialize.ErrImportSchema on malformed or
// invariant-violating payloads.
func Import(cfg *config.Config, data []byte) (*Engine, error) {
	if cfg == nil {
		cfg = config.LoadFromEnv()
	}
	store, err := serialize.Import(data)
	if err != nil {
		return nil, err
	}
	return wrap(cfg, store), nil
}

func wrap(cfg *config.Config, store *graph.Store) *Engine {
	pool.Configure(pool.Config{Enabled: cfg.Pool.Enabled, MaxCap: cfg.Pool.MaxCap})

	sizing := func(size int) cache.Sizing {
		return cache.Sizing{MaxSize: size, TTL: cfg.Cache.TTL}
	}
	layer := cache.NewLayer(cache.LayerConfig{
		Paths:  sizing(cfg.Cache.PathsSize),
		SCCs:   sizing(cfg.Cache.SCCsSize),
		Topo:   sizing(cfg.Cache.TopoSize),
		Impact: sizing(cfg.Cache.ImpactSize),
	})
	store.OnInvalidate(layer.Invalidate)
	store.SetVerbose(cfg.Verbose)

	return &Engine{
		cfg:    cfg,
		store:  store,
		caches: layer,
		analyzer: &analysis.Analyzer{
			Workers:           cfg.Impact.Workers,
			ParallelThreshold: cfg.Impact.ParallelThreshold,
		},
	}
}

// UseRegistry attaches the document registry used for defensive kind
// validation at registration time. Must be set before the engine is
// shared.
func (e *Engine) UseRegistry(reg registry.Registry) {
	e.reg = reg
}

// Store exposes the underlying graph store.
func (e *Engine) Store() *graph.Store { return e.store }

// Caches exposes the cache layer, mainly for statistics.
func (e *Engine) Caches() *cache.Layer { return e.caches }

// Close releases the engine. Snapshots already handed out stay valid.
func (e *Engine) Close() error {
	return e.store.Close()
}

// RegisterNode adds a document node.
//
// When a registry is attached the id is looked up and a kind mismatch is
// logged as a warning. The engine trusts its caller over the registry;
// the mismatch never rejects the registration.
func (e *Engine) RegisterNode(id string, kind graph.Kind, metadata map[string]string) (int, error) {
	if e.reg != nil {
		if regKind, ok := e.reg.Lookup(id); !ok {
			log.Printf("[engine] registering %q: unknown to document registry", id)
		} else if regKind != kind && kind != "" {
			log.Printf("[engine] registering %q as %s: registry says %s", id, kind, regKind)
		}
	}
	return e.store.RegisterNode(id, kind, metadata)
}

// RemoveNode deletes a node, cascading edge removal.
func (e *Engine) RemoveNode(id string) error {
	return e.store.RemoveNode(id)
}

// AddEdge adds a typed dependency edge.
func (e *Engine) AddEdge(source, target string, kind graph.RelType) (graph.Edge, bool, error) {
	return e.store.AddEdge(source, target, kind)
}

// RemoveEdge deletes an edge; absent edges are a no-op.
func (e *Engine) RemoveEdge(source, target string, kind graph.RelType) bool {
	return e.store.RemoveEdge(source, target, kind)
}

// UpdateMetadata replaces a node's metadata, bumping only its own
// version. Cached analysis results stay valid.
func (e *Engine) UpdateMetadata(id string, metadata map[string]string) (int64, error) {
	return e.store.UpdateMetadata(id, metadata)
}

// Node returns one node's external view.
func (e *Engine) Node(id string) (graph.Node, error) {
	return e.store.Node(id)
}

// Neighbors lists direct successors or predecessors in insertion order.
func (e *Engine) Neighbors(id string, dir graph.Direction) ([]string, error) {
	return e.store.Neighbors(id, dir)
}

// BeginBatch starts a batch session.
func (e *Engine) BeginBatch() (string, error) { return e.store.BeginBatch() }

// CommitBatch commits the batch: one version bump, one invalidation.
func (e *Engine) CommitBatch() error { return e.store.CommitBatch() }

// RollbackBatch restores the pre-batch graph.
func (e *Engine) RollbackBatch() error { return e.store.RollbackBatch() }

// Compact reclaims dead arena slots.
func (e *Engine) Compact() error { return e.store.Compact() }

// SCCs returns the strongly connected components of the current graph,
// cached per graph version.
func (e *Engine) SCCs() *analysis.SCCResult {
	return e.sccFor(e.store.Snapshot())
}

// TopologicalOrder returns the condensation order, cached per graph
// version. With strict=true a cyclic graph fails with
// analysis.ErrCyclicDependency naming one representative cycle.
func (e *Engine) TopologicalOrder(strict bool) ([]analysis.OrderedComponent, error) {
	snap := e.store.Snapshot()
	useCache := e.cacheable()
	key := cache.Key(snap.Version(), "topo", strconv.FormatBool(strict))
	if useCache {
		if order, ok := e.caches.Topo.Get(key); ok {
			return order, nil
		}
	}

	scc := e.sccFor(snap)
	order, err := analysis.TopologicalOrder(snap, scc, strict)
	if err != nil {
		return nil, err
	}
	if useCache {
		e.caches.Topo.Put(key, order)
	}
	return order, nil
}

// Impact returns the transitive impact set of id, cached per graph
// version. maxDepth <= 0 means unbounded.
//
// The deadline comes from ctx, or from the configured default timeout
// when ctx carries none. Truncated results are returned to the caller
// but never cached: a later call with more time budget should get the
// chance to finish.
func (e *Engine) Impact(ctx context.Context, id string, dir graph.Direction, maxDepth int) (analysis.ImpactResult, error) {
	snap := e.store.Snapshot()
	useCache := e.cacheable()
	key := cache.Key(snap.Version(), "impact", id, dir.String(), strconv.Itoa(maxDepth))
	if useCache {
		if res, ok := e.caches.Impact.Get(key); ok {
			return res, nil
		}
	}

	if _, has := ctx.Deadline(); !has && e.cfg.Impact.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Impact.Timeout)
		defer cancel()
	}

	res, err := e.analyzer.Impact(ctx, snap, id, dir, maxDepth)
	if err != nil {
		return res, err
	}
	if useCache && !res.Truncated {
		e.caches.Impact.Put(key, res)
	}
	return res, nil
}

// ShortestPath returns one shortest dependency path between two nodes,
// cached per graph version. A nil path means unreachable.
func (e *Engine) ShortestPath(from, to string, dir graph.Direction) ([]string, error) {
	snap := e.store.Snapshot()
	useCache := e.cacheable()
	key := cache.Key(snap.Version(), "path", from, to, dir.String())
	if useCache {
		if path, ok := e.caches.Paths.Get(key); ok {
			return path, nil
		}
	}
	path, err := analysis.ShortestPath(snap, from, to, dir)
	if err != nil {
		return nil, err
	}
	if useCache {
		e.caches.Paths.Put(key, path)
	}
	return path, nil
}

// ConsistencyReport runs cycle detection plus structural validation.
func (e *Engine) ConsistencyReport() *analysis.Report {
	return analysis.CheckConsistency(e.store.Snapshot())
}

// Export serializes the current graph into canonical JSON.
func (e *Engine) Export() ([]byte, error) {
	return serialize.Export(e.store.Snapshot())
}

// cacheable reports whether query results may go through the version
// keyed caches. Inside a batch the structure diverges from the
// committed graph version: a result computed now would poison the
// pre-batch key, and a warm pre-batch entry would hide buffered
// mutations from intra-batch queries. Both directions are wrong, so
// batches compute fresh.
func (e *Engine) cacheable() bool {
	return !e.store.BatchActive()
}

// sccFor returns the (possibly cached) SCC result for snap.
func (e *Engine) sccFor(snap *graph.Snapshot) *analysis.SCCResult {
	useCache := e.cacheable()
	key := cache.Key(snap.Version(), "scc")
	if useCache {
		if res, ok := e.caches.SCCs.Get(key); ok {
			return res
		}
	}
	res := analysis.StronglyConnectedComponents(snap)
	if useCache {
		e.caches.SCCs.Put(key, res)
	}
	return res
}

// Stats summarizes the engine state.
type Stats struct {
	Nodes        int                    `json:"nodes"`
	Edges        int                    `json:"edges"`
	GraphVersion uint64                 `json:"graphVersion"`
	Caches       map[string]cache.Stats `json:"caches"`
}

// Stats returns node/edge counts, the graph version, and per-cache hit
// statistics.
func (e *Engine) Stats() Stats {
	snap := e.store.Snapshot()
	return Stats{
		Nodes:        snap.NodeCount(),
		Edges:        snap.EdgeCount(),
		GraphVersion: snap.Version(),
		Caches:       e.caches.Stats(),
	}
}
