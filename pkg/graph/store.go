package graph

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// slot is one arena entry. Removed nodes leave a dead slot behind; dead
// slots are never reused implicitly, only reclaimed by Compact. This keeps
// arena indices stable for the lifetime of any cached analysis result.
type slot struct {
	id       string
	kind     Kind
	version  int64
	metadata map[string]string
	out      []HalfEdge
	in       []HalfEdge
	alive    bool
}

// Store is a thread-safe arena-indexed dependency graph.
//
// Concurrency model (single-writer, snapshot readers):
//   - All mutations take the exclusive write lock for their duration.
//   - All reads go through Snapshot(), which returns an immutable view.
//     The snapshot is materialized lazily after a mutation and reused by
//     every reader until the next mutation, so concurrent readers never
//     observe a partially-mutated graph and never block a writer.
//
// Versioning:
//   - graphVersion advances once per committed structural mutation (or
//     once per batch). It is embedded in analysis cache keys, so a bump
//     makes every previously cached result unreachable.
//   - mutationSeq advances on every applied mutation, including metadata
//     updates and intra-batch mutations. It only controls snapshot
//     staleness.
//
// Example:
//
//	store := graph.NewStore()
//	store.RegisterNode("REQ-1", graph.KindRequirement, nil)
//	store.RegisterNode("TST-1", graph.KindTest, nil)
//	store.AddEdge("TST-1", "REQ-1", graph.RelDependsOn)
//
//	succ, _ := store.Neighbors("TST-1", graph.Downstream)
//	fmt.Println(succ) // [REQ-1]
type Store struct {
	mu sync.Mutex

	slots []slot
	index map[string]int // id -> arena index, live nodes only

	nodeCount int
	edgeCount int

	graphVersion atomic.Uint64
	mutationSeq  atomic.Uint64

	snap atomic.Pointer[Snapshot]

	batch *batchState

	// onInvalidate is called once per committed mutation (or batch
	// commit) after graphVersion advances. The engine wires this to the
	// cache layer.
	onInvalidate func()

	verbose bool

	closed bool
}

// NewStore creates an empty Store ready for concurrent use.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// OnInvalidate registers the invalidation hook. Must be set before the
// store is shared; not safe to call concurrently with mutations.
func (s *Store) OnInvalidate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInvalidate = fn
}

// SetVerbose toggles commit-path logging.
func (s *Store) SetVerbose(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verbose = v
}

// Version returns the current committed graph version.
func (s *Store) Version() uint64 {
	return s.graphVersion.Load()
}

// Close marks the store closed. Subsequent mutations fail with
// ErrStoreClosed. Snapshots already taken remain valid.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// commitMutation finalizes a structural mutation applied under s.mu.
// Inside a batch the version bump and invalidation are deferred to
// CommitBatch; the mutation sequence always advances so snapshots go
// stale immediately.
func (s *Store) commitMutation() {
	s.mutationSeq.Add(1)
	if s.batch != nil {
		s.batch.dirty = true
		return
	}
	s.graphVersion.Add(1)
	if s.onInvalidate != nil {
		s.onInvalidate()
	}
}

// RegisterNode adds a new node and returns its arena index.
//
// Returns ErrDuplicateNode if the id is already registered and
// ErrStoreClosed after Close. The metadata map is deep-copied.
func (s *Store) RegisterNode(id string, kind Kind, metadata map[string]string) (int, error) {
	if id == "" {
		return -1, ErrInvalidID
	}
	if kind == "" {
		kind = KindOther
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return -1, ErrStoreClosed
	}
	if _, exists := s.index[id]; exists {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateNode, id)
	}

	idx := len(s.slots)
	s.slots = append(s.slots, slot{
		id:       id,
		kind:     kind,
		metadata: copyMetadata(metadata),
		alive:    true,
	})
	s.index[id] = idx
	s.nodeCount++

	s.recordUndo(undoOp{kind: undoUnregister, index: idx})
	s.commitMutation()
	return idx, nil
}

// RestoreNode registers a node with an explicit version, preserving the
// version counter across export/import. Same failure modes as
// RegisterNode.
func (s *Store) RestoreNode(n Node) (int, error) {
	idx, err := s.RegisterNode(n.ID, n.Kind, n.Metadata)
	if err != nil {
		return -1, err
	}
	s.mu.Lock()
	s.slots[idx].version = n.Version
	s.mutationSeq.Add(1)
	s.mu.Unlock()
	return idx, nil
}

// RemoveNode deletes a node and cascades removal of every edge that has
// it as source or target. Returns ErrNodeNotFound if absent.
//
// The arena slot stays dead (its index is not reused) until Compact.
func (s *Store) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	idx, exists := s.index[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	sl := &s.slots[idx]

	// Capture enough state to resurrect the node on batch rollback:
	// the slot itself plus the position of every half-edge the cascade
	// is about to delete from peer adjacency lists.
	undo := undoOp{
		kind:     undoRestoreNode,
		index:    idx,
		id:       sl.id,
		nodeKind: sl.kind,
		version:  sl.version,
		metadata: copyMetadata(sl.metadata),
		out:      append([]HalfEdge(nil), sl.out...),
		in:       append([]HalfEdge(nil), sl.in...),
	}

	// Cascade: drop the matching incoming entry on each successor and
	// the matching outgoing entry on each predecessor.
	for _, he := range sl.out {
		if he.Peer == idx {
			continue // self-loop, handled by the slot reset below
		}
		pos := findHalf(s.slots[he.Peer].in, idx, he.Kind)
		undo.peerIn = append(undo.peerIn, peerPos{peer: he.Peer, pos: pos, he: HalfEdge{Peer: idx, Kind: he.Kind}})
		s.slots[he.Peer].in = deleteHalf(s.slots[he.Peer].in, pos)
		s.edgeCount--
	}
	for _, he := range sl.in {
		if he.Peer == idx {
			s.edgeCount-- // self-loop counted once, on the incoming side
			continue
		}
		pos := findHalf(s.slots[he.Peer].out, idx, he.Kind)
		undo.peerOut = append(undo.peerOut, peerPos{peer: he.Peer, pos: pos, he: HalfEdge{Peer: idx, Kind: he.Kind}})
		s.slots[he.Peer].out = deleteHalf(s.slots[he.Peer].out, pos)
		s.edgeCount--
	}

	*sl = slot{} // dead slot
	delete(s.index, id)
	s.nodeCount--

	s.recordUndo(undo)
	s.commitMutation()
	return nil
}

// AddEdge adds a directed typed edge. Both endpoints must exist
// (ErrNodeNotFound otherwise). Adding an edge that already exists is a
// no-op: the existing edge is returned with added=false and no version
// bump occurs.
func (s *Store) AddEdge(source, target string, kind RelType) (Edge, bool, error) {
	if kind == "" {
		kind = RelReferences
	}
	edge := Edge{Source: source, Target: target, Kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return edge, false, ErrStoreClosed
	}
	si, ok := s.index[source]
	if !ok {
		return edge, false, fmt.Errorf("%w: source %q", ErrNodeNotFound, source)
	}
	ti, ok := s.index[target]
	if !ok {
		return edge, false, fmt.Errorf("%w: target %q", ErrNodeNotFound, target)
	}

	if findHalf(s.slots[si].out, ti, kind) >= 0 {
		return edge, false, nil // duplicate triple
	}

	s.slots[si].out = append(s.slots[si].out, HalfEdge{Peer: ti, Kind: kind})
	s.slots[ti].in = append(s.slots[ti].in, HalfEdge{Peer: si, Kind: kind})
	s.edgeCount++

	s.recordUndo(undoOp{kind: undoUnlink, source: si, target: ti, relKind: kind})
	s.commitMutation()
	return edge, true, nil
}

// RemoveEdge deletes the (source, target, kind) edge if present. Removing
// an absent edge is a no-op returning false; unknown endpoints are also
// treated as absence rather than an error.
func (s *Store) RemoveEdge(source, target string, kind RelType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	si, ok := s.index[source]
	if !ok {
		return false
	}
	ti, ok := s.index[target]
	if !ok {
		return false
	}

	outPos := findHalf(s.slots[si].out, ti, kind)
	if outPos < 0 {
		return false
	}
	inPos := findHalf(s.slots[ti].in, si, kind)

	s.slots[si].out = deleteHalf(s.slots[si].out, outPos)
	s.slots[ti].in = deleteHalf(s.slots[ti].in, inPos)
	s.edgeCount--

	s.recordUndo(undoOp{kind: undoRelink, source: si, target: ti, relKind: kind, outPos: outPos, inPos: inPos})
	s.commitMutation()
	return true
}

// UpdateMetadata replaces a node's metadata map and bumps its version.
//
// This is a metadata-only change: the node version advances but the graph
// version does not, so cached analysis results stay valid. Snapshots
// taken after the call do observe the new metadata.
func (s *Store) UpdateMetadata(id string, metadata map[string]string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	idx, exists := s.index[id]
	if !exists {
		return 0, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	sl := &s.slots[idx]
	s.recordUndo(undoOp{kind: undoMetadata, index: idx, version: sl.version, metadata: sl.metadata})
	sl.metadata = copyMetadata(metadata)
	sl.version++

	// Metadata changes never invalidate structural caches; only the
	// snapshot goes stale. Inside a batch, batch.dirty stays untouched:
	// no graphVersion bump is owed at commit.
	s.mutationSeq.Add(1)
	return sl.version, nil
}

// Node returns the external view of a node.
func (s *Store) Node(id string) (Node, error) {
	snap := s.Snapshot()
	idx, ok := snap.IndexOf(id)
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	return snap.NodeAt(idx), nil
}

// Neighbors returns the ids of a node's successors (Downstream) or
// predecessors (Upstream) in edge insertion order.
func (s *Store) Neighbors(id string, dir Direction) ([]string, error) {
	snap := s.Snapshot()
	idx, ok := snap.IndexOf(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}
	var halves []HalfEdge
	if dir == Upstream {
		halves = snap.In(idx)
	} else {
		halves = snap.Out(idx)
	}
	ids := make([]string, 0, len(halves))
	for _, he := range halves {
		ids = append(ids, snap.IDOf(he.Peer))
	}
	return ids, nil
}

// Compact rebuilds the arena without dead slots, reassigning dense
// indices to the surviving nodes in their current index order.
//
// Dead slots accumulate as nodes are removed; compaction is the only way
// their indices are ever reused. Because indices shift, Compact bumps the
// graph version so every cached analysis result is retired.
//
// Compact fails with ErrBatchActive inside a batch: the batch undo log
// records arena indices.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.batch != nil {
		return ErrBatchActive
	}

	remap := make([]int, len(s.slots))
	packed := make([]slot, 0, s.nodeCount)
	for i := range s.slots {
		if !s.slots[i].alive {
			remap[i] = -1
			continue
		}
		remap[i] = len(packed)
		packed = append(packed, s.slots[i])
	}
	for i := range packed {
		for j := range packed[i].out {
			packed[i].out[j].Peer = remap[packed[i].out[j].Peer]
		}
		for j := range packed[i].in {
			packed[i].in[j].Peer = remap[packed[i].in[j].Peer]
		}
		s.index[packed[i].id] = i
	}
	s.slots = packed

	s.commitMutation()
	return nil
}

// findHalf returns the position of (peer, kind) in a half-edge list, or -1.
func findHalf(list []HalfEdge, peer int, kind RelType) int {
	for i, he := range list {
		if he.Peer == peer && he.Kind == kind {
			return i
		}
	}
	return -1
}

// deleteHalf removes position i preserving insertion order.
func deleteHalf(list []HalfEdge, i int) []HalfEdge {
	if i < 0 || i >= len(list) {
		return list
	}
	return append(list[:i], list[i+1:]...)
}

// insertHalf inserts he at position i preserving order.
func insertHalf(list []HalfEdge, i int, he HalfEdge) []HalfEdge {
	if i < 0 || i > len(list) {
		i = len(list)
	}
	list = append(list, HalfEdge{})
	copy(list[i+1:], list[i:])
	list[i] = he
	return list
}
