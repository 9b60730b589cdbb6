package graph

// Snapshot is an immutable point-in-time view of the graph.
//
// A snapshot is materialized lazily: the first reader after a mutation
// pays the O(V+E) copy, and every subsequent reader shares the same view
// until the next mutation. Analysis code iterates arena indices directly,
// so a snapshot is also the unit that pins index meaning against a
// concurrent Compact.
//
// All methods are safe for concurrent use; nothing in a snapshot is ever
// written after construction.
type Snapshot struct {
	version uint64 // committed graph version at capture
	seq     uint64 // mutation sequence at capture

	slots []slot
	index map[string]int

	nodeCount int
	edgeCount int
}

// Snapshot returns the current immutable view, building one only if a
// mutation occurred since the last build.
func (s *Store) Snapshot() *Snapshot {
	seq := s.mutationSeq.Load()
	if snap := s.snap.Load(); snap != nil && snap.seq == seq {
		return snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the lock: another reader may have built it.
	seq = s.mutationSeq.Load()
	if snap := s.snap.Load(); snap != nil && snap.seq == seq {
		return snap
	}

	snap := &Snapshot{
		version:   s.graphVersion.Load(),
		seq:       seq,
		slots:     make([]slot, len(s.slots)),
		index:     make(map[string]int, len(s.index)),
		nodeCount: s.nodeCount,
		edgeCount: s.edgeCount,
	}
	for i := range s.slots {
		src := &s.slots[i]
		snap.slots[i] = slot{
			id:       src.id,
			kind:     src.kind,
			version:  src.version,
			metadata: copyMetadata(src.metadata),
			out:      append([]HalfEdge(nil), src.out...),
			in:       append([]HalfEdge(nil), src.in...),
			alive:    src.alive,
		}
	}
	for id, idx := range s.index {
		snap.index[id] = idx
	}

	s.snap.Store(snap)
	return snap
}

// Version returns the committed graph version this snapshot observed.
func (sn *Snapshot) Version() uint64 { return sn.version }

// NodeCount returns the number of live nodes.
func (sn *Snapshot) NodeCount() int { return sn.nodeCount }

// EdgeCount returns the number of edges.
func (sn *Snapshot) EdgeCount() int { return sn.edgeCount }

// ArenaLen returns the arena size including dead slots. Analysis code
// sizes its index-keyed worklists with this.
func (sn *Snapshot) ArenaLen() int { return len(sn.slots) }

// Alive reports whether arena index i holds a live node.
func (sn *Snapshot) Alive(i int) bool {
	return i >= 0 && i < len(sn.slots) && sn.slots[i].alive
}

// IndexOf resolves an id to its arena index.
func (sn *Snapshot) IndexOf(id string) (int, bool) {
	idx, ok := sn.index[id]
	return idx, ok
}

// IDOf returns the id at arena index i, or "" for a dead slot.
func (sn *Snapshot) IDOf(i int) string {
	if !sn.Alive(i) {
		return ""
	}
	return sn.slots[i].id
}

// KindOf returns the kind at arena index i.
func (sn *Snapshot) KindOf(i int) Kind {
	if !sn.Alive(i) {
		return ""
	}
	return sn.slots[i].kind
}

// Out returns the outgoing half-edges of arena index i in insertion
// order. The returned slice must not be modified.
func (sn *Snapshot) Out(i int) []HalfEdge {
	if !sn.Alive(i) {
		return nil
	}
	return sn.slots[i].out
}

// In returns the incoming half-edges of arena index i in insertion
// order. The returned slice must not be modified.
func (sn *Snapshot) In(i int) []HalfEdge {
	if !sn.Alive(i) {
		return nil
	}
	return sn.slots[i].in
}

// NodeAt returns the external view of the node at arena index i.
func (sn *Snapshot) NodeAt(i int) Node {
	sl := &sn.slots[i]
	return Node{
		ID:       sl.id,
		Kind:     sl.kind,
		Version:  sl.version,
		Metadata: copyMetadata(sl.metadata),
	}
}

// Nodes returns the external view of every live node in ascending arena
// index order (registration order between compactions).
func (sn *Snapshot) Nodes() []Node {
	nodes := make([]Node, 0, sn.nodeCount)
	for i := range sn.slots {
		if sn.slots[i].alive {
			nodes = append(nodes, sn.NodeAt(i))
		}
	}
	return nodes
}

// Edges returns every edge, grouped by source in ascending arena index
// order, each group in insertion order.
func (sn *Snapshot) Edges() []Edge {
	edges := make([]Edge, 0, sn.edgeCount)
	for i := range sn.slots {
		if !sn.slots[i].alive {
			continue
		}
		for _, he := range sn.slots[i].out {
			edges = append(edges, Edge{
				Source: sn.slots[i].id,
				Target: sn.slots[he.Peer].id,
				Kind:   he.Kind,
			})
		}
	}
	return edges
}

// HasEdge reports whether the (source, target, kind) triple exists.
func (sn *Snapshot) HasEdge(source, target string, kind RelType) bool {
	si, ok := sn.index[source]
	if !ok {
		return false
	}
	ti, ok := sn.index[target]
	if !ok {
		return false
	}
	return findHalf(sn.slots[si].out, ti, kind) >= 0
}
