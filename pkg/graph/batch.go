// Batch mode groups a sequence of mutations into a single effective
// graph version bump.
//
// Mutations inside a batch apply to the live arena immediately, so
// intra-batch queries observe them through fresh snapshots. What is
// deferred is the expensive part: the graph version advances (and cache
// invalidation fires) exactly once, at commit. Rollback replays the
// recorded inverse operations to restore the pre-batch state with no
// version change at all.
//
// Usage:
//
//	id, _ := store.BeginBatch()
//	for _, e := range edges {
//		store.AddEdge(e.Source, e.Target, e.Kind) // no invalidation yet
//	}
//	store.CommitBatch() // one version bump, one invalidation
//
// Nesting is not supported: BeginBatch while a batch is active fails
// with ErrBatchActive.

package graph

import (
	"log"

	"github.com/google/uuid"
)

type undoKind int

const (
	undoUnregister  undoKind = iota // drop a node added in the batch
	undoRestoreNode                 // resurrect a node removed in the batch
	undoUnlink                      // drop an edge added in the batch
	undoRelink                      // restore an edge removed in the batch
	undoMetadata                    // restore prior metadata and version
)

// peerPos remembers where a cascaded half-edge sat in a peer's adjacency
// list, so rollback can reinsert it at the same position.
type peerPos struct {
	peer int
	pos  int
	he   HalfEdge
}

// undoOp is one inverse operation. Fields are populated per kind.
type undoOp struct {
	kind  undoKind
	index int

	// node restoration
	id       string
	nodeKind Kind
	version  int64
	metadata map[string]string
	out, in  []HalfEdge
	peerOut  []peerPos
	peerIn   []peerPos

	// edge operations
	source, target int
	relKind        RelType
	outPos, inPos  int
}

type batchState struct {
	id    string
	undo  []undoOp
	dirty bool // a structural mutation happened; commit owes a version bump
}

// recordUndo appends an inverse operation when a batch is active.
// Caller must hold s.mu.
func (s *Store) recordUndo(op undoOp) {
	if s.batch != nil {
		s.batch.undo = append(s.batch.undo, op)
	}
}

// BeginBatch switches the store into batch mode and returns the batch
// session id. Fails with ErrBatchActive if a batch is already open.
func (s *Store) BeginBatch() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}
	if s.batch != nil {
		return "", ErrBatchActive
	}
	s.batch = &batchState{id: uuid.NewString()}
	return s.batch.id, nil
}

// BatchActive reports whether a batch is open.
func (s *Store) BatchActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch != nil
}

// CommitBatch closes the batch, advancing the graph version once (if any
// structural mutation happened) and firing a single invalidation.
func (s *Store) CommitBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.batch == nil {
		return ErrNoBatch
	}

	dirty := s.batch.dirty
	ops := len(s.batch.undo)
	id := s.batch.id
	s.batch = nil

	if dirty {
		s.graphVersion.Add(1)
		if s.onInvalidate != nil {
			s.onInvalidate()
		}
	}
	if s.verbose {
		log.Printf("[batch %s] committed %d operations (version %d)", id, ops, s.graphVersion.Load())
	}
	return nil
}

// RollbackBatch discards the batch by replaying inverse operations in
// reverse, restoring the exact pre-batch structure. The graph version is
// untouched; the mutation sequence advances so readers drop any snapshot
// taken mid-batch.
func (s *Store) RollbackBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if s.batch == nil {
		return ErrNoBatch
	}

	undo := s.batch.undo
	for i := len(undo) - 1; i >= 0; i-- {
		s.applyUndo(&undo[i])
	}
	s.batch = nil
	s.mutationSeq.Add(1)
	return nil
}

// applyUndo reverses one recorded operation. Caller must hold s.mu.
// Operations are replayed newest-first, so every positional assumption
// recorded at mutation time still holds when its undo runs.
func (s *Store) applyUndo(op *undoOp) {
	switch op.kind {
	case undoUnregister:
		delete(s.index, s.slots[op.index].id)
		if op.index == len(s.slots)-1 {
			s.slots = s.slots[:op.index]
		} else {
			s.slots[op.index] = slot{}
		}
		s.nodeCount--

	case undoRestoreNode:
		s.slots[op.index] = slot{
			id:       op.id,
			kind:     op.nodeKind,
			version:  op.version,
			metadata: op.metadata,
			out:      op.out,
			in:       op.in,
			alive:    true,
		}
		s.index[op.id] = op.index
		s.nodeCount++
		for _, pp := range op.peerIn {
			s.slots[pp.peer].in = insertHalf(s.slots[pp.peer].in, pp.pos, pp.he)
			s.edgeCount++
		}
		for _, pp := range op.peerOut {
			s.slots[pp.peer].out = insertHalf(s.slots[pp.peer].out, pp.pos, pp.he)
			s.edgeCount++
		}
		// Self-loops ride along inside op.out/op.in.
		for _, he := range op.in {
			if he.Peer == op.index {
				s.edgeCount++
			}
		}

	case undoUnlink:
		s.slots[op.source].out = deleteHalf(s.slots[op.source].out, findHalf(s.slots[op.source].out, op.target, op.relKind))
		s.slots[op.target].in = deleteHalf(s.slots[op.target].in, findHalf(s.slots[op.target].in, op.source, op.relKind))
		s.edgeCount--

	case undoRelink:
		s.slots[op.source].out = insertHalf(s.slots[op.source].out, op.outPos, HalfEdge{Peer: op.target, Kind: op.relKind})
		s.slots[op.target].in = insertHalf(s.slots[op.target].in, op.inPos, HalfEdge{Peer: op.source, Kind: op.relKind})
		s.edgeCount++

	case undoMetadata:
		sl := &s.slots[op.index]
		sl.metadata = op.metadata
		sl.version = op.version
	}
}
