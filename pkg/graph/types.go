// Package graph provides the dependency graph store for DepGraph.
//
// The store tracks typed relationships between documentation artifacts
// (requirements, designs, tests, code) and is the single source of truth
// for the analysis layer. It is designed for graphs in the 10,000-100,000
// node range:
//   - Nodes are held in an arena and addressed by a dense integer index,
//     so cyclic relationships are plain data rather than pointer cycles.
//   - Adjacency is kept as per-node outgoing/incoming lists in insertion
//     order, giving O(1) successor and predecessor enumeration.
//   - Readers operate on immutable snapshots; writers never block readers
//     beyond the swap of a snapshot pointer.
//
// Example Usage:
//
//	store := graph.NewStore()
//	defer store.Close()
//
//	store.RegisterNode("REQ-1", graph.KindRequirement, nil)
//	store.RegisterNode("DES-1", graph.KindDesign, nil)
//	store.AddEdge("DES-1", "REQ-1", graph.RelDerivesFrom)
//
//	snap := store.Snapshot()
//	fmt.Printf("%d nodes, %d edges\n", snap.NodeCount(), snap.EdgeCount())
package graph

import "errors"

// Common errors. Callers branch with errors.Is.
var (
	ErrInvalidID     = errors.New("invalid node id")
	ErrDuplicateNode = errors.New("node id already registered")
	ErrNodeNotFound  = errors.New("node not found")
	ErrInvalidEdge   = errors.New("invalid edge: endpoint not found")
	ErrBatchActive   = errors.New("batch already active")
	ErrNoBatch       = errors.New("no active batch")
	ErrStoreClosed   = errors.New("store closed")
)

// Kind classifies a documentation artifact.
//
// The set below covers the standard artifact types; callers may use any
// other non-empty string for domain-specific kinds.
type Kind string

const (
	KindRequirement Kind = "requirement"
	KindDesign      Kind = "design"
	KindTest        Kind = "test"
	KindCode        Kind = "code"
	KindOther       Kind = "other"
)

// RelType classifies a directed relationship between two artifacts.
//
// The set below covers the standard relationship types; callers may use
// any other non-empty string. (source, target, kind) triples are unique:
// adding the same triple twice is a no-op.
type RelType string

const (
	RelDependsOn     RelType = "DEPENDS_ON"
	RelReferences    RelType = "REFERENCES"
	RelDerivesFrom   RelType = "DERIVES_FROM"
	RelConflictsWith RelType = "CONFLICTS_WITH"
)

// Direction selects which side of the adjacency to walk.
type Direction int

const (
	// Downstream follows outgoing edges (successors): "what does this
	// artifact point at".
	Downstream Direction = iota
	// Upstream follows incoming edges (predecessors): "what points at
	// this artifact". This is the direction used for change-impact
	// questions like "which tests break if REQ-1 changes".
	Upstream
)

// String returns "downstream" or "upstream".
func (d Direction) String() string {
	if d == Upstream {
		return "upstream"
	}
	return "downstream"
}

// ParseDirection converts a string to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "downstream":
		return Downstream, true
	case "upstream":
		return Upstream, true
	}
	return Downstream, false
}

// Node is the external view of a stored artifact.
//
// Version is a monotonic counter bumped on every metadata update; it is
// independent of the store-wide graph version. Metadata is an opaque
// key-value map owned by the caller and never interpreted by the engine.
type Node struct {
	ID       string            `json:"id"`
	Kind     Kind              `json:"kind"`
	Version  int64             `json:"version"`
	Metadata map[string]string `json:"metadata"`
}

// Edge is a directed, typed relationship between two nodes.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Kind   RelType `json:"kind"`
}

// HalfEdge is one adjacency entry: the peer's arena index plus the
// relationship type. The owning side (outgoing vs incoming) is implied by
// which list it lives in.
type HalfEdge struct {
	Peer int
	Kind RelType
}

// copyMetadata deep-copies a metadata map. Nil maps stay nil.
func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
