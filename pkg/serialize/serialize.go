// Package serialize converts dependency graphs to and from their
// canonical JSON wire form.
//
// Export output is deterministic: nodes sorted by id, edges sorted by
// (source, target, kind), fixed field order. Two exports of structurally
// equal graphs are byte-identical, which makes the format diff-friendly
// and safe to commit next to the documents it describes.
//
// Import is paranoid by design. It rebuilds a fresh store through the
// normal mutation path and re-validates every structural invariant, so a
// hand-edited or corrupted payload is rejected with ErrImportSchema
// instead of producing a store that violates its own guarantees.
package serialize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/docforge/depgraph/pkg/graph"
)

// ErrImportSchema is returned when an import payload is malformed or
// violates a graph invariant.
var ErrImportSchema = errors.New("import schema violation")

// Document is the wire form of a graph.
type Document struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// Export serializes a snapshot into canonical JSON.
func Export(snap *graph.Snapshot) ([]byte, error) {
	doc := Document{
		Nodes: snap.Nodes(),
		Edges: snap.Edges(),
	}
	if doc.Nodes == nil {
		doc.Nodes = []graph.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []graph.Edge{}
	}

	sort.Slice(doc.Nodes, func(i, j int) bool {
		return doc.Nodes[i].ID < doc.Nodes[j].ID
	})
	sort.Slice(doc.Edges, func(i, j int) bool {
		a, b := doc.Edges[i], doc.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Kind < b.Kind
	})

	return json.MarshalIndent(doc, "", "  ")
}

// Import parses a payload and rebuilds a fresh store.
//
// Every failure wraps ErrImportSchema: malformed JSON, unknown fields,
// empty or duplicate node ids, negative versions, empty kinds, and
// edges referencing nodes absent from the payload.
func Import(data []byte) (*graph.Store, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportSchema, err)
	}

	store := graph.NewStore()
	for i, n := range doc.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node %d has empty id", ErrImportSchema, i)
		}
		if n.Kind == "" {
			return nil, fmt.Errorf("%w: node %q has empty kind", ErrImportSchema, n.ID)
		}
		if n.Version < 0 {
			return nil, fmt.Errorf("%w: node %q has negative version %d", ErrImportSchema, n.ID, n.Version)
		}
		if _, err := store.RestoreNode(n); err != nil {
			if errors.Is(err, graph.ErrDuplicateNode) {
				return nil, fmt.Errorf("%w: duplicate node id %q", ErrImportSchema, n.ID)
			}
			return nil, fmt.Errorf("%w: node %q: %v", ErrImportSchema, n.ID, err)
		}
	}

	for i, e := range doc.Edges {
		if e.Kind == "" {
			return nil, fmt.Errorf("%w: edge %d has empty kind", ErrImportSchema, i)
		}
		if _, _, err := store.AddEdge(e.Source, e.Target, e.Kind); err != nil {
			if errors.Is(err, graph.ErrNodeNotFound) {
				return nil, fmt.Errorf("%w: edge %s -> %s references unknown node", ErrImportSchema, e.Source, e.Target)
			}
			return nil, fmt.Errorf("%w: edge %s -> %s: %v", ErrImportSchema, e.Source, e.Target, err)
		}
	}

	return store, nil
}
