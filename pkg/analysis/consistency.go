package analysis

import (
	"fmt"
	"sort"

	"github.com/docforge/depgraph/pkg/graph"
)

// Status summarizes a consistency report.
type Status string

const (
	// StatusOK means no findings at all.
	StatusOK Status = "OK"
	// StatusWarn means cycles or conflicts were found. These describe
	// the data, not a broken store, so mutations are never rejected.
	StatusWarn Status = "WARN"
	// StatusError means broken adjacency references were found, which
	// the store's invariants should make impossible.
	StatusError Status = "ERROR"
)

// Conflict is a node pair linked by both a DEPENDS_ON and a
// CONFLICTS_WITH edge, in either direction. Depending on something you
// conflict with is almost always an authoring mistake worth surfacing.
type Conflict struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Report is the output of a full consistency pass.
type Report struct {
	Cycles           [][]string `json:"cycles"`
	BrokenReferences []string   `json:"brokenReferences"`
	Conflicts        []Conflict `json:"conflicts"`
	Status           Status     `json:"status"`
}

// CheckConsistency runs cycle detection plus structural validation over
// one snapshot and grades the result.
//
// Cycles are the multi-node strongly connected components. Broken
// references are adjacency entries pointing at dead arena slots; the
// store's cascade invariant should keep this list empty, so any entry
// is graded ERROR. Conflicts downgrade the status to WARN at most.
func CheckConsistency(snap *graph.Snapshot) *Report {
	report := &Report{Status: StatusOK}

	scc := StronglyConnectedComponents(snap)
	for _, members := range scc.Components {
		if len(members) < 2 {
			continue
		}
		report.Cycles = append(report.Cycles, memberIDs(snap, members))
	}

	report.BrokenReferences = brokenReferences(snap)
	report.Conflicts = conflicts(snap)

	switch {
	case len(report.BrokenReferences) > 0:
		report.Status = StatusError
	case len(report.Cycles) > 0 || len(report.Conflicts) > 0:
		report.Status = StatusWarn
	}
	return report
}

// brokenReferences scans every adjacency list for peers that are out of
// range or dead.
func brokenReferences(snap *graph.Snapshot) []string {
	var broken []string
	for v := 0; v < snap.ArenaLen(); v++ {
		if !snap.Alive(v) {
			continue
		}
		for _, he := range snap.Out(v) {
			if he.Peer < 0 || he.Peer >= snap.ArenaLen() || !snap.Alive(he.Peer) {
				broken = append(broken, fmt.Sprintf("%s -[%s]-> slot %d (dead)", snap.IDOf(v), he.Kind, he.Peer))
			}
		}
		for _, he := range snap.In(v) {
			if he.Peer < 0 || he.Peer >= snap.ArenaLen() || !snap.Alive(he.Peer) {
				broken = append(broken, fmt.Sprintf("%s <-[%s]- slot %d (dead)", snap.IDOf(v), he.Kind, he.Peer))
			}
		}
	}
	return broken
}

// conflicts finds unordered node pairs carrying both a DEPENDS_ON and a
// CONFLICTS_WITH edge between them, direction ignored.
func conflicts(snap *graph.Snapshot) []Conflict {
	const (
		hasDepends = 1 << iota
		hasConflicts
	)
	pairs := make(map[[2]int]int)

	for v := 0; v < snap.ArenaLen(); v++ {
		if !snap.Alive(v) {
			continue
		}
		for _, he := range snap.Out(v) {
			var bit int
			switch he.Kind {
			case graph.RelDependsOn:
				bit = hasDepends
			case graph.RelConflictsWith:
				bit = hasConflicts
			default:
				continue
			}
			a, b := v, he.Peer
			if a > b {
				a, b = b, a
			}
			pairs[[2]int{a, b}] |= bit
		}
	}

	var out []Conflict
	for pair, bits := range pairs {
		if bits == hasDepends|hasConflicts {
			out = append(out, Conflict{A: snap.IDOf(pair[0]), B: snap.IDOf(pair[1])})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}
