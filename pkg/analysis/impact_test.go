package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/docforge/depgraph/pkg/graph"
)

func chainSnap(t *testing.T) *graph.Snapshot {
	t.Helper()
	return buildSnap(t,
		[]string{"A", "B", "C", "D"},
		[][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}},
	)
}

func TestImpact(t *testing.T) {
	a := NewAnalyzer()
	ctx := context.Background()

	t.Run("downstream chain", func(t *testing.T) {
		res, err := a.Impact(ctx, chainSnap(t), "A", graph.Downstream, 0)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]int{"B": 1, "C": 2, "D": 3}
		assertDepths(t, res.Nodes, want)
		if res.Truncated {
			t.Error("unexpectedly truncated")
		}
	})

	t.Run("upstream chain", func(t *testing.T) {
		res, err := a.Impact(ctx, chainSnap(t), "D", graph.Upstream, 0)
		if err != nil {
			t.Fatal(err)
		}
		assertDepths(t, res.Nodes, map[string]int{"C": 1, "B": 2, "A": 3})
	})

	t.Run("max depth bound", func(t *testing.T) {
		res, err := a.Impact(ctx, chainSnap(t), "A", graph.Downstream, 1)
		if err != nil {
			t.Fatal(err)
		}
		assertDepths(t, res.Nodes, map[string]int{"B": 1})
	})

	t.Run("origin excluded", func(t *testing.T) {
		res, _ := a.Impact(ctx, chainSnap(t), "A", graph.Downstream, 0)
		if _, ok := res.Nodes["A"]; ok {
			t.Error("origin included in its own impact set")
		}
	})

	t.Run("diamond takes shortest depth", func(t *testing.T) {
		snap := buildSnap(t,
			[]string{"A", "B", "C", "D"},
			[][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}, {"A", "D"}},
		)
		res, err := a.Impact(ctx, snap, "A", graph.Downstream, 0)
		if err != nil {
			t.Fatal(err)
		}
		assertDepths(t, res.Nodes, map[string]int{"B": 1, "C": 1, "D": 1})
	})

	t.Run("cycle terminates", func(t *testing.T) {
		snap := buildSnap(t,
			[]string{"A", "B", "C"},
			[][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}},
		)
		res, err := a.Impact(ctx, snap, "A", graph.Downstream, 0)
		if err != nil {
			t.Fatal(err)
		}
		assertDepths(t, res.Nodes, map[string]int{"B": 1, "C": 2})
	})

	t.Run("unknown origin", func(t *testing.T) {
		_, err := a.Impact(ctx, chainSnap(t), "ghost", graph.Downstream, 0)
		if !errors.Is(err, graph.ErrNodeNotFound) {
			t.Errorf("err = %v, want ErrNodeNotFound", err)
		}
	})

	t.Run("isolated node", func(t *testing.T) {
		snap := buildSnap(t, []string{"A"}, nil)
		res, err := a.Impact(ctx, snap, "A", graph.Downstream, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Nodes) != 0 {
			t.Errorf("impact of isolated node = %v, want empty", res.Nodes)
		}
	})
}

func TestImpactTimeout(t *testing.T) {
	t.Run("expired context truncates", func(t *testing.T) {
		a := NewAnalyzer()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := a.Impact(ctx, chainSnap(t), "A", graph.Downstream, 0)
		if err != nil {
			t.Fatalf("timeout must not be an error, got %v", err)
		}
		if !res.Truncated {
			t.Error("Truncated = false with expired context")
		}
	})

	t.Run("generous deadline completes", func(t *testing.T) {
		a := NewAnalyzer()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		res, err := a.Impact(ctx, chainSnap(t), "A", graph.Downstream, 0)
		if err != nil {
			t.Fatal(err)
		}
		if res.Truncated {
			t.Error("truncated despite generous deadline")
		}
		if len(res.Nodes) != 3 {
			t.Errorf("nodes = %d, want 3", len(res.Nodes))
		}
	})
}

func TestUseParallel(t *testing.T) {
	a := &Analyzer{Workers: 4, ParallelThreshold: 1000}

	if a.useParallel(1000) {
		t.Error("node count equal to threshold must stay serial")
	}
	if !a.useParallel(1001) {
		t.Error("node count above threshold must go parallel")
	}
	if (&Analyzer{Workers: 1, ParallelThreshold: 0}).useParallel(5000) {
		t.Error("single worker must stay serial regardless of size")
	}
}

// TestImpactParallel forces the worker-pool path and checks it agrees
// with the serial path.
func TestImpactParallel(t *testing.T) {
	const fanout = 50
	nodes := []string{"root"}
	var edges [][2]string
	for i := 0; i < fanout; i++ {
		mid := fmt.Sprintf("mid-%d", i)
		nodes = append(nodes, mid)
		edges = append(edges, [2]string{"root", mid})
		for j := 0; j < 4; j++ {
			leaf := fmt.Sprintf("leaf-%d-%d", i, j)
			nodes = append(nodes, leaf)
			edges = append(edges, [2]string{mid, leaf})
		}
	}
	snap := buildSnap(t, nodes, edges)

	serial := &Analyzer{Workers: 1, ParallelThreshold: 1 << 30}
	parallel := &Analyzer{Workers: 4, ParallelThreshold: 1} // always parallel

	ctx := context.Background()
	want, err := serial.Impact(ctx, snap, "root", graph.Downstream, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := parallel.Impact(ctx, snap, "root", graph.Downstream, 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Nodes) != len(want.Nodes) {
		t.Fatalf("parallel found %d nodes, serial %d", len(got.Nodes), len(want.Nodes))
	}
	for id, depth := range want.Nodes {
		if got.Nodes[id] != depth {
			t.Errorf("node %s: parallel depth %d, serial %d", id, got.Nodes[id], depth)
		}
	}
}

func assertDepths(t *testing.T, got, want map[string]int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("impact set = %v, want %v", got, want)
	}
	for id, depth := range want {
		if got[id] != depth {
			t.Errorf("depth[%s] = %d, want %d", id, got[id], depth)
		}
	}
}

func BenchmarkImpact(b *testing.B) {
	s := graph.NewStore()
	s.BeginBatch()
	const n = 5000
	for i := 0; i < n; i++ {
		s.RegisterNode(fmt.Sprintf("n%d", i), graph.KindCode, nil)
	}
	for i := 1; i < n; i++ {
		s.AddEdge(fmt.Sprintf("n%d", i/2), fmt.Sprintf("n%d", i), graph.RelDependsOn)
	}
	s.CommitBatch()
	snap := s.Snapshot()
	ctx := context.Background()

	b.Run("serial", func(b *testing.B) {
		a := &Analyzer{Workers: 1, ParallelThreshold: 1 << 30}
		for i := 0; i < b.N; i++ {
			a.Impact(ctx, snap, "n0", graph.Downstream, 0)
		}
	})

	b.Run("parallel", func(b *testing.B) {
		a := &Analyzer{Workers: 4, ParallelThreshold: 1}
		for i := 0; i < b.N; i++ {
			a.Impact(ctx, snap, "n0", graph.Downstream, 0)
		}
	})
}
