// Package main provides the DepGraph CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/docforge/depgraph/pkg/analysis"
	"github.com/docforge/depgraph/pkg/config"
	"github.com/docforge/depgraph/pkg/engine"
	"github.com/docforge/depgraph/pkg/graph"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "depgraph",
		Short: "DepGraph - Document Dependency Graph & Impact Analysis",
		Long: `DepGraph tracks typed dependencies between documentation artifacts
(requirements, designs, tests, code) and answers the questions that matter
when something changes.

Features:
  • Cycle detection over strongly connected components
  • Topological ordering of the condensation graph
  • Transitive impact analysis, upstream and downstream
  • Consistency reports (cycles, conflicts, broken references)
  • Canonical, diff-friendly JSON import/export`,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("DepGraph v%s (%s)\n", version, commit)
		},
	})

	// Check command
	checkCmd := &cobra.Command{
		Use:   "check [graph.json]",
		Short: "Run a consistency report",
		Long:  "Report cycles, dependency/conflict contradictions, and broken references.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(configFile, args[0])
		},
	}
	rootCmd.AddCommand(checkCmd)

	// Impact command
	impactCmd := &cobra.Command{
		Use:   "impact [graph.json] [node-id]",
		Short: "Compute the transitive impact set of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("direction")
			maxDepth, _ := cmd.Flags().GetInt("max-depth")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			return runImpact(configFile, args[0], args[1], dir, maxDepth, timeout)
		},
	}
	impactCmd.Flags().String("direction", "upstream", "Traversal direction: upstream or downstream")
	impactCmd.Flags().Int("max-depth", 0, "Depth bound (0 = unbounded)")
	impactCmd.Flags().Duration("timeout", 0, "Wall-clock budget; expiry returns a truncated partial result")
	rootCmd.AddCommand(impactCmd)

	// Order command
	orderCmd := &cobra.Command{
		Use:   "order [graph.json]",
		Short: "Print a topological order of the condensation graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")
			return runOrder(configFile, args[0], strict)
		},
		Args: cobra.ExactArgs(1),
	}
	orderCmd.Flags().Bool("strict", false, "Fail if the graph contains a cycle")
	rootCmd.AddCommand(orderCmd)

	// Export command
	exportCmd := &cobra.Command{
		Use:   "export [graph.json]",
		Short: "Re-emit a graph in canonical form",
		Long:  "Parse, validate, and re-serialize a graph file. Output is byte-stable: nodes sorted by id, edges by (source, target, kind).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			return runExport(configFile, args[0], out)
		},
	}
	exportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)

	// Import command
	importCmd := &cobra.Command{
		Use:   "import [graph.json]",
		Short: "Validate a graph file",
		Long:  "Parse a graph file and verify every structural invariant (unique ids, known endpoints, non-empty kinds). Exits non-zero on the first violation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(configFile, args[0])
		},
	}
	rootCmd.AddCommand(importCmd)

	// Stats command
	statsCmd := &cobra.Command{
		Use:   "stats [graph.json]",
		Short: "Print node/edge counts and version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(configFile, args[0])
		},
	}
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEngine builds an engine from a graph file plus optional config.
func loadEngine(configFile, graphFile string) (*engine.Engine, error) {
	cfg := config.LoadFromEnv()
	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(graphFile)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}
	return engine.Import(cfg, data)
}

func runCheck(configFile, graphFile string) error {
	eng, err := loadEngine(configFile, graphFile)
	if err != nil {
		return err
	}
	defer eng.Close()

	report := eng.ConsistencyReport()
	fmt.Printf("Status: %s\n", report.Status)
	for _, cycle := range report.Cycles {
		fmt.Printf("  cycle: %s\n", strings.Join(cycle, " -> "))
	}
	for _, c := range report.Conflicts {
		fmt.Printf("  conflict: %s <-> %s (depends on what it conflicts with)\n", c.A, c.B)
	}
	for _, ref := range report.BrokenReferences {
		fmt.Printf("  broken reference: %s\n", ref)
	}
	if report.Status == analysis.StatusError {
		os.Exit(2)
	}
	return nil
}

func runImpact(configFile, graphFile, nodeID, dirStr string, maxDepth int, timeout time.Duration) error {
	dir, ok := graph.ParseDirection(dirStr)
	if !ok {
		return fmt.Errorf("unknown direction %q (want upstream or downstream)", dirStr)
	}

	eng, err := loadEngine(configFile, graphFile)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := eng.Impact(ctx, nodeID, dir, maxDepth)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(res.Nodes))
	for id := range res.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if res.Nodes[ids[i]] != res.Nodes[ids[j]] {
			return res.Nodes[ids[i]] < res.Nodes[ids[j]]
		}
		return ids[i] < ids[j]
	})

	fmt.Printf("Impact of %s (%s), %d node(s):\n", nodeID, dir, len(ids))
	for _, id := range ids {
		fmt.Printf("  %-40s depth %d\n", id, res.Nodes[id])
	}
	if res.Truncated {
		fmt.Println("  ... truncated: timeout expired before traversal finished")
	}
	return nil
}

func runOrder(configFile, graphFile string, strict bool) error {
	eng, err := loadEngine(configFile, graphFile)
	if err != nil {
		return err
	}
	defer eng.Close()

	order, err := eng.TopologicalOrder(strict)
	if err != nil {
		return err
	}
	for i, comp := range order {
		if len(comp.Members) == 1 {
			fmt.Printf("%4d. %s\n", i+1, comp.Members[0])
			continue
		}
		fmt.Printf("%4d. [cycle] %s\n", i+1, strings.Join(comp.Members, ", "))
	}
	return nil
}

func runExport(configFile, graphFile, output string) error {
	eng, err := loadEngine(configFile, graphFile)
	if err != nil {
		return err
	}
	defer eng.Close()

	data, err := eng.Export()
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(output, data, 0o644)
}

func runImport(configFile, graphFile string) error {
	eng, err := loadEngine(configFile, graphFile)
	if err != nil {
		return err
	}
	defer eng.Close()

	stats := eng.Stats()
	fmt.Printf("OK: %d node(s), %d edge(s)\n", stats.Nodes, stats.Edges)
	return nil
}

func runStats(configFile, graphFile string) error {
	eng, err := loadEngine(configFile, graphFile)
	if err != nil {
		return err
	}
	defer eng.Close()

	out, err := json.MarshalIndent(eng.Stats(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
