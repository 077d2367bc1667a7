package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/graph"
	"fivem/resonance/internal/scene"
)

var (
	analyzeJSON         bool
	analyzeCategory     string
	analyzeScene        string
	analyzeNoStore      bool
	analyzeTopN         int
	analyzeHubThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the proximity graph: topology, bridges, category cohesion",
	RunE: func(cmd *cobra.Command, args []string) error {
		var sc *scene.Scene
		if analyzeScene != "" {
			loaded, err := scene.ReadFile(analyzeScene)
			if err != nil {
				return err
			}
			sc = loaded
		} else {
			svc, closeFn, err := loadScene(cmd.Context(), analyzeNoStore)
			if err != nil {
				return err
			}
			defer closeFn()
			sc = svc.Current()
		}

		snap := graph.FromScene(sc)
		if analyzeCategory != "" {
			snap = snap.FilterToRegion(analyzeCategory)
			if len(snap.Nodes) == 0 {
				return errors.WithHint(
					errors.Mark(errors.Newf("no nodes in category %q", analyzeCategory), errors.ErrNotFound),
					"known categories: "+strings.Join(graph.FromScene(sc).RegionNames(), ", "))
			}
		}

		report := graph.Analyze(snap, &graph.AnalyzerConfig{
			HubThreshold: analyzeHubThreshold,
			TopN:         analyzeTopN,
		})

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHumanReadable(report, snap)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVar(&analyzeCategory, "category", "", "Scope analysis to nodes of this category")
	analyzeCmd.Flags().StringVar(&analyzeScene, "scene", "", "Analyze this scene file instead of the current scene")
	analyzeCmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "Read the scene artifact instead of the database")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 6, "Minimum degree to consider a node a hub")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *graph.AnalysisReport, snap *graph.Snapshot) {
	barLen := min(int(report.CohesionScore*20), 20)
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Cohesion: %.0f%%  [%s]\n", report.CohesionScore*100, bar)
	fmt.Printf("  breakdown: connectivity=%.2f components=%.2f mixing=%.2f fragility=%.2f\n\n",
		report.CohesionBreakdown.Connectivity,
		report.CohesionBreakdown.Components,
		report.CohesionBreakdown.Mixing,
		report.CohesionBreakdown.Fragility)

	t := report.Topology
	fmt.Println("  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Nodes: %d  Edges: %d  Components: %d  Mean degree: %.2f\n",
		t.TotalNodes, t.TotalEdges, t.NumComponents, t.MeanDegree)
	fmt.Printf("  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)

	if t.IsolatedCount > 0 {
		fmt.Printf("  Isolated: %d nodes without a neighbor in range\n", t.IsolatedCount)
		for _, id := range t.IsolatedIDs[:min(5, len(t.IsolatedIDs))] {
			name := "?"
			if n := snap.Nodes[id]; n != nil {
				name = truncTitle(n.Name, 40)
			}
			fmt.Printf("    - #%d %s\n", id, name)
		}
		if t.IsolatedCount > 5 {
			fmt.Printf("    ... and %d more\n", t.IsolatedCount-5)
		}
	}

	fmt.Println("\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := max(int(math.Log2(float64(b.Count)))+2, 1)
			fmt.Printf("    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(t.Hubs) > 0 {
		fmt.Println("\n  Top hubs (degree >= threshold):")
		for _, hub := range t.Hubs {
			fmt.Printf("    #%-4d degree=%d  %s [%s]\n",
				hub.ID, hub.Degree, truncTitle(hub.Name, 30), hub.Category)
		}
	}

	if len(report.Regions) > 0 {
		fmt.Println("\n  CATEGORIES")
		fmt.Println("  ────────────────────────────────────────")
		for _, r := range report.Regions {
			fmt.Printf("    %-12s nodes=%-4d internal=%-4d components=%-3d mean score=%.1f\n",
				r.Region, r.Nodes, r.InternalEdges, r.Components, r.MeanScore)
		}
	}

	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 || len(br.FragileConnections) > 0 {
		fmt.Println("\n  STRUCTURAL FRAGILITY")
		fmt.Println("  ────────────────────────────────────────")
		if br.APCount > 0 {
			fmt.Printf("  %d articulation points (removal disconnects graph):\n", br.APCount)
			for _, ap := range br.ArticulationPoints[:min(10, len(br.ArticulationPoints))] {
				fmt.Printf("    #%-4d degree=%d  %s [%s]\n", ap.ID, ap.Degree, truncTitle(ap.Name, 30), ap.Category)
			}
		}
		if br.BridgeCount > 0 {
			fmt.Printf("  %d bridge edges (removal disconnects graph):\n", br.BridgeCount)
			for _, be := range br.BridgeEdges[:min(10, len(br.BridgeEdges))] {
				fmt.Printf("    %s -- %s\n", truncTitle(be.SourceName, 30), truncTitle(be.TargetName, 30))
			}
		}
		if len(br.FragileConnections) > 0 {
			fmt.Printf("  %d fragile category links (<=%d edges):\n", len(br.FragileConnections), graph.FragileLimit)
			for _, fc := range br.FragileConnections[:min(10, len(br.FragileConnections))] {
				s := ""
				if fc.CrossEdges != 1 {
					s = "s"
				}
				fmt.Printf("    %s <-> %s (%d edge%s)\n", fc.RegionA, fc.RegionB, fc.CrossEdges, s)
			}
		}
	}

	fmt.Println()
}

func truncTitle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
