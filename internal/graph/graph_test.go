package graph

import (
	"math"
	"testing"

	"fivem/resonance/internal/scene"
)

// quickSnapshot builds a snapshot where every node is in category "a" unless
// listed in cats.
func quickSnapshot(n int, edges [][2]int, cats map[int]string) *Snapshot {
	var nodes []*NodeInfo
	for id := 0; id < n; id++ {
		cat := "a"
		if c, ok := cats[id]; ok {
			cat = c
		}
		nodes = append(nodes, &NodeInfo{ID: id, Name: string(rune('A' + id)), Category: cat, Score: float64(id + 1)})
	}
	var edgeInfos []EdgeInfo
	for _, e := range edges {
		edgeInfos = append(edgeInfos, EdgeInfo{Source: e[0], Target: e[1]})
	}
	return NewSnapshot(nodes, edgeInfos)
}

// --- Snapshot Tests ---

func TestFromScene(t *testing.T) {
	sc := &scene.Scene{
		Nodes: []scene.Node{
			{ID: 0, Name: "a", Category: "安心"},
			{ID: 1, Name: "b", Category: "挑戦"},
			{ID: 2, Name: "c"},
		},
		Edges: []scene.Edge{{Source: 0, Target: 1}, {Source: 1, Target: 7}},
	}
	snap := FromScene(sc)
	if len(snap.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(snap.Nodes))
	}
	if len(snap.Edges) != 1 {
		t.Errorf("edge to unknown node should be dropped, got %d edges", len(snap.Edges))
	}
	if snap.Regions[2] != Unassigned {
		t.Errorf("empty category should be %q, got %q", Unassigned, snap.Regions[2])
	}
	if got := FromScene(nil); len(got.Nodes) != 0 {
		t.Errorf("nil scene should give an empty snapshot")
	}
}

func TestFilterToRegion(t *testing.T) {
	snap := quickSnapshot(4, [][2]int{{0, 1}, {1, 2}, {2, 3}}, map[int]string{2: "b", 3: "b"})
	sub := snap.FilterToRegion("b")
	if len(sub.Nodes) != 2 || len(sub.Edges) != 1 {
		t.Errorf("expected 2 nodes and 1 edge, got %d and %d", len(sub.Nodes), len(sub.Edges))
	}
	if names := snap.RegionNames(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected regions %v", names)
	}
}

// --- Topology Tests ---

func TestTopology_EmptyGraph(t *testing.T) {
	snap := NewSnapshot(nil, nil)
	r := ComputeTopology(snap, 4, 10)
	if r.TotalNodes != 0 || r.TotalEdges != 0 || r.NumComponents != 0 {
		t.Errorf("empty graph should have all zeros, got nodes=%d edges=%d components=%d",
			r.TotalNodes, r.TotalEdges, r.NumComponents)
	}
	if len(r.DegreeHistogram) != 7 {
		t.Errorf("histogram should always have 7 buckets")
	}
}

func TestTopology_SingleComponent(t *testing.T) {
	snap := quickSnapshot(5, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}, nil)
	r := ComputeTopology(snap, 4, 10)
	if r.NumComponents != 1 {
		t.Errorf("expected 1 component, got %d", r.NumComponents)
	}
	if r.LargestComponent != 5 {
		t.Errorf("expected largest=5, got %d", r.LargestComponent)
	}
	if r.IsolatedCount != 0 {
		t.Errorf("expected 0 isolated, got %d", r.IsolatedCount)
	}
	if r.MeanDegree != 1.6 {
		t.Errorf("expected mean degree 1.6, got %f", r.MeanDegree)
	}
}

func TestTopology_TwoComponents(t *testing.T) {
	snap := quickSnapshot(5, [][2]int{{0, 1}, {1, 2}, {3, 4}}, nil)
	r := ComputeTopology(snap, 4, 10)
	if r.NumComponents != 2 {
		t.Errorf("expected 2 components, got %d", r.NumComponents)
	}
	if r.LargestComponent != 3 {
		t.Errorf("expected largest=3, got %d", r.LargestComponent)
	}
	if r.SmallestComponent != 2 {
		t.Errorf("expected smallest=2, got %d", r.SmallestComponent)
	}
}

func TestIsolated_Detection(t *testing.T) {
	snap := quickSnapshot(3, [][2]int{{0, 1}}, nil)
	r := ComputeTopology(snap, 4, 10)
	if r.IsolatedCount != 1 {
		t.Fatalf("expected 1 isolated, got %d", r.IsolatedCount)
	}
	if r.IsolatedIDs[0] != 2 {
		t.Errorf("2 should be isolated, got %v", r.IsolatedIDs)
	}
	if r.DegreeHistogram[0].Count != 1 || r.DegreeHistogram[1].Count != 2 {
		t.Errorf("unexpected histogram %v", r.DegreeHistogram)
	}
}

func TestHub_Detection(t *testing.T) {
	snap := quickSnapshot(6, [][2]int{{0, 1}, {0, 2}, {0, 3}, {0, 4}, {0, 5}}, nil)
	r := ComputeTopology(snap, 4, 10)
	if len(r.Hubs) != 1 {
		t.Fatalf("expected 1 hub, got %d", len(r.Hubs))
	}
	if r.Hubs[0].ID != 0 || r.Hubs[0].Name != "A" {
		t.Errorf("expected node 0 as hub, got %+v", r.Hubs[0])
	}
	if r.Hubs[0].Degree != 5 {
		t.Errorf("hub degree should be 5, got %d", r.Hubs[0].Degree)
	}
}

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind([]int{0, 1, 2, 3})
	if !uf.Union(0, 1) {
		t.Error("first union should merge")
	}
	if uf.Union(1, 0) {
		t.Error("second union should be a no-op")
	}
	uf.Union(2, 3)
	uf.Union(3, 1)
	if uf.Size(2) != 4 {
		t.Errorf("expected size 4, got %d", uf.Size(2))
	}
	comps := uf.Components()
	if len(comps) != 1 || len(comps[0]) != 4 || comps[0][0] != 0 {
		t.Errorf("unexpected components %v", comps)
	}
}

// --- Tarjan Tests ---

func TestTarjan_Bridge(t *testing.T) {
	snap := quickSnapshot(3, [][2]int{{0, 1}, {1, 2}}, nil)
	r := ComputeBridges(snap)
	if r.BridgeCount != 2 {
		t.Errorf("expected 2 bridges, got %d", r.BridgeCount)
	}
	if r.APCount != 1 || r.ArticulationPoints[0].ID != 1 {
		t.Errorf("1 should be the only AP, got %+v", r.ArticulationPoints)
	}
}

func TestTarjan_CycleNoBridges(t *testing.T) {
	snap := quickSnapshot(3, [][2]int{{0, 1}, {1, 2}, {2, 0}}, nil)
	r := ComputeBridges(snap)
	if r.BridgeCount != 0 {
		t.Errorf("triangle should have 0 bridges, got %d", r.BridgeCount)
	}
	if r.APCount != 0 {
		t.Errorf("triangle should have 0 APs, got %d", r.APCount)
	}
}

func TestTarjan_TwoCyclesJoined(t *testing.T) {
	snap := quickSnapshot(6, [][2]int{
		{0, 1}, {1, 2}, {2, 0}, // triangle 1
		{3, 4}, {4, 5}, {5, 3}, // triangle 2
		{3, 2}, // bridge
	}, nil)
	r := ComputeBridges(snap)
	if r.BridgeCount != 1 {
		t.Fatalf("expected 1 bridge, got %d", r.BridgeCount)
	}
	if b := r.BridgeEdges[0]; b.SourceID != 2 || b.TargetID != 3 {
		t.Errorf("expected bridge 2-3, got %+v", b)
	}
	apIDs := make(map[int]bool)
	for _, ap := range r.ArticulationPoints {
		apIDs[ap.ID] = true
	}
	if len(apIDs) != 2 || !apIDs[2] || !apIDs[3] {
		t.Errorf("2 and 3 should be APs, got %v", apIDs)
	}
}

// --- Category Link Tests ---

func TestFragile_Connections(t *testing.T) {
	snap := quickSnapshot(6, [][2]int{
		{0, 2}, {1, 3}, {0, 3}, // a-b: 3 edges
		{4, 5}, // b-c: 1 edge
	}, map[int]string{2: "b", 3: "b", 4: "b", 5: "c"})
	r := ComputeBridges(snap)
	if len(r.RegionLinks) != 3 {
		t.Fatalf("expected 3 category pairs, got %v", r.RegionLinks)
	}
	if len(r.FragileConnections) != 2 {
		t.Fatalf("expected 2 fragile pairs, got %v", r.FragileConnections)
	}
	if f := r.FragileConnections[0]; f.RegionA != "a" || f.RegionB != "c" || f.CrossEdges != 0 {
		t.Errorf("a-c has no edges and should sort first, got %+v", f)
	}
	if f := r.FragileConnections[1]; f.RegionA != "b" || f.RegionB != "c" || f.CrossEdges != 1 {
		t.Errorf("expected b-c with 1 edge, got %+v", f)
	}
}

// --- Cohesion Tests ---

func TestCohesionScore_Range(t *testing.T) {
	snap := quickSnapshot(3, nil, nil)
	r := Analyze(snap, DefaultConfig())
	if r.CohesionScore < 0 || r.CohesionScore > 1 {
		t.Errorf("cohesion out of range: %f", r.CohesionScore)
	}

	snap2 := quickSnapshot(2, [][2]int{{0, 1}}, map[int]string{1: "b"})
	r2 := Analyze(snap2, nil)
	if r2.CohesionScore < 0 || r2.CohesionScore > 1 {
		t.Errorf("cohesion out of range: %f", r2.CohesionScore)
	}
	if r2.CohesionBreakdown.Mixing != 0 {
		t.Errorf("one cross edge is fragile, mixing should be 0, got %f", r2.CohesionBreakdown.Mixing)
	}
}

func TestCohesionScore_Perfect(t *testing.T) {
	snap := quickSnapshot(3, [][2]int{{0, 1}, {1, 2}, {2, 0}}, nil)
	r := Analyze(snap, &AnalyzerConfig{HubThreshold: 10, TopN: 50})
	if math.Abs(r.CohesionScore-1) > 1e-12 {
		t.Errorf("triangle should have cohesion 1.0, got %f", r.CohesionScore)
	}
	if len(r.Regions) != 1 {
		t.Fatalf("expected 1 region summary, got %d", len(r.Regions))
	}
	reg := r.Regions[0]
	if reg.Nodes != 3 || reg.InternalEdges != 3 || reg.Components != 1 || reg.MeanScore != 2 {
		t.Errorf("unexpected region summary %+v", reg)
	}
}
