package graph

import "math"

// CohesionBreakdown shows the sub-scores of the cohesion formula
type CohesionBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Components   float64 `json:"components"`
	Mixing       float64 `json:"mixing"`
	Fragility    float64 `json:"fragility"`
}

// RegionSummary describes one category's own subgraph
type RegionSummary struct {
	Region        string  `json:"region"`
	Nodes         int     `json:"nodes"`
	InternalEdges int     `json:"internal_edges"`
	Components    int     `json:"components"`
	MeanScore     float64 `json:"mean_score"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	CohesionScore     float64           `json:"cohesion_score"`
	CohesionBreakdown CohesionBreakdown `json:"cohesion_breakdown"`
	Topology          *TopologyReport   `json:"topology"`
	Bridges           *BridgeReport     `json:"bridges"`
	Regions           []RegionSummary   `json:"regions"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 6,
		TopN:         20,
	}
}

// Analyze runs all analyses and computes a composite cohesion score in [0, 1]
func Analyze(snap *Snapshot, config *AnalyzerConfig) *AnalysisReport {
	if config == nil {
		config = DefaultConfig()
	}
	topology := ComputeTopology(snap, config.HubThreshold, config.TopN)
	bridges := ComputeBridges(snap)

	total := float64(topology.TotalNodes)

	var connectivity, components, mixing, fragility float64
	if total > 0 {
		connectivity = clamp(1.0-math.Min(float64(topology.IsolatedCount)/total, 0.2)*5.0, 0, 1)
		fragility = clamp(1.0-math.Min(float64(bridges.APCount)/total, 0.05)*20.0, 0, 1)
	}
	if topology.NumComponents > 0 {
		components = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}
	mixing = mixingScore(bridges.RegionLinks)

	score := 0.30*connectivity + 0.25*components + 0.25*mixing + 0.20*fragility

	return &AnalysisReport{
		CohesionScore: score,
		CohesionBreakdown: CohesionBreakdown{
			Connectivity: connectivity,
			Components:   components,
			Mixing:       mixing,
			Fragility:    fragility,
		},
		Topology: topology,
		Bridges:  bridges,
		Regions:  summarizeRegions(snap),
	}
}

// mixingScore is the share of category pairs linked by more than
// FragileLimit edges. A scene with a single category mixes perfectly.
func mixingScore(links []RegionLink) float64 {
	if len(links) == 0 {
		return 1
	}
	strong := 0
	for _, l := range links {
		if l.CrossEdges > FragileLimit {
			strong++
		}
	}
	return float64(strong) / float64(len(links))
}

func summarizeRegions(snap *Snapshot) []RegionSummary {
	names := snap.RegionNames()
	out := make([]RegionSummary, 0, len(names))
	for _, name := range names {
		sub := snap.FilterToRegion(name)
		sum := 0.0
		for _, id := range sub.NodeIDs() {
			sum += sub.Nodes[id].Score
		}
		topo := ComputeTopology(sub, math.MaxInt, 0)
		out = append(out, RegionSummary{
			Region:        name,
			Nodes:         len(sub.Nodes),
			InternalEdges: len(sub.Edges),
			Components:    topo.NumComponents,
			MeanScore:     sum / float64(len(sub.Nodes)),
		})
	}
	return out
}

func clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
