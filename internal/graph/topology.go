package graph

import "sort"

// HubNode is a respondent with many close neighbours
type HubNode struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Degree   int    `json:"degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalEdges        int            `json:"total_edges"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	MeanDegree        float64        `json:"mean_degree"`
	IsolatedCount     int            `json:"isolated_count"`
	IsolatedIDs       []int          `json:"isolated_ids"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Hubs              []HubNode      `json:"hubs"`
}

// ComputeTopology analyzes graph topology: components, isolated respondents,
// degree distribution and hubs
func ComputeTopology(snap *Snapshot, hubThreshold, topN int) *TopologyReport {
	totalNodes := len(snap.Nodes)
	totalEdges := len(snap.Edges)

	if totalNodes == 0 {
		return &TopologyReport{
			DegreeHistogram: defaultHistogram(),
		}
	}

	nodeIDs := snap.NodeIDs()
	uf := NewUnionFind(nodeIDs)
	for _, e := range snap.Edges {
		uf.Union(e.Source, e.Target)
	}

	components := uf.Components()
	largest := len(components[0])
	smallest := len(components[len(components)-1])

	// Isolated: degree == 0
	var isolated []int
	for _, id := range nodeIDs {
		if len(snap.Adj[id]) == 0 {
			isolated = append(isolated, id)
		}
	}
	isolatedCount := len(isolated)
	if len(isolated) > topN {
		isolated = isolated[:topN]
	}

	// Degree histogram (log-scale buckets)
	buckets := [7]int{}
	for _, id := range nodeIDs {
		buckets[degreeBucket(len(snap.Adj[id]))]++
	}
	histogram := defaultHistogram()
	for i := range histogram {
		histogram[i].Count = buckets[i]
	}

	// Hubs: degree > threshold
	var hubs []HubNode
	for _, id := range nodeIDs {
		degree := len(snap.Adj[id])
		if degree > hubThreshold {
			n := snap.Nodes[id]
			hubs = append(hubs, HubNode{
				ID:       id,
				Name:     n.Name,
				Category: n.Category,
				Degree:   degree,
			})
		}
	}
	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}

	return &TopologyReport{
		TotalNodes:        totalNodes,
		TotalEdges:        totalEdges,
		NumComponents:     len(components),
		LargestComponent:  largest,
		SmallestComponent: smallest,
		MeanDegree:        2 * float64(totalEdges) / float64(totalNodes),
		IsolatedCount:     isolatedCount,
		IsolatedIDs:       isolated,
		DegreeHistogram:   histogram,
		Hubs:              hubs,
	}
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
