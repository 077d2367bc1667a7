// Package graph analyzes the proximity graph of a generated scene: connected
// components, isolated respondents, hubs, articulation points and how well the
// categories are linked to each other.
package graph

import (
	"sort"

	"fivem/resonance/internal/scene"
)

// Unassigned is the region of a node without a category label.
const Unassigned = "unassigned"

// NodeInfo is the part of a scene node the analyses look at
type NodeInfo struct {
	ID       int
	Name     string
	Category string
	Score    float64
}

// EdgeInfo is one undirected proximity edge
type EdgeInfo struct {
	Source int
	Target int
}

// Snapshot holds a graph with precomputed adjacency lists and region map.
// Regions are category labels.
type Snapshot struct {
	Nodes   map[int]*NodeInfo
	Edges   []EdgeInfo
	Adj     map[int][]int
	Regions map[int]string
}

// NewSnapshot builds a Snapshot from raw nodes and edges. Edges with an
// unknown endpoint are dropped.
func NewSnapshot(nodes []*NodeInfo, edges []EdgeInfo) *Snapshot {
	nodeMap := make(map[int]*NodeInfo, len(nodes))
	adj := make(map[int][]int, len(nodes))
	regions := make(map[int]string, len(nodes))

	for _, n := range nodes {
		nodeMap[n.ID] = n
		adj[n.ID] = nil
		regions[n.ID] = n.Category
		if n.Category == "" {
			regions[n.ID] = Unassigned
		}
	}

	kept := make([]EdgeInfo, 0, len(edges))
	for _, e := range edges {
		if _, ok := nodeMap[e.Source]; !ok {
			continue
		}
		if _, ok := nodeMap[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
		kept = append(kept, e)
	}

	return &Snapshot{
		Nodes:   nodeMap,
		Edges:   kept,
		Adj:     adj,
		Regions: regions,
	}
}

// FromScene builds a snapshot of a scene's nodes and edges.
func FromScene(sc *scene.Scene) *Snapshot {
	if sc == nil {
		return NewSnapshot(nil, nil)
	}
	nodes := make([]*NodeInfo, len(sc.Nodes))
	for i, n := range sc.Nodes {
		nodes[i] = &NodeInfo{ID: n.ID, Name: n.Name, Category: n.Category, Score: n.Score}
	}
	edges := make([]EdgeInfo, len(sc.Edges))
	for i, e := range sc.Edges {
		edges[i] = EdgeInfo{Source: e.Source, Target: e.Target}
	}
	return NewSnapshot(nodes, edges)
}

// FilterToRegion returns a new snapshot containing only the nodes of one
// category and the edges between them.
func (s *Snapshot) FilterToRegion(region string) *Snapshot {
	var filteredNodes []*NodeInfo
	for _, id := range s.NodeIDs() {
		if s.Regions[id] == region {
			filteredNodes = append(filteredNodes, s.Nodes[id])
		}
	}

	var filteredEdges []EdgeInfo
	for _, e := range s.Edges {
		if s.Regions[e.Source] == region && s.Regions[e.Target] == region {
			filteredEdges = append(filteredEdges, e)
		}
	}

	return NewSnapshot(filteredNodes, filteredEdges)
}

// NodeIDs returns a sorted list of all node IDs (for deterministic output)
func (s *Snapshot) NodeIDs() []int {
	ids := make([]int, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// RegionNames returns the distinct regions in sorted order.
func (s *Snapshot) RegionNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range s.Regions {
		if !seen[r] {
			seen[r] = true
			names = append(names, r)
		}
	}
	sort.Strings(names)
	return names
}
