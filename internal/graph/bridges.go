package graph

import "sort"

// FragileLimit is the largest number of cross edges at which a category pair
// counts as fragile.
const FragileLimit = 2

// ArticulationPoint is a respondent whose removal disconnects its component
type ArticulationPoint struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Degree   int    `json:"degree"`
}

// BridgeEdge is an edge whose removal disconnects its component
type BridgeEdge struct {
	SourceID   int    `json:"source_id"`
	TargetID   int    `json:"target_id"`
	SourceName string `json:"source_name"`
	TargetName string `json:"target_name"`
}

// RegionLink counts the edges between two categories
type RegionLink struct {
	RegionA    string `json:"region_a"`
	RegionB    string `json:"region_b"`
	CrossEdges int    `json:"cross_edges"`
}

// BridgeReport contains bridge analysis results
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeEdges        []BridgeEdge        `json:"bridge_edges"`
	RegionLinks        []RegionLink        `json:"region_links"`
	FragileConnections []RegionLink        `json:"fragile_connections"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
}

// ComputeBridges finds articulation points, bridge edges, and how strongly
// each pair of categories is linked
func ComputeBridges(snap *Snapshot) *BridgeReport {
	if len(snap.Nodes) == 0 {
		return &BridgeReport{}
	}

	nodeIDs := snap.NodeIDs()
	idToIdx := make(map[int]int, len(nodeIDs))
	for i, id := range nodeIDs {
		idToIdx[id] = i
	}
	n := len(nodeIDs)

	// Deduplicated undirected adjacency over indices
	adjIdx := make([][]int, n)
	type edgePair struct{ u, v int }
	seen := make(map[edgePair]bool)
	for _, e := range snap.Edges {
		u, v := idToIdx[e.Source], idToIdx[e.Target]
		if u == v {
			continue
		}
		key := edgePair{u, v}
		if u > v {
			key = edgePair{v, u}
		}
		if !seen[key] {
			seen[key] = true
			adjIdx[u] = append(adjIdx[u], v)
			adjIdx[v] = append(adjIdx[v], u)
		}
	}

	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isAP := make([]bool, n)
	var bridgePairs [][2]int
	counter := 1

	const noParent = -1

	// Iterative Tarjan for each connected component
	type frame struct {
		node, parent, ni int
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		visited[start] = true
		disc[start] = counter
		low[start] = counter
		counter++

		stack := []frame{{start, noParent, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := top.node

			if top.ni < len(adjIdx[node]) {
				child := adjIdx[node][top.ni]
				top.ni++

				if child == top.parent {
					continue
				}
				if visited[child] {
					low[node] = min(low[node], disc[child])
					continue
				}

				visited[child] = true
				disc[child] = counter
				low[child] = counter
				counter++
				if node == start {
					rootChildren++
				}
				stack = append(stack, frame{child, node, 0})
				continue
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			pn := stack[len(stack)-1].node
			low[pn] = min(low[pn], low[node])
			if low[node] > disc[pn] {
				bridgePairs = append(bridgePairs, [2]int{pn, node})
			}
			if pn != start && low[node] >= disc[pn] {
				isAP[pn] = true
			}
		}

		if rootChildren >= 2 {
			isAP[start] = true
		}
	}

	var aps []ArticulationPoint
	for i := 0; i < n; i++ {
		if !isAP[i] {
			continue
		}
		node := snap.Nodes[nodeIDs[i]]
		aps = append(aps, ArticulationPoint{
			ID:       node.ID,
			Name:     node.Name,
			Category: node.Category,
			Degree:   len(adjIdx[i]),
		})
	}

	var bridges []BridgeEdge
	for _, pair := range bridgePairs {
		u, v := snap.Nodes[nodeIDs[pair[0]]], snap.Nodes[nodeIDs[pair[1]]]
		if u.ID > v.ID {
			u, v = v, u
		}
		bridges = append(bridges, BridgeEdge{
			SourceID:   u.ID,
			TargetID:   v.ID,
			SourceName: u.Name,
			TargetName: v.Name,
		})
	}
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].SourceID != bridges[j].SourceID {
			return bridges[i].SourceID < bridges[j].SourceID
		}
		return bridges[i].TargetID < bridges[j].TargetID
	})

	links := regionLinks(snap)
	var fragile []RegionLink
	for _, l := range links {
		if l.CrossEdges <= FragileLimit {
			fragile = append(fragile, l)
		}
	}
	sort.SliceStable(fragile, func(i, j int) bool { return fragile[i].CrossEdges < fragile[j].CrossEdges })

	return &BridgeReport{
		ArticulationPoints: aps,
		BridgeEdges:        bridges,
		RegionLinks:        links,
		FragileConnections: fragile,
		APCount:            len(aps),
		BridgeCount:        len(bridges),
	}
}

// regionLinks counts cross-category edges for every pair of categories
// present in the snapshot, including pairs with no edges at all, ordered by
// region names.
func regionLinks(snap *Snapshot) []RegionLink {
	type regionPair struct{ a, b string }
	counts := make(map[regionPair]int)
	for _, e := range snap.Edges {
		ra, rb := snap.Regions[e.Source], snap.Regions[e.Target]
		if ra == rb {
			continue
		}
		if ra > rb {
			ra, rb = rb, ra
		}
		counts[regionPair{ra, rb}]++
	}

	names := snap.RegionNames()
	var links []RegionLink
	for i, a := range names {
		for _, b := range names[i+1:] {
			links = append(links, RegionLink{RegionA: a, RegionB: b, CrossEdges: counts[regionPair{a, b}]})
		}
	}
	return links
}
