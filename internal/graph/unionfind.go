package graph

import "sort"

// UnionFind implements union-find with path compression and union by rank
type UnionFind struct {
	parent map[int]int
	rank   map[int]int
	size   map[int]int
}

// NewUnionFind creates a new UnionFind where each element is its own component
func NewUnionFind(ids []int) *UnionFind {
	uf := &UnionFind{
		parent: make(map[int]int, len(ids)),
		rank:   make(map[int]int, len(ids)),
		size:   make(map[int]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
		uf.size[id] = 1
	}
	return uf
}

// Find returns the root of the component containing id, with path compression
func (uf *UnionFind) Find(id int) int {
	parent, ok := uf.parent[id]
	if !ok || parent == id {
		return id
	}
	root := uf.Find(parent)
	uf.parent[id] = root
	return root
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind) Union(a, b int) bool {
	rootA := uf.Find(a)
	rootB := uf.Find(b)
	if rootA == rootB {
		return false
	}

	switch rankA, rankB := uf.rank[rootA], uf.rank[rootB]; {
	case rankA < rankB:
		rootA, rootB = rootB, rootA
	case rankA == rankB:
		uf.rank[rootA]++
	}
	uf.parent[rootB] = rootA
	uf.size[rootA] += uf.size[rootB]
	return true
}

// Size returns the number of members in the component containing id.
func (uf *UnionFind) Size(id int) int {
	return uf.size[uf.Find(id)]
}

// Components returns all connected components, each sorted by id, largest first
func (uf *UnionFind) Components() [][]int {
	groups := make(map[int][]int)
	for id := range uf.parent {
		root := uf.Find(id)
		groups[root] = append(groups[root], id)
	}
	result := make([][]int, 0, len(groups))
	for _, members := range groups {
		sort.Ints(members)
		result = append(result, members)
	}
	sort.Slice(result, func(i, j int) bool {
		if len(result[i]) != len(result[j]) {
			return len(result[i]) > len(result[j])
		}
		return result[i][0] < result[j][0]
	})
	return result
}
