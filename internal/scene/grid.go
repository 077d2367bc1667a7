package scene

import "math"

type cellKey struct{ cx, cy int }

// Grid buckets node ids into square cells of side Cell. With Cell equal to
// the edge threshold every neighbor closer than the threshold lies in the
// 3x3 block around a node's own cell.
type Grid struct {
	Cell   float64
	Origin float64
	cells  map[cellKey][]int
}

// NewGrid indexes nodes. Ids are appended in ascending order within a cell.
func NewGrid(nodes []Node, cell, origin float64) *Grid {
	g := &Grid{Cell: cell, Origin: origin, cells: make(map[cellKey][]int)}
	for _, n := range nodes {
		k := g.key(n.X, n.Y)
		g.cells[k] = append(g.cells[k], n.ID)
	}
	return g
}

func (g *Grid) key(x, y float64) cellKey {
	return cellKey{
		cx: int(math.Floor((x - g.Origin) / g.Cell)),
		cy: int(math.Floor((y - g.Origin) / g.Cell)),
	}
}

// Near calls fn with every id in the 3x3 cell block around (x, y).
func (g *Grid) Near(x, y float64, fn func(id int)) {
	k := g.key(x, y)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, id := range g.cells[cellKey{k.cx + dx, k.cy + dy}] {
				fn(id)
			}
		}
	}
}

// gridEdges finds the same edge set as pairwiseEdges without the quadratic
// scan, sorted the same way.
func gridEdges(nodes []Node, threshold, origin float64) []Edge {
	g := NewGrid(nodes, threshold, origin)
	edges := []Edge{}
	for i := range nodes {
		g.Near(nodes[i].X, nodes[i].Y, func(j int) {
			if j <= i || !within(nodes[i], nodes[j], threshold) {
				return
			}
			edges = append(edges, Edge{
				Source: i,
				Target: j,
				Delay:  max(nodes[i].Delay, nodes[j].Delay),
			})
		})
	}
	sortEdges(edges)
	return edges
}
