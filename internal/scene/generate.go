package scene

import (
	"math"
	"math/rand/v2"
	"sort"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/palette"
	"fivem/resonance/internal/survey"
)

// pcgStream is the second PCG word; together with Seed it fixes the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// Generate builds a scene from rows. Node ids follow row order. Positions come
// from a PCG source seeded with opts.Seed (all x first, then all y), delays
// follow the (category rank, order value) ranking, and edges join every pair
// closer than opts.EdgeThreshold.
func Generate(rows []survey.Row, table *palette.Table, opts Options) (*Scene, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = palette.Default()
	}
	for i, r := range rows {
		if isBad(r.Score) || isBad(r.Order) {
			return nil, invalidf("row %d (%s): score and order must be finite numbers", i, r.Name)
		}
	}

	n := len(rows)
	xs, ys := samplePositions(n, opts)
	delays := AssignDelays(rows, table, opts.DelayStep)

	nodes := make([]Node, n)
	for i, r := range rows {
		nodes[i] = Node{
			ID:       i,
			X:        xs[i],
			Y:        ys[i],
			Name:     r.Name,
			Category: r.Category,
			Color:    table.Color(r.Category),
			Score:    r.Score,
			Order:    r.Order,
			Delay:    delays[i],
			Gift:     r.Gift,
		}
	}

	edges := []Edge{}
	if opts.ShowLines {
		if n > opts.GridThreshold && opts.GridThreshold > 0 {
			edges = gridEdges(nodes, opts.EdgeThreshold, opts.LimitMin)
		} else {
			edges = pairwiseEdges(nodes, opts.EdgeThreshold)
		}
	}

	return &Scene{
		Version: Version,
		Nodes:   nodes,
		Edges:   edges,
		Config: Config{
			LimitMin:       opts.LimitMin,
			LimitMax:       opts.LimitMax,
			DurationFrames: opts.DurationFrames,
			FPS:            opts.FPS,
		},
	}, nil
}

func samplePositions(n int, opts Options) ([]float64, []float64) {
	rng := rand.New(rand.NewPCG(opts.Seed, pcgStream))
	width := opts.ContentMax - opts.ContentMin
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = opts.ContentMin + width*rng.Float64()
	}
	for i := range ys {
		ys[i] = opts.ContentMin + width*rng.Float64()
	}
	return xs, ys
}

// AssignDelays ranks rows by (category rank, order value), ties kept in row
// order, and returns rank*step indexed by the original row position.
func AssignDelays(rows []survey.Row, table *palette.Table, step int) []int {
	ranks := make([]int, len(rows))
	for i, r := range rows {
		ranks[i] = table.Rank(r.Category)
	}

	sorted := make([]int, len(rows))
	for i := range sorted {
		sorted[i] = i
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		ia, ib := sorted[a], sorted[b]
		if ranks[ia] != ranks[ib] {
			return ranks[ia] < ranks[ib]
		}
		return rows[ia].Order < rows[ib].Order
	})

	delays := make([]int, len(rows))
	for pos, id := range sorted {
		delays[id] = pos * step
	}
	return delays
}

func pairwiseEdges(nodes []Node, threshold float64) []Edge {
	edges := []Edge{}
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if within(nodes[i], nodes[j], threshold) {
				edges = append(edges, Edge{
					Source: i,
					Target: j,
					Delay:  max(nodes[i].Delay, nodes[j].Delay),
				})
			}
		}
	}
	return edges
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func invalidf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), errors.ErrInvalidInput)
}
