package scene

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/palette"
	"fivem/resonance/internal/survey"
)

// testRows builds n rows cycling through the default categories plus one
// unknown label.
func testRows(n int) []survey.Row {
	cats := []string{"安心", "挑戦", "確信", "充足", "静観", "その他"}
	rows := make([]survey.Row, n)
	for i := range rows {
		score := float64((i*7)%10 + 1)
		rows[i] = survey.Row{
			Name:     fmt.Sprintf("r%03d", i),
			Category: cats[i%len(cats)],
			Score:    score,
			Order:    score,
		}
	}
	return rows
}

func generate(t *testing.T, rows []survey.Row, opts Options) *Scene {
	t.Helper()
	s, err := Generate(rows, palette.Default(), opts)
	require.NoError(t, err)
	return s
}

func TestGenerate_ScenarioDelays(t *testing.T) {
	rows := []survey.Row{
		{Name: "a", Category: "安心", Score: 3, Order: 3},
		{Name: "b", Category: "安心", Score: 1, Order: 1},
		{Name: "c", Category: "挑戦", Score: 5, Order: 5},
		{Name: "d", Category: "挑戦", Score: 2, Order: 2},
		{Name: "e", Category: "確信", Score: 9, Order: 9},
	}
	s := generate(t, rows, DefaultOptions())

	got := make([]int, len(s.Nodes))
	for i, n := range s.Nodes {
		got[i] = n.Delay
	}
	assert.Equal(t, []int{28, 0, 84, 56, 112}, got)
}

func TestGenerate_Deterministic(t *testing.T) {
	rows := testRows(120)
	a, err := Marshal(generate(t, rows, DefaultOptions()))
	require.NoError(t, err)
	b, err := Marshal(generate(t, rows, DefaultOptions()))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b), "two runs must encode identically")

	other := DefaultOptions()
	other.Seed = 7
	c, err := Marshal(generate(t, rows, other))
	require.NoError(t, err)
	assert.False(t, bytes.Equal(a, c), "a different seed must move nodes")
}

func TestGenerate_PositionsInsideContentBox(t *testing.T) {
	opts := DefaultOptions()
	s := generate(t, testRows(300), opts)
	for _, n := range s.Nodes {
		assert.GreaterOrEqual(t, n.X, opts.ContentMin)
		assert.Less(t, n.X, opts.ContentMax)
		assert.GreaterOrEqual(t, n.Y, opts.ContentMin)
		assert.Less(t, n.Y, opts.ContentMax)
	}
}

func TestGenerate_IDsFollowRowOrder(t *testing.T) {
	rows := testRows(20)
	s := generate(t, rows, DefaultOptions())
	for i, n := range s.Nodes {
		assert.Equal(t, i, n.ID)
		assert.Equal(t, rows[i].Name, n.Name)
	}
}

func TestGenerate_DelayOrdering(t *testing.T) {
	rows := testRows(90)
	tbl := palette.Default()
	s := generate(t, rows, DefaultOptions())

	less := func(i, j int) bool {
		ri, rj := tbl.Rank(rows[i].Category), tbl.Rank(rows[j].Category)
		if ri != rj {
			return ri < rj
		}
		return rows[i].Order < rows[j].Order
	}
	for i := range rows {
		for j := range rows {
			if i == j {
				continue
			}
			if less(i, j) {
				assert.Less(t, s.Nodes[i].Delay, s.Nodes[j].Delay, "rows %d, %d", i, j)
			}
			if !less(i, j) && !less(j, i) && i < j {
				// identical tuples: original order breaks the tie
				assert.Less(t, s.Nodes[i].Delay, s.Nodes[j].Delay)
			}
		}
	}
}

func TestGenerate_DelaysArePermutationOfSteps(t *testing.T) {
	s := generate(t, testRows(40), DefaultOptions())
	seen := make(map[int]bool)
	for _, n := range s.Nodes {
		assert.Zero(t, n.Delay%28)
		assert.False(t, seen[n.Delay], "delay %d assigned twice", n.Delay)
		seen[n.Delay] = true
	}
	assert.Equal(t, 39*28, s.LastDelay())
}

func TestGenerate_EdgeInvariants(t *testing.T) {
	opts := DefaultOptions()
	s := generate(t, testRows(150), opts)
	require.NoError(t, Validate(s))

	edgeSet := make(map[[2]int]Edge)
	for _, e := range s.Edges {
		assert.Less(t, e.Source, e.Target)
		assert.Equal(t, max(s.Nodes[e.Source].Delay, s.Nodes[e.Target].Delay), e.Delay)
		edgeSet[[2]int{e.Source, e.Target}] = e
	}
	assert.Len(t, edgeSet, len(s.Edges), "no pair may appear twice")

	for i := range s.Nodes {
		for j := i + 1; j < len(s.Nodes); j++ {
			_, has := edgeSet[[2]int{i, j}]
			want := Distance(s.Nodes[i], s.Nodes[j]) < opts.EdgeThreshold
			assert.Equal(t, want, has, "pair %d-%d", i, j)
		}
	}
}

func TestGenerate_GridMatchesPairwise(t *testing.T) {
	rows := testRows(400)

	pairwise := DefaultOptions()
	pairwise.GridThreshold = 0
	grid := DefaultOptions()
	grid.GridThreshold = 10

	a := generate(t, rows, pairwise)
	b := generate(t, rows, grid)
	require.NotEmpty(t, a.Edges)
	assert.Equal(t, a.Edges, b.Edges)
}

func TestGenerate_NoLines(t *testing.T) {
	opts := DefaultOptions()
	opts.ShowLines = false
	s := generate(t, testRows(50), opts)
	assert.Empty(t, s.Edges)
	assert.NotNil(t, s.Edges)
}

func TestGenerate_EmptyInput(t *testing.T) {
	s := generate(t, nil, DefaultOptions())
	assert.Empty(t, s.Nodes)
	assert.Empty(t, s.Edges)
	assert.Equal(t, Version, s.Version)
	require.NoError(t, Validate(s))
}

func TestGenerate_UnknownCategoryFallsBack(t *testing.T) {
	rows := []survey.Row{
		{Name: "x", Category: "???", Score: 1, Order: 1},
		{Name: "y", Category: "", Score: 1, Order: 0},
		{Name: "z", Category: "静観", Score: 1, Order: 5},
	}
	s := generate(t, rows, DefaultOptions())
	assert.Equal(t, palette.FallbackColor, s.Nodes[0].Color)
	assert.Equal(t, "???", s.Nodes[0].Category)
	// unknown labels rank after every known label
	assert.Equal(t, 0, s.Nodes[2].Delay)
	assert.Equal(t, 28, s.Nodes[1].Delay)
	assert.Equal(t, 56, s.Nodes[0].Delay)
}

func TestGenerate_CarriesGift(t *testing.T) {
	rows := []survey.Row{{Name: "a", Category: "安心", Score: 1, Order: 1, Gift: "tea"}}
	s := generate(t, rows, DefaultOptions())
	assert.Equal(t, "tea", s.Nodes[0].Gift)
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	_, err := Generate([]survey.Row{{Name: "a", Score: math.NaN()}}, nil, DefaultOptions())
	assert.True(t, errors.IsInvalidInput(err))

	opts := DefaultOptions()
	opts.ContentMax = 600
	_, err = Generate(testRows(3), nil, opts)
	assert.True(t, errors.IsInvalidInput(err))

	opts = DefaultOptions()
	opts.DelayStep = 0
	_, err = Generate(testRows(3), nil, opts)
	assert.Error(t, err)
}

func TestDecode_RejectsIncompatible(t *testing.T) {
	cases := map[string]string{
		"no version":     `{"nodes":[],"lines":[],"config":{"limit_min":-500,"limit_max":500}}`,
		"future version": `{"version":2,"nodes":[],"lines":[],"config":{"limit_min":-500,"limit_max":500}}`,
		"no nodes":       `{"version":1,"config":{"limit_min":-500,"limit_max":500}}`,
		"bad id":         `{"version":1,"nodes":[{"id":3}],"config":{"limit_min":-500,"limit_max":500}}`,
		"bad edge":       `{"version":1,"nodes":[{"id":0},{"id":1}],"lines":[{"source":1,"target":0}],"config":{"limit_min":-500,"limit_max":500}}`,
		"not json":       `nodes: []`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrIncompatibleScene))
		})
	}
}

func TestDecode_AcceptsGenerated(t *testing.T) {
	s := generate(t, testRows(30), DefaultOptions())
	data, err := Marshal(s)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestValidate_EdgeDelay(t *testing.T) {
	s := &Scene{
		Version: Version,
		Nodes:   []Node{{ID: 0, Delay: 0}, {ID: 1, Delay: 28}},
		Edges:   []Edge{{Source: 0, Target: 1, Delay: 0}},
		Config:  Config{LimitMin: -500, LimitMax: 500},
	}
	assert.Error(t, Validate(s))
	s.Edges[0].Delay = 28
	assert.NoError(t, Validate(s))
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "animation_data.json")

	first := generate(t, testRows(5), DefaultOptions())
	require.NoError(t, WriteFile(path, first))
	second := generate(t, testRows(8), DefaultOptions())
	require.NoError(t, WriteFile(path, second))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 8)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.IsNotFound(err))
}

func TestGrid_Near(t *testing.T) {
	nodes := []Node{{ID: 0, X: 0, Y: 0}, {ID: 1, X: 150, Y: 0}, {ID: 2, X: 400, Y: 400}}
	g := NewGrid(nodes, 160, -500)
	var got []int
	g.Near(0, 0, func(id int) { got = append(got, id) })
	assert.ElementsMatch(t, []int{0, 1}, got)
}
