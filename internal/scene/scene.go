// Package scene turns survey rows into the timed node-and-edge scene graph the
// renderer replays. Generation is deterministic: identical rows and options
// always produce byte-identical output.
package scene

import (
	"math"
	"sort"
)

// Version is the interchange format version written by Encode and required
// by Decode.
const Version = 1

// Node is one respondent placed in simulation space.
type Node struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
	Score    float64 `json:"score"`
	Order    float64 `json:"order"`
	Delay    int     `json:"delay"`
	Gift     string  `json:"gift,omitempty"`
}

// Edge is an undirected proximity link; Source < Target always holds.
type Edge struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Delay  int `json:"delay"`
}

// Config carries the coordinate limits and the nominal timeline.
type Config struct {
	LimitMin       float64 `json:"limit_min"`
	LimitMax       float64 `json:"limit_max"`
	DurationFrames int     `json:"duration_frames"`
	FPS            int     `json:"fps"`
}

// Span returns the width of the declared coordinate range.
func (c Config) Span() float64 {
	return c.LimitMax - c.LimitMin
}

// Scene is an immutable generated snapshot. Callers must not modify a Scene
// after it has been handed to a renderer; regeneration builds a new one.
type Scene struct {
	Version int    `json:"version"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"lines"`
	Config  Config `json:"config"`
}

// Node returns the node with the given id.
func (s *Scene) Node(id int) (Node, bool) {
	if id < 0 || id >= len(s.Nodes) {
		return Node{}, false
	}
	return s.Nodes[id], true
}

// CategoryCounts returns how many nodes carry each category label.
func (s *Scene) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	for _, n := range s.Nodes {
		counts[n.Category]++
	}
	return counts
}

// LastDelay returns the largest node delay, i.e. when the reveal completes.
func (s *Scene) LastDelay() int {
	last := 0
	for _, n := range s.Nodes {
		if n.Delay > last {
			last = n.Delay
		}
	}
	return last
}

// Degrees returns the number of edges touching each node, indexed by id.
func (s *Scene) Degrees() []int {
	deg := make([]int, len(s.Nodes))
	for _, e := range s.Edges {
		deg[e.Source]++
		deg[e.Target]++
	}
	return deg
}

// Options are the generator's tunables. The defaults reproduce the survey
// visualization constants; none of them is derived from the others.
type Options struct {
	Seed           uint64  `mapstructure:"seed"`
	ContentMin     float64 `mapstructure:"content_min"`
	ContentMax     float64 `mapstructure:"content_max"`
	LimitMin       float64 `mapstructure:"limit_min"`
	LimitMax       float64 `mapstructure:"limit_max"`
	DelayStep      int     `mapstructure:"delay_step"`
	EdgeThreshold  float64 `mapstructure:"edge_threshold"`
	DurationFrames int     `mapstructure:"duration_frames"`
	FPS            int     `mapstructure:"fps"`
	ShowLines      bool    `mapstructure:"show_lines"`
	// GridThreshold is the node count above which edges are found through a
	// uniform grid instead of the pairwise scan.
	GridThreshold int `mapstructure:"grid_threshold"`
}

// DefaultOptions returns the standard layout parameters.
func DefaultOptions() Options {
	return Options{
		Seed:           42,
		ContentMin:     -400,
		ContentMax:     400,
		LimitMin:       -500,
		LimitMax:       500,
		DelayStep:      28,
		EdgeThreshold:  160,
		DurationFrames: 4000,
		FPS:            20,
		ShowLines:      true,
		GridThreshold:  1000,
	}
}

func (o Options) validate() error {
	switch {
	case !(o.ContentMin < o.ContentMax):
		return invalidf("content box [%g, %g] is empty", o.ContentMin, o.ContentMax)
	case !(o.LimitMin < o.ContentMin && o.ContentMax < o.LimitMax):
		return invalidf("content box [%g, %g] must lie strictly inside limits [%g, %g]",
			o.ContentMin, o.ContentMax, o.LimitMin, o.LimitMax)
	case o.DelayStep <= 0:
		return invalidf("delay step must be positive, got %d", o.DelayStep)
	case o.ShowLines && !(o.EdgeThreshold > 0):
		return invalidf("edge threshold must be positive, got %g", o.EdgeThreshold)
	case o.DurationFrames <= 0:
		return invalidf("duration must be positive, got %d", o.DurationFrames)
	case o.FPS <= 0:
		return invalidf("fps must be positive, got %d", o.FPS)
	}
	return nil
}

// within reports whether two nodes are closer than threshold. Both edge
// strategies share it so they agree on borderline pairs.
func within(a, b Node, threshold float64) bool {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx+dy*dy < threshold*threshold
}

// Distance returns the Euclidean distance between two nodes.
func Distance(a, b Node) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
}
