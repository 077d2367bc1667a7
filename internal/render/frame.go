package render

import (
	"image"
	"image/color"
	"math"
	"sync"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/palette"
	"fivem/resonance/internal/scene"
)

// Input is everything one frame depends on.
type Input struct {
	Scene    *scene.Scene
	T        float64 // elapsed frame units
	Viewport Viewport
	View     ViewState
	Filter   Filter
	// Background is the optional background image.
	Background image.Image
}

// Frame is a composed frame: screen-space primitives in paint order. Lines
// are painted first, then each marker's ripple, halos, core and label in node
// id order, then the callout.
type Frame struct {
	Width      float64
	Height     float64
	T          float64
	Final      bool
	Background color.RGBA
	// BackgroundImage is painted into BackgroundRect; both are nil without
	// a background.
	BackgroundImage image.Image
	BackgroundRect  *Rect
	Lines           []Line
	Markers         []Marker
	Callout         *Callout
}

type Line struct {
	X1, Y1, X2, Y2 float64
	Width          float64
	Color          color.RGBA
	Opacity        float64
}

type Ring struct {
	X, Y, R float64
	Width   float64
	Color   color.RGBA
	Opacity float64
}

type Disc struct {
	X, Y, R float64
	Color   color.RGBA
	Opacity float64
}

type Label struct {
	X, Y    float64
	Text    string
	Size    float64
	Color   color.RGBA
	Opacity float64
}

// Marker is one node as drawn. Opacity is the node opacity after fade-in and
// filter dimming.
type Marker struct {
	ID          int
	X, Y        float64
	Opacity     float64
	Highlighted bool
	Ripple      *Ring
	Halos       []Disc
	Label       *Label
}

// Callout shows the selected node's gift next to its marker.
type Callout struct {
	NodeID int
	X, Y   float64
	Name   string
	Text   string
	Size   float64
}

// Marker returns the marker for node id, if it was drawn.
func (f *Frame) Marker(id int) (Marker, bool) {
	for _, m := range f.Markers {
		if m.ID == id {
			return m, true
		}
	}
	return Marker{}, false
}

// Renderer composes frames under one parameter set. It is safe for concurrent
// use.
type Renderer struct {
	p Params

	edge, glow, core, label, bg color.RGBA

	mu     sync.RWMutex
	colors map[string]color.RGBA
}

// NewRenderer validates p and returns a renderer.
func NewRenderer(p Params) (*Renderer, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "render params")
	}
	return &Renderer{
		p:      p,
		edge:   palette.MustParseHex(p.EdgeColor),
		glow:   palette.MustParseHex(p.GlowColor),
		core:   palette.MustParseHex(p.CoreColor),
		label:  palette.MustParseHex(p.LabelColor),
		bg:     palette.MustParseHex(p.BackgroundColor),
		colors: make(map[string]color.RGBA),
	}, nil
}

func (r *Renderer) Params() Params { return r.p }

// Compose builds the frame for in. It reads nothing but in and the renderer's
// parameters, so equal inputs give equal frames.
func (r *Renderer) Compose(in Input) *Frame {
	view := normalizeView(in.View)
	t := in.T
	if r.p.Bounded && t > float64(r.p.DurationFrames) {
		t = float64(r.p.DurationFrames)
	}

	f := &Frame{
		Width:      in.Viewport.Width,
		Height:     in.Viewport.Height,
		T:          t,
		Final:      r.p.Bounded && t >= float64(r.p.DurationFrames),
		Background: r.bg,
	}
	if in.Background != nil {
		size := in.Background.Bounds().Size()
		rect := Place(in.Viewport, float64(size.X), float64(size.Y), r.p.BackgroundFit)
		x, y := view.ToScreen(rect.X, rect.Y)
		f.BackgroundImage = in.Background
		f.BackgroundRect = &Rect{X: x, Y: y, W: rect.W * view.Scale, H: rect.H * view.Scale}
	}
	sc := in.Scene
	if sc == nil || in.Viewport.Empty() {
		return f
	}

	m := NewMapping(in.Viewport, sc.Config, r.p.ContentFit)
	screen := func(n scene.Node) (float64, float64) {
		return view.ToScreen(m.X(n.X), m.Y(n.Y))
	}
	units := func(d float64) float64 { return m.Length(d) * view.Scale }

	for _, e := range sc.Edges {
		a, b := sc.Nodes[e.Source], sc.Nodes[e.Target]
		if !Visible(t, e.Delay) || !in.Filter.EdgeVisible(a, b) {
			continue
		}
		op := r.p.EdgeOpacity(t, e.Delay)
		if op <= 0 {
			continue
		}
		x1, y1 := screen(a)
		x2, y2 := screen(b)
		f.Lines = append(f.Lines, Line{X1: x1, Y1: y1, X2: x2, Y2: y2, Width: r.p.EdgeWidthPx, Color: r.edge, Opacity: op})
	}

	outerR := units(r.p.OuterGlowUnits)
	innerR := units(r.p.InnerGlowUnits)
	for _, n := range sc.Nodes {
		if !Visible(t, n.Delay) {
			continue
		}
		hl := in.Filter.Highlights(n.Category)
		if !hl && r.p.FilterMode == FilterHide {
			continue
		}
		op := r.p.Fade(t, n.Delay)
		if !hl {
			op *= r.p.DimFactor
		}
		x, y := screen(n)
		mk := Marker{ID: n.ID, X: x, Y: y, Opacity: op, Highlighted: hl}

		reach := math.Max(outerR, r.p.CoreRadiusPx)
		if hl {
			phase := r.p.RipplePhase(t, n.Delay)
			if rr := units(r.p.RippleRadius(phase, n.Score)); rr > 0 {
				mk.Ripple = &Ring{X: x, Y: y, R: rr, Width: r.p.RippleWidthPx, Color: r.nodeColor(n.Color), Opacity: r.p.RippleOpacity(phase)}
				reach = math.Max(reach, rr+r.p.RippleWidthPx)
			}
		}
		if r.p.ShowGlow {
			mk.Halos = append(mk.Halos,
				Disc{X: x, Y: y, R: outerR, Color: r.glow, Opacity: op * r.p.OuterGlowAlpha},
				Disc{X: x, Y: y, R: innerR, Color: r.glow, Opacity: op * r.p.InnerGlowAlpha},
			)
		}
		mk.Halos = append(mk.Halos, Disc{X: x, Y: y, R: r.p.CoreRadiusPx, Color: r.core, Opacity: op * r.p.CoreAlpha})
		if r.p.ShowLabels && op > 0 && n.Name != "" {
			mk.Label = &Label{
				X: x + r.p.LabelOffsetXPx, Y: y + r.p.LabelOffsetYPx,
				Text: n.Name, Size: r.p.LabelSizePx, Color: r.label, Opacity: op * r.p.LabelAlpha,
			}
		}

		if n.ID != view.Selected && offscreen(x, y, reach, mk.Label, in.Viewport) {
			continue
		}
		f.Markers = append(f.Markers, mk)
	}

	if sel, ok := sc.Node(view.Selected); ok && sel.Gift != "" {
		if mk, drawn := f.Marker(sel.ID); drawn && mk.Opacity > 0 {
			f.Callout = &Callout{NodeID: sel.ID, X: mk.X, Y: mk.Y, Name: sel.Name, Text: sel.Gift, Size: r.p.CalloutSizePx}
		}
	}
	return f
}

// Pick returns the id of the visible node nearest to screen point (sx, sy)
// within HitRadius screen pixels, or NoSelection. The point is taken back to
// unzoomed space and compared against HitRadius/scale there.
func (r *Renderer) Pick(in Input, sx, sy float64) int {
	sc := in.Scene
	if sc == nil || in.Viewport.Empty() {
		return NoSelection
	}
	view := normalizeView(in.View)
	m := NewMapping(in.Viewport, sc.Config, r.p.ContentFit)
	bx, by := view.ToBase(sx, sy)
	radius := r.p.HitRadius / view.Scale

	best, bestD := NoSelection, math.Inf(1)
	for _, n := range sc.Nodes {
		if !Visible(in.T, n.Delay) {
			continue
		}
		if r.p.FilterMode == FilterHide && !in.Filter.Highlights(n.Category) {
			continue
		}
		d := math.Hypot(m.X(n.X)-bx, m.Y(n.Y)-by)
		if d <= radius && d < bestD {
			best, bestD = n.ID, d
		}
	}
	return best
}

func (r *Renderer) nodeColor(hex string) color.RGBA {
	r.mu.RLock()
	c, ok := r.colors[hex]
	r.mu.RUnlock()
	if ok {
		return c
	}
	c, err := palette.ParseHex(hex)
	if err != nil {
		c = palette.MustParseHex(palette.FallbackColor)
	}
	r.mu.Lock()
	r.colors[hex] = c
	r.mu.Unlock()
	return c
}

func normalizeView(v ViewState) ViewState {
	if !(v.Scale > 0) {
		v.Scale = 1
	}
	return v
}

// offscreen reports whether a marker of the given reach, and its label, lie
// entirely outside vp.
func offscreen(x, y, reach float64, l *Label, vp Viewport) bool {
	minX, maxX := x-reach, x+reach
	minY, maxY := y-reach, y+reach
	if l != nil {
		// generous bound on label extent
		maxX = math.Max(maxX, l.X+l.Size*float64(len([]rune(l.Text))))
		minY = math.Min(minY, l.Y-l.Size)
	}
	return maxX < 0 || minX > vp.Width || maxY < 0 || minY > vp.Height
}
