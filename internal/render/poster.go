package render

import (
	"bytes"
	"image"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/palette"
	"fivem/resonance/internal/scene"
)

// PosterOptions configures the static glow image. Lengths in Units are
// simulation units; the Px lengths are for a 1000 pixel poster and scale with
// Size.
type PosterOptions struct {
	Size           int     `mapstructure:"size"`
	ShowLines      bool    `mapstructure:"show_lines"`
	LineColor      string  `mapstructure:"line_color"`
	LineAlpha      float64 `mapstructure:"line_alpha"`
	RingScale      float64 `mapstructure:"ring_scale"`
	RingAlpha      float64 `mapstructure:"ring_alpha"`
	RingWidthPx    float64 `mapstructure:"ring_width_px"`
	GlowColor      string  `mapstructure:"glow_color"`
	OuterGlowUnits float64 `mapstructure:"outer_glow_units"`
	InnerGlowUnits float64 `mapstructure:"inner_glow_units"`
	CoreRadiusPx   float64 `mapstructure:"core_radius_px"`
	LabelSizePx    float64 `mapstructure:"label_size_px"`
	LabelAlpha     float64 `mapstructure:"label_alpha"`
}

func DefaultPosterOptions() PosterOptions {
	return PosterOptions{
		Size:           1000,
		ShowLines:      true,
		LineColor:      "#fff7d6",
		LineAlpha:      0.4,
		RingScale:      2.25,
		RingAlpha:      0.5,
		RingWidthPx:    2.5,
		GlowColor:      "#fff7d6",
		OuterGlowUnits: 40,
		InnerGlowUnits: 27,
		CoreRadiusPx:   4,
		LabelSizePx:    10,
		LabelAlpha:     0.9,
	}
}

// Poster composes the whole scene fully revealed on a square canvas spanning
// the scene limits: every edge, a static ring per node sized by score, the
// glow halos and the names.
func Poster(sc *scene.Scene, opts PosterOptions, bg image.Image) (*Frame, error) {
	if opts.Size <= 0 {
		return nil, errors.Newf("poster size must be positive, got %d", opts.Size)
	}
	lineColor, err := palette.ParseHex(opts.LineColor)
	if err != nil {
		return nil, err
	}
	glow, err := palette.ParseHex(opts.GlowColor)
	if err != nil {
		return nil, err
	}
	white := palette.MustParseHex("#ffffff")
	size := float64(opts.Size)
	px := size / 1000

	f := &Frame{Width: size, Height: size, Final: true, Background: palette.MustParseHex("#020617")}
	if bg != nil {
		f.BackgroundImage = bg
		f.BackgroundRect = &Rect{W: size, H: size}
	}
	if sc == nil {
		return f, nil
	}

	m := NewMapping(Viewport{Width: size, Height: size}, sc.Config, FitContain)
	if opts.ShowLines {
		for _, e := range sc.Edges {
			a, b := sc.Nodes[e.Source], sc.Nodes[e.Target]
			f.Lines = append(f.Lines, Line{
				X1: m.X(a.X), Y1: m.Y(a.Y), X2: m.X(b.X), Y2: m.Y(b.Y),
				Width: px, Color: lineColor, Opacity: opts.LineAlpha,
			})
		}
	}
	for _, n := range sc.Nodes {
		x, y := m.X(n.X), m.Y(n.Y)
		c, err := palette.ParseHex(n.Color)
		if err != nil {
			c = white
		}
		mk := Marker{ID: n.ID, X: x, Y: y, Opacity: 1, Highlighted: true}
		if r := m.Length(n.Score * opts.RingScale); r > 0 {
			mk.Ripple = &Ring{X: x, Y: y, R: r, Width: opts.RingWidthPx * px, Color: c, Opacity: opts.RingAlpha}
		}
		mk.Halos = []Disc{
			{X: x, Y: y, R: m.Length(opts.OuterGlowUnits), Color: glow, Opacity: 0.075},
			{X: x, Y: y, R: m.Length(opts.InnerGlowUnits), Color: glow, Opacity: 0.2},
			{X: x, Y: y, R: opts.CoreRadiusPx * px, Color: white, Opacity: 0.9},
		}
		if n.Name != "" {
			mk.Label = &Label{
				X: x + m.Length(5), Y: y + m.Length(5),
				Text: n.Name, Size: opts.LabelSizePx * px, Color: glow, Opacity: opts.LabelAlpha,
			}
		}
		f.Markers = append(f.Markers, mk)
	}
	return f, nil
}

// WritePoster renders the poster and atomically replaces path with the PNG.
func WritePoster(path string, sc *scene.Scene, opts PosterOptions, bg image.Image, r *Rasterizer) error {
	f, err := Poster(sc, opts, bg)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf, f); err != nil {
		return err
	}
	return scene.ReplaceFile(path, buf.Bytes())
}
