package render

import (
	"math"

	"fivem/resonance/internal/scene"
)

// Viewport is the drawable surface size in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether nothing can be drawn.
func (v Viewport) Empty() bool {
	return !(v.Width > 0 && v.Height > 0)
}

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X, Y, W, H float64
}

// Mapping converts simulation coordinates to unzoomed pixel coordinates.
// The y axis is inverted so larger y is higher on screen.
type Mapping struct {
	Min     float64
	Span    float64
	SizeX   float64
	SizeY   float64
	OffsetX float64
	OffsetY float64
}

// NewMapping fits the scene's coordinate range into vp under the given policy.
// Contain uses the largest centered square; cover the smallest square that
// fills vp; stretch uses the full width and height independently.
func NewMapping(vp Viewport, cfg scene.Config, fit Fit) Mapping {
	m := Mapping{Min: cfg.LimitMin, Span: cfg.Span()}
	switch fit {
	case FitStretch:
		m.SizeX, m.SizeY = vp.Width, vp.Height
	case FitCover:
		s := math.Max(vp.Width, vp.Height)
		m.SizeX, m.SizeY = s, s
	default:
		s := math.Min(vp.Width, vp.Height)
		m.SizeX, m.SizeY = s, s
	}
	m.OffsetX = (vp.Width - m.SizeX) / 2
	m.OffsetY = (vp.Height - m.SizeY) / 2
	return m
}

// X maps a simulation x coordinate to pixels.
func (m Mapping) X(x float64) float64 {
	return m.OffsetX + (x-m.Min)/m.Span*m.SizeX
}

// Y maps a simulation y coordinate to pixels.
func (m Mapping) Y(y float64) float64 {
	return m.OffsetY + m.SizeY*(1-(y-m.Min)/m.Span)
}

// Length converts a simulation distance to pixels along x.
func (m Mapping) Length(d float64) float64 {
	return d / m.Span * m.SizeX
}

// Inverse maps pixel coordinates back to simulation coordinates.
func (m Mapping) Inverse(px, py float64) (x, y float64) {
	x = m.Min + (px-m.OffsetX)/m.SizeX*m.Span
	y = m.Min + (1-(py-m.OffsetY)/m.SizeY)*m.Span
	return x, y
}

// Place returns where an image of the given size goes under fit. Cover may
// return a rectangle larger than vp; the overflow is cropped evenly.
func Place(vp Viewport, imgW, imgH float64, fit Fit) Rect {
	if imgW <= 0 || imgH <= 0 || fit == FitStretch {
		return Rect{W: vp.Width, H: vp.Height}
	}
	sx, sy := vp.Width/imgW, vp.Height/imgH
	s := math.Min(sx, sy)
	if fit == FitCover {
		s = math.Max(sx, sy)
	}
	w, h := imgW*s, imgH*s
	return Rect{X: (vp.Width - w) / 2, Y: (vp.Height - h) / 2, W: w, H: h}
}
