package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"fivem/resonance/internal/errors"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

var (
	calloutFill   = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}
	calloutBorder = color.RGBA{R: 0xff, G: 0xf7, B: 0xd6, A: 0xff}
	calloutText   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Rasterizer paints Frames into RGBA images with anti-aliased vector shapes
// and text in one font face. It is safe for concurrent use; font faces are created
// per Paint call.
type Rasterizer struct {
	font *opentype.Font
}

func NewRasterizer() (*Rasterizer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "parsing embedded font")
	}
	return &Rasterizer{font: f}, nil
}

// LoadRasterizer uses the font file at path, or the bundled face when path is
// empty. Collections (.ttc) use their first font.
func LoadRasterizer(path string) (*Rasterizer, error) {
	if path == "" {
		return NewRasterizer()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(errors.Mark(errors.Wrapf(err, "font %s", path), errors.ErrNotFound),
				"set render.font_path to an existing TTF/OTF file or remove it")
		}
		return nil, errors.Wrapf(err, "reading font %s", path)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		coll, cerr := opentype.ParseCollection(data)
		if cerr != nil {
			return nil, errors.Mark(errors.Wrapf(err, "parsing font %s", path), errors.ErrInvalidInput)
		}
		if f, err = coll.Font(0); err != nil {
			return nil, errors.Wrapf(err, "reading first font of %s", path)
		}
	}
	return &Rasterizer{font: f}, nil
}

// Paint renders f. Without a background image only the background color is
// drawn beneath the shapes.
func (r *Rasterizer) Paint(f *Frame) *image.RGBA {
	w, h := int(math.Ceil(f.Width)), int(math.Ceil(f.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(f.Background), image.Point{}, draw.Src)

	if bg := f.BackgroundImage; bg != nil && f.BackgroundRect != nil {
		br := f.BackgroundRect
		rect := image.Rect(
			int(math.Round(br.X)), int(math.Round(br.Y)),
			int(math.Round(br.X+br.W)), int(math.Round(br.Y+br.H)),
		)
		draw.ApproxBiLinear.Scale(dst, rect, bg, bg.Bounds(), draw.Over, nil)
	}

	p := &painter{dst: dst, z: vector.NewRasterizer(w, h), faces: make(map[float64]font.Face), font: r.font}
	defer p.close()

	for _, l := range f.Lines {
		p.line(l)
	}
	for _, m := range f.Markers {
		if m.Ripple != nil {
			p.ring(*m.Ripple)
		}
		for _, d := range m.Halos {
			p.disc(d)
		}
		if m.Label != nil {
			p.text(m.Label.X, m.Label.Y, m.Label.Text, m.Label.Size, m.Label.Color, m.Label.Opacity)
		}
	}
	if f.Callout != nil {
		p.callout(*f.Callout)
	}
	return dst
}

// EncodePNG paints f and writes it as PNG.
func (r *Rasterizer) EncodePNG(w io.Writer, f *Frame) error {
	if err := png.Encode(w, r.Paint(f)); err != nil {
		return errors.Wrap(err, "encoding frame")
	}
	return nil
}

type painter struct {
	dst   *image.RGBA
	z     *vector.Rasterizer
	font  *opentype.Font
	faces map[float64]font.Face
}

func (p *painter) close() {
	for _, f := range p.faces {
		f.Close()
	}
}

func (p *painter) visible(x, y, reach float64) bool {
	b := p.dst.Bounds()
	return x+reach >= 0 && x-reach <= float64(b.Dx()) && y+reach >= 0 && y-reach <= float64(b.Dy())
}

func (p *painter) fill(c color.RGBA, opacity float64) {
	a := clamp01(opacity)
	if a > 0 {
		src := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(a * 255))})
		p.z.DrawOp = draw.Over
		p.z.Draw(p.dst, p.dst.Bounds(), src, image.Point{})
	}
	b := p.dst.Bounds()
	p.z.Reset(b.Dx(), b.Dy())
}

func (p *painter) line(l Line) {
	dx, dy := l.X2-l.X1, l.Y2-l.Y1
	length := math.Hypot(dx, dy)
	if length == 0 || l.Opacity <= 0 {
		return
	}
	nx, ny := -dy/length*l.Width/2, dx/length*l.Width/2
	p.z.MoveTo(float32(l.X1+nx), float32(l.Y1+ny))
	p.z.LineTo(float32(l.X2+nx), float32(l.Y2+ny))
	p.z.LineTo(float32(l.X2-nx), float32(l.Y2-ny))
	p.z.LineTo(float32(l.X1-nx), float32(l.Y1-ny))
	p.z.ClosePath()
	p.fill(l.Color, l.Opacity)
}

func (p *painter) disc(d Disc) {
	if d.R <= 0 || d.Opacity <= 0 || !p.visible(d.X, d.Y, d.R) {
		return
	}
	circle(p.z, d.X, d.Y, d.R, false)
	p.fill(d.Color, d.Opacity)
}

// ring strokes a circle by filling the annulus between two opposite-winding
// circles.
func (p *painter) ring(r Ring) {
	outer := r.R + r.Width/2
	if outer <= 0 || r.Opacity <= 0 || !p.visible(r.X, r.Y, outer) {
		return
	}
	circle(p.z, r.X, r.Y, outer, false)
	if inner := r.R - r.Width/2; inner > 0 {
		circle(p.z, r.X, r.Y, inner, true)
	}
	p.fill(r.Color, r.Opacity)
}

func (p *painter) face(size float64) font.Face {
	if f, ok := p.faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(p.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil
	}
	p.faces[size] = f
	return f
}

// text draws s with its baseline starting at (x, y).
func (p *painter) text(x, y float64, s string, size float64, c color.RGBA, opacity float64) {
	a := clamp01(opacity)
	face := p.face(size)
	if a <= 0 || face == nil || s == "" {
		return
	}
	d := &font.Drawer{
		Dst:  p.dst,
		Src:  image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(a * 255))}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(s)
}

// callout draws the gift text in a box to the lower right of the marker,
// shifted to stay inside the image.
func (p *painter) callout(c Callout) {
	face := p.face(c.Size)
	if face == nil {
		return
	}
	lines := append([]string{c.Name}, strings.Split(c.Text, "\n")...)
	lineH := c.Size * 1.4
	pad := c.Size * 0.6
	textW := 0.0
	for _, l := range lines {
		if w := float64(font.MeasureString(face, l)) / 64; w > textW {
			textW = w
		}
	}
	boxW := textW + 2*pad
	boxH := float64(len(lines))*lineH + 2*pad

	b := p.dst.Bounds()
	x, y := c.X+12, c.Y+12
	if x+boxW > float64(b.Dx()) {
		x = c.X - 12 - boxW
	}
	if y+boxH > float64(b.Dy()) {
		y = c.Y - 12 - boxH
	}
	x = math.Max(0, x)
	y = math.Max(0, y)

	rect(p.z, x, y, boxW, boxH)
	p.fill(calloutFill, 0.85)
	rect(p.z, x, y, boxW, 1)
	p.fill(calloutBorder, 0.8)

	for i, l := range lines {
		op := 0.9
		if i == 0 {
			op = 0.6
		}
		p.text(x+pad, y+pad+float64(i+1)*lineH-lineH*0.3, l, c.Size, calloutText, op)
	}
}

func rect(z *vector.Rasterizer, x, y, w, h float64) {
	z.MoveTo(float32(x), float32(y))
	z.LineTo(float32(x+w), float32(y))
	z.LineTo(float32(x+w), float32(y+h))
	z.LineTo(float32(x), float32(y+h))
	z.ClosePath()
}

// circle adds a closed circle path. reverse flips the winding so that a
// reversed circle inside a forward one leaves a hole.
func circle(z *vector.Rasterizer, cx, cy, r float64, reverse bool) {
	k := kappa * r
	f := func(v float64) float32 { return float32(v) }
	z.MoveTo(f(cx+r), f(cy))
	if !reverse {
		z.CubeTo(f(cx+r), f(cy+k), f(cx+k), f(cy+r), f(cx), f(cy+r))
		z.CubeTo(f(cx-k), f(cy+r), f(cx-r), f(cy+k), f(cx-r), f(cy))
		z.CubeTo(f(cx-r), f(cy-k), f(cx-k), f(cy-r), f(cx), f(cy-r))
		z.CubeTo(f(cx+k), f(cy-r), f(cx+r), f(cy-k), f(cx+r), f(cy))
	} else {
		z.CubeTo(f(cx+r), f(cy-k), f(cx+k), f(cy-r), f(cx), f(cy-r))
		z.CubeTo(f(cx-k), f(cy-r), f(cx-r), f(cy-k), f(cx-r), f(cy))
		z.CubeTo(f(cx-r), f(cy+k), f(cx-k), f(cy+r), f(cx), f(cy+r))
		z.CubeTo(f(cx+k), f(cy+r), f(cx+r), f(cy+k), f(cx+r), f(cy))
	}
	z.ClosePath()
}
