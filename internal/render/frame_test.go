package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/scene"
)

// fixtureScene places three nodes on a 1000x1000 viewport where simulation
// (x, y) maps to pixel (x+500, 500-y).
func fixtureScene() *scene.Scene {
	return &scene.Scene{
		Version: scene.Version,
		Nodes: []scene.Node{
			{ID: 0, X: 0, Y: 0, Name: "a", Category: "安心", Color: "#0ea5e9", Score: 8, Delay: 0, Gift: "tea"},
			{ID: 1, X: 100, Y: 0, Name: "b", Category: "挑戦", Color: "#f97316", Score: 5, Delay: 28},
			{ID: 2, X: -300, Y: 300, Name: "c", Category: "確信", Color: "#eab308", Score: 2, Delay: 56},
		},
		Edges:  []scene.Edge{{Source: 0, Target: 1, Delay: 28}},
		Config: scene.Config{LimitMin: -500, LimitMax: 500, DurationFrames: 4000, FPS: 20},
	}
}

var square = Viewport{Width: 1000, Height: 1000}

func newRenderer(t *testing.T, p Params) *Renderer {
	t.Helper()
	r, err := NewRenderer(p)
	require.NoError(t, err)
	return r
}

func input(t float64) Input {
	return Input{Scene: fixtureScene(), T: t, Viewport: square, View: Identity()}
}

func TestCompose_Reveal(t *testing.T) {
	r := newRenderer(t, PanelParams())

	f := r.Compose(input(0))
	require.Len(t, f.Markers, 1)
	assert.Equal(t, 0, f.Markers[0].ID)
	assert.Zero(t, f.Markers[0].Opacity)
	assert.Nil(t, f.Markers[0].Label, "no label while fully transparent")
	assert.Empty(t, f.Lines)

	f = r.Compose(input(1000))
	require.Len(t, f.Markers, 3)
	require.Len(t, f.Lines, 1)
	assert.InDelta(t, 0.4, f.Lines[0].Opacity, 1e-12)
	assert.Equal(t, 500.0, f.Lines[0].X1)
	assert.Equal(t, 600.0, f.Lines[0].X2)

	m := f.Markers[2]
	assert.Equal(t, 200.0, m.X)
	assert.Equal(t, 200.0, m.Y)
	require.NotNil(t, m.Label)
	assert.Equal(t, 208.0, m.Label.X)
	assert.Equal(t, 195.0, m.Label.Y)
	assert.InDelta(t, 0.7, m.Label.Opacity, 1e-12)
}

func TestCompose_Deterministic(t *testing.T) {
	r := newRenderer(t, PanelParams())
	in := input(777.5)
	in.View = ViewState{Scale: 2.5, PanX: -40, PanY: 12, Selected: 0}
	in.Filter = NewFilter("安心")
	assert.Equal(t, r.Compose(in), r.Compose(in))
}

func TestCompose_RippleInPixels(t *testing.T) {
	r := newRenderer(t, PanelParams())

	f := r.Compose(input(160))
	mk, ok := f.Marker(0)
	require.True(t, ok)
	require.NotNil(t, mk.Ripple)
	assert.InDelta(t, 9, mk.Ripple.R, 1e-9) // 0.25 * 8 * 4.5 units, 1px per unit
	assert.InDelta(t, 0.9, mk.Ripple.Opacity, 1e-9)

	in := input(160)
	in.View = ViewState{Scale: 2, Selected: NoSelection}
	f = r.Compose(in)
	mk, ok = f.Marker(0)
	require.True(t, ok)
	assert.InDelta(t, 18, mk.Ripple.R, 1e-9, "ripples grow with zoom")
	assert.Equal(t, 1000.0, mk.X)
}

func TestCompose_FilterDims(t *testing.T) {
	r := newRenderer(t, PanelParams())
	in := input(1000)
	in.Filter = NewFilter("安心")
	f := r.Compose(in)

	hl, _ := f.Marker(0)
	dim, _ := f.Marker(1)
	assert.Equal(t, 1.0, hl.Opacity)
	assert.NotNil(t, hl.Ripple)
	assert.InDelta(t, 0.1, dim.Opacity, 1e-12)
	assert.Nil(t, dim.Ripple, "ripples only for highlighted nodes")
	assert.Len(t, f.Lines, 1, "edge touching a highlighted node stays")

	in.Filter = NewFilter("確信")
	f = r.Compose(in)
	assert.Empty(t, f.Lines, "edge between two filtered-out nodes is not drawn")
}

func TestCompose_FilterHides(t *testing.T) {
	p := PanelParams()
	p.FilterMode = FilterHide
	r := newRenderer(t, p)
	in := input(1000)
	in.Filter = NewFilter("安心")
	f := r.Compose(in)

	require.Len(t, f.Markers, 1)
	assert.Equal(t, 0, f.Markers[0].ID)
	assert.Equal(t, -1, r.Pick(in, 600, 500), "hidden nodes cannot be picked")
}

func TestCompose_Callout(t *testing.T) {
	r := newRenderer(t, PanelParams())
	in := input(1000)
	in.View.Selected = 0
	f := r.Compose(in)
	require.NotNil(t, f.Callout)
	assert.Equal(t, "tea", f.Callout.Text)
	assert.Equal(t, 500.0, f.Callout.X)

	in.View.Selected = 1
	assert.Nil(t, r.Compose(in).Callout, "nodes without a gift show nothing")
}

func TestCompose_BoundedClamps(t *testing.T) {
	p := FullViewportParams()
	p.DurationFrames = 100
	r := newRenderer(t, p)

	f := r.Compose(input(99))
	assert.False(t, f.Final)
	f = r.Compose(input(250))
	assert.True(t, f.Final)
	assert.Equal(t, 100.0, f.T)
}

func TestPick(t *testing.T) {
	r := newRenderer(t, PanelParams())
	in := input(1000)

	assert.Equal(t, NoSelection, r.Pick(in, 520, 500), "20px away with a 15px radius")
	assert.Equal(t, 0, r.Pick(in, 510, 500))
	assert.Equal(t, 1, r.Pick(in, 590, 505))
	assert.Equal(t, NoSelection, r.Pick(input(10), 600, 500), "not yet revealed")

	in.View = ViewState{Scale: 2, Selected: NoSelection}
	assert.Equal(t, NoSelection, r.Pick(in, 1020, 1000))
	assert.Equal(t, 0, r.Pick(in, 1010, 1000))
}

func TestPaint(t *testing.T) {
	ras, err := NewRasterizer()
	require.NoError(t, err)
	r := newRenderer(t, PanelParams())

	in := input(1000)
	in.Viewport = Viewport{Width: 200, Height: 200}
	f := r.Compose(in)
	img := ras.Paint(f)
	assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

	bg := color.RGBA{R: 0x02, G: 0x06, B: 0x17, A: 0xff}
	assert.Equal(t, bg, img.RGBAAt(5, 195))
	center := img.RGBAAt(100, 100)
	assert.Greater(t, center.R, uint8(200), "core dot is near white")

	var buf bytes.Buffer
	require.NoError(t, ras.EncodePNG(&buf, f))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestPaint_RingHasHole(t *testing.T) {
	ras, err := NewRasterizer()
	require.NoError(t, err)
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	f := &Frame{
		Width: 100, Height: 100,
		Background: color.RGBA{A: 0xff},
		Markers: []Marker{{
			ID: 0, X: 50, Y: 50, Opacity: 1,
			Ripple: &Ring{X: 50, Y: 50, R: 20, Width: 4, Color: white, Opacity: 1},
		}},
	}
	img := ras.Paint(f)
	assert.Equal(t, color.RGBA{A: 0xff}, img.RGBAAt(50, 50))
	assert.Greater(t, img.RGBAAt(70, 50).R, uint8(200))
}

func TestPaint_Background(t *testing.T) {
	ras, err := NewRasterizer()
	require.NoError(t, err)
	r := newRenderer(t, PanelParams())

	red := image.NewUniform(color.RGBA{R: 0xff, A: 0xff})
	bg := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			bg.Set(x, y, red)
		}
	}
	f := r.Compose(Input{Viewport: Viewport{Width: 40, Height: 20}, View: Identity(), Background: bg})
	require.NotNil(t, f.BackgroundRect)
	assert.Equal(t, Rect{X: 0, Y: -10, W: 40, H: 40}, *f.BackgroundRect)

	img := ras.Paint(f)
	assert.Greater(t, img.RGBAAt(20, 10).R, uint8(200))
}

func TestPoster(t *testing.T) {
	sc := fixtureScene()
	f, err := Poster(sc, DefaultPosterOptions(), nil)
	require.NoError(t, err)
	assert.Len(t, f.Markers, 3)
	assert.Len(t, f.Lines, 1)
	assert.True(t, f.Final)

	ring := f.Markers[0].Ripple
	require.NotNil(t, ring)
	assert.InDelta(t, 8*2.25, ring.R, 1e-9)
	assert.Equal(t, 0.5, ring.Opacity)

	opts := DefaultPosterOptions()
	opts.ShowLines = false
	f, err = Poster(sc, opts, nil)
	require.NoError(t, err)
	assert.Empty(t, f.Lines)

	opts.Size = 0
	_, err = Poster(sc, opts, nil)
	assert.Error(t, err)
}

func TestLoadRasterizer(t *testing.T) {
	ras, err := LoadRasterizer("")
	require.NoError(t, err)
	assert.NotNil(t, ras)

	dir := t.TempDir()
	_, err = LoadRasterizer(filepath.Join(dir, "missing.ttf"))
	assert.True(t, errors.IsNotFound(err))

	junk := filepath.Join(dir, "junk.ttf")
	require.NoError(t, os.WriteFile(junk, []byte("not a font"), 0o644))
	_, err = LoadRasterizer(junk)
	assert.True(t, errors.IsInvalidInput(err))
}
