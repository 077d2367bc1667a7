package render

import "math"

// NoSelection is the Selected value when no node is selected.
const NoSelection = -1

// ViewState is an immutable snapshot of a View used for composition.
// Screen = Scale * (base + Pan), where base is the unzoomed pixel position.
type ViewState struct {
	Scale    float64 `json:"scale"`
	PanX     float64 `json:"pan_x"`
	PanY     float64 `json:"pan_y"`
	Selected int     `json:"selected"`
}

// Identity is the unzoomed, unpanned view with nothing selected.
func Identity() ViewState {
	return ViewState{Scale: 1, Selected: NoSelection}
}

// ToScreen maps a base pixel position to the screen.
func (s ViewState) ToScreen(bx, by float64) (float64, float64) {
	return s.Scale * (bx + s.PanX), s.Scale * (by + s.PanY)
}

// ToBase inverts ToScreen.
func (s ViewState) ToBase(sx, sy float64) (float64, float64) {
	return sx/s.Scale - s.PanX, sy/s.Scale - s.PanY
}

// View is the pan, zoom and selection state of one panel. Panels never share
// a View. A View is not safe for concurrent use; Loop guards its own.
type View struct {
	minZoom, maxZoom float64
	inStep, outStep  float64
	needModifier     bool
	slop             float64

	state ViewState

	down         bool
	downX, downY float64
	lastX, lastY float64
	dragged      bool
}

// NewView creates an identity view limited by p's zoom settings.
func NewView(p Params) *View {
	return &View{
		minZoom:      p.ZoomMin,
		maxZoom:      p.ZoomMax,
		inStep:       p.ZoomInStep,
		outStep:      p.ZoomOutStep,
		needModifier: p.ZoomModifier,
		slop:         p.ClickSlop,
		state:        Identity(),
	}
}

func (v *View) State() ViewState { return v.state }

// Reset returns to the identity view and clears the selection.
func (v *View) Reset() {
	v.state = Identity()
	v.down = false
}

// Wheel zooms one step at the cursor: in when zoomIn, out otherwise. With
// the modifier requirement set, wheel events without it are ignored and Wheel
// reports false.
func (v *View) Wheel(cx, cy float64, zoomIn, modifier bool) bool {
	if v.needModifier && !modifier {
		return false
	}
	f := v.outStep
	if zoomIn {
		f = v.inStep
	}
	v.ZoomAt(cx, cy, v.state.Scale*f)
	return true
}

// ZoomAt sets the scale, clamped to the zoom range, keeping the screen point
// (cx, cy) over the same content. Landing exactly on scale 1 snaps the pan to
// the origin. Non-finite arguments are ignored.
func (v *View) ZoomAt(cx, cy, scale float64) {
	if !finite(scale) || !finite(cx) || !finite(cy) {
		return
	}
	old := v.state.Scale
	next := math.Min(math.Max(scale, v.minZoom), v.maxZoom)
	if next == old {
		return
	}
	// Offset O = scale*pan; O' = C - (C - O) * next/old.
	ox, oy := old*v.state.PanX, old*v.state.PanY
	ox = cx - (cx-ox)*next/old
	oy = cy - (cy-oy)*next/old
	v.state.Scale = next
	v.state.PanX, v.state.PanY = ox/next, oy/next
	if next == 1 {
		v.state.PanX, v.state.PanY = 0, 0
	}
}

// Pan moves the view by a screen-space delta.
func (v *View) Pan(dx, dy float64) {
	v.state.PanX += dx / v.state.Scale
	v.state.PanY += dy / v.state.Scale
}

// PointerDown starts a press.
func (v *View) PointerDown(x, y float64) {
	v.down = true
	v.dragged = false
	v.downX, v.downY = x, y
	v.lastX, v.lastY = x, y
}

// PointerMove drags the view while the pointer is pressed. Movement stays a
// potential click until it leaves the slop radius.
func (v *View) PointerMove(x, y float64) {
	if !v.down {
		return
	}
	if !v.dragged && math.Hypot(x-v.downX, y-v.downY) >= v.slop {
		v.dragged = true
	}
	v.Pan(x-v.lastX, y-v.lastY)
	v.lastX, v.lastY = x, y
}

// PointerUp ends a press and reports whether it was a click.
func (v *View) PointerUp(x, y float64) bool {
	if !v.down {
		return false
	}
	v.PointerMove(x, y)
	v.down = false
	if v.dragged {
		return false
	}
	// A click must not shift the view.
	v.Pan(v.downX-x, v.downY-y)
	return true
}

// Select applies a click result: an id equal to the current selection
// deselects, NoSelection clears, anything else selects.
func (v *View) Select(id int) {
	if id == v.state.Selected {
		v.state.Selected = NoSelection
		return
	}
	v.state.Selected = id
}

// Clear drops the selection.
func (v *View) Clear() {
	v.state.Selected = NoSelection
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
