package render

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/logger"
	"fivem/resonance/internal/scene"
)

// Sink receives composed frames.
type Sink interface {
	Present(ctx context.Context, f *Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f *Frame) error

func (fn SinkFunc) Present(ctx context.Context, f *Frame) error { return fn(ctx, f) }

// Loop drives one view: it waits for the background asset once, then composes
// a frame per tick and hands it to the sink. Scene, viewport, filter and
// pointer input may change from other goroutines while it runs; none of them
// touch the session, so the animation never restarts.
type Loop struct {
	r       *Renderer
	session clock.Session
	asset   *Asset
	sink    Sink
	log     *zap.SugaredLogger

	scene atomic.Pointer[scene.Scene]

	mu       sync.Mutex
	viewport Viewport
	view     *View
	filter   Filter
	lastT    float64
	bg       image.Image
}

// NewLoop creates a loop for session. asset may be nil for no background.
func NewLoop(r *Renderer, session clock.Session, vp Viewport, sink Sink, asset *Asset) *Loop {
	if asset == nil {
		asset = StaticAsset(nil)
	}
	return &Loop{
		r:        r,
		session:  session,
		asset:    asset,
		sink:     sink,
		log:      logger.ComponentLogger("render").With(logger.FieldSession, session.ID),
		viewport: vp,
		view:     NewView(r.Params()),
	}
}

func (l *Loop) Session() clock.Session { return l.session }

func (l *Loop) Params() Params { return l.r.Params() }

// SetScene swaps the scene shown from the next tick on.
func (l *Loop) SetScene(sc *scene.Scene) {
	l.scene.Store(sc)
}

func (l *Loop) Scene() *scene.Scene { return l.scene.Load() }

// Resize changes the viewport used from the next tick on.
func (l *Loop) Resize(vp Viewport) {
	l.mu.Lock()
	l.viewport = vp
	l.mu.Unlock()
}

// SetFilter replaces the category filter.
func (l *Loop) SetFilter(f Filter) {
	l.mu.Lock()
	l.filter = f
	l.mu.Unlock()
}

func (l *Loop) Filter() Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// View returns a snapshot of the navigation state.
func (l *Loop) View() ViewState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view.State()
}

func (l *Loop) PointerDown(x, y float64) {
	l.mu.Lock()
	l.view.PointerDown(x, y)
	l.mu.Unlock()
}

func (l *Loop) PointerMove(x, y float64) {
	l.mu.Lock()
	l.view.PointerMove(x, y)
	l.mu.Unlock()
}

// PointerUp ends a press. A click selects the nearest visible node as of the
// last composed frame, deselects it if it was already selected, or clears the
// selection over empty space.
func (l *Loop) PointerUp(x, y float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.view.PointerUp(x, y) {
		return
	}
	id := l.r.Pick(l.inputLocked(l.lastT), x, y)
	if id == NoSelection {
		l.view.Clear()
		return
	}
	l.view.Select(id)
}

// Wheel zooms at the cursor. See View.Wheel.
func (l *Loop) Wheel(cx, cy float64, zoomIn, modifier bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view.Wheel(cx, cy, zoomIn, modifier)
}

// ZoomAt sets the zoom scale at a screen point. See View.ZoomAt.
func (l *Loop) ZoomAt(cx, cy, scale float64) {
	l.mu.Lock()
	l.view.ZoomAt(cx, cy, scale)
	l.mu.Unlock()
}

// Select toggles the selection of a node by id.
func (l *Loop) Select(id int) {
	l.mu.Lock()
	l.view.Select(id)
	l.mu.Unlock()
}

// Run composes one frame per tick until ctx is done, ticks closes, or, for
// bounded parameters, the frame at DurationFrames has been presented. It
// returns the number of frames presented.
func (l *Loop) Run(ctx context.Context, ticks <-chan time.Time) (int, error) {
	bg, err := l.asset.Wait(ctx)
	if err != nil {
		return 0, err
	}
	if aerr := l.asset.Err(); aerr != nil {
		l.log.Warnw("Background unavailable, drawing solid color", logger.FieldError, aerr)
	}
	l.mu.Lock()
	l.bg = bg
	l.mu.Unlock()

	p := l.r.Params()
	frames := 0
	for {
		select {
		case <-ctx.Done():
			return frames, ctx.Err()
		case now, ok := <-ticks:
			if !ok {
				return frames, nil
			}
			t := p.Elapsed(l.session, now)
			f := l.compose(t)
			if err := l.sink.Present(ctx, f); err != nil {
				return frames, errors.Wrapf(err, "presenting frame at t=%.1f", f.T)
			}
			frames++
			if f.Final {
				l.log.Debugw("Bounded animation finished", "frames", frames)
				return frames, nil
			}
		}
	}
}

// ComposeAt composes the frame for an explicit instant without advancing the
// loop.
func (l *Loop) ComposeAt(now time.Time) *Frame {
	return l.compose(l.r.Params().Elapsed(l.session, now))
}

func (l *Loop) compose(t float64) *Frame {
	l.mu.Lock()
	l.lastT = t
	in := l.inputLocked(t)
	l.mu.Unlock()
	return l.r.Compose(in)
}

func (l *Loop) inputLocked(t float64) Input {
	return Input{
		Scene:      l.scene.Load(),
		T:          t,
		Viewport:   l.viewport,
		View:       l.view.State(),
		Filter:     l.filter,
		Background: l.bg,
	}
}
