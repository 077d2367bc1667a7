package server

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/graph"
	"fivem/resonance/internal/logger"
	"fivem/resonance/internal/render"
	"fivem/resonance/internal/scene"
)

const (
	defaultFrameWidth  = 960
	defaultFrameHeight = 540
)

var errNoScene = errors.WithHint(
	errors.Mark(errors.New("no scene generated yet"), errors.ErrNotFound),
	"run `resonance generate` or POST /api/regenerate first")

func (s *Server) currentScene() (*scene.Scene, error) {
	sc := s.svc.Current()
	if sc == nil {
		return nil, errNoScene
	}
	return sc, nil
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	sc, err := s.currentScene()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	data, err := scene.Marshal(sc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if g, ok := s.svc.Generation(); ok {
		w.Header().Set("X-Resonance-Generation", strconv.FormatInt(g.ID, 10))
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, errors.New("regeneration rate limit exceeded, try again shortly"))
		return
	}
	g, err := s.svc.Regenerate(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.IsInvalidInput(err) || errors.IsNotFound(err) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, g)
}

type categoryCount struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

type categoriesResponse struct {
	Categories []categoryCount `json:"categories"`
	// Other counts nodes whose label is not in the table.
	Other int `json:"other"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	var counts map[string]int
	if sc := s.svc.Current(); sc != nil {
		counts = sc.CategoryCounts()
	}
	table := s.svc.Palette()
	resp := categoriesResponse{Categories: []categoryCount{}}
	for _, c := range table.Categories() {
		resp.Categories = append(resp.Categories, categoryCount{Label: c.Label, Color: c.Color, Count: counts[c.Label]})
	}
	for label, n := range counts {
		if !table.Known(label) {
			resp.Other += n
		}
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Start(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Debugw("Session started", logger.FieldSession, sess.ID)
	_ = writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	_ = writeJSON(w, http.StatusOK, sess)
}

// frameInput builds a render input from query parameters:
//
//	session   session id; elapsed time is measured from its start (default: t=0)
//	t         explicit elapsed frame units, overrides session
//	w, h      viewport size in pixels
//	variant   renderer preset, default is the configured renderer
//	filter    comma separated category labels
//	zoom      scale, applied at the cursor (cx, cy), default the viewport center
//	selected  node id
func (s *Server) frameInput(r *http.Request) (*render.Renderer, render.Input, error) {
	q := r.URL.Query()
	var in render.Input

	sc, err := s.currentScene()
	if err != nil {
		return nil, in, err
	}

	renderer := s.renderer
	if v := q.Get("variant"); v != "" {
		p, err := render.Preset(v)
		if err != nil {
			return nil, in, err
		}
		if renderer, err = render.NewRenderer(p); err != nil {
			return nil, in, err
		}
	}
	p := renderer.Params()

	width, err := queryInt(q, "w", defaultFrameWidth)
	if err != nil {
		return nil, in, err
	}
	height, err := queryInt(q, "h", defaultFrameHeight)
	if err != nil {
		return nil, in, err
	}
	maxPx := s.cfg.Server.MaxFramePx
	if width <= 0 || height <= 0 || (maxPx > 0 && (width > maxPx || height > maxPx)) {
		return nil, in, badParam("w/h", errors.Newf("size %dx%d outside 1..%d", width, height, maxPx))
	}

	t := 0.0
	if id := q.Get("session"); id != "" {
		sess, err := s.sessions.Get(r.Context(), id)
		if err != nil {
			return nil, in, err
		}
		t = p.Elapsed(sess, s.sessions.Clock().Now())
	}
	if t, err = queryFloat(q, "t", t); err != nil {
		return nil, in, err
	}

	view := render.NewView(p)
	zoom, err := queryFloat(q, "zoom", 1)
	if err != nil {
		return nil, in, err
	}
	cx, err := queryFloat(q, "cx", float64(width)/2)
	if err != nil {
		return nil, in, err
	}
	cy, err := queryFloat(q, "cy", float64(height)/2)
	if err != nil {
		return nil, in, err
	}
	view.ZoomAt(cx, cy, zoom)
	state := view.State()
	if state.Selected, err = queryInt(q, "selected", render.NoSelection); err != nil {
		return nil, in, err
	}

	bg, err := s.bg.Wait(r.Context())
	if err != nil {
		return nil, in, err
	}

	in = render.Input{
		Scene:      sc,
		T:          t,
		Viewport:   render.Viewport{Width: float64(width), Height: float64(height)},
		View:       state,
		Filter:     render.ParseFilter(q.Get("filter")),
		Background: bg,
	}
	return renderer, in, nil
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	renderer, in, err := s.frameInput(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	start := time.Now()
	f := renderer.Compose(in)
	var buf bytes.Buffer
	if err := s.ras.EncodePNG(&buf, f); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Debugw("Frame rendered", "t", f.T, "markers", len(f.Markers),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Resonance-T", strconv.FormatFloat(f.T, 'f', -1, 64))
	w.Write(buf.Bytes())
}

type pickResponse struct {
	ID   int         `json:"id"`
	Node *scene.Node `json:"node,omitempty"`
}

// handlePick hit-tests the screen point (x, y) against the frame described
// by the same parameters as /api/frame.png.
func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	renderer, in, err := s.frameInput(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	q := r.URL.Query()
	x, err := queryFloat(q, "x", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	y, err := queryFloat(q, "y", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := pickResponse{ID: renderer.Pick(in, x, y)}
	if n, ok := in.Scene.Node(resp.ID); ok {
		resp.Node = &n
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	sc, err := s.currentScene()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, graph.Analyze(graph.FromScene(sc), graph.DefaultConfig()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "sessions": s.sessions.Len()}
	if g, ok := s.svc.Generation(); ok {
		body["generation"] = g.ID
	}
	_ = writeJSON(w, http.StatusOK, body)
}
