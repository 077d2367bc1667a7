// Package server exposes the current scene, rendered frames, sessions and
// analytics over HTTP, and announces regenerations over a websocket.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/config"
	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/logger"
	"fivem/resonance/internal/regen"
	"fivem/resonance/internal/render"
)

// Server serves one regeneration service.
type Server struct {
	cfg      *config.Config
	svc      *regen.Service
	sessions *clock.Registry
	renderer *render.Renderer
	ras      *render.Rasterizer
	bg       *render.Asset
	limiter  *rate.Limiter
	hub      *Hub
	mux      *http.ServeMux
	log      *zap.SugaredLogger
}

// New wires the routes. The background asset starts loading immediately.
func New(cfg *config.Config, svc *regen.Service, sessions *clock.Registry, ras *render.Rasterizer) (*Server, error) {
	renderer, err := render.NewRenderer(cfg.Render.Params)
	if err != nil {
		return nil, err
	}
	if ras == nil {
		if ras, err = cfg.Rasterizer(); err != nil {
			return nil, err
		}
	}

	limit := rate.Inf
	if cfg.Server.RegeneratePerMinute > 0 {
		limit = rate.Limit(cfg.Server.RegeneratePerMinute / 60.0)
	}
	burst := max(cfg.Server.RegenerateBurst, 1)

	s := &Server{
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		renderer: renderer,
		ras:      ras,
		bg:       render.LoadAsset(cfg.Resolve(cfg.Output.BackgroundPath)),
		limiter:  rate.NewLimiter(limit, burst),
		hub:      newHub(cfg.Server.PingInterval),
		mux:      http.NewServeMux(),
		log:      logger.ComponentLogger("server"),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/scene", s.handleScene)
	s.mux.HandleFunc("POST /api/regenerate", s.handleRegenerate)
	s.mux.HandleFunc("GET /api/categories", s.handleCategories)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("GET /api/frame.png", s.handleFrame)
	s.mux.HandleFunc("GET /api/pick", s.handlePick)
	s.mux.HandleFunc("GET /api/analysis", s.handleAnalysis)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Handler returns the HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.mux.ServeHTTP(w, r)
		s.log.Debugw("Request", "method", r.Method, "path", r.URL.Path,
			logger.FieldDurationMS, time.Since(start).Milliseconds())
	})
}

// Start runs the websocket hub and the regeneration relay until ctx is done.
func (s *Server) Start(ctx context.Context) {
	s.hub.ctx = ctx
	go s.hub.run(ctx)
	go s.hub.relay(ctx, s.svc)
}

// Run starts the hub and serves on the configured address until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.Start(ctx)

	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Infow("Serving", logger.FieldAddress, srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrapf(err, "serving on %s", srv.Addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	var hello []byte
	if g, ok := s.svc.Generation(); ok {
		hello, _ = json.Marshal(sceneMessage(regen.Event{
			Generation: g.ID, Nodes: g.NodeCount, Edges: g.EdgeCount, At: g.Created(),
		}))
	}
	s.hub.serve(w, r, hello)
}
