// Package regen rebuilds the scene from the survey tables on demand. A
// failed regeneration never replaces the last good scene.
package regen

import (
	"context"
	"image"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/config"
	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/logger"
	"fivem/resonance/internal/palette"
	"fivem/resonance/internal/render"
	"fivem/resonance/internal/scene"
	"fivem/resonance/internal/store"
	"fivem/resonance/internal/survey"
)

// Event announces a successful regeneration.
type Event struct {
	Generation int64     `json:"generation"`
	Nodes      int       `json:"nodes"`
	Edges      int       `json:"edges"`
	At         time.Time `json:"at"`
}

// Service owns the current scene. Regenerations are serialized; readers never
// block on them.
type Service struct {
	cfg   *config.Config
	table *palette.Table
	db    *store.DB
	ras   *render.Rasterizer
	clock clock.Clock
	log   *zap.SugaredLogger

	mu      sync.Mutex
	current atomic.Pointer[store.Generation]
	seq     int64

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates a service. db may be nil to run without persistence; then
// generation numbers count up from 1 per process.
func New(cfg *config.Config, db *store.DB, ras *render.Rasterizer, c clock.Clock) (*Service, error) {
	table, err := cfg.Palette()
	if err != nil {
		return nil, err
	}
	if ras == nil && cfg.Output.Poster {
		if ras, err = cfg.Rasterizer(); err != nil {
			return nil, err
		}
	}
	if c == nil {
		c = clock.System{}
	}
	return &Service{
		cfg:   cfg,
		table: table,
		db:    db,
		ras:   ras,
		clock: c,
		log:   logger.ComponentLogger("regen"),
		subs:  make(map[int]chan Event),
	}, nil
}

// Current returns the last good scene, or nil before the first one.
func (s *Service) Current() *scene.Scene {
	if g := s.current.Load(); g != nil {
		return g.Scene
	}
	return nil
}

// Generation returns the metadata of the last good scene.
func (s *Service) Generation() (store.Generation, bool) {
	g := s.current.Load()
	if g == nil {
		return store.Generation{}, false
	}
	return *g, true
}

// Palette returns the category table scenes are generated with.
func (s *Service) Palette() *palette.Table { return s.table }

// Restore loads the newest stored generation, falling back to the scene
// artifact on disk. It returns ErrNotFound if neither exists.
func (s *Service) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		g, err := s.db.LatestScene(ctx)
		if err == nil {
			s.install(g)
			s.log.Infow("Restored scene from store", logger.FieldGeneration, g.ID, logger.FieldNodes, g.NodeCount)
			return nil
		}
		if !errors.IsNotFound(err) {
			return err
		}
	}

	path := s.cfg.Resolve(s.cfg.Output.ScenePath)
	sc, err := scene.ReadFile(path)
	if err != nil {
		return errors.WithHint(err, "run `resonance generate` first")
	}
	s.seq++
	s.install(store.Generation{
		ID:        s.seq,
		CreatedAt: s.clock.Now().UnixMilli(),
		Source:    filepath.Base(path),
		NodeCount: len(sc.Nodes),
		EdgeCount: len(sc.Edges),
		Scene:     sc,
	})
	s.log.Infow("Restored scene from artifact", logger.FieldPath, path, logger.FieldNodes, len(sc.Nodes))
	return nil
}

// Regenerate reads the survey tables, generates and validates a scene,
// replaces the scene artifact and the poster, stores the generation and makes
// it current. Any failure before the swap leaves the current scene as it was.
func (s *Service) Regenerate(ctx context.Context) (store.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.clock.Now()
	g, err := s.build(ctx, start)
	if err != nil {
		s.log.Warnw("Regeneration failed, keeping previous scene", logger.FieldError, err)
		return store.Generation{}, errors.Wrap(err, "regenerating scene")
	}
	s.install(g)
	s.log.Infow("Scene regenerated",
		logger.FieldGeneration, g.ID,
		logger.FieldNodes, g.NodeCount,
		logger.FieldEdges, g.EdgeCount,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	s.publish(Event{Generation: g.ID, Nodes: g.NodeCount, Edges: g.EdgeCount, At: g.Created()})
	return g, nil
}

func (s *Service) build(ctx context.Context, now time.Time) (store.Generation, error) {
	in := s.cfg.Input
	surveyPath := s.cfg.Resolve(in.SurveyPath)

	rows, err := survey.ReadRowsFile(surveyPath, in.Columns)
	if err != nil {
		return store.Generation{}, err
	}

	var gifts map[string]string
	if in.GiftsPath != "" {
		giftsPath := s.cfg.Resolve(in.GiftsPath)
		gifts, err = survey.ReadGiftsFile(giftsPath, in.Columns)
		if errors.IsNotFound(err) {
			s.log.Warnw("Gift table missing, continuing without gifts", logger.FieldPath, giftsPath)
			gifts, err = nil, nil
		}
		if err != nil {
			return store.Generation{}, err
		}
	}
	rows = survey.JoinGifts(rows, gifts, in.GiftPlaceholder)

	sc, err := scene.Generate(rows, s.table, s.cfg.Generator)
	if err != nil {
		return store.Generation{}, err
	}
	if err := scene.Validate(sc); err != nil {
		return store.Generation{}, err
	}
	if err := ctx.Err(); err != nil {
		return store.Generation{}, err
	}

	// The artifact rename commits the generation; a stored row without it is
	// deleted again.
	source := filepath.Base(surveyPath)
	var g store.Generation
	if s.db != nil {
		if g, err = s.db.SaveScene(ctx, sc, source, now); err != nil {
			return store.Generation{}, err
		}
	} else {
		g = store.Generation{
			ID:        s.seq + 1,
			CreatedAt: now.UnixMilli(),
			Source:    source,
			NodeCount: len(sc.Nodes),
			EdgeCount: len(sc.Edges),
			Scene:     sc,
		}
	}

	if err := scene.WriteFile(s.cfg.Resolve(s.cfg.Output.ScenePath), sc); err != nil {
		if s.db != nil {
			if derr := s.db.DeleteScene(context.WithoutCancel(ctx), g.ID); derr != nil {
				s.log.Warnw("Rolling back stored generation failed", logger.FieldGeneration, g.ID, logger.FieldError, derr)
			}
		}
		return store.Generation{}, err
	}

	if s.db != nil {
		if n, err := s.db.PruneScenes(ctx, s.cfg.Store.Keep); err != nil {
			s.log.Warnw("Pruning old generations failed", logger.FieldError, err)
		} else if n > 0 {
			s.log.Debugw("Pruned old generations", "removed", n)
		}
	} else {
		s.seq = g.ID
	}

	if s.cfg.Output.Poster {
		s.writePoster(sc)
	}
	return g, nil
}

// writePoster only logs failures.
func (s *Service) writePoster(sc *scene.Scene) {
	var bg image.Image
	bgPath := s.cfg.Resolve(s.cfg.Output.BackgroundPath)
	if bgPath != "" {
		img, err := render.DecodeImageFile(bgPath)
		switch {
		case errors.IsNotFound(err):
			s.log.Debugw("No poster background", logger.FieldPath, bgPath)
		case err != nil:
			s.log.Warnw("Poster background unreadable", logger.FieldPath, bgPath, logger.FieldError, err)
		default:
			bg = img
		}
	}
	path := s.cfg.Resolve(s.cfg.Output.PosterPath)
	if err := render.WritePoster(path, sc, s.cfg.Poster, bg, s.ras); err != nil {
		s.log.Warnw("Writing poster failed", logger.FieldPath, path, logger.FieldError, err)
	}
}

func (s *Service) install(g store.Generation) {
	s.current.Store(&g)
}

// Subscribe returns a channel that receives an Event after every successful
// regeneration, and a function that ends the subscription. A slow subscriber
// only ever sees the newest event.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Service) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		// Replace the stale event.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
