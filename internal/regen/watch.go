package regen

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/logger"
)

// Watch regenerates whenever one of the input tables is written, created or
// renamed into place, with changes coalesced over debounce. It watches the
// containing directories so editors that replace files are seen too. Watch
// blocks until ctx is done.
func (s *Service) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		return errors.Newf("watch debounce must be positive, got %s", debounce)
	}

	inputs := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range []string{s.cfg.Input.SurveyPath, s.cfg.Input.GiftsPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(s.cfg.Resolve(p))
		if err != nil {
			return errors.Wrapf(err, "resolving %s", p)
		}
		inputs[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer watcher.Close()

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}
	s.log.Infow("Watching survey tables", "files", len(inputs), "debounce", debounce)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			if ctx.Err() != nil {
				return
			}
			// Regenerate logs its own failures.
			_, _ = s.Regenerate(ctx)
		})
	}

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !inputs[abs] || event.Op&relevant == 0 {
				continue
			}
			s.log.Debugw("Input changed", logger.FieldPath, abs, "op", event.Op.String())
			schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}
