// Package clock supplies the time sources the renderer reads. Nothing in the
// render path calls time.Now directly: a Session carries the start instant and
// a Clock or tick stream supplies "now".
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Manual is a clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new instant.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Ticks emits the wall clock every interval until ctx is done. The channel has
// a buffer of one; a slow consumer skips ticks instead of queueing them.
func Ticks(ctx context.Context, interval time.Duration) <-chan time.Time {
	out := make(chan time.Time, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				select {
				case out <- now:
				default:
				}
			}
		}
	}()
	return out
}

// Synthetic emits start, start+step, ... for count ticks and then closes the
// channel. It drives offline export at a fixed frame rate regardless of how
// long each frame takes to render.
func Synthetic(ctx context.Context, start time.Time, step time.Duration, count int) <-chan time.Time {
	out := make(chan time.Time)
	go func() {
		defer close(out)
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			case out <- start.Add(time.Duration(i) * step):
			}
		}
	}()
	return out
}
