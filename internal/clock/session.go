package clock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"fivem/resonance/internal/errors"
)

// Session is one viewer's animation timeline. Filter changes and scene swaps
// never touch it; only a new session restarts the animation.
type Session struct {
	ID    string    `json:"id"`
	Start time.Time `json:"started_at"`
}

// NewSession starts a session at c.Now() with a fresh random id.
func NewSession(c Clock) Session {
	return Session{ID: uuid.NewString(), Start: c.Now()}
}

// Elapsed returns the time since Start in frame units. Instants before Start
// report 0.
func (s Session) Elapsed(now time.Time, unit time.Duration) float64 {
	if unit <= 0 {
		return 0
	}
	d := now.Sub(s.Start)
	if d < 0 {
		return 0
	}
	return float64(d) / float64(unit)
}

// At returns the instant that lies t frame units after Start.
func (s Session) At(t float64, unit time.Duration) time.Time {
	return s.Start.Add(time.Duration(t * float64(unit)))
}

// Persister stores sessions outside the process.
type Persister interface {
	PutSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
}

// Registry tracks live sessions by id and optionally writes them through to a
// Persister so a restarted server resumes the same timelines.
type Registry struct {
	clock   Clock
	persist Persister

	mu       sync.RWMutex
	sessions map[string]Session
}

// NewRegistry creates a registry. persist may be nil.
func NewRegistry(c Clock, persist Persister) *Registry {
	if c == nil {
		c = System{}
	}
	return &Registry{
		clock:    c,
		persist:  persist,
		sessions: make(map[string]Session),
	}
}

// Start creates, records and returns a new session.
func (r *Registry) Start(ctx context.Context) (Session, error) {
	s := NewSession(r.clock)
	if r.persist != nil {
		if err := r.persist.PutSession(ctx, s); err != nil {
			return Session{}, errors.Wrap(err, "persisting session")
		}
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Get looks a session up in memory, then in the persister. Unknown ids return
// an error marked ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}
	if r.persist == nil {
		return Session{}, errors.Mark(errors.Newf("session %s", id), errors.ErrNotFound)
	}

	s, err := r.persist.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Clock returns the registry's time source.
func (r *Registry) Clock() Clock {
	return r.clock
}
