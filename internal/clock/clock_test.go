package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fivem/resonance/internal/errors"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSessionElapsed(t *testing.T) {
	s := Session{ID: "s", Start: epoch}
	unit := 50 * time.Millisecond

	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{"at start", epoch, 0},
		{"one unit", epoch.Add(50 * time.Millisecond), 1},
		{"one second", epoch.Add(time.Second), 20},
		{"fraction", epoch.Add(75 * time.Millisecond), 1.5},
		{"before start", epoch.Add(-time.Second), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Elapsed(tt.now, unit), 1e-9)
		})
	}
	assert.Zero(t, s.Elapsed(epoch.Add(time.Hour), 0))
}

func TestSessionAtInvertsElapsed(t *testing.T) {
	s := Session{Start: epoch}
	unit := 50 * time.Millisecond
	assert.InDelta(t, 400.0, s.Elapsed(s.At(400, unit), unit), 1e-9)
}

func TestManual(t *testing.T) {
	m := NewManual(epoch)
	assert.Equal(t, epoch, m.Now())
	assert.Equal(t, epoch.Add(time.Second), m.Advance(time.Second))
	m.Set(epoch)
	assert.Equal(t, epoch, m.Now())
}

func TestSynthetic(t *testing.T) {
	ctx := context.Background()
	var got []time.Time
	for tick := range Synthetic(ctx, epoch, 50*time.Millisecond, 4) {
		got = append(got, tick)
	}
	require.Len(t, got, 4)
	assert.Equal(t, epoch, got[0])
	assert.Equal(t, epoch.Add(150*time.Millisecond), got[3])
}

func TestSyntheticStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticks := Synthetic(ctx, epoch, time.Millisecond, 1_000_000)
	<-ticks
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ticks:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("synthetic stream did not close after cancel")
		}
	}
}

type memPersister struct {
	sessions map[string]Session
	puts     int
}

func (m *memPersister) PutSession(_ context.Context, s Session) error {
	m.puts++
	m.sessions[s.ID] = s
	return nil
}

func (m *memPersister) GetSession(_ context.Context, id string) (Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, errors.Mark(errors.Newf("session %s", id), errors.ErrNotFound)
	}
	return s, nil
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	m := NewManual(epoch)
	p := &memPersister{sessions: map[string]Session{}}
	r := NewRegistry(m, p)

	s, err := r.Start(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, epoch, s.Start)
	assert.Equal(t, 1, p.puts)

	got, err := r.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	m.Advance(time.Minute)
	other, err := r.Start(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, epoch.Add(time.Minute), other.Start)
	assert.Equal(t, 2, r.Len())

	_, err = r.Get(ctx, "nope")
	assert.True(t, errors.IsNotFound(err))
}

func TestRegistryResumesPersisted(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{sessions: map[string]Session{
		"old": {ID: "old", Start: epoch},
	}}
	r := NewRegistry(NewManual(epoch.Add(time.Hour)), p)

	s, err := r.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, epoch, s.Start)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryWithoutPersister(t *testing.T) {
	r := NewRegistry(nil, nil)
	_, err := r.Get(context.Background(), "missing")
	assert.True(t, errors.IsNotFound(err))

	s, err := r.Start(context.Background())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), s.Start, time.Minute)
}
