package store

import (
	"context"
	"database/sql"
	"time"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/errors"
)

var _ clock.Persister = (*DB)(nil)

// PutSession records a session start. Re-putting an id keeps the original
// start time.
func (d *DB) PutSession(ctx context.Context, s clock.Session) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		s.ID, s.Start.UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "storing session %s", s.ID)
	}
	return nil
}

// GetSession loads a session by id.
func (d *DB) GetSession(ctx context.Context, id string) (clock.Session, error) {
	var started int64
	err := d.conn.QueryRowContext(ctx, `SELECT started_at FROM sessions WHERE id = ?`, id).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return clock.Session{}, errors.Mark(errors.Newf("session %s", id), errors.ErrNotFound)
	}
	if err != nil {
		return clock.Session{}, errors.Wrapf(err, "reading session %s", id)
	}
	return clock.Session{ID: id, Start: time.UnixMilli(started)}, nil
}

// CountSessions returns how many sessions are stored.
func (d *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "counting sessions")
	}
	return n, nil
}
