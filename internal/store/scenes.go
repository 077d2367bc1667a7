package store

import (
	"context"
	"database/sql"
	"time"

	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/scene"
)

// Generation is one stored scene. Scene is only populated by the getters that
// decode the payload.
type Generation struct {
	ID        int64        `json:"id"`
	CreatedAt int64        `json:"created_at"` // Unix millis
	Source    string       `json:"source"`
	NodeCount int          `json:"node_count"`
	EdgeCount int          `json:"edge_count"`
	Scene     *scene.Scene `json:"-"`
}

// Created returns CreatedAt as a time.
func (g Generation) Created() time.Time {
	return time.UnixMilli(g.CreatedAt)
}

// SaveScene stores sc as a new generation and returns its metadata.
func (d *DB) SaveScene(ctx context.Context, sc *scene.Scene, source string, at time.Time) (Generation, error) {
	payload, err := scene.Marshal(sc)
	if err != nil {
		return Generation{}, errors.Wrap(err, "encoding scene")
	}
	g := Generation{
		CreatedAt: at.UnixMilli(),
		Source:    source,
		NodeCount: len(sc.Nodes),
		EdgeCount: len(sc.Edges),
		Scene:     sc,
	}

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return Generation{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scenes (created_at, source, node_count, edge_count, payload) VALUES (?, ?, ?, ?, ?)`,
		g.CreatedAt, g.Source, g.NodeCount, g.EdgeCount, payload)
	if err != nil {
		return Generation{}, errors.Wrap(err, "inserting scene")
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return Generation{}, errors.Wrap(err, "reading scene id")
	}
	if err := tx.Commit(); err != nil {
		return Generation{}, errors.Wrap(err, "committing scene")
	}
	return g, nil
}

// scanGeneration scans id, created_at, source, node_count, edge_count in that order.
func scanGeneration(scanner interface{ Scan(dest ...any) error }, extra ...any) (Generation, error) {
	var g Generation
	dest := append([]any{&g.ID, &g.CreatedAt, &g.Source, &g.NodeCount, &g.EdgeCount}, extra...)
	err := scanner.Scan(dest...)
	return g, err
}

// LatestScene returns the most recent generation with its decoded scene, or
// an error marked ErrNotFound when nothing has been stored.
func (d *DB) LatestScene(ctx context.Context) (Generation, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, created_at, source, node_count, edge_count, payload
		FROM scenes ORDER BY id DESC LIMIT 1
	`)
	return decodeRow(row, "latest scene")
}

// GetScene returns one generation with its decoded scene.
func (d *DB) GetScene(ctx context.Context, id int64) (Generation, error) {
	row := d.conn.QueryRowContext(ctx, `
		SELECT id, created_at, source, node_count, edge_count, payload
		FROM scenes WHERE id = ?
	`, id)
	return decodeRow(row, "scene")
}

func decodeRow(row *sql.Row, what string) (Generation, error) {
	var payload []byte
	g, err := scanGeneration(row, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Generation{}, errors.Mark(errors.Newf("%s not stored", what), errors.ErrNotFound)
	}
	if err != nil {
		return Generation{}, errors.Wrapf(err, "reading %s", what)
	}
	if g.Scene, err = scene.Unmarshal(payload); err != nil {
		return Generation{}, errors.Wrapf(err, "decoding stored scene %d", g.ID)
	}
	return g, nil
}

// ListScenes returns generation metadata, newest first. limit <= 0 means all.
func (d *DB) ListScenes(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, created_at, source, node_count, edge_count
		FROM scenes ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing scenes")
	}
	defer rows.Close()

	var gens []Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// DeleteScene removes one generation. Deleting a missing id is not an error.
func (d *DB) DeleteScene(ctx context.Context, id int64) error {
	if _, err := d.conn.ExecContext(ctx, `DELETE FROM scenes WHERE id = ?`, id); err != nil {
		return errors.Wrapf(err, "deleting scene %d", id)
	}
	return nil
}

// PruneScenes deletes all but the newest keep generations and returns how
// many were removed. keep <= 0 keeps everything.
func (d *DB) PruneScenes(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := d.conn.ExecContext(ctx, `
		DELETE FROM scenes WHERE id NOT IN (
			SELECT id FROM scenes ORDER BY id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, errors.Wrap(err, "pruning scenes")
	}
	return res.RowsAffected()
}
