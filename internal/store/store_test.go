package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fivem/resonance/internal/clock"
	"fivem/resonance/internal/errors"
	"fivem/resonance/internal/scene"
)

// setupTestDB opens an in-memory database with the full schema.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleScene(n int) *scene.Scene {
	nodes := make([]scene.Node, n)
	for i := range nodes {
		nodes[i] = scene.Node{ID: i, X: float64(i * 10), Y: float64(-i * 10), Name: "n", Category: "安心", Color: "#0ea5e9", Score: 3, Delay: i * 28}
	}
	edges := []scene.Edge{}
	if n > 1 {
		edges = append(edges, scene.Edge{Source: 0, Target: 1, Delay: 28})
	}
	return &scene.Scene{
		Version: scene.Version,
		Nodes:   nodes,
		Edges:   edges,
		Config:  scene.Config{LimitMin: -500, LimitMax: 500, DurationFrames: 4000, FPS: 20},
	}
}

var at = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLatestScene_Empty(t *testing.T) {
	d := setupTestDB(t)
	_, err := d.LatestScene(context.Background())
	assert.True(t, errors.IsNotFound(err))
}

func TestSaveAndLoadScenes(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	first, err := d.SaveScene(ctx, sampleScene(2), "survey_data.csv", at)
	require.NoError(t, err)
	assert.Equal(t, 2, first.NodeCount)
	assert.Equal(t, 1, first.EdgeCount)

	second, err := d.SaveScene(ctx, sampleScene(5), "survey_data.csv", at.Add(time.Minute))
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	latest, err := d.LatestScene(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, sampleScene(5), latest.Scene)
	assert.Equal(t, at.Add(time.Minute), latest.Created().UTC())

	got, err := d.GetScene(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, got.Scene.Nodes, 2)

	_, err = d.GetScene(ctx, 999)
	assert.True(t, errors.IsNotFound(err))

	list, err := d.ListScenes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Nil(t, list[0].Scene, "listing does not decode payloads")

	list, err = d.ListScenes(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPruneScenes(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	for i := 0; i < 5; i++ {
		_, err := d.SaveScene(ctx, sampleScene(i+1), "", at.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	removed, err := d.PruneScenes(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	list, err := d.ListScenes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 5, list[0].NodeCount)

	removed, err = d.PruneScenes(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestDeleteScene(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)
	a, err := d.SaveScene(ctx, sampleScene(2), "", at)
	require.NoError(t, err)
	b, err := d.SaveScene(ctx, sampleScene(3), "", at.Add(time.Second))
	require.NoError(t, err)

	require.NoError(t, d.DeleteScene(ctx, b.ID))
	require.NoError(t, d.DeleteScene(ctx, b.ID), "deleting twice is fine")

	latest, err := d.LatestScene(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, latest.ID)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	s := clock.Session{ID: "abc", Start: at}
	require.NoError(t, d.PutSession(ctx, s))
	require.NoError(t, d.PutSession(ctx, clock.Session{ID: "abc", Start: at.Add(time.Hour)}))

	got, err := d.GetSession(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, at.Equal(got.Start), "re-put keeps the original start")

	n, err := d.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = d.GetSession(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestRegistryPersistsThroughStore(t *testing.T) {
	ctx := context.Background()
	d := setupTestDB(t)

	r := clock.NewRegistry(clock.NewManual(at), d)
	s, err := r.Start(ctx)
	require.NoError(t, err)

	restarted := clock.NewRegistry(clock.NewManual(at.Add(time.Hour)), d)
	got, err := restarted.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, s.Start.Equal(got.Start))
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	d, err := Open(path)
	require.NoError(t, err)
	_, err = d.SaveScene(context.Background(), sampleScene(1), "", at)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()
	g, err := d.LatestScene(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.NodeCount)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	t.Setenv(EnvVar, "")
	path, err := Discover("")
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(nested)
	got, _ := filepath.EvalSymlinks(filepath.Dir(path))
	assert.Equal(t, want, got, "falls back to the working directory")

	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), nil, 0o644))
	path, err = Discover("")
	require.NoError(t, err)
	assert.Equal(t, FileName, filepath.Base(path))
	wantRoot, _ := filepath.EvalSymlinks(root)
	gotRoot, _ := filepath.EvalSymlinks(filepath.Dir(path))
	assert.Equal(t, wantRoot, gotRoot, "walks up to the nearest database")

	path, err = Discover("/tmp/explicit.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.db", path)

	t.Setenv(EnvVar, "/tmp/env.db")
	path, err = Discover("/tmp/explicit.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", path, "env wins over the flag")
}
