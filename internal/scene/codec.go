package scene

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"fivem/resonance/internal/errors"
)

// Encode writes s as indented JSON. The output depends only on s, so equal
// scenes encode to equal bytes.
func Encode(w io.Writer, s *Scene) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Marshal is Encode into a byte slice.
func Marshal(s *Scene) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a scene document and rejects anything the renderer cannot
// replay: another format version, missing top-level keys, or a graph that
// fails Validate. Rejections are marked with ErrIncompatibleScene.
func Decode(r io.Reader) (*Scene, error) {
	var doc struct {
		Version *int    `json:"version"`
		Nodes   *[]Node `json:"nodes"`
		Edges   *[]Edge `json:"lines"`
		Config  *Config `json:"config"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, incompatible(errors.Wrap(err, "decoding scene"))
	}
	if doc.Version == nil || *doc.Version != Version {
		got := "missing"
		if doc.Version != nil {
			got = strconv.Itoa(*doc.Version)
		}
		return nil, errors.WithHint(
			incompatible(errors.Newf("scene format version %s, want %d", got, Version)),
			"regenerate the scene with this version of resonance")
	}
	if doc.Nodes == nil || doc.Config == nil {
		return nil, incompatible(errors.New("scene document needs nodes and config"))
	}

	s := &Scene{Version: *doc.Version, Nodes: *doc.Nodes, Config: *doc.Config}
	if doc.Edges != nil {
		s.Edges = *doc.Edges
	} else {
		s.Edges = []Edge{}
	}
	if err := Validate(s); err != nil {
		return nil, incompatible(err)
	}
	return s, nil
}

// Unmarshal is Decode from a byte slice.
func Unmarshal(data []byte) (*Scene, error) {
	return Decode(bytes.NewReader(data))
}

// Validate checks the structural invariants: contiguous ids, edges between
// existing nodes with source < target, no repeated pair, edge delay equal to
// the later endpoint's delay.
func Validate(s *Scene) error {
	if !(s.Config.LimitMin < s.Config.LimitMax) {
		return errors.Newf("limits [%g, %g] are empty", s.Config.LimitMin, s.Config.LimitMax)
	}
	for i, n := range s.Nodes {
		if n.ID != i {
			return errors.Newf("node at index %d has id %d", i, n.ID)
		}
		if n.Delay < 0 {
			return errors.Newf("node %d has negative delay %d", i, n.Delay)
		}
	}
	seen := make(map[[2]int]bool, len(s.Edges))
	for i, e := range s.Edges {
		if e.Source < 0 || e.Target >= len(s.Nodes) || e.Source >= e.Target {
			return errors.Newf("edge %d (%d-%d) is out of range or unordered", i, e.Source, e.Target)
		}
		key := [2]int{e.Source, e.Target}
		if seen[key] {
			return errors.Newf("edge %d-%d appears twice", e.Source, e.Target)
		}
		seen[key] = true
		if want := max(s.Nodes[e.Source].Delay, s.Nodes[e.Target].Delay); e.Delay != want {
			return errors.Newf("edge %d-%d has delay %d, want %d", e.Source, e.Target, e.Delay, want)
		}
	}
	return nil
}

// WriteFile atomically replaces path with the encoded scene: the document is
// written to a temporary file in the same directory and renamed over path, so
// readers see either the previous scene or the new one.
func WriteFile(path string, s *Scene) error {
	data, err := Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encoding scene")
	}
	return ReplaceFile(path, data)
}

// ReadFile loads and validates a scene document.
func ReadFile(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "scene %s", path), errors.ErrNotFound)
		}
		return nil, errors.Wrapf(err, "opening scene %s", path)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return s, nil
}

// ReplaceFile writes data to a temporary sibling of path and renames it into
// place.
func ReplaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temporary file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, "writing temporary file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, "syncing temporary file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrap(err, "closing temporary file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.Wrapf(err, "replacing %s", path)
	}
	return nil
}

func incompatible(err error) error {
	return errors.Mark(err, errors.ErrIncompatibleScene)
}
