package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dbsmedya/depcrawl/internal/types"
)

// edgesPath returns the sidecar file holding the dependency edges of a
// crawl, next to its chunks.
func edgesPath(dir, prefix string) string {
	return filepath.Join(dir, prefix+"_edges.jsonl")
}

// WriteEdges persists the dependency edges of a completed crawl,
// replacing any previous edge file atomically via rename.
func WriteEdges(dir, prefix string, edges []types.DependencyEdge) error {
	path := edgesPath(dir, prefix)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return &WriterFlushError{Path: tmp, Err: err}
	}

	enc := json.NewEncoder(f)
	for _, edge := range edges {
		if err := enc.Encode(edge); err != nil {
			f.Close()
			os.Remove(tmp)
			return &WriterFlushError{Path: tmp, Err: err}
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &WriterFlushError{Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &WriterFlushError{Path: tmp, Err: err}
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &WriterFlushError{Path: path, Err: err}
	}
	return nil
}

// ReadEdges loads the dependency edges written by WriteEdges. A missing
// file is an error: the plan cannot be built without it.
func ReadEdges(dir, prefix string) ([]types.DependencyEdge, error) {
	path := edgesPath(dir, prefix)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading edge file: %w", err)
	}
	defer f.Close()

	var edges []types.DependencyEdge
	dec := json.NewDecoder(f)
	for dec.More() {
		var edge types.DependencyEdge
		if err := dec.Decode(&edge); err != nil {
			return nil, fmt.Errorf("decoding edge file %s: %w", path, err)
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// RemoveEdges deletes the edge file. Missing files are not an error.
func RemoveEdges(dir, prefix string) error {
	err := os.Remove(edgesPath(dir, prefix))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
