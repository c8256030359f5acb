// Package writer persists crawl output incrementally: scored records go
// to numbered JSONL chunk files at checkpoint boundaries, and a resume
// transcript records which identities have already been flushed.
package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/dbsmedya/depcrawl/internal/logger"
	"github.com/dbsmedya/depcrawl/internal/types"
)

// WriterFlushError indicates a checkpoint could not be written
// durably. It is fatal: continuing would corrupt resume semantics.
type WriterFlushError struct {
	Path string
	Err  error
}

func (e *WriterFlushError) Error() string {
	return fmt.Sprintf("failed to flush checkpoint %s: %v", e.Path, e.Err)
}

func (e *WriterFlushError) Unwrap() error {
	return e.Err
}

// ChunkWriter buffers records and flushes them as numbered JSONL chunk
// files. Each flush is all-or-nothing: the chunk is written to a temp
// file and renamed into place, so a crash never leaves a half-written
// chunk behind. A crash between checkpoints loses at most
// checkpointSize records.
type ChunkWriter struct {
	dir            string
	prefix         string
	checkpointSize int
	log            *logger.Logger

	buf       []types.DiscoveredObjectRecord
	nextChunk int
	written   int
}

// NewChunkWriter creates a writer for the given output directory and
// prefix. Existing chunks from an earlier interrupted run are kept;
// numbering continues after them.
func NewChunkWriter(dir, prefix string, checkpointSize int, log *logger.Logger) (*ChunkWriter, error) {
	if checkpointSize < 1 {
		return nil, fmt.Errorf("checkpoint size must be at least 1, got %d", checkpointSize)
	}
	if log == nil {
		log = logger.NewDefault()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	next, err := nextChunkNumber(dir, prefix)
	if err != nil {
		return nil, err
	}

	return &ChunkWriter{
		dir:            dir,
		prefix:         prefix,
		checkpointSize: checkpointSize,
		log:            log,
		nextChunk:      next,
	}, nil
}

// Append buffers one record, flushing a chunk when the checkpoint size
// is reached.
func (w *ChunkWriter) Append(record types.DiscoveredObjectRecord) error {
	w.buf = append(w.buf, record)
	if len(w.buf) >= w.checkpointSize {
		return w.Flush()
	}
	return nil
}

// Flush writes any buffered records as one chunk. Safe to call with an
// empty buffer.
func (w *ChunkWriter) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}

	path := w.ChunkPath(w.nextChunk)
	tmp := path + ".tmp"

	if err := w.writeChunk(tmp); err != nil {
		os.Remove(tmp)
		return &WriterFlushError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &WriterFlushError{Path: path, Err: err}
	}

	w.log.Debugw("Checkpoint flushed", "chunk", path, "records", len(w.buf))
	w.written += len(w.buf)
	w.nextChunk++
	w.buf = w.buf[:0]
	return nil
}

func (w *ChunkWriter) writeChunk(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	for _, record := range w.buf {
		if err := enc.Encode(record); err != nil {
			f.Close()
			return err
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Written returns the number of records flushed so far.
func (w *ChunkWriter) Written() int {
	return w.written
}

// Buffered returns the number of records not yet flushed.
func (w *ChunkWriter) Buffered() int {
	return len(w.buf)
}

// ChunkPath returns the path of chunk n.
func (w *ChunkWriter) ChunkPath(n int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%05d.jsonl", w.prefix, n))
}

var chunkNamePattern = regexp.MustCompile(`^(.+)_(\d{5})\.jsonl$`)

func nextChunkNumber(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to scan output directory: %w", err)
	}

	next := 1
	for _, entry := range entries {
		m := chunkNamePattern.FindStringSubmatch(entry.Name())
		if m == nil || m[1] != prefix {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return next, nil
}

// ListChunks returns the chunk files for a prefix in chunk order.
func ListChunks(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan output directory: %w", err)
	}

	var chunks []string
	for _, entry := range entries {
		m := chunkNamePattern.FindStringSubmatch(entry.Name())
		if m == nil || m[1] != prefix {
			continue
		}
		chunks = append(chunks, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(chunks)
	return chunks, nil
}

// ReadChunks loads every record from a prefix's chunk files, in the
// order they were written.
func ReadChunks(dir, prefix string) ([]types.DiscoveredObjectRecord, error) {
	chunks, err := ListChunks(dir, prefix)
	if err != nil {
		return nil, err
	}

	var records []types.DiscoveredObjectRecord
	for _, chunk := range chunks {
		f, err := os.Open(chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to open chunk %s: %w", chunk, err)
		}

		dec := json.NewDecoder(f)
		for {
			var record types.DiscoveredObjectRecord
			if err := dec.Decode(&record); err != nil {
				break
			}
			records = append(records, record)
		}
		f.Close()
	}

	return records, nil
}

// RemoveChunks deletes every chunk file for a prefix. Used by reset.
func RemoveChunks(dir, prefix string) (int, error) {
	chunks, err := ListChunks(dir, prefix)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	for i, chunk := range chunks {
		if err := os.Remove(chunk); err != nil {
			return i, fmt.Errorf("failed to remove chunk %s: %w", chunk, err)
		}
	}
	return len(chunks), nil
}
