package writer

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Transcript is the append-only resume log. Each line records one
// flushed identity as "<level>\t<canonical key>". A crashed run may
// leave a torn final line; re-reading tolerates it by skipping any line
// that does not parse.
type Transcript struct {
	path string
	file *os.File
	seen map[string]int
}

// OpenTranscript opens (or creates) the transcript at path and loads
// the identities recorded by earlier runs.
func OpenTranscript(path string) (*Transcript, error) {
	seen := make(map[string]int)

	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			level, key, ok := parseTranscriptLine(scanner.Text())
			if !ok {
				continue
			}
			if prev, dup := seen[key]; !dup || level < prev {
				seen[key] = level
			}
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read transcript %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to open transcript %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript %s for append: %w", path, err)
	}

	return &Transcript{path: path, file: f, seen: seen}, nil
}

func parseTranscriptLine(line string) (int, string, bool) {
	line = strings.TrimRight(line, "\r")
	parts := strings.SplitN(line, "\t", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", false
	}
	level, err := strconv.Atoi(parts[0])
	if err != nil || level < 0 {
		return 0, "", false
	}
	return level, parts[1], true
}

// Contains reports whether an identity was already flushed.
func (t *Transcript) Contains(key string) bool {
	_, ok := t.seen[key]
	return ok
}

// Level returns the recorded first-discovery level for an identity.
func (t *Transcript) Level(key string) (int, bool) {
	level, ok := t.seen[key]
	return level, ok
}

// Entries returns a copy of all recorded identities and their levels.
func (t *Transcript) Entries() map[string]int {
	out := make(map[string]int, len(t.seen))
	for k, v := range t.seen {
		out[k] = v
	}
	return out
}

// Append records one flushed identity. The line is synced to disk
// immediately so resume never claims more than was durably written.
func (t *Transcript) Append(key string, level int) error {
	if _, ok := t.seen[key]; ok {
		return nil
	}
	if _, err := fmt.Fprintf(t.file, "%d\t%s\n", level, key); err != nil {
		return &WriterFlushError{Path: t.path, Err: err}
	}
	if err := t.file.Sync(); err != nil {
		return &WriterFlushError{Path: t.path, Err: err}
	}
	t.seen[key] = level
	return nil
}

// Len returns the number of recorded identities.
func (t *Transcript) Len() int {
	return len(t.seen)
}

// Close closes the transcript file.
func (t *Transcript) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// RemoveTranscript deletes the transcript file. Used by reset.
func RemoveTranscript(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
