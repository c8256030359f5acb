// Package crawler implements the multi-level dependency traversal:
// frontier expansion, batched definition resolution, the parallel
// per-partition scheduler, and the crawl orchestrator.
package crawler

import (
	"sort"
	"sync"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
)

// IndexEntry is what the dedup index retains per discovered object:
// identity and first-discovery level only. Definition text is dropped
// after scoring to bound memory across large crawls.
type IndexEntry struct {
	Ref   sqlname.ObjectReference
	Level int
}

// Index is the global dedup index. Entries are sharded per database,
// each shard guarded by its own mutex and kept in discovery order, so
// concurrent partitions of different databases never contend.
type Index struct {
	mu   sync.RWMutex
	byDB map[string]*indexShard
}

type indexShard struct {
	mu      sync.Mutex
	entries *orderedmap.OrderedMap[string, IndexEntry]
}

// NewIndex creates an empty index. Lifecycle is one crawl run.
func NewIndex() *Index {
	return &Index{byDB: make(map[string]*indexShard)}
}

func (ix *Index) shard(database string) *indexShard {
	key := sqlname.ObjectReference{Database: database}.Key()

	ix.mu.RLock()
	s, ok := ix.byDB[key]
	ix.mu.RUnlock()
	if ok {
		return s
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if s, ok := ix.byDB[key]; ok {
		return s
	}
	s = &indexShard{entries: orderedmap.NewOrderedMap[string, IndexEntry]()}
	ix.byDB[key] = s
	return s
}

// Admit records a reference at the given level. It returns true only
// for a first discovery. A reference seen before keeps its existing
// level unless the new one is strictly shallower, and is never
// reported as new again.
func (ix *Index) Admit(ref sqlname.ObjectReference, level int) bool {
	s := ix.shard(ref.Database)
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ref.Key()
	if existing, ok := s.entries.Get(key); ok {
		if level < existing.Level {
			existing.Level = level
			s.entries.Set(key, existing)
		}
		return false
	}
	s.entries.Set(key, IndexEntry{Ref: ref, Level: level})
	return true
}

// Has reports whether a reference was already discovered.
func (ix *Index) Has(ref sqlname.ObjectReference) bool {
	_, ok := ix.Level(ref)
	return ok
}

// Level returns the first-discovery level of a reference.
func (ix *Index) Level(ref sqlname.ObjectReference) (int, bool) {
	s := ix.shard(ref.Database)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries.Get(ref.Key())
	if !ok {
		return 0, false
	}
	return entry.Level, true
}

// Entries returns every entry, databases in sorted order and entries
// within a database in discovery order.
func (ix *Index) Entries() []IndexEntry {
	ix.mu.RLock()
	dbs := make([]string, 0, len(ix.byDB))
	for db := range ix.byDB {
		dbs = append(dbs, db)
	}
	ix.mu.RUnlock()
	sort.Strings(dbs)

	var out []IndexEntry
	for _, db := range dbs {
		ix.mu.RLock()
		s := ix.byDB[db]
		ix.mu.RUnlock()

		s.mu.Lock()
		for el := s.entries.Front(); el != nil; el = el.Next() {
			out = append(out, el.Value)
		}
		s.mu.Unlock()
	}
	return out
}

// Len returns the total number of entries across all databases.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := 0
	for _, s := range ix.byDB {
		s.mu.Lock()
		n += s.entries.Len()
		s.mu.Unlock()
	}
	return n
}
