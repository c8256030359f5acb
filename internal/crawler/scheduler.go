package crawler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dbsmedya/depcrawl/internal/logger"
	"github.com/dbsmedya/depcrawl/internal/sqlname"
	"github.com/dbsmedya/depcrawl/internal/types"
)

// Partition is one unit of scheduler work: a slice of a level's
// frontier scoped to a single database, at most batchSize references.
type Partition struct {
	Database string
	Level    int
	Seq      int
	Refs     []sqlname.ObjectReference
}

// Names returns the distinct object names carried by the partition, in
// input order.
func (p Partition) Names() []string {
	seen := make(map[string]bool, len(p.Refs))
	names := make([]string, 0, len(p.Refs))
	for _, ref := range p.Refs {
		key := sqlname.ObjectReference{Name: ref.Name}.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, ref.Name)
	}
	return names
}

// partitionFrontier groups a frontier by database and splits each
// database's slice into batchSize-bounded partitions. Databases are
// visited in sorted order so partition numbering is deterministic.
func partitionFrontier(level int, frontier []sqlname.ObjectReference, batchSize int) []Partition {
	byDB := make(map[string][]sqlname.ObjectReference)
	var order []string
	for _, ref := range frontier {
		key := sqlname.ObjectReference{Database: ref.Database}.Key()
		if _, ok := byDB[key]; !ok {
			order = append(order, key)
		}
		byDB[key] = append(byDB[key], ref)
	}
	sort.Strings(order)

	var partitions []Partition
	seq := 0
	for _, db := range order {
		refs := byDB[db]
		for start := 0; start < len(refs); start += batchSize {
			end := start + batchSize
			if end > len(refs) {
				end = len(refs)
			}
			partitions = append(partitions, Partition{
				Database: refs[start].Database,
				Level:    level,
				Seq:      seq,
				Refs:     refs[start:end],
			})
			seq++
		}
	}
	return partitions
}

// partitionResult is what one partition task hands back to the merge.
type partitionResult struct {
	partition Partition
	records   []types.DiscoveredObjectRecord
	edges     []types.DependencyEdge
	err       *types.PartitionError
}

// Scheduler runs partition tasks on a fixed-size worker pool with a
// per-task timeout. Pool width is bounded by catalog connection
// capacity, not CPU count; the work is I/O.
type Scheduler struct {
	workers int
	timeout time.Duration
	log     *logger.Logger
}

// NewScheduler creates a scheduler with the given pool width and
// per-partition timeout.
func NewScheduler(workers int, timeout time.Duration, log *logger.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Scheduler{workers: workers, timeout: timeout, log: log}
}

// RunLevel executes every partition of one level and blocks until all
// of them finish, success or failure. This is the level barrier: the
// next frontier depends on the complete merge of the current one.
// Results are returned in partition order regardless of completion
// order.
func (s *Scheduler) RunLevel(ctx context.Context, partitions []Partition, run func(context.Context, Partition) partitionResult) []partitionResult {
	if len(partitions) == 0 {
		return nil
	}

	jobs := make(chan Partition)
	results := make([]partitionResult, len(partitions))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				results[p.Seq] = s.runOne(ctx, p, run)
			}
		}()
	}

	for _, p := range partitions {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	return results
}

func (s *Scheduler) runOne(ctx context.Context, p Partition, run func(context.Context, Partition) partitionResult) partitionResult {
	tctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	result := run(tctx, p)

	log := s.log.WithPartition(p.Database, p.Seq).WithLevel(p.Level)
	if result.err != nil {
		log.Warnw("Partition failed",
			"names", len(p.Refs),
			"duration", time.Since(started),
			"error", result.err.Err,
		)
	} else {
		log.Debugw("Partition complete",
			"names", len(p.Refs),
			"candidates", len(result.records),
			"duration", time.Since(started),
		)
	}
	return result
}
