package crawler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dbsmedya/depcrawl/internal/catalog"
	"github.com/dbsmedya/depcrawl/internal/config"
	"github.com/dbsmedya/depcrawl/internal/logger"
	"github.com/dbsmedya/depcrawl/internal/sqlname"
	"github.com/dbsmedya/depcrawl/internal/types"
)

// Catalog is the per-database query surface the crawl needs.
// catalog.Client satisfies it.
type Catalog interface {
	Database() string
	LookupDefinitions(ctx context.Context, refs []sqlname.ObjectReference) ([]types.ResolvedObject, error)
	LookupReferencingObjects(ctx context.Context, names []string) ([]catalog.Reference, error)
	LookupReferencingByText(ctx context.Context, name string) ([]catalog.Reference, error)
	LookupTriggersOn(ctx context.Context, tableNames []string) ([]catalog.Reference, error)
}

// CatalogProvider hands out a Catalog for a database, opening the
// connection pool on first use.
type CatalogProvider interface {
	Catalog(ctx context.Context, database string) (Catalog, error)
}

// ManagerProvider adapts a catalog.Manager to the CatalogProvider
// interface.
type ManagerProvider struct {
	Manager *catalog.Manager
}

func (p *ManagerProvider) Catalog(ctx context.Context, database string) (Catalog, error) {
	db, err := p.Manager.Pool(ctx, database)
	if err != nil {
		return nil, err
	}
	return catalog.NewClient(db, database), nil
}

// RecordSink receives discovered records. writer.ChunkWriter satisfies
// it. Any error it returns aborts the crawl.
type RecordSink interface {
	Append(record types.DiscoveredObjectRecord) error
	Flush() error
}

// TranscriptLog is the durable record of which objects have already
// been written, keyed by canonical identity. writer.Transcript
// satisfies it.
type TranscriptLog interface {
	Contains(key string) bool
	Append(key string, level int) error
}

// Result is the outcome of one crawl run.
type Result struct {
	Discovered int
	Written    int
	Skipped    int
	Edges      []types.DependencyEdge
	Stats      []types.LevelStats
	Failed     []*types.PartitionError
}

// Crawler walks the reference graph outward from a set of root tables,
// one level at a time. Level N runs only after every partition of
// level N-1 has finished, so an object's recorded level is always its
// shortest distance from a root.
type Crawler struct {
	cfg            config.CrawlConfig
	defaultSchemas []string
	provider       CatalogProvider
	sched          *Scheduler
	index          *Index
	sink           RecordSink
	transcript     TranscriptLog
	log            *logger.Logger

	// traces maps an object key to the sorted set of root tables it
	// transitively reaches.
	traces map[string][]string
}

// New creates a crawler. sink and transcript may not be nil; transcript
// entries from a previous interrupted run make the corresponding
// records skip the sink on this run.
func New(cfg config.CrawlConfig, defaultSchemas []string, provider CatalogProvider, sink RecordSink, transcript TranscriptLog, log *logger.Logger) *Crawler {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Crawler{
		cfg:            cfg,
		defaultSchemas: defaultSchemas,
		provider:       provider,
		sched:          NewScheduler(cfg.MaxWorkers, cfg.PartitionTimeout, log),
		index:          NewIndex(),
		sink:           sink,
		transcript:     transcript,
		log:            log,
		traces:         make(map[string][]string),
	}
}

// Run crawls up to cfg.MaxLevel hops out from the given root tables.
// Partition failures are collected in the result, not returned as an
// error; only sink and transcript failures abort the run.
func (c *Crawler) Run(ctx context.Context, roots []sqlname.ObjectReference) (*Result, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no root tables")
	}

	frontier := make([]sqlname.ObjectReference, 0, len(roots))
	for _, root := range roots {
		if !c.index.Admit(root, 0) {
			continue
		}
		c.traces[root.Key()] = []string{displayName(root)}
		frontier = append(frontier, root)
	}
	c.log.Infow("Crawl starting",
		"roots", len(frontier),
		"max_level", c.cfg.MaxLevel,
		"workers", c.cfg.MaxWorkers,
	)

	result := &Result{}
	for level := 1; level <= c.cfg.MaxLevel; level++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if len(frontier) == 0 {
			c.log.Infow("Frontier exhausted", "level", level-1)
			break
		}

		next, stats, err := c.runLevel(ctx, level, frontier, result)
		if err != nil {
			return result, err
		}
		result.Stats = append(result.Stats, stats)
		frontier = next
	}

	if err := c.sink.Flush(); err != nil {
		return result, err
	}
	c.log.Infow("Crawl complete",
		"discovered", result.Discovered,
		"written", result.Written,
		"skipped", result.Skipped,
		"failed_partitions", len(result.Failed),
	)
	return result, nil
}

func (c *Crawler) runLevel(ctx context.Context, level int, frontier []sqlname.ObjectReference, result *Result) ([]sqlname.ObjectReference, types.LevelStats, error) {
	started := time.Now()
	stats := types.LevelStats{Level: level, FrontierSize: len(frontier)}

	partitions := partitionFrontier(level, frontier, c.cfg.BatchSize)
	c.log.Infow("Level starting",
		"level", level,
		"frontier", len(frontier),
		"partitions", len(partitions),
	)

	results := c.sched.RunLevel(ctx, partitions, c.runPartition)

	// The merge is single-threaded and walks partitions in order, so
	// admission and output order do not depend on completion order.
	var next []sqlname.ObjectReference
	var admitted []types.DiscoveredObjectRecord
	for _, res := range results {
		if res.err != nil {
			result.Failed = append(result.Failed, res.err)
			stats.FailedPartitions++
			continue
		}
		stats.Resolved += len(res.records)

		for _, edge := range res.edges {
			c.extendTrace(edge.From, edge.To)
		}
		for _, rec := range res.records {
			if !c.index.Admit(rec.Object.Ref, level) {
				continue
			}
			admitted = append(admitted, rec)
			next = append(next, rec.Object.Ref)
		}
		result.Edges = append(result.Edges, res.edges...)
	}

	for _, rec := range admitted {
		key := rec.Object.Ref.Key()
		rec.ReferencedTables = append([]string(nil), c.traces[key]...)

		result.Discovered++
		if c.transcript.Contains(key) {
			result.Skipped++
			continue
		}
		if err := c.sink.Append(rec); err != nil {
			return nil, stats, err
		}
		result.Written++
	}
	stats.Discovered = len(admitted)
	stats.Scored = len(admitted)

	// Flush before the transcript so a transcript entry always refers
	// to a durable record. A crash between the two can leave records
	// on disk that the transcript does not know about; the next run
	// writes them again and downstream readers dedup by key.
	if err := c.sink.Flush(); err != nil {
		return nil, stats, err
	}
	for _, rec := range admitted {
		if err := c.transcript.Append(rec.Object.Ref.Key(), level); err != nil {
			return nil, stats, err
		}
	}

	stats.Duration = time.Since(started)
	c.log.Infow("Level complete",
		"level", level,
		"discovered", stats.Discovered,
		"failed_partitions", stats.FailedPartitions,
		"duration", stats.Duration,
	)
	return next, stats, nil
}

// extendTrace merges the root tables reachable through 'to' into the
// trace of 'from', keeping the list sorted and duplicate-free.
func (c *Crawler) extendTrace(from, to sqlname.ObjectReference) {
	inherited := c.traces[to.Key()]
	if len(inherited) == 0 {
		return
	}
	fromKey := from.Key()
	existing := c.traces[fromKey]

	seen := make(map[string]bool, len(existing)+len(inherited))
	merged := make([]string, 0, len(existing)+len(inherited))
	for _, s := range existing {
		if !seen[strings.ToLower(s)] {
			seen[strings.ToLower(s)] = true
			merged = append(merged, s)
		}
	}
	for _, s := range inherited {
		if !seen[strings.ToLower(s)] {
			seen[strings.ToLower(s)] = true
			merged = append(merged, s)
		}
	}
	sort.Strings(merged)
	c.traces[fromKey] = merged
}

func displayName(ref sqlname.ObjectReference) string {
	if ref.Schema == "" {
		return ref.Database + ".." + ref.Name
	}
	return ref.Database + "." + ref.Schema + "." + ref.Name
}
