// Package types contains shared record types used across multiple packages
// to avoid import cycles.
package types

import (
	"fmt"
	"time"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
)

// Tier is the coarse migration-risk classification of a scored object.
type Tier string

const (
	TierLow    Tier = "LOW"
	TierMedium Tier = "MEDIUM"
	TierHigh   Tier = "HIGH"
)

// ComplexityScore is the migration-risk assessment of one object definition.
type ComplexityScore struct {
	Value           int      `json:"value"`
	Tier            Tier     `json:"tier"`
	MatchedPatterns []string `json:"matched_patterns,omitempty"`
	DMLCount        int      `json:"dml_count"`
	JoinCount       int      `json:"join_count"`
	DependencyCount int      `json:"dependency_count"`
	LineCount       int      `json:"line_count"`
}

// ResolvedObject is an ObjectReference plus the object's full source body.
// Immutable once created; the crawl creates exactly one per unique object.
type ResolvedObject struct {
	Ref            sqlname.ObjectReference `json:"ref"`
	DefinitionText string                  `json:"definition_text"`
}

// DependencyEdge records that From's definition references To. Level 1 edges
// point at a root table; level N edges point at a level N-1 object.
type DependencyEdge struct {
	From  sqlname.ObjectReference `json:"from"`
	To    sqlname.ObjectReference `json:"to"`
	Level int                     `json:"level"`
}

// DiscoveredObjectRecord is the unit of crawl output: a resolved object,
// the level it was first discovered at, the root tables it transitively
// reaches, and its complexity score.
type DiscoveredObjectRecord struct {
	Object           ResolvedObject  `json:"object"`
	Level            int             `json:"level"`
	ReferencedTables []string        `json:"referenced_tables,omitempty"`
	Score            ComplexityScore `json:"score"`
	Description      string          `json:"description,omitempty"`
}

// Key returns the record's canonical identity.
func (r DiscoveredObjectRecord) Key() string {
	return r.Object.Ref.Key()
}

// PartitionError captures the failure of a single per-database partition
// task. Sibling partitions and the overall level are unaffected; the names
// it carried are reported for manual re-run.
type PartitionError struct {
	Database string
	Level    int
	Names    []string
	Err      error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s (level %d, %d names): %v", e.Database, e.Level, len(e.Names), e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}

// LevelStats summarizes one completed traversal level.
type LevelStats struct {
	Level            int           `json:"level"`
	FrontierSize     int           `json:"frontier_size"`
	Discovered       int           `json:"discovered"`
	Resolved         int           `json:"resolved"`
	Scored           int           `json:"scored"`
	FailedPartitions int           `json:"failed_partitions"`
	Duration         time.Duration `json:"duration"`
}
