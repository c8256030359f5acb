// Package verifier checks the consistency of crawl output on disk.
package verifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbsmedya/depcrawl/internal/logger"
	"github.com/dbsmedya/depcrawl/internal/types"
)

// IssueKind classifies a consistency problem found in the crawl output.
type IssueKind string

const (
	// IssueDuplicateRecord means the same object appears more than once in
	// the chunk files. A crash between a flush and the transcript write can
	// leave one duplicate behind; more than one copy per key is unexpected.
	IssueDuplicateRecord IssueKind = "duplicate_record"
	// IssueMissingRecord means the transcript names an object that has no
	// durable record. The transcript is only written after a flush, so this
	// indicates lost or truncated chunk files.
	IssueMissingRecord IssueKind = "missing_record"
	// IssueLevelMismatch means the transcript and the chunk files disagree
	// about the level an object was discovered at.
	IssueLevelMismatch IssueKind = "level_mismatch"
	// IssueDanglingEdge means the edge file references an object that is
	// neither a recorded object nor a root table.
	IssueDanglingEdge IssueKind = "dangling_edge"
)

// Issue describes a single inconsistency.
type Issue struct {
	Kind   IssueKind
	Key    string
	Detail string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Kind, i.Key, i.Detail)
}

// Report summarizes a verification run.
type Report struct {
	Records        int
	TranscriptKeys int
	Edges          int
	Issues         []Issue
}

// OK reports whether the output passed every check.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

// Summary renders a one-line result for the CLI.
func (r *Report) Summary() string {
	if r.OK() {
		return fmt.Sprintf("OK: %d records, %d transcript entries, %d edges",
			r.Records, r.TranscriptKeys, r.Edges)
	}
	counts := make(map[IssueKind]int)
	for _, issue := range r.Issues {
		counts[issue.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, counts[IssueKind(kind)]))
	}
	return fmt.Sprintf("FAILED: %d issue(s): %s", len(r.Issues), strings.Join(parts, ", "))
}

// Verifier cross-checks chunk records, the resume transcript and the edge
// file against each other.
type Verifier struct {
	log *logger.Logger
}

// NewVerifier creates a verifier. A nil logger falls back to the default.
func NewVerifier(log *logger.Logger) *Verifier {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Verifier{log: log}
}

// Verify runs every consistency check. rootKeys holds the canonical keys of
// the root tables; edges at level 1 point at them rather than at recorded
// objects.
func (v *Verifier) Verify(records []types.DiscoveredObjectRecord, transcript map[string]int, edges []types.DependencyEdge, rootKeys []string) *Report {
	report := &Report{
		Records:        len(records),
		TranscriptKeys: len(transcript),
		Edges:          len(edges),
	}

	known := make(map[string]int, len(records))
	for _, rec := range records {
		key := rec.Key()
		if prior, seen := known[key]; seen {
			report.Issues = append(report.Issues, Issue{
				Kind:   IssueDuplicateRecord,
				Key:    key,
				Detail: fmt.Sprintf("recorded at level %d and again at level %d", prior, rec.Level),
			})
			continue
		}
		known[key] = rec.Level
	}

	transcriptKeys := make([]string, 0, len(transcript))
	for key := range transcript {
		transcriptKeys = append(transcriptKeys, key)
	}
	sort.Strings(transcriptKeys)

	for _, key := range transcriptKeys {
		level := transcript[key]
		recordLevel, ok := known[key]
		if !ok {
			report.Issues = append(report.Issues, Issue{
				Kind:   IssueMissingRecord,
				Key:    key,
				Detail: fmt.Sprintf("transcribed at level %d but absent from chunks", level),
			})
			continue
		}
		if recordLevel != level {
			report.Issues = append(report.Issues, Issue{
				Kind:   IssueLevelMismatch,
				Key:    key,
				Detail: fmt.Sprintf("level %d in chunks, level %d in transcript", recordLevel, level),
			})
		}
	}

	endpoints := make(map[string]bool, len(known)+len(rootKeys))
	for key := range known {
		endpoints[key] = true
	}
	for _, key := range rootKeys {
		endpoints[strings.ToLower(key)] = true
	}

	for _, edge := range edges {
		for _, key := range []string{edge.From.Key(), edge.To.Key()} {
			if !endpoints[key] {
				report.Issues = append(report.Issues, Issue{
					Kind:   IssueDanglingEdge,
					Key:    key,
					Detail: fmt.Sprintf("edge at level %d references an unknown object", edge.Level),
				})
			}
		}
	}

	for _, issue := range report.Issues {
		v.log.Warnw("Output inconsistency",
			"kind", string(issue.Kind),
			"key", issue.Key,
			"detail", issue.Detail)
	}

	return report
}
