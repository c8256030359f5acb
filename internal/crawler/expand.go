package crawler

import (
	"context"
	"sort"
	"strings"

	"github.com/dbsmedya/depcrawl/internal/scoring"
	"github.com/dbsmedya/depcrawl/internal/sqlname"
	"github.com/dbsmedya/depcrawl/internal/types"
)

// targetLink ties a discovered object back to the frontier reference
// whose use surfaced it. viaText marks links that came from the textual
// fallback scan and still need word-boundary confirmation against the
// resolved definition.
type targetLink struct {
	ref     sqlname.ObjectReference
	viaText bool
}

type candidate struct {
	ref     sqlname.ObjectReference
	targets []targetLink
}

// runPartition expands one partition of a level's frontier: find every
// object in the partition's database whose definition references a
// frontier name, resolve the definitions in a batch, confirm textual
// hits, and score what survives. Candidates already present in the
// global index are dropped early; final admission happens in the merge.
func (c *Crawler) runPartition(ctx context.Context, p Partition) partitionResult {
	fail := func(err error) partitionResult {
		return partitionResult{partition: p, err: &types.PartitionError{
			Database: p.Database,
			Level:    p.Level,
			Names:    p.Names(),
			Err:      err,
		}}
	}

	cat, err := c.provider.Catalog(ctx, p.Database)
	if err != nil {
		return fail(err)
	}

	names := p.Names()

	// Frontier refs grouped by lowercase name, for mapping reference
	// rows back to the exact frontier entries they hit.
	byName := make(map[string][]sqlname.ObjectReference)
	for _, ref := range p.Refs {
		key := strings.ToLower(ref.Name)
		byName[key] = append(byName[key], ref)
	}

	refs, err := cat.LookupReferencingObjects(ctx, names)
	if err != nil {
		return fail(err)
	}

	// Trigger bodies fire on tables without always appearing in the
	// dependency view, so table frontiers get a dedicated pass.
	var tableNames []string
	seenTable := make(map[string]bool)
	for _, ref := range p.Refs {
		if ref.Kind != sqlname.KindTable {
			continue
		}
		key := strings.ToLower(ref.Name)
		if seenTable[key] {
			continue
		}
		seenTable[key] = true
		tableNames = append(tableNames, ref.Name)
	}
	if len(tableNames) > 0 {
		trigRefs, err := cat.LookupTriggersOn(ctx, tableNames)
		if err != nil {
			return fail(err)
		}
		refs = append(refs, trigRefs...)
	}

	covered := make(map[string]bool, len(refs))
	for _, r := range refs {
		covered[strings.ToLower(r.Target)] = true
	}

	candidates := make(map[string]*candidate)
	add := func(r sqlname.ObjectReference, target string, viaText bool) {
		if c.index.Has(r) {
			return
		}
		key := r.Key()
		cand, ok := candidates[key]
		if !ok {
			cand = &candidate{ref: r}
			candidates[key] = cand
		}
		for _, t := range byName[strings.ToLower(target)] {
			dup := false
			for i, existing := range cand.targets {
				if existing.ref.Key() == t.Key() {
					// A structural hit outranks a textual one.
					if !viaText {
						cand.targets[i].viaText = false
					}
					dup = true
					break
				}
			}
			if !dup {
				cand.targets = append(cand.targets, targetLink{ref: t, viaText: viaText})
			}
		}
	}

	for _, r := range refs {
		add(r.Referencing, r.Target, false)
	}

	// Textual fallback only for frontier names the dependency view
	// produced nothing for. Unindexed references (dynamic SQL, stale
	// metadata) surface here; the LIKE scan over-matches and every hit
	// must be confirmed against the resolved body below.
	for _, name := range names {
		if covered[strings.ToLower(name)] {
			continue
		}
		textRefs, err := cat.LookupReferencingByText(ctx, name)
		if err != nil {
			return fail(err)
		}
		for _, r := range textRefs {
			add(r.Referencing, r.Target, true)
		}
	}

	if len(candidates) == 0 {
		return partitionResult{partition: p}
	}

	keys := make([]string, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lookupRefs := make([]sqlname.ObjectReference, 0, len(keys))
	for _, key := range keys {
		lookupRefs = append(lookupRefs, candidates[key].ref)
	}
	resolved, err := cat.LookupDefinitions(ctx, lookupRefs)
	if err != nil {
		return fail(err)
	}
	byRequest := matchResolved(lookupRefs, resolved, c.defaultSchemas)

	var result partitionResult
	result.partition = p
	for _, key := range keys {
		cand := candidates[key]
		obj, ok := byRequest[key]
		if !ok {
			// Gone from the catalog between the reference pass and
			// the definition pass. Not an error, just not a finding.
			continue
		}

		links := cand.targets[:0]
		for _, link := range cand.targets {
			if link.viaText && !ConfirmReference(obj.DefinitionText, link.ref.Name) {
				continue
			}
			links = append(links, link)
		}
		if len(links) == 0 {
			continue
		}

		tables := scoring.ExtractTables(obj.DefinitionText)
		called := scoring.ExtractCalledObjects(obj.DefinitionText)
		score := scoring.Analyze(obj.DefinitionText, len(tables)+len(called))

		result.records = append(result.records, types.DiscoveredObjectRecord{
			Object:      obj,
			Level:       p.Level,
			Score:       score,
			Description: scoring.Describe(obj.DefinitionText, score, len(tables), len(called)),
		})
		for _, link := range links {
			result.edges = append(result.edges, types.DependencyEdge{
				From:  obj.Ref,
				To:    link.ref,
				Level: p.Level,
			})
		}
	}
	return result
}
