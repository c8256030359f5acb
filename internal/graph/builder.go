package graph

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
	"github.com/dbsmedya/depcrawl/internal/types"
)

// Builder constructs a dependency graph from crawl output.
type Builder struct {
	roots   []sqlname.ObjectReference
	records []types.DiscoveredObjectRecord
	edges   []types.DependencyEdge
}

// NewBuilder creates a graph builder over the given crawl output.
func NewBuilder(roots []sqlname.ObjectReference, records []types.DiscoveredObjectRecord, edges []types.DependencyEdge) *Builder {
	return &Builder{roots: roots, records: records, edges: edges}
}

// Build constructs the graph. Root tables become root nodes, each record
// becomes an object node, and each crawl edge becomes a graph edge pointing
// from the referenced object to the referencing one, the direction things
// have to be migrated in.
//
// Edges whose endpoints are not in the node set are dropped rather than
// rejected: a failed partition can leave a referenced object unrecorded, and
// the plan should still cover what the crawl did find.
func (b *Builder) Build() (*Graph, error) {
	if len(b.roots) == 0 {
		return nil, fmt.Errorf("no root tables")
	}

	g := NewGraph()

	for _, root := range b.roots {
		g.AddNode(&Node{
			Key:     root.Key(),
			Display: displayRef(root),
			Kind:    string(sqlname.KindTable),
			Level:   0,
			IsRoot:  true,
		})
	}

	for _, rec := range b.records {
		ref := rec.Object.Ref
		if g.HasNode(ref.Key()) && g.GetNode(ref.Key()).IsRoot {
			return nil, fmt.Errorf("object %s is also a root table", displayRef(ref))
		}
		g.AddNode(&Node{
			Key:     ref.Key(),
			Display: displayRef(ref),
			Kind:    string(ref.Kind),
			Level:   rec.Level,
			Tier:    string(rec.Score.Tier),
		})
	}

	for _, edge := range b.edges {
		// The referenced object migrates first, the referencing one follows.
		from := edge.To.Key()
		to := edge.From.Key()
		if !g.HasNode(from) || !g.HasNode(to) {
			continue
		}
		g.AddEdge(from, to)
	}

	return g, nil
}

// BuildFromCrawl is a convenience function that builds a graph directly from
// crawl output.
func BuildFromCrawl(roots []sqlname.ObjectReference, records []types.DiscoveredObjectRecord, edges []types.DependencyEdge) (*Graph, error) {
	return NewBuilder(roots, records, edges).Build()
}

func displayRef(ref sqlname.ObjectReference) string {
	parts := []string{ref.Database}
	if ref.Schema != "" {
		parts = append(parts, ref.Schema)
	}
	parts = append(parts, ref.Name)
	return strings.Join(parts, ".")
}
