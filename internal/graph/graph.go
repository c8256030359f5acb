// Package graph provides the dependency graph built from crawl output and
// the ordering algorithms used for migration planning.
package graph

// Node represents one object in the dependency graph: a root table or a
// discovered procedure, function, trigger, or view.
type Node struct {
	Key     string // canonical identity, lowercase database.schema.name
	Display string // human-readable name for reports
	Kind    string // table, procedure, function, trigger, view
	Level   int    // first-discovery level, 0 for roots
	Tier    string // complexity tier, empty for roots
	IsRoot  bool
}

// Edge represents a dependency relationship: To's definition references From,
// so From must be migrated before To.
type Edge struct {
	From string
	To   string
}

// Graph holds the complete dependency structure of one crawl.
type Graph struct {
	Nodes    map[string]*Node    // key -> node
	Children map[string][]string // key -> dependent keys (outgoing edges)
	Parents  map[string][]string // key -> dependency keys (incoming edges)
	edgeSet  map[Edge]bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]*Node),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
		edgeSet:  make(map[Edge]bool),
	}
}

// AddNode adds a node to the graph, replacing any node with the same key.
func (g *Graph) AddNode(node *Node) {
	g.Nodes[node.Key] = node
}

// AddEdge adds a dependency -> dependent relationship and maintains the
// reverse mapping for parent lookups. Duplicate edges collapse to one so
// in-degree counts stay correct when an object is reached through several
// paths.
func (g *Graph) AddEdge(from, to string) {
	edge := Edge{From: from, To: to}
	if g.edgeSet[edge] {
		return
	}
	g.edgeSet[edge] = true

	g.Children[from] = append(g.Children[from], to)
	g.Parents[to] = append(g.Parents[to], from)
}

// GetChildren returns the keys that directly depend on the given key.
func (g *Graph) GetChildren(key string) []string {
	return g.Children[key]
}

// GetParents returns the keys the given key directly depends on.
func (g *Graph) GetParents(key string) []string {
	return g.Parents[key]
}

// GetNode returns the node for a key, or nil if not present.
func (g *Graph) GetNode(key string) *Node {
	return g.Nodes[key]
}

// HasNode returns true if the graph contains the key.
func (g *Graph) HasNode(key string) bool {
	_, exists := g.Nodes[key]
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edgeSet)
}

// AllNodes returns every key in the graph, in map order.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, 0, len(g.Nodes))
	for key := range g.Nodes {
		nodes = append(nodes, key)
	}
	return nodes
}

// AllEdges returns every edge in the graph.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for from, children := range g.Children {
		for _, to := range children {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// LeafNodes returns the keys nothing depends on.
func (g *Graph) LeafNodes() []string {
	var leaves []string
	for key := range g.Nodes {
		if len(g.Children[key]) == 0 {
			leaves = append(leaves, key)
		}
	}
	return leaves
}

// InDegree returns the number of dependencies of a key.
func (g *Graph) InDegree(key string) int {
	return len(g.Parents[key])
}

// OutDegree returns the number of dependents of a key.
func (g *Graph) OutDegree(key string) int {
	return len(g.Children[key])
}
