package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gookit/color"

	"github.com/dbsmedya/depcrawl/internal/graph"
)

// RenderTree renders the dependency graph as one ASCII tree per root
// table, dependents indented under what they reference. An object
// reachable through several paths is expanded once; later occurrences
// are marked with an ellipsis. Cycle back-edges are labeled instead of
// recursed into.
func RenderTree(g *graph.Graph, colored bool) string {
	var roots []string
	for _, key := range g.AllNodes() {
		if node := g.GetNode(key); node != nil && node.IsRoot {
			roots = append(roots, key)
		}
	}
	sort.Strings(roots)

	var b strings.Builder
	expanded := make(map[string]bool)
	for _, root := range roots {
		b.WriteString(nodeLabel(g, root, colored))
		b.WriteString("\n")
		expanded[root] = true
		renderChildren(&b, g, root, "", expanded, map[string]bool{root: true}, colored)
	}
	return b.String()
}

func renderChildren(b *strings.Builder, g *graph.Graph, key, prefix string, expanded, path map[string]bool, colored bool) {
	children := append([]string(nil), g.GetChildren(key)...)
	sort.Strings(children)

	for i, child := range children {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(children)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		label := nodeLabel(g, child, colored)
		switch {
		case path[child]:
			b.WriteString(prefix + connector + label + " (cycle)\n")
		case expanded[child]:
			b.WriteString(prefix + connector + label + " ...\n")
		default:
			b.WriteString(prefix + connector + label + "\n")
			expanded[child] = true
			path[child] = true
			renderChildren(b, g, child, childPrefix, expanded, path, colored)
			delete(path, child)
		}
	}
}

func nodeLabel(g *graph.Graph, key string, colored bool) string {
	node := g.GetNode(key)
	if node == nil {
		return key
	}

	label := node.Display
	if node.IsRoot {
		return fmt.Sprintf("%s [table]", label)
	}

	tier := node.Tier
	if tier == "" {
		tier = "?"
	}
	suffix := fmt.Sprintf("[%s, L%d, %s]", node.Kind, node.Level, tier)
	if colored {
		switch tier {
		case "HIGH":
			suffix = color.Red.Render(suffix)
		case "MEDIUM":
			suffix = color.Yellow.Render(suffix)
		case "LOW":
			suffix = color.Green.Render(suffix)
		}
	}
	return label + " " + suffix
}

// RenderStages renders the staged migration plan: each stage lists the
// objects whose dependencies are all in earlier stages.
func RenderStages(g *graph.Graph, stages [][]string, colored bool) string {
	var b strings.Builder
	for i, stage := range stages {
		fmt.Fprintf(&b, "Stage %d:\n", i+1)
		for _, key := range stage {
			b.WriteString("  " + nodeLabel(g, key, colored) + "\n")
		}
	}
	return b.String()
}
