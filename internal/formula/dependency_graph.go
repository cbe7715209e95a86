// Package formula implements the deterministic expression evaluator and the
// dependency graph that orders a template's line items for calculation.
package formula

import (
	"fmt"
	"sort"

	"finmodel/internal/apperrors"
)

// DependencyGraph tracks which line items depend on which others and
// derives a calculation order from it via Kahn's algorithm.
//
// Example:
//
//	g := NewDependencyGraph()
//	g.AddNode("REVENUE")
//	g.AddNode("COGS")
//	g.AddNode("GROSS_PROFIT")
//	g.AddEdge("GROSS_PROFIT", "REVENUE") // GROSS_PROFIT depends on REVENUE
//	g.AddEdge("GROSS_PROFIT", "COGS")
//	order, _ := g.TopologicalSort()
//	// order == ["COGS", "REVENUE", "GROSS_PROFIT"] (lexicographic among ties)
type DependencyGraph struct {
	nodes     map[string]struct{}
	adjacency map[string]map[string]struct{} // node -> set of nodes it depends on
}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]struct{}),
		adjacency: make(map[string]map[string]struct{}),
	}
}

// AddNode registers code as a node, creating it with no dependencies if new.
func (g *DependencyGraph) AddNode(code string) {
	if _, ok := g.nodes[code]; ok {
		return
	}
	g.nodes[code] = struct{}{}
	g.adjacency[code] = make(map[string]struct{})
}

// AddEdge records that from depends on to: to must be calculated before from.
// Both nodes are created if they don't already exist.
func (g *DependencyGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from][to] = struct{}{}
}

// Dependencies returns the direct dependencies of code, sorted.
func (g *DependencyGraph) Dependencies(code string) []string {
	deps := make([]string, 0, len(g.adjacency[code]))
	for dep := range g.adjacency[code] {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

// AllNodes returns every node in the graph, sorted.
func (g *DependencyGraph) AllNodes() []string {
	all := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		all = append(all, n)
	}
	sort.Strings(all)
	return all
}

// Size returns the number of nodes in the graph.
func (g *DependencyGraph) Size() int { return len(g.nodes) }

// Empty reports whether the graph has no nodes.
func (g *DependencyGraph) Empty() bool { return len(g.nodes) == 0 }

// Clear removes every node and edge.
func (g *DependencyGraph) Clear() {
	g.nodes = make(map[string]struct{})
	g.adjacency = make(map[string]map[string]struct{})
}

// TopologicalSort computes a calculation order (dependencies first) using
// Kahn's algorithm. Among nodes with equal in-degree at any step, the
// lexicographically smallest is emitted first, making the order
// deterministic across runs. Returns apperrors.ErrDependency wrapping the
// cycle path if the graph is not a DAG.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	// remaining holds, for each node, the set of ITS dependencies that have
	// not yet been emitted; a node is ready to be calculated once its set is
	// empty.
	remaining := make(map[string]map[string]struct{}, len(g.nodes))
	for n, deps := range g.adjacency {
		cp := make(map[string]struct{}, len(deps))
		for d := range deps {
			cp[d] = struct{}{}
		}
		remaining[n] = cp
	}

	var order []string
	emitted := make(map[string]struct{}, len(g.nodes))

	for len(order) < len(g.nodes) {
		var ready []string
		for n := range g.nodes {
			if _, done := emitted[n]; done {
				continue
			}
			if len(remaining[n]) == 0 {
				ready = append(ready, n)
			}
		}

		if len(ready) == 0 {
			cycle := g.FindCycle()
			return nil, fmt.Errorf("%w: cycle detected: %v", apperrors.ErrDependency, cycle)
		}

		sort.Strings(ready)
		next := ready[0]
		order = append(order, next)
		emitted[next] = struct{}{}

		for n, deps := range remaining {
			delete(deps, next)
			_ = n
		}
	}

	return order, nil
}

// HasCycles reports whether the graph contains a circular dependency.
func (g *DependencyGraph) HasCycles() bool {
	return len(g.FindCycle()) > 0
}

// FindCycle returns the node sequence forming a cycle (first node repeated
// at the end), or nil if the graph is acyclic.
func (g *DependencyGraph) FindCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))

	var path []string
	var cycle []string

	var visit func(node string) bool
	visit = func(node string) bool {
		color[node] = gray
		path = append(path, node)

		deps := g.Dependencies(node)
		for _, dep := range deps {
			switch color[dep] {
			case white:
				if visit(dep) {
					return true
				}
			case gray:
				// Found the back-edge; carve the cycle out of path.
				start := 0
				for i, n := range path {
					if n == dep {
						start = i
						break
					}
				}
				cycle = append([]string{}, path[start:]...)
				cycle = append(cycle, dep)
				return true
			}
		}

		path = path[:len(path)-1]
		color[node] = black
		return false
	}

	for _, node := range g.AllNodes() {
		if color[node] == white {
			if visit(node) {
				return cycle
			}
		}
	}

	return nil
}
