// Package graph builds the partner relationship graph between customers.
package graph

import (
	"github.com/dbsmedya/custrecon/internal/types"
)

// Edge is a directed relation between two customers.
type Edge struct {
	From string
	To   string
}

// Graph maps each customer to the set of customers it is related to.
// A Graph returned by Builder.Build or Merge is never mutated again.
type Graph struct {
	related map[string]map[string]struct{}
	edges   int
}

func newGraph() *Graph {
	return &Graph{related: make(map[string]map[string]struct{})}
}

// addNode registers id with an empty adjacency set if it is not known yet.
func (g *Graph) addNode(id string) {
	if _, exists := g.related[id]; !exists {
		g.related[id] = make(map[string]struct{})
	}
}

// addEdge adds from -> to. Duplicate edges are a no-op.
func (g *Graph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	if _, exists := g.related[from][to]; exists {
		return
	}
	g.related[from][to] = struct{}{}
	g.edges++
}

// HasNode returns true if the graph contains id.
func (g *Graph) HasNode(id string) bool {
	_, exists := g.related[id]
	return exists
}

// HasEdge returns true if from -> to is in the graph.
func (g *Graph) HasEdge(from, to string) bool {
	_, exists := g.related[from][to]
	return exists
}

// Related returns the customers related to id, sorted numerically.
func (g *Graph) Related(id string) []string {
	set := g.related[id]
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	types.SortIDs(out)
	return out
}

// NodeCount returns the number of customers in the graph.
func (g *Graph) NodeCount() int {
	return len(g.related)
}

// EdgeCount returns the number of directed relations.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Nodes returns every customer in the graph, sorted numerically.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.related))
	for id := range g.related {
		nodes = append(nodes, id)
	}
	types.SortIDs(nodes)
	return nodes
}

// Edges returns every relation, ordered by From then To.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.edges)
	for _, from := range g.Nodes() {
		for _, to := range g.Related(from) {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// OutDegree returns the number of customers id points to.
func (g *Graph) OutDegree(id string) int {
	return len(g.related[id])
}

// Snapshot returns the graph as a map of customer to sorted related customers.
// Customers with no relations map to an empty list.
func (g *Graph) Snapshot() map[string][]string {
	out := make(map[string][]string, len(g.related))
	for id := range g.related {
		out[id] = g.Related(id)
	}
	return out
}

// Merge returns the union of graphs. The result does not depend on the
// order of the arguments, and the inputs are left untouched.
func Merge(graphs ...*Graph) *Graph {
	out := newGraph()
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for from, set := range g.related {
			out.addNode(from)
			for to := range set {
				out.addEdge(from, to)
			}
		}
	}
	return out
}
