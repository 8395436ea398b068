package product

import (
	"sort"
	"sync"
)

// Graph is the cross-item dependency graph of a definition. An edge A -> B
// means a formula (or the DERIVED source) of A reads B. Because references
// only point backwards in the list, the graph is acyclic and definition
// order is a topological order.
type Graph struct {
	order map[string]int
	deps  map[string][]string

	once       sync.Once
	dependents map[string][]string
}

func newGraph(items []*Item, edges map[string][]string) *Graph {
	g := &Graph{
		order: make(map[string]int, len(items)),
		deps:  make(map[string][]string, len(items)),
	}
	for i, it := range items {
		g.order[it.NameID] = i
	}
	for from, tos := range edges {
		sorted := append([]string(nil), tos...)
		g.sortByOrder(sorted)
		g.deps[from] = sorted
	}
	return g
}

func (g *Graph) sortByOrder(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return g.order[ids[i]] < g.order[ids[j]] })
}

// Dependencies returns the items that id reads, in definition order.
func (g *Graph) Dependencies(id string) []string {
	return append([]string(nil), g.deps[id]...)
}

// Dependents returns the items that read id directly, in definition order.
// The reverse adjacency is computed once per graph.
func (g *Graph) Dependents(id string) []string {
	g.once.Do(g.buildReverse)
	return append([]string(nil), g.dependents[id]...)
}

func (g *Graph) buildReverse() {
	g.dependents = make(map[string][]string, len(g.deps))
	for from, tos := range g.deps {
		for _, to := range tos {
			g.dependents[to] = append(g.dependents[to], from)
		}
	}
	for id := range g.dependents {
		g.sortByOrder(g.dependents[id])
	}
}

// TransitiveDependents walks the reverse graph from roots. The result maps
// every reachable dependent to the roots it depends on, both in definition
// order. Roots themselves are not included unless reachable from another root.
func (g *Graph) TransitiveDependents(roots ...string) map[string][]string {
	reached := map[string]map[string]bool{}
	for _, root := range roots {
		seen := map[string]bool{root: true}
		queue := []string{root}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, dep := range g.Dependents(cur) {
				if seen[dep] {
					continue
				}
				seen[dep] = true
				if reached[dep] == nil {
					reached[dep] = map[string]bool{}
				}
				reached[dep][root] = true
				queue = append(queue, dep)
			}
		}
	}

	out := make(map[string][]string, len(reached))
	for dep, rs := range reached {
		list := make([]string, 0, len(rs))
		for r := range rs {
			list = append(list, r)
		}
		g.sortByOrder(list)
		out[dep] = list
	}
	return out
}

// Edge is one A -> B dependency.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Edges lists every edge, ordered by From then To in definition order.
func (g *Graph) Edges() []Edge {
	froms := make([]string, 0, len(g.deps))
	for from := range g.deps {
		froms = append(froms, from)
	}
	g.sortByOrder(froms)
	var out []Edge
	for _, from := range froms {
		for _, to := range g.deps[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}
