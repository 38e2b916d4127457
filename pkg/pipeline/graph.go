package pipeline

import (
	"fmt"
	"strings"
)

// Graph is a read-only adjacency index over a pipeline snapshot.
type Graph struct {
	order    []string
	known    map[string]bool
	children map[string][]string
	parents  map[string][]string
}

// NewGraph indexes p. Edges that reference unknown nodes are kept so callers
// can report them.
func NewGraph(p Pipeline) *Graph {
	g := &Graph{
		known:    make(map[string]bool, len(p.Nodes)),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
	for _, n := range p.Nodes {
		g.order = append(g.order, n.ID)
		g.known[n.ID] = true
	}
	for _, e := range p.Edges {
		g.children[e.Source] = append(g.children[e.Source], e.Target)
		g.parents[e.Target] = append(g.parents[e.Target], e.Source)
	}
	return g
}

// Parents returns the direct inputs of id.
func (g *Graph) Parents(id string) []string { return g.parents[id] }

// Children returns the direct consumers of id.
func (g *Graph) Children(id string) []string { return g.children[id] }

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, child := range g.children[id] {
			if !visited[child] {
				from[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for cur := id; cur != child; cur = from[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cycle
		}
	}
	return false, nil
}

// TopologicalOrder returns node ids with every input before its consumers.
// Ties keep insertion order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if cyclic, path := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("cycle detected: %s", strings.Join(path, " -> "))
	}

	indegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		for _, p := range g.parents[id] {
			if g.known[p] {
				indegree[id]++
			}
		}
	}

	var queue, out []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		for _, c := range g.children[id] {
			if !g.known[c] {
				continue
			}
			indegree[c]--
			if indegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	return out, nil
}

// Levels groups node ids by depth: level 0 holds nodes without inputs, and a
// node sits one level below its deepest input. Nodes within a level can be
// computed independently.
func (g *Graph) Levels() ([][]string, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	level := make(map[string]int, len(order))
	var levels [][]string
	for _, id := range order {
		l := 0
		for _, p := range g.parents[id] {
			if pl, ok := level[p]; ok {
				l = max(l, pl+1)
			}
		}
		level[id] = l
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], id)
	}
	return levels, nil
}

// Upstream returns every node id id depends on, nearest first.
func (g *Graph) Upstream(id string) []string {
	seen := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range g.parents[cur] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
				queue = append(queue, p)
			}
		}
	}
	return out
}
