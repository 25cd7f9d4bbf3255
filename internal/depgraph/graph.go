// Package depgraph builds and flattens type-dependency graphs.
package depgraph

import (
	"sort"
	"sync"
)

// Node identifies a vertex in the graph. Callers key nodes however suits
// them (a Clark-notation qualified name, in practice) as long as the string
// is unique per vertex.
type Node string

// insertUnique inserts s into set, preserving order. If s is already in set,
// it is not added. The augmented set is returned.
func insertUnique(set []Node, s Node) []Node {
	i := sort.Search(len(set), func(i int) bool { return set[i] >= s })
	if i >= len(set) || set[i] != s {
		set = append(set, "")
		copy(set[i+1:], set[i:])
		set[i] = s
	}
	return set
}

// A Graph is a collection of targets and the nodes they depend on.
type Graph struct {
	once    sync.Once
	targets []Node
	nodes   map[Node][]Node
}

func (g *Graph) init() {
	g.once.Do(func() { g.nodes = make(map[Node][]Node) })
}

// Add records that target depends on dependency.
func (g *Graph) Add(target, dependency Node) {
	g.init()
	g.targets = insertUnique(g.targets, target)
	g.nodes[target] = insertUnique(g.nodes[target], dependency)
}

// Dependencies returns the direct dependencies recorded for target.
func (g *Graph) Dependencies(target Node) []Node {
	g.init()
	return g.nodes[target]
}

// Targets returns every node that has had at least one dependency added,
// in deterministic sorted order.
func (g *Graph) Targets() []Node {
	g.init()
	out := make([]Node, len(g.targets))
	copy(out, g.targets)
	return out
}

// Flatten calls walk on each node in the graph in topological order,
// starting with the leaves and traversing up to the roots. The same Graph
// is always traversed in the same order.
//
// Every vertex is visited once; cycles are skipped rather than causing
// infinite recursion (use FindCycle first to detect and report them).
func (g *Graph) Flatten(walk func(Node)) {
	g.init()
	visited := make(map[Node]bool, len(g.nodes))
	for _, tgt := range g.targets {
		if !visited[tgt] {
			visited[tgt] = true
			g.flatten(walk, g.nodes[tgt], visited)
			walk(tgt)
		}
	}
}

func (g *Graph) flatten(fn func(Node), targets []Node, visited map[Node]bool) {
	for _, tgt := range targets {
		if !visited[tgt] {
			visited[tgt] = true
			g.flatten(fn, g.nodes[tgt], visited)
			fn(tgt)
		}
	}
}

// FindCycle performs a depth-first search from every target and returns the
// first cycle it encounters as an ordered path from the start of the cycle
// back to itself. It returns (nil, false) when the graph is acyclic.
func (g *Graph) FindCycle() ([]Node, bool) {
	g.init()
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[Node]int, len(g.nodes))
	var path []Node

	var visit func(Node) []Node
	visit = func(n Node) []Node {
		state[n] = visiting
		path = append(path, n)
		for _, dep := range g.nodes[n] {
			switch state[dep] {
			case visiting:
				// found the back-edge; slice path from dep's first occurrence
				for i, p := range path {
					if p == dep {
						cycle := append([]Node{}, path[i:]...)
						return append(cycle, dep)
					}
				}
			case unvisited:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		state[n] = done
		return nil
	}

	for _, tgt := range g.targets {
		if state[tgt] == unvisited {
			if cyc := visit(tgt); cyc != nil {
				return cyc, true
			}
		}
	}
	return nil, false
}

// Coverage returns the set of nodes reachable from the given roots, for
// detecting unused/orphaned type definitions.
func Coverage(g *Graph, roots []Node) (reachable map[Node]bool) {
	reachable = make(map[Node]bool)
	var visit func(Node)
	visit = func(n Node) {
		if reachable[n] {
			return
		}
		reachable[n] = true
		for _, dep := range g.Dependencies(n) {
			visit(dep)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return reachable
}
