package depgraph

import (
	"reflect"
	"testing"
)

func addEdges(g *Graph, edges [][2]Node) {
	for _, e := range edges {
		g.Add(e[0], e[1])
	}
}

func TestFlattenOrdersLeavesBeforeRoots(t *testing.T) {
	var g Graph
	addEdges(&g, [][2]Node{
		{"enemy.o", "enemy.c"},
		{"main.o", "main.c"},
		{"game", "enemy.o"},
		{"game", "main.o"},
		{"game", "player.o"},
		{"player.o", "player.c"},
	})

	var got []Node
	g.Flatten(func(n Node) { got = append(got, n) })

	want := []Node{"enemy.c", "enemy.o", "main.c", "main.o", "player.c", "player.o", "game"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFlattenSkipsCycles(t *testing.T) {
	var g Graph
	addEdges(&g, [][2]Node{
		{"Mildred", "Yancy"},
		{"Mrs", "Junior"},
		{"Mrs", "Phillip"},
		{"Phillip", "Yancy"},
		{"Yancy", "Junior"},
		{"Yancy", "Phillip"},
	})

	var got []Node
	g.Flatten(func(n Node) { got = append(got, n) })

	want := []Node{"Junior", "Phillip", "Yancy", "Mildred", "Mrs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFindCycleDetectsBackEdge(t *testing.T) {
	var g Graph
	addEdges(&g, [][2]Node{
		{"A", "B"},
		{"B", "C"},
		{"C", "A"},
	})

	cycle, found := g.FindCycle()
	if !found {
		t.Fatal("expected a cycle to be detected")
	}
	if len(cycle) == 0 || cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("expected cycle to start and end at the same node, got %v", cycle)
	}
}

func TestFindCycleAcyclicGraph(t *testing.T) {
	var g Graph
	addEdges(&g, [][2]Node{
		{"A", "B"},
		{"B", "C"},
	})

	if _, found := g.FindCycle(); found {
		t.Error("expected no cycle in an acyclic graph")
	}
}

func TestCoverageReachability(t *testing.T) {
	var g Graph
	addEdges(&g, [][2]Node{
		{"root", "used"},
		{"used", "leaf"},
	})
	g.Add("orphan", "leaf")

	reachable := Coverage(&g, []Node{"root"})
	for _, want := range []Node{"root", "used", "leaf"} {
		if !reachable[want] {
			t.Errorf("expected %q to be reachable", want)
		}
	}
	if reachable["orphan"] {
		t.Error("orphan should not be reachable from root")
	}
}
