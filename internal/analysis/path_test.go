package analysis

import (
	"testing"

	"github.com/clubgraph/clubgraph/internal/graph"
)

// Helpers for building test snapshots

type testEdge struct {
	from, to int
	weight   float64
}

func makeSnapshot(nodeIDs []int, edges ...testEdge) *graph.Snapshot {
	nodes := make([]graph.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		nodes = append(nodes, graph.Node{ID: id, Label: labelFor(id)})
	}
	graphEdges := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		graphEdges = append(graphEdges, graph.Edge{
			ID:     graph.EdgeID(e.from, e.to, graph.ConnectionFriendly),
			Source: e.from,
			Target: e.to,
			Type:   graph.ConnectionFriendly,
			Weight: e.weight,
			Active: true,
		})
	}
	return graph.NewSnapshot(nodes, graphEdges)
}

func labelFor(id int) string {
	return string(rune('A' + id - 1))
}

func TestShortestPathTrivial(t *testing.T) {
	snap := makeSnapshot([]int{1, 2}, testEdge{1, 2, 80})

	p := ShortestPath(snap, 1, 1)
	if !p.Exists {
		t.Fatal("expected trivial path to exist")
	}
	if len(p.Nodes) != 1 || p.Nodes[0] != 1 {
		t.Errorf("expected path [1], got %v", p.Nodes)
	}
	if p.Cost != 0 {
		t.Errorf("expected cost 0, got %f", p.Cost)
	}
}

func TestShortestPathMissingNodes(t *testing.T) {
	snap := makeSnapshot([]int{1, 2}, testEdge{1, 2, 80})

	for _, tc := range []struct {
		name           string
		source, target int
	}{
		{"missing source", 99, 2},
		{"missing target", 1, 99},
		{"both missing", 98, 99},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := ShortestPath(snap, tc.source, tc.target)
			if p.Exists {
				t.Error("expected no path for missing node id")
			}
			if len(p.Nodes) != 0 {
				t.Errorf("expected empty path, got %v", p.Nodes)
			}
		})
	}
}

func TestShortestPathDisconnected(t *testing.T) {
	snap := makeSnapshot([]int{1, 2, 3}, testEdge{1, 2, 80})

	p := ShortestPath(snap, 1, 3)
	if p.Exists {
		t.Error("expected no path between components")
	}
	if len(p.Nodes) != 0 {
		t.Errorf("expected empty path, got %v", p.Nodes)
	}
}

func TestShortestPathPrefersStrongConnections(t *testing.T) {
	// 1-2-4 over strong edges (weight 90, cost 10 each) beats the
	// direct weak edge 1-4 (weight 10, cost 90).
	snap := makeSnapshot([]int{1, 2, 4},
		testEdge{1, 2, 90},
		testEdge{2, 4, 90},
		testEdge{1, 4, 10},
	)

	p := ShortestPath(snap, 1, 4)
	if !p.Exists {
		t.Fatal("expected a path")
	}
	want := []int{1, 2, 4}
	if len(p.Nodes) != len(want) {
		t.Fatalf("expected path %v, got %v", want, p.Nodes)
	}
	for i, id := range want {
		if p.Nodes[i] != id {
			t.Fatalf("expected path %v, got %v", want, p.Nodes)
		}
	}
	if p.Cost != 20 {
		t.Errorf("expected cost 20, got %f", p.Cost)
	}
}

func TestShortestPathUndirected(t *testing.T) {
	snap := makeSnapshot([]int{1, 2, 3},
		testEdge{1, 2, 60},
		testEdge{2, 3, 60},
	)

	forward := ShortestPath(snap, 1, 3)
	backward := ShortestPath(snap, 3, 1)
	if !forward.Exists || !backward.Exists {
		t.Fatal("expected paths in both directions")
	}
	if forward.Cost != backward.Cost {
		t.Errorf("expected symmetric cost, got %f vs %f", forward.Cost, backward.Cost)
	}
}

func TestShortestPathMaxWeightEdgeIsFree(t *testing.T) {
	snap := makeSnapshot([]int{1, 2}, testEdge{1, 2, 100})

	p := ShortestPath(snap, 1, 2)
	if !p.Exists || p.Cost != 0 {
		t.Errorf("expected free traversal over weight-100 edge, got cost %f exists %v", p.Cost, p.Exists)
	}
}
