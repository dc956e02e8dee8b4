package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodesWithIDs(ids ...int) []Node {
	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, Node{ID: id})
	}
	return nodes
}

func edgeBetween(a, b int) Edge {
	return Edge{ID: EdgeID(a, b, ConnectionFriendly), Source: a, Target: b, Weight: 50}
}

func TestComponents(t *testing.T) {
	t.Run("empty graph has no components", func(t *testing.T) {
		assert.Empty(t, Components(nil, nil))
	})

	t.Run("isolated nodes are singleton components", func(t *testing.T) {
		comps := Components(nodesWithIDs(1, 2, 3), nil)
		assert.Len(t, comps, 3)
	})

	t.Run("partition covers every node exactly once", func(t *testing.T) {
		nodes := nodesWithIDs(1, 2, 3, 4, 5, 6)
		edges := []Edge{edgeBetween(1, 2), edgeBetween(2, 3), edgeBetween(4, 5)}
		comps := Components(nodes, edges)
		require.Len(t, comps, 3)

		seen := make(map[int]int)
		for _, c := range comps {
			for _, id := range c {
				seen[id]++
			}
		}
		require.Len(t, seen, len(nodes))
		for id, count := range seen {
			assert.Equalf(t, 1, count, "node %d appears %d times", id, count)
		}
	})

	t.Run("deterministic for a fixed ordering", func(t *testing.T) {
		nodes := nodesWithIDs(10, 20, 30)
		edges := []Edge{edgeBetween(20, 30)}
		first := Components(nodes, edges)
		second := Components(nodes, edges)
		assert.Equal(t, first, second)
	})
}

func TestBuildAdjacency(t *testing.T) {
	nodes := nodesWithIDs(1, 2, 3)
	edges := []Edge{edgeBetween(1, 2)}
	adj := BuildAdjacency(nodes, edges)

	require.Len(t, adj[1], 1)
	require.Len(t, adj[2], 1)
	assert.Equal(t, 2, adj[1][0].ID)
	assert.Equal(t, 1, adj[2][0].ID)
	assert.Empty(t, adj[3])

	// Edges pointing at nodes outside the set are ignored.
	adj = BuildAdjacency(nodes, []Edge{edgeBetween(1, 99)})
	assert.Empty(t, adj[1])
}

func TestLargestComponent(t *testing.T) {
	nodes := nodesWithIDs(1, 2, 3, 4, 5)
	edges := []Edge{edgeBetween(1, 2), edgeBetween(2, 3), edgeBetween(4, 5)}

	members := LargestComponent(nodes, edges)
	assert.Len(t, members, 3)
	assert.True(t, members[1] && members[2] && members[3])
}
