package graph

// Neighbor is one side of an undirected adjacency entry.
type Neighbor struct {
	ID     int
	Weight float64
}

// Adjacency is an undirected adjacency list keyed by node id. Every
// edge contributes an entry in both directions.
type Adjacency map[int][]Neighbor

// BuildAdjacency constructs the undirected adjacency list shared by the
// connectivity, path, analysis and recommendation code. Neighbor order
// follows edge input order, which keeps traversals deterministic for a
// fixed node/edge ordering.
func BuildAdjacency(nodes []Node, edges []Edge) Adjacency {
	adj := make(Adjacency, len(nodes))
	for _, n := range nodes {
		adj[n.ID] = nil
	}
	for _, e := range edges {
		if _, ok := adj[e.Source]; !ok {
			continue
		}
		if _, ok := adj[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], Neighbor{ID: e.Target, Weight: e.Weight})
		adj[e.Target] = append(adj[e.Target], Neighbor{ID: e.Source, Weight: e.Weight})
	}
	return adj
}

// Components partitions the node ids into connected components using
// depth-first search, one component per unvisited root. The result is
// a true partition: every node id appears in exactly one component.
// Returns an empty list for an empty node set.
func Components(nodes []Node, edges []Edge) [][]int {
	adj := BuildAdjacency(nodes, edges)
	visited := make(map[int]bool, len(nodes))

	var components [][]int
	for _, root := range nodes {
		if visited[root.ID] {
			continue
		}
		// Iterative DFS; explicit stack avoids recursion depth limits
		// on long chains.
		var component []int
		stack := []int{root.ID}
		visited[root.ID] = true
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, id)
			for _, nb := range adj[id] {
				if !visited[nb.ID] {
					visited[nb.ID] = true
					stack = append(stack, nb.ID)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// LargestComponent returns the biggest component of the given node and
// edge sets as a member set. Ties are broken by the first component
// found during the scan.
func LargestComponent(nodes []Node, edges []Edge) map[int]bool {
	components := Components(nodes, edges)
	best := -1
	for i, c := range components {
		if best < 0 || len(c) > len(components[best]) {
			best = i
		}
	}
	members := make(map[int]bool)
	if best >= 0 {
		for _, id := range components[best] {
			members[id] = true
		}
	}
	return members
}
