// Package analysis computes connectivity, shortest-path, centrality and
// recommendation measures over a club network snapshot. Every function
// here is a pure function of the snapshot it is given, so the routines
// can later move to a background worker without contract changes.
package analysis

import "github.com/clubgraph/clubgraph/internal/graph"

// maxEdgeWeight bounds connection weights; traversal cost of an edge is
// maxEdgeWeight minus its weight, so strong relationships are cheap to
// cross.
const maxEdgeWeight = 100

// Path is the result of a shortest-path query.
type Path struct {
	Nodes  []int   `json:"nodes"`
	Cost   float64 `json:"cost"`
	Exists bool    `json:"exists"`
}

// ShortestPath runs Dijkstra over the undirected adjacency list with
// inverted edge cost (100 - weight). Missing node ids and disconnected
// pairs resolve to Exists=false with an empty path, never an error.
// Ties between equally distant frontier nodes are broken by the first
// minimum found in the unvisited scan; that order is deterministic for
// a fixed input ordering but is not a stable contract.
//
// The linear unvisited scan makes this O(V^2), which is fine for the
// few thousand nodes a club network reaches.
func ShortestPath(snap *graph.Snapshot, sourceID, targetID int) Path {
	if snap == nil || !snap.HasNode(sourceID) || !snap.HasNode(targetID) {
		return Path{}
	}
	if sourceID == targetID {
		return Path{Nodes: []int{sourceID}, Cost: 0, Exists: true}
	}

	adj := graph.BuildAdjacency(snap.Nodes, snap.Edges)

	dist := make(map[int]float64, len(snap.Nodes))
	prev := make(map[int]int, len(snap.Nodes))
	unvisited := make(map[int]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		unvisited[n.ID] = true
	}
	dist[sourceID] = 0

	for len(unvisited) > 0 {
		current, found := 0, false
		best := 0.0
		// First minimum found wins.
		for _, n := range snap.Nodes {
			if !unvisited[n.ID] {
				continue
			}
			d, reachable := dist[n.ID]
			if !reachable {
				continue
			}
			if !found || d < best {
				current, best, found = n.ID, d, true
			}
		}
		if !found {
			break // remaining nodes are unreachable
		}
		if current == targetID {
			return Path{Nodes: rebuildPath(prev, sourceID, targetID), Cost: best, Exists: true}
		}
		delete(unvisited, current)

		for _, nb := range adj[current] {
			if !unvisited[nb.ID] {
				continue
			}
			cost := maxEdgeWeight - nb.Weight
			if cost < 0 {
				cost = 0
			}
			next := best + cost
			if d, reachable := dist[nb.ID]; !reachable || next < d {
				dist[nb.ID] = next
				prev[nb.ID] = current
			}
		}
	}
	return Path{}
}

func rebuildPath(prev map[int]int, sourceID, targetID int) []int {
	reversed := []int{targetID}
	for at := targetID; at != sourceID; {
		at = prev[at]
		reversed = append(reversed, at)
	}
	path := make([]int, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}
