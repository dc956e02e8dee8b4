package analysis

import (
	"sort"
	"time"

	"github.com/clubgraph/clubgraph/internal/graph"
)

const topRankingSize = 10

// NodeScore pairs a node with a ranking value.
type NodeScore struct {
	ID    int     `json:"id"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Community is one connected component treated as a community grouping.
// Modularity is always 0: no community-detection pass runs beyond the
// component split, and the value is kept so callers see the limitation
// explicitly rather than a fabricated score.
type Community struct {
	ID         int     `json:"id"`
	Members    []int   `json:"members"`
	Modularity float64 `json:"modularity"`
}

// Report aggregates degree, centrality and community measures for one
// snapshot.
//
// The betweenness, closeness and eigenvector maps are degree-derived
// approximations, not true centrality computations; Approximate is
// always true to flag that. Swapping in real algorithms would change
// ranking output and is deliberately not done here.
type Report struct {
	Degree      map[int]int     `json:"degree"`
	Betweenness map[int]float64 `json:"betweenness"`
	Closeness   map[int]float64 `json:"closeness"`
	Eigenvector map[int]float64 `json:"eigenvector"`
	Approximate bool            `json:"approximate"`

	Communities []Community `json:"communities"`

	TopByDegree      []NodeScore `json:"top_by_degree"`
	TopByBetweenness []NodeScore `json:"top_by_betweenness"`
	TopByCloseness   []NodeScore `json:"top_by_closeness"`
	TopByEigenvector []NodeScore `json:"top_by_eigenvector"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Analyze computes the full analysis report for a snapshot. It has no
// side effects on the snapshot.
func Analyze(snap *graph.Snapshot) *Report {
	r := &Report{
		Degree:      make(map[int]int),
		Betweenness: make(map[int]float64),
		Closeness:   make(map[int]float64),
		Eigenvector: make(map[int]float64),
		Approximate: true,
		GeneratedAt: time.Now().UTC(),
	}
	if snap == nil || len(snap.Nodes) == 0 {
		return r
	}

	r.Degree = graph.Degrees(snap.Nodes, snap.Edges)

	maxDegree := 0
	for _, d := range r.Degree {
		if d > maxDegree {
			maxDegree = d
		}
	}
	n := len(snap.Nodes)
	for id, d := range r.Degree {
		// Degree-based placeholders, normalized into [0, 1].
		r.Betweenness[id] = float64(d)
		if n > 1 {
			r.Closeness[id] = float64(d) / float64(n-1)
		}
		if maxDegree > 0 {
			r.Eigenvector[id] = float64(d) / float64(maxDegree)
		}
	}

	for i, members := range graph.Components(snap.Nodes, snap.Edges) {
		r.Communities = append(r.Communities, Community{ID: i, Members: members})
	}

	r.TopByDegree = topNodes(snap, func(id int) float64 { return float64(r.Degree[id]) })
	r.TopByBetweenness = topNodes(snap, func(id int) float64 { return r.Betweenness[id] })
	r.TopByCloseness = topNodes(snap, func(id int) float64 { return r.Closeness[id] })
	r.TopByEigenvector = topNodes(snap, func(id int) float64 { return r.Eigenvector[id] })
	return r
}

// topNodes ranks all nodes by the given measure, highest first, ties
// kept in input order, truncated to the top ten.
func topNodes(snap *graph.Snapshot, score func(id int) float64) []NodeScore {
	ranked := make([]NodeScore, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		ranked = append(ranked, NodeScore{ID: n.ID, Label: n.Label, Score: score(n.ID)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > topRankingSize {
		ranked = ranked[:topRankingSize]
	}
	return ranked
}
