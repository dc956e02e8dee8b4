// Package filter derives non-destructive filtered views of a club
// network snapshot. The source snapshot is never mutated; Apply always
// returns a new snapshot with recomputed metadata.
package filter

import (
	"fmt"

	"github.com/clubgraph/clubgraph/internal/graph"
)

// Edges below this weight are removed by the HideWeak layout toggle.
const weakEdgeThreshold = 30.0

// Criteria is a value object of optional predicates over node and edge
// attributes plus layout-level toggles. A nil/empty field means "no
// constraint".
type Criteria struct {
	// Node predicates. These never look at edges; DegreeMin/DegreeMax
	// test against degrees in the source snapshot.
	Leagues            []string `json:"leagues,omitempty"`
	Cities             []string `json:"cities,omitempty"`
	FoundedMin         *int     `json:"founded_min,omitempty"`
	FoundedMax         *int     `json:"founded_max,omitempty"`
	RequireCoordinates bool     `json:"require_coordinates,omitempty"`
	DegreeMin          *int     `json:"degree_min,omitempty"`
	DegreeMax          *int     `json:"degree_max,omitempty"`

	// Edge predicates. These never look at nodes.
	Types       []graph.ConnectionType `json:"types,omitempty"`
	Strengths   []graph.Strength       `json:"strengths,omitempty"`
	WeightMin   *float64               `json:"weight_min,omitempty"`
	WeightMax   *float64               `json:"weight_max,omitempty"`
	ActiveOnly  bool                   `json:"active_only,omitempty"`
	WithEndDate *bool                  `json:"with_end_date,omitempty"`

	// Layout toggles, applied after node/edge filtering.
	HideIsolated         bool `json:"hide_isolated,omitempty"`
	HideWeak             bool `json:"hide_weak,omitempty"`
	LargestComponentOnly bool `json:"largest_component_only,omitempty"`
}

// Validate reports malformed ranges. All problems are returned at once.
func (c Criteria) Validate() []graph.ValidationError {
	var errs []graph.ValidationError
	add := func(field, msg string) {
		errs = append(errs, graph.ValidationError{Record: "filter", Field: field, Message: msg})
	}

	if c.FoundedMin != nil && c.FoundedMax != nil && *c.FoundedMin > *c.FoundedMax {
		add("founded_max", fmt.Sprintf("founded range inverted: %d > %d", *c.FoundedMin, *c.FoundedMax))
	}
	if c.DegreeMin != nil && c.DegreeMax != nil && *c.DegreeMin > *c.DegreeMax {
		add("degree_max", fmt.Sprintf("degree range inverted: %d > %d", *c.DegreeMin, *c.DegreeMax))
	}
	if c.WeightMin != nil && c.WeightMax != nil && *c.WeightMin > *c.WeightMax {
		add("weight_max", fmt.Sprintf("weight range inverted: %.1f > %.1f", *c.WeightMin, *c.WeightMax))
	}
	if c.WeightMin != nil && (*c.WeightMin < 0 || *c.WeightMin > 100) {
		add("weight_min", fmt.Sprintf("weight %.1f outside [0, 100]", *c.WeightMin))
	}
	if c.WeightMax != nil && (*c.WeightMax < 0 || *c.WeightMax > 100) {
		add("weight_max", fmt.Sprintf("weight %.1f outside [0, 100]", *c.WeightMax))
	}
	if c.DegreeMin != nil && *c.DegreeMin < 0 {
		add("degree_min", "degree cannot be negative")
	}
	return errs
}

// IsZero reports whether the criteria applies no constraint at all.
func (c Criteria) IsZero() bool {
	return len(c.Leagues) == 0 && len(c.Cities) == 0 &&
		c.FoundedMin == nil && c.FoundedMax == nil &&
		!c.RequireCoordinates && c.DegreeMin == nil && c.DegreeMax == nil &&
		len(c.Types) == 0 && len(c.Strengths) == 0 &&
		c.WeightMin == nil && c.WeightMax == nil &&
		!c.ActiveOnly && c.WithEndDate == nil &&
		!c.HideIsolated && !c.HideWeak && !c.LargestComponentOnly
}

// Apply produces a filtered snapshot. Node and edge predicates run
// independently, then edges whose endpoints were filtered out are
// dropped, then layout toggles run last. Metadata is recomputed from
// the filtered counts.
func Apply(snap *graph.Snapshot, c Criteria) *graph.Snapshot {
	if snap == nil {
		return graph.Empty()
	}

	sourceDegrees := graph.Degrees(snap.Nodes, snap.Edges)

	nodes := make([]graph.Node, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if c.matchNode(n, sourceDegrees[n.ID]) {
			nodes = append(nodes, n)
		}
	}

	kept := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		kept[n.ID] = true
	}

	edges := make([]graph.Edge, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		if !c.matchEdge(e) {
			continue
		}
		// Post-pass: drop edges with filtered-out endpoints.
		if !kept[e.Source] || !kept[e.Target] {
			continue
		}
		edges = append(edges, e)
	}

	nodes, edges = c.applyLayout(nodes, edges)
	return graph.NewSnapshot(nodes, edges)
}

func (c Criteria) matchNode(n graph.Node, degree int) bool {
	if len(c.Leagues) > 0 && !containsString(c.Leagues, n.Club.League) {
		return false
	}
	if len(c.Cities) > 0 && !containsString(c.Cities, n.Club.City) {
		return false
	}
	if c.FoundedMin != nil && n.Club.Founded < *c.FoundedMin {
		return false
	}
	if c.FoundedMax != nil && n.Club.Founded > *c.FoundedMax {
		return false
	}
	if c.RequireCoordinates && !n.Club.HasCoordinates() {
		return false
	}
	if c.DegreeMin != nil && degree < *c.DegreeMin {
		return false
	}
	if c.DegreeMax != nil && degree > *c.DegreeMax {
		return false
	}
	return true
}

func (c Criteria) matchEdge(e graph.Edge) bool {
	if len(c.Types) > 0 && !containsType(c.Types, e.Type) {
		return false
	}
	if len(c.Strengths) > 0 && !containsStrength(c.Strengths, e.Strength) {
		return false
	}
	if c.WeightMin != nil && e.Weight < *c.WeightMin {
		return false
	}
	if c.WeightMax != nil && e.Weight > *c.WeightMax {
		return false
	}
	if c.ActiveOnly && !e.Active {
		return false
	}
	if c.WithEndDate != nil && (e.EndDate != nil) != *c.WithEndDate {
		return false
	}
	return true
}

// applyLayout runs the layout-level toggles on the already-filtered
// node/edge sets. Weak edges go first so isolated-node removal sees the
// final edge set.
func (c Criteria) applyLayout(nodes []graph.Node, edges []graph.Edge) ([]graph.Node, []graph.Edge) {
	if c.HideWeak {
		strong := edges[:0]
		for _, e := range edges {
			if e.Weight >= weakEdgeThreshold {
				strong = append(strong, e)
			}
		}
		edges = strong
	}

	if c.HideIsolated {
		degrees := graph.Degrees(nodes, edges)
		connected := nodes[:0]
		for _, n := range nodes {
			if degrees[n.ID] > 0 {
				connected = append(connected, n)
			}
		}
		nodes = connected
	}

	if c.LargestComponentOnly {
		members := graph.LargestComponent(nodes, edges)
		keptNodes := nodes[:0]
		for _, n := range nodes {
			if members[n.ID] {
				keptNodes = append(keptNodes, n)
			}
		}
		nodes = keptNodes
		keptEdges := edges[:0]
		for _, e := range edges {
			if members[e.Source] && members[e.Target] {
				keptEdges = append(keptEdges, e)
			}
		}
		edges = keptEdges
	}
	return nodes, edges
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsType(haystack []graph.ConnectionType, needle graph.ConnectionType) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsStrength(haystack []graph.Strength, needle graph.Strength) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
