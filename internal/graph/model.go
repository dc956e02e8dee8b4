// Package graph holds the in-memory club network model: nodes, edges,
// snapshots and their derived metadata.
package graph

import "time"

// ConnectionType classifies the relationship between two clubs.
type ConnectionType string

const (
	ConnectionRivalry        ConnectionType = "rivalry"
	ConnectionFriendly       ConnectionType = "friendly"
	ConnectionGeographic     ConnectionType = "geographic"
	ConnectionHistorical     ConnectionType = "historical"
	ConnectionBusiness       ConnectionType = "business"
	ConnectionPlayerTransfer ConnectionType = "player-transfer"
	ConnectionCoachingStaff  ConnectionType = "coaching-staff"
	ConnectionPartnership    ConnectionType = "partnership"
	ConnectionTransfer       ConnectionType = "transfer"
	ConnectionLoan           ConnectionType = "loan"
	ConnectionYouth          ConnectionType = "youth-development"
	ConnectionManagement     ConnectionType = "management"
)

// KnownConnectionTypes lists every accepted connection type tag.
var KnownConnectionTypes = []ConnectionType{
	ConnectionRivalry, ConnectionFriendly, ConnectionGeographic,
	ConnectionHistorical, ConnectionBusiness, ConnectionPlayerTransfer,
	ConnectionCoachingStaff, ConnectionPartnership, ConnectionTransfer,
	ConnectionLoan, ConnectionYouth, ConnectionManagement,
}

// Strength buckets a connection's numeric weight into a coarse tag.
type Strength string

const (
	StrengthWeak     Strength = "weak"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
)

// Club is the source record a node is built from.
type Club struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	League  string   `json:"league"`
	City    string   `json:"city"`
	Founded int      `json:"founded"`
	Stadium string   `json:"stadium,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// HasCoordinates reports whether the club carries a geographic position.
func (c Club) HasCoordinates() bool {
	return c.Lat != nil && c.Lon != nil
}

// Connection is the raw inter-club relationship record.
type Connection struct {
	SourceID  int            `json:"source_id"`
	TargetID  int            `json:"target_id"`
	Type      ConnectionType `json:"type"`
	Strength  Strength       `json:"strength"`
	Weight    float64        `json:"weight"` // 0-100 relationship strength
	Active    bool           `json:"active"`
	StartDate *time.Time     `json:"start_date,omitempty"`
	EndDate   *time.Time     `json:"end_date,omitempty"`
}

// Node is a club rendered as a graph vertex.
type Node struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Club  Club   `json:"club"`

	// Rendering attributes.
	Size  float64  `json:"size"`
	Color string   `json:"color"`
	Shape string   `json:"shape"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	FX    *float64 `json:"fx,omitempty"` // fixed position, nil = free
	FY    *float64 `json:"fy,omitempty"`

	// Hidden is the viewport-culling visibility flag. It is the only
	// field on a snapshot the render controller may mutate.
	Hidden bool `json:"hidden"`
}

// Edge is a connection rendered as a graph link. Direction is kept
// (some connection types are semantically directed) but every analysis
// treats edges as undirected.
type Edge struct {
	ID        string         `json:"id"`
	Source    int            `json:"source"`
	Target    int            `json:"target"`
	Type      ConnectionType `json:"type"`
	Strength  Strength       `json:"strength"`
	Weight    float64        `json:"weight"`
	Active    bool           `json:"active"`
	StartDate *time.Time     `json:"start_date,omitempty"`
	EndDate   *time.Time     `json:"end_date,omitempty"`
	Hidden    bool           `json:"hidden"`
}

// Metadata holds measures derived from a snapshot's node and edge sets.
type Metadata struct {
	TotalNodes  int       `json:"total_nodes"`
	TotalEdges  int       `json:"total_edges"`
	Density     float64   `json:"density"`
	Components  int       `json:"components"`
	AvgDegree   float64   `json:"avg_degree"`
	MinDegree   int       `json:"min_degree"`
	MaxDegree   int       `json:"max_degree"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Snapshot is an immutable-by-convention capture of the club network.
// Any edit to the underlying data produces a new snapshot; the only
// in-place mutation permitted is the node/edge Hidden flag.
type Snapshot struct {
	Nodes []Node   `json:"nodes"`
	Edges []Edge   `json:"edges"`
	Meta  Metadata `json:"metadata"`

	nodeIndex map[int]int
	edgePairs map[[2]int]bool
}

// Empty returns a snapshot with no nodes or edges, used as the fallback
// when an upstream load fails.
func Empty() *Snapshot {
	return NewSnapshot(nil, nil)
}

// NewSnapshot assembles a snapshot from prepared nodes and edges and
// computes its metadata.
func NewSnapshot(nodes []Node, edges []Edge) *Snapshot {
	s := &Snapshot{
		Nodes:     nodes,
		Edges:     edges,
		nodeIndex: make(map[int]int, len(nodes)),
		edgePairs: make(map[[2]int]bool, len(edges)),
	}
	for i, n := range nodes {
		s.nodeIndex[n.ID] = i
	}
	for _, e := range edges {
		s.edgePairs[pairKey(e.Source, e.Target)] = true
	}
	s.Meta = computeMetadata(nodes, edges)
	return s
}

// Node returns the node with the given id, if present.
func (s *Snapshot) Node(id int) (*Node, bool) {
	i, ok := s.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return &s.Nodes[i], true
}

// HasNode reports whether the snapshot contains the given node id.
func (s *Snapshot) HasNode(id int) bool {
	_, ok := s.nodeIndex[id]
	return ok
}

// Connected reports whether an edge exists between a and b in either
// direction.
func (s *Snapshot) Connected(a, b int) bool {
	return s.edgePairs[pairKey(a, b)]
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// computeMetadata derives density, degree statistics and the component
// count from the given node and edge sets. Degree counts every incident
// edge, so the degree sum is always twice the edge count.
func computeMetadata(nodes []Node, edges []Edge) Metadata {
	m := Metadata{
		TotalNodes:  len(nodes),
		TotalEdges:  len(edges),
		GeneratedAt: time.Now().UTC(),
	}
	if len(nodes) == 0 {
		return m
	}

	degrees := Degrees(nodes, edges)
	min, max, sum := -1, 0, 0
	for _, n := range nodes {
		d := degrees[n.ID]
		sum += d
		if min < 0 || d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	m.MinDegree = min
	m.MaxDegree = max
	m.AvgDegree = float64(sum) / float64(len(nodes))
	if len(nodes) > 1 {
		m.Density = float64(2*len(edges)) / float64(len(nodes)*(len(nodes)-1))
	}
	m.Components = len(Components(nodes, edges))
	return m
}

// Degrees returns the undirected degree of every node.
func Degrees(nodes []Node, edges []Edge) map[int]int {
	degrees := make(map[int]int, len(nodes))
	for _, n := range nodes {
		degrees[n.ID] = 0
	}
	for _, e := range edges {
		degrees[e.Source]++
		degrees[e.Target]++
	}
	return degrees
}
