package graph

import (
	"fmt"
	"strings"
)

// ValidationError reports one problem found in a source record. The
// builder collects all problems instead of stopping at the first so a
// caller can surface them as a batch.
type ValidationError struct {
	Record  string `json:"record"` // "club" or "connection"
	Index   int    `json:"index"`  // position in the input slice
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s[%d].%s: %s", e.Record, e.Index, e.Field, e.Message)
}

// ValidateConnection checks a single connection record against the set
// of known node ids. It returns every problem found, not just the first.
func ValidateConnection(index int, conn Connection, nodeIDs map[int]bool) []ValidationError {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Record: "connection", Index: index, Field: field, Message: msg})
	}

	if conn.SourceID == conn.TargetID {
		add("target_id", fmt.Sprintf("self-loop on node %d is not allowed", conn.SourceID))
	}
	if !nodeIDs[conn.SourceID] {
		add("source_id", fmt.Sprintf("unknown club %d", conn.SourceID))
	}
	if !nodeIDs[conn.TargetID] {
		add("target_id", fmt.Sprintf("unknown club %d", conn.TargetID))
	}
	if conn.Weight < 0 || conn.Weight > 100 {
		add("weight", fmt.Sprintf("weight %.1f outside [0, 100]", conn.Weight))
	}
	if conn.Type != "" && !knownType(conn.Type) {
		add("type", fmt.Sprintf("unknown connection type %q", conn.Type))
	}
	if conn.StartDate != nil && conn.EndDate != nil && conn.EndDate.Before(*conn.StartDate) {
		add("end_date", "end date precedes start date")
	}
	return errs
}

func knownType(t ConnectionType) bool {
	for _, k := range KnownConnectionTypes {
		if t == k {
			return true
		}
	}
	return false
}

// StrengthForWeight maps a numeric weight to its coarse strength tag.
func StrengthForWeight(w float64) Strength {
	switch {
	case w >= 70:
		return StrengthStrong
	case w >= 40:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// EdgeID derives the stable identifier of an edge from its endpoints
// and type.
func EdgeID(source, target int, t ConnectionType) string {
	return fmt.Sprintf("%d-%d-%s", source, target, t)
}

// BuildSnapshot turns raw club and connection records into a snapshot.
// Invalid records are skipped and reported; the returned snapshot
// contains only nodes and edges that passed validation. Duplicate club
// ids keep the first occurrence.
func BuildSnapshot(clubs []Club, conns []Connection) (*Snapshot, []ValidationError) {
	var errs []ValidationError

	nodeIDs := make(map[int]bool, len(clubs))
	nodes := make([]Node, 0, len(clubs))
	for i, club := range clubs {
		if nodeIDs[club.ID] {
			errs = append(errs, ValidationError{
				Record: "club", Index: i, Field: "id",
				Message: fmt.Sprintf("duplicate club id %d", club.ID),
			})
			continue
		}
		if club.Name == "" {
			errs = append(errs, ValidationError{
				Record: "club", Index: i, Field: "name", Message: "name is required",
			})
			continue
		}
		nodeIDs[club.ID] = true
		nodes = append(nodes, Node{
			ID:    club.ID,
			Label: club.Name,
			Club:  club,
			Shape: "circle",
			Color: leagueColor(club.League),
		})
	}

	seen := make(map[string]bool, len(conns))
	edges := make([]Edge, 0, len(conns))
	for i, conn := range conns {
		if verrs := ValidateConnection(i, conn, nodeIDs); len(verrs) > 0 {
			errs = append(errs, verrs...)
			continue
		}
		id := EdgeID(conn.SourceID, conn.TargetID, conn.Type)
		if seen[id] {
			errs = append(errs, ValidationError{
				Record: "connection", Index: i, Field: "id",
				Message: fmt.Sprintf("duplicate connection %s", id),
			})
			continue
		}
		seen[id] = true
		strength := conn.Strength
		if strength == "" {
			strength = StrengthForWeight(conn.Weight)
		}
		edges = append(edges, Edge{
			ID:        id,
			Source:    conn.SourceID,
			Target:    conn.TargetID,
			Type:      conn.Type,
			Strength:  strength,
			Weight:    conn.Weight,
			Active:    conn.Active,
			StartDate: conn.StartDate,
			EndDate:   conn.EndDate,
		})
	}

	// Size nodes by degree so well-connected clubs render larger.
	degrees := Degrees(nodes, edges)
	for i := range nodes {
		nodes[i].Size = nodeSize(degrees[nodes[i].ID])
	}

	return NewSnapshot(nodes, edges), errs
}

func nodeSize(degree int) float64 {
	size := 8 + 2*float64(degree)
	if size > 30 {
		size = 30
	}
	return size
}

// leagueColor assigns a stable palette color per league name.
var leaguePalette = []string{
	"#1f6feb", "#238636", "#8957e5", "#d29922",
	"#f85149", "#3fb950", "#58a6ff", "#db61a2",
}

func leagueColor(league string) string {
	if league == "" {
		return "#30363d"
	}
	var h uint32
	for _, r := range strings.ToLower(league) {
		h = h*31 + uint32(r)
	}
	return leaguePalette[h%uint32(len(leaguePalette))]
}
