package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/clubgraph/clubgraph/internal/graph"
)

// Additive scoring bonuses for a candidate connection.
const (
	scoreSameLeague     = 30.0
	scoreSameCity       = 25.0
	scoreNearby         = 20.0
	scorePerMutual      = 5.0
	nearbyDistanceKM    = 50.0
	earthRadiusKM       = 6371.0
	strongScoreCutoff   = 50.0
	moderateScoreCutoff = 25.0
)

// Recommendation is a transient scored suggestion for a new connection.
// It is produced on demand and never stored.
type Recommendation struct {
	SourceID          int                  `json:"source_id"`
	TargetID          int                  `json:"target_id"`
	Score             float64              `json:"score"`
	Reasons           []string             `json:"reasons"`
	SuggestedType     graph.ConnectionType `json:"suggested_type"`
	SuggestedStrength graph.Strength       `json:"suggested_strength"`
	MutualNeighbors   int                  `json:"mutual_neighbors"`
	DistanceKM        *float64             `json:"distance_km,omitempty"`
	SameLeague        bool                 `json:"same_league"`
	SameCity          bool                 `json:"same_city"`
}

// Recommend scores every node not already connected to nodeID by shared
// attributes and mutual neighbors, and returns up to maxResults
// suggestions, highest score first. Candidates scoring zero are
// excluded. Equal scores keep input order so results are reproducible
// for identical input.
func Recommend(snap *graph.Snapshot, nodeID int, maxResults int) []Recommendation {
	if snap == nil {
		return nil
	}
	origin, ok := snap.Node(nodeID)
	if !ok {
		return nil
	}

	adj := graph.BuildAdjacency(snap.Nodes, snap.Edges)
	originNeighbors := neighborSet(adj, nodeID)

	recs := make([]Recommendation, 0)
	for _, candidate := range snap.Nodes {
		if candidate.ID == nodeID || snap.Connected(nodeID, candidate.ID) {
			continue
		}
		rec := scorePair(origin, &candidate, adj, originNeighbors)
		if rec.Score <= 0 {
			continue
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if maxResults > 0 && len(recs) > maxResults {
		recs = recs[:maxResults]
	}
	return recs
}

func scorePair(origin, candidate *graph.Node, adj graph.Adjacency, originNeighbors map[int]bool) Recommendation {
	rec := Recommendation{SourceID: origin.ID, TargetID: candidate.ID}

	if origin.Club.League != "" && origin.Club.League == candidate.Club.League {
		rec.SameLeague = true
		rec.Score += scoreSameLeague
		rec.Reasons = append(rec.Reasons, "same league")
	}
	if origin.Club.City != "" && origin.Club.City == candidate.Club.City {
		rec.SameCity = true
		rec.Score += scoreSameCity
		rec.Reasons = append(rec.Reasons, "same city")
	}
	if origin.Club.HasCoordinates() && candidate.Club.HasCoordinates() {
		d := haversineKM(*origin.Club.Lat, *origin.Club.Lon, *candidate.Club.Lat, *candidate.Club.Lon)
		rec.DistanceKM = &d
		if d < nearbyDistanceKM {
			rec.Score += scoreNearby
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("within %.0f km", nearbyDistanceKM))
		}
	}

	for id := range originNeighbors {
		if id == origin.ID || id == candidate.ID {
			continue
		}
		if neighborOf(adj, candidate.ID, id) {
			rec.MutualNeighbors++
		}
	}
	if rec.MutualNeighbors > 0 {
		rec.Score += scorePerMutual * float64(rec.MutualNeighbors)
		rec.Reasons = append(rec.Reasons, fmt.Sprintf("%d mutual connections", rec.MutualNeighbors))
	}

	switch {
	case rec.SameCity:
		rec.SuggestedType = graph.ConnectionGeographic
	case rec.SameLeague:
		rec.SuggestedType = graph.ConnectionFriendly
	default:
		rec.SuggestedType = graph.ConnectionPartnership
	}
	switch {
	case rec.Score > strongScoreCutoff:
		rec.SuggestedStrength = graph.StrengthStrong
	case rec.Score > moderateScoreCutoff:
		rec.SuggestedStrength = graph.StrengthModerate
	default:
		rec.SuggestedStrength = graph.StrengthWeak
	}
	return rec
}

func neighborSet(adj graph.Adjacency, id int) map[int]bool {
	set := make(map[int]bool, len(adj[id]))
	for _, nb := range adj[id] {
		set[nb.ID] = true
	}
	return set
}

func neighborOf(adj graph.Adjacency, id, neighbor int) bool {
	for _, nb := range adj[id] {
		if nb.ID == neighbor {
			return true
		}
	}
	return false
}

// haversineKM returns the great-circle distance between two coordinate
// pairs in kilometers.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
