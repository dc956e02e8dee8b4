package source

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/clubgraph/clubgraph/internal/graph"
)

// Neo4jSource loads the club network from a Neo4j database. Clubs are
// stored as (:Club) nodes and connections as [:CONNECTED_TO]
// relationships between them.
type Neo4jSource struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jSource connects to Neo4j and verifies connectivity before
// returning the source.
func NewNeo4jSource(ctx context.Context, uri, username, password string) (*Neo4jSource, error) {
	if uri == "" {
		return nil, ErrMissingURI
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jSource{driver: driver}, nil
}

func (s *Neo4jSource) LoadClubs(ctx context.Context) ([]graph.Club, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (c:Club) RETURN c.id AS id, c.name AS name, c.league AS league, "+
				"c.city AS city, c.founded AS founded, c.stadium AS stadium, "+
				"c.latitude AS lat, c.longitude AS lon ORDER BY id",
			nil)
		if err != nil {
			return nil, err
		}
		var clubs []graph.Club
		for records.Next(ctx) {
			rec := records.Record()
			club := graph.Club{
				ID:      int(intValue(rec, "id")),
				Name:    stringValue(rec, "name"),
				League:  stringValue(rec, "league"),
				City:    stringValue(rec, "city"),
				Founded: int(intValue(rec, "founded")),
				Stadium: stringValue(rec, "stadium"),
			}
			if lat, ok := floatValue(rec, "lat"); ok {
				club.Lat = &lat
			}
			if lon, ok := floatValue(rec, "lon"); ok {
				club.Lon = &lon
			}
			clubs = append(clubs, club)
		}
		return clubs, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load clubs: %w", err)
	}
	return result.([]graph.Club), nil
}

func (s *Neo4jSource) LoadConnections(ctx context.Context) ([]graph.Connection, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (a:Club)-[r:CONNECTED_TO]->(b:Club) "+
				"RETURN a.id AS source, b.id AS target, r.type AS type, "+
				"r.weight AS weight, r.active AS active, "+
				"r.start_date AS start, r.end_date AS end "+
				"ORDER BY source, target",
			nil)
		if err != nil {
			return nil, err
		}
		var conns []graph.Connection
		for records.Next(ctx) {
			rec := records.Record()
			conn := graph.Connection{
				SourceID:  int(intValue(rec, "source")),
				TargetID:  int(intValue(rec, "target")),
				Type:      graph.ConnectionType(stringValue(rec, "type")),
				Weight:    numericWeight(rec),
				Active:    boolValue(rec, "active"),
				StartDate: dateValue(rec, "start"),
				EndDate:   dateValue(rec, "end"),
			}
			conns = append(conns, conn)
		}
		return conns, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load connections: %w", err)
	}
	return result.([]graph.Connection), nil
}

func (s *Neo4jSource) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func intValue(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func floatValue(rec *neo4j.Record, key string) (float64, bool) {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func boolValue(rec *neo4j.Record, key string) bool {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func dateValue(rec *neo4j.Record, key string) *time.Time {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func numericWeight(rec *neo4j.Record) float64 {
	w, ok := floatValue(rec, "weight")
	if !ok {
		return 0
	}
	return w
}

var _ Source = (*Neo4jSource)(nil)
