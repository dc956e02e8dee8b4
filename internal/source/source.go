// Package source loads club and connection records from their backing
// stores and assembles them into graph snapshots.
package source

import (
	"context"
	"errors"

	"github.com/clubgraph/clubgraph/internal/graph"
)

// Source provides the two bulk record feeds the graph is built from.
// Both are treated as eventually-consistent snapshots, not incremental
// streams.
type Source interface {
	LoadClubs(ctx context.Context) ([]graph.Club, error)
	LoadConnections(ctx context.Context) ([]graph.Connection, error)
	Close(ctx context.Context) error
}

// ErrMissingURI indicates a graph database URI was not provided.
var ErrMissingURI = errors.New("source: database URI is required")

// ErrMissingPath indicates a file source path was not provided.
var ErrMissingPath = errors.New("source: data path is required")
