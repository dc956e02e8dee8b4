package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/clubgraph/clubgraph/internal/graph"
	"github.com/clubgraph/clubgraph/internal/observability"
)

// Loader combines the club and connection feeds into a snapshot and
// caches the result until a forced refresh. A failed load returns the
// error together with an empty snapshot so callers can render an empty
// state instead of crashing; the previously cached snapshot is kept
// untouched. No retries happen here; retry policy belongs to the
// individual source.
type Loader struct {
	mu         sync.Mutex
	src        Source
	logger     *slog.Logger
	cached     *graph.Snapshot
	cachedErrs []graph.ValidationError
}

// NewLoader wraps a source.
func NewLoader(src Source, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{src: src, logger: logger}
}

// Load returns the current snapshot, rebuilding it from the source when
// the cache is empty or forceRefresh is set. Validation problems in the
// source data are returned alongside the snapshot; they do not fail the
// load, and a cache hit reports the problems recorded when the cached
// snapshot was built.
func (l *Loader) Load(ctx context.Context, forceRefresh bool) (*graph.Snapshot, []graph.ValidationError, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && !forceRefresh {
		return l.cached, l.cachedErrs, nil
	}

	ctx, span := observability.StartLoadSpan(ctx, forceRefresh)
	defer span.End()

	clubs, err := l.src.LoadClubs(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return graph.Empty(), nil, fmt.Errorf("load clubs: %w", err)
	}
	conns, err := l.src.LoadConnections(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return graph.Empty(), nil, fmt.Errorf("load connections: %w", err)
	}

	snap, verrs := graph.BuildSnapshot(clubs, conns)
	observability.RecordGraphSize(span, len(snap.Nodes), len(snap.Edges))
	if len(verrs) > 0 {
		l.logger.Warn("source data rejected records",
			"problems", len(verrs), "first", verrs[0].Error())
	}
	l.logger.Info("graph snapshot built",
		"nodes", snap.Meta.TotalNodes,
		"edges", snap.Meta.TotalEdges,
		"components", snap.Meta.Components)

	l.cached = snap
	l.cachedErrs = verrs
	return snap, verrs, nil
}

// Cached returns the last successfully built snapshot, if any.
func (l *Loader) Cached() (*graph.Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cached, l.cached != nil
}

// Invalidate drops the cache so the next Load rebuilds.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
	l.cachedErrs = nil
}

// Close releases the underlying source.
func (l *Loader) Close(ctx context.Context) error {
	return l.src.Close(ctx)
}
