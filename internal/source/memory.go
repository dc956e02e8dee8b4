package source

import (
	"context"
	"sync"

	"github.com/clubgraph/clubgraph/internal/graph"
)

// MemorySource is an in-memory Source implementation used in tests and
// for seeding demos without a running database.
type MemorySource struct {
	mu       sync.Mutex
	clubs    []graph.Club
	conns    []graph.Connection
	clubErr  error
	connErr  error
	loadCnt  int
	closeCnt int
}

// NewMemorySource creates a source serving the given records.
func NewMemorySource(clubs []graph.Club, conns []graph.Connection) *MemorySource {
	return &MemorySource{clubs: clubs, conns: conns}
}

// WithClubError forces LoadClubs to fail with the given error.
func (m *MemorySource) WithClubError(err error) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clubErr = err
	return m
}

// WithConnectionError forces LoadConnections to fail.
func (m *MemorySource) WithConnectionError(err error) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connErr = err
	return m
}

// SetRecords replaces the served records.
func (m *MemorySource) SetRecords(clubs []graph.Club, conns []graph.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clubs, m.conns = clubs, conns
}

// LoadCount returns how many times LoadClubs ran, for cache assertions.
func (m *MemorySource) LoadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCnt
}

func (m *MemorySource) LoadClubs(_ context.Context) ([]graph.Club, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCnt++
	if m.clubErr != nil {
		return nil, m.clubErr
	}
	out := make([]graph.Club, len(m.clubs))
	copy(out, m.clubs)
	return out, nil
}

func (m *MemorySource) LoadConnections(_ context.Context) ([]graph.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connErr != nil {
		return nil, m.connErr
	}
	out := make([]graph.Connection, len(m.conns))
	copy(out, m.conns)
	return out, nil
}

func (m *MemorySource) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCnt++
	return nil
}
