// Package nodes caches analysis results by physical location.
package nodes

import (
	"sync"
	"sync/atomic"

	"github.com/mchr3k/eclemma/internal/coverage"
	"github.com/mchr3k/eclemma/internal/location"
)

// MetricsSnapshot is a point-in-time copy of a Store's counters.
type MetricsSnapshot struct {
	Hits   uint64
	Misses uint64
	Stores uint64
}

// Metrics holds the live counters behind a MetricsSnapshot.
type Metrics struct {
	hits   atomic.Uint64
	misses atomic.Uint64
	stores atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Stores: m.stores.Load(),
	}
}

// Store maps physical locations to analysis results. Entries never expire;
// the store lives as long as the analyzer owning it.
type Store struct {
	mu      sync.RWMutex
	entries map[location.Physical]*coverage.AnalyzedNodes
	metrics Metrics
}

func New() *Store {
	return &Store{entries: make(map[location.Physical]*coverage.AnalyzedNodes)}
}

// Get returns the result stored for loc and counts a hit or a miss.
func (s *Store) Get(loc location.Physical) (*coverage.AnalyzedNodes, bool) {
	s.mu.RLock()
	n, ok := s.entries[loc]
	s.mu.RUnlock()
	if ok {
		s.metrics.hits.Add(1)
	} else {
		s.metrics.misses.Add(1)
	}
	return n, ok
}

// Peek is Get without touching the metrics.
func (s *Store) Peek(loc location.Physical) (*coverage.AnalyzedNodes, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.entries[loc]
	return n, ok
}

// Put stores n for loc, replacing any earlier entry. A nil n is ignored.
func (s *Store) Put(loc location.Physical, n *coverage.AnalyzedNodes) {
	if n == nil {
		return
	}
	s.mu.Lock()
	s.entries[loc] = n
	s.mu.Unlock()
	s.metrics.stores.Add(1)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.snapshot()
}
