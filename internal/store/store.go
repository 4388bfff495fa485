// Package store holds the in-memory working dataset served by the query API.
package store

import (
	"sync"

	"github.com/couchcryptid/hazard-analytics-service/internal/domain"
)

// DefaultMaxRecords bounds the working set; when exceeded, the oldest records
// fall off.
const DefaultMaxRecords = 50000

// Store is a bounded, deduplicated, newest-first record set. Adds merge into
// the existing set, so replaying a batch is idempotent.
type Store struct {
	mu         sync.RWMutex
	records    []domain.HazardRecord
	maxRecords int
	generation uint64
}

// New creates a Store with the given capacity; non-positive means
// DefaultMaxRecords.
func New(maxRecords int) *Store {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &Store{maxRecords: maxRecords}
}

// Add merges a batch into the working set and returns the new size. Records
// stay sorted newest first; when the cap is exceeded the oldest are dropped.
func (s *Store) Add(records []domain.HazardRecord) int {
	if len(records) == 0 {
		return s.Size()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = domain.Merge(s.records, records)
	if len(s.records) > s.maxRecords {
		s.records = s.records[:s.maxRecords]
	}
	s.generation++
	return len(s.records)
}

// Snapshot returns a copy of the current record set, newest first.
func (s *Store) Snapshot() []domain.HazardRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.HazardRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Size returns the current record count.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Generation increments on every successful Add; cached query results keyed
// by it are invalidated when new data lands.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
