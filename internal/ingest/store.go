// Package ingest is the ingestion endpoint an external temperature sensor
// posts to. Only the latest reading is kept.
package ingest

import (
	"sync"
	"time"
)

// Reading is the latest sensor value.
type Reading struct {
	Temperature float64   `json:"temperature"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// Store holds the most recent reading. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	latest *Reading
	now    func() time.Time
}

// NewStore creates an empty Store. now may be nil.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// Set replaces the latest reading and returns it.
func (s *Store) Set(temperature float64) Reading {
	r := Reading{Temperature: temperature, ReceivedAt: s.now().UTC()}
	s.mu.Lock()
	s.latest = &r
	s.mu.Unlock()
	return r
}

// Latest returns the latest reading, or false if none was received yet.
func (s *Store) Latest() (Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Reading{}, false
	}
	return *s.latest, true
}
