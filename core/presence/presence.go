// Package presence caches the latest live-tracked candidate positions. The
// feed is high-frequency and eventually consistent; staleness is handled by
// the freshness window, never by blocking.
package presence

import (
	"sync"
	"time"

	"github.com/jbleroy/fieldops/core/model"
)

// DefaultFreshness is the window after which a live position is considered
// stale and broadcasts fall back to the fixed profile coordinate.
const DefaultFreshness = 5 * time.Minute

// Position is one observed candidate coordinate.
type Position struct {
	Coordinate model.Coordinate `json:"coordinate"`
	ObservedAt time.Time        `json:"observed_at"`
}

// Fresh reports whether the position is recent enough to be trusted.
func (p Position) Fresh(now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultFreshness
	}
	return now.Sub(p.ObservedAt) <= window
}

// Store holds the last known position per candidate.
type Store interface {
	Set(candidateID string, p Position)
	Get(candidateID string) (Position, bool)
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Position
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Position{}}
}

func (s *MemoryStore) Set(candidateID string, p Position) {
	s.mu.Lock()
	s.data[candidateID] = p
	s.mu.Unlock()
}

func (s *MemoryStore) Get(candidateID string) (Position, bool) {
	s.mu.RLock()
	p, ok := s.data[candidateID]
	s.mu.RUnlock()
	return p, ok
}
