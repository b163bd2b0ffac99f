package engine

import (
	"context"
	"sync"

	"github.com/the-biKing/hikingTW/internal/itinerary"
	"github.com/the-biKing/hikingTW/internal/pace"
)

// MemoryStore keeps profiles and itineraries in memory. Used by the replay
// tool and tests.
type MemoryStore struct {
	mu          sync.Mutex
	profiles    map[string]*pace.Profile
	itineraries map[string]*itinerary.Itinerary
	completions []pace.Completion
	saves       int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]*pace.Profile),
		itineraries: make(map[string]*itinerary.Itinerary),
	}
}

// LoadProfile returns nil, nil when the user has no profile
func (m *MemoryStore) LoadProfile(ctx context.Context, userID string) (*pace.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[userID]; ok {
		return p.Clone(), nil
	}
	return nil, nil
}

// SaveProfile stores a copy of profile
func (m *MemoryStore) SaveProfile(ctx context.Context, userID string, profile *pace.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = profile.Clone()
	m.saves++
	return nil
}

// LoadItinerary returns nil, nil when the user has no itinerary
func (m *MemoryStore) LoadItinerary(ctx context.Context, userID string) (*itinerary.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.itineraries[userID]; ok {
		return it.Clone(), nil
	}
	return nil, nil
}

// SaveItinerary stores a copy of it
func (m *MemoryStore) SaveItinerary(ctx context.Context, userID string, it *itinerary.Itinerary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itineraries[userID] = it.Clone()
	m.saves++
	return nil
}

// Saves returns how many writes the store has received
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// RecordCompletion keeps the completion in memory
func (m *MemoryStore) RecordCompletion(ctx context.Context, userID string, c pace.Completion, obs pace.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, c)
	return nil
}

// Completions returns every recorded completion in order
func (m *MemoryStore) Completions() []pace.Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pace.Completion(nil), m.completions...)
}
