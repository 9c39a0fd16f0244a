package terrain

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a store has no heightmap under a name.
var ErrNotFound = errors.New("heightmap not found")

// Store persists heightmaps. SaveHeights is called after every mutating grid
// operation and must not retain the slice.
type Store interface {
	SaveHeights(name string, width, height int, heights []float32) error
	LoadHeights(name string) (width, height int, heights []float32, err error)
}

type memoryEntry struct {
	width, height int
	heights       []float32
}

// MemoryStore keeps the latest copy of each heightmap in memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	saves   map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		saves:   make(map[string]int),
	}
}

func (s *MemoryStore) SaveHeights(name string, width, height int, heights []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = memoryEntry{
		width:   width,
		height:  height,
		heights: append([]float32(nil), heights...),
	}
	s.saves[name]++
	return nil
}

func (s *MemoryStore) LoadHeights(name string) (int, int, []float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return 0, 0, nil, ErrNotFound
	}
	return e.width, e.height, append([]float32(nil), e.heights...), nil
}

// Saves returns how many times name has been saved.
func (s *MemoryStore) Saves(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[name]
}
