package coordinator

import "sync"

// Snapshot holds the last successfully fetched collection, keyed by record id.
// It is replaced wholesale by its coordinator and read concurrently by entities.
type Snapshot[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	gen   uint64
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot[K comparable, V any]() *Snapshot[K, V] {
	return &Snapshot[K, V]{items: make(map[K]V)}
}

// Get returns the record for key.
func (s *Snapshot[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Snapshot[K, V]) Has(key K) bool {
	_, ok := s.Get(key)
	return ok
}

// All returns a copy of the current records.
func (s *Snapshot[K, V]) All() map[K]V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[K]V, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}

// Len returns the number of records.
func (s *Snapshot[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Generation increments on every replace.
func (s *Snapshot[K, V]) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// replace swaps in items. The caller must not retain items.
func (s *Snapshot[K, V]) replace(items map[K]V) {
	s.mu.Lock()
	s.items = items
	s.gen++
	s.mu.Unlock()
}
