package repo

import (
	"maps"
	"slices"
	"sync"
)

// SafeMap is the mutex-guarded map backing in-memory repositories.
type SafeMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		m: make(map[K]V),
	}
}

func (s *SafeMap[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *SafeMap[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, found := s.m[key]
	return val, found
}

func (s *SafeMap[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

func (s *SafeMap[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Values(s.m))
}

// Update runs fn on every value under the write lock and stores what it returns.
func (s *SafeMap[K, V]) Update(fn func(K, V) (V, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m {
		if nv, changed := fn(k, v); changed {
			s.m[k] = nv
		}
	}
}

// SetIfAbsent stores value unless a value matching conflict already exists.
func (s *SafeMap[K, V]) SetIfAbsent(key K, value V, conflict func(V) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.m {
		if conflict(v) {
			return false
		}
	}
	s.m[key] = value
	return true
}
