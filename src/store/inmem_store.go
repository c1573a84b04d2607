package store

import (
	"sort"
	"sync"
)

// InmemStore implements the Store interface with a map. It is safe for
// concurrent use, so the HTTP service can read it while the node writes.
type InmemStore struct {
	sync.RWMutex
	values map[int32]struct{}
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		values: make(map[int32]struct{}),
	}
}

// Add implements the Store interface.
func (s *InmemStore) Add(v int32) (bool, error) {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.values[v]; ok {
		return false, nil
	}
	s.values[v] = struct{}{}
	return true, nil
}

// Contains implements the Store interface.
func (s *InmemStore) Contains(v int32) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.values[v]
	return ok
}

// Values implements the Store interface.
func (s *InmemStore) Values() []int32 {
	s.RLock()
	res := make([]int32, 0, len(s.values))
	for v := range s.values {
		res = append(res, v)
	}
	s.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Len implements the Store interface.
func (s *InmemStore) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.values)
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
