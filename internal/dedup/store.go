// Package dedup tracks which reaction triggers have already been claimed by
// a pipeline run. State lives only for the lifetime of the process.
package dedup

import (
	"sync"

	"newsbot/internal/domain"
)

// Store is a process-wide set of claimed trigger keys.
type Store struct {
	mu   sync.Mutex
	seen map[domain.TriggerKey]struct{}
}

func New() *Store {
	return &Store{seen: make(map[domain.TriggerKey]struct{})}
}

// MarkIfNew claims key and reports whether it was unclaimed. The membership
// test and the insert happen under one lock.
func (s *Store) MarkIfNew(key domain.TriggerKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Release drops a claim so a later reaction can retry the run. Used only
// when a run failed on infrastructure rather than data.
func (s *Store) Release(key domain.TriggerKey) {
	s.mu.Lock()
	delete(s.seen, key)
	s.mu.Unlock()
}

// Len returns the number of claimed keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
