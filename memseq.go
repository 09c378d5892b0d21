package bnc

import (
	"fmt"
	"iter"
	"sync"
)

// MemSeq is the in-memory counterpart of DiskSeq.
type MemSeq[V any] struct {
	path  string
	mu    sync.RWMutex
	items []V
}

var _ Seq[int] = (*MemSeq[int])(nil)

func NewMemSeq[V any](path string) *MemSeq[V] {
	return &MemSeq[V]{path: path}
}

func (s *MemSeq[V]) Path() string {
	return s.path
}

func (s *MemSeq[V]) Release() {}

func (s *MemSeq[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemSeq[V]) IsEmpty() bool {
	return s.Len() == 0
}

func (s *MemSeq[V]) Get(i uint64) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i >= uint64(len(s.items)) {
		var zero V
		return zero, false
	}
	return s.items[i], true
}

func (s *MemSeq[V]) Last() (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		var zero V
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// Set replaces the value at index i. Setting i == Len() appends.
// It panics if i > Len().
func (s *MemSeq[V]) Set(i uint64, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := uint64(len(s.items))
	switch {
	case i < n:
		s.items[i] = value
	case i == n:
		s.items = append(s.items, value)
	default:
		panic(fmt.Errorf("bnc: %s: index %d out of range [0:%d]", s.path, i, n))
	}
}

func (s *MemSeq[V]) Push(value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, value)
}

func (s *MemSeq[V]) Pop() (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero V
	n := len(s.items)
	if n == 0 {
		return zero, false
	}
	v := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]
	return v, true
}

func (s *MemSeq[V]) Truncate(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n = max(n, 0)
	if n >= len(s.items) {
		return
	}
	clear(s.items[n:])
	s.items = s.items[:n]
}

func (s *MemSeq[V]) Clear() {
	s.Truncate(0)
}

func (s *MemSeq[V]) All() iter.Seq2[uint64, V] {
	return func(yield func(uint64, V) bool) {
		n := uint64(s.Len())
		for i := uint64(0); i < n; i++ {
			v, ok := s.Get(i)
			if !ok || !yield(i, v) {
				return
			}
		}
	}
}

func (s *MemSeq[V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range s.All() {
			if !yield(v) {
				return
			}
		}
	}
}
