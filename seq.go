package bnc

import (
	"fmt"
	"iter"
)

// DiskSeq is an append-indexed list persisted as a numeric-key map from
// index to value. Its length is the map's element count.
type DiskSeq[V any] struct {
	m *DiskMap[uint64, V]
}

var _ Seq[int] = (*DiskSeq[int])(nil)

// OpenSeq opens the sequence stored under path, creating it if it doesn't exist.
func OpenSeq[V any](p *Pool, path string) (*DiskSeq[V], error) {
	m, err := OpenNumMap[uint64, V](p, path)
	if err != nil {
		return nil, err
	}
	return &DiskSeq[V]{m}, nil
}

func (s *DiskSeq[V]) Path() string {
	return s.m.Path()
}

// Release works like DiskMap.Release.
func (s *DiskSeq[V]) Release() {
	s.m.Release()
}

func (s *DiskSeq[V]) Len() int {
	return s.m.Len()
}

func (s *DiskSeq[V]) IsEmpty() bool {
	return s.m.Len() == 0
}

// Get returns the value at index i, or false if i is out of range.
func (s *DiskSeq[V]) Get(i uint64) (V, bool) {
	if i >= uint64(s.m.ns.count.Load()) {
		var zero V
		return zero, false
	}
	return s.m.Get(i)
}

// Last returns the value at the end of the sequence.
func (s *DiskSeq[V]) Last() (V, bool) {
	n := s.m.ns.count.Load()
	if n == 0 {
		var zero V
		return zero, false
	}
	return s.m.Get(uint64(n - 1))
}

// Set replaces the value at index i. Setting i == Len() appends.
// It panics if i > Len().
func (s *DiskSeq[V]) Set(i uint64, value V) {
	s.m.ns.mu.Lock()
	defer s.m.ns.mu.Unlock()
	if n := uint64(s.m.ns.count.Load()); i > n {
		panic(fmt.Errorf("bnc: %s: index %d out of range [0:%d]", s.m.Path(), i, n))
	}
	s.m.insertLocked(i, value, false)
}

// Push appends value to the end of the sequence.
func (s *DiskSeq[V]) Push(value V) {
	s.m.ns.mu.Lock()
	defer s.m.ns.mu.Unlock()
	s.m.insertLocked(uint64(s.m.ns.count.Load()), value, false)
}

// Pop removes and returns the last value.
func (s *DiskSeq[V]) Pop() (V, bool) {
	s.m.ns.mu.Lock()
	defer s.m.ns.mu.Unlock()
	n := s.m.ns.count.Load()
	if n == 0 {
		var zero V
		return zero, false
	}
	old, existed := s.m.removeLocked(uint64(n-1), true)
	if !existed {
		panic(fmt.Errorf("bnc: %s: missing tail element %d", s.m.Path(), n-1))
	}
	return s.m.decodeValue(old), true
}

// Truncate removes elements from the tail until at most n remain.
func (s *DiskSeq[V]) Truncate(n int) {
	s.m.ns.mu.Lock()
	defer s.m.ns.mu.Unlock()
	for cur := s.m.ns.count.Load(); cur > int64(max(n, 0)); cur = s.m.ns.count.Load() {
		if _, existed := s.m.removeLocked(uint64(cur-1), false); !existed {
			panic(fmt.Errorf("bnc: %s: missing tail element %d", s.m.Path(), cur-1))
		}
	}
}

func (s *DiskSeq[V]) Clear() {
	s.m.Clear()
}

// All yields the elements in index order 0..n-1, where n is the length when
// iteration starts. Elements pushed during iteration are not visited.
func (s *DiskSeq[V]) All() iter.Seq2[uint64, V] {
	return func(yield func(uint64, V) bool) {
		n := uint64(s.m.ns.count.Load())
		for i := uint64(0); i < n; i++ {
			v, ok := s.Get(i)
			if !ok || !yield(i, v) {
				return
			}
		}
	}
}

func (s *DiskSeq[V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range s.All() {
			if !yield(v) {
				return
			}
		}
	}
}
