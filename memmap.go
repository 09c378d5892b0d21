package bnc

import (
	"iter"
	"sync"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// MemMap is the in-memory counterpart of DiskMap. Nothing is persisted, and
// iteration follows insertion order instead of encoded key order, so code
// must not rely on both variants iterating alike.
type MemMap[K comparable, V any] struct {
	path string
	mu   sync.RWMutex
	m    *linkedhashmap.Map
}

var _ Map[string, int] = (*MemMap[string, int])(nil)

func NewMemMap[K comparable, V any](path string) *MemMap[K, V] {
	return &MemMap[K, V]{path: path, m: linkedhashmap.New()}
}

func (m *MemMap[K, V]) Path() string {
	return m.path
}

// Release does nothing; a memory map holds no pool resources.
func (m *MemMap[K, V]) Release() {}

func (m *MemMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(key)
}

func (m *MemMap[K, V]) getLocked(key K) (V, bool) {
	v, found := m.m.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	return cast[V](v), true
}

// cast converts a value stored in the untyped gods map back to T. A nil
// interface becomes the zero T.
func cast[T any](x any) T {
	v, _ := x.(T)
	return v
}

func (m *MemMap[K, V]) ContainsKey(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, found := m.m.Get(key)
	return found
}

// Insert stores value under key. Overwriting a key keeps its original position.
func (m *MemMap[K, V]) Insert(key K, value V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, existed := m.getLocked(key)
	m.m.Put(key, value)
	return old, existed
}

func (m *MemMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m.Put(key, value)
}

func (m *MemMap[K, V]) Remove(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, existed := m.getLocked(key)
	if existed {
		m.m.Remove(key)
	}
	return old, existed
}

func (m *MemMap[K, V]) Unset(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m.Remove(key)
}

func (m *MemMap[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m.Clear()
}

func (m *MemMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.m.Size()
}

func (m *MemMap[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

// All yields a snapshot of the entries taken when iteration starts.
func (m *MemMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.mu.RLock()
		keys := m.m.Keys()
		values := m.m.Values()
		m.mu.RUnlock()
		for i, k := range keys {
			if !yield(cast[K](k), cast[V](values[i])) {
				return
			}
		}
	}
}

func (m *MemMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

func (m *MemMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}
