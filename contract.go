package bnc

import (
	"iter"
	"reflect"
)

// Map is the contract shared by DiskMap and MemMap.
type Map[K comparable, V any] interface {
	Path() string
	Get(key K) (V, bool)
	ContainsKey(key K) bool
	Insert(key K, value V) (V, bool)
	Set(key K, value V)
	Remove(key K) (V, bool)
	Unset(key K)
	Clear()
	Len() int
	IsEmpty() bool
	All() iter.Seq2[K, V]
	Keys() iter.Seq[K]
	Values() iter.Seq[V]
	Release()
}

// Seq is the contract shared by DiskSeq and MemSeq.
type Seq[V any] interface {
	Path() string
	Get(i uint64) (V, bool)
	Set(i uint64, value V)
	Push(value V)
	Pop() (V, bool)
	Last() (V, bool)
	Truncate(n int)
	Clear()
	Len() int
	IsEmpty() bool
	All() iter.Seq2[uint64, V]
	Values() iter.Seq[V]
	Release()
}

// NewMap returns the map stored under path: a DiskMap, or a fresh MemMap if
// the pool is transient. A failed open is retried once.
func NewMap[K comparable, V any](p *Pool, path string) (Map[K, V], error) {
	if p.Transient() {
		return NewMemMap[K, V](path), nil
	}
	return tryTwice(p.logger, "open map "+path, func() (Map[K, V], error) {
		m, err := OpenMap[K, V](p, path)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// NewNumMap is like NewMap for integer keys.
func NewNumMap[K NumKey, V any](p *Pool, path string) (Map[K, V], error) {
	if p.Transient() {
		return NewMemMap[K, V](path), nil
	}
	return tryTwice(p.logger, "open map "+path, func() (Map[K, V], error) {
		m, err := OpenNumMap[K, V](p, path)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// NewSeq returns the sequence stored under path: a DiskSeq, or a fresh
// MemSeq if the pool is transient. A failed open is retried once.
func NewSeq[V any](p *Pool, path string) (Seq[V], error) {
	if p.Transient() {
		return NewMemSeq[V](path), nil
	}
	return tryTwice(p.logger, "open seq "+path, func() (Seq[V], error) {
		m, err := OpenSeq[V](p, path)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// Equal reports whether a and b yield the same entries in the same iteration
// order. Maps holding the same entries in a different order are not equal.
func Equal[K comparable, V any](a, b Map[K, V]) bool {
	if a.Len() != b.Len() {
		return false
	}
	return seq2Equal(a.All(), b.All())
}

// SeqEqual reports whether a and b hold equal values at every index.
func SeqEqual[V any](a, b Seq[V]) bool {
	if a.Len() != b.Len() {
		return false
	}
	return seq2Equal(a.All(), b.All())
}

func seq2Equal[K comparable, V any](a, b iter.Seq2[K, V]) bool {
	nextA, stopA := iter.Pull2(a)
	defer stopA()
	nextB, stopB := iter.Pull2(b)
	defer stopB()
	for {
		ka, va, okA := nextA()
		kb, vb, okB := nextB()
		if okA != okB {
			return false
		}
		if !okA {
			return true
		}
		if ka != kb || !reflect.DeepEqual(va, vb) {
			return false
		}
	}
}
