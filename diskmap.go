package bnc

import (
	"fmt"
	"iter"
	"sync/atomic"
)

// DiskMap is a map persisted in one shard of a Pool under a private key prefix.
//
// Iteration follows the byte order of encoded keys, which is generally not
// the logical order of K. Values are decoded on every read; a value that
// cannot be decoded makes the operation panic with a *DataError, see Safely.
type DiskMap[K comparable, V any] struct {
	ns       *namespace
	keys     keyCodec[K]
	enc      Encoding
	released atomic.Bool
}

var _ Map[string, int] = (*DiskMap[string, int])(nil)

// OpenMap opens the map stored under path, creating it if it doesn't exist.
// Keys are encoded with MsgPack.
func OpenMap[K comparable, V any](p *Pool, path string) (*DiskMap[K, V], error) {
	return openDiskMap[K, V](p, path, msgpackKeys[K]{})
}

// OpenNumMap opens an integer-keyed map stored under path, creating it if it
// doesn't exist. Keys are stored as fixed-width little-endian integers, so
// iteration is in little-endian byte order rather than numeric order.
func OpenNumMap[K NumKey, V any](p *Pool, path string) (*DiskMap[K, V], error) {
	return openDiskMap[K, V](p, path, numKeys[K]{})
}

func openDiskMap[K comparable, V any](p *Pool, path string, keys keyCodec[K]) (*DiskMap[K, V], error) {
	ns, err := p.loadOrCreate(path)
	if err != nil {
		return nil, err
	}
	return &DiskMap[K, V]{ns: ns, keys: keys, enc: p.enc}, nil
}

// Release lets the pool forget the map once no other handle for the same
// path is open. The stored data is kept. The map must not be used afterwards.
// Calling Release more than once has no effect.
func (m *DiskMap[K, V]) Release() {
	if !m.released.Swap(true) {
		m.ns.pool.release(m.ns)
	}
}

// Path returns the logical path the map was opened with.
func (m *DiskMap[K, V]) Path() string {
	return m.ns.path()
}

func (m *DiskMap[K, V]) rawKey(key K) []byte {
	buf := m.ns.rawKey(keyBytesPool.Get().([]byte))
	return m.keys.appendKey(buf, key)
}

func (m *DiskMap[K, V]) decodeValue(raw []byte) V {
	var v V
	if err := m.enc.decode(raw, &v); err != nil {
		panic(fmt.Errorf("bnc: %s: %w", m.ns.path(), err))
	}
	return v
}

func (m *DiskMap[K, V]) decodeKey(raw []byte) K {
	k, err := m.keys.decodeKey(raw)
	if err != nil {
		panic(fmt.Errorf("bnc: %s: %w", m.ns.path(), err))
	}
	return k
}

func (m *DiskMap[K, V]) logOp(op string, k []byte, found bool) {
	if m.ns.pool.verbose {
		m.ns.pool.logger.Debug("db: "+op, "path", m.ns.path(), hexAttr("key", k[prefixLen:]), "found", found)
	}
}

// Get returns the value stored under key.
func (m *DiskMap[K, V]) Get(key K) (V, bool) {
	k := m.rawKey(key)
	defer releaseKeyBytes(k)
	raw, found := m.ns.get(k)
	m.logOp("GET", k, found)
	if !found {
		var zero V
		return zero, false
	}
	return m.decodeValue(raw), true
}

// ContainsKey reports whether key is present without decoding its value.
func (m *DiskMap[K, V]) ContainsKey(key K) bool {
	k := m.rawKey(key)
	defer releaseKeyBytes(k)
	found := m.ns.has(k)
	m.logOp("EXISTS", k, found)
	return found
}

// Insert stores value under key and returns the previous value, if any.
func (m *DiskMap[K, V]) Insert(key K, value V) (V, bool) {
	m.ns.mu.Lock()
	defer m.ns.mu.Unlock()
	old, existed := m.insertLocked(key, value, true)
	if !existed {
		var zero V
		return zero, false
	}
	return m.decodeValue(old), true
}

// Set stores value under key like Insert, without decoding the previous value.
func (m *DiskMap[K, V]) Set(key K, value V) {
	m.ns.mu.Lock()
	defer m.ns.mu.Unlock()
	m.insertLocked(key, value, false)
}

func (m *DiskMap[K, V]) insertLocked(key K, value V, wantOld bool) ([]byte, bool) {
	k := m.rawKey(key)
	defer releaseKeyBytes(k)
	v := m.enc.encode(nil, value)
	old, existed := m.ns.putLocked(k, v, wantOld)
	m.logOp("PUT", k, existed)
	return old, existed
}

// Remove deletes key and returns the removed value, if any.
func (m *DiskMap[K, V]) Remove(key K) (V, bool) {
	m.ns.mu.Lock()
	defer m.ns.mu.Unlock()
	old, existed := m.removeLocked(key, true)
	if !existed {
		var zero V
		return zero, false
	}
	return m.decodeValue(old), true
}

// Unset deletes key like Remove, without decoding the removed value.
func (m *DiskMap[K, V]) Unset(key K) {
	m.ns.mu.Lock()
	defer m.ns.mu.Unlock()
	m.removeLocked(key, false)
}

func (m *DiskMap[K, V]) removeLocked(key K, wantOld bool) ([]byte, bool) {
	k := m.rawKey(key)
	defer releaseKeyBytes(k)
	old, existed := m.ns.deleteLocked(k, wantOld)
	m.logOp("DELETE", k, existed)
	return old, existed
}

// Clear removes every entry of the map. The map's prefix stays allocated.
func (m *DiskMap[K, V]) Clear() {
	m.ns.mu.Lock()
	defer m.ns.mu.Unlock()
	m.ns.clearLocked()
	if m.ns.pool.verbose {
		m.ns.pool.logger.Debug("db: CLEAR", "path", m.ns.path())
	}
}

// Len returns the number of entries in O(1).
func (m *DiskMap[K, V]) Len() int {
	return m.ns.len()
}

func (m *DiskMap[K, V]) IsEmpty() bool {
	return m.Len() == 0
}

// All returns the entries in encoded key order. Each iteration reads the
// entries present when it starts; writes made by the loop body are not seen.
func (m *DiskMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.ns.entries(func(kv rawKV) bool {
			return yield(m.decodeKey(kv.key), m.decodeValue(kv.value))
		})
	}
}

func (m *DiskMap[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		m.ns.entries(func(kv rawKV) bool {
			return yield(m.decodeKey(kv.key))
		})
	}
}

func (m *DiskMap[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		m.ns.entries(func(kv rawKV) bool {
			return yield(m.decodeValue(kv.value))
		})
	}
}
