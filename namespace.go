package bnc

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// namespace is the shared state of one logical instance: its prefix, its
// shard and the cached element count. mu serializes mutations, so the
// read-old-value/write/count sequence of one instance never interleaves.
// Every handle opened on the path shares the namespace until the last one
// is released.
type namespace struct {
	pool  *Pool
	shard *shard
	meta  instanceMeta

	mu    sync.Mutex
	count atomic.Int64

	refs int // open handles, guarded by pool.nsLock
}

type rawKV struct {
	key   []byte // without prefix
	value []byte
}

func (ns *namespace) path() string {
	return ns.meta.Path
}

func (ns *namespace) rawKey(buf []byte) []byte {
	return appendRaw(buf[:0], ns.meta.Prefix)
}

func (ns *namespace) engineErr(op string, key []byte, err error) error {
	return engineErrf(op, ns.meta.Path, ns.shard.idx, key, err)
}

// get returns a copy of the value stored under the raw key k.
func (ns *namespace) get(k []byte) ([]byte, bool) {
	ns.pool.ReadCount.Add(1)
	var v []byte
	err := ns.shard.view(func(b storageBucket) error {
		if raw := b.Get(k); raw != nil {
			v = slices.Clone(raw)
			if v == nil {
				v = []byte{}
			}
		}
		return nil
	})
	if err != nil {
		panic(ns.engineErr("get", k, err))
	}
	return v, v != nil
}

func (ns *namespace) has(k []byte) bool {
	ns.pool.ReadCount.Add(1)
	var found bool
	err := ns.shard.view(func(b storageBucket) error {
		found = b.Get(k) != nil
		return nil
	})
	if err != nil {
		panic(ns.engineErr("has", k, err))
	}
	return found
}

// putLocked stores v under k and returns the previous value, if any.
// The count changes only after the write has committed. Caller holds mu.
func (ns *namespace) putLocked(k, v []byte, wantOld bool) (old []byte, existed bool) {
	ns.pool.WriteCount.Add(1)
	err := ns.shard.update(func(b storageBucket) error {
		if raw := b.Get(k); raw != nil {
			existed = true
			if wantOld {
				old = slices.Clone(raw)
			}
		}
		return b.Put(k, v)
	})
	if err != nil {
		panic(ns.engineErr("put", k, err))
	}
	if !existed {
		ns.count.Add(1)
	}
	return old, existed
}

// deleteLocked removes k and returns the previous value, if any. Caller holds mu.
func (ns *namespace) deleteLocked(k []byte, wantOld bool) (old []byte, existed bool) {
	ns.pool.WriteCount.Add(1)
	err := ns.shard.update(func(b storageBucket) error {
		raw := b.Get(k)
		if raw == nil {
			return nil
		}
		existed = true
		if wantOld {
			old = slices.Clone(raw)
		}
		return b.Delete(k)
	})
	if err != nil {
		panic(ns.engineErr("delete", k, err))
	}
	if existed {
		ns.count.Add(-1)
	}
	return old, existed
}

// clearLocked deletes every key of the namespace. Caller holds mu.
func (ns *namespace) clearLocked() {
	ns.pool.WriteCount.Add(1)
	err := ns.shard.update(func(b storageBucket) error {
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(ns.meta.Prefix); k != nil && bytes.HasPrefix(k, ns.meta.Prefix); k, _ = c.Next() {
			keys = append(keys, slices.Clone(k))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		panic(ns.engineErr("clear", nil, err))
	}
	ns.count.Store(0)
}

// snapshot returns every raw entry of the namespace in key byte order, as of
// a single read transaction.
func (ns *namespace) snapshot() []rawKV {
	ns.pool.ReadCount.Add(1)
	prefix := ns.meta.Prefix

	var result []rawKV
	err := ns.shard.view(func(b storageBucket) error {
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			result = append(result, rawKV{
				key:   slices.Clone(k[len(prefix):]),
				value: slices.Clone(v),
			})
		}
		return nil
	})
	if err != nil {
		panic(ns.engineErr("scan", nil, err))
	}
	return result
}

// entries yields the entries present when it is called. The read transaction
// is closed before the first yield, so the loop body may write to the pool;
// such writes are not visible to the running iteration.
func (ns *namespace) entries(yield func(kv rawKV) bool) {
	for _, kv := range ns.snapshot() {
		if !yield(kv) {
			return
		}
	}
}

func (ns *namespace) scanCount() (int, error) {
	var n int
	err := ns.shard.view(func(b storageBucket) error {
		n = countPrefix(b, ns.meta.Prefix)
		return nil
	})
	return n, err
}

// len returns the cached count. In strict pools it is checked against a
// full prefix scan first.
func (ns *namespace) len() int {
	if !ns.pool.strict {
		return int(ns.count.Load())
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	n := int(ns.count.Load())
	actual, err := ns.scanCount()
	if err != nil {
		panic(ns.engineErr("count", nil, err))
	}
	if actual != n {
		panic(fmt.Errorf("bnc: %s: cached length %d does not match %d stored entries", ns.meta.Path, n, actual))
	}
	return n
}
