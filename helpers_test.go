package bnc

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func init() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func setup(t testing.TB) *Pool {
	t.Helper()
	p := must(Open(Options{
		Dir:       t.TempDir(),
		IsTesting: true,
		Verbose:   testing.Verbose(),
	}))
	t.Cleanup(func() { ensure(p.Close()) })
	return p
}

func setupMem(t testing.TB) *Pool {
	t.Helper()
	p := must(Open(Options{
		Engine:    EngineMemory,
		IsTesting: true,
	}))
	t.Cleanup(func() { ensure(p.Close()) })
	return p
}

// forEachEngine runs f against a Bolt pool and an in-memory engine pool.
func forEachEngine(t *testing.T, f func(t *testing.T, p *Pool)) {
	t.Run("bolt", func(t *testing.T) {
		f(t, setup(t))
	})
	t.Run("memory", func(t *testing.T) {
		f(t, setupMem(t))
	})
}

func deepEqual[T any](t testing.TB, a, e T) {
	if diff := cmp.Diff(e, a); diff != "" {
		t.Helper()
		t.Errorf("** got %v, wanted %v (-wanted +got):\n%s", a, e, diff)
	}
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}

func assertErrorAs[E error](t testing.TB, err error) E {
	t.Helper()
	var target E
	if !errors.As(err, &target) {
		t.Fatalf("err = %v (%T), wanted %T", err, err, target)
	}
	return target
}

type entry[K, V any] struct {
	K K
	V V
}

func collect[K, V any](seq iter.Seq2[K, V]) []entry[K, V] {
	var out []entry[K, V]
	for k, v := range seq {
		out = append(out, entry[K, V]{k, v})
	}
	return out
}

func lookup[K comparable, V any](m Map[K, V], key K) *V {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	return &v
}

func ptr[T any](v T) *T {
	return &v
}

// samePaths returns n distinct paths that hash to the same shard.
func samePaths(n int) []string {
	return pathsOnShard(shardIndex("iso/0"), n)
}

func pathsOnShard(shard, n int) []string {
	var out []string
	for i := 0; len(out) < n; i++ {
		path := fmt.Sprintf("iso/%d", i)
		if shardIndex(path) == shard {
			out = append(out, path)
		}
	}
	return out
}

// putRaw writes directly into a shard, bypassing every collection.
func putRaw(t testing.TB, p *Pool, shard int, key, value []byte) {
	t.Helper()
	ensure(p.handle(shard).update(func(b storageBucket) error {
		return b.Put(key, value)
	}))
}
