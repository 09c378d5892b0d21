package bnc

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

type Widget struct {
	Name  string   `json:"name" msgpack:"n"`
	Count int      `json:"count" msgpack:"c"`
	Tags  []string `json:"tags,omitempty" msgpack:"t"`
}

type compositeKey struct {
	A string
	B int
}

func TestMap_ScenarioA(t *testing.T) {
	dir := t.TempDir()
	p := must(Open(Options{Dir: dir, IsTesting: true}))

	m := must(OpenMap[int, string](p, "A"))
	m.Insert(1, "x")
	m.Insert(2, "y")
	deepEqual(t, m.Len(), 2)

	old, ok := m.Remove(1)
	deepEqual(t, ok, true)
	deepEqual(t, old, "x")
	deepEqual(t, m.Len(), 1)
	deepEqual(t, lookup[int, string](m, 1), nil)
	deepEqual(t, lookup[int, string](m, 2), ptr("y"))
	ensure(p.Close())

	p = must(Open(Options{Dir: dir, IsTesting: true}))
	defer p.Close()
	m = must(OpenMap[int, string](p, "A"))
	deepEqual(t, lookup[int, string](m, 2), ptr("y"))
	deepEqual(t, len(collect(m.All())), 1)
	deepEqual(t, m.Len(), 1)
}

func TestMap_InsertReturnsOld(t *testing.T) {
	forEachEngine(t, func(t *testing.T, p *Pool) {
		m := must(OpenMap[string, Widget](p, "widgets"))

		old, ok := m.Insert("a", Widget{Name: "first"})
		deepEqual(t, ok, false)
		deepEqual(t, old, Widget{})

		old, ok = m.Insert("a", Widget{Name: "second", Count: 2})
		deepEqual(t, ok, true)
		deepEqual(t, old, Widget{Name: "first"})
		deepEqual(t, m.Len(), 1)

		v, ok := m.Get("a")
		deepEqual(t, ok, true)
		deepEqual(t, v, Widget{Name: "second", Count: 2})

		_, ok = m.Remove("missing")
		deepEqual(t, ok, false)
		deepEqual(t, m.Len(), 1)
	})
}

func TestMap_RoundTrip(t *testing.T) {
	forEachEngine(t, func(t *testing.T, p *Pool) {
		m := must(OpenMap[compositeKey, Widget](p, "composite"))
		want := map[compositeKey]Widget{
			{"a", 1}:  {Name: "one", Count: 1, Tags: []string{"x"}},
			{"a", 2}:  {Name: "two", Count: 2},
			{"", 0}:   {},
			{"b", -5}: {Name: "neg", Tags: []string{"y", "z"}},
		}
		for k, v := range want {
			m.Set(k, v)
		}
		for k, v := range want {
			got, ok := m.Get(k)
			if !ok {
				t.Fatalf("Get(%v) not found", k)
			}
			deepEqual(t, got, v)
		}
		got := make(map[compositeKey]Widget)
		for k, v := range m.All() {
			got[k] = v
		}
		deepEqual(t, got, want)
	})
}

func TestMap_CounterInvariant(t *testing.T) {
	forEachEngine(t, func(t *testing.T, p *Pool) {
		m := must(OpenMap[string, int](p, "counter"))
		live := make(map[string]bool)
		for i := range 50 {
			k := fmt.Sprintf("k%d", i)
			m.Insert(k, i)
			live[k] = true
			if i%3 == 0 {
				victim := fmt.Sprintf("k%d", i/2)
				m.Remove(victim)
				delete(live, victim)
			}
			deepEqual(t, m.Len(), len(live))
		}
		deepEqual(t, m.IsEmpty(), false)

		m.Clear()
		deepEqual(t, m.Len(), 0)
		deepEqual(t, m.IsEmpty(), true)
		deepEqual(t, len(collect(m.All())), 0)
	})
}

func TestMap_Idempotence(t *testing.T) {
	forEachEngine(t, func(t *testing.T, p *Pool) {
		m := must(OpenMap[string, string](p, "idem"))
		m.Insert("k", "v")
		m.Insert("k", "v")
		m.Set("k", "v")
		deepEqual(t, m.Len(), 1)
		deepEqual(t, lookup[string, string](m, "k"), ptr("v"))

		m.Unset("k")
		m.Unset("k")
		deepEqual(t, m.Len(), 0)
		deepEqual(t, m.ContainsKey("k"), false)
	})
}

func TestMap_ContainsKeyDoesNotDecode(t *testing.T) {
	p := setupMem(t)
	m := must(OpenMap[string, Widget](p, "raw"))
	m.Set("ok", Widget{Name: "fine"})

	k := m.rawKey("bad")
	putRaw(t, p, shardIndex("raw"), k, []byte("{not json"))
	m.ns.count.Add(1)

	deepEqual(t, m.ContainsKey("bad"), true)
	deepEqual(t, m.ContainsKey("nope"), false)

	err := Safely(func() { m.Get("bad") })
	de := assertErrorAs[*DataError](t, err)
	deepEqual(t, string(de.Data), "{not json")
}

func TestMap_Isolation(t *testing.T) {
	forEachEngine(t, func(t *testing.T, p *Pool) {
		paths := samePaths(2)
		a := must(OpenMap[string, int](p, paths[0]))
		b := must(OpenMap[string, int](p, paths[1]))
		if a.ns.shard != b.ns.shard {
			t.Fatalf("paths %v landed on different shards", paths)
		}

		a.Insert("shared", 1)
		a.Insert("only-a", 2)
		b.Insert("shared", 10)

		deepEqual(t, a.Len(), 2)
		deepEqual(t, b.Len(), 1)
		deepEqual(t, lookup[string, int](a, "shared"), ptr(1))
		deepEqual(t, lookup[string, int](b, "shared"), ptr(10))
		deepEqual(t, lookup[string, int](b, "only-a"), nil)
		deepEqual(t, collect(b.All()), []entry[string, int]{{"shared", 10}})

		b.Clear()
		deepEqual(t, a.Len(), 2)
	})
}

func TestMap_SamePathSharesState(t *testing.T) {
	p := setup(t)
	a := must(OpenMap[string, int](p, "same"))
	b := must(OpenMap[string, int](p, "same"))
	a.Insert("x", 1)
	deepEqual(t, b.Len(), 1)
	b.Remove("x")
	deepEqual(t, a.Len(), 0)
}

func TestMap_IterationLargeMap(t *testing.T) {
	forEachEngine(t, func(t *testing.T, p *Pool) {
		m := must(OpenMap[string, int](p, "large"))
		const n = 529
		for i := range n {
			m.Set(fmt.Sprintf("%05d", i), i)
		}
		deepEqual(t, m.Len(), n)

		var keys []string
		var sum int
		for k, v := range m.All() {
			keys = append(keys, k)
			sum += v
		}
		deepEqual(t, len(keys), n)
		deepEqual(t, sum, n*(n-1)/2)

		seen := make(map[string]bool)
		for _, k := range keys {
			if seen[k] {
				t.Fatalf("key %q yielded twice", k)
			}
			seen[k] = true
		}

		var count int
		for range m.All() {
			count++
			if count == 10 {
				break
			}
		}
		deepEqual(t, count, 10)

		var values []int
		for v := range m.Values() {
			values = append(values, v)
		}
		sort.Ints(values)
		deepEqual(t, values[0], 0)
		deepEqual(t, values[n-1], n-1)

		var keyCount int
		for range m.Keys() {
			keyCount++
		}
		deepEqual(t, keyCount, n)
	})
}

func TestMap_WriteDuringIteration(t *testing.T) {
	p := setup(t)
	src := must(OpenMap[int, int](p, "src"))
	dst := must(OpenMap[int, int](p, "dst"))
	for i := range 300 {
		src.Set(i, i)
	}
	for k, v := range src.All() {
		dst.Set(k, v*2)
		src.Set(k, v+1)
	}
	deepEqual(t, dst.Len(), 300)
	deepEqual(t, lookup[int, int](dst, 7), ptr(14))
	deepEqual(t, lookup[int, int](src, 7), ptr(8))
}

func TestMap_IterationEndsWhileGrowing(t *testing.T) {
	forEachEngine(t, func(t *testing.T, p *Pool) {
		m := must(OpenMap[string, int](p, "growing"))
		const initial = 300
		for i := range initial {
			m.Set(fmt.Sprintf("k%03d", i), i)
		}

		var n int
		for k := range m.All() {
			m.Set(k+"x", n)
			n++
			if n > 2*initial {
				t.Fatalf("iteration did not stop after %d entries", n)
			}
		}
		deepEqual(t, n, initial)
		deepEqual(t, m.Len(), 2*initial)

		var keys int
		for k := range m.Keys() {
			m.Unset(k)
			keys++
		}
		deepEqual(t, keys, 2*initial)
		deepEqual(t, m.Len(), 0)
	})
}

func TestMap_ConcurrentSameKeyInserts(t *testing.T) {
	forEachEngine(t, func(t *testing.T, p *Pool) {
		m := must(OpenMap[int, int](p, "race"))
		var wg sync.WaitGroup
		for w := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 40 {
					m.Insert(i, w)
				}
			}()
		}
		wg.Wait()
		deepEqual(t, m.Len(), 40)

		for w := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 40 {
					if i%8 == w {
						m.Remove(i)
					}
					m.Remove(i % 4)
				}
			}()
		}
		wg.Wait()
		deepEqual(t, m.Len(), 0)
	})
}

func TestMap_MsgPackValues(t *testing.T) {
	p := must(Open(Options{Engine: EngineMemory, IsTesting: true, ValueEncoding: MsgPack}))
	defer p.Close()

	m := must(OpenMap[string, Widget](p, "mp"))
	m.Set("w", Widget{Name: "packed", Count: 3, Tags: []string{"a"}})
	deepEqual(t, lookup[string, Widget](m, "w"), &Widget{Name: "packed", Count: 3, Tags: []string{"a"}})

	var raw []byte
	ensure(m.ns.shard.view(func(b storageBucket) error {
		k := m.rawKey("w")
		raw = append(raw, b.Get(k)...)
		releaseKeyBytes(k)
		return nil
	}))
	var w Widget
	ensure(decodeMsgpack(raw, &w))
	deepEqual(t, w.Name, "packed")
}

func TestMap_StrictLenDetectsDrift(t *testing.T) {
	p := setupMem(t)
	m := must(OpenMap[string, int](p, "drift"))
	m.Set("a", 1)

	k := m.rawKey("b")
	putRaw(t, p, shardIndex("drift"), k, []byte("2"))

	err := Safely(func() { m.Len() })
	if err == nil {
		t.Fatalf("Len() did not detect a stray entry")
	}
}

func TestMap_DecodeFailureInIteration(t *testing.T) {
	p := setupMem(t)
	m := must(OpenNumMap[uint32, string](p, "badkeys"))
	m.Set(1, "one")

	prefix := m.ns.meta.Prefix
	putRaw(t, p, shardIndex("badkeys"), append(append([]byte(nil), prefix...), 0xAA), []byte(`"short"`))
	m.ns.count.Add(1)

	err := Safely(func() {
		for range m.All() {
		}
	})
	de := assertErrorAs[*DataError](t, err)
	deepEqual(t, de.Data, []byte{0xAA})
}
