/*
Package bnc implements persistent collections on top of a key-value store
(in this case, on top of Bolt).

We implement:

1. Maps with arbitrary keys (OpenMap), encoded with MsgPack.

2. Maps with integer keys (OpenNumMap), encoded as fixed-width little-endian
integers.

3. Sequences (OpenSeq), append-indexed lists stored as integer-keyed maps.

4. In-memory variants of all of the above (MemMap, MemSeq) sharing the same
Map and Seq contracts. A Transient pool hands them out from NewMap and NewSeq.

# Technical Details

**Shards.**
A Pool opens ShardCount independent Bolt files, one per numbered
subdirectory of the data directory. Every collection lives in exactly one
shard, chosen by hashing its logical path with xxhash.

**Prefixes.**
Any number of collections share the shards. Each collection gets a private
key prefix: a data tag byte followed by a big-endian id from the shard's
monotonic counter. All prefixes have the same length, so prefix ranges
never overlap.

**Meta records.**
Keys starting with a zero byte are reserved for bookkeeping: the prefix
counter and a MsgPack record per path holding its prefix and shard.
Reopening a path reuses its prefix; nothing is ever garbage collected.

**Counters.**
Each collection caches its length. It is computed by a prefix scan on open
and updated after every committed write. Writes to one collection are
serialized by a per-collection lock, so concurrent inserts of the same key
cannot both count it. Pools opened with IsTesting verify the cached length
against a full scan on every Len call.

## Binary encoding

**Key**: prefix (9 bytes), then the encoded key.

**Value**: JSON by default, or MsgPack (Options.ValueEncoding).

Values that fail to decode indicate corruption or a changed type. The
operation panics with a *DataError; wrap calls in Safely to get an error.
*/
package bnc
