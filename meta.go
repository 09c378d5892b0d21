package bnc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Shard key layout. Every key of a shard lives in the root bucket and starts
// with a tag byte: metaTag keys hold prefix bookkeeping, dataTag keys are
// collection entries. Data prefixes are dataTag followed by a big-endian
// 64-bit id, so all prefixes have the same length and never nest.
const (
	rootBucket = "bnc"

	metaTag byte = 0x00
	dataTag byte = 0x01

	prefixLen = 1 + 8

	metaSeqKey        = "\x00meta/seq"
	metaPathKeyPrefix = "\x00meta/path/"
)

// MetaName is the path namespace used for generated instance paths.
const MetaName = "__extra_meta__"

type instanceMeta struct {
	Path   string `msgpack:"p"`
	Prefix []byte `msgpack:"x"`
	Shard  int    `msgpack:"s"`
}

// shardIndex maps a logical path to its shard. The hash must stay stable
// across releases, since it decides where existing data lives.
func shardIndex(path string) int {
	return int(xxhash.Sum64String(path) % ShardCount)
}

func makePrefix(id uint64) []byte {
	buf := make([]byte, 0, prefixLen)
	buf = append(buf, dataTag)
	return binary.BigEndian.AppendUint64(buf, id)
}

func prefixID(prefix []byte) uint64 {
	return binary.BigEndian.Uint64(prefix[1:])
}

func metaPathKey(path string) []byte {
	return append([]byte(metaPathKeyPrefix), path...)
}

func (m *instanceMeta) validate(path string, shard int) error {
	if m.Path != path {
		return fmt.Errorf("meta record is for path %q", m.Path)
	}
	if m.Shard != shard {
		return fmt.Errorf("meta record points to shard %d, path hashes to %d", m.Shard, shard)
	}
	if len(m.Prefix) != prefixLen || m.Prefix[0] != dataTag {
		return fmt.Errorf("invalid prefix %x", m.Prefix)
	}
	return nil
}

func decodeMeta(raw []byte, path string, shard int) (instanceMeta, error) {
	var m instanceMeta
	if err := decodeMsgpack(raw, &m); err != nil {
		return m, err
	}
	if err := m.validate(path, shard); err != nil {
		return m, dataErrf(raw, 0, err, "corrupted meta record for %q", path)
	}
	return m, nil
}

func readMeta(b storageBucket, path string, shard int) (instanceMeta, bool, error) {
	raw := b.Get(metaPathKey(path))
	if raw == nil {
		return instanceMeta{}, false, nil
	}
	m, err := decodeMeta(slices.Clone(raw), path, shard)
	return m, err == nil, err
}

func readSeq(b storageBucket) (uint64, error) {
	raw := b.Get([]byte(metaSeqKey))
	if raw == nil {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, dataErrf(slices.Clone(raw), 0, nil, "corrupted prefix counter")
	}
	return binary.BigEndian.Uint64(raw), nil
}

func writeSeq(b storageBucket, seq uint64) error {
	return b.Put([]byte(metaSeqKey), binary.BigEndian.AppendUint64(nil, seq))
}

// allocateMeta returns the meta record for path, creating and persisting a
// fresh prefix if the path has never been opened on this shard.
func allocateMeta(b storageBucket, path string, shard int) (instanceMeta, bool, error) {
	m, found, err := readMeta(b, path, shard)
	if err != nil || found {
		return m, false, err
	}

	seq, err := readSeq(b)
	if err != nil {
		return m, false, err
	}
	seq++
	m = instanceMeta{Path: path, Prefix: makePrefix(seq), Shard: shard}

	if err := writeSeq(b, seq); err != nil {
		return m, false, err
	}
	if err := b.Put(metaPathKey(path), appendMsgpack(nil, &m)); err != nil {
		return m, false, err
	}
	return m, true, nil
}

// restoreMeta re-persists the meta records of live namespaces after their
// shard was wiped, keeping the prefix counter above every restored prefix.
func restoreMeta(b storageBucket, live []*namespace) error {
	var seq uint64
	for _, ns := range live {
		m := ns.meta
		if err := b.Put(metaPathKey(m.Path), appendMsgpack(nil, &m)); err != nil {
			return err
		}
		seq = max(seq, prefixID(m.Prefix))
	}
	if seq == 0 {
		return nil
	}
	return writeSeq(b, seq)
}

// listMeta returns all meta records stored in a shard, in path order.
func listMeta(b storageBucket, shard int) ([]instanceMeta, error) {
	var result []instanceMeta
	pfx := []byte(metaPathKeyPrefix)
	c := b.Cursor()
	for k, v := c.Seek(pfx); k != nil && bytes.HasPrefix(k, pfx); k, v = c.Next() {
		m, err := decodeMeta(slices.Clone(v), string(k[len(pfx):]), shard)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

// loadOrCreate resolves path to a namespace, allocating a prefix on first
// use. Repeated calls for the same path share one namespace.
func (p *Pool) loadOrCreate(path string) (*namespace, error) {
	if p.opt.Transient {
		return nil, errTransient
	}

	p.nsLock.Lock()
	defer p.nsLock.Unlock()
	if err := p.checkOpen(); err != nil {
		return nil, err
	}

	if ns := p.namespaces[path]; ns != nil {
		ns.refs++
		return ns, nil
	}

	idx := shardIndex(path)
	s := p.handle(idx)

	var m instanceMeta
	var found bool
	err := s.view(func(b storageBucket) error {
		var err error
		m, found, err = readMeta(b, path, idx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bnc: loading %q: %w", path, err)
	}

	var created bool
	if !found {
		err = s.update(func(b storageBucket) error {
			var err error
			m, created, err = allocateMeta(b, path, idx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("bnc: creating %q: %w", path, err)
		}
	}

	ns := &namespace{pool: p, shard: s, meta: m, refs: 1}
	if !created {
		n, err := ns.scanCount()
		if err != nil {
			return nil, fmt.Errorf("bnc: counting %q: %w", path, err)
		}
		ns.count.Store(int64(n))
	}
	p.namespaces[path] = ns

	if p.verbose {
		p.logger.Debug("bnc: OPEN", "path", path, "shard", idx, hexAttr("prefix", m.Prefix), "created", created, "len", ns.count.Load())
	}
	return ns, nil
}

// release drops one handle's reference to ns. The last release removes the
// namespace from the registry; a later open of the same path starts over
// from the stored meta record and a fresh count.
func (p *Pool) release(ns *namespace) {
	p.nsLock.Lock()
	defer p.nsLock.Unlock()
	ns.refs--
	if ns.refs > 0 {
		return
	}
	if p.namespaces[ns.meta.Path] == ns {
		delete(p.namespaces, ns.meta.Path)
	}
	if p.verbose {
		p.logger.Debug("bnc: RELEASE", "path", ns.meta.Path)
	}
}
