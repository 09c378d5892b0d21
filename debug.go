package bnc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpShardHeaders = DumpFlags(1 << iota)
	DumpMeta
	DumpRows

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the shards' meta records and, with DumpRows, every stored
// entry in hex. Intended for debugging and tests.
func (p *Pool) Dump(f DumpFlags) string {
	var buf strings.Builder
	if p.opt.Transient {
		return "TRANSIENT POOL\n"
	}
	p.nsLock.Lock()
	defer p.nsLock.Unlock()
	if p.closed.Load() {
		return "CLOSED POOL\n"
	}
	for _, s := range p.shards {
		err := s.view(func(b storageBucket) error {
			return dumpShard(&buf, f, s.idx, b)
		})
		if err != nil {
			fmt.Fprintf(&buf, "shard %d ** ERROR: %v\n", s.idx, err)
		}
	}
	return buf.String()
}

func dumpShard(w *strings.Builder, f DumpFlags, idx int, b storageBucket) error {
	metas, err := listMeta(b, idx)
	if err != nil {
		return err
	}
	seq, err := readSeq(b)
	if err != nil {
		return err
	}

	if f.Contains(DumpShardHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "shard %d (%d instances, last prefix %d)\n", idx, len(metas), seq)
	}
	for _, m := range metas {
		if f.Contains(DumpMeta) {
			fmt.Fprintln(w, dumpSep2)
			fmt.Fprintf(w, "%s%s => %v (%d rows)\n", indentStep, m.Path, hexBytes(m.Prefix), countPrefix(b, m.Prefix))
		}
		if f.Contains(DumpRows) {
			c := b.Cursor()
			var rowPos int
			for k, v := c.Seek(m.Prefix); k != nil && bytes.HasPrefix(k, m.Prefix); k, v = c.Next() {
				rowPos++
				fmt.Fprintf(w, "%s%s.%d: %v = %s\n", indentStep, indentStep, rowPos, hexBytes(k[len(m.Prefix):]), dumpValue(v))
			}
		}
	}
	return nil
}

func countPrefix(b storageBucket, prefix []byte) int {
	var n int
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		n++
	}
	return n
}

// dumpValue prints JSON values as text and anything else as hex.
func dumpValue(v []byte) string {
	if json.Valid(v) {
		return string(v)
	}
	return hexstr(v)
}
