package bnc

type ShardStats struct {
	Shard     int
	Keys      int // all keys, including meta records
	Instances int // meta records, i.e. paths ever opened on the shard
	DataSize  int64
	DataAlloc int64
	FileSize  int64
}

type PoolStats struct {
	Shards     []ShardStats
	Namespaces int // instances opened by this process
	Reads      uint64
	Writes     uint64
}

func (ps *PoolStats) TotalKeys() int {
	var n int
	for _, s := range ps.Shards {
		n += s.Keys
	}
	return n
}

func (ps *PoolStats) TotalAlloc() int64 {
	var n int64
	for _, s := range ps.Shards {
		n += s.DataAlloc
	}
	return n
}

// Stats collects per-shard storage statistics and operation counters.
func (p *Pool) Stats() (PoolStats, error) {
	p.nsLock.Lock()
	defer p.nsLock.Unlock()
	result := PoolStats{
		Namespaces: len(p.namespaces),
		Reads:      p.ReadCount.Load(),
		Writes:     p.WriteCount.Load(),
	}
	if err := p.checkOpen(); err != nil {
		return result, err
	}
	if p.opt.Transient {
		return result, nil
	}
	for _, s := range p.shards {
		ss := ShardStats{Shard: s.idx}
		tx, err := s.st.BeginTx(false)
		if err != nil {
			return result, engineErrf("stats", "", s.idx, nil, err)
		}
		b := nonNilBucket(tx.Bucket(rootBucket))
		bs := b.Stats()
		ss.Keys = bs.KeyN
		ss.DataSize = bs.LeafInuse
		ss.DataAlloc = bs.TotalAlloc()
		ss.FileSize = tx.Size()
		metas, err := listMeta(b, s.idx)
		tx.Rollback()
		if err != nil {
			return result, err
		}
		ss.Instances = len(metas)
		result.Shards = append(result.Shards, ss)
	}
	return result, nil
}
