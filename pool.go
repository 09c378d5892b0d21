package bnc

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
)

// errTransient is returned when a disk-backed collection is requested from a Transient pool.
var errTransient = errors.New("bnc: pool is transient")

// ErrClosed is returned by operations on a Pool after Close.
var ErrClosed = errors.New("bnc: pool closed")

// Pool owns ShardCount storage partitions shared by every collection opened on it.
type Pool struct {
	opt     Options
	logger  *slog.Logger
	verbose bool
	strict  bool
	enc     Encoding

	shards [ShardCount]*shard

	namespaces map[string]*namespace
	nsLock     sync.Mutex

	closed     atomic.Bool
	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

type shard struct {
	idx int
	st  storage
}

// Open prepares opt.Dir (for EngineBolt) and opens all shards. A failure to
// open any shard closes the ones already opened and fails the whole pool.
func Open(opt Options) (*Pool, error) {
	p := &Pool{
		opt:        opt,
		logger:     opt.logger(),
		verbose:    opt.Verbose,
		strict:     opt.IsTesting,
		enc:        opt.ValueEncoding,
		namespaces: make(map[string]*namespace),
	}
	if opt.Transient {
		return p, nil
	}

	if opt.Engine == EngineBolt {
		if opt.Dir == "" {
			return nil, &InitError{Dir: opt.Dir, Shard: -1, Err: errors.New("data directory not configured")}
		}
		if err := os.MkdirAll(opt.Dir, 0777); err != nil {
			return nil, &InitError{Dir: opt.Dir, Shard: -1, Err: err}
		}
	}

	for i := range p.shards {
		st, err := tryTwice(p.logger, "open shard", func() (storage, error) {
			return p.openStorage(i)
		})
		if err == nil {
			err = prepareShard(st)
			if err != nil {
				st.Close()
			}
		}
		if err != nil {
			p.closeShards()
			return nil, &InitError{Dir: opt.Dir, Shard: i, Err: err}
		}
		p.shards[i] = &shard{idx: i, st: st}
	}

	if p.verbose {
		p.logger.Debug("bnc: pool opened", "dir", opt.Dir, "engine", opt.Engine.String())
	}
	return p, nil
}

func (p *Pool) openStorage(i int) (storage, error) {
	switch p.opt.Engine {
	case EngineBolt:
		dir := filepath.Join(p.opt.Dir, strconv.Itoa(i))
		if err := os.MkdirAll(dir, 0777); err != nil {
			return nil, err
		}
		return openBoltStorage(filepath.Join(dir, boltFileName), &p.opt)
	case EngineMemory:
		return newMemStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported engine %d", p.opt.Engine)
	}
}

func prepareShard(st storage) error {
	tx, err := st.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.CreateBucket(rootBucket); err != nil {
		return err
	}
	return tx.Commit()
}

// Dir returns the data directory of the pool.
func (p *Pool) Dir() string {
	return p.opt.Dir
}

// Transient reports whether the pool hands out in-memory collections only.
func (p *Pool) Transient() bool {
	return p.opt.Transient
}

func (p *Pool) handle(i int) *shard {
	if i < 0 || i >= ShardCount {
		panic(fmt.Errorf("bnc: shard index %d out of range", i))
	}
	s := p.shards[i]
	if s == nil {
		panic(errTransient)
	}
	return s
}

// Flush forces every shard's data to stable storage.
func (p *Pool) Flush() error {
	if p.opt.Transient {
		return p.checkOpen()
	}
	p.nsLock.Lock()
	defer p.nsLock.Unlock()
	if err := p.checkOpen(); err != nil {
		return err
	}
	for _, s := range p.shards {
		if err := s.st.Sync(); err != nil {
			return engineErrf("flush", "", s.idx, nil, err)
		}
	}
	return nil
}

// Clear erases the contents of all shards. Collections opened before Clear
// stay valid and become empty. No writes may be in flight while Clear runs.
func (p *Pool) Clear() error {
	if p.opt.Transient {
		return p.checkOpen()
	}

	p.nsLock.Lock()
	defer p.nsLock.Unlock()
	if err := p.checkOpen(); err != nil {
		return err
	}

	for _, s := range p.shards {
		var live []*namespace
		for _, ns := range p.namespaces {
			if ns.shard == s {
				live = append(live, ns)
			}
		}
		err := s.updateTx(func(tx storageTx) error {
			err := tx.DeleteBucket(rootBucket)
			if err != nil && err != ErrBucketNotFound {
				return err
			}
			b, err := tx.CreateBucket(rootBucket)
			if err != nil {
				return err
			}
			return restoreMeta(b, live)
		})
		if err != nil {
			return engineErrf("clear", "", s.idx, nil, err)
		}
		for _, ns := range live {
			ns.mu.Lock()
			ns.count.Store(0)
			ns.mu.Unlock()
		}
	}

	if p.verbose {
		p.logger.Debug("bnc: CLEAR", "dir", p.opt.Dir)
	}
	return nil
}

func (p *Pool) checkOpen() error {
	if p.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close closes all shards. Collections opened on the pool must not be used
// afterwards; pool-wide operations return ErrClosed.
func (p *Pool) Close() error {
	p.nsLock.Lock()
	defer p.nsLock.Unlock()
	if p.closed.Swap(true) {
		return nil
	}
	return p.closeShards()
}

func (p *Pool) closeShards() error {
	var errs []error
	for i, s := range p.shards {
		if s == nil {
			continue
		}
		if err := s.st.Close(); err != nil {
			errs = append(errs, engineErrf("close", "", i, nil, err))
		}
		p.shards[i] = nil
	}
	return errors.Join(errs...)
}

func (s *shard) view(f func(b storageBucket) error) error {
	tx, err := s.st.BeginTx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(nonNilBucket(tx.Bucket(rootBucket)))
}

func (s *shard) update(f func(b storageBucket) error) error {
	return s.updateTx(func(tx storageTx) error {
		return f(nonNilBucket(tx.Bucket(rootBucket)))
	})
}

func (s *shard) updateTx(f func(tx storageTx) error) error {
	tx, err := s.st.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nonNilBucket(b storageBucket) storageBucket {
	if b == nil {
		panic("bnc: root bucket missing")
	}
	return b
}
