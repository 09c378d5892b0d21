package bnc

import (
	"log/slog"
	"os"
	"sync"
)

const (
	// ShardCount is the number of storage partitions in every pool.
	ShardCount = 8

	// DataDirEnv names the environment variable consulted by Default when
	// SetDataDir was not called.
	DataDirEnv = "BNC_DATA_DIR"

	// DefaultDataDir is used when neither SetDataDir nor DataDirEnv provide one.
	DefaultDataDir = "/tmp/.bnc"
)

type Options struct {
	// Dir is the root directory holding one subdirectory per shard.
	// Ignored by EngineMemory and Transient pools.
	Dir string

	Engine Engine

	// Transient makes NewMap, NewNumMap and NewSeq return plain in-memory
	// collections (MemMap, MemSeq) that never touch the shards.
	Transient bool

	// ValueEncoding is the codec for stored values. The zero value is JSON.
	ValueEncoding Encoding

	Logger  *slog.Logger
	Verbose bool

	// IsTesting disables fsync and enables strict counter checks.
	IsTesting bool
	MmapSize  int
}

func (opt *Options) logger() *slog.Logger {
	if opt.Logger != nil {
		return opt.Logger
	}
	return slog.Default()
}

var (
	defaultMu     sync.Mutex
	defaultDir    string
	defaultDirSet bool
	defaultPool   *Pool
)

// SetDataDir configures the directory of the process-wide pool returned by
// Default. It can be called at most once, and only before Default is first used.
func SetDataDir(dir string) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultDirSet || defaultPool != nil {
		return ErrAlreadyInitialized
	}
	defaultDir = dir
	defaultDirSet = true
	return nil
}

// DataDir returns the directory the process-wide pool uses or will use.
func DataDir() string {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return dataDirLocked()
}

func dataDirLocked() string {
	if defaultDirSet {
		return defaultDir
	}
	if d := os.Getenv(DataDirEnv); d != "" {
		return d
	}
	return DefaultDataDir
}

// Default returns the process-wide pool, opening it on first use.
// It panics with an *InitError if the pool cannot be opened.
func Default() *Pool {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPool == nil {
		defaultPool = must(Open(Options{Dir: dataDirLocked()}))
	}
	return defaultPool
}

// Flush forces the data of the process-wide pool to disk.
func Flush() error {
	return Default().Flush()
}

// Clear deletes all data of the process-wide pool.
func Clear() error {
	return Default().Clear()
}
