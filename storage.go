package bnc

import "errors"

// ErrBucketNotFound is returned by storageTx.DeleteBucket when the bucket doesn't exist.
var ErrBucketNotFound = errors.New("bucket not found")

// storage represents the key-value engine behind one shard (Bolt or in-memory).
type storage interface {
	// BeginTx starts a new transaction.
	BeginTx(writable bool) (storageTx, error)
	// Sync forces previously committed data to stable storage.
	Sync() error
	// Close closes the storage.
	Close() error
}

// storageTx represents a storage transaction.
type storageTx interface {
	// Bucket returns a root bucket, or nil if the bucket doesn't exist.
	Bucket(name string) storageBucket

	// CreateBucket creates a root bucket if it doesn't exist.
	CreateBucket(name string) (storageBucket, error)

	// DeleteBucket deletes a root bucket with all of its contents.
	DeleteBucket(name string) error

	// Commit commits the transaction.
	Commit() error

	// Rollback aborts the transaction. It should be safe to call multiple times.
	Rollback() error

	// Size returns the database size in bytes (0 if unknown / not applicable).
	Size() int64
}

// storageBucket represents a bucket (sorted key-value collection).
type storageBucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	// The returned slice is only valid until the end of the transaction.
	Get(key []byte) []byte

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key.
	Delete(key []byte) error

	// Cursor returns a cursor for iteration.
	Cursor() storageCursor

	// Stats returns storage-specific bucket statistics.
	// Backends that don't track allocation sizes may return zero values except KeyN.
	Stats() bucketStats
}

type bucketStats struct {
	KeyN        int
	LeafInuse   int64
	LeafAlloc   int64
	BranchAlloc int64
}

func (s bucketStats) TotalAlloc() int64 { return s.BranchAlloc + s.LeafAlloc }

// storageCursor iterates over a sorted bucket.
type storageCursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// Next moves to the next key-value pair.
	Next() (key, value []byte)
}

// Engine selects the storage engine used by shards.
type Engine int

const (
	// EngineBolt stores every shard in its own Bolt file.
	EngineBolt Engine = iota
	// EngineMemory keeps shards in process memory. Namespacing and sharding
	// still apply, but nothing survives Pool.Close.
	EngineMemory
)

func (e Engine) String() string {
	switch e {
	case EngineBolt:
		return "bolt"
	case EngineMemory:
		return "memory"
	default:
		return "unknown"
	}
}
