package bnc

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// ErrAlreadyInitialized is returned when the process-wide data directory is
// configured after it has already been set or used.
var ErrAlreadyInitialized = errors.New("bnc: data directory already initialized")

// InitError reports a failure to prepare a pool's data directory or open its shards.
type InitError struct {
	Dir   string
	Shard int // -1 when the failure is not specific to a shard
	Err   error
}

func (e *InitError) Unwrap() error {
	return e.Err
}

func (e *InitError) Error() string {
	if e.Shard < 0 {
		return fmt.Sprintf("bnc: init %s: %v", e.Dir, e.Err)
	}
	return fmt.Sprintf("bnc: init %s shard %d: %v", e.Dir, e.Shard, e.Err)
}

// DataError means stored bytes could not be decoded into the expected type,
// which signals corruption or a schema mismatch.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// EngineError wraps a failure of the underlying storage engine.
type EngineError struct {
	Op    string
	Path  string
	Shard int
	Key   []byte
	Err   error
}

func engineErrf(op, path string, shard int, key []byte, err error) error {
	return &EngineError{op, path, shard, key, err}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) Error() string {
	var buf strings.Builder
	buf.WriteString("bnc: ")
	buf.WriteString(e.Op)
	if e.Path != "" {
		buf.WriteByte(' ')
		buf.WriteString(e.Path)
	}
	fmt.Fprintf(&buf, " (shard %d)", e.Shard)
	if e.Key != nil {
		buf.WriteByte('/')
		buf.WriteString(hexstr(e.Key))
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// Panic is returned by Safely when the wrapped function panicked with
// something other than an error.
type Panic struct {
	Reason any
	Stack  string
}

func (p *Panic) Error() string {
	return fmt.Sprintf("panic: %v\n%s", p.Reason, p.Stack)
}

// Safely runs fn and turns a panic raised by a collection operation
// (a *DataError or *EngineError) into a returned error.
func Safely(fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				err = e
			} else {
				err = &Panic{p, string(debug.Stack())}
			}
		}
	}()
	fn()
	return nil
}
