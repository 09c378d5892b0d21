package bnc

import "sync"

var keyBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 256)
	},
}

func releaseKeyBytes(b []byte) {
	if cap(b) > 32768 { // max key size in Bolt
		return
	}
	keyBytesPool.Put(b[:0])
}
