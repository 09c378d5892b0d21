package bnc

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// UniquePath returns a fresh path under MetaName for an anonymous instance.
func UniquePath() string {
	return MetaName + "/" + strconv.FormatInt(time.Now().UnixNano(), 10) + "_" + uuid.NewString()
}

// NamedPath places a caller-chosen name under MetaName, keeping it apart
// from generated paths and from paths used directly.
func NamedPath(name string) string {
	return MetaName + "/" + name
}

// NewAnonMap opens a map under a fresh UniquePath.
func NewAnonMap[K comparable, V any](p *Pool) (Map[K, V], error) {
	return NewMap[K, V](p, UniquePath())
}

// NewAnonNumMap opens an integer-keyed map under a fresh UniquePath.
func NewAnonNumMap[K NumKey, V any](p *Pool) (Map[K, V], error) {
	return NewNumMap[K, V](p, UniquePath())
}

// NewAnonSeq opens a sequence under a fresh UniquePath.
func NewAnonSeq[V any](p *Pool) (Seq[V], error) {
	return NewSeq[V](p, UniquePath())
}
