package bnc

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// NumKey is a fixed-width integer key type.
type NumKey interface {
	constraints.Integer
}

// numKeySize returns the encoded width of K in bytes.
func numKeySize[K NumKey]() int {
	var k K
	return int(unsafe.Sizeof(k))
}

// appendNumKey appends the fixed-width little-endian representation of k.
//
// Little-endian keys do not sort numerically as bytes (256 sorts before 1),
// so iteration over a numeric-key map is not in numeric order.
func appendNumKey[K NumKey](buf []byte, k K) []byte {
	v := uint64(k)
	switch numKeySize[K]() {
	case 1:
		return append(buf, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(buf, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(buf, uint32(v))
	case 8:
		return binary.LittleEndian.AppendUint64(buf, v)
	default:
		panic("unsupported key width")
	}
}

// decodeNumKey is the inverse of appendNumKey.
func decodeNumKey[K NumKey](raw []byte) (K, error) {
	n := numKeySize[K]()
	if len(raw) != n {
		return 0, dataErrf(raw, 0, nil, "key length mismatch: got %d bytes, wanted %d", len(raw), n)
	}
	var v uint64
	switch n {
	case 1:
		v = uint64(raw[0])
	case 2:
		v = uint64(binary.LittleEndian.Uint16(raw))
	case 4:
		v = uint64(binary.LittleEndian.Uint32(raw))
	case 8:
		v = binary.LittleEndian.Uint64(raw)
	}
	return K(v), nil
}

type numKeys[K NumKey] struct{}

func (numKeys[K]) appendKey(buf []byte, k K) []byte {
	return appendNumKey(buf, k)
}

func (numKeys[K]) decodeKey(raw []byte) (K, error) {
	return decodeNumKey[K](raw)
}
