package bnc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding is a codec for stored values.
type Encoding int

const (
	// JSON keeps stored values readable by other tools.
	JSON Encoding = iota
	MsgPack
)

func (enc Encoding) String() string {
	switch enc {
	case JSON:
		return "json"
	case MsgPack:
		return "msgpack"
	default:
		return "unknown"
	}
}

func (enc Encoding) encode(buf []byte, v any) []byte {
	switch enc {
	case MsgPack:
		return appendMsgpack(buf, v)
	case JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Errorf("failed to encode %T to JSON: %w", v, err))
		}
		return appendRaw(buf, raw)
	default:
		panic("unsupported encoding")
	}
}

func (enc Encoding) decode(buf []byte, ptr any) error {
	switch enc {
	case MsgPack:
		return decodeMsgpack(buf, ptr)
	case JSON:
		err := json.Unmarshal(buf, ptr)
		if err != nil {
			return dataErrf(buf, 0, err, "failed to decode JSON into %T", ptr)
		}
		return nil
	default:
		panic("unsupported encoding")
	}
}

func appendMsgpack(buf []byte, v any) []byte {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.ResetDict(&bb, nil)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode %T using MsgPack: %w", v, err))
	}
	return bb.Buf
}

func decodeMsgpack(buf []byte, ptr any) error {
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.ResetDict(&r, nil)
	err := dec.Decode(ptr)
	msgpack.PutDecoder(dec)
	if err != nil {
		return dataErrf(buf, 0, err, "failed to decode msgpack into %T", ptr)
	}
	if r.Len() != 0 {
		return dataErrf(buf, len(buf)-r.Len(), nil, "trailing data after msgpack value of %T", ptr)
	}
	return nil
}

// keyCodec turns keys into the bytes that follow an instance prefix.
type keyCodec[K any] interface {
	appendKey(buf []byte, k K) []byte
	decodeKey(raw []byte) (K, error)
}

// msgpackKeys encodes arbitrary keys with MsgPack. The encoding is
// deterministic, but byte order does not follow the logical key order.
type msgpackKeys[K any] struct{}

func (msgpackKeys[K]) appendKey(buf []byte, k K) []byte {
	return appendMsgpack(buf, k)
}

func (msgpackKeys[K]) decodeKey(raw []byte) (K, error) {
	var k K
	err := decodeMsgpack(raw, &k)
	return k, err
}
