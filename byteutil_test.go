package bnc

import (
	"reflect"
	"testing"
)

func TestBytesBuilder_Basics(t *testing.T) {
	var bb bytesBuilder
	off := bb.Grow(3)
	copy(bb.Buf[off:], []byte{1, 2, 3})
	if cap(bb.Buf) < 16 {
		t.Fatalf("cap(bb.Buf) = %d, wanted >= 16", cap(bb.Buf))
	}

	_, _ = bb.Write([]byte{9, 8})
	if !reflect.DeepEqual(bb.Buf, []byte{1, 2, 3, 9, 8}) {
		t.Fatalf("after Write: bb.Buf = %x, wanted 0102030908", bb.Buf)
	}

	_ = bb.WriteByte(7)
	_, _ = bb.WriteString("hi")
	if !reflect.DeepEqual(bb.Buf, []byte{1, 2, 3, 9, 8, 7, 'h', 'i'}) {
		t.Fatalf("after WriteByte/WriteString: bb.Buf = %x", bb.Buf)
	}
}

func TestByteUtil_AppendRaw(t *testing.T) {
	src := []byte{0xAA, 0xBB, 0xCC}
	buf := appendRaw(nil, src)
	if !reflect.DeepEqual(buf, src) {
		t.Fatalf("appendRaw = %x, wanted %x", buf, src)
	}

	prefix := make([]byte, 2)
	buf = appendRaw(prefix, src)
	if len(buf) != 5 || cap(buf) < 16 {
		t.Fatalf("appendRaw = (len=%d, cap=%d), wanted (5, >=16)", len(buf), cap(buf))
	}
	buf[0] = 0xFF
	if prefix[0] != 0 {
		t.Fatalf("appendRaw modified the original backing array")
	}
}

func TestByteUtil_EnsureCapacity(t *testing.T) {
	buf := ensureCapacity([]byte{1}, 40)
	if cap(buf) != 64 || len(buf) != 1 || buf[0] != 1 {
		t.Fatalf("ensureCapacity = (len=%d, cap=%d), wanted (1, 64)", len(buf), cap(buf))
	}
	same := ensureCapacity(buf, 10)
	if &same[0] != &buf[0] {
		t.Fatalf("ensureCapacity reallocated a large enough buffer")
	}
}

func TestMsgpackEncoding(t *testing.T) {
	in := map[string]int{"b": 2, "a": 1}
	raw1 := appendMsgpack(nil, in)
	raw2 := appendMsgpack(nil, map[string]int{"a": 1, "b": 2})
	deepEqual(t, raw1, raw2)

	var out map[string]int
	ensure(decodeMsgpack(raw1, &out))
	deepEqual(t, out, in)

	err := decodeMsgpack(append(raw1, 0x01), &out)
	de := assertErrorAs[*DataError](t, err)
	deepEqual(t, de.Off, len(raw1))

	err = JSON.decode([]byte("{"), &out)
	assertErrorAs[*DataError](t, err)

	deepEqual(t, string(JSON.encode([]byte("x"), 5)), "x5")
}
