package lebytes

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestRoundTripUint8(t *testing.T) {
	for _, v := range []uint8{0, 1, 0x7f, 0xff} {
		assert(t, DecodeUint8(EncodeUint8(v)) == v, "uint8 round-trip failed for %#x", v)
	}
}

func TestRoundTripUint16(t *testing.T) {
	for _, v := range []uint16{0, 1, 0x1234, 0xffff} {
		assert(t, DecodeUint16(EncodeUint16(v)) == v, "uint16 round-trip failed for %#x", v)
	}
}

func TestRoundTripUint32(t *testing.T) {
	for _, v := range []uint32{0, 1, 0xdeadbeef, 0xffffffff} {
		assert(t, DecodeUint32(EncodeUint32(v)) == v, "uint32 round-trip failed for %#x", v)
	}
}

func TestRoundTripUint64(t *testing.T) {
	for _, v := range []uint64{0, 1, 0xdeadbeefcafebabe, 0xffffffffffffffff} {
		assert(t, DecodeUint64(EncodeUint64(v)) == v, "uint64 round-trip failed for %#x", v)
	}
}

func TestLittleEndianByteOrder(t *testing.T) {
	b := EncodeUint32(0x01020304)
	assert(t, b[0] == 0x04 && b[1] == 0x03 && b[2] == 0x02 && b[3] == 0x01,
		"expected little-endian byte order, got %v", b)
}
