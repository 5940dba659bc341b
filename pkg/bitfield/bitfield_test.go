package bitfield

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestMask(t *testing.T) {
	assert(t, Mask(3, 0) == 0b1111, "low nibble mask wrong: %#x", Mask(3, 0))
	assert(t, Mask(7, 4) == 0b1111_0000, "high nibble mask wrong: %#x", Mask(7, 4))
	assert(t, Mask(63, 0) == ^uint64(0), "full mask wrong: %#x", Mask(63, 0))
}

func TestField(t *testing.T) {
	word := uint32(0b1010_1100)
	assert(t, Field(word, 7, 4) == 0b1010, "field extraction wrong: %#x", Field(word, 7, 4))
}

func TestSignExtendITypeAllOnes(t *testing.T) {
	// Decoding an I-type with imm field 0xFFF yields -1.
	v := SignExtend(0xFFF, 11)
	assert(t, int64(v) == -1, "expected -1, got %d", int64(v))
}

func TestSignExtendBTypeBit12(t *testing.T) {
	// Decoding a B-type with imm12=1 and all other imm bits 0 yields -4096.
	v := SignExtend(1<<12, 12)
	assert(t, int64(v) == -4096, "expected -4096, got %d", int64(v))
}

func TestSignExtend32(t *testing.T) {
	v := SignExtend32(0xFFFFFFFF, 31)
	assert(t, int64(v) == -1, "expected -1, got %d", int64(v))
	v = SignExtend32(0x7FFFFFFF, 31)
	assert(t, int64(v) == 0x7FFFFFFF, "expected positive passthrough, got %d", int64(v))
}
