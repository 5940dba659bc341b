package isa

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestDecodeNop(t *testing.T) {
	insn := Decode(0x00000013) // ADDI x0, x0, 0
	assert(t, insn.Type == I, "expected I-type, got %s", insn.Type)
	assert(t, insn.Opcode == OpIntRegImm, "expected int-reg-imm opcode")
	assert(t, insn.Imm == 0, "expected zero immediate, got %d", insn.Imm)
}

func TestDecodeADDI(t *testing.T) {
	insn := Decode(0x00100093) // ADDI x1, x0, 1
	assert(t, insn.Rd == 1, "expected rd=1, got %d", insn.Rd)
	assert(t, insn.Rs1 == 0, "expected rs1=0, got %d", insn.Rs1)
	assert(t, insn.Imm == 1, "expected imm=1, got %d", insn.Imm)
}

func TestDecodeADDINegativeImmediate(t *testing.T) {
	insn := Decode(0xFE010113) // ADDI x2, x2, -32
	assert(t, insn.Imm == -32, "expected imm=-32, got %d", insn.Imm)
}

func TestDecodeADD(t *testing.T) {
	insn := Decode(0x00208133) // ADD x2, x1, x2
	assert(t, insn.Type == R, "expected R-type, got %s", insn.Type)
	assert(t, insn.Rd == 2 && insn.Rs1 == 1 && insn.Rs2 == 2, "fields mismatch: %+v", insn)
	assert(t, insn.Func7 == func7Base, "expected base func7 for ADD, got %#x", insn.Func7)
}

func TestDecodeAUIPC(t *testing.T) {
	insn := Decode(0x00000097) // AUIPC x1, 0
	assert(t, insn.Type == U, "expected U-type, got %s", insn.Type)
	assert(t, insn.Rd == 1, "expected rd=1, got %d", insn.Rd)
	assert(t, insn.Imm == 0, "expected imm=0, got %d", insn.Imm)
}

func TestDecodeJAL(t *testing.T) {
	insn := Decode(0x008000EF) // JAL x1, +8
	assert(t, insn.Type == J, "expected J-type, got %s", insn.Type)
	assert(t, insn.Rd == 1, "expected rd=1, got %d", insn.Rd)
	assert(t, insn.Imm == 8, "expected imm=8, got %d", insn.Imm)
}

func TestDecodeInvalidOpcode(t *testing.T) {
	insn := Decode(0x00000001)
	assert(t, insn.Type == Invalid, "expected Invalid type for unrecognized opcode")
}

func TestDecodeBranchSignExtension(t *testing.T) {
	// BEQ x0, x0, -4: encode imm=-4 into the B-type layout by hand.
	// bits: imm[12|10:5] = 0b1111111 sign bits, imm[4:1|11] = 0b1110|1
	word := uint32(OpBranch) | (0b11101<<7)&0x00000F80 | (0b1111111<<25)&0xFE000000
	insn := Decode(word)
	assert(t, insn.Type == B, "expected B-type, got %s", insn.Type)
	assert(t, insn.Imm == -4, "expected imm=-4, got %d", insn.Imm)
}
