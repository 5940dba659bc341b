// Package isa implements the instruction decoder and executor: parsing a
// 32-bit encoded word into a typed Instruction record (opcode class,
// fields, sign-extended immediate) and dispatching it to a handler per
// opcode class against a Machine.
package isa

import "github.com/rv64emu/rv64emu/pkg/bitfield"

// Type is the instruction format.
type Type int

const (
	Invalid Type = iota
	R
	I
	S
	B
	U
	J
)

func (t Type) String() string {
	switch t {
	case R:
		return "R"
	case I:
		return "I"
	case S:
		return "S"
	case B:
		return "B"
	case U:
		return "U"
	case J:
		return "J"
	default:
		return "Invalid"
	}
}

// Opcodes this decoder recognizes.
const (
	OpLUI         = 0x37
	OpAUIPC       = 0x17
	OpJAL         = 0x6F
	OpJALR        = 0x67
	OpIntRegImm   = 0x13
	OpLoad        = 0x03
	OpSystem      = 0x73
	OpMiscMem     = 0x0F
	OpIntRegImm32 = 0x1B
	OpIntRegReg   = 0x33
	OpAtomic      = 0x2F
	OpIntRegReg32 = 0x3B
	OpStore       = 0x23
	OpBranch      = 0x63
)

// Instruction is a decoded instruction word.
type Instruction struct {
	Type   Type
	Word   uint32
	Opcode uint32
	Rd     uint32
	Rs1    uint32
	Rs2    uint32
	Imm    int32
	Func3  uint32
	Func7  uint32
}

// Decode parses a 32-bit instruction word into an Instruction. Opcodes
// this decoder does not recognize come back with Type == Invalid.
func Decode(word uint32) Instruction {
	insn := Instruction{Word: word}
	insn.Opcode = bitfield.Field(word, 6, 0)

	switch insn.Opcode {
	case OpLUI, OpAUIPC:
		insn.Type = U
	case OpJAL:
		insn.Type = J
	case OpJALR, OpIntRegImm, OpLoad, OpSystem, OpMiscMem:
		insn.Type = I
	case OpIntRegImm32:
		if bitfield.Field(word, 14, 12) == 0 {
			insn.Type = I
		} else {
			insn.Type = R
		}
	case OpIntRegReg, OpAtomic, OpIntRegReg32:
		insn.Type = R
	case OpStore:
		insn.Type = S
	case OpBranch:
		insn.Type = B
	default:
		insn.Type = Invalid
		return insn
	}

	switch insn.Type {
	case U:
		raw := word & uint32(bitfield.Mask(31, 12))
		insn.Imm = int32(bitfield.SignExtend32(raw, 31))
		insn.Rd = bitfield.Field(word, 11, 7)

	case J:
		insn.Rd = bitfield.Field(word, 11, 7)
		imm10_1 := bitfield.Field(word, 30, 21)
		imm11 := bitfield.Field(word, 20, 20)
		imm19_12 := bitfield.Field(word, 19, 12)
		imm20 := bitfield.Field(word, 31, 31)
		raw := (imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1)
		insn.Imm = int32(bitfield.SignExtend32(raw, 20))

	case I:
		insn.Rd = bitfield.Field(word, 11, 7)
		insn.Rs1 = bitfield.Field(word, 19, 15)
		insn.Func3 = bitfield.Field(word, 14, 12)
		insn.Func7 = bitfield.Field(word, 31, 25)
		raw := bitfield.Field(word, 31, 20)
		insn.Imm = int32(bitfield.SignExtend32(raw, 11))

	case R:
		insn.Rd = bitfield.Field(word, 11, 7)
		insn.Rs1 = bitfield.Field(word, 19, 15)
		insn.Rs2 = bitfield.Field(word, 24, 20)
		insn.Func3 = bitfield.Field(word, 14, 12)
		insn.Func7 = bitfield.Field(word, 31, 25)

	case S:
		insn.Rs1 = bitfield.Field(word, 19, 15)
		insn.Rs2 = bitfield.Field(word, 24, 20)
		insn.Func3 = bitfield.Field(word, 14, 12)
		lower := bitfield.Field(word, 11, 7)
		upper := bitfield.Field(word, 31, 25)
		raw := (upper << 5) | lower
		insn.Imm = int32(bitfield.SignExtend32(raw, 11))

	case B:
		insn.Rs1 = bitfield.Field(word, 19, 15)
		insn.Rs2 = bitfield.Field(word, 24, 20)
		insn.Func3 = bitfield.Field(word, 14, 12)
		bit12 := bitfield.Field(word, 31, 31)
		bit11 := bitfield.Field(word, 7, 7)
		bit10_5 := bitfield.Field(word, 30, 25)
		bit4_1 := bitfield.Field(word, 11, 8)
		raw := (bit12 << 12) | (bit11 << 11) | (bit10_5 << 5) | (bit4_1 << 1)
		insn.Imm = int32(bitfield.SignExtend32(raw, 12))
	}

	return insn
}
