package isa

import (
	"fmt"

	"github.com/rv64emu/rv64emu/pkg/bitfield"
	"github.com/rv64emu/rv64emu/pkg/bus"
)

// Machine is everything an Instruction needs in order to execute: the
// address space (via bus.Bus), the register/CSR/PC state of the hart
// running it, and the LR/SC reservation hooks. Platform implements this
// structurally; isa never imports platform.
type Machine interface {
	bus.Bus

	ReadRegister(i uint32) uint64
	WriteRegister(i uint32, v uint64)
	ReadCSR(i uint32) uint64
	WriteCSR(i uint32, v uint64)

	PC() uint64
	SetPC(pc uint64)

	HartID() uint64
	ClaimReservation(address uint64, size uint64)
	CheckAndInvalidateReservation(address uint64, size uint64) bool
	InvalidateOtherReservations(address uint64, size uint64)
}

// func3 values shared across opcode classes.
const (
	f3ADDSUB = 0b000
	f3SLL    = 0b001
	f3SLT    = 0b010
	f3SLTU   = 0b011
	f3XOR    = 0b100
	f3SRLSRA = 0b101
	f3OR     = 0b110
	f3AND    = 0b111

	f3BEQ  = 0b000
	f3BNE  = 0b001
	f3BLT  = 0b100
	f3BGE  = 0b101
	f3BLTU = 0b110
	f3BGEU = 0b111

	f3LB  = 0b000
	f3LH  = 0b001
	f3LW  = 0b010
	f3LD  = 0b011
	f3LBU = 0b100
	f3LHU = 0b101
	f3LWU = 0b110

	f3SB = 0b000
	f3SH = 0b001
	f3SW = 0b010
	f3SD = 0b011

	f3CSRRW  = 0b001
	f3CSRRS  = 0b010
	f3CSRRC  = 0b011
	f3CSRRWI = 0b101
	f3CSRRSI = 0b110
	f3CSRRCI = 0b111

	f3MULDIVW = 0b000 // MULW/DIVW share nothing; only OpIntRegReg32 routes here by func7
)

// funct7 discriminators for INT_REG_REG / INT_REG_REG_32 (base ISA vs M).
const (
	func7Base = 0b0000000
	func7Alt  = 0b0100000 // SUB, SRA
	func7MExt = 0b0000001 // MUL/DIV/REM family
)

// M-extension func3 values (func7 == func7MExt).
const (
	f3MUL    = 0b000
	f3MULH   = 0b001
	f3MULHSU = 0b010
	f3MULHU  = 0b011
	f3DIV    = 0b100
	f3DIVU   = 0b101
	f3REM    = 0b110
	f3REMU   = 0b111
)

// AMO funct5 codes, packed into the top 5 bits of Func7. Follows the
// standard RV32A/RV64A encoding table.
const (
	amoADD  = 0b00000
	amoSWAP = 0b00001
	amoLR   = 0b00010
	amoSC   = 0b00011
	amoXOR  = 0b00100
	amoOR   = 0b01000
	amoAND  = 0b01100
)

// Execute dispatches a decoded Instruction against m, mutating its
// register file, CSRs, memory/UART and PC. The PC advances by 4 unless
// the handler sets it explicitly (branches, jumps).
func (insn Instruction) Execute(m Machine) error {
	pc := m.PC()
	nextPC := pc + 4

	var err error
	switch insn.Opcode {
	case OpLUI:
		m.WriteRegister(insn.Rd, uint64(int64(insn.Imm)))

	case OpAUIPC:
		m.WriteRegister(insn.Rd, pc+uint64(int64(insn.Imm)))

	case OpJAL:
		m.WriteRegister(insn.Rd, nextPC)
		nextPC = pc + uint64(int64(insn.Imm))

	case OpJALR:
		target := (m.ReadRegister(insn.Rs1) + uint64(int64(insn.Imm))) &^ 1
		m.WriteRegister(insn.Rd, nextPC)
		nextPC = target

	case OpIntRegImm:
		err = execIntRegImm(m, insn)

	case OpIntRegImm32:
		err = execIntRegImm32(m, insn)

	case OpIntRegReg:
		err = execIntRegReg(m, insn)

	case OpIntRegReg32:
		err = execIntRegReg32(m, insn)

	case OpLoad:
		err = execLoad(m, insn)

	case OpStore:
		err = execStore(m, insn)

	case OpBranch:
		nextPC, err = execBranch(m, insn, pc, nextPC)

	case OpSystem:
		err = execSystem(m, insn)

	case OpMiscMem:
		// FENCE and FENCE.I are no-ops: this emulator has no reordering or
		// instruction cache to flush.

	case OpAtomic:
		err = execAtomic(m, insn)

	default:
		err = fmt.Errorf("%w: opcode %#x", ErrUnsupportedOpcode, insn.Opcode)
	}

	if err != nil {
		return err
	}
	m.SetPC(nextPC)
	return nil
}

func execIntRegImm(m Machine, insn Instruction) error {
	rs1 := m.ReadRegister(insn.Rs1)
	imm := uint64(int64(insn.Imm))

	switch insn.Func3 {
	case f3ADDSUB:
		m.WriteRegister(insn.Rd, rs1+imm)
	case f3SLT:
		m.WriteRegister(insn.Rd, boolToReg(int64(rs1) < int64(imm)))
	case f3SLTU:
		m.WriteRegister(insn.Rd, boolToReg(rs1 < imm))
	case f3XOR:
		m.WriteRegister(insn.Rd, rs1^imm)
	case f3OR:
		m.WriteRegister(insn.Rd, rs1|imm)
	case f3AND:
		m.WriteRegister(insn.Rd, rs1&imm)
	case f3SLL:
		shamt := uint(insn.Imm) & 0x3F
		m.WriteRegister(insn.Rd, rs1<<shamt)
	case f3SRLSRA:
		// shamt[5] occupies instruction bit 25, the low bit of Func7, so
		// Func7 isn't simply func7Base or func7Alt here: only bit 30 (the
		// top bit, 0x20 within the 7-bit field) discriminates SRAI.
		shamt := uint(insn.Imm) & 0x3F
		if insn.Func7&0x20 != 0 {
			m.WriteRegister(insn.Rd, uint64(int64(rs1)>>shamt))
		} else {
			m.WriteRegister(insn.Rd, rs1>>shamt)
		}
	default:
		return fmt.Errorf("%w: int-reg-imm func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
	return nil
}

func execIntRegImm32(m Machine, insn Instruction) error {
	rs1 := uint32(m.ReadRegister(insn.Rs1))

	switch insn.Func3 {
	case 0b000: // ADDIW
		result := rs1 + uint32(insn.Imm)
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	case 0b001: // SLLIW
		shamt := insn.Rs2 & 0x1F
		result := rs1 << shamt
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	case 0b101: // SRLIW / SRAIW
		shamt := insn.Rs2 & 0x1F
		var result uint32
		if insn.Func7 == 0b0100000 {
			result = uint32(int32(rs1) >> shamt)
		} else {
			result = rs1 >> shamt
		}
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	default:
		return fmt.Errorf("%w: int-reg-imm-32 func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
	return nil
}

func execIntRegReg(m Machine, insn Instruction) error {
	rs1 := m.ReadRegister(insn.Rs1)
	rs2 := m.ReadRegister(insn.Rs2)

	if insn.Func7 == func7MExt {
		return execMulDiv(m, insn, rs1, rs2)
	}

	switch insn.Func3 {
	case f3ADDSUB:
		if insn.Func7 == func7Alt {
			m.WriteRegister(insn.Rd, rs1-rs2)
		} else {
			m.WriteRegister(insn.Rd, rs1+rs2)
		}
	case f3SLL:
		m.WriteRegister(insn.Rd, rs1<<(rs2&0x3F))
	case f3SLT:
		m.WriteRegister(insn.Rd, boolToReg(int64(rs1) < int64(rs2)))
	case f3SLTU:
		m.WriteRegister(insn.Rd, boolToReg(rs1 < rs2))
	case f3XOR:
		m.WriteRegister(insn.Rd, rs1^rs2)
	case f3SRLSRA:
		if insn.Func7 == func7Alt {
			m.WriteRegister(insn.Rd, uint64(int64(rs1)>>(rs2&0x3F)))
		} else {
			m.WriteRegister(insn.Rd, rs1>>(rs2&0x3F))
		}
	case f3OR:
		m.WriteRegister(insn.Rd, rs1|rs2)
	case f3AND:
		m.WriteRegister(insn.Rd, rs1&rs2)
	default:
		return fmt.Errorf("%w: int-reg-reg func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
	return nil
}

func execMulDiv(m Machine, insn Instruction, rs1, rs2 uint64) error {
	switch insn.Func3 {
	case f3MUL:
		m.WriteRegister(insn.Rd, rs1*rs2)
	case f3MULH:
		m.WriteRegister(insn.Rd, uint64(mulh(int64(rs1), int64(rs2))))
	case f3MULHSU:
		m.WriteRegister(insn.Rd, uint64(mulhsu(int64(rs1), rs2)))
	case f3MULHU:
		m.WriteRegister(insn.Rd, mulhu(rs1, rs2))
	case f3DIV:
		m.WriteRegister(insn.Rd, divSigned(int64(rs1), int64(rs2)))
	case f3DIVU:
		m.WriteRegister(insn.Rd, divUnsigned(rs1, rs2))
	case f3REM:
		m.WriteRegister(insn.Rd, remSigned(int64(rs1), int64(rs2)))
	case f3REMU:
		m.WriteRegister(insn.Rd, remUnsigned(rs1, rs2))
	default:
		return fmt.Errorf("%w: mul/div func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
	return nil
}

func execIntRegReg32(m Machine, insn Instruction) error {
	rs1 := uint32(m.ReadRegister(insn.Rs1))
	rs2 := uint32(m.ReadRegister(insn.Rs2))

	if insn.Func7 == func7MExt {
		return execMulDivW(m, insn, rs1, rs2)
	}

	switch insn.Func3 {
	case f3ADDSUB:
		var result uint32
		if insn.Func7 == func7Alt {
			result = rs1 - rs2
		} else {
			result = rs1 + rs2
		}
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	case f3SLL:
		result := rs1 << (rs2 & 0x1F)
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	case f3SRLSRA:
		var result uint32
		if insn.Func7 == func7Alt {
			result = uint32(int32(rs1) >> (rs2 & 0x1F))
		} else {
			result = rs1 >> (rs2 & 0x1F)
		}
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	default:
		return fmt.Errorf("%w: int-reg-reg-32 func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
	return nil
}

func execMulDivW(m Machine, insn Instruction, rs1, rs2 uint32) error {
	switch insn.Func3 {
	case 0b000: // MULW
		result := rs1 * rs2
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	case 0b100: // DIVW
		result := divSigned32(int32(rs1), int32(rs2))
		m.WriteRegister(insn.Rd, uint64(int64(result)))
	case 0b101: // DIVUW
		result := divUnsigned32(rs1, rs2)
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	case 0b110: // REMW
		result := remSigned32(int32(rs1), int32(rs2))
		m.WriteRegister(insn.Rd, uint64(int64(result)))
	case 0b111: // REMUW
		result := remUnsigned32(rs1, rs2)
		m.WriteRegister(insn.Rd, uint64(int64(int32(result))))
	default:
		return fmt.Errorf("%w: mul/div-w func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
	return nil
}

func execLoad(m Machine, insn Instruction) error {
	address := m.ReadRegister(insn.Rs1) + uint64(int64(insn.Imm))

	switch insn.Func3 {
	case f3LB:
		v, err := m.ReadUint8(address)
		if err != nil {
			return err
		}
		m.WriteRegister(insn.Rd, uint64(bitfield.SignExtend(uint64(v), 7)))
	case f3LH:
		v, err := m.ReadUint16(address)
		if err != nil {
			return err
		}
		m.WriteRegister(insn.Rd, uint64(bitfield.SignExtend(uint64(v), 15)))
	case f3LW:
		v, err := m.ReadUint32(address)
		if err != nil {
			return err
		}
		m.WriteRegister(insn.Rd, uint64(bitfield.SignExtend(uint64(v), 31)))
	case f3LD:
		v, err := m.ReadUint64(address)
		if err != nil {
			return err
		}
		m.WriteRegister(insn.Rd, v)
	case f3LBU:
		v, err := m.ReadUint8(address)
		if err != nil {
			return err
		}
		m.WriteRegister(insn.Rd, uint64(v))
	case f3LHU:
		v, err := m.ReadUint16(address)
		if err != nil {
			return err
		}
		m.WriteRegister(insn.Rd, uint64(v))
	case f3LWU:
		v, err := m.ReadUint32(address)
		if err != nil {
			return err
		}
		m.WriteRegister(insn.Rd, uint64(v))
	default:
		return fmt.Errorf("%w: load func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
	return nil
}

func execStore(m Machine, insn Instruction) error {
	address := m.ReadRegister(insn.Rs1) + uint64(int64(insn.Imm))
	rs2 := m.ReadRegister(insn.Rs2)

	m.InvalidateOtherReservations(address, widthOf(insn.Func3))

	switch insn.Func3 {
	case f3SB:
		return m.WriteUint8(address, uint8(rs2))
	case f3SH:
		return m.WriteUint16(address, uint16(rs2))
	case f3SW:
		return m.WriteUint32(address, uint32(rs2))
	case f3SD:
		return m.WriteUint64(address, rs2)
	default:
		return fmt.Errorf("%w: store func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
}

func widthOf(f3 uint32) uint64 {
	switch f3 & 0b11 {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 4
	default:
		return 8
	}
}

func execBranch(m Machine, insn Instruction, pc, fallthroughPC uint64) (uint64, error) {
	rs1 := m.ReadRegister(insn.Rs1)
	rs2 := m.ReadRegister(insn.Rs2)

	var taken bool
	switch insn.Func3 {
	case f3BEQ:
		taken = rs1 == rs2
	case f3BNE:
		taken = rs1 != rs2
	case f3BLT:
		taken = int64(rs1) < int64(rs2)
	case f3BGE:
		taken = int64(rs1) >= int64(rs2)
	case f3BLTU:
		taken = rs1 < rs2
	case f3BGEU:
		taken = rs1 >= rs2
	default:
		// func3 2 and 3 are reserved; no valid branch encoding uses them.
		return 0, fmt.Errorf("%w: branch func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}

	if taken {
		return pc + uint64(int64(insn.Imm)), nil
	}
	return fallthroughPC, nil
}

func execSystem(m Machine, insn Instruction) error {
	switch insn.Func3 {
	case 0b000:
		// ECALL/EBREAK/MRET and friends (insn.Imm selects among them):
		// nothing in this platform traps on these, so they are no-ops.
		return nil
	case f3CSRRW:
		old := m.ReadCSR(uint32(insn.Imm))
		m.WriteCSR(uint32(insn.Imm), m.ReadRegister(insn.Rs1))
		m.WriteRegister(insn.Rd, old)
	case f3CSRRS:
		old := m.ReadCSR(uint32(insn.Imm))
		m.WriteCSR(uint32(insn.Imm), old|m.ReadRegister(insn.Rs1))
		m.WriteRegister(insn.Rd, old)
	case f3CSRRC:
		old := m.ReadCSR(uint32(insn.Imm))
		m.WriteCSR(uint32(insn.Imm), old&^m.ReadRegister(insn.Rs1))
		m.WriteRegister(insn.Rd, old)
	case f3CSRRWI:
		old := m.ReadCSR(uint32(insn.Imm))
		m.WriteCSR(uint32(insn.Imm), uint64(insn.Rs1))
		m.WriteRegister(insn.Rd, old)
	case f3CSRRSI:
		old := m.ReadCSR(uint32(insn.Imm))
		m.WriteCSR(uint32(insn.Imm), old|uint64(insn.Rs1))
		m.WriteRegister(insn.Rd, old)
	case f3CSRRCI:
		old := m.ReadCSR(uint32(insn.Imm))
		m.WriteCSR(uint32(insn.Imm), old&^uint64(insn.Rs1))
		m.WriteRegister(insn.Rd, old)
	default:
		return fmt.Errorf("%w: system func3 %#x", ErrUnsupportedFunc3, insn.Func3)
	}
	return nil
}

func execAtomic(m Machine, insn Instruction) error {
	funct5 := insn.Func7 >> 2
	address := m.ReadRegister(insn.Rs1)
	width := uint64(4)
	if insn.Func3 == 0b011 {
		width = 8
	}

	switch funct5 {
	case amoLR:
		var v uint64
		var err error
		if width == 8 {
			v, err = m.ReadUint64(address)
		} else {
			var v32 uint32
			v32, err = m.ReadUint32(address)
			v = uint64(bitfield.SignExtend(uint64(v32), 31))
		}
		if err != nil {
			return err
		}
		m.ClaimReservation(address, width)
		m.WriteRegister(insn.Rd, v)
		return nil

	case amoSC:
		rs2 := m.ReadRegister(insn.Rs2)
		ok := m.CheckAndInvalidateReservation(address, width)
		if !ok {
			m.WriteRegister(insn.Rd, 1)
			return nil
		}
		var err error
		if width == 8 {
			err = m.WriteUint64(address, rs2)
		} else {
			err = m.WriteUint32(address, uint32(rs2))
		}
		if err != nil {
			return err
		}
		m.WriteRegister(insn.Rd, 0)
		return nil
	}

	m.InvalidateOtherReservations(address, width)

	var old uint64
	var err error
	if width == 8 {
		old, err = m.ReadUint64(address)
	} else {
		var v32 uint32
		v32, err = m.ReadUint32(address)
		old = uint64(bitfield.SignExtend(uint64(v32), 31))
	}
	if err != nil {
		return err
	}

	rs2 := m.ReadRegister(insn.Rs2)
	var result uint64
	switch funct5 {
	case amoSWAP:
		result = rs2
	case amoADD:
		result = old + rs2
	case amoXOR:
		result = old ^ rs2
	case amoAND:
		result = old & rs2
	case amoOR:
		result = old | rs2
	default:
		return fmt.Errorf("%w: amo funct5 %#x", ErrUnsupportedFunc3, funct5)
	}

	if width == 8 {
		err = m.WriteUint64(address, result)
	} else {
		err = m.WriteUint32(address, uint32(result))
	}
	if err != nil {
		return err
	}
	m.WriteRegister(insn.Rd, old)
	return nil
}

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
