// Package uart implements a 16550-compatible UART register file: the nine
// named registers, their read/write-only semantics, and the attached
// byte-oriented output sink / input source.
package uart

import (
	"fmt"
	"io"

	"github.com/rv64emu/rv64emu/pkg/bus"
)

// RegisterAddress enumerates the UART's externally addressable register
// window. The discriminant ordering below (ReceiverBuffer=0 ... Scratch=8)
// is the canonical address-to-register map.
type RegisterAddress uint8

const (
	ReceiverBuffer RegisterAddress = iota
	TransmitterHolding
	InterruptEnable
	InterruptIdent
	LineControl
	ModemControl
	LineStatus
	ModemStatus
	Scratch
)

func (a RegisterAddress) String() string {
	switch a {
	case ReceiverBuffer:
		return "ReceiverBuffer"
	case TransmitterHolding:
		return "TransmitterHolding"
	case InterruptEnable:
		return "InterruptEnable"
	case InterruptIdent:
		return "InterruptIdent"
	case LineControl:
		return "LineControl"
	case ModemControl:
		return "ModemControl"
	case LineStatus:
		return "LineStatus"
	case ModemStatus:
		return "ModemStatus"
	case Scratch:
		return "Scratch"
	default:
		return fmt.Sprintf("RegisterAddress(%d)", uint8(a))
	}
}

func addressFromOffset(offset uint64) (RegisterAddress, error) {
	if offset > uint64(Scratch) {
		return 0, bus.New(bus.Unimplemented, offset, "no UART register at this offset")
	}
	return RegisterAddress(offset), nil
}

// Line status bits.
const (
	LSRDataReady    uint8 = 0x01
	LSRBufferOverrun uint8 = 0x02
)

// wordLengthBits maps LineControl bits[1:0] to word length in bits.
var wordLengthBits = [4]int{5, 6, 7, 8}

// UART is a 16550-compatible register file.
type UART struct {
	receiverBuffer     uint8
	transmitterHolding  uint8
	interruptEnable    uint8
	interruptIdent     uint8
	lineControl        uint8
	modemControl       uint8
	lineStatus         uint8
	modemStatus        uint8
	scratch            uint8
	divisorLatchLS     uint8
	divisorLatchMS     uint8

	output io.Writer
	input  io.Reader
}

// New creates a UART attached to the given output sink, with LineControl
// defaulted to 0b11 (8-bit word). A nil output is treated as io.Discard;
// a nil input means Poll never has data available.
func New(output io.Writer, input io.Reader) *UART {
	if output == nil {
		output = io.Discard
	}
	return &UART{lineControl: 0b11, output: output, input: input}
}

func (u *UART) readAt(addr RegisterAddress) (uint8, error) {
	switch addr {
	case ReceiverBuffer:
		if u.lineStatus&LSRDataReady == 0 {
			return 0, bus.New(bus.NoData, uint64(addr), "no byte ready in ReceiverBuffer")
		}
		v := u.receiverBuffer
		u.lineStatus = 0
		return v, nil
	case TransmitterHolding:
		return 0, bus.New(bus.DisallowedRead, uint64(addr), "TransmitterHolding is write-only")
	case InterruptEnable:
		return u.interruptEnable, nil
	case InterruptIdent:
		return u.interruptIdent, nil
	case LineControl:
		return u.lineControl, nil
	case ModemControl:
		return u.modemControl, nil
	case LineStatus:
		return u.lineStatus, nil
	case ModemStatus:
		return u.modemStatus, nil
	case Scratch:
		return u.scratch, nil
	default:
		return 0, bus.New(bus.Unimplemented, uint64(addr), "no such register")
	}
}

func (u *UART) writeAt(addr RegisterAddress, value uint8) error {
	switch addr {
	case ReceiverBuffer:
		return bus.New(bus.DisallowedWrite, uint64(addr), "ReceiverBuffer is read-only")
	case TransmitterHolding:
		u.transmitterHolding = value
		u.receiverBuffer = value
		if _, err := u.output.Write([]byte{value}); err != nil {
			return fmt.Errorf("uart: output sink write failed: %w", err)
		}
		u.lineStatus |= LSRDataReady
		return nil
	case InterruptEnable:
		u.interruptEnable = value
		return nil
	case InterruptIdent:
		return bus.New(bus.DisallowedWrite, uint64(addr), "InterruptIdent is read-only")
	case LineControl:
		u.lineControl = value
		return nil
	case ModemControl:
		u.modemControl = value
		return nil
	case LineStatus:
		return bus.New(bus.DisallowedWrite, uint64(addr), "LineStatus is read-only")
	case ModemStatus:
		return bus.New(bus.DisallowedWrite, uint64(addr), "ModemStatus is read-only")
	case Scratch:
		u.scratch = value
		return nil
	default:
		return bus.New(bus.Unimplemented, uint64(addr), "no such register")
	}
}

// ReadUint8 implements bus.Bus. Register 0 always means ReceiverBuffer for
// reads (DLAB=0 aliasing).
func (u *UART) ReadUint8(address uint64) (uint8, error) {
	addr, err := addressFromOffset(address)
	if err != nil {
		return 0, err
	}
	return u.readAt(addr)
}

// WriteUint8 implements bus.Bus. A write to register 0 (ReceiverBuffer) is
// redirected to TransmitterHolding (DLAB=0 aliasing).
func (u *UART) WriteUint8(address uint64, value uint8) error {
	addr, err := addressFromOffset(address)
	if err != nil {
		return err
	}
	if addr == ReceiverBuffer {
		addr = TransmitterHolding
	}
	return u.writeAt(addr, value)
}

// ReadUint16/32/64 always fail: reads wider than one byte are unsupported.
func (u *UART) ReadUint16(address uint64) (uint16, error) {
	return 0, bus.New(bus.UnsupportedRead, address, "UART reads are one byte wide")
}

func (u *UART) ReadUint32(address uint64) (uint32, error) {
	return 0, bus.New(bus.UnsupportedRead, address, "UART reads are one byte wide")
}

func (u *UART) ReadUint64(address uint64) (uint64, error) {
	return 0, bus.New(bus.UnsupportedRead, address, "UART reads are one byte wide")
}

// WriteUint16/32/64 always fail: a write wider than one byte is
// unimplemented.
func (u *UART) WriteUint16(address uint64, value uint16) error {
	return bus.New(bus.Unimplemented, address, "UART writes are one byte wide")
}

func (u *UART) WriteUint32(address uint64, value uint32) error {
	return bus.New(bus.Unimplemented, address, "UART writes are one byte wide")
}

func (u *UART) WriteUint64(address uint64, value uint64) error {
	return bus.New(bus.Unimplemented, address, "UART writes are one byte wide")
}

// Poll checks for a byte ready on the attached input source. If
// DATA_READY was already set, BUFFER_OVERRUN is additionally raised
// before DATA_READY is (re-)set. Returns false if no byte was
// available (or no input source is attached).
func (u *UART) Poll() (bool, error) {
	if u.input == nil {
		return false, nil
	}
	var b [1]byte
	n, err := u.input.Read(b[:])
	if err == io.EOF || n == 0 {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("uart: input source read failed: %w", err)
	}
	if u.lineStatus&LSRDataReady != 0 {
		u.lineStatus |= LSRBufferOverrun
	}
	u.receiverBuffer = b[0]
	u.lineStatus |= LSRDataReady
	return true, nil
}

// WordLength returns the word length in bits derived from LineControl
// bits[1:0].
func (u *UART) WordLength() int {
	return wordLengthBits[u.lineControl&0b11]
}

// StopBits returns the stop-bit count derived from LineControl bit 2. 1.5
// stop bits apply only to 5-bit words; otherwise two stop bits are used
// when the bit is set.
func (u *UART) StopBits() float64 {
	if u.lineControl&0x04 == 0 {
		return 1
	}
	if u.WordLength() == 5 {
		return 1.5
	}
	return 2
}

// LineStatus returns the current LSR value, for diagnostics.
func (u *UART) LineStatus() uint8 { return u.lineStatus }
