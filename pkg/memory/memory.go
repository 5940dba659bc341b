// Package memory implements the flat, heap-backed RAM device: a
// contiguous byte buffer mapped at a configurable base address,
// satisfying the bus.Bus contract.
package memory

import (
	"fmt"

	"github.com/rv64emu/rv64emu/pkg/bus"
	"github.com/rv64emu/rv64emu/pkg/lebytes"
)

// DefaultBase is the default RAM base address.
const DefaultBase = 0x8000_0000

// DefaultSize is the default RAM size: 256 MiB.
const DefaultSize = 0x1000_0000

// Memory is a fixed-size byte buffer mapped starting at Base.
type Memory struct {
	Base uint64
	buf  []byte
}

// New allocates a Memory of the given size mapped at base.
func New(base uint64, size uint64) *Memory {
	return &Memory{Base: base, buf: make([]byte, size)}
}

// End returns the address one past the last byte this device covers.
func (m *Memory) End() uint64 {
	return m.Base + uint64(len(m.buf))
}

// Contains reports whether the half-open access [address, address+width)
// is wholly contained within this device's range.
func (m *Memory) Contains(address uint64, width uint64) bool {
	if address < m.Base {
		return false
	}
	return address+width <= m.End() && address+width >= address
}

func (m *Memory) checkedOffset(address uint64, width uint64) (uint64, error) {
	if !m.Contains(address, width) {
		return 0, bus.New(bus.OutOfBounds, address, fmt.Sprintf("width %d access exceeds [%#x, %#x)", width, m.Base, m.End()))
	}
	return address - m.Base, nil
}

// ReadUint8 implements bus.Bus.
func (m *Memory) ReadUint8(address uint64) (uint8, error) {
	off, err := m.checkedOffset(address, 1)
	if err != nil {
		return 0, err
	}
	return lebytes.DecodeUint8(m.buf[off : off+1]), nil
}

// ReadUint16 implements bus.Bus.
func (m *Memory) ReadUint16(address uint64) (uint16, error) {
	off, err := m.checkedOffset(address, 2)
	if err != nil {
		return 0, err
	}
	return lebytes.DecodeUint16(m.buf[off : off+2]), nil
}

// ReadUint32 implements bus.Bus.
func (m *Memory) ReadUint32(address uint64) (uint32, error) {
	off, err := m.checkedOffset(address, 4)
	if err != nil {
		return 0, err
	}
	return lebytes.DecodeUint32(m.buf[off : off+4]), nil
}

// ReadUint64 implements bus.Bus.
func (m *Memory) ReadUint64(address uint64) (uint64, error) {
	off, err := m.checkedOffset(address, 8)
	if err != nil {
		return 0, err
	}
	return lebytes.DecodeUint64(m.buf[off : off+8]), nil
}

// WriteUint8 implements bus.Bus.
func (m *Memory) WriteUint8(address uint64, value uint8) error {
	off, err := m.checkedOffset(address, 1)
	if err != nil {
		return err
	}
	copy(m.buf[off:off+1], lebytes.EncodeUint8(value))
	return nil
}

// WriteUint16 implements bus.Bus.
func (m *Memory) WriteUint16(address uint64, value uint16) error {
	off, err := m.checkedOffset(address, 2)
	if err != nil {
		return err
	}
	copy(m.buf[off:off+2], lebytes.EncodeUint16(value))
	return nil
}

// WriteUint32 implements bus.Bus.
func (m *Memory) WriteUint32(address uint64, value uint32) error {
	off, err := m.checkedOffset(address, 4)
	if err != nil {
		return err
	}
	copy(m.buf[off:off+4], lebytes.EncodeUint32(value))
	return nil
}

// WriteUint64 implements bus.Bus.
func (m *Memory) WriteUint64(address uint64, value uint64) error {
	off, err := m.checkedOffset(address, 8)
	if err != nil {
		return err
	}
	copy(m.buf[off:off+8], lebytes.EncodeUint64(value))
	return nil
}

// LoadBlob copies data into memory starting at loadAddress, rejecting the
// load if loadAddress falls outside this device or data would overflow
// its end.
func (m *Memory) LoadBlob(loadAddress uint64, data []byte) error {
	if !m.Contains(loadAddress, uint64(len(data))) {
		return bus.New(bus.OutOfBounds, loadAddress, fmt.Sprintf("blob of %d bytes does not fit in [%#x, %#x)", len(data), m.Base, m.End()))
	}
	off := loadAddress - m.Base
	copy(m.buf[off:], data)
	return nil
}

// LoadBlobStripped discards the first headerBytes bytes of data (the
// legacy kernel-image header convention) before loading the rest at
// loadAddress.
func (m *Memory) LoadBlobStripped(loadAddress uint64, data []byte, headerBytes int) error {
	if headerBytes > len(data) {
		return fmt.Errorf("memory: blob shorter than header size %d", headerBytes)
	}
	return m.LoadBlob(loadAddress, data[headerBytes:])
}
