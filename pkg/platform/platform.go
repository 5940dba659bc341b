// Package platform wires the hart, the RAM and UART devices and the
// reservation tracker into a single address space, and drives the
// fetch-decode-execute loop.
package platform

import (
	"fmt"
	"io"
	"log"

	"github.com/rv64emu/rv64emu/pkg/bus"
	"github.com/rv64emu/rv64emu/pkg/hart"
	"github.com/rv64emu/rv64emu/pkg/isa"
	"github.com/rv64emu/rv64emu/pkg/memory"
	"github.com/rv64emu/rv64emu/pkg/reservation"
	"github.com/rv64emu/rv64emu/pkg/uart"
)

// UARTBase is the MMIO address the UART register window starts at. This
// value sits just below the default RAM base, following the convention
// of placing device windows below the memory-mapped region.
const UARTBase = 0x1000_0000

// uartWindowSize is large enough to cover the nine named registers with
// room to spare; addresses beyond Scratch are Unimplemented.
const uartWindowSize = 0x100

// Platform is one hart plus its memory map: RAM, a UART, and the LR/SC
// reservation tracker. It implements both bus.Bus and isa.Machine.
type Platform struct {
	Hart   *hart.Hart
	Memory *memory.Memory
	UART   *uart.UART

	reservations *reservation.Tracker

	Log *log.Logger
}

// New creates a Platform with a hart whose PC starts at entryPoint, RAM
// of the given size mapped at ramBase, and a UART attached to the given
// output sink and input source (either may be nil).
func New(entryPoint uint64, ramBase uint64, ramSize uint64, ttyOut io.Writer, ttyIn io.Reader) *Platform {
	logger := log.New(log.Writer(), "", 0)
	h := hart.New(0, entryPoint)
	h.Log = logger
	return &Platform{
		Hart:         h,
		Memory:       memory.New(ramBase, ramSize),
		UART:         uart.New(ttyOut, ttyIn),
		reservations: reservation.New(),
		Log:          logger,
	}
}

// route picks the device covering address, and the offset to present it
// with (the UART is addressed relative to UARTBase), or reports
// Unimplemented.
func (p *Platform) route(address uint64) (bus.Bus, uint64, error) {
	if address >= UARTBase && address < UARTBase+uartWindowSize {
		return p.UART, address - UARTBase, nil
	}
	if p.Memory.Contains(address, 1) {
		return p.Memory, address, nil
	}
	return nil, 0, bus.New(bus.Unimplemented, address, "no device covers this address")
}

// ReadUint8 implements bus.Bus / isa.Machine.
func (p *Platform) ReadUint8(address uint64) (uint8, error) {
	d, off, err := p.route(address)
	if err != nil {
		return 0, err
	}
	return d.ReadUint8(off)
}

// ReadUint16 implements bus.Bus / isa.Machine.
func (p *Platform) ReadUint16(address uint64) (uint16, error) {
	d, off, err := p.route(address)
	if err != nil {
		return 0, err
	}
	return d.ReadUint16(off)
}

// ReadUint32 implements bus.Bus / isa.Machine.
func (p *Platform) ReadUint32(address uint64) (uint32, error) {
	d, off, err := p.route(address)
	if err != nil {
		return 0, err
	}
	return d.ReadUint32(off)
}

// ReadUint64 implements bus.Bus / isa.Machine.
func (p *Platform) ReadUint64(address uint64) (uint64, error) {
	d, off, err := p.route(address)
	if err != nil {
		return 0, err
	}
	return d.ReadUint64(off)
}

// WriteUint8 implements bus.Bus / isa.Machine.
func (p *Platform) WriteUint8(address uint64, value uint8) error {
	d, off, err := p.route(address)
	if err != nil {
		return err
	}
	return d.WriteUint8(off, value)
}

// WriteUint16 implements bus.Bus / isa.Machine.
func (p *Platform) WriteUint16(address uint64, value uint16) error {
	d, off, err := p.route(address)
	if err != nil {
		return err
	}
	return d.WriteUint16(off, value)
}

// WriteUint32 implements bus.Bus / isa.Machine.
func (p *Platform) WriteUint32(address uint64, value uint32) error {
	d, off, err := p.route(address)
	if err != nil {
		return err
	}
	return d.WriteUint32(off, value)
}

// WriteUint64 implements bus.Bus / isa.Machine.
func (p *Platform) WriteUint64(address uint64, value uint64) error {
	d, off, err := p.route(address)
	if err != nil {
		return err
	}
	return d.WriteUint64(off, value)
}

// ReadRegister implements isa.Machine.
func (p *Platform) ReadRegister(i uint32) uint64 { return p.Hart.ReadRegister(i) }

// WriteRegister implements isa.Machine.
func (p *Platform) WriteRegister(i uint32, v uint64) { p.Hart.WriteRegister(i, v) }

// ReadCSR implements isa.Machine.
func (p *Platform) ReadCSR(i uint32) uint64 { return p.Hart.ReadCSR(i) }

// WriteCSR implements isa.Machine.
func (p *Platform) WriteCSR(i uint32, v uint64) { p.Hart.WriteCSR(i, v) }

// PC implements isa.Machine.
func (p *Platform) PC() uint64 { return p.Hart.PC }

// SetPC implements isa.Machine.
func (p *Platform) SetPC(pc uint64) { p.Hart.PC = pc }

// HartID implements isa.Machine.
func (p *Platform) HartID() uint64 { return p.Hart.ID }

// ClaimReservation implements isa.Machine.
func (p *Platform) ClaimReservation(address, size uint64) {
	p.reservations.Claim(p.Hart.ID, address, size)
}

// CheckAndInvalidateReservation implements isa.Machine.
func (p *Platform) CheckAndInvalidateReservation(address, size uint64) bool {
	return p.reservations.CheckAndInvalidate(p.Hart.ID, address, size)
}

// InvalidateOtherReservations implements isa.Machine.
func (p *Platform) InvalidateOtherReservations(address, size uint64) {
	p.reservations.InvalidateOther(p.Hart.ID, address, size)
}

var _ isa.Machine = (*Platform)(nil)

// LoadKernel copies the kernel image into RAM at loadAddress, stripping
// the legacy headerBytes-byte header.
func (p *Platform) LoadKernel(loadAddress uint64, data []byte, headerBytes int) error {
	return p.Memory.LoadBlobStripped(loadAddress, data, headerBytes)
}

// LoadDTB copies a device tree blob into RAM at loadAddress and points
// register a1 at it, per the usual boot convention.
func (p *Platform) LoadDTB(loadAddress uint64, data []byte) error {
	if err := p.Memory.LoadBlob(loadAddress, data); err != nil {
		return fmt.Errorf("platform: loading dtb: %w", err)
	}
	p.Hart.WriteRegister(11, loadAddress) // a1
	return nil
}

// Step fetches, decodes and executes a single instruction. A bus error
// surfaced here is fatal: the caller is expected to log it with context
// and stop the hart, rather than silently discard it (this is the
// documented fix for the source's silent-fault behavior).
func (p *Platform) Step() error {
	pc := p.Hart.PC
	word, err := p.ReadUint32(pc)
	if err != nil {
		return fmt.Errorf("platform: fetch at pc=%#x: %w", pc, err)
	}
	insn := isa.Decode(word)
	if insn.Type == isa.Invalid {
		return fmt.Errorf("%w: word %#08x at pc=%#x", isa.ErrUnsupportedOpcode, word, pc)
	}
	if err := insn.Execute(p); err != nil {
		return fmt.Errorf("platform: executing %#08x at pc=%#x: %w", word, pc, err)
	}
	return nil
}

// Run steps the hart until Step returns an error, polling the UART's
// input source once per instruction. It returns that terminal error —
// the caller decides whether it is an expected halt condition or a
// fault to report.
func (p *Platform) Run() error {
	for {
		if _, err := p.UART.Poll(); err != nil {
			return fmt.Errorf("platform: uart poll: %w", err)
		}
		if err := p.Step(); err != nil {
			return err
		}
	}
}
