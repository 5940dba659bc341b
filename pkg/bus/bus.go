// Package bus defines the address-routed read/write contract that every
// device in this emulator (memory, UART) implements, and the taxonomy of
// errors a bus operation can fail with.
package bus

import "fmt"

// ErrorKind classifies why a bus operation failed.
type ErrorKind int

const (
	// Unimplemented indicates that no device covers this address.
	Unimplemented ErrorKind = iota
	// OutOfBounds indicates a device covers the address but the access
	// extends beyond the device's end.
	OutOfBounds
	// UnsupportedRead indicates a device-specific read-width restriction
	// (for example, a read wider than the device allows).
	UnsupportedRead
	// DisallowedRead indicates a read of a register that is write-only or
	// otherwise not legal to read, independent of width.
	DisallowedRead
	// DisallowedWrite indicates a device-specific write restriction (for
	// example, writing a read-only register).
	DisallowedWrite
	// NoData is UART-specific: a read from ReceiverBuffer when no byte is
	// ready.
	NoData
)

func (k ErrorKind) String() string {
	switch k {
	case Unimplemented:
		return "unimplemented"
	case OutOfBounds:
		return "out of bounds"
	case UnsupportedRead:
		return "unsupported read"
	case DisallowedRead:
		return "disallowed read"
	case DisallowedWrite:
		return "disallowed write"
	case NoData:
		return "no data"
	default:
		return "unknown bus error"
	}
}

// Error is the error type returned by every Bus operation.
type Error struct {
	Kind    ErrorKind
	Address uint64
	Detail  string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("bus: %s at %#x", e.Kind, e.Address)
	}
	return fmt.Sprintf("bus: %s at %#x: %s", e.Kind, e.Address, e.Detail)
}

// New builds a bus Error for the given address.
func New(kind ErrorKind, address uint64, detail string) *Error {
	return &Error{Kind: kind, Address: address, Detail: detail}
}

// Bus is implemented by anything that routes width-typed reads and writes
// by byte address: Memory, the UART register window, and Platform (which
// dispatches to whichever of the two covers a given address).
type Bus interface {
	ReadUint8(address uint64) (uint8, error)
	ReadUint16(address uint64) (uint16, error)
	ReadUint32(address uint64) (uint32, error)
	ReadUint64(address uint64) (uint64, error)

	WriteUint8(address uint64, value uint8) error
	WriteUint16(address uint64, value uint16) error
	WriteUint32(address uint64, value uint32) error
	WriteUint64(address uint64, value uint64) error
}
