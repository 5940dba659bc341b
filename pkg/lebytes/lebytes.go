// Package lebytes implements the little-endian fixed-width codec used by
// every multi-byte memory and register access in this emulator: encode an
// unsigned integer of width 1, 2, 4 or 8 bytes to its little-endian byte
// sequence, and decode the inverse. Round-tripping is required:
// Decode*(Encode*(x)) == x for all x.
package lebytes

import "encoding/binary"

// Width is one of the four widths this codec understands.
type Width int

const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
	Width64 Width = 8
)

// EncodeUint8 returns the (trivial) one-byte little-endian encoding of v.
func EncodeUint8(v uint8) []byte { return []byte{v} }

// DecodeUint8 is the inverse of EncodeUint8.
func DecodeUint8(b []byte) uint8 { return b[0] }

// EncodeUint16 returns the two-byte little-endian encoding of v.
func EncodeUint16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// DecodeUint16 is the inverse of EncodeUint16.
func DecodeUint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// EncodeUint32 returns the four-byte little-endian encoding of v.
func EncodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// DecodeUint32 is the inverse of EncodeUint32.
func DecodeUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// EncodeUint64 returns the eight-byte little-endian encoding of v.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// DecodeUint64 is the inverse of EncodeUint64.
func DecodeUint64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// Size returns the byte width for w.
func (w Width) Size() int { return int(w) }
