package isa

import "errors"

// ErrUnsupportedOpcode is returned when the decoder cannot classify an
// opcode into any of the handled instruction types.
var ErrUnsupportedOpcode = errors.New("isa: unsupported opcode")

// ErrUnsupportedFunc3 is returned when an otherwise-recognized opcode
// carries a func3 (or func7/funct5) this executor does not implement.
var ErrUnsupportedFunc3 = errors.New("isa: unsupported func3")
