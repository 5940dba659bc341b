package uart

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rv64emu/rv64emu/pkg/bus"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestInitialLineControlIsEightBitWord(t *testing.T) {
	u := New(nil, nil)
	assert(t, u.lineControl == 0b11, "expected default LineControl 0b11, got %#b", u.lineControl)
	assert(t, u.WordLength() == 8, "expected 8-bit word length, got %d", u.WordLength())
}

func TestReadReceiverBufferWithNoDataReturnsNoData(t *testing.T) {
	u := New(nil, nil)
	_, err := u.ReadUint8(uint64(ReceiverBuffer))
	var be *bus.Error
	assert(t, errors.As(err, &be) && be.Kind == bus.NoData, "expected NoData, got %v", err)
}

func TestWriteReceiverBufferMirrorsAndSetsDataReady(t *testing.T) {
	var out bytes.Buffer
	u := New(&out, nil)
	err := u.WriteUint8(uint64(ReceiverBuffer), 'f')
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, u.transmitterHolding == 'f', "expected THR mirror, got %#x", u.transmitterHolding)
	assert(t, u.lineStatus&LSRDataReady != 0, "expected DATA_READY set")
	assert(t, out.String() == "f", "expected output sink to receive the byte, got %q", out.String())
}

func TestSubsequentReadClearsLineStatus(t *testing.T) {
	var out bytes.Buffer
	u := New(&out, nil)
	_ = u.WriteUint8(uint64(ReceiverBuffer), 'x')
	v, err := u.ReadUint8(uint64(ReceiverBuffer))
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, v == 'x', "expected to read back 'x', got %q", v)
	assert(t, u.lineStatus == 0, "expected LSR cleared after read, got %#b", u.lineStatus)
}

func TestPollSetsBufferOverrunWhenAlreadyReady(t *testing.T) {
	u := New(nil, strings.NewReader("ab"))
	ok, err := u.Poll()
	assert(t, ok && err == nil, "expected first poll to succeed: %v", err)
	assert(t, u.lineStatus&LSRDataReady != 0, "expected DATA_READY after first poll")
	ok, err = u.Poll()
	assert(t, ok && err == nil, "expected second poll to succeed: %v", err)
	assert(t, u.lineStatus&LSRBufferOverrun != 0, "expected BUFFER_OVERRUN on second poll")
}

func TestMultiByteReadReturnsUnsupportedRead(t *testing.T) {
	u := New(nil, nil)
	_, err := u.ReadUint16(uint64(LineControl))
	var be *bus.Error
	assert(t, errors.As(err, &be) && be.Kind == bus.UnsupportedRead, "expected UnsupportedRead, got %v", err)
}

func TestMultiByteWriteReturnsUnimplemented(t *testing.T) {
	u := New(nil, nil)
	err := u.WriteUint16(uint64(TransmitterHolding), 0x4242)
	var be *bus.Error
	assert(t, errors.As(err, &be) && be.Kind == bus.Unimplemented, "expected Unimplemented, got %v", err)
}

func TestDisallowedDirections(t *testing.T) {
	u := New(nil, nil)

	_, err := u.ReadUint8(uint64(TransmitterHolding))
	var be *bus.Error
	assert(t, errors.As(err, &be) && be.Kind == bus.DisallowedRead, "expected read of THR to fail, got %v", err)

	err = u.WriteUint8(uint64(LineStatus), 1)
	assert(t, errors.As(err, &be) && be.Kind == bus.DisallowedWrite, "expected write of LSR to fail, got %v", err)
}

func TestStopBitsDerivation(t *testing.T) {
	u := New(nil, nil)
	u.lineControl = 0b000 // 5-bit word, 1 stop bit selector clear
	assert(t, u.StopBits() == 1, "expected 1 stop bit, got %v", u.StopBits())

	u.lineControl = 0b100 // 5-bit word, stop-bit selector set -> 1.5
	assert(t, u.WordLength() == 5, "expected 5-bit word")
	assert(t, u.StopBits() == 1.5, "expected 1.5 stop bits for 5-bit word, got %v", u.StopBits())

	u.lineControl = 0b111 // 8-bit word, stop-bit selector set -> 2
	assert(t, u.StopBits() == 2, "expected 2 stop bits, got %v", u.StopBits())
}
