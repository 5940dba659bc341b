package reservation

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

const addrA = 0x1000

func TestCheckAndInvalidateConsumesReservation(t *testing.T) {
	tr := New()
	tr.Claim(0, addrA, 4)
	assert(t, tr.CheckAndInvalidate(0, addrA, 4), "expected first check to succeed")
	assert(t, !tr.CheckAndInvalidate(0, addrA, 4), "expected second check to fail")
}

func TestInvalidateOtherOverlapping(t *testing.T) {
	tr := New()
	tr.Claim(0, addrA, 4)
	tr.InvalidateOther(1, addrA+2, 2)
	assert(t, !tr.CheckAndInvalidate(0, addrA, 4), "expected hart 0's reservation to be invalidated by overlap")
}

func TestInvalidateOtherNonOverlapping(t *testing.T) {
	tr := New()
	tr.Claim(0, addrA, 4)
	tr.InvalidateOther(1, addrA+8, 4)
	assert(t, tr.CheckAndInvalidate(0, addrA, 4), "expected hart 0's reservation to survive a non-overlapping store")
}

func TestInvalidateOtherNeverTouchesSameHart(t *testing.T) {
	tr := New()
	tr.Claim(0, addrA, 4)
	tr.InvalidateOther(0, addrA, 4)
	assert(t, tr.CheckAndInvalidate(0, addrA, 4), "own-hart store must not invalidate via InvalidateOther")
}
