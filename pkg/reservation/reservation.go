// Package reservation implements the load-reserved/store-conditional
// reservation tracker: one outstanding reservation per hart, overlap
// detection for invalidation on a conflicting store, and the
// check-and-invalidate operation SC relies on.
package reservation

// Record is one hart's outstanding reservation.
type Record struct {
	Address uint64
	Size    uint64
	Valid   bool
}

// Tracker holds one Record per hart, indexed by hart ID.
type Tracker struct {
	records map[uint64]*Record
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{records: make(map[uint64]*Record)}
}

func (t *Tracker) recordFor(hartID uint64) *Record {
	r, ok := t.records[hartID]
	if !ok {
		r = &Record{}
		t.records[hartID] = r
	}
	return r
}

// Claim unconditionally overwrites hartID's record with a fresh valid
// reservation over [address, address+size).
func (t *Tracker) Claim(hartID uint64, address uint64, size uint64) {
	r := t.recordFor(hartID)
	r.Address = address
	r.Size = size
	r.Valid = true
}

// overlaps reports whether [address, address+size) intersects res's
// range: start = res.Address - (size-1); end = res.Address + res.Size;
// address in [start, end).
func overlaps(res *Record, address uint64, size uint64) bool {
	if size == 0 {
		size = 1
	}
	var start uint64
	if res.Address >= size-1 {
		start = res.Address - (size - 1)
	}
	end := res.Address + res.Size
	return address >= start && address < end
}

// InvalidateOther invalidates every OTHER hart's valid record whose
// reserved region overlaps [address, address+size).
func (t *Tracker) InvalidateOther(hartID uint64, address uint64, size uint64) {
	for id, r := range t.records {
		if id == hartID || !r.Valid {
			continue
		}
		if overlaps(r, address, size) {
			r.Valid = false
		}
	}
}

// CheckAndInvalidate returns true iff hartID's record is valid and
// overlaps [address, address+size). The record is invalidated
// unconditionally before returning, so a second call always returns
// false until the next Claim.
func (t *Tracker) CheckAndInvalidate(hartID uint64, address uint64, size uint64) bool {
	r := t.recordFor(hartID)
	ok := r.Valid && overlaps(r, address, size)
	r.Valid = false
	return ok
}
