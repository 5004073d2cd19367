// Package region implements the Region value type: a half-open virtual
// address interval in a target process bound to an access method, offering
// typed and raw read/write and hosting the pattern search over its
// contents.
package region

import (
	"encoding/binary"

	"github.com/jwhutchison/fatigue-go/internal/errs"
	"github.com/jwhutchison/fatigue-go/internal/logging"
	"github.com/jwhutchison/fatigue-go/memaccess"
	"github.com/jwhutchison/fatigue-go/pattern"
)

// Region binds a process ID, a [Start, End) virtual address interval, an
// access method, and an optional bounds-enforcement policy. A Region is a
// value type: copies are cheap and independent, and changing one copy's
// Method does not affect another's.
type Region struct {
	PID   int
	Start uintptr
	End   uintptr // exclusive
	Name  string

	Method        memaccess.Method
	EnforceBounds bool

	batch *memaccess.IOBatch
}

// New constructs a Region using the process-wide default access method and
// bounds enforcement enabled.
func New(pid int, start, end uintptr, name string) Region {
	return Region{
		PID: pid, Start: start, End: end, Name: name,
		Method:        memaccess.Default(),
		EnforceBounds: true,
	}
}

// Size returns End - Start.
func (r Region) Size() uintptr {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Valid reports whether the Region's coordinates are well-formed:
// pid > 0, start >= 0 (always true for uintptr), end > start.
func (r Region) Valid() bool {
	return r.PID > 0 && r.End > r.Start
}

// Contains reports whether absolute address addr falls within [Start, End).
func (r Region) Contains(addr uintptr) bool {
	return addr >= r.Start && addr < r.End
}

// UseBatch routes this Region's IO-method reads and writes through b instead
// of opening /proc/[pid]/mem per call, for callers doing many small
// transfers in a row (e.g. Patch's find/backup/apply sequence). b must
// already be started against the Region's PID, and the caller owns its
// lifecycle — Stop it when done. Has no effect unless Method is
// memaccess.IO.
func (r *Region) UseBatch(b *memaccess.IOBatch) {
	r.batch = b
}

func (r Region) String() string {
	return formatRange(r.Start, r.End) + " " + r.Name
}

func formatRange(start, end uintptr) string {
	const hexDigits = "0123456789abcdef"
	hex := func(v uintptr) string {
		if v == 0 {
			return "0x0"
		}
		var buf [2 + 16]byte
		i := len(buf)
		for v > 0 {
			i--
			buf[i] = hexDigits[v&0xf]
			v >>= 4
		}
		i -= 2
		buf[i], buf[i+1] = '0', 'x'
		return string(buf[i:])
	}
	return hex(start) + "-" + hex(end)
}

// checkBounds applies the bounds policy from spec.md §4.3 step 2: when
// EnforceBounds is set, offset must be non-negative and
// Start+offset+size <= End.
func (r Region) checkBounds(offset int64, size int) error {
	if !r.EnforceBounds {
		return nil
	}
	if offset < 0 {
		return errs.WrapDetail(errs.ErrOutOfBounds, errs.Bounds, "region.checkBounds", "negative offset")
	}
	if uintptr(offset)+uintptr(size) > r.Size() {
		return errs.WrapDetail(errs.ErrOutOfBounds, errs.Bounds, "region.checkBounds", "offset+size exceeds region")
	}
	return nil
}

// Read reads size bytes from offset (relative to Start) into buffer.
// Returns -1 if the Region is invalid, buffer is nil, or size is zero
// (spec.md §4.3 step 1); returns a Bounds error if bounds enforcement
// rejects the offset; otherwise dispatches to the selected access method
// and returns the transferred byte count.
func (r Region) Read(offset int64, buffer []byte) (int, error) {
	if !r.Valid() || buffer == nil || len(buffer) == 0 {
		return -1, nil
	}
	if err := r.checkBounds(offset, len(buffer)); err != nil {
		return -1, err
	}
	var n int
	var err error
	if r.batch != nil && r.Method == memaccess.IO {
		n, err = r.batch.Read(r.Start+uintptr(offset), buffer)
	} else {
		n, err = memaccess.Read(r.Method, r.PID, r.Start+uintptr(offset), buffer)
	}
	if err != nil {
		logger := logging.WithMethod(logging.WithRegion(logging.Default(), r.Name, r.Start, r.End), r.Method.String())
		logger.Error("region read failed", "offset", offset, "error", err)
		return n, errs.Wrap(err, errs.IO, "region.Read")
	}
	return n, nil
}

// Write writes buffer to offset (relative to Start). Same pre-conditions
// and bounds policy as Read.
func (r Region) Write(offset int64, buffer []byte) (int, error) {
	if !r.Valid() || buffer == nil || len(buffer) == 0 {
		return -1, nil
	}
	if err := r.checkBounds(offset, len(buffer)); err != nil {
		return -1, err
	}
	var n int
	var err error
	if r.batch != nil && r.Method == memaccess.IO {
		n, err = r.batch.Write(r.Start+uintptr(offset), buffer)
	} else {
		n, err = memaccess.Write(r.Method, r.PID, r.Start+uintptr(offset), buffer)
	}
	if err != nil {
		logger := logging.WithMethod(logging.WithRegion(logging.Default(), r.Name, r.Start, r.End), r.Method.String())
		logger.Error("region write failed", "offset", offset, "error", err)
		return n, errs.Wrap(err, errs.IO, "region.Write")
	}
	return n, nil
}

// ReadUint32 reads a host-endian uint32 at offset. The Region does not
// byte-swap: it is host-endian by construction, matching the target
// architecture (spec.md §4.3).
func (r Region) ReadUint32(offset int64) (uint32, error) {
	var buf [4]byte
	if _, err := r.Read(offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint64 reads a host-endian uint64 at offset.
func (r Region) ReadUint64(offset int64) (uint64, error) {
	var buf [8]byte
	if _, err := r.Read(offset, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteUint32 writes a host-endian uint32 at offset.
func (r Region) WriteUint32(offset int64, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := r.Write(offset, buf[:])
	return err
}

// WriteUint64 writes a host-endian uint64 at offset.
func (r Region) WriteUint64(offset int64, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := r.Write(offset, buf[:])
	return err
}

// Snapshot copies the entire Region's contents into a freshly sized local
// buffer. Implementations should document that this snapshot is explicit
// (spec.md §4.3) so callers size their Regions appropriately — a .text
// section, not an entire multi-gigabyte image.
func (r Region) Snapshot() ([]byte, error) {
	buf := make([]byte, r.Size())
	if _, err := r.Read(0, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Find snapshots the Region and searches it for pattern p, returning
// absolute addresses of matches (not offsets). If firstOnly is true,
// search stops after the first match.
func (r Region) Find(p pattern.Pattern, firstOnly bool) ([]uintptr, error) {
	buf, err := r.Snapshot()
	if err != nil {
		return nil, err
	}
	var offsets []int
	if firstOnly {
		if off := pattern.SearchFirst(buf, p); off >= 0 {
			offsets = []int{off}
		}
	} else {
		offsets = pattern.Search(buf, p, false)
	}
	addrs := make([]uintptr, len(offsets))
	for i, off := range offsets {
		addrs[i] = r.Start + uintptr(off)
	}
	return addrs, nil
}

// FindFirst returns the first absolute address matching p, or 0 if there is
// no match.
func (r Region) FindFirst(p pattern.Pattern) (uintptr, error) {
	addrs, err := r.Find(p, true)
	if err != nil {
		return 0, err
	}
	if len(addrs) == 0 {
		return 0, nil
	}
	return addrs[0], nil
}

// FindHex parses a hex literal pattern (see pattern.ParseHex) and searches
// for it, returning absolute match addresses.
func (r Region) FindHex(hexPattern string, firstOnly bool) ([]uintptr, error) {
	p, err := pattern.ParseHex(hexPattern)
	if err != nil {
		return nil, err
	}
	return r.Find(p, firstOnly)
}

// FindFirstHex is the FindFirst counterpart of FindHex.
func (r Region) FindFirstHex(hexPattern string) (uintptr, error) {
	addrs, err := r.FindHex(hexPattern, true)
	if err != nil {
		return 0, err
	}
	if len(addrs) == 0 {
		return 0, nil
	}
	return addrs[0], nil
}
