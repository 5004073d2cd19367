package region

import (
	"os"
	"runtime"
	"testing"
	"unsafe"

	"github.com/jwhutchison/fatigue-go/memaccess"
	"github.com/jwhutchison/fatigue-go/pattern"
)

// selfRegion builds a Region over buf's own bytes in this test process,
// read/written via /proc/self/mem through the IO method, so these tests
// exercise the real memaccess/procfs path without a target process.
func selfRegion(t *testing.T, buf []byte) Region {
	t.Helper()
	if len(buf) == 0 {
		t.Fatal("selfRegion: empty buffer")
	}
	start := uintptr(unsafe.Pointer(&buf[0]))
	return Region{
		PID:           os.Getpid(),
		Start:         start,
		End:           start + uintptr(len(buf)),
		Name:          "buf",
		Method:        memaccess.IO,
		EnforceBounds: true,
	}
}

func TestRegionSizeAndValid(t *testing.T) {
	r := New(1234, 0x1000, 0x2000, "mod")
	if r.Size() != 0x1000 {
		t.Fatalf("Size() = %#x, want 0x1000", r.Size())
	}
	if !r.Valid() {
		t.Fatal("expected Valid() true")
	}

	bad := New(1234, 0x2000, 0x1000, "backwards")
	if bad.Size() != 0 {
		t.Fatalf("Size() for backwards region = %d, want 0", bad.Size())
	}

	zeroPID := New(0, 0x1000, 0x2000, "no-pid")
	if zeroPID.Valid() {
		t.Fatal("expected Valid() false for pid 0")
	}
}

func TestRegionContains(t *testing.T) {
	r := New(1234, 0x1000, 0x2000, "mod")
	if !r.Contains(0x1000) {
		t.Fatal("expected Contains(Start) true")
	}
	if r.Contains(0x2000) {
		t.Fatal("expected Contains(End) false (half-open)")
	}
	if r.Contains(0xfff) {
		t.Fatal("expected Contains(Start-1) false")
	}
}

func TestRegionReadWriteRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	defer runtime.KeepAlive(buf)
	r := selfRegion(t, buf)

	if err := r.WriteUint32(4, 0xDEADBEEF); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	got, err := r.ReadUint32(4)
	if err != nil {
		t.Fatalf("ReadUint32: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Fatalf("ReadUint32 = %#x, want 0xDEADBEEF", got)
	}

	if err := r.WriteUint64(8, 0x1122334455667788); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}
	got64, err := r.ReadUint64(8)
	if err != nil {
		t.Fatalf("ReadUint64: %v", err)
	}
	if got64 != 0x1122334455667788 {
		t.Fatalf("ReadUint64 = %#x, want 0x1122334455667788", got64)
	}
}

func TestRegionReadRejectsOutOfBounds(t *testing.T) {
	buf := make([]byte, 8)
	defer runtime.KeepAlive(buf)
	r := selfRegion(t, buf)

	out := make([]byte, 4)
	if _, err := r.Read(6, out); err == nil {
		t.Fatal("expected Read to fail when offset+size exceeds region")
	}
	if _, err := r.Read(-1, out); err == nil {
		t.Fatal("expected Read to fail on negative offset")
	}
}

func TestRegionReadZeroSizeReturnsNegOne(t *testing.T) {
	buf := make([]byte, 8)
	defer runtime.KeepAlive(buf)
	r := selfRegion(t, buf)

	n, err := r.Read(0, nil)
	if n != -1 || err != nil {
		t.Fatalf("Read(nil) = (%d, %v), want (-1, nil)", n, err)
	}
}

func TestRegionSnapshotAndFind(t *testing.T) {
	buf := []byte{0x00, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0xDE, 0xAD, 0xBE, 0xEF}
	defer runtime.KeepAlive(buf)
	r := selfRegion(t, buf)

	snap, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != len(buf) {
		t.Fatalf("Snapshot len = %d, want %d", len(snap), len(buf))
	}

	p, err := pattern.ParseHex("DE AD BE EF")
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}

	addrs, err := r.Find(p, false)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("Find returned %d matches, want 2", len(addrs))
	}
	if addrs[0] != r.Start+1 || addrs[1] != r.Start+6 {
		t.Fatalf("Find addresses = %v, want [%#x %#x]", addrs, r.Start+1, r.Start+6)
	}

	first, err := r.FindFirst(p)
	if err != nil {
		t.Fatalf("FindFirst: %v", err)
	}
	if first != addrs[0] {
		t.Fatalf("FindFirst = %#x, want %#x", first, addrs[0])
	}
}

func TestRegionFindHex(t *testing.T) {
	buf := []byte{0x90, 0x90, 0xC3}
	defer runtime.KeepAlive(buf)
	r := selfRegion(t, buf)

	addr, err := r.FindFirstHex("C3")
	if err != nil {
		t.Fatalf("FindFirstHex: %v", err)
	}
	if addr != r.Start+2 {
		t.Fatalf("FindFirstHex = %#x, want %#x", addr, r.Start+2)
	}
}

func TestRegionString(t *testing.T) {
	r := New(1, 0x1000, 0x2000, "mod")
	want := "0x1000-0x2000 mod"
	if got := r.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
