package elffmt

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"runtime"
	"testing"
	"unsafe"

	"github.com/jwhutchison/fatigue-go/internal/errs"
	"github.com/jwhutchison/fatigue-go/memaccess"
	"github.com/jwhutchison/fatigue-go/region"
)

const (
	ehdr64Size = 64
	phdr64Size = 56
)

// buildMinimalELF64 assembles a minimal 64-bit ELF image buffer with a
// single PT_LOAD program header, matching spec.md §8's ELF invariant
// scenario.
func buildMinimalELF64(loadVaddr, loadMemsz uint64) []byte {
	phoff := uint64(ehdr64Size)
	total := ehdr64Size + phdr64Size

	buf := make([]byte, total)
	copy(buf[0:4], []byte(elf.ELFMAG))
	buf[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	buf[elf.EI_DATA] = byte(elf.ELFDATA2LSB)

	binary.LittleEndian.PutUint16(buf[16:18], uint16(elf.ET_EXEC))
	binary.LittleEndian.PutUint16(buf[18:20], uint16(elf.EM_X86_64))
	binary.LittleEndian.PutUint32(buf[20:24], 1)
	binary.LittleEndian.PutUint64(buf[32:40], phoff)
	binary.LittleEndian.PutUint16(buf[54:56], uint16(phdr64Size))
	binary.LittleEndian.PutUint16(buf[56:58], 1) // one program header

	ph := buf[phoff:]
	binary.LittleEndian.PutUint32(ph[0:4], uint32(elf.PT_LOAD))
	binary.LittleEndian.PutUint64(ph[16:24], loadVaddr)
	binary.LittleEndian.PutUint64(ph[40:48], loadMemsz)

	return buf
}

// fakeMemRegion builds a Region over buf's own bytes in this test process,
// read back through /proc/self/mem via the IO access method.
func fakeMemRegion(t *testing.T, buf []byte) region.Region {
	t.Helper()
	if len(buf) == 0 {
		t.Fatal("fakeMemRegion: empty buffer")
	}
	start := uintptr(unsafe.Pointer(&buf[0]))
	return region.Region{
		PID:           os.Getpid(),
		Start:         start,
		End:           start + uintptr(len(buf)),
		Name:          "image",
		Method:        memaccess.IO,
		EnforceBounds: true,
	}
}

func TestImageParsesMinimalELF64(t *testing.T) {
	buf := buildMinimalELF64(0x400000, 0x1000)
	defer runtime.KeepAlive(buf)
	base := fakeMemRegion(t, buf)

	img, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if img.Class != elf.ELFCLASS64 {
		t.Fatalf("Class = %v, want ELFCLASS64", img.Class)
	}
	loaded := img.GetLoaded()
	if len(loaded) != 1 {
		t.Fatalf("len(GetLoaded()) = %d, want 1", len(loaded))
	}
	if loaded[0].Size() != 0x1000 {
		t.Fatalf("loaded size = %#x, want 0x1000", loaded[0].Size())
	}

	region := img.GetLoadedRegion()
	if region.Size() != 0x1000 {
		t.Fatalf("GetLoadedRegion size = %#x, want 0x1000", region.Size())
	}
}

func TestImageRejectsBadMagic(t *testing.T) {
	buf := buildMinimalELF64(0x400000, 0x1000)
	defer runtime.KeepAlive(buf)
	buf[0] = 0x00
	base := fakeMemRegion(t, buf)

	if _, err := New(base); err == nil {
		t.Fatal("expected error for bad ELF magic")
	} else if !errs.Is(err, errs.ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestImageRejectsClassMismatch(t *testing.T) {
	buf := buildMinimalELF64(0x400000, 0x1000)
	defer runtime.KeepAlive(buf)
	buf[elf.EI_CLASS] = byte(elf.ELFCLASS32) // host in this test suite is amd64
	base := fakeMemRegion(t, buf)

	if _, err := New(base); err == nil {
		t.Fatal("expected error for class mismatch")
	} else if !errs.Is(err, errs.ErrClassMismatch) {
		t.Fatalf("expected ErrClassMismatch, got %v", err)
	}
}

func TestGetDynamicEmpty(t *testing.T) {
	buf := buildMinimalELF64(0x400000, 0x1000)
	defer runtime.KeepAlive(buf)
	base := fakeMemRegion(t, buf)

	img, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := img.GetDynamic(); len(got) != 0 {
		t.Fatalf("GetDynamic() = %v, want none", got)
	}
}
