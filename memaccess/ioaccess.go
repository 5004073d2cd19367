package memaccess

import (
	"fmt"
	"os"

	"github.com/jwhutchison/fatigue-go/internal/errs"
	"github.com/jwhutchison/fatigue-go/internal/logging"
)

func memPath(pid int) string {
	return fmt.Sprintf("/proc/%d/mem", pid)
}

// ReadIO reads len(buf) bytes from pid's address space at address via
// positional I/O against /proc/[pid]/mem. The file descriptor is opened and
// closed within the call; callers doing many small reads should prefer
// IOBatch.
func ReadIO(pid int, address uintptr, buf []byte) (int, error) {
	f, err := os.OpenFile(memPath(pid), os.O_RDONLY, 0)
	if err != nil {
		logging.WithPID(logging.Default(), pid).Error("io open for read failed", "error", err)
		return -1, errs.Wrap(err, errs.IO, "memaccess.ReadIO")
	}
	defer f.Close()
	n, err := f.ReadAt(buf, int64(address))
	if err != nil && n == 0 {
		return -1, errs.Wrap(err, errs.IO, "memaccess.ReadIO")
	}
	return n, nil
}

// WriteIO writes buf to pid's address space at address via positional I/O
// against /proc/[pid]/mem. Writing typically requires the target to be
// ptrace-stopped; the caller is responsible for bracketing this call with
// procfs.Attach/Detach.
func WriteIO(pid int, address uintptr, buf []byte) (int, error) {
	f, err := os.OpenFile(memPath(pid), os.O_WRONLY, 0)
	if err != nil {
		logging.WithPID(logging.Default(), pid).Error("io open for write failed", "error", err)
		return -1, errs.Wrap(err, errs.IO, "memaccess.WriteIO")
	}
	defer f.Close()
	n, err := f.WriteAt(buf, int64(address))
	if err != nil && n == 0 {
		return -1, errs.Wrap(err, errs.IO, "memaccess.WriteIO")
	}
	return n, nil
}

// IOBatch reuses a single /proc/[pid]/mem file descriptor across many reads
// and writes, avoiding the open/close overhead of ReadIO/WriteIO for callers
// doing e.g. many small reads while scanning candidate sections.
type IOBatch struct {
	pid int
	f   *os.File
}

// Start opens /proc/[pid]/mem for the batch. The file is opened read-write;
// callers that never write may ignore write failures.
func (b *IOBatch) Start(pid int) error {
	f, err := os.OpenFile(memPath(pid), os.O_RDWR, 0)
	if err != nil {
		return errs.Wrap(err, errs.IO, "memaccess.IOBatch.Start")
	}
	b.pid = pid
	b.f = f
	return nil
}

// Stop closes the batch's file descriptor. Safe to call multiple times.
func (b *IOBatch) Stop() {
	if b.f != nil {
		b.f.Close()
		b.f = nil
	}
}

// Read reads len(buf) bytes at address using the batch's open descriptor.
func (b *IOBatch) Read(address uintptr, buf []byte) (int, error) {
	if b.f == nil {
		return -1, errs.New(errs.Usage, "memaccess.IOBatch.Read", "batch not started")
	}
	n, err := b.f.ReadAt(buf, int64(address))
	if err != nil && n == 0 {
		return -1, errs.Wrap(err, errs.IO, "memaccess.IOBatch.Read")
	}
	return n, nil
}

// Write writes buf at address using the batch's open descriptor.
func (b *IOBatch) Write(address uintptr, buf []byte) (int, error) {
	if b.f == nil {
		return -1, errs.New(errs.Usage, "memaccess.IOBatch.Write", "batch not started")
	}
	n, err := b.f.WriteAt(buf, int64(address))
	if err != nil && n == 0 {
		return -1, errs.Wrap(err, errs.IO, "memaccess.IOBatch.Write")
	}
	return n, nil
}

// PID returns the process ID the batch is attached to, or 0 if not started.
func (b *IOBatch) PID() int { return b.pid }
