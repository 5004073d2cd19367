package memaccess

import (
	"golang.org/x/sys/unix"

	"github.com/jwhutchison/fatigue-go/internal/errs"
	"github.com/jwhutchison/fatigue-go/internal/logging"
)

// ReadSys reads len(buf) bytes from pid's address space at address using the
// process_vm_readv scatter/gather syscall. No ptrace attach is required.
func ReadSys(pid int, address uintptr, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &buf[0], Len: uint64(len(buf))}}
	remote := []unix.RemoteIovec{{Base: address, Len: len(buf)}}
	n, err := unix.ProcessVMReadv(pid, local, remote, 0)
	if err != nil {
		logger := logging.WithAddress(logging.WithPID(logging.Default(), pid), address)
		logger.Error("sys read failed", "size", len(buf), "error", err)
		return -1, errs.Wrap(err, errs.IO, "memaccess.ReadSys")
	}
	return n, nil
}

// WriteSys writes buf to pid's address space at address using the
// process_vm_writev scatter/gather syscall.
func WriteSys(pid int, address uintptr, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &buf[0], Len: uint64(len(buf))}}
	remote := []unix.RemoteIovec{{Base: address, Len: len(buf)}}
	n, err := unix.ProcessVMWritev(pid, local, remote, 0)
	if err != nil {
		logger := logging.WithAddress(logging.WithPID(logging.Default(), pid), address)
		logger.Error("sys write failed", "size", len(buf), "error", err)
		return -1, errs.Wrap(err, errs.IO, "memaccess.WriteSys")
	}
	return n, nil
}
