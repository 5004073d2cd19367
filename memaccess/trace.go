package memaccess

import (
	"golang.org/x/sys/unix"

	"github.com/jwhutchison/fatigue-go/internal/errs"
	"github.com/jwhutchison/fatigue-go/internal/logging"
)

// ReadTrace reads len(buf) bytes from pid's address space at address using
// PTRACE_PEEKDATA, one machine word at a time (the looping and partial-word
// handling is done by the x/sys/unix wrapper, which mirrors the loop in
// golang-debug's program/server/ptrace.go peek implementation). The target
// must already be ptrace-attached and stopped.
func ReadTrace(pid int, address uintptr, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := unix.PtracePeekData(pid, address, buf)
	if err != nil {
		logger := logging.WithAddress(logging.WithPID(logging.Default(), pid), address)
		logger.Error("trace peek failed", "size", len(buf), "error", err)
		return n, errs.Wrap(err, errs.IO, "memaccess.ReadTrace")
	}
	if n != len(buf) {
		return n, errs.WrapDetail(errs.ErrShortTransfer, errs.IO, "memaccess.ReadTrace", "")
	}
	return n, nil
}

// WriteTrace writes buf to pid's address space at address using
// PTRACE_POKEDATA, one machine word at a time. The target must already be
// ptrace-attached and stopped.
func WriteTrace(pid int, address uintptr, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := unix.PtracePokeData(pid, address, buf)
	if err != nil {
		logger := logging.WithAddress(logging.WithPID(logging.Default(), pid), address)
		logger.Error("trace poke failed", "size", len(buf), "error", err)
		return n, errs.Wrap(err, errs.IO, "memaccess.WriteTrace")
	}
	if n != len(buf) {
		return n, errs.WrapDetail(errs.ErrShortTransfer, errs.IO, "memaccess.WriteTrace", "")
	}
	return n, nil
}
