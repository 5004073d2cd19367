package procfs

import (
	"golang.org/x/sys/unix"

	"github.com/jwhutchison/fatigue-go/internal/logging"
)

// Attach ptrace-attaches to pid and waits for it to enter the stopped
// state, retrying the wait on benign interruptions (EINTR). Returns false
// if the attach syscall fails or if the target exits while waiting.
// Writes via the IO and Trace access methods generally require the target
// to be stopped; bracket such writes with Attach/Detach.
func Attach(pid int) bool {
	logger := logging.WithPID(logging.Default(), pid)
	if err := unix.PtraceAttach(pid); err != nil {
		logger.Error("ptrace attach failed", "error", err)
		return false
	}

	var status unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &status, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			logger.Error("wait for stop failed after attach", "error", err)
			return false
		}
		if status.Exited() || status.Signaled() {
			logger.Error("target exited while waiting for stop")
			return false
		}
		if status.Stopped() {
			return true
		}
		// Some other transient status (continued, etc); keep waiting.
	}
}

// Detach issues PTRACE_DETACH, resuming the target. Returns false if the
// detach syscall fails.
func Detach(pid int) bool {
	if err := unix.PtraceDetach(pid); err != nil {
		logging.WithPID(logging.Default(), pid).Error("ptrace detach failed", "error", err)
		return false
	}
	return true
}
