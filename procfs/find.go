package procfs

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jwhutchison/fatigue-go/internal/logging"
)

// GetProcessID scans the numeric directory entries under Root, invoking
// filter(pid) for each, and returns the first pid for which filter returns
// true, or 0 if none match. Order is filesystem-enumeration order; callers
// must not depend on it for correctness when multiple processes could
// match. The directory entries themselves are owned by os.ReadDir's
// returned slice — there is no manual entry lifetime to manage here (unlike
// the C++ original, where an early revision's scanner incorrectly freed an
// iterator-owned entry).
func GetProcessID(filter func(pid int) bool) int {
	entries, err := os.ReadDir(Root)
	if err != nil {
		logging.Error("failed to list process filesystem", "root", Root, "error", err)
		return 0
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		if filter(pid) {
			return pid
		}
	}
	return 0
}

// GetProcessIDByCmdlineEquals returns the pid whose cmdline first token is
// exactly equal to name (strict matching).
func GetProcessIDByCmdlineEquals(name string) int {
	return GetProcessID(func(pid int) bool {
		return GetCmdline(pid) == name
	})
}

// GetProcessIDByCmdlineEndsWith returns the pid whose cmdline first token
// ends with name. Matches any substring from the end, so more specificity
// is better to prevent false positives; for strict matching use
// GetProcessIDByCmdlineEquals.
func GetProcessIDByCmdlineEndsWith(name string) int {
	return GetProcessID(func(pid int) bool {
		return strings.HasSuffix(GetCmdline(pid), name)
	})
}

// GetProcessIDByCmdlineContains returns the pid whose cmdline first token
// contains name anywhere.
func GetProcessIDByCmdlineContains(name string) int {
	return GetProcessID(func(pid int) bool {
		return strings.Contains(GetCmdline(pid), name)
	})
}

// GetProcessIDByStatusName returns the pid whose /proc/[pid]/status "Name"
// entry strictly equals name.
func GetProcessIDByStatusName(name string) int {
	return GetProcessID(func(pid int) bool {
		return GetStatusName(pid) == name
	})
}

// WaitForProcess polls getter() until it returns a non-zero pid or timeout
// elapses, sleeping interval between attempts. Returns 0 on timeout. If
// interval is zero, it defaults to one second. A non-positive timeout
// means "try exactly once".
func WaitForProcess(getter func() int, timeout time.Duration, interval time.Duration) int {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)
	for {
		if pid := getter(); pid != 0 {
			return pid
		}
		if time.Now().After(deadline) {
			return 0
		}
		time.Sleep(interval)
	}
}
