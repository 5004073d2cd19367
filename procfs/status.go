// Package procfs implements the Process Inspector: locating and
// characterizing a target process and its memory map from the kernel's
// process filesystem, and attaching/detaching via ptrace.
package procfs

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jwhutchison/fatigue-go/internal/logging"
)

// Root is the mount point of the process filesystem. Overridable in tests.
var Root = "/proc"

func pidDir(pid int) string {
	return fmt.Sprintf("%s/%d", Root, pid)
}

// Status is a parsed /proc/[pid]/status: a mapping from header key to
// trimmed value, one entry per line.
type Status map[string]string

// GetStatus parses /proc/[pid]/status line by line. Each line
// "Key:\tvalue" becomes one entry with the trailing colon stripped from
// the key and the value whitespace-trimmed. A missing file returns an
// empty map; the error is logged, not raised.
func GetStatus(pid int) Status {
	path := pidDir(pid) + "/status"
	f, err := os.Open(path)
	if err != nil {
		logging.Debug("status file unavailable", "pid", pid, "path", path, "error", err)
		return Status{}
	}
	defer f.Close()

	status := Status{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		status[key] = value
	}
	return status
}

// GetStatusName returns the "Name" entry from /proc/[pid]/status, or empty
// if absent. This is the short executable name (e.g. "sekiro.exe"), which
// differs from the full cmdline argv.
func GetStatusName(pid int) string {
	return GetStatus(pid)["Name"]
}

// GetCmdline reads /proc/[pid]/cmdline (NUL-separated argv) and returns the
// first token, trimmed. Only the first argv token is read: this is
// sufficient for the equality/ends-with/contains matching this package
// offers, but callers needing the full argument list must parse the file
// themselves.
func GetCmdline(pid int) string {
	path := pidDir(pid) + "/cmdline"
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Debug("cmdline file unavailable", "pid", pid, "path", path, "error", err)
		return ""
	}
	if idx := strings.IndexByte(string(data), 0); idx >= 0 {
		data = data[:idx]
	}
	return strings.TrimSpace(string(data))
}
