package procfs

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/jwhutchison/fatigue-go/internal/logging"
)

// Map is one parsed line of /proc/[pid]/maps: a virtual memory area and its
// permissions, backing file offset, device, inode, and pathname.
type Map struct {
	PID    int
	Start  uintptr
	End    uintptr // exclusive
	Perms  string  // exactly four characters: r/-, w/-, x/-, p/s
	Offset uint64
	Dev    string
	Inode  uint64
	Name   string // may be empty (anonymous), bracketed ([heap]), or a path
}

// IsRead, IsWrite, IsExec, IsPrivate, and IsShared read the four
// permission-character positions directly, matching fatigue::proc::Map's
// predicate set in the original MemoryFatigue implementation.
func (m Map) IsRead() bool    { return len(m.Perms) > 0 && m.Perms[0] == 'r' }
func (m Map) IsWrite() bool   { return len(m.Perms) > 1 && m.Perms[1] == 'w' }
func (m Map) IsExec() bool    { return len(m.Perms) > 2 && m.Perms[2] == 'x' }
func (m Map) IsPrivate() bool { return len(m.Perms) > 3 && m.Perms[3] == 'p' }
func (m Map) IsShared() bool  { return len(m.Perms) > 3 && m.Perms[3] == 's' }

// IsAnonymous reports whether the map has no backing pathname.
func (m Map) IsAnonymous() bool { return m.Name == "" }

// IsPseudo reports whether the map's name is a bracketed pseudo-mapping
// such as "[heap]" or "[stack]".
func (m Map) IsPseudo() bool { return strings.HasPrefix(m.Name, "[") }

// IsFile reports whether the map has a real filesystem backing, i.e. it is
// neither anonymous nor a pseudo-mapping.
func (m Map) IsFile() bool { return !m.IsAnonymous() && !m.IsPseudo() }

// Size returns the length of the mapping in bytes.
func (m Map) Size() uintptr { return m.End - m.Start }

// Valid reports whether the map's interval is well-formed.
func (m Map) Valid() bool { return m.PID > 0 && m.End > m.Start }

// parseMapLine parses one canonical /proc/[pid]/maps line:
// "BEG-END perms offset dev inode [name]". name is optional and may
// contain spaces, which is why it is read to end-of-line rather than
// tokenized further.
func parseMapLine(pid int, line string) (Map, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return Map{}, false
	}

	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return Map{}, false
	}
	start, err := strconv.ParseUint(addrs[0], 16, 64)
	if err != nil {
		return Map{}, false
	}
	end, err := strconv.ParseUint(addrs[1], 16, 64)
	if err != nil {
		return Map{}, false
	}

	perms := fields[1]
	offset, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return Map{}, false
	}
	dev := fields[3]
	inode, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return Map{}, false
	}

	name := ""
	if len(fields) >= 6 {
		// Reconstruct the name from the raw line past the inode field to
		// preserve any internal spaces exactly as the kernel wrote them.
		rest := line
		for _, f := range fields[:5] {
			rest = strings.TrimSpace(rest)[len(f):]
		}
		name = strings.TrimSpace(rest)
	}

	return Map{
		PID:    pid,
		Start:  uintptr(start),
		End:    uintptr(end),
		Perms:  perms,
		Offset: offset,
		Dev:    dev,
		Inode:  inode,
		Name:   name,
	}, true
}

// GetMaps parses /proc/[pid]/maps, one Map per line. If filter is non-nil,
// maps for which it returns false are dropped. A missing file returns an
// empty slice.
func GetMaps(pid int, filter func(Map) bool) []Map {
	path := pidDir(pid) + "/maps"
	f, err := os.Open(path)
	if err != nil {
		logging.Debug("maps file unavailable", "pid", pid, "path", path, "error", err)
		return nil
	}
	defer f.Close()

	var maps []Map
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m, ok := parseMapLine(pid, scanner.Text())
		if !ok {
			continue
		}
		if filter != nil && !filter(m) {
			continue
		}
		maps = append(maps, m)
	}
	return maps
}

// GetValidMaps returns all maps with a non-empty, non-pseudo pathname.
func GetValidMaps(pid int) []Map {
	return GetMaps(pid, func(m Map) bool { return m.IsFile() })
}

// GetMapsContaining returns all maps whose name contains name.
func GetMapsContaining(pid int, name string) []Map {
	return GetMaps(pid, func(m Map) bool { return strings.Contains(m.Name, name) })
}

// GetMapsEndsWith returns all maps whose name ends with name.
func GetMapsEndsWith(pid int, name string) []Map {
	return GetMaps(pid, func(m Map) bool { return strings.HasSuffix(m.Name, name) })
}

// FindMap returns the first map whose name contains name, or the zero Map
// if none match.
func FindMap(pid int, name string) Map {
	maps := GetMapsContaining(pid, name)
	if len(maps) == 0 {
		return Map{}
	}
	return maps[0]
}

// FindMapEndsWith returns the first map whose name ends with name, or the
// zero Map if none match. This is the usual way to pinpoint a process's
// main executable image: match its short base name against the (often
// Windows-style) long cmdline path.
func FindMapEndsWith(pid int, name string) Map {
	maps := GetMapsEndsWith(pid, name)
	if len(maps) == 0 {
		return Map{}
	}
	return maps[0]
}
