// Package patch implements the Patch lifecycle: locate a target address
// (directly, by pattern, or by pattern plus an address-resolving offset),
// back up what is there, and apply/restore/toggle a replacement.
package patch

import (
	"log/slog"

	"github.com/jwhutchison/fatigue-go/internal/errs"
	"github.com/jwhutchison/fatigue-go/internal/logging"
	"github.com/jwhutchison/fatigue-go/pattern"
	"github.com/jwhutchison/fatigue-go/region"
)

// maxShownMatches bounds how many extra match addresses a multi-match
// warning names before summarizing the rest.
const maxShownMatches = 5

// State is a Patch's position in its lifecycle.
type State int

const (
	// Invalid means Init never found a usable address: the Region was
	// invalid, or a pattern was given and never matched.
	Invalid State = iota
	// Inactive means a valid address was found and the original bytes were
	// backed up, but the patch bytes have not been written.
	Inactive
	// Active means the patch bytes are currently written to the target.
	Active
)

func (s State) String() string {
	switch s {
	case Invalid:
		return "invalid"
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// OffsetFunc resolves the final patch address given the address a pattern
// matched at. Used for indirection that a constant offset can't express,
// such as RIP-relative displacements: read a 4-byte displacement at
// match+offset, then add it (plus the instruction length) back to the
// instruction's own address.
type OffsetFunc func(r region.Region, matchAddress uintptr) (uintptr, error)

// Patch describes one patch site: where it is, what was there, and what to
// write instead.
type Patch struct {
	region    region.Region
	pattern   pattern.Pattern
	hasPattern bool
	firstOnly bool
	offset    int64
	offsetFn  OffsetFunc

	replacement []byte

	matches []uintptr
	address uintptr
	found   bool

	matchedOriginal []byte // bytes at the pattern match, for consistency checks
	original        []byte // bytes at the patch address before apply
	applied         bool
}

// NewAbsolute builds a Patch at a fixed address within r, with no pattern
// search involved.
func NewAbsolute(r region.Region, address uintptr, replacement []byte) *Patch {
	p := &Patch{region: r, address: address, replacement: replacement, found: true}
	p.init()
	return p
}

// NewPattern builds a Patch whose address is the location of pat's first
// match within r, offset by a constant number of bytes. Every match is
// recorded (see Matches) for the multi-match warning, but only the first is
// used as the patch address.
func NewPattern(r region.Region, pat pattern.Pattern, offset int64, replacement []byte) *Patch {
	p := &Patch{region: r, pattern: pat, hasPattern: true, firstOnly: true, offset: offset, replacement: replacement}
	p.init()
	return p
}

// NewPatternFunc builds a Patch like NewPattern, but resolves the final
// address from the match address via fn instead of a constant offset —
// the RIP-relative / indirect-pointer case.
func NewPatternFunc(r region.Region, pat pattern.Pattern, fn OffsetFunc, replacement []byte) *Patch {
	p := &Patch{region: r, pattern: pat, hasPattern: true, firstOnly: true, offsetFn: fn, replacement: replacement}
	p.init()
	return p
}

func (p *Patch) logger() *slog.Logger {
	return logging.WithRegion(logging.Default(), p.region.Name, p.region.Start, p.region.End)
}

func (p *Patch) init() {
	if !p.region.Valid() {
		p.logger().Warn("patch region is invalid")
		p.found = false
		p.address = 0
		return
	}

	if p.hasPattern {
		p.find()
		if !p.found {
			return
		}
	}

	resolved, err := p.resolveAddress()
	if err != nil {
		logging.Warn("patch failed to resolve address", "error", err)
		p.found = false
		return
	}
	p.address = resolved

	p.backup()

	if p.hasPattern && len(p.matchedOriginal) != p.pattern.Len() {
		logging.Warn("patch matched data size does not match pattern size",
			"matched", len(p.matchedOriginal), "pattern", p.pattern.Len())
	}
	if len(p.original) != len(p.replacement) {
		logging.Warn("patch original data size does not match replacement size",
			"original", len(p.original), "replacement", len(p.replacement))
	}
}

// find locates every match of the Patch's pattern within its Region,
// recording the first as the base match address and warning if the pattern
// is loose enough to match more than once.
func (p *Patch) find() {
	p.found = false
	if !p.region.Valid() {
		p.logger().Warn("patch region is invalid", "pattern", p.pattern)
		return
	}

	matches, err := p.region.Find(p.pattern, false)
	if err != nil {
		p.logger().Warn("patch pattern search failed", "error", err)
		return
	}
	p.matches = matches
	p.found = len(matches) > 0
	if !p.found {
		p.logger().Warn("patch failed to find pattern")
		return
	}

	if len(matches) > 1 {
		shown := matches
		if len(shown) > maxShownMatches {
			shown = shown[:maxShownMatches]
		}
		p.logger().Warn("patch found multiple matches, pattern may be too loose",
			"count", len(matches), "using", matches[0], "also", shown[1:])
	}
}

// resolveAddress turns the pattern match (if any) into the final patch
// address, applying the constant offset or offset function as configured.
// spec.md §4.7 requires a non-fatal warning, not a hard failure, when
// match + offset underflows past zero before the uintptr conversion.
func (p *Patch) resolveAddress() (uintptr, error) {
	if !p.hasPattern {
		return p.address, nil
	}
	base := p.matches[0]
	if p.offsetFn != nil {
		return p.offsetFn(p.region, base)
	}
	signed := int64(base) + p.offset
	if signed < 0 {
		p.logger().Warn("patch match address plus offset is negative", "match", base, "offset", p.offset)
	}
	return uintptr(signed), nil
}

func (p *Patch) backup() {
	if !p.found {
		return
	}

	if p.hasPattern {
		buf := make([]byte, p.pattern.Len())
		offset := int64(p.matches[0]) - int64(p.region.Start)
		if _, err := p.region.Read(offset, buf); err == nil {
			p.matchedOriginal = buf
		}
	}

	orig := make([]byte, len(p.replacement))
	offset := int64(p.address) - int64(p.region.Start)
	if _, err := p.region.Read(offset, orig); err != nil {
		logging.WithAddress(logging.Default(), p.address).Warn("patch failed to back up original bytes", "error", err)
		return
	}
	p.original = orig
}

// Found reports whether Init resolved a usable address.
func (p *Patch) Found() bool { return p.found }

// Applied reports whether the replacement bytes are currently written.
func (p *Patch) Applied() bool { return p.applied }

// Address returns the resolved patch address, or 0 if the Patch is
// invalid.
func (p *Patch) Address() uintptr { return p.address }

// Matches returns every address the Patch's pattern matched, in ascending
// order. Empty for an absolute-address Patch.
func (p *Patch) Matches() []uintptr { return p.matches }

// State reports the Patch's current lifecycle state.
func (p *Patch) State() State {
	switch {
	case !p.found:
		return Invalid
	case p.applied:
		return Active
	default:
		return Inactive
	}
}

func (p *Patch) writeOffset(buf []byte) (int, error) {
	offset := int64(p.address) - int64(p.region.Start)
	return p.region.Write(offset, buf)
}

// Apply writes the replacement bytes to the patch address. A no-op
// returning nil if the patch is already applied. Fails if the Patch never
// found a valid address, or has no replacement bytes.
func (p *Patch) Apply() error {
	if !p.found {
		return errs.New(errs.Usage, "patch.Apply", "patch is invalid")
	}
	if len(p.replacement) == 0 {
		return errs.ErrEmptyReplacement
	}
	if len(p.original) == 0 {
		logging.WithAddress(logging.Default(), p.address).Warn("patch original data is empty; it cannot be restored after apply")
	}
	if p.applied {
		return nil
	}

	n, err := p.writeOffset(p.replacement)
	if err != nil {
		return errs.Wrap(err, errs.IO, "patch.Apply")
	}
	if n != len(p.replacement) {
		return errs.WrapDetail(errs.ErrShortTransfer, errs.IO, "patch.Apply", "short write")
	}

	p.applied = true
	return nil
}

// Restore writes the original, pre-patch bytes back to the patch address.
// A no-op returning nil if the patch was never applied. Fails if no
// original bytes were ever backed up.
func (p *Patch) Restore() error {
	if !p.found {
		return errs.New(errs.Usage, "patch.Restore", "patch is invalid")
	}
	if len(p.original) == 0 {
		return errs.ErrNoBackup
	}
	if !p.applied {
		return nil
	}

	n, err := p.writeOffset(p.original)
	if err != nil {
		return errs.Wrap(err, errs.IO, "patch.Restore")
	}
	if n != len(p.original) {
		return errs.WrapDetail(errs.ErrShortTransfer, errs.IO, "patch.Restore", "short write")
	}

	p.applied = false
	return nil
}

// Toggle applies an inactive patch or restores an active one.
func (p *Patch) Toggle() error {
	if p.applied {
		return p.Restore()
	}
	return p.Apply()
}
