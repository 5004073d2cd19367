// Package elffmt implements the ELF Parser: given a Region over a loaded
// Executable and Linkable Format image (the common case under Linux, and
// the occasional ELF interpreter or shared library loaded alongside a PE
// image under Wine), it reads the ELF header and program headers in situ
// and resolves PT_LOAD/PT_DYNAMIC segments to address ranges.
package elffmt

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"log/slog"

	"github.com/jwhutchison/fatigue-go/arch"
	"github.com/jwhutchison/fatigue-go/internal/errs"
	"github.com/jwhutchison/fatigue-go/internal/logging"
	"github.com/jwhutchison/fatigue-go/region"
)

const identSize = 16

// Segment pairs a program header's type with the Region it maps to.
type Segment struct {
	Type   elf.ProgType
	Region region.Region
}

// Image wraps a Region over a loaded ELF image base and exposes its class,
// parsed program headers, and the segments they resolve to. Only fields
// this parser actually uses are kept; the rest of the header is read and
// discarded.
type Image struct {
	base region.Region

	Class    elf.Class
	Type     elf.Type
	Machine  elf.Machine
	Entry    uint64
	Segments []Segment
}

// New parses the ELF headers out of base and returns the resulting Image.
// base's Start is treated as the image base; segment addresses are
// computed as base.Start + p_vaddr, matching the "laziest possible"
// loaded-segment mapping a live in-memory image allows (segments are not
// re-based against ASLR slide beyond what base.Start already reflects).
//
// Bounds enforcement is disabled on base before any header is read: ELF
// program headers routinely describe virtual ranges that extend beyond
// what a single contiguous mapping entry covers (e.g. bss past the file's
// backing pages), and this parser never writes, only maps regions for
// later pattern search.
func New(base region.Region) (*Image, error) {
	base.EnforceBounds = false
	img := &Image{base: base}
	if err := img.init(); err != nil {
		return nil, err
	}
	return img, nil
}

func (img *Image) logger() *slog.Logger {
	return logging.WithRegion(logging.Default(), img.base.Name, img.base.Start, img.base.End)
}

func (img *Image) init() error {
	ident := make([]byte, identSize)
	if _, err := img.base.Read(0, ident); err != nil {
		return errs.Wrap(err, errs.IO, "elffmt.init")
	}
	if string(ident[:len(elf.ELFMAG)]) != elf.ELFMAG {
		img.logger().Error("bad elf magic")
		return errs.WrapDetail(errs.ErrBadMagic, errs.Invalid, "elffmt.init", "elf magic mismatch")
	}

	class := elf.Class(ident[elf.EI_CLASS])
	if !classMatchesHost(class) {
		img.logger().Error("elf class does not match host", "class", class)
		return errs.ErrClassMismatch
	}
	img.Class = class

	var (
		phoff, phentsize, phnum uint64
		err                     error
	)
	switch class {
	case elf.ELFCLASS64:
		img.Type, img.Machine, img.Entry, phoff, phentsize, phnum, err = img.readHeader64()
	case elf.ELFCLASS32:
		img.Type, img.Machine, img.Entry, phoff, phentsize, phnum, err = img.readHeader32()
	default:
		return errs.ErrClassMismatch
	}
	if err != nil {
		return err
	}

	segments := make([]Segment, 0, phnum)
	for i := uint64(0); i < phnum; i++ {
		off := int64(phoff + i*phentsize)
		var (
			pType             elf.ProgType
			vaddr, memsz uint64
			segErr            error
		)
		switch class {
		case elf.ELFCLASS64:
			pType, vaddr, memsz, segErr = img.readProg64(off)
		case elf.ELFCLASS32:
			pType, vaddr, memsz, segErr = img.readProg32(off)
		}
		if segErr != nil {
			return segErr
		}
		start := img.base.Start + uintptr(vaddr)
		segments = append(segments, Segment{
			Type: pType,
			Region: region.Region{
				PID:           img.base.PID,
				Start:         start,
				End:           start + uintptr(memsz),
				Name:          pType.String(),
				Method:        img.base.Method,
				EnforceBounds: false,
			},
		})
	}
	img.Segments = segments
	return nil
}

func classMatchesHost(class elf.Class) bool {
	switch arch.Host.PointerSize {
	case 8:
		return class == elf.ELFCLASS64
	case 4:
		return class == elf.ELFCLASS32
	default:
		return false
	}
}

func (img *Image) readHeader64() (typ elf.Type, machine elf.Machine, entry, phoff, phentsize, phnum uint64, err error) {
	var hdr elf.Header64
	buf := make([]byte, 64)
	if _, rerr := img.base.Read(0, buf); rerr != nil {
		return 0, 0, 0, 0, 0, 0, errs.Wrap(rerr, errs.IO, "elffmt.readHeader64")
	}
	if berr := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &hdr); berr != nil {
		return 0, 0, 0, 0, 0, 0, errs.Wrap(berr, errs.Invalid, "elffmt.readHeader64")
	}
	return elf.Type(hdr.Type), elf.Machine(hdr.Machine), hdr.Entry, hdr.Phoff, uint64(hdr.Phentsize), uint64(hdr.Phnum), nil
}

func (img *Image) readHeader32() (typ elf.Type, machine elf.Machine, entry, phoff, phentsize, phnum uint64, err error) {
	var hdr elf.Header32
	buf := make([]byte, 52)
	if _, rerr := img.base.Read(0, buf); rerr != nil {
		return 0, 0, 0, 0, 0, 0, errs.Wrap(rerr, errs.IO, "elffmt.readHeader32")
	}
	if berr := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &hdr); berr != nil {
		return 0, 0, 0, 0, 0, 0, errs.Wrap(berr, errs.Invalid, "elffmt.readHeader32")
	}
	return elf.Type(hdr.Type), elf.Machine(hdr.Machine), uint64(hdr.Entry), uint64(hdr.Phoff), uint64(hdr.Phentsize), uint64(hdr.Phnum), nil
}

func (img *Image) readProg64(off int64) (elf.ProgType, uint64, uint64, error) {
	var p elf.Prog64
	buf := make([]byte, 56)
	if _, err := img.base.Read(off, buf); err != nil {
		return 0, 0, 0, errs.Wrap(err, errs.IO, "elffmt.readProg64")
	}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &p); err != nil {
		return 0, 0, 0, errs.Wrap(err, errs.Invalid, "elffmt.readProg64")
	}
	return elf.ProgType(p.Type), p.Vaddr, p.Memsz, nil
}

func (img *Image) readProg32(off int64) (elf.ProgType, uint64, uint64, error) {
	var p elf.Prog32
	buf := make([]byte, 32)
	if _, err := img.base.Read(off, buf); err != nil {
		return 0, 0, 0, errs.Wrap(err, errs.IO, "elffmt.readProg32")
	}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &p); err != nil {
		return 0, 0, 0, errs.Wrap(err, errs.Invalid, "elffmt.readProg32")
	}
	return elf.ProgType(p.Type), uint64(p.Vaddr), uint64(p.Memsz), nil
}

// GetLoaded returns a Region for every PT_LOAD segment.
func (img *Image) GetLoaded() []region.Region {
	var out []region.Region
	for _, s := range img.Segments {
		if s.Type == elf.PT_LOAD {
			out = append(out, s.Region)
		}
	}
	return out
}

// GetLoadedRegion returns a single Region spanning the lowest start to the
// highest end across all PT_LOAD segments. This is the laziest possible
// mapping that still covers every loaded byte, suitable for a pattern scan
// across an entire image; it may include unrelated gaps between segments.
func (img *Image) GetLoadedRegion() region.Region {
	loaded := img.GetLoaded()
	if len(loaded) == 0 {
		return region.Region{}
	}
	lo, hi := loaded[0].Start, loaded[0].End
	for _, r := range loaded[1:] {
		if r.Start < lo {
			lo = r.Start
		}
		if r.End > hi {
			hi = r.End
		}
	}
	return region.Region{
		PID:           img.base.PID,
		Start:         lo,
		End:           hi,
		Name:          "loaded",
		Method:        img.base.Method,
		EnforceBounds: false,
	}
}

// GetDynamic returns a Region for every PT_DYNAMIC segment.
func (img *Image) GetDynamic() []region.Region {
	var out []region.Region
	for _, s := range img.Segments {
		if s.Type == elf.PT_DYNAMIC {
			out = append(out, s.Region)
		}
	}
	return out
}

// Valid reports whether the underlying image Region and parsed class are
// self-consistent.
func (img *Image) Valid() bool {
	return img.base.Valid() && (img.Class == elf.ELFCLASS64 || img.Class == elf.ELFCLASS32)
}
