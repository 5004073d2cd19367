// Package pefmt implements the PE Parser: given a Region over a loaded
// Windows PE image base (as seen inside a process running under Wine or
// Proton), it reads the DOS, COFF, and optional headers in situ and
// resolves named sections to address ranges.
package pefmt

import (
	"encoding/binary"
	"log/slog"
	"strings"

	"github.com/jwhutchison/fatigue-go/internal/errs"
	"github.com/jwhutchison/fatigue-go/internal/logging"
	"github.com/jwhutchison/fatigue-go/region"
)

const (
	// DOSMagic is the DOS header's "MZ" magic.
	DOSMagic uint16 = 0x5A4D
	// Signature is the PE signature "PE\0\0".
	Signature uint32 = 0x00004550
	// PE32Magic is the optional header magic for 32-bit images.
	PE32Magic uint16 = 0x10B
	// PE32PlusMagic is the optional header magic for 64-bit images.
	PE32PlusMagic uint16 = 0x20B

	dosHeaderSize    = 64
	coffHeaderSize   = 24
	sectionNameSize  = 8
	sectionRawSize   = 40
	minOptionalMagic = 2 // bytes needed to read the optional header's magic field
)

// DosHeader is the fixed-layout DOS stub header this parser depends on:
// just the magic and the e_lfanew pointer to the COFF header.
type DosHeader struct {
	Magic           uint16
	CoffHeaderOffset int32
}

// CoffHeader is the PE signature plus IMAGE_FILE_HEADER, read as one
// contiguous 24-byte block.
type CoffHeader struct {
	Signature            uint32
	Machine               uint16
	NumberOfSections       uint16
	TimeDateStamp          uint32
	PointerToSymbolTable   uint32
	NumberOfSymbols        uint32
	SizeOfOptionalHeader   uint16
	Characteristics        uint16
}

// SectionHeader is one IMAGE_SECTION_HEADER entry. Name may contain
// trailing NUL padding within the fixed 8-byte field; use Section.Name for
// the trimmed form.
type SectionHeader struct {
	RawName       [8]byte
	VirtualSize   uint32
	VirtualAddress uint32
}

// Section is a resolved PE section: its trimmed name and the Region
// covering its virtual address range, inheriting the image Region's access
// method.
type Section struct {
	Name   string
	Region region.Region
}

// Image wraps a Region over a loaded PE image base and exposes its parsed
// headers and sections.
type Image struct {
	base region.Region

	Dos      DosHeader
	Coff     CoffHeader
	OptMagic uint16
	Sections []Section
}

func (img *Image) logger() *slog.Logger {
	return logging.WithRegion(logging.Default(), img.base.Name, img.base.Start, img.base.End)
}

// New parses the PE headers out of base and returns the resulting Image.
// base's Start is treated as the image base (RVAs in section headers are
// relative to it).
func New(base region.Region) (*Image, error) {
	img := &Image{base: base}
	if err := img.init(); err != nil {
		return nil, err
	}
	return img, nil
}

func (img *Image) init() error {
	buf := make([]byte, dosHeaderSize)
	if _, err := img.base.Read(0, buf); err != nil {
		return errs.Wrap(err, errs.IO, "pefmt.init")
	}
	img.Dos.Magic = binary.LittleEndian.Uint16(buf[0:2])
	img.Dos.CoffHeaderOffset = int32(binary.LittleEndian.Uint32(buf[60:64]))

	if img.Dos.Magic != DOSMagic {
		img.logger().Error("bad dos magic", "magic", img.Dos.Magic)
		return errs.WrapDetail(errs.ErrBadMagic, errs.Invalid, "pefmt.init", "dos header magic mismatch")
	}

	coffBuf := make([]byte, coffHeaderSize)
	if _, err := img.base.Read(int64(img.Dos.CoffHeaderOffset), coffBuf); err != nil {
		return errs.Wrap(err, errs.IO, "pefmt.init")
	}
	img.Coff = CoffHeader{
		Signature:            binary.LittleEndian.Uint32(coffBuf[0:4]),
		Machine:              binary.LittleEndian.Uint16(coffBuf[4:6]),
		NumberOfSections:     binary.LittleEndian.Uint16(coffBuf[6:8]),
		TimeDateStamp:        binary.LittleEndian.Uint32(coffBuf[8:12]),
		PointerToSymbolTable: binary.LittleEndian.Uint32(coffBuf[12:16]),
		NumberOfSymbols:      binary.LittleEndian.Uint32(coffBuf[16:20]),
		SizeOfOptionalHeader: binary.LittleEndian.Uint16(coffBuf[20:22]),
		Characteristics:      binary.LittleEndian.Uint16(coffBuf[22:24]),
	}
	if img.Coff.Signature != Signature {
		img.logger().Error("bad pe signature", "signature", img.Coff.Signature)
		return errs.WrapDetail(errs.ErrBadMagic, errs.Invalid, "pefmt.init", "pe signature mismatch")
	}

	optOffset := int64(img.Dos.CoffHeaderOffset) + coffHeaderSize
	optMagicBuf := make([]byte, minOptionalMagic)
	if _, err := img.base.Read(optOffset, optMagicBuf); err != nil {
		return errs.Wrap(err, errs.IO, "pefmt.init")
	}
	img.OptMagic = binary.LittleEndian.Uint16(optMagicBuf)

	// Conjunctive validity check (spec.md §9 REDESIGN FLAG): the magic
	// must be neither PE32 nor PE32+ to be invalid, not "isn't one of
	// them" expressed as an always-true OR of inequalities.
	if img.OptMagic != PE32Magic && img.OptMagic != PE32PlusMagic {
		img.logger().Error("bad optional header magic", "magic", img.OptMagic)
		return errs.ErrBadOptionalHeaderMagic
	}

	sectionTableOffset := optOffset + int64(img.Coff.SizeOfOptionalHeader)
	sections := make([]Section, 0, img.Coff.NumberOfSections)
	for i := 0; i < int(img.Coff.NumberOfSections); i++ {
		hdrBuf := make([]byte, sectionRawSize)
		off := sectionTableOffset + int64(i)*sectionRawSize
		if _, err := img.base.Read(off, hdrBuf); err != nil {
			return errs.Wrap(err, errs.IO, "pefmt.init")
		}
		var sh SectionHeader
		copy(sh.RawName[:], hdrBuf[0:8])
		sh.VirtualSize = binary.LittleEndian.Uint32(hdrBuf[8:12])
		sh.VirtualAddress = binary.LittleEndian.Uint32(hdrBuf[12:16])

		name := trimSectionName(sh.RawName)
		start := img.base.Start + uintptr(sh.VirtualAddress)
		sections = append(sections, Section{
			Name: name,
			Region: region.Region{
				PID:           img.base.PID,
				Start:         start,
				End:           start + uintptr(sh.VirtualSize),
				Name:          name,
				Method:        img.base.Method,
				EnforceBounds: img.base.EnforceBounds,
			},
		})
	}
	img.Sections = sections
	return nil
}

// trimSectionName strips trailing NUL padding from an 8-byte section name
// field. Section names may contain trailing non-printable bytes; trim
// before comparing or displaying.
func trimSectionName(raw [8]byte) string {
	n := len(raw)
	for n > 0 && raw[n-1] == 0 {
		n--
	}
	return string(raw[:n])
}

// normalizeSectionName provides the dot-normalization convenience from
// spec.md §4.4: if the query starts with '.', also match the same bytes
// without the leading '.', and vice versa.
func normalizeSectionName(name string) (string, string) {
	if strings.HasPrefix(name, ".") {
		return name, strings.TrimPrefix(name, ".")
	}
	return "." + name, name
}

// GetSection searches for a section by exact name, with dot-normalization:
// querying ".text" or "text" both match a section named ".text". Returns
// ErrSectionNotFound if no section matches.
func (img *Image) GetSection(name string) (Section, error) {
	withDot, withoutDot := normalizeSectionName(name)
	for _, s := range img.Sections {
		if s.Name == withDot || s.Name == withoutDot {
			return s, nil
		}
	}
	return Section{}, errs.ErrSectionNotFound
}

// Valid reports whether the underlying image Region and parsed headers are
// self-consistent (DOS/PE/optional-header magics all checked at init time;
// Valid just re-asserts the Region is still well-formed).
func (img *Image) Valid() bool {
	return img.base.Valid() && img.Dos.Magic == DOSMagic && img.Coff.Signature == Signature
}
