package pattern

import (
	"encoding/hex"
	"strings"

	"github.com/jwhutchison/fatigue-go/internal/errs"
)

// ParseHex parses a hex literal such as "C7 43 ?? ?? ?? ?? ?? 4C 89 AB" into
// a Pattern. Whitespace is ignored; "??" denotes a wildcard byte. Odd
// length (after whitespace removal), stray non-hex characters, and a lone
// '?' within a byte pair are all rejected.
func ParseHex(s string) (Pattern, error) {
	compact := Compact(s)
	if len(compact)%2 != 0 {
		return Pattern{}, errs.ErrOddHexLength
	}

	n := len(compact) / 2
	data := make([]byte, n)
	mask := make([]byte, n)

	for i := 0; i < n; i++ {
		pair := compact[2*i : 2*i+2]
		if pair == "??" {
			data[i] = 0
			mask[i] = '?'
			continue
		}
		if strings.ContainsRune(pair, '?') {
			// exactly one of the two characters is '?': a lone wildcard
			// nibble, which is invalid.
			return Pattern{}, errs.ErrBadHexChar
		}
		b, err := hex.DecodeString(pair)
		if err != nil {
			return Pattern{}, errs.WrapDetail(errs.ErrBadHexChar, errs.Usage, "pattern.ParseHex", err.Error())
		}
		data[i] = b[0]
		mask[i] = '.'
	}

	return New(data, string(mask))
}

// ToHex returns the upper-case, unseparated hex encoding of data.
func ToHex(data []byte) string {
	return ToUpper(hex.EncodeToString(data))
}

// FromHex decodes a hex string into bytes. Whitespace between digits is
// ignored; wildcards and any other non-hex characters are rejected.
func FromHex(s string) ([]byte, error) {
	data, err := hex.DecodeString(Compact(s))
	if err != nil {
		return nil, errs.Wrap(err, errs.Usage, "pattern.FromHex")
	}
	return data, nil
}

// PrettyHex renders data as upper-case, space-separated byte pairs, e.g.
// "DE AD BE EF".
func PrettyHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(data)*3 - 1)
	for i, by := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(ToHex([]byte{by}))
	}
	return b.String()
}

// ASCIIFold renders a single byte as itself if printable, or '.' otherwise.
func ASCIIFold(b byte) byte {
	if b >= 0x20 && b < 0x7f {
		return b
	}
	return '.'
}

// Dump renders data as an aligned hex/ASCII dump, rowSize bytes per row,
// with an optional trailing ASCII column. A non-positive rowSize is treated
// as 16, the conventional hex editor row width.
func Dump(data []byte, rowSize int, showASCII bool) string {
	if rowSize <= 0 {
		rowSize = 16
	}
	var b strings.Builder
	for offset := 0; offset < len(data); offset += rowSize {
		end := offset + rowSize
		if end > len(data) {
			end = len(data)
		}
		row := data[offset:end]

		for i := 0; i < rowSize; i++ {
			if i > 0 {
				b.WriteByte(' ')
			}
			if i < len(row) {
				b.WriteString(ToHex([]byte{row[i]}))
			} else {
				b.WriteString("  ")
			}
		}

		if showASCII {
			b.WriteString("  |")
			for _, by := range row {
				b.WriteByte(ASCIIFold(by))
			}
			b.WriteByte('|')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
