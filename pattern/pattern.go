// Package pattern implements Pattern Search: a byte-plus-mask pattern type,
// a modified naive scan with a first-byte skip heuristic, a hex literal
// parser supporting "??" wildcards, and the hex/string utilities used
// throughout fatigue-go.
package pattern

import "github.com/jwhutchison/fatigue-go/internal/errs"

// Pattern is an ordered sequence of bytes plus an equal-length mask of
// literal/wildcard markers. Mask[i] == '?' means "match anything at
// position i"; any other character means the needle byte at that position
// must match exactly.
type Pattern struct {
	Bytes []byte
	Mask  string
}

// Len returns the pattern's length in bytes.
func (p Pattern) Len() int { return len(p.Bytes) }

// New constructs a Pattern from raw bytes and a mask string of equal
// length. Returns ErrLeadingWildcard if mask's first position is a
// wildcard, which would make the search's skip heuristic degenerate.
func New(data []byte, mask string) (Pattern, error) {
	if len(data) != len(mask) {
		return Pattern{}, errs.New(errs.Usage, "pattern.New", "bytes and mask must be the same length")
	}
	if len(mask) > 0 && mask[0] == '?' {
		return Pattern{}, errs.ErrLeadingWildcard
	}
	return Pattern{Bytes: data, Mask: mask}, nil
}

// IsWildcard reports whether position i in the pattern is a wildcard.
func (p Pattern) IsWildcard(i int) bool {
	return p.Mask[i] == '?'
}
