package pattern

import (
	"reflect"
	"strings"
	"testing"
)

func mustParse(t *testing.T, s string) Pattern {
	t.Helper()
	p, err := ParseHex(s)
	if err != nil {
		t.Fatalf("ParseHex(%q): %v", s, err)
	}
	return p
}

func TestSearchBaseline(t *testing.T) {
	// spec.md §8 end-to-end scenario 1.
	buf := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}

	if got := Search(buf, mustParse(t, "44 55 66"), false); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("literal search = %v, want [4]", got)
	}
	if got := Search(buf, mustParse(t, "44 ?? 66"), false); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("wildcard search = %v, want [4]", got)
	}
	if got := Search(buf, mustParse(t, "44 55 66 77 88 99 AA BB CC DD EE FF 00"), false); len(got) != 0 {
		t.Errorf("overlength search = %v, want none", got)
	}
}

func TestSearchFirstByteSkipHeuristic(t *testing.T) {
	// spec.md §8 end-to-end scenario 2.
	buf := []byte{0xAA, 0xAA, 0xBB}
	got := Search(buf, mustParse(t, "AA BB"), false)
	if !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("got %v, want [1]", got)
	}
}

func TestSearchWildcardCases(t *testing.T) {
	p := mustParse(t, "AA ?? CC")
	cases := []struct {
		buf  []byte
		want []int
	}{
		{[]byte{0xAA, 0xBB, 0xCC}, []int{0}},
		{[]byte{0xAA, 0x01, 0xCC}, []int{0}},
		{[]byte{0xAA, 0xFF, 0xCC}, []int{0}},
		{[]byte{0xAA, 0xBB, 0xCD}, nil},
	}
	for _, c := range cases {
		got := Search(c.buf, p, false)
		if len(got) != len(c.want) || (len(got) > 0 && got[0] != c.want[0]) {
			t.Errorf("Search(%v) = %v, want %v", c.buf, got, c.want)
		}
	}
}

func TestSearchSelfConcatenation(t *testing.T) {
	p := mustParse(t, "DE AD BE EF")
	buf := append(append([]byte{}, p.Bytes...), p.Bytes...)
	got := Search(buf, p, false)
	if !reflect.DeepEqual(got, []int{0, 4}) {
		t.Fatalf("got %v, want [0 4]", got)
	}
	first := Search(buf, p, true)
	if !reflect.DeepEqual(first, []int{0}) {
		t.Fatalf("first_only got %v, want [0]", first)
	}
}

func TestSearchSingleBuffer(t *testing.T) {
	p := mustParse(t, "12 34 56")
	got := Search(p.Bytes, p, false)
	if !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("got %v, want [0]", got)
	}
}

func TestSearchStableOrdering(t *testing.T) {
	p := mustParse(t, "01 02")
	buf := []byte{0x01, 0x02, 0x00, 0x01, 0x02, 0x00, 0x01, 0x02}
	first := Search(buf, p, false)
	second := Search(buf, p, false)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("search not stable: %v vs %v", first, second)
	}
	for i := 1; i < len(first); i++ {
		if first[i] <= first[i-1] {
			t.Fatalf("matches not strictly ascending: %v", first)
		}
	}
}

func TestParseHexRejectsLeadingWildcard(t *testing.T) {
	if _, err := ParseHex("?? AA BB"); err == nil {
		t.Fatal("expected error for leading wildcard")
	}
}

func TestParseHexRejectsOddLength(t *testing.T) {
	if _, err := ParseHex("AA B"); err == nil {
		t.Fatal("expected error for odd-length hex literal")
	}
}

func TestParseHexRejectsLoneQuestionMark(t *testing.T) {
	if _, err := ParseHex("AA B?"); err == nil {
		t.Fatal("expected error for lone '?'")
	}
}

func TestParseHexIgnoresWhitespace(t *testing.T) {
	p, err := ParseHex("AA\tBB  CC\n")
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if !reflect.DeepEqual(p.Bytes, []byte{0xAA, 0xBB, 0xCC}) {
		t.Fatalf("got %v", p.Bytes)
	}
}

func TestHexRoundTrip(t *testing.T) {
	// spec.md §8 invariant: parse(to_hex(bytes)) == bytes, no wildcards.
	data := []byte{0x00, 0xFF, 0x10, 0xAB, 0xCD}
	enc := ToHex(data)
	dec, err := FromHex(enc)
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	if !reflect.DeepEqual(dec, data) {
		t.Fatalf("round trip mismatch: %v != %v", dec, data)
	}
}

func TestHexRoundTripLowercaseInput(t *testing.T) {
	s := "deadbeef"
	data, err := FromHex(s)
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	back := ToHex(data)
	if ToLower(back) != s {
		t.Fatalf("to_hex(from_hex(%q)).lower() = %q", s, ToLower(back))
	}
}

func TestPrettyHex(t *testing.T) {
	if got := PrettyHex([]byte{0xDE, 0xAD, 0xBE, 0xEF}); got != "DE AD BE EF" {
		t.Fatalf("got %q", got)
	}
}

func TestDumpAligned(t *testing.T) {
	data := []byte("Hello, World!")
	out := Dump(data, 16, true)
	if out == "" {
		t.Fatal("expected non-empty dump")
	}
	if got := len([]rune(out)); got == 0 {
		t.Fatal("dump produced no output")
	}
	// One row for 13 bytes at rowSize 16.
	if got := strings.Count(out, "\n"); got != 1 {
		t.Fatalf("dump has %d rows, want 1:\n%s", got, out)
	}
	// The short row is padded so its ASCII column starts where a full row's
	// would: 16 hex cells (47 characters) plus two spaces.
	if got := strings.Index(out, "|"); got != 49 {
		t.Fatalf("ASCII column starts at %d, want 49:\n%s", got, out)
	}
}

func TestTrimAndCompact(t *testing.T) {
	if got := Trim("  \tfoo.exe \n"); got != "foo.exe" {
		t.Fatalf("Trim = %q", got)
	}
	if got := Compact("AA BB\tCC\n"); got != "AABBCC" {
		t.Fatalf("Compact = %q", got)
	}
}
